package backend

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sumire/storeit/internal/domain"
)

// statusCoder is implemented by the SDK's *client.AppwriteError.
type statusCoder interface {
	GetStatusCode() int
}

// Error attaches the domain sentinel matching a platform error's status code,
// so callers can test it with errors.Is while errors.As still reaches the SDK
// error. Errors without a mapped status are returned unchanged.
func Error(err error) error {
	if err == nil {
		return nil
	}

	var sc statusCoder
	if !errors.As(err, &sc) {
		return err
	}

	var sentinel error
	switch sc.GetStatusCode() {
	case http.StatusBadRequest:
		sentinel = domain.ErrInvalidInput
	case http.StatusUnauthorized:
		sentinel = domain.ErrUnauthorized
	case http.StatusForbidden:
		sentinel = domain.ErrForbidden
	case http.StatusNotFound:
		sentinel = domain.ErrNotFound
	case http.StatusConflict:
		sentinel = domain.ErrConflict
	default:
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
