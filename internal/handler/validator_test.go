package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/storeit/internal/domain"
)

func TestAppValidator(t *testing.T) {
	v := NewAppValidator()

	cases := []struct {
		name   string
		in     any
		fields map[string]string
	}{
		{
			name: "valid sign-up",
			in:   &createAccountRequest{FullName: "Ann", Email: "a@x.com"},
		},
		{
			name: "sign-in ignores full name",
			in:   &emailRequest{Email: "a@x.com"},
		},
		{
			name: "missing fields",
			in:   &createAccountRequest{},
			fields: map[string]string{
				"fullName": "is required",
				"email":    "is required",
			},
		},
		{
			name: "bounds",
			in:   &createAccountRequest{FullName: "A", Email: "nope"},
			fields: map[string]string{
				"fullName": "must be at least 2 characters",
				"email":    "must be a valid email address",
			},
		},
		{
			name:   "otp length",
			in:     &otpForm{OTP: "12345"},
			fields: map[string]string{"otp": "must be exactly 6 characters"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(tc.in)
			if len(tc.fields) == 0 {
				assert.NoError(t, err)
				return
			}

			var errs domain.ValidationErrors
			require.True(t, errors.As(err, &errs), "got %v", err)
			assert.Len(t, errs, len(tc.fields))
			for field, msg := range tc.fields {
				assert.Equal(t, msg, errs.Field(field), field)
			}
		})
	}
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrNotFound, http.StatusNotFound, "not_found"},
		{fmt.Errorf("wrap: %w", domain.ErrUnauthorized), http.StatusUnauthorized, "unauthorized"},
		{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{domain.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
		{domain.ErrConflict, http.StatusConflict, "conflict"},
		{&domain.ValidationError{Field: "email", Message: "is required"}, http.StatusBadRequest, "validation_error"},
		{domain.ValidationErrors{{Field: "email", Message: "is required"}}, http.StatusBadRequest, "validation_error"},
		{echo.NewHTTPError(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed)},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		status, apiErr := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, apiErr.Code, tc.err.Error())
	}
}
