package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/storeit/internal/backend"
	"github.com/sumire/storeit/internal/domain"
	"github.com/sumire/storeit/internal/service"
)

// AuthHandler exposes the auth actions as JSON endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type emailRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

type createAccountRequest struct {
	FullName string `json:"fullName" form:"fullName" validate:"required,min=2,max=50"`
	Email    string `json:"email" form:"email" validate:"required,email"`
}

type verifyRequest struct {
	AccountID string `json:"accountId" validate:"required"`
	OTP       string `json:"otp" validate:"required,len=6"`
}

type verifyResponse struct {
	SessionID string `json:"sessionId"`
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.ErrInvalidInput
	}
	return c.Validate(req)
}

// CreateAccount sends a sign-up code and creates the user if needed.
func (h *AuthHandler) CreateAccount(c echo.Context) error {
	var req createAccountRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.auth.CreateAccount(c.Request().Context(), service.CreateAccountInput{
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, res)
}

// SendEmailOTP sends a fresh code to an email.
func (h *AuthHandler) SendEmailOTP(c echo.Context) error {
	var req emailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	accountID, err := h.auth.SendEmailOTP(c.Request().Context(), req.Email)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, service.AccountResult{AccountID: accountID})
}

// VerifySecret exchanges a code for a session and stores it as the session cookie.
func (h *AuthHandler) VerifySecret(c echo.Context) error {
	var req verifyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.auth.VerifySecret(c.Request().Context(), service.VerifyInput{
		AccountID: req.AccountID,
		OTP:       req.OTP,
	})
	if err != nil {
		return err
	}

	setSessionCookie(c, session)
	return JSON(c, http.StatusOK, verifyResponse{SessionID: session.ID})
}

// SignIn sends a sign-in code to a registered email. Unknown emails are
// reported in the body, not as an error status.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req emailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.auth.SignInUser(c.Request().Context(), req.Email)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, res)
}

// Me returns the signed-in user, or null.
func (h *AuthHandler) Me(c echo.Context) error {
	user := h.auth.GetCurrentUser(c.Request().Context(), backend.SessionSecret(c.Request()))
	return JSON(c, http.StatusOK, user)
}

// SignOut ends the session and always redirects to the sign-in page.
func (h *AuthHandler) SignOut(c echo.Context) error {
	h.auth.SignOutUser(c.Request().Context(), backend.SessionSecret(c.Request()))
	clearCookie(c, domain.SessionCookieName)
	return c.Redirect(http.StatusSeeOther, "/sign-in")
}
