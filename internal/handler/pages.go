package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/storeit/internal/backend"
	"github.com/sumire/storeit/internal/domain"
	"github.com/sumire/storeit/internal/service"
)

const (
	msgCreateAccountFailed = "Failed to create account"
	msgSignInFailed        = "Failed to sign in"
)

// PageHandler serves the server-rendered auth form, OTP modal and home page.
type PageHandler struct {
	auth       *service.AuthService
	challenges *service.ChallengeSigner
	log        *slog.Logger
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(auth *service.AuthService, challenges *service.ChallengeSigner, logger *slog.Logger) *PageHandler {
	return &PageHandler{auth: auth, challenges: challenges, log: logger}
}

type authFormPage struct {
	Title    string
	Action   string
	SignUp   bool
	FullName string
	Email    string
	Errors   domain.ValidationErrors
	Message  string
}

type otpModalPage struct {
	Title  string
	Email  string
	Errors domain.ValidationErrors
}

type homePage struct {
	Title string
	User  *domain.User
}

type otpForm struct {
	OTP string `form:"otp" validate:"required,len=6"`
}

func signInPage() authFormPage {
	return authFormPage{Title: "Sign In", Action: "/sign-in"}
}

func signUpPage() authFormPage {
	return authFormPage{Title: "Sign Up", Action: "/sign-up", SignUp: true}
}

// SignInForm renders the sign-in form.
func (h *PageHandler) SignInForm(c echo.Context) error {
	return c.Render(http.StatusOK, tmplAuthForm, signInPage())
}

// SignUpForm renders the sign-up form.
func (h *PageHandler) SignUpForm(c echo.Context) error {
	return c.Render(http.StatusOK, tmplAuthForm, signUpPage())
}

// SubmitSignUp validates the sign-up form and sends the code.
func (h *PageHandler) SubmitSignUp(c echo.Context) error {
	page := signUpPage()

	var form createAccountRequest
	if err := c.Bind(&form); err != nil {
		page.Message = msgCreateAccountFailed
		return c.Render(http.StatusBadRequest, tmplAuthForm, page)
	}
	page.FullName, page.Email = form.FullName, form.Email

	if errs, ok := validationErrors(c.Validate(&form)); !ok {
		page.Errors = errs
		return c.Render(http.StatusUnprocessableEntity, tmplAuthForm, page)
	}

	res, err := h.auth.CreateAccount(c.Request().Context(), service.CreateAccountInput{
		FullName: form.FullName,
		Email:    form.Email,
	})
	if err != nil {
		page.Message = msgCreateAccountFailed
		return c.Render(http.StatusOK, tmplAuthForm, page)
	}

	return h.startChallenge(c, service.Challenge{AccountID: res.AccountID, Email: form.Email})
}

// SubmitSignIn validates the sign-in form and sends the code.
func (h *PageHandler) SubmitSignIn(c echo.Context) error {
	page := signInPage()

	var form emailRequest
	if err := c.Bind(&form); err != nil {
		page.Message = msgSignInFailed
		return c.Render(http.StatusBadRequest, tmplAuthForm, page)
	}
	page.Email = form.Email

	if errs, ok := validationErrors(c.Validate(&form)); !ok {
		page.Errors = errs
		return c.Render(http.StatusUnprocessableEntity, tmplAuthForm, page)
	}

	res, err := h.auth.SignInUser(c.Request().Context(), form.Email)
	if err != nil {
		page.Message = msgSignInFailed
		return c.Render(http.StatusOK, tmplAuthForm, page)
	}
	if res.AccountID == nil {
		page.Message = res.Error
		return c.Render(http.StatusOK, tmplAuthForm, page)
	}

	return h.startChallenge(c, service.Challenge{AccountID: *res.AccountID, Email: form.Email})
}

// OTPModal renders the code entry dialog for the pending challenge.
func (h *PageHandler) OTPModal(c echo.Context) error {
	ch, err := h.challenge(c)
	if err != nil {
		return c.Redirect(http.StatusSeeOther, "/sign-in")
	}
	return c.Render(http.StatusOK, tmplOTPModal, otpModalPage{Title: "Verify", Email: ch.Email})
}

// SubmitOTP verifies the code. Failures are logged and the dialog is shown
// again without an error message.
func (h *PageHandler) SubmitOTP(c echo.Context) error {
	ch, err := h.challenge(c)
	if err != nil {
		return c.Redirect(http.StatusSeeOther, "/sign-in")
	}
	page := otpModalPage{Title: "Verify", Email: ch.Email}

	var form otpForm
	if err := c.Bind(&form); err != nil {
		return c.Render(http.StatusBadRequest, tmplOTPModal, page)
	}
	if errs, ok := validationErrors(c.Validate(&form)); !ok {
		page.Errors = errs
		return c.Render(http.StatusUnprocessableEntity, tmplOTPModal, page)
	}

	session, err := h.auth.VerifySecret(c.Request().Context(), service.VerifyInput{
		AccountID: ch.AccountID,
		OTP:       form.OTP,
	})
	if err != nil || session.ID == "" {
		h.log.InfoContext(c.Request().Context(), "failed to verify OTP", "account_id", ch.AccountID, "challenge_id", ch.ID)
		return c.Render(http.StatusOK, tmplOTPModal, page)
	}

	setSessionCookie(c, session)
	clearCookie(c, service.ChallengeCookieName)
	return c.Redirect(http.StatusSeeOther, "/")
}

// ResendOTP sends a new code for the pending challenge. There is no cooldown.
func (h *PageHandler) ResendOTP(c echo.Context) error {
	ch, err := h.challenge(c)
	if err != nil {
		return c.Redirect(http.StatusSeeOther, "/sign-in")
	}

	accountID, err := h.auth.SendEmailOTP(c.Request().Context(), ch.Email)
	if err != nil {
		return c.Render(http.StatusOK, tmplOTPModal, otpModalPage{Title: "Verify", Email: ch.Email})
	}

	return h.startChallenge(c, service.Challenge{AccountID: accountID, Email: ch.Email})
}

// Home shows the signed-in user, or sends guests to the sign-in page.
func (h *PageHandler) Home(c echo.Context) error {
	user := h.auth.GetCurrentUser(c.Request().Context(), backend.SessionSecret(c.Request()))
	if user == nil {
		return c.Redirect(http.StatusSeeOther, "/sign-in")
	}
	return c.Render(http.StatusOK, tmplHome, homePage{Title: "Home", User: user})
}

func (h *PageHandler) startChallenge(c echo.Context, ch service.Challenge) error {
	token, err := h.challenges.Sign(ch)
	if err != nil {
		return err
	}
	setChallengeCookie(c, token, h.challenges.TTL())
	return c.Redirect(http.StatusSeeOther, "/verify")
}

func (h *PageHandler) challenge(c echo.Context) (*service.Challenge, error) {
	return h.challenges.Parse(cookieValue(c, service.ChallengeCookieName))
}

// validationErrors reports whether err is nil, and the field errors it carries
// otherwise.
func validationErrors(err error) (domain.ValidationErrors, bool) {
	if err == nil {
		return nil, true
	}
	var errs domain.ValidationErrors
	if errors.As(err, &errs) {
		return errs, false
	}
	return domain.ValidationErrors{{Field: "form", Message: err.Error()}}, false
}
