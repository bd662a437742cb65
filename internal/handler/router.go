package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sumire/storeit/internal/service"
)

// RouterConfig holds what NewRouter needs besides the services.
type RouterConfig struct {
	FrontendURL string
	Logger      *slog.Logger
}

// NewRouter builds the echo instance serving the pages and the JSON API.
func NewRouter(auth *service.AuthService, challenges *service.ChallengeSigner, cfg RouterConfig) (*echo.Echo, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	renderer, err := NewTemplateRenderer()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewAppValidator()
	e.Renderer = renderer
	e.HTTPErrorHandler = HTTPErrorHandler

	e.Use(middleware.RequestID())
	e.Use(RequestLogger(logger))
	e.Use(middleware.Recover())
	if cfg.FrontendURL != "" {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     []string{cfg.FrontendURL},
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderAccept, echo.HeaderContentType},
			ExposeHeaders:    []string{echo.HeaderXRequestID},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/ready", func(c echo.Context) error {
		if err := auth.Ready(c.Request().Context()); err != nil {
			logger.ErrorContext(c.Request().Context(), "readiness check failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	authHandler := NewAuthHandler(auth)
	api := e.Group("/api/v1/auth", NoStore)
	api.POST("/accounts", authHandler.CreateAccount)
	api.POST("/otp", authHandler.SendEmailOTP)
	api.POST("/sessions", authHandler.VerifySecret)
	api.POST("/sign-in", authHandler.SignIn)
	api.GET("/me", authHandler.Me)
	api.POST("/sign-out", authHandler.SignOut)

	pages := NewPageHandler(auth, challenges, logger)
	e.GET("/", pages.Home, NoStore)
	e.GET("/sign-in", pages.SignInForm, NoStore)
	e.POST("/sign-in", pages.SubmitSignIn, NoStore)
	e.GET("/sign-up", pages.SignUpForm, NoStore)
	e.POST("/sign-up", pages.SubmitSignUp, NoStore)
	e.GET("/verify", pages.OTPModal, NoStore)
	e.POST("/verify", pages.SubmitOTP, NoStore)
	e.POST("/verify/resend", pages.ResendOTP, NoStore)
	e.POST("/sign-out", authHandler.SignOut, NoStore)

	return e, nil
}
