package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sumire/storeit/internal/domain"
	"github.com/sumire/storeit/internal/service"
)

func setSessionCookie(c echo.Context, session *domain.Session) {
	cookie := &http.Cookie{
		Name:     domain.SessionCookieName,
		Value:    session.Secret,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
	if !session.Expire.IsZero() {
		cookie.Expires = session.Expire
	}
	c.SetCookie(cookie)
}

func clearCookie(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

func setChallengeCookie(c echo.Context, value string, ttl time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     service.ChallengeCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

func cookieValue(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
