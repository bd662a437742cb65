package domain

import "time"

// SessionCookieName is the cookie holding the platform session secret.
const SessionCookieName = "appwrite-session"

// Session is a platform session issued after a successful OTP exchange.
type Session struct {
	ID      string    `json:"$id"`
	UserID  string    `json:"userId"`
	Secret  string    `json:"secret"`
	Expire  time.Time `json:"expire"`
	Current bool      `json:"current"`
}
