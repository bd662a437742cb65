package domain

import "time"

// User is the profile document stored for every account that completed sign-up.
// The document lives in the platform's users collection; AccountID links it to
// the platform identity that owns the session.
type User struct {
	ID        string    `json:"$id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	AccountID string    `json:"accountId"`
	CreatedAt time.Time `json:"$createdAt"`
	UpdatedAt time.Time `json:"$updatedAt"`
}

// NewUser is the payload written when a user document is created.
type NewUser struct {
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar"`
	AccountID string `json:"accountId"`
}
