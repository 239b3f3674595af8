package model

import "time"

// User represents an application user record as stored in the `users` table.
// Password and RefreshToken never leave the process: they are skipped by the
// JSON encoder, which also keeps them out of cached snapshots.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Username     – unique login name.
//	Email        – unique email address; subject of every issued token.
//	Password     – bcrypt hashed password.
//	RefreshToken – the single live refresh token, nil when no session is active.
//	Avatar       – URL of the profile picture.
//	Confirmed    – whether the email address has been verified.
type User struct {
	ID           uint64    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Password     string    `json:"-"`
	RefreshToken *string   `json:"-"`
	Avatar       string    `json:"avatar"`
	Confirmed    bool      `json:"confirmed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasSession reports whether a refresh token is currently stored.
func (u User) HasSession() bool {
	return u.RefreshToken != nil && *u.RefreshToken != ""
}
