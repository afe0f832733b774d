package auth

import (
	"errors"
	"time"
)

// ErrEmailTaken indicates a signup with an already-registered email.
var ErrEmailTaken = errors.New("auth: email already registered")

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	DisplayName  string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
