package users

import (
	"errors"
	"time"
)

// ErrNotFound indicates the referenced user does not exist.
var ErrNotFound = errors.New("users: not found")

// User is the directory view of an account, without credentials.
type User struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
