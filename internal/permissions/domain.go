package permissions

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the referenced permission does not exist.
	ErrNotFound = errors.New("permissions: not found")
)

// Permission is a catalog entry identified by its (resource, action, scope)
// triple. Display name and description are metadata and do not participate
// in identity.
type Permission struct {
	ID          int64     `json:"id"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	Scope       string    `json:"scope"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
