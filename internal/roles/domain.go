package roles

import (
	"errors"
	"time"
)

// Sentinel errors for hierarchy operations.
var (
	// ErrNotFound indicates the referenced role does not exist.
	ErrNotFound = errors.New("roles: not found")
	// ErrCycleDetected indicates a parent change would make a role its own
	// ancestor, directly or transitively.
	ErrCycleDetected = errors.New("roles: cycle detected")
	// ErrSystemRole indicates an attempt to delete or re-parent a system role.
	ErrSystemRole = errors.New("roles: system role protected")
)

// Role is a named grouping of permissions with an optional single parent.
// Roles form a forest: a role inherits every permission of its ancestors.
// Level is derived, 0 for a root and parent.Level+1 otherwise, and is
// recomputed whenever the parent changes.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description"`
	ParentID    *int64    `json:"parent_id,omitempty"`
	Level       int       `json:"level"`
	IsSystem    bool      `json:"is_system"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
