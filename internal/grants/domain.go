package grants

import (
	"errors"
	"time"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/roles"
)

var (
	// ErrNotFound indicates a referenced role, permission or user is missing.
	ErrNotFound = errors.New("grants: not found")
)

// RolePermission links a permission to a role.
type RolePermission struct {
	RoleID       int64     `json:"role_id"`
	PermissionID int64     `json:"permission_id"`
	GrantedAt    time.Time `json:"granted_at"`
}

// HeldRole is a role assignment as seen from the user side.
type HeldRole struct {
	Role       roles.Role `json:"role"`
	AssignedAt time.Time  `json:"assigned_at"`
}
