// Package bootstrap seeds the system roles and permission catalog and
// applies the initial-role policy for new accounts.
package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/perm"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/permissions"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/roles"
)

// System role names created at first run.
const (
	RoleSuperAdmin = "superAdmin"
	RoleAdmin      = "admin"
	RoleUser       = "user"
)

type seedPermission struct {
	permission  string
	displayName string
}

var catalog = []seedPermission{
	{perm.Wildcard, "Everything"},
	{"role:read", "View roles"},
	{"role:create", "Create roles"},
	{"role:update", "Edit roles and hierarchy"},
	{"role:delete", "Delete roles"},
	{"permission:read", "View the permission catalog"},
	{"permission:manage", "Edit the permission catalog"},
	{"grant:manage", "Manage grants and assignments"},
	{"user:read:own", "View own account"},
	{"user:read:all", "View any account"},
	{"user:update:own", "Edit own account"},
	{"user:update:all", "Edit any account"},
	{"user:delete:all", "Delete any account"},
	{"audit:read", "View the audit trail"},
	{"system:admin", "Administer the system"},
}

var adminGrants = []string{
	"role:read", "role:create", "role:update", "role:delete",
	"permission:read", "permission:manage", "grant:manage",
	"user:read:all", "user:update:all", "user:delete:all",
	"audit:read",
}

var userGrants = []string{"user:read:own", "user:update:own"}

// Granter links permissions to roles.
type Granter interface {
	AssignPermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
}

// Seeder creates the system roles and permission catalog. Every step is
// idempotent, so it runs unconditionally at startup.
type Seeder struct {
	logger      *slog.Logger
	roles       roles.Repository
	permissions permissions.Repository
	grants      Granter
}

// NewSeeder builds a Seeder instance.
func NewSeeder(logger *slog.Logger, roleRepo roles.Repository, permRepo permissions.Repository, grants Granter) *Seeder {
	return &Seeder{logger: logger, roles: roleRepo, permissions: permRepo, grants: grants}
}

// Run seeds roles, the catalog and the system grant sets. superAdmin holds
// the universal grant, admin descends from superAdmin and carries the
// management set, user is an independent root with self-service grants.
func (s *Seeder) Run(ctx context.Context) error {
	byString := make(map[string]int64, len(catalog))
	for _, entry := range catalog {
		parsed, err := perm.Parse(entry.permission)
		if err != nil {
			return err
		}
		stored, err := s.permissions.Ensure(ctx, permissions.Permission{
			Resource:    parsed.Resource,
			Action:      parsed.Action,
			Scope:       parsed.Scope,
			DisplayName: entry.displayName,
		})
		if err != nil {
			return err
		}
		byString[parsed.String()] = stored.ID
	}

	superAdmin, err := s.ensureRole(ctx, RoleSuperAdmin, "Super Administrator", nil, 0)
	if err != nil {
		return err
	}
	admin, err := s.ensureRole(ctx, RoleAdmin, "Administrator", &superAdmin.ID, superAdmin.Level+1)
	if err != nil {
		return err
	}
	defaultRole, err := s.ensureRole(ctx, RoleUser, "User", nil, 0)
	if err != nil {
		return err
	}

	if err := s.grantSet(ctx, superAdmin.ID, []string{perm.Wildcard}, byString); err != nil {
		return err
	}
	if err := s.grantSet(ctx, admin.ID, adminGrants, byString); err != nil {
		return err
	}
	if err := s.grantSet(ctx, defaultRole.ID, userGrants, byString); err != nil {
		return err
	}

	s.logger.Info("bootstrap seed complete",
		slog.Int("permissions", len(catalog)),
		slog.Int64("super_admin_role", superAdmin.ID))
	return nil
}

func (s *Seeder) ensureRole(ctx context.Context, name, displayName string, parentID *int64, level int) (roles.Role, error) {
	existing, err := s.roles.GetByName(ctx, name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, roles.ErrNotFound) {
		return roles.Role{}, err
	}
	return s.roles.Create(ctx, roles.Role{
		Name:        name,
		DisplayName: displayName,
		ParentID:    parentID,
		Level:       level,
		IsSystem:    true,
	})
}

func (s *Seeder) grantSet(ctx context.Context, roleID int64, grantStrings []string, byString map[string]int64) error {
	ids := make([]int64, 0, len(grantStrings))
	for _, g := range grantStrings {
		id, ok := byString[g]
		if !ok {
			return errors.New("bootstrap: grant refers to unseeded permission " + g)
		}
		ids = append(ids, id)
	}
	return s.grants.AssignPermissions(ctx, roleID, ids)
}
