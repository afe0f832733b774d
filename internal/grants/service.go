package grants

import (
	"context"
	"errors"
	"strconv"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/permissions"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/roles"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/shared"
)

// Invalidator clears cached permission contexts after association mutations.
type Invalidator interface {
	Invalidate(ctx context.Context, userID int64) error
}

// RoleSource verifies that referenced roles exist.
type RoleSource interface {
	GetByID(ctx context.Context, id int64) (roles.Role, error)
}

// PermissionSource verifies that referenced catalog entries exist.
type PermissionSource interface {
	GetByID(ctx context.Context, id int64) (permissions.Permission, error)
}

// Service handles role-permission grants and user-role assignments.
// Permission mutations on a role invalidate the cached context of every user
// holding it directly or through a descendant role; assignment mutations
// invalidate only the affected user.
type Service struct {
	repo        Repository
	roles       RoleSource
	permissions PermissionSource
	cache       Invalidator
	audit       *shared.AuditLogger
}

// NewService builds a Service instance. Cache and audit may be nil in tests.
func NewService(repo Repository, roleSource RoleSource, permSource PermissionSource, cache Invalidator, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, roles: roleSource, permissions: permSource, cache: cache, audit: audit}
}

// GrantPermissions adds permissions to a role. Duplicate grants are skipped.
func (s *Service) GrantPermissions(ctx context.Context, actorID, roleID int64, permissionIDs []int64) error {
	if err := s.checkRole(ctx, roleID); err != nil {
		return err
	}
	for _, pid := range permissionIDs {
		if err := s.checkPermission(ctx, pid); err != nil {
			return err
		}
	}
	if err := s.repo.AssignPermissions(ctx, roleID, permissionIDs); err != nil {
		return err
	}
	s.invalidateHolders(ctx, roleID)
	s.record(ctx, actorID, "grant.permissions_added", "role", roleID, map[string]any{"permission_ids": permissionIDs})
	return nil
}

// ReplacePermissions swaps a role's full permission set.
func (s *Service) ReplacePermissions(ctx context.Context, actorID, roleID int64, permissionIDs []int64) error {
	if err := s.checkRole(ctx, roleID); err != nil {
		return err
	}
	for _, pid := range permissionIDs {
		if err := s.checkPermission(ctx, pid); err != nil {
			return err
		}
	}
	if err := s.repo.ReplacePermissions(ctx, roleID, permissionIDs); err != nil {
		return err
	}
	s.invalidateHolders(ctx, roleID)
	s.record(ctx, actorID, "grant.permissions_replaced", "role", roleID, map[string]any{"permission_ids": permissionIDs})
	return nil
}

// RevokePermission removes one permission from a role. Revoking an absent
// grant succeeds without effect.
func (s *Service) RevokePermission(ctx context.Context, actorID, roleID, permissionID int64) error {
	if err := s.checkRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.repo.RemovePermission(ctx, roleID, permissionID); err != nil {
		return err
	}
	s.invalidateHolders(ctx, roleID)
	s.record(ctx, actorID, "grant.permission_revoked", "role", roleID, map[string]any{"permission_id": permissionID})
	return nil
}

// RolePermissions lists the catalog entries directly granted to a role.
func (s *Service) RolePermissions(ctx context.Context, roleID int64) ([]permissions.Permission, error) {
	if err := s.checkRole(ctx, roleID); err != nil {
		return nil, err
	}
	return s.repo.PermissionsForRole(ctx, roleID)
}

// AssignRole grants a role to a user. Re-assigning is a no-op.
func (s *Service) AssignRole(ctx context.Context, actorID, userID, roleID int64) error {
	if err := s.checkRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.repo.AssignRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	s.record(ctx, actorID, "grant.role_assigned", "user", userID, map[string]any{"role_id": roleID})
	return nil
}

// RemoveRole revokes a role from a user. Removing an absent assignment
// succeeds without effect.
func (s *Service) RemoveRole(ctx context.Context, actorID, userID, roleID int64) error {
	if err := s.repo.RemoveRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	s.record(ctx, actorID, "grant.role_removed", "user", userID, map[string]any{"role_id": roleID})
	return nil
}

// UserRoles lists a user's role assignments.
func (s *Service) UserRoles(ctx context.Context, userID int64) ([]HeldRole, error) {
	return s.repo.ListUserRoles(ctx, userID)
}

func (s *Service) checkRole(ctx context.Context, roleID int64) error {
	if s.roles == nil {
		return nil
	}
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		if errors.Is(err, roles.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Service) checkPermission(ctx context.Context, permissionID int64) error {
	if s.permissions == nil {
		return nil
	}
	if _, err := s.permissions.GetByID(ctx, permissionID); err != nil {
		if errors.Is(err, permissions.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, userID int64) {
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, userID)
	}
}

func (s *Service) invalidateHolders(ctx context.Context, roleID int64) {
	if s.cache == nil {
		return
	}
	holders, err := s.repo.UsersAffectedByRole(ctx, roleID)
	if err != nil {
		return
	}
	for _, userID := range holders {
		_ = s.cache.Invalidate(ctx, userID)
	}
}

func (s *Service) record(ctx context.Context, actorID int64, action, entity string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	})
}
