package grants

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/perm"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/permissions"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/platform/db"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/roles"
)

// Repository defines persistence for role-permission and user-role links.
type Repository interface {
	AssignPermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	ReplacePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	RemovePermission(ctx context.Context, roleID, permissionID int64) error
	PermissionsForRole(ctx context.Context, roleID int64) ([]permissions.Permission, error)
	PermissionsForRoles(ctx context.Context, roleIDs []int64) ([]perm.Permission, error)

	UsersAffectedByRole(ctx context.Context, roleID int64) ([]int64, error)

	AssignRole(ctx context.Context, userID, roleID int64) error
	RemoveRole(ctx context.Context, userID, roleID int64) error
	RolesForUser(ctx context.Context, userID int64) ([]roles.Role, error)
	ListUserRoles(ctx context.Context, userID int64) ([]HeldRole, error)
	UsersHoldingRole(ctx context.Context, roleID int64) ([]int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// AssignPermissions grants permissions to a role. Already-granted pairs are
// skipped, so the call is idempotent.
func (r *PGRepository) AssignPermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, pid := range permissionIDs {
			_, err := tx.Exec(ctx, `
				INSERT INTO role_permissions (role_id, permission_id)
				VALUES ($1, $2)
				ON CONFLICT (role_id, permission_id) DO NOTHING`, roleID, pid)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplacePermissions swaps a role's full permission set in one transaction.
func (r *PGRepository) ReplacePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		for _, pid := range permissionIDs {
			_, err := tx.Exec(ctx, `
				INSERT INTO role_permissions (role_id, permission_id)
				VALUES ($1, $2)
				ON CONFLICT (role_id, permission_id) DO NOTHING`, roleID, pid)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// RemovePermission revokes one permission from a role. Removing an absent
// grant is a no-op.
func (r *PGRepository) RemovePermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`, roleID, permissionID)
	return err
}

// PermissionsForRole returns the catalog entries directly granted to a role.
func (r *PGRepository) PermissionsForRole(ctx context.Context, roleID int64) ([]permissions.Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.resource, p.action, p.scope, p.display_name, p.description, p.created_at, p.updated_at
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.resource, p.action, p.scope`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []permissions.Permission
	for rows.Next() {
		var p permissions.Permission
		if err := rows.Scan(&p.ID, &p.Resource, &p.Action, &p.Scope, &p.DisplayName,
			&p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// PermissionsForRoles returns the distinct permission triples granted to any
// of the given roles, for closure resolution.
func (r *PGRepository) PermissionsForRoles(ctx context.Context, roleIDs []int64) ([]perm.Permission, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT p.resource, p.action, p.scope
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = ANY($1)`, roleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []perm.Permission
	for rows.Next() {
		var p perm.Permission
		if err := rows.Scan(&p.Resource, &p.Action, &p.Scope); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// UsersAffectedByRole returns the ids of users holding a role or any role
// descending from it. Descendants inherit the role's grants, so their holders
// see a different effective permission set when the role's grants change.
func (r *PGRepository) UsersAffectedByRole(ctx context.Context, roleID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		WITH RECURSIVE subtree AS (
			SELECT id FROM roles WHERE id = $1
			UNION ALL
			SELECT r.id FROM roles r JOIN subtree ON r.parent_id = subtree.id
		)
		SELECT DISTINCT ur.user_id
		FROM user_roles ur
		JOIN subtree ON subtree.id = ur.role_id`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []int64
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		result = append(result, userID)
	}
	return result, rows.Err()
}

// AssignRole grants a role to a user. Re-assigning is a no-op.
func (r *PGRepository) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role_id) DO NOTHING`, userID, roleID)
	return err
}

// RemoveRole revokes a role from a user. Removing an absent assignment is a
// no-op.
func (r *PGRepository) RemoveRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	return err
}

// RolesForUser returns the roles directly assigned to a user.
func (r *PGRepository) RolesForUser(ctx context.Context, userID int64) ([]roles.Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.name, r.display_name, r.description, r.parent_id, r.level, r.is_system, r.created_at, r.updated_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.level, r.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []roles.Role
	for rows.Next() {
		var role roles.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.DisplayName, &role.Description,
			&role.ParentID, &role.Level, &role.IsSystem, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, role)
	}
	return result, rows.Err()
}

// ListUserRoles returns a user's role assignments with their grant timestamps.
func (r *PGRepository) ListUserRoles(ctx context.Context, userID int64) ([]HeldRole, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.name, r.display_name, r.description, r.parent_id, r.level, r.is_system, r.created_at, r.updated_at, ur.assigned_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY ur.assigned_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []HeldRole
	for rows.Next() {
		var held HeldRole
		if err := rows.Scan(&held.Role.ID, &held.Role.Name, &held.Role.DisplayName, &held.Role.Description,
			&held.Role.ParentID, &held.Role.Level, &held.Role.IsSystem, &held.Role.CreatedAt,
			&held.Role.UpdatedAt, &held.AssignedAt); err != nil {
			return nil, err
		}
		result = append(result, held)
	}
	return result, rows.Err()
}

// UsersHoldingRole returns the ids of users directly assigned a role.
func (r *PGRepository) UsersHoldingRole(ctx context.Context, roleID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id FROM user_roles WHERE role_id = $1`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []int64
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		result = append(result, userID)
	}
	return result, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
