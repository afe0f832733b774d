package roles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/platform/db"
)

// Repository defines persistence operations for roles.
type Repository interface {
	Create(ctx context.Context, role Role) (Role, error)
	GetByID(ctx context.Context, id int64) (Role, error)
	GetByName(ctx context.Context, name string) (Role, error)
	List(ctx context.Context) ([]Role, error)
	Update(ctx context.Context, role Role) (Role, error)
	UpdateParent(ctx context.Context, id int64, parentID *int64, level int) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

const roleColumns = `id, name, display_name, description, parent_id, level, is_system, created_at, updated_at`

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts a new role.
func (r *PGRepository) Create(ctx context.Context, role Role) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, display_name, description, parent_id, level, is_system)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+roleColumns,
		role.Name, role.DisplayName, role.Description, role.ParentID, role.Level, role.IsSystem)
	return scanRole(row)
}

// GetByID fetches a role by id.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	return scanRole(row)
}

// GetByName fetches a role by its unique name.
func (r *PGRepository) GetByName(ctx context.Context, name string) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = $1`, name)
	return scanRole(row)
}

// List returns all roles ordered by level then name.
func (r *PGRepository) List(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY level, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, role)
	}
	return result, rows.Err()
}

// Update renames or redescribes a role. Hierarchy fields are untouched.
func (r *PGRepository) Update(ctx context.Context, role Role) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE roles SET name = $2, display_name = $3, description = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+roleColumns,
		role.ID, role.Name, role.DisplayName, role.Description)
	return scanRole(row)
}

// UpdateParent moves a role under a new parent and recomputes derived levels
// for the role and all of its descendants in one transaction, so a concurrent
// reader never observes a mixed hierarchy.
func (r *PGRepository) UpdateParent(ctx context.Context, id int64, parentID *int64, level int) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE roles SET parent_id = $2, level = $3, updated_at = NOW() WHERE id = $1`, id, parentID, level)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		_, err = tx.Exec(ctx, `
			WITH RECURSIVE subtree AS (
				SELECT id, level FROM roles WHERE id = $1
				UNION ALL
				SELECT r.id, subtree.level + 1 FROM roles r JOIN subtree ON r.parent_id = subtree.id
			)
			UPDATE roles SET level = subtree.level, updated_at = NOW()
			FROM subtree
			WHERE roles.id = subtree.id AND roles.id <> $1`, id)
		return err
	})
}

// Delete removes a role and cascades its permission and user associations.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE role_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Count returns the total number of roles.
func (r *PGRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM roles`).Scan(&count)
	return count, err
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.DisplayName, &role.Description,
		&role.ParentID, &role.Level, &role.IsSystem, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

var _ Repository = (*PGRepository)(nil)
