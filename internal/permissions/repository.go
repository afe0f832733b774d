package permissions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/platform/db"
)

// Repository defines persistence operations for the permission catalog.
type Repository interface {
	Ensure(ctx context.Context, p Permission) (Permission, error)
	GetByID(ctx context.Context, id int64) (Permission, error)
	GetByTriple(ctx context.Context, resource, action, scope string) (Permission, error)
	List(ctx context.Context) ([]Permission, error)
	Delete(ctx context.Context, id int64) ([]int64, error)
}

const permissionColumns = `id, resource, action, scope, display_name, description, created_at, updated_at`

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Ensure upserts a catalog entry on its identity triple. Re-registering an
// existing triple refreshes the metadata instead of failing.
func (r *PGRepository) Ensure(ctx context.Context, p Permission) (Permission, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO permissions (resource, action, scope, display_name, description)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (resource, action, scope)
		DO UPDATE SET display_name = EXCLUDED.display_name, description = EXCLUDED.description, updated_at = NOW()
		RETURNING `+permissionColumns,
		p.Resource, p.Action, p.Scope, p.DisplayName, p.Description)
	return scanPermission(row)
}

// GetByID fetches a catalog entry by id.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (Permission, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE id = $1`, id)
	return scanPermission(row)
}

// GetByTriple fetches a catalog entry by its identity triple.
func (r *PGRepository) GetByTriple(ctx context.Context, resource, action, scope string) (Permission, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+permissionColumns+` FROM permissions
		WHERE resource = $1 AND action = $2 AND scope = $3`, resource, action, scope)
	return scanPermission(row)
}

// List returns the full catalog ordered by resource, action, scope.
func (r *PGRepository) List(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+permissionColumns+` FROM permissions ORDER BY resource, action, scope`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// Delete removes a catalog entry and its role grants, returning the ids of
// users whose roles carried the permission so their contexts can be
// invalidated.
func (r *PGRepository) Delete(ctx context.Context, id int64) ([]int64, error) {
	var affected []int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT DISTINCT ur.user_id
			FROM user_roles ur
			JOIN role_permissions rp ON rp.role_id = ur.role_id
			WHERE rp.permission_id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var userID int64
			if err := rows.Scan(&userID); err != nil {
				return err
			}
			affected = append(affected, userID)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE permission_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return affected, nil
}

func scanPermission(row pgx.Row) (Permission, error) {
	var p Permission
	err := row.Scan(&p.ID, &p.Resource, &p.Action, &p.Scope, &p.DisplayName,
		&p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, ErrNotFound
		}
		return Permission{}, err
	}
	return p, nil
}

var _ Repository = (*PGRepository)(nil)
