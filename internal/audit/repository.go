package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Query is the repository-level shape of a timeline lookup. Offset and Limit
// are applied verbatim; Limit <= 0 means no limit.
type Query struct {
	From    time.Time
	To      time.Time
	ActorID int64
	Entity  string
	Action  string
	Offset  int
	Limit   int
}

// Repository reads entries from the audit_logs table.
type Repository interface {
	Window(ctx context.Context, q Query) ([]Entry, error)
}

// PGRepository implements Repository against postgres.
type PGRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PGRepository)(nil)

// NewRepository returns a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Window returns entries matching the query, most recent first.
func (r *PGRepository) Window(ctx context.Context, q Query) ([]Entry, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT actor_id, action, entity, entity_id, meta, occurred_at FROM audit_logs WHERE TRUE`)
	var args []any
	if !q.From.IsZero() {
		args = append(args, q.From)
		fmt.Fprintf(&sb, " AND occurred_at >= $%d", len(args))
	}
	if !q.To.IsZero() {
		args = append(args, q.To)
		fmt.Fprintf(&sb, " AND occurred_at <= $%d", len(args))
	}
	if q.ActorID > 0 {
		args = append(args, q.ActorID)
		fmt.Fprintf(&sb, " AND actor_id = $%d", len(args))
	}
	if q.Entity != "" {
		args = append(args, q.Entity)
		fmt.Fprintf(&sb, " AND entity = $%d", len(args))
	}
	if q.Action != "" {
		args = append(args, q.Action)
		fmt.Fprintf(&sb, " AND action = $%d", len(args))
	}
	sb.WriteString(" ORDER BY occurred_at DESC")
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var entry Entry
		var metaJSON []byte
		if err := rows.Scan(&entry.ActorID, &entry.Action, &entry.Entity, &entry.EntityID, &metaJSON, &entry.At); err != nil {
			return nil, err
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &entry.Meta); err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
