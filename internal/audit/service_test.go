package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	entries []Entry
	lastQ   Query
}

func (m *memoryRepo) Window(_ context.Context, q Query) ([]Entry, error) {
	m.lastQ = q
	rows := make([]Entry, 0, len(m.entries))
	for _, entry := range m.entries {
		if q.ActorID > 0 && entry.ActorID != q.ActorID {
			continue
		}
		if q.Entity != "" && entry.Entity != q.Entity {
			continue
		}
		if q.Action != "" && entry.Action != q.Action {
			continue
		}
		rows = append(rows, entry)
	}
	if q.Offset > 0 {
		if q.Offset >= len(rows) {
			return nil, nil
		}
		rows = rows[q.Offset:]
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

func seedEntries(n int) []Entry {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, Entry{
			At:       base.Add(time.Duration(i) * time.Minute),
			ActorID:  int64(i%2 + 1),
			Action:   "role.created",
			Entity:   "role",
			EntityID: "42",
		})
	}
	return entries
}

func TestTimelinePaging(t *testing.T) {
	repo := &memoryRepo{entries: seedEntries(25)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), Filters{})
	require.NoError(t, err)
	require.Len(t, result.Rows, 20)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 1, result.Paging.Page)
	require.Equal(t, 21, repo.lastQ.Limit)

	result, err = svc.Timeline(context.Background(), Filters{Page: 2})
	require.NoError(t, err)
	require.Len(t, result.Rows, 5)
	require.False(t, result.Paging.HasNext)
	require.Equal(t, 20, repo.lastQ.Offset)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &memoryRepo{entries: seedEntries(60)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), Filters{PageSize: 500})
	require.NoError(t, err)
	require.Len(t, result.Rows, 50)
	require.Equal(t, 50, result.Paging.PageSize)
}

func TestTimelineEmptyPageIsNotNil(t *testing.T) {
	svc := NewService(&memoryRepo{})

	result, err := svc.Timeline(context.Background(), Filters{})
	require.NoError(t, err)
	require.NotNil(t, result.Rows)
	require.Empty(t, result.Rows)
}

func TestTimelineFiltersForwarded(t *testing.T) {
	repo := &memoryRepo{entries: seedEntries(4)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), Filters{ActorID: 1, Entity: "role", Action: "role.created"})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	require.Equal(t, int64(1), repo.lastQ.ActorID)
	require.Equal(t, "role", repo.lastQ.Entity)
}

func TestExportSkipsPaging(t *testing.T) {
	repo := &memoryRepo{entries: seedEntries(25)}
	svc := NewService(repo)

	rows, err := svc.Export(context.Background(), Filters{Page: 3, PageSize: 5})
	require.NoError(t, err)
	require.Len(t, rows, 25)
	require.Zero(t, repo.lastQ.Limit)
	require.Zero(t, repo.lastQ.Offset)
}

func TestWriteCSV(t *testing.T) {
	entries := []Entry{{
		At:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ActorID:  7,
		Action:   "grant.assigned",
		Entity:   "role",
		EntityID: "3",
		Meta:     map[string]any{"permission": "user:read:all"},
	}}

	out, err := WriteCSV(entries)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "at,actor_id,action,entity,entity_id,meta", lines[0])
	require.Contains(t, lines[1], "2026-03-01T12:00:00Z")
	require.Contains(t, lines[1], "grant.assigned")
	require.Contains(t, lines[1], "user:read:all")
}
