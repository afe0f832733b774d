package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type fakeSessionPruner struct {
	pruned int64
	err    error
	called bool
}

func (f *fakeSessionPruner) DeleteExpiredSessions(context.Context, time.Time) (int64, error) {
	f.called = true
	return f.pruned, f.err
}

type fakeAuditPruner struct {
	olderThan time.Duration
	err       error
	called    bool
}

func (f *fakeAuditPruner) Cleanup(_ context.Context, olderThan time.Duration) error {
	f.called = true
	f.olderThan = olderThan
	return f.err
}

func TestSessionCleanupHandle(t *testing.T) {
	pruner := &fakeSessionPruner{pruned: 3}
	job := NewSessionCleanupJob(pruner, slog.Default(), nil)

	err := job.Handle(context.Background(), NewSessionCleanupTask())
	require.NoError(t, err)
	require.True(t, pruner.called)
}

func TestSessionCleanupPropagatesError(t *testing.T) {
	wantErr := errors.New("pg down")
	job := NewSessionCleanupJob(&fakeSessionPruner{err: wantErr}, slog.Default(), nil)

	err := job.Handle(context.Background(), NewSessionCleanupTask())
	require.ErrorIs(t, err, wantErr)
}

func TestAuditCleanupHandle(t *testing.T) {
	pruner := &fakeAuditPruner{}
	job := NewAuditCleanupJob(pruner, slog.Default(), nil)

	task, err := NewAuditCleanupTask(AuditCleanupPayload{RetentionHours: 48})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.True(t, pruner.called)
	require.Equal(t, 48*time.Hour, pruner.olderThan)
}

func TestAuditCleanupDropsMalformedPayload(t *testing.T) {
	pruner := &fakeAuditPruner{}
	job := NewAuditCleanupJob(pruner, slog.Default(), nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskAuditCleanup, []byte("not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.False(t, pruner.called)
}

func TestAuditCleanupDropsNonPositiveRetention(t *testing.T) {
	pruner := &fakeAuditPruner{}
	job := NewAuditCleanupJob(pruner, slog.Default(), nil)

	task, err := NewAuditCleanupTask(AuditCleanupPayload{RetentionHours: 0})
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.False(t, pruner.called)
}
