package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/gatehouse-rbac/gatehouse-rbac/internal/jobs"
)

// SessionPruner deletes session records past their expiry.
type SessionPruner interface {
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// SessionCleanupJob removes expired session rows from postgres. The Redis
// copies expire on their own TTL; this keeps the audit table in sync.
type SessionCleanupJob struct {
	sessions SessionPruner
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
}

// NewSessionCleanupJob builds the job. Metrics may be nil.
func NewSessionCleanupJob(sessions SessionPruner, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionCleanupJob {
	return &SessionCleanupJob{sessions: sessions, logger: logger, metrics: metrics}
}

// Handle processes one TaskSessionCleanup task.
func (j *SessionCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("session_cleanup")
	pruned, err := j.sessions.DeleteExpiredSessions(ctx, time.Now())
	if err != nil {
		j.logger.Error("session cleanup", slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger.Info("session cleanup complete", slog.Int64("pruned", pruned))
	return tracker.End(nil)
}
