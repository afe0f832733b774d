package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/gatehouse-rbac/gatehouse-rbac/internal/jobs"
)

// AuditPruner removes audit entries older than a retention window.
type AuditPruner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// AuditCleanupJob trims audit log entries older than the retention window.
type AuditCleanupJob struct {
	audit   AuditPruner
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewAuditCleanupJob builds the job. Metrics may be nil.
func NewAuditCleanupJob(audit AuditPruner, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditCleanupJob {
	return &AuditCleanupJob{audit: audit, logger: logger, metrics: metrics}
}

// Handle processes one TaskAuditCleanup task. A malformed payload is dropped
// rather than retried.
func (j *AuditCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload AuditCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RetentionHours <= 0 {
		return asynq.SkipRetry
	}
	tracker := j.metrics.Track("audit_cleanup")
	retention := time.Duration(payload.RetentionHours) * time.Hour
	if err := j.audit.Cleanup(ctx, retention); err != nil {
		j.logger.Error("audit cleanup", slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger.Info("audit cleanup complete", slog.Duration("retention", retention))
	return tracker.End(nil)
}
