// Package jobs runs background maintenance through Asynq: pruning expired
// session records and trimming old audit log entries.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionCleanup prunes expired session records from postgres.
	TaskSessionCleanup = "sessions:cleanup"
	// TaskAuditCleanup trims audit log entries past the retention window.
	TaskAuditCleanup = "audit:cleanup"
)

// AuditCleanupPayload carries the retention window in hours.
type AuditCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewSessionCleanupTask constructs the session pruning task.
func NewSessionCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskSessionCleanup, nil)
}

// NewAuditCleanupTask constructs the audit trimming task.
func NewAuditCleanupTask(payload AuditCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditCleanup, data), nil
}
