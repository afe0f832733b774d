package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/app"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/auth"
	jobmetrics "github.com/gatehouse-rbac/gatehouse-rbac/internal/jobs"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/platform/db"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/shared"
	"github.com/gatehouse-rbac/gatehouse-rbac/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	authRepo := auth.NewRepository(pool)
	auditLogger := shared.NewAuditLogger(pool)
	jobMetrics := jobmetrics.NewMetrics(nil)

	sessionJob := jobs.NewSessionCleanupJob(authRepo, logger, jobMetrics)
	auditJob := jobs.NewAuditCleanupJob(auditLogger, logger, jobMetrics)

	auditTask, err := jobs.NewAuditCleanupTask(jobs.AuditCleanupPayload{
		RetentionHours: int(cfg.AuditRetention.Hours()),
	})
	if err != nil {
		logger.Error("build audit cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSessionCleanup, Handler: sessionJob.Handle},
			{Type: jobs.TaskAuditCleanup, Handler: auditJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 * * * *", Task: jobs.NewSessionCleanupTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 2 * * *", Task: auditTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
