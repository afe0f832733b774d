package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/access"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/app"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/audit"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/auth"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/bootstrap"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/grants"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/observability"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/permissions"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/platform/cache"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/platform/db"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/roles"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/shared"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/users"
	"github.com/gatehouse-rbac/gatehouse-rbac/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "gatehouse_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

	roleRepo := roles.NewRepository(pool)
	permRepo := permissions.NewRepository(pool)
	grantRepo := grants.NewRepository(pool)
	userRepo := users.NewRepository(pool)
	authRepo := auth.NewRepository(pool)

	resolver := access.NewResolver(roleRepo, grantRepo)
	accessCache := access.NewCache(redisClient, resolver, cfg.AccessCacheTTL, metrics)
	gate := access.NewGate(accessCache)
	guard := access.NewMiddleware(gate, logger)

	if cfg.BootstrapSeed {
		seeder := bootstrap.NewSeeder(logger, roleRepo, permRepo, grantRepo)
		if err := seeder.Run(ctx); err != nil {
			logger.Error("bootstrap seed", slog.Any("error", err))
			os.Exit(1)
		}
	}
	policy := bootstrap.NewPolicy(authRepo, roleRepo, grantRepo)

	authService := auth.NewService(authRepo, policy)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	roleService := roles.NewService(roleRepo, grantRepo, accessCache, auditLogger)
	roleHandler := roles.NewHandler(logger, roleService, guard)

	permService := permissions.NewService(permRepo, accessCache, auditLogger)
	permHandler := permissions.NewHandler(logger, permService, guard)

	grantService := grants.NewService(grantRepo, roleRepo, permRepo, accessCache, auditLogger)
	grantHandler := grants.NewHandler(logger, grantService, guard)

	userService := users.NewService(userRepo)
	userHandler := users.NewHandler(logger, userService, guard, gate)

	accessHandler := access.NewHandler(logger, gate, accessCache, guard)

	auditService := audit.NewService(audit.NewRepository(pool))
	auditHandler := audit.NewHandler(logger, auditService, guard)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		RolesHandler:       roleHandler,
		PermissionsHandler: permHandler,
		GrantsHandler:      grantHandler,
		UsersHandler:       userHandler,
		AccessHandler:      accessHandler,
		AuditHandler:       auditHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
