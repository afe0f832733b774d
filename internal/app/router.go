package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/access"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/audit"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/auth"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/grants"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/observability"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/permissions"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/roles"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/shared"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/users"
	"github.com/gatehouse-rbac/gatehouse-rbac/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	CSRFManager        *shared.CSRFManager
	AuthHandler        *auth.Handler
	RolesHandler       *roles.Handler
	PermissionsHandler *permissions.Handler
	GrantsHandler      *grants.Handler
	UsersHandler       *users.Handler
	AccessHandler      *access.Handler
	AuditHandler       *audit.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/roles", func(r chi.Router) {
		params.RolesHandler.MountRoutes(r)
		r.Route("/{roleID}/permissions", params.GrantsHandler.MountRolePermissionRoutes)
	})

	r.Route("/permissions", params.PermissionsHandler.MountRoutes)

	r.Route("/users", func(r chi.Router) {
		params.UsersHandler.MountRoutes(r)
		r.Route("/{userID}/roles", params.GrantsHandler.MountUserRoleRoutes)
	})

	r.Route("/access", params.AccessHandler.MountRoutes)

	r.Route("/audit", params.AuditHandler.MountRoutes)

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
