package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/access"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/audit"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/auth"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/grants"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/permissions"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/roles"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/shared"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/users"

	_ "github.com/gatehouse-rbac/gatehouse-rbac/internal/testing/guard"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := NewLogger(&Config{})
	sessions := shared.NewSessionManager(client, "gatehouse_session", "test-session-secret", time.Hour, false)
	csrf := shared.NewCSRFManager("test-csrf-secret")

	gate := access.NewGate(access.NewResolver(nil, nil))
	guard := access.NewMiddleware(gate, logger)

	return NewRouter(RouterParams{
		Logger:             logger,
		Config:             &Config{},
		SessionManager:     sessions,
		CSRFManager:        csrf,
		AuthHandler:        auth.NewHandler(logger, nil, sessions),
		RolesHandler:       roles.NewHandler(logger, nil, guard),
		PermissionsHandler: permissions.NewHandler(logger, nil, guard),
		GrantsHandler:      grants.NewHandler(logger, nil, guard),
		UsersHandler:       users.NewHandler(logger, nil, guard, gate),
		AccessHandler:      access.NewHandler(logger, gate, nil, guard),
		AuditHandler:       audit.NewHandler(logger, nil, guard),
	})
}

func TestRouterHealthz(t *testing.T) {
	router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouterUnknownRoute(t *testing.T) {
	router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterRejectsMutationWithoutCSRF(t *testing.T) {
	router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/roles", nil))

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouterGatedRouteWithoutSessionUser(t *testing.T) {
	router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/roles", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
