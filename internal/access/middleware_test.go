package access

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/shared"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func authedRequest(t *testing.T, userID string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	sess := &shared.Session{}
	sess.SetUser(userID)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireWithoutSessionReturns401(t *testing.T) {
	mw := NewMiddleware(gateWith("user:read"), testLogger())
	rec := httptest.NewRecorder()

	mw.Require("user:read")(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireWithoutGrantReturns403(t *testing.T) {
	mw := NewMiddleware(gateWith("role:read"), testLogger())
	rec := httptest.NewRecorder()

	mw.Require("user:read")(okHandler()).ServeHTTP(rec, authedRequest(t, "7"))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestRequireWithGrantPasses(t *testing.T) {
	mw := NewMiddleware(gateWith("user:read"), testLogger())
	rec := httptest.NewRecorder()

	mw.Require("user:read")(okHandler()).ServeHTTP(rec, authedRequest(t, "7"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAnyPassesOnOneGrant(t *testing.T) {
	mw := NewMiddleware(gateWith("role:read"), testLogger())
	rec := httptest.NewRecorder()

	mw.RequireAny("user:read", "role:read")(okHandler()).ServeHTTP(rec, authedRequest(t, "7"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAllDeniesOnPartialGrants(t *testing.T) {
	mw := NewMiddleware(gateWith("role:read"), testLogger())
	rec := httptest.NewRecorder()

	mw.RequireAll("role:read", "role:update")(okHandler()).ServeHTTP(rec, authedRequest(t, "7"))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthenticatedAdmitsAnyUser(t *testing.T) {
	mw := NewMiddleware(gateWith(), testLogger())
	rec := httptest.NewRecorder()

	mw.Authenticated(okHandler()).ServeHTTP(rec, authedRequest(t, "7"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mw.Authenticated(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionWithoutUserReturns401(t *testing.T) {
	mw := NewMiddleware(gateWith("user:read"), testLogger())
	rec := httptest.NewRecorder()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), &shared.Session{}))
	mw.Require("user:read")(okHandler()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
