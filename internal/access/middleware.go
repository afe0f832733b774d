package access

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/platform/httpx"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/shared"
)

// Middleware gates HTTP routes on resolved permission contexts. An
// unauthenticated request gets 401, a denial 403 and a resolver failure 500;
// the failure path never falls open.
type Middleware struct {
	gate   *Gate
	logger *slog.Logger
}

// NewMiddleware builds route-guarding middleware around a gate.
func NewMiddleware(gate *Gate, logger *slog.Logger) *Middleware {
	return &Middleware{gate: gate, logger: logger}
}

// Authenticated admits any request with a session-bound user.
func (m *Middleware) Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := shared.UserIDFromContext(r.Context()); !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Require admits requests whose user holds a grant covering the permission.
func (m *Middleware) Require(permission string) func(http.Handler) http.Handler {
	return m.guard(func(r *http.Request, userID int64) (bool, error) {
		return m.gate.HasPermission(r.Context(), userID, permission)
	})
}

// RequireAny admits requests whose user holds at least one of the permissions.
func (m *Middleware) RequireAny(permissions ...string) func(http.Handler) http.Handler {
	return m.guard(func(r *http.Request, userID int64) (bool, error) {
		return m.gate.HasAny(r.Context(), userID, permissions...)
	})
}

// RequireAll admits requests whose user holds every one of the permissions.
func (m *Middleware) RequireAll(permissions ...string) func(http.Handler) http.Handler {
	return m.guard(func(r *http.Request, userID int64) (bool, error) {
		return m.gate.HasAll(r.Context(), userID, permissions...)
	})
}

func (m *Middleware) guard(check func(*http.Request, int64) (bool, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := shared.UserIDFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			allowed, err := check(r, userID)
			if err != nil {
				if errors.Is(err, ErrUnauthenticated) {
					httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
					return
				}
				m.logger.Error("authorization check failed",
					slog.Int64("user_id", userID), slog.Any("error", err))
				httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "authorization check failed")
				return
			}
			if !allowed {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
