package access

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/perm"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/platform/httpx"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/shared"
)

// Handler exposes context introspection and cache administration.
type Handler struct {
	logger *slog.Logger
	gate   *Gate
	cache  *Cache
	mw     *Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, gate *Gate, cache *Cache, mw *Middleware) *Handler {
	return &Handler{logger: logger, gate: gate, cache: cache, mw: mw}
}

// MountRoutes registers access routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Authenticated)
		r.Get("/me", h.myContext)
		r.Get("/check", h.checkPermission)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require("system:admin"))
		r.Delete("/cache", h.flushCache)
	})
}

func (h *Handler) myContext(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	resolved, err := h.gate.Resolve(r.Context(), userID)
	if err != nil {
		h.logger.Error("resolve context", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resolved)
}

func (h *Handler) checkPermission(w http.ResponseWriter, r *http.Request) {
	requested := r.URL.Query().Get("permission")
	if _, err := perm.Parse(requested); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Permission", "permission query parameter must follow resource:action[:scope]")
		return
	}
	userID, _ := shared.UserIDFromContext(r.Context())
	allowed, err := h.gate.HasPermission(r.Context(), userID, requested)
	if err != nil {
		h.logger.Error("check permission", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permission": requested, "allowed": allowed})
}

func (h *Handler) flushCache(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.InvalidateAll(r.Context()); err != nil {
		h.logger.Error("flush access cache", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
