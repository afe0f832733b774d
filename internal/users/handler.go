package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/platform/httpx"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/shared"
)

// Guard supplies permission-gating middleware for directory routes.
type Guard interface {
	Require(permission string) func(http.Handler) http.Handler
	Authenticated(next http.Handler) http.Handler
}

// OwnershipGate answers own-versus-all scoped permission checks.
type OwnershipGate interface {
	HasOwnOrAll(ctx context.Context, userID int64, base string, ownsTarget bool) (bool, error)
}

// Handler manages user directory endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   Guard
	gate    OwnershipGate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard Guard, gate OwnershipGate) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, gate: gate}
}

// MountRoutes registers directory routes. Listing needs the all-scoped read;
// fetching a single account accepts the own-scoped read for the caller's own
// record.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require("user:read:all"))
		r.Get("/", h.listUsers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Authenticated)
		r.Get("/{userID}", h.getUser)
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	list, pagination, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": list, "pagination": pagination})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	targetID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || targetID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid User ID", "user id must be a positive integer")
		return
	}
	callerID, _ := shared.UserIDFromContext(r.Context())
	allowed, err := h.gate.HasOwnOrAll(r.Context(), callerID, "user:read", callerID == targetID)
	if err != nil {
		h.logger.Error("check user read", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "authorization check failed")
		return
	}
	if !allowed {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
		return
	}
	user, err := h.service.Get(r.Context(), targetID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("get user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
