package permissions

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/perm"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/platform/httpx"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/shared"
)

// Guard supplies permission-gating middleware for catalog routes.
type Guard interface {
	Require(permission string) func(http.Handler) http.Handler
}

// Handler manages permission catalog endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	guard    Guard
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validate: validator.New()}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require("permission:read"))
		r.Get("/", h.listPermissions)
		r.Get("/{permissionID}", h.getPermission)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require("permission:manage"))
		r.Post("/", h.registerPermission)
		r.Delete("/{permissionID}", h.deletePermission)
	})
}

type registerPermissionRequest struct {
	Permission  string `json:"permission" validate:"required,max=200"`
	DisplayName string `json:"display_name" validate:"max=150"`
	Description string `json:"description" validate:"max=500"`
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, "list permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": list})
}

func (h *Handler) getPermission(w http.ResponseWriter, r *http.Request) {
	id, ok := permissionIDParam(w, r)
	if !ok {
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get permission", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) registerPermission(w http.ResponseWriter, r *http.Request) {
	var req registerPermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := shared.UserIDFromContext(r.Context())
	entry, err := h.service.Register(r.Context(), actorID, RegisterInput{
		Permission:  req.Permission,
		DisplayName: req.DisplayName,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(w, "register permission", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) deletePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := permissionIDParam(w, r)
	if !ok {
		return
	}
	actorID, _ := shared.UserIDFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actorID, id); err != nil {
		h.respondError(w, "delete permission", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, perm.ErrMalformedPermission):
		httpx.Problem(w, http.StatusBadRequest, "Malformed Permission", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func permissionIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "permissionID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Permission ID", "permission id must be a positive integer")
		return 0, false
	}
	return id, true
}
