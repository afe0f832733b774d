package grants

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/platform/httpx"
	"github.com/gatehouse-rbac/gatehouse-rbac/internal/shared"
)

// Guard supplies permission-gating middleware for grant routes.
type Guard interface {
	Require(permission string) func(http.Handler) http.Handler
}

// Handler manages role-permission grant and user-role assignment endpoints.
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

// MountRolePermissionRoutes registers grant routes under /roles/{roleID}/permissions.
func (h *Handler) MountRolePermissionRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require("grant:manage"))
		r.Get("/", h.listRolePermissions)
		r.Post("/", h.grantPermissions)
		r.Put("/", h.replacePermissions)
		r.Delete("/{permissionID}", h.revokePermission)
	})
}

// MountUserRoleRoutes registers assignment routes under /users/{userID}/roles.
func (h *Handler) MountUserRoleRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require("grant:manage"))
		r.Get("/", h.listUserRoles)
		r.Post("/", h.assignRole)
		r.Delete("/{roleID}", h.removeRole)
	})
}

type permissionIDsRequest struct {
	PermissionIDs []int64 `json:"permission_ids" validate:"required,min=1,dive,gt=0"`
}

type replacePermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids" validate:"required,dive,gt=0"`
}

type assignRoleRequest struct {
	RoleID int64 `json:"role_id" validate:"required,gt=0"`
}

func (h *Handler) listRolePermissions(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(w, r, "roleID", "role")
	if !ok {
		return
	}
	list, err := h.service.RolePermissions(r.Context(), roleID)
	if err != nil {
		h.respondError(w, "list role permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": list})
}

func (h *Handler) grantPermissions(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(w, r, "roleID", "role")
	if !ok {
		return
	}
	var req permissionIDsRequest
	if !h.decode(w, r, &req) {
		return
	}
	actorID, _ := shared.UserIDFromContext(r.Context())
	if err := h.service.GrantPermissions(r.Context(), actorID, roleID, req.PermissionIDs); err != nil {
		h.respondError(w, "grant permissions", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) replacePermissions(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(w, r, "roleID", "role")
	if !ok {
		return
	}
	var req replacePermissionsRequest
	if !h.decode(w, r, &req) {
		return
	}
	actorID, _ := shared.UserIDFromContext(r.Context())
	if err := h.service.ReplacePermissions(r.Context(), actorID, roleID, req.PermissionIDs); err != nil {
		h.respondError(w, "replace permissions", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revokePermission(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(w, r, "roleID", "role")
	if !ok {
		return
	}
	permissionID, ok := pathID(w, r, "permissionID", "permission")
	if !ok {
		return
	}
	actorID, _ := shared.UserIDFromContext(r.Context())
	if err := h.service.RevokePermission(r.Context(), actorID, roleID, permissionID); err != nil {
		h.respondError(w, "revoke permission", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listUserRoles(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID", "user")
	if !ok {
		return
	}
	list, err := h.service.UserRoles(r.Context(), userID)
	if err != nil {
		h.respondError(w, "list user roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": list})
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID", "user")
	if !ok {
		return
	}
	var req assignRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	actorID, _ := shared.UserIDFromContext(r.Context())
	if err := h.service.AssignRole(r.Context(), actorID, userID, req.RoleID); err != nil {
		h.respondError(w, "assign role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID", "user")
	if !ok {
		return
	}
	roleID, ok := pathID(w, r, "roleID", "role")
	if !ok {
		return
	}
	actorID, _ := shared.UserIDFromContext(r.Context())
	if err := h.service.RemoveRole(r.Context(), actorID, userID, roleID); err != nil {
		h.respondError(w, "remove role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := httpx.DecodeJSON(r, req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func pathID(w http.ResponseWriter, r *http.Request, param, noun string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", noun+" id must be a positive integer")
		return 0, false
	}
	return id, true
}
