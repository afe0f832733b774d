package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gatehouse-rbac/gatehouse-rbac/internal/platform/httpx"
)

const (
	defaultDateRange = 7 * 24 * time.Hour
	maxDateRange     = 90 * 24 * time.Hour
)

// Guard supplies permission-gating middleware for audit routes.
type Guard interface {
	Require(permission string) func(http.Handler) http.Handler
}

// Handler serves the audit timeline endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   Guard
	now     func() time.Time
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, now: time.Now}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require("audit:read"))
		r.Get("/", h.timeline)
		r.Get("/export", h.exportCSV)
	})
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters, ok := h.parseFilters(w, r)
	if !ok {
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	filters, ok := h.parseFilters(w, r)
	if !ok {
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("export audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	csvBytes, err := WriteCSV(rows)
	if err != nil {
		h.logger.Error("encode audit csv", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-trail.csv"`)
	if _, err := w.Write(csvBytes); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

// parseFilters reads the query string. The window defaults to the last seven
// days and is capped at ninety.
func (h *Handler) parseFilters(w http.ResponseWriter, r *http.Request) (Filters, bool) {
	query := r.URL.Query()
	now := h.now().UTC()

	toStr := strings.TrimSpace(query.Get("to"))
	if toStr == "" {
		toStr = now.Format("2006-01-02")
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "to must be a YYYY-MM-DD date")
		return Filters{}, false
	}
	// Include the whole closing day.
	to = to.Add(24*time.Hour - time.Nanosecond)

	fromStr := strings.TrimSpace(query.Get("from"))
	if fromStr == "" {
		fromStr = to.Add(-defaultDateRange).Format("2006-01-02")
	}
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "from must be a YYYY-MM-DD date")
		return Filters{}, false
	}
	if from.After(to) || to.Sub(from) > maxDateRange {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "date range must be positive and at most 90 days")
		return Filters{}, false
	}

	filters := Filters{From: from, To: to,
		Entity: strings.TrimSpace(query.Get("entity")),
		Action: strings.TrimSpace(query.Get("action")),
	}
	if v := strings.TrimSpace(query.Get("actor_id")); v != "" {
		actorID, err := strconv.ParseInt(v, 10, 64)
		if err != nil || actorID <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "actor_id must be a positive integer")
			return Filters{}, false
		}
		filters.ActorID = actorID
	}
	if v := strings.TrimSpace(query.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "page must be a positive integer")
			return Filters{}, false
		}
		filters.Page = page
	}
	if v := strings.TrimSpace(query.Get("page_size")); v != "" {
		pageSize, err := strconv.Atoi(v)
		if err != nil || pageSize <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "page_size must be a positive integer")
			return Filters{}, false
		}
		filters.PageSize = pageSize
	}
	return filters, true
}
