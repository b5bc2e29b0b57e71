package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/TharinduDesh/incidenthub/internal/cache"
	"github.com/TharinduDesh/incidenthub/internal/domain/incident"
	"github.com/gin-gonic/gin"
)

// IncidentsStore is the slice of the incidents repository the HTTP
// layer needs.
type IncidentsStore interface {
	Create(ctx context.Context, req incident.CreateRequest) (incident.Incident, error)
	List(ctx context.Context, filter incident.ListFilter) ([]incident.Incident, int, error)
	GetByID(ctx context.Context, id string) (incident.Incident, error)
	UpdateStatus(ctx context.Context, id string, status incident.Status) (incident.Incident, error)
	UpdateAssignment(ctx context.Context, id string, status incident.Status, team string) (incident.Incident, error)
}

type IncidentsHandler struct {
	repo  IncidentsStore
	cache cache.Store
	log   *slog.Logger
}

func NewIncidentsHandler(repo IncidentsStore, cacheStore cache.Store, log *slog.Logger) *IncidentsHandler {
	return &IncidentsHandler{repo: repo, cache: cacheStore, log: log}
}

func (h *IncidentsHandler) CreateIncident(ctx *gin.Context) {
	var req incident.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if !incident.Category(req.Category).IsValid() {
		RespondBadRequest(ctx, "invalid_category", "Unknown incident category", gin.H{
			"category": req.Category,
		})
		return
	}

	inc, err := h.repo.Create(ctx.Request.Context(), req)

	if err != nil {
		RespondInternal(ctx, "Could not create incident")
		return
	}

	h.invalidateDashboard(ctx.Request.Context())

	ctx.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Incident reported successfully",
		"incident": inc,
	})
}

func (h *IncidentsHandler) ListIncidents(ctx *gin.Context) {
	filter, ok := parseListFilter(ctx)
	if !ok {
		return
	}

	items, total, err := h.repo.List(ctx.Request.Context(), filter)

	if err != nil {
		RespondInternal(ctx, "Could not list incidents")
		return
	}

	if items == nil {
		items = []incident.Incident{}
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"success":   true,
		"incidents": items,
		"total":     total,
	})
}

func (h *IncidentsHandler) GetIncidentByID(ctx *gin.Context) {
	id := ctx.Param("id")

	inc, err := h.repo.GetByID(ctx.Request.Context(), id)

	if err != nil {
		if errors.Is(err, incident.ErrNotFound) {
			RespondNotFound(ctx, "Incident not found")
			return
		}
		RespondInternal(ctx, "Could not fetch incident")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"success":  true,
		"incident": inc,
	})
}

func (h *IncidentsHandler) UpdateIncidentStatus(ctx *gin.Context) {
	var req incident.UpdateStatusRequest

	if !BindJSON(ctx, &req) {
		return
	}

	status := incident.Status(req.Status)
	if !status.IsValid() {
		RespondBadRequest(ctx, "invalid_status", "Unknown incident status", gin.H{
			"status": req.Status,
		})
		return
	}

	inc, err := h.repo.UpdateStatus(ctx.Request.Context(), ctx.Param("id"), status)

	if err != nil {
		if errors.Is(err, incident.ErrNotFound) {
			RespondNotFound(ctx, "Incident not found")
			return
		}
		RespondInternal(ctx, "Could not update incident status")
		return
	}

	h.invalidateDashboard(ctx.Request.Context())

	ctx.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Incident status updated",
		"incident": inc,
	})
}

func (h *IncidentsHandler) UpdateIncidentAssignment(ctx *gin.Context) {
	var req incident.UpdateAssignmentRequest

	if !BindJSON(ctx, &req) {
		return
	}

	status := incident.Status(req.Status)
	if !status.IsValid() {
		RespondBadRequest(ctx, "invalid_status", "Unknown incident status", gin.H{
			"status": req.Status,
		})
		return
	}

	inc, err := h.repo.UpdateAssignment(ctx.Request.Context(), ctx.Param("id"), status, req.Team)

	if err != nil {
		if errors.Is(err, incident.ErrNotFound) {
			RespondNotFound(ctx, "Incident not found")
			return
		}
		RespondInternal(ctx, "Could not update incident assignment")
		return
	}

	h.invalidateDashboard(ctx.Request.Context())

	ctx.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Incident assignment updated",
		"incident": inc,
	})
}

// invalidateDashboard drops the cached aggregates after any incident
// write so admins never read counts older than the cache TTL demands.
func (h *IncidentsHandler) invalidateDashboard(ctx context.Context) {
	if h.cache == nil {
		return
	}
	h.cache.Invalidate(ctx, cacheKeyDashboardCounts, cacheKeyDashboardStats)
}

func parseListFilter(ctx *gin.Context) (incident.ListFilter, bool) {
	var filter incident.ListFilter

	if v := strings.TrimSpace(ctx.Query("email")); v != "" {
		filter.ReporterEmail = &v
	}

	if v := strings.TrimSpace(ctx.Query("category")); v != "" {
		c := incident.Category(v)
		if !c.IsValid() {
			RespondBadRequest(ctx, "invalid_category", "Unknown incident category", gin.H{
				"category": v,
			})
			return filter, false
		}
		filter.Category = &c
	}

	if v := strings.TrimSpace(ctx.Query("status")); v != "" {
		s := incident.Status(v)
		if !s.IsValid() {
			RespondBadRequest(ctx, "invalid_status", "Unknown incident status", gin.H{
				"status": v,
			})
			return filter, false
		}
		filter.Status = &s
	}

	if v := strings.TrimSpace(ctx.Query("search")); v != "" {
		filter.Search = &v
	}

	var ok bool
	if filter.Limit, ok = parseIntQuery(ctx, "limit"); !ok {
		return filter, false
	}
	if filter.Offset, ok = parseIntQuery(ctx, "offset"); !ok {
		return filter, false
	}

	return filter, true
}

func parseIntQuery(ctx *gin.Context, name string) (int, bool) {
	raw := strings.TrimSpace(ctx.Query(name))
	if raw == "" {
		return 0, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		RespondBadRequest(ctx, "invalid_query", "Query parameter must be a non-negative integer", gin.H{
			"param": name,
		})
		return 0, false
	}

	return n, true
}
