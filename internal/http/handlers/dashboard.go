package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/TharinduDesh/incidenthub/internal/cache"
	"github.com/TharinduDesh/incidenthub/internal/domain/incident"
	"github.com/TharinduDesh/incidenthub/internal/domain/user"
	"github.com/TharinduDesh/incidenthub/internal/repo/postgres"
	"github.com/gin-gonic/gin"
)

const (
	cacheKeyDashboardCounts = "dashboard:counts"
	cacheKeyDashboardStats  = "dashboard:stats"

	dashboardCacheTTL = 30 * time.Second
)

type IncidentCounter interface {
	CountByCategory(ctx context.Context) ([]postgres.GroupCount, error)
	CountByStatus(ctx context.Context) ([]postgres.GroupCount, error)
	CountWithStatus(ctx context.Context, status incident.Status) (int, error)
}

type UserCounter interface {
	CountByRole(ctx context.Context, role user.Role) (int, error)
}

// DashboardHandler serves the admin aggregates. Both endpoints are
// cached for a short window and invalidated whenever an incident
// changes, so the charts stay close to live without hammering the DB.
type DashboardHandler struct {
	incidents IncidentCounter
	users     UserCounter
	cache     cache.Store
	log       *slog.Logger
}

func NewDashboardHandler(incidents IncidentCounter, users UserCounter, cacheStore cache.Store, log *slog.Logger) *DashboardHandler {
	return &DashboardHandler{incidents: incidents, users: users, cache: cacheStore, log: log}
}

type dashboardCounts struct {
	Success        bool                  `json:"success"`
	CategoryCounts []postgres.GroupCount `json:"category_counts"`
	StatusCounts   []postgres.GroupCount `json:"status_counts"`
}

type dashboardStats struct {
	Success        bool `json:"success"`
	TotalCustomers int  `json:"total_customers"`
	TotalPending   int  `json:"total_pending"`
	TotalOngoing   int  `json:"total_ongoing"`
	TotalCompleted int  `json:"total_completed"`
	TotalIncidents int  `json:"total_incidents"`
}

func (h *DashboardHandler) GetDashboard(ctx *gin.Context) {
	if h.serveCached(ctx, cacheKeyDashboardCounts) {
		return
	}

	rctx := ctx.Request.Context()

	categories, err := h.incidents.CountByCategory(rctx)
	if err != nil {
		RespondInternal(ctx, "Could not load dashboard data")
		return
	}

	statuses, err := h.incidents.CountByStatus(rctx)
	if err != nil {
		RespondInternal(ctx, "Could not load dashboard data")
		return
	}

	if categories == nil {
		categories = []postgres.GroupCount{}
	}
	if statuses == nil {
		statuses = []postgres.GroupCount{}
	}

	payload := dashboardCounts{
		Success:        true,
		CategoryCounts: categories,
		StatusCounts:   statuses,
	}

	h.storeCached(rctx, cacheKeyDashboardCounts, payload)
	ctx.JSON(http.StatusOK, payload)
}

func (h *DashboardHandler) GetDashboardStats(ctx *gin.Context) {
	if h.serveCached(ctx, cacheKeyDashboardStats) {
		return
	}

	rctx := ctx.Request.Context()

	customers, err := h.users.CountByRole(rctx, user.RoleUser)
	if err != nil {
		RespondInternal(ctx, "Could not load dashboard stats")
		return
	}

	var byStatus [3]int
	for i, status := range []incident.Status{incident.StatusPending, incident.StatusOngoing, incident.StatusCompleted} {
		n, err := h.incidents.CountWithStatus(rctx, status)
		if err != nil {
			RespondInternal(ctx, "Could not load dashboard stats")
			return
		}
		byStatus[i] = n
	}

	payload := dashboardStats{
		Success:        true,
		TotalCustomers: customers,
		TotalPending:   byStatus[0],
		TotalOngoing:   byStatus[1],
		TotalCompleted: byStatus[2],
		TotalIncidents: byStatus[0] + byStatus[1] + byStatus[2],
	}

	h.storeCached(rctx, cacheKeyDashboardStats, payload)
	ctx.JSON(http.StatusOK, payload)
}

func (h *DashboardHandler) serveCached(ctx *gin.Context, key string) bool {
	if h.cache == nil {
		return false
	}

	raw, ok := h.cache.Get(ctx.Request.Context(), key)
	if !ok {
		return false
	}

	ctx.Data(http.StatusOK, "application/json; charset=utf-8", raw)
	return true
}

func (h *DashboardHandler) storeCached(ctx context.Context, key string, payload interface{}) {
	if h.cache == nil {
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		h.log.Warn("could not cache dashboard payload", "key", key, "err", err)
		return
	}

	h.cache.Set(ctx, key, raw, dashboardCacheTTL)
}
