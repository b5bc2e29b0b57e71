package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/TharinduDesh/incidenthub/internal/config"
	"github.com/TharinduDesh/incidenthub/internal/domain/job"
	"github.com/TharinduDesh/incidenthub/internal/repo/postgres"
	"github.com/gin-gonic/gin"
)

type AdminJobsStore interface {
	List(ctx context.Context, status *job.Status, limit int) ([]job.Job, error)
	Retry(ctx context.Context, id string) (job.Job, error)
}

// AdminJobsHandler exposes the email queue to operators: inspect what
// is pending or dead, and push a failed job back to pending.
type AdminJobsHandler struct {
	repo AdminJobsStore
}

func NewAdminJobsHandler(repo AdminJobsStore) *AdminJobsHandler {
	return &AdminJobsHandler{repo: repo}
}

// GET /api/admin/jobs?status=failed&limit=50
func (h *AdminJobsHandler) List(ctx *gin.Context) {
	limit := 50
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			RespondBadRequest(ctx, "invalid_query", "limit must be between 1 and 200", nil)
			return
		}
		limit = n
	}

	var statusPtr *job.Status
	if raw := ctx.Query("status"); raw != "" {
		s := job.Status(raw)
		statusPtr = &s
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, err := h.repo.List(cctx, statusPtr, limit)
	if err != nil {
		RespondInternal(ctx, "Could not list jobs")
		return
	}

	if items == nil {
		items = []job.Job{}
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"success": true,
		"count":   len(items),
		"items":   items,
	})
}

// POST /api/admin/jobs/:id/retry
func (h *AdminJobsHandler) Retry(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	j, err := h.repo.Retry(cctx, id)
	if err != nil {
		switch {
		case errors.Is(err, job.ErrJobNotFound):
			RespondNotFound(ctx, "Job not found")
		case errors.Is(err, postgres.ErrJobNotFailed):
			RespondConflict(ctx, "job_not_failed", "Only failed jobs can be retried")
		default:
			RespondInternal(ctx, "Could not retry job")
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"jobId":   j.ID,
		"status":  j.Status,
	})
}
