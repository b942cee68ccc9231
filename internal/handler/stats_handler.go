package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusmetrics/clo-api/internal/service"
	appErrors "github.com/campusmetrics/clo-api/pkg/errors"
	"github.com/campusmetrics/clo-api/pkg/response"
)

// StatsHandler exposes the per-tenant dashboard counts.
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler constructs handler.
func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Get godoc
// @Summary Tenant record counts
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats [get]
func (h *StatsHandler) Get(c *gin.Context) {
	institution := institutionFromContext(c)
	if institution == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "institution scope required"))
		return
	}
	stats, err := h.stats.Get(c.Request.Context(), institution)
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{"stale": stats.Stale}
	response.JSON(c, http.StatusOK, stats, nil, meta)
}
