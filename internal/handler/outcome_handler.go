package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusmetrics/clo-api/internal/dto"
	"github.com/campusmetrics/clo-api/internal/models"
	"github.com/campusmetrics/clo-api/internal/service"
	appErrors "github.com/campusmetrics/clo-api/pkg/errors"
	"github.com/campusmetrics/clo-api/pkg/response"
)

// OutcomeHandler exposes the outcome approval workflow.
type OutcomeHandler struct {
	outcomes *service.OutcomeService
}

// NewOutcomeHandler constructs handler.
func NewOutcomeHandler(outcomes *service.OutcomeService) *OutcomeHandler {
	return &OutcomeHandler{outcomes: outcomes}
}

// UpdateStatus godoc
// @Summary Transition an outcome's approval status
// @Tags Outcomes
// @Accept json
// @Produce json
// @Param id path string true "Outcome ID"
// @Param request body dto.UpdateOutcomeStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /outcomes/{id}/status [patch]
func (h *OutcomeHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateOutcomeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	claims := claimsFromContext(c)
	institution := institutionFromContext(c)
	outcome, err := h.outcomes.UpdateStatus(c.Request.Context(), c.Param("id"), institution, claims.UserID, models.OutcomeStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}
