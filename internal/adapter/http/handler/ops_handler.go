package handler

import (
	"club-operations-core/internal/core/ports"
	"club-operations-core/pkg/response"

	"github.com/gin-gonic/gin"
)

// OpsHandler serves staff-facing operational endpoints.
type OpsHandler struct {
	statsSvc ports.StatsService
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(statsSvc ports.StatsService) *OpsHandler {
	return &OpsHandler{statsSvc: statsSvc}
}

// EventStats handles GET /api/v1/ops/stats: event-processing counts
// grouped by event type and outcome.
func (h *OpsHandler) EventStats(c *gin.Context) {
	stats, err := h.statsSvc.EventStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}
