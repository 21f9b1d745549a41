package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/lucasfalb/aijarvis-system/internal/services"
	"github.com/lucasfalb/aijarvis-system/pkg/response"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetStats returns dashboard statistics
// GET /api/dashboard/stats
func (h *DashboardHandler) GetStats(c *gin.Context) {
	var req services.DashboardStatsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.dashboardService.GetStats(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, resp)
}
