package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/lucasfalb/aijarvis-system/internal/services"
	"github.com/lucasfalb/aijarvis-system/pkg/response"
)

type ActivityLogHandler struct {
	logService *services.ActivityLogService
}

func NewActivityLogHandler(logService *services.ActivityLogService) *ActivityLogHandler {
	return &ActivityLogHandler{logService: logService}
}

// List returns the activity the caller may see, optionally by entity or
// only their own
// GET /api/activity-logs
func (h *ActivityLogHandler) List(c *gin.Context) {
	var req services.ActivityLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	logs, err := h.logService.List(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, logs)
}
