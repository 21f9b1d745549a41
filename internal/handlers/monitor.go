package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/lucasfalb/aijarvis-system/internal/services"
	"github.com/lucasfalb/aijarvis-system/pkg/response"
)

type MonitorHandler struct {
	monitorService *services.MonitorService
}

func NewMonitorHandler(monitorService *services.MonitorService) *MonitorHandler {
	return &MonitorHandler{monitorService: monitorService}
}

// List returns a project's monitors
// GET /api/projects/:id/monitors
func (h *MonitorHandler) List(c *gin.Context) {
	projectID, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	var req services.MonitorListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	monitors, err := h.monitorService.List(c.Request.Context(), actorFrom(c), projectID, &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, monitors)
}

// GetByID returns one monitor
// GET /api/monitors/:id
func (h *MonitorHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id", "monitor")
	if !ok {
		return
	}

	monitor, err := h.monitorService.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, monitor)
}

// Create registers a monitor
// POST /api/monitors
func (h *MonitorHandler) Create(c *gin.Context) {
	var req services.CreateMonitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	monitor, err := h.monitorService.Create(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, monitor)
}

// Update applies a partial update
// PUT /api/monitors/:id
func (h *MonitorHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id", "monitor")
	if !ok {
		return
	}

	var req services.UpdateMonitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	monitor, err := h.monitorService.Update(c.Request.Context(), actorFrom(c), id, &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, monitor)
}

// Delete deletes a monitor and its comments
// DELETE /api/monitors/:id
func (h *MonitorHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id", "monitor")
	if !ok {
		return
	}

	if err := h.monitorService.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		fail(c, err)
		return
	}
	response.OK(c)
}
