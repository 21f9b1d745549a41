package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/lucasfalb/aijarvis-system/internal/services"
	"github.com/lucasfalb/aijarvis-system/pkg/response"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// List returns the caller's projects
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projectService.List(c.Request.Context(), actorFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, projects)
}

// GetByID returns a project the caller belongs to
// GET /api/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	project, err := h.projectService.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, project)
}

// Create creates a project owned by the caller
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, project)
}

// Update updates a project
// PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	var req services.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), actorFrom(c), id, &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, project)
}

// Delete deletes a project
// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	if err := h.projectService.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		fail(c, err)
		return
	}
	response.OK(c)
}
