package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/lucasfalb/aijarvis-system/internal/services"
	"github.com/lucasfalb/aijarvis-system/pkg/response"
)

// ProjectMemberHandler manages who can work on a project.
type ProjectMemberHandler struct {
	memberService *services.MemberService
}

func NewProjectMemberHandler(memberService *services.MemberService) *ProjectMemberHandler {
	return &ProjectMemberHandler{memberService: memberService}
}

// List returns all members of a project.
// GET /api/projects/:id/members
func (h *ProjectMemberHandler) List(c *gin.Context) {
	projectID, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	members, err := h.memberService.List(c.Request.Context(), actorFrom(c), projectID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, members)
}

// Share adds a registered user to the project by email.
// POST /api/projects/:id/members
func (h *ProjectMemberHandler) Share(c *gin.Context) {
	projectID, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	var req services.ShareProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	member, err := h.memberService.Share(c.Request.Context(), actorFrom(c), projectID, &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, member)
}

// UpdateRole changes a member's role.
// PUT /api/projects/:id/members/:userId
func (h *ProjectMemberHandler) UpdateRole(c *gin.Context) {
	projectID, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	var req services.UpdateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.memberService.UpdateRole(c.Request.Context(), actorFrom(c), projectID, c.Param("userId"), &req); err != nil {
		fail(c, err)
		return
	}
	response.OK(c)
}

// Remove removes a member from the project.
// DELETE /api/projects/:id/members/:userId
func (h *ProjectMemberHandler) Remove(c *gin.Context) {
	projectID, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	if err := h.memberService.Remove(c.Request.Context(), actorFrom(c), projectID, c.Param("userId")); err != nil {
		fail(c, err)
		return
	}
	response.OK(c)
}

// Leave removes the caller from the project.
// POST /api/projects/:id/leave
func (h *ProjectMemberHandler) Leave(c *gin.Context) {
	projectID, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	if err := h.memberService.Leave(c.Request.Context(), actorFrom(c), projectID); err != nil {
		fail(c, err)
		return
	}
	response.OK(c)
}
