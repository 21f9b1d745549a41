package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/lucasfalb/aijarvis-system/internal/services"
	"github.com/lucasfalb/aijarvis-system/pkg/response"
)

// ProfileHandler serves the caller's own profile.
type ProfileHandler struct {
	userService *services.UserService
}

func NewProfileHandler(userService *services.UserService) *ProfileHandler {
	return &ProfileHandler{userService: userService}
}

// Get returns the caller's profile
// GET /api/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	user, err := h.userService.GetProfile(c.Request.Context(), actorFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, user)
}

// Update changes the caller's display name
// PUT /api/profile
func (h *ProfileHandler) Update(c *gin.Context) {
	var req services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, user)
}
