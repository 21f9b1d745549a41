package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/lucasfalb/aijarvis-system/internal/middleware"
	"github.com/lucasfalb/aijarvis-system/internal/services"
	"github.com/lucasfalb/aijarvis-system/pkg/response"
)

type CommentHandler struct {
	commentService *services.CommentService
	mediaService   *services.MediaService
}

func NewCommentHandler(commentService *services.CommentService, mediaService *services.MediaService) *CommentHandler {
	return &CommentHandler{commentService: commentService, mediaService: mediaService}
}

// ListByMonitor returns a monitor's comments
// GET /api/monitors/:id/comments
func (h *CommentHandler) ListByMonitor(c *gin.Context) {
	monitorID, ok := parseID(c, "id", "monitor")
	if !ok {
		return
	}

	var req services.CommentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.commentService.List(c.Request.Context(), actorFrom(c), monitorID, &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, resp)
}

// ListMine returns comments across the caller's projects
// GET /api/comments
func (h *CommentHandler) ListMine(c *gin.Context) {
	var req services.CommentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.commentService.ListMine(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, resp)
}

// GetByID returns a comment with its latest reply
// GET /api/comments/:id
func (h *CommentHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id", "comment")
	if !ok {
		return
	}

	comment, err := h.commentService.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, comment)
}

// Reply sends a reply through the automation service
// POST /api/comments/:id/reply
func (h *CommentHandler) Reply(c *gin.Context) {
	id, ok := parseID(c, "id", "comment")
	if !ok {
		return
	}

	var req services.ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	reply, err := h.commentService.Reply(c.Request.Context(), actorFrom(c), id, req.Text)
	if err != nil {
		if errors.Is(err, services.ErrDelivery) {
			middleware.RecordReplyDelivery(false)
		}
		fail(c, err)
		return
	}
	middleware.RecordReplyDelivery(true)
	response.Success(c, reply)
}

// GetReply returns the latest reply of a comment
// GET /api/comments/:id/reply
func (h *CommentHandler) GetReply(c *gin.Context) {
	id, ok := parseID(c, "id", "comment")
	if !ok {
		return
	}

	reply, err := h.commentService.GetReply(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, reply)
}

// ListMyReplies returns the replies sent by the caller
// GET /api/replies
func (h *CommentHandler) ListMyReplies(c *gin.Context) {
	var req services.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.commentService.ListMyReplies(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, resp)
}

// Reject marks a pending comment rejected
// POST /api/comments/:id/reject
func (h *CommentHandler) Reject(c *gin.Context) {
	id, ok := parseID(c, "id", "comment")
	if !ok {
		return
	}

	comment, err := h.commentService.Reject(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, comment)
}

// Delete hard-deletes a comment
// DELETE /api/comments/:id
func (h *CommentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id", "comment")
	if !ok {
		return
	}

	if err := h.commentService.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		fail(c, err)
		return
	}
	response.OK(c)
}

// ListTags returns a comment's tags
// GET /api/comments/:id/tags
func (h *CommentHandler) ListTags(c *gin.Context) {
	id, ok := parseID(c, "id", "comment")
	if !ok {
		return
	}

	tags, err := h.commentService.ListTags(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, tags)
}

// AddTag tags a comment
// POST /api/comments/:id/tags
func (h *CommentHandler) AddTag(c *gin.Context) {
	id, ok := parseID(c, "id", "comment")
	if !ok {
		return
	}

	var req services.TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	tag, err := h.commentService.AddTag(c.Request.Context(), actorFrom(c), id, req.Tag)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, tag)
}

// RemoveTag removes a tag from a comment
// DELETE /api/comments/:id/tags/:tag
func (h *CommentHandler) RemoveTag(c *gin.Context) {
	id, ok := parseID(c, "id", "comment")
	if !ok {
		return
	}

	if err := h.commentService.RemoveTag(c.Request.Context(), actorFrom(c), id, c.Param("tag")); err != nil {
		fail(c, err)
		return
	}
	response.OK(c)
}

// Media returns the Graph media the comment was left on
// GET /api/comments/:id/media
func (h *CommentHandler) Media(c *gin.Context) {
	id, ok := parseID(c, "id", "comment")
	if !ok {
		return
	}

	media, err := h.mediaService.ForComment(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, media)
}
