package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lucasfalb/aijarvis-system/internal/models"
	"github.com/lucasfalb/aijarvis-system/pkg/logger"
	"gorm.io/gorm"
)

const routeFlowReplyComment = "reply_comment"

type ReplyRequest struct {
	Text string `json:"text" binding:"required"`
}

// ReplyEnvelope is what the automation service receives for a reply.
type ReplyEnvelope struct {
	RouteFlow    string       `json:"route_flow"`
	CommentID    uint         `json:"commentId"`
	ExternalID   string       `json:"externalId,omitempty"`
	OriginalText string       `json:"originalText"`
	RepliedText  string       `json:"repliedText"`
	Username     string       `json:"username"`
	MediaID      string       `json:"mediaId"`
	Monitor      ReplyMonitor `json:"monitor"`
	User         ReplyUser    `json:"user"`
}

type ReplyMonitor struct {
	ID          uint   `json:"id"`
	AccountName string `json:"account_name"`
	Platform    string `json:"platform"`
	AccessToken string `json:"access_token"`
}

type ReplyUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Reply sends text to the automation service and, only once it answered
// 2xx, records the Reply and marks the comment responded in one
// transaction. Any delivery failure leaves the comment untouched.
func (s *CommentService) Reply(ctx context.Context, actor Actor, id uint, text string) (*models.Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationError("Reply text is required.")
	}

	comment, monitor, err := s.load(ctx, actor, id, models.ActionReplyComment)
	if err != nil {
		return nil, err
	}
	if comment.Status != models.CommentStatusPending {
		return nil, validationError("Only pending comments can be replied to.")
	}
	if s.replyURL == "" {
		return nil, deliveryError("Webhook URL not configured", nil)
	}

	user, err := s.users.GetProfile(ctx, actor)
	if err != nil {
		return nil, err
	}

	envelope := ReplyEnvelope{
		RouteFlow:    routeFlowReplyComment,
		CommentID:    comment.ID,
		OriginalText: comment.Text,
		RepliedText:  text,
		Username:     comment.Username,
		MediaID:      comment.MediaID,
		Monitor: ReplyMonitor{
			ID:          monitor.ID,
			AccountName: monitor.AccountName,
			Platform:    monitor.Platform,
			AccessToken: monitor.AccessToken,
		},
		User: ReplyUser{
			ID:       user.ID,
			Email:    user.Email,
			FullName: user.DisplayName(),
		},
	}
	if comment.ExternalID != nil {
		envelope.ExternalID = *comment.ExternalID
	}

	if _, err := s.poster.PostJSON(ctx, s.replyURL, envelope); err != nil {
		logger.Warn().Err(err).Uint("comment_id", id).Msg("reply delivery failed")
		return nil, deliveryError("Failed to send reply: "+err.Error(), err)
	}

	reply := models.Reply{
		CommentID:  id,
		Content:    text,
		ReviewedBy: actor.ID,
		ReviewedAt: time.Now(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&reply).Error; err != nil {
			return err
		}
		return tx.Model(&models.Comment{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":            models.CommentStatusResponded,
			"generate_response": text,
		}).Error
	})
	if err != nil {
		logger.Error().Err(err).Uint("comment_id", id).Msg("reply delivered but not recorded")
		return nil, err
	}

	s.logs.Record(ctx, actor, monitor.ProjectID, "reply_comment", "comment", idString(id),
		map[string]string{"status": comment.Status, "generate_response": comment.GenerateResponse},
		map[string]string{"status": models.CommentStatusResponded, "generate_response": text})

	reply.Reviewer = user
	return &reply, nil
}

// GetReply returns the latest reply of a comment with the reviewer.
func (s *CommentService) GetReply(ctx context.Context, actor Actor, id uint) (*models.Reply, error) {
	if _, _, err := s.load(ctx, actor, id, models.ActionViewProject); err != nil {
		return nil, err
	}

	reply, err := s.latestReply(ctx, id)
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, notFoundError("Reply not found.")
	}
	return reply, nil
}

type ReplyListResponse struct {
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Items    []models.Reply `json:"items"`
}

// ListMyReplies returns the replies the actor sent, newest first.
func (s *CommentService) ListMyReplies(ctx context.Context, actor Actor, req *ListRequest) (*ReplyListResponse, error) {
	req.normalize()

	query := s.db.WithContext(ctx).Model(&models.Reply{}).Where("reviewed_by = ?", actor.ID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var replies []models.Reply
	err := query.Preload("Comment").Preload("Reviewer").
		Order("reviewed_at DESC, id DESC").
		Offset(req.offset()).Limit(req.PageSize).
		Find(&replies).Error
	if err != nil {
		return nil, err
	}

	return &ReplyListResponse{Total: total, Page: req.Page, PageSize: req.PageSize, Items: replies}, nil
}

func (s *CommentService) latestReply(ctx context.Context, commentID uint) (*models.Reply, error) {
	var reply models.Reply
	err := s.db.WithContext(ctx).Preload("Reviewer").
		Where("comment_id = ?", commentID).
		Order("reviewed_at DESC, id DESC").
		First(&reply).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reply, nil
}
