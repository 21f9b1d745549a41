package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lucasfalb/aijarvis-system/internal/models"
	"gorm.io/gorm"
)

const maxTagLength = 50

type CommentService struct {
	db       *gorm.DB
	authz    *Authorizer
	users    *UserService
	logs     *ActivityLogService
	poster   Poster
	replyURL string
}

func NewCommentService(db *gorm.DB, authz *Authorizer, users *UserService, logs *ActivityLogService, poster Poster, replyURL string) *CommentService {
	return &CommentService{db: db, authz: authz, users: users, logs: logs, poster: poster, replyURL: replyURL}
}

type CommentListRequest struct {
	ListRequest
	Status    string `form:"status"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Tag       string `form:"tag"`
}

type CommentListResponse struct {
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Items    []models.Comment `json:"items"`
}

// CommentDetail is a comment with its latest reply, if any.
type CommentDetail struct {
	models.Comment
	Reply *models.Reply `json:"reply,omitempty"`
}

type TagRequest struct {
	Tag string `json:"tag" binding:"required"`
}

// List returns one monitor's comments, newest received first.
func (s *CommentService) List(ctx context.Context, actor Actor, monitorID uint, req *CommentListRequest) (*CommentListResponse, error) {
	monitor, err := s.findMonitor(ctx, monitorID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.Require(ctx, actor.ID, monitor.ProjectID, models.ActionViewProject, ""); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&models.Comment{}).Where("monitor_id = ?", monitorID)
	return s.page(ctx, query, req)
}

// ListMine returns comments from every project the actor belongs to.
func (s *CommentService) ListMine(ctx context.Context, actor Actor, req *CommentListRequest) (*CommentListResponse, error) {
	projectIDs, err := s.authz.ProjectIDs(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if len(projectIDs) == 0 {
		req.normalize()
		return &CommentListResponse{Page: req.Page, PageSize: req.PageSize, Items: []models.Comment{}}, nil
	}

	query := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("monitor_id IN (?)", s.db.WithContext(ctx).Model(&models.Monitor{}).Select("id").Where("project_id IN ?", projectIDs))
	return s.page(ctx, query, req, "Monitor")
}

// page applies the filters and pagination. Associations are preloaded
// only for the page query, never for the count.
func (s *CommentService) page(ctx context.Context, query *gorm.DB, req *CommentListRequest, preloads ...string) (*CommentListResponse, error) {
	req.normalize()

	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.StartDate != "" {
		start, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return nil, validationError("start_date must be YYYY-MM-DD.")
		}
		query = query.Where("received_at >= ?", start)
	}
	if req.EndDate != "" {
		end, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			return nil, validationError("end_date must be YYYY-MM-DD.")
		}
		query = query.Where("received_at < ?", end.AddDate(0, 0, 1))
	}
	if tag := strings.TrimSpace(req.Tag); tag != "" {
		query = query.Where("id IN (?)", s.db.WithContext(ctx).Model(&models.CommentTag{}).Select("comment_id").Where("tag = ?", tag))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	query = query.Preload("Tags")
	for _, p := range preloads {
		query = query.Preload(p)
	}

	var comments []models.Comment
	err := query.
		Order("received_at DESC, id DESC").
		Offset(req.offset()).Limit(req.PageSize).
		Find(&comments).Error
	if err != nil {
		return nil, err
	}

	return &CommentListResponse{Total: total, Page: req.Page, PageSize: req.PageSize, Items: comments}, nil
}

func (s *CommentService) Get(ctx context.Context, actor Actor, id uint) (*CommentDetail, error) {
	comment, _, err := s.load(ctx, actor, id, models.ActionViewProject)
	if err != nil {
		return nil, err
	}

	detail := &CommentDetail{Comment: *comment}
	reply, err := s.latestReply(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Reply = reply
	return detail, nil
}

// Reject moves a pending comment to rejected.
func (s *CommentService) Reject(ctx context.Context, actor Actor, id uint) (*models.Comment, error) {
	comment, monitor, err := s.load(ctx, actor, id, models.ActionModerateComment)
	if err != nil {
		return nil, err
	}
	if comment.Status != models.CommentStatusPending {
		return nil, validationError("Only pending comments can be rejected.")
	}

	result := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ? AND status = ?", id, models.CommentStatusPending).
		Update("status", models.CommentStatusRejected)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, conflictError("Comment is no longer pending.")
	}
	comment.Status = models.CommentStatusRejected

	s.logs.Record(ctx, actor, monitor.ProjectID, "reject_comment", "comment", idString(id),
		map[string]string{"status": models.CommentStatusPending},
		map[string]string{"status": models.CommentStatusRejected})
	return comment, nil
}

func (s *CommentService) Delete(ctx context.Context, actor Actor, id uint) error {
	comment, monitor, err := s.load(ctx, actor, id, models.ActionModerateComment)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Comment{}, id).Error; err != nil {
		return err
	}

	s.logs.Record(ctx, actor, monitor.ProjectID, "delete_comment", "comment", idString(id), comment, nil)
	return nil
}

func (s *CommentService) ListTags(ctx context.Context, actor Actor, id uint) ([]models.CommentTag, error) {
	if _, _, err := s.load(ctx, actor, id, models.ActionViewProject); err != nil {
		return nil, err
	}

	var tags []models.CommentTag
	err := s.db.WithContext(ctx).Where("comment_id = ?", id).Order("created_at ASC, id ASC").Find(&tags).Error
	return tags, err
}

func (s *CommentService) AddTag(ctx context.Context, actor Actor, id uint, tag string) (*models.CommentTag, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" || len([]rune(tag)) > maxTagLength {
		return nil, validationError("Tag must be between 1 and 50 characters.")
	}
	_, monitor, err := s.load(ctx, actor, id, models.ActionModerateComment)
	if err != nil {
		return nil, err
	}

	ct := models.CommentTag{CommentID: id, Tag: tag, CreatedBy: actor.ID}
	if err := s.db.WithContext(ctx).Create(&ct).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictError("Tag already exists on this comment.")
		}
		return nil, err
	}

	s.logs.Record(ctx, actor, monitor.ProjectID, "add_comment_tag", "comment", idString(id), nil, map[string]string{"tag": tag})
	return &ct, nil
}

func (s *CommentService) RemoveTag(ctx context.Context, actor Actor, id uint, tag string) error {
	tag = strings.TrimSpace(tag)
	_, monitor, err := s.load(ctx, actor, id, models.ActionModerateComment)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Where("comment_id = ? AND tag = ?", id, tag).Delete(&models.CommentTag{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFoundError("Tag not found.")
	}

	s.logs.Record(ctx, actor, monitor.ProjectID, "remove_comment_tag", "comment", idString(id), map[string]string{"tag": tag}, nil)
	return nil
}

// load fetches a comment with its monitor and checks action against the
// monitor's project.
func (s *CommentService) load(ctx context.Context, actor Actor, id uint, action models.Action) (*models.Comment, *models.Monitor, error) {
	var comment models.Comment
	err := s.db.WithContext(ctx).Preload("Monitor").Preload("Tags").First(&comment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, notFoundError("Comment not found.")
	}
	if err != nil {
		return nil, nil, err
	}
	if comment.Monitor == nil {
		return nil, nil, notFoundError("Monitor not found")
	}
	if _, err := s.authz.Require(ctx, actor.ID, comment.Monitor.ProjectID, action, ""); err != nil {
		return nil, nil, err
	}
	return &comment, comment.Monitor, nil
}

func (s *CommentService) findMonitor(ctx context.Context, id uint) (*models.Monitor, error) {
	var monitor models.Monitor
	err := s.db.WithContext(ctx).First(&monitor, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError("Monitor not found")
	}
	if err != nil {
		return nil, err
	}
	return &monitor, nil
}
