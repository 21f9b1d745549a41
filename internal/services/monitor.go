package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lucasfalb/aijarvis-system/internal/config"
	"github.com/lucasfalb/aijarvis-system/internal/models"
	"gorm.io/gorm"
)

type MonitorService struct {
	db    *gorm.DB
	cfg   *config.Config
	authz *Authorizer
	logs  *ActivityLogService
}

func NewMonitorService(db *gorm.DB, cfg *config.Config, authz *Authorizer, logs *ActivityLogService) *MonitorService {
	return &MonitorService{db: db, cfg: cfg, authz: authz, logs: logs}
}

type CreateMonitorRequest struct {
	Name         string `json:"name"`
	AccessToken  string `json:"access_token"`
	ProjectID    uint   `json:"project_id"`
	Platform     string `json:"platform"`
	WebhookToken string `json:"webhook_token"`
}

// UpdateMonitorRequest applies only the fields that are set.
type UpdateMonitorRequest struct {
	Name           *string `json:"name"`
	AccessToken    *string `json:"access_token"`
	Platform       *string `json:"platform"`
	WebhookReceive *string `json:"webhook_receive"`
	WebhookSend    *string `json:"webhook_send"`
	WebhookToken   *string `json:"webhook_token"`
	Status         *string `json:"status"`
}

type MonitorListRequest struct {
	Status string `form:"status"`
}

// Create inserts the monitor and back-fills its receive URL, which
// embeds the new id, inside one transaction.
func (s *MonitorService) Create(ctx context.Context, actor Actor, req *CreateMonitorRequest) (*models.Monitor, error) {
	name := strings.TrimSpace(req.Name)
	token := strings.TrimSpace(req.AccessToken)
	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	if name == "" || token == "" || req.ProjectID == 0 || platform == "" {
		return nil, validationError("All required fields must be filled.")
	}
	if !models.ValidPlatform(platform) {
		return nil, validationError("Platform must be instagram or facebook.")
	}

	if _, err := s.authz.Require(ctx, actor.ID, req.ProjectID, models.ActionManageMonitors, "Only admins can create monitors."); err != nil {
		return nil, err
	}

	verifyToken := strings.TrimSpace(req.WebhookToken)
	if verifyToken == "" {
		verifyToken = uuid.NewString()
	}

	monitor := models.Monitor{
		ProjectID:    req.ProjectID,
		AccountName:  name,
		Platform:     platform,
		AccessToken:  token,
		WebhookSend:  s.cfg.Automation.WebhookURL,
		WebhookToken: verifyToken,
		Status:       models.MonitorStatusActive,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&monitor).Error; err != nil {
			return err
		}
		monitor.WebhookReceive = s.cfg.WebhookReceiveURL(monitor.ID)
		return tx.Model(&monitor).Update("webhook_receive", monitor.WebhookReceive).Error
	})
	if err != nil {
		return nil, err
	}

	s.logs.Record(ctx, actor, monitor.ProjectID, "create_monitor", "monitor", idString(monitor.ID), nil, monitor)
	return &monitor, nil
}

func (s *MonitorService) Update(ctx context.Context, actor Actor, id uint, req *UpdateMonitorRequest) (*models.Monitor, error) {
	monitor, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.Require(ctx, actor.ID, monitor.ProjectID, models.ActionManageMonitors, "Only admins can update monitors."); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	setTrimmed := func(column string, v *string) {
		if v != nil {
			updates[column] = strings.TrimSpace(*v)
		}
	}
	setTrimmed("account_name", req.Name)
	setTrimmed("access_token", req.AccessToken)
	setTrimmed("webhook_receive", req.WebhookReceive)
	setTrimmed("webhook_send", req.WebhookSend)
	setTrimmed("webhook_token", req.WebhookToken)

	if v, ok := updates["account_name"]; ok && v == "" {
		return nil, validationError("Account name cannot be empty.")
	}
	if v, ok := updates["access_token"]; ok && v == "" {
		return nil, validationError("Access token cannot be empty.")
	}
	if v, ok := updates["webhook_token"]; ok && v == "" {
		return nil, validationError("Verify token cannot be empty.")
	}
	if req.Platform != nil {
		platform := strings.ToLower(strings.TrimSpace(*req.Platform))
		if !models.ValidPlatform(platform) {
			return nil, validationError("Platform must be instagram or facebook.")
		}
		updates["platform"] = platform
	}
	if req.Status != nil {
		if *req.Status != models.MonitorStatusActive && *req.Status != models.MonitorStatusInactive {
			return nil, validationError("Status must be active or inactive.")
		}
		updates["status"] = *req.Status
	}
	if len(updates) == 0 {
		return monitor, nil
	}

	previous := *monitor
	if err := s.db.WithContext(ctx).Model(monitor).Updates(updates).Error; err != nil {
		return nil, err
	}
	updated, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logs.Record(ctx, actor, monitor.ProjectID, "update_monitor", "monitor", idString(id), previous, updates)
	return updated, nil
}

// Delete removes the monitor. Its comments go with it through the
// foreign key.
func (s *MonitorService) Delete(ctx context.Context, actor Actor, id uint) error {
	monitor, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.authz.Require(ctx, actor.ID, monitor.ProjectID, models.ActionManageMonitors, "Only admins can delete monitors."); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&models.Monitor{}, id).Error; err != nil {
		return err
	}

	s.logs.Record(ctx, actor, monitor.ProjectID, "delete_monitor", "monitor", idString(id), monitor, nil)
	return nil
}

// Get requires project membership, like the list.
func (s *MonitorService) Get(ctx context.Context, actor Actor, id uint) (*models.Monitor, error) {
	monitor, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.Require(ctx, actor.ID, monitor.ProjectID, models.ActionViewProject, ""); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("monitor_id = ? AND status = ?", id, models.CommentStatusPending).
		Count(&monitor.PendingCount).Error; err != nil {
		return nil, err
	}
	return monitor, nil
}

// List returns the project's monitors, newest first, each with its
// pending comment count.
func (s *MonitorService) List(ctx context.Context, actor Actor, projectID uint, req *MonitorListRequest) ([]models.Monitor, error) {
	if _, err := s.authz.Require(ctx, actor.ID, projectID, models.ActionViewProject, ""); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Where("project_id = ?", projectID)
	if req != nil && req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var monitors []models.Monitor
	if err := query.Order("created_at DESC, id DESC").Find(&monitors).Error; err != nil {
		return nil, err
	}
	if len(monitors) == 0 {
		return monitors, nil
	}

	ids := make([]uint, len(monitors))
	for i, m := range monitors {
		ids[i] = m.ID
	}
	var counts []struct {
		MonitorID uint
		Total     int64
	}
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Select("monitor_id, COUNT(*) AS total").
		Where("monitor_id IN ? AND status = ?", ids, models.CommentStatusPending).
		Group("monitor_id").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	pending := make(map[uint]int64, len(counts))
	for _, c := range counts {
		pending[c.MonitorID] = c.Total
	}
	for i := range monitors {
		monitors[i].PendingCount = pending[monitors[i].ID]
	}
	return monitors, nil
}

func (s *MonitorService) find(ctx context.Context, id uint) (*models.Monitor, error) {
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
