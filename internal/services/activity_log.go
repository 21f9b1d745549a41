package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/lucasfalb/aijarvis-system/internal/models"
	"github.com/lucasfalb/aijarvis-system/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maskedValue = "***"

var sensitiveKeys = map[string]bool{
	"access_token":  true,
	"webhook_token": true,
	"password":      true,
	"secret":        true,
}

type ActivityLogService struct {
	db *gorm.DB
}

func NewActivityLogService(db *gorm.DB) *ActivityLogService {
	return &ActivityLogService{db: db}
}

type ActivityLogListRequest struct {
	Limit    int    `form:"limit"`
	Entity   string `form:"entity"`
	EntityID string `form:"entity_id"`
	Mine     bool   `form:"mine"`
}

// Record appends an audit row. projectID is the project the entity
// belongs to, zero when there is none. Failures are logged and never
// fail the action that produced them.
func (s *ActivityLogService) Record(ctx context.Context, actor Actor, projectID uint, action, entity, entityID string, previous, updated interface{}) {
	entry := models.ActivityLog{
		UserID:       actor.ID,
		UserEmail:    actor.Email,
		Action:       action,
		Entity:       entity,
		EntityID:     entityID,
		PreviousData: maskedJSON(previous),
		UpdatedData:  maskedJSON(updated),
	}
	if projectID != 0 {
		entry.ProjectID = &projectID
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		logger.Warn().Err(err).Str("action", action).Str("entity", entity).Msg("failed to write activity log")
	}
}

// List returns the newest entries the caller may see: their own actions
// and those on projects they can view. Filters narrow that set further.
func (s *ActivityLogService) List(ctx context.Context, actor Actor, req *ActivityLogListRequest) ([]models.ActivityLog, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	projectIDs, err := s.viewableProjects(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&models.ActivityLog{})
	if len(projectIDs) > 0 {
		query = query.Where("user_id = ? OR project_id IN ?", actor.ID, projectIDs)
	} else {
		query = query.Where("user_id = ?", actor.ID)
	}
	if req.Entity != "" {
		query = query.Where("entity = ?", req.Entity)
	}
	if req.EntityID != "" {
		query = query.Where("entity_id = ?", req.EntityID)
	}
	if req.Mine {
		query = query.Where("user_id = ?", actor.ID)
	}

	var logs []models.ActivityLog
	err = query.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

func (s *ActivityLogService) viewableProjects(ctx context.Context, userID string) ([]uint, error) {
	var memberships []models.UserProject
	err := s.db.WithContext(ctx).
		Select("project_id", "role").
		Where("user_id = ?", userID).
		Find(&memberships).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(memberships))
	for _, m := range memberships {
		if m.Role.Can(models.ActionViewProject) {
			ids = append(ids, m.ProjectID)
		}
	}
	return ids, nil
}

// Cleanup deletes entries older than retentionDays. Zero keeps everything.
func (s *ActivityLogService) Cleanup(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.Where("created_at < ?", cutoff).Delete(&models.ActivityLog{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ScheduleCleanup registers the daily retention job on c.
func (s *ActivityLogService) ScheduleCleanup(c *cron.Cron, retentionDays int) error {
	if retentionDays <= 0 {
		logger.Info().Msg("activity log cleanup disabled (retention_days <= 0)")
		return nil
	}

	_, err := c.AddFunc("@daily", func() {
		deleted, err := s.Cleanup(retentionDays)
		if err != nil {
			logger.Error().Err(err).Msg("activity log cleanup failed")
			return
		}
		if deleted > 0 {
			logger.Info().Int64("deleted", deleted).Int("retention_days", retentionDays).Msg("activity log cleanup")
		}
	})
	return err
}

func maskedJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil
	}
	masked, err := json.Marshal(maskSensitive(decoded))
	if err != nil {
		return nil
	}
	return datatypes.JSON(masked)
}

func maskSensitive(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, inner := range val {
			if sensitiveKeys[strings.ToLower(k)] {
				if s, ok := inner.(string); ok && s == "" {
					continue
				}
				val[k] = maskedValue
				continue
			}
			val[k] = maskSensitive(inner)
		}
		return val
	case []interface{}:
		for i := range val {
			val[i] = maskSensitive(val[i])
		}
		return val
	default:
		return v
	}
}
