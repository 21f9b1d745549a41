package services

import (
	"context"
	"time"

	"github.com/lucasfalb/aijarvis-system/internal/models"
	"gorm.io/gorm"
)

type DashboardService struct {
	db    *gorm.DB
	authz *Authorizer
}

func NewDashboardService(db *gorm.DB, authz *Authorizer) *DashboardService {
	return &DashboardService{db: db, authz: authz}
}

// DashboardStatsRequest narrows comment counts to a received_at window.
// Both bounds are optional.
type DashboardStatsRequest struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

type DashboardStats struct {
	Projects          int64 `json:"projects"`
	Monitors          int64 `json:"monitors"`
	PendingComments   int64 `json:"pending_comments"`
	RespondedComments int64 `json:"responded_comments"`
	RejectedComments  int64 `json:"rejected_comments"`
	RepliesSent       int64 `json:"replies_sent"`
}

type ProjectStats struct {
	ProjectID   uint   `json:"project_id"`
	ProjectName string `json:"project_name"`
	Monitors    int64  `json:"monitors"`
	Pending     int64  `json:"pending"`
	Responded   int64  `json:"responded"`
	Rejected    int64  `json:"rejected"`
}

type DashboardResponse struct {
	Stats        DashboardStats `json:"stats"`
	ProjectStats []ProjectStats `json:"project_stats"`
}

func (s *DashboardService) GetStats(ctx context.Context, actor Actor, req *DashboardStatsRequest) (*DashboardResponse, error) {
	var start, end *time.Time
	if req.StartDate != "" {
		t, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return nil, validationError("start_date must be YYYY-MM-DD.")
		}
		start = &t
	}
	if req.EndDate != "" {
		t, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			return nil, validationError("end_date must be YYYY-MM-DD.")
		}
		t = t.AddDate(0, 0, 1)
		end = &t
	}

	projectIDs, err := s.authz.ProjectIDs(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	resp := &DashboardResponse{ProjectStats: []ProjectStats{}}
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.Reply{}).Where("reviewed_by = ?", actor.ID).Count(&resp.Stats.RepliesSent).Error; err != nil {
		return nil, err
	}
	if len(projectIDs) == 0 {
		return resp, nil
	}
	resp.Stats.Projects = int64(len(projectIDs))

	var projects []models.Project
	if err := db.Where("id IN ?", projectIDs).Order("name ASC").Find(&projects).Error; err != nil {
		return nil, err
	}

	var monitorRows []struct {
		ProjectID uint
		Total     int64
	}
	if err := db.Model(&models.Monitor{}).
		Select("project_id, COUNT(*) AS total").
		Where("project_id IN ?", projectIDs).
		Group("project_id").
		Scan(&monitorRows).Error; err != nil {
		return nil, err
	}

	commentQuery := db.Model(&models.Comment{}).
		Select("monitors.project_id AS project_id, comments.status AS status, COUNT(*) AS total").
		Joins("JOIN monitors ON monitors.id = comments.monitor_id").
		Where("monitors.project_id IN ?", projectIDs)
	if start != nil {
		commentQuery = commentQuery.Where("comments.received_at >= ?", *start)
	}
	if end != nil {
		commentQuery = commentQuery.Where("comments.received_at < ?", *end)
	}
	var commentRows []struct {
		ProjectID uint
		Status    string
		Total     int64
	}
	if err := commentQuery.Group("monitors.project_id, comments.status").Scan(&commentRows).Error; err != nil {
		return nil, err
	}

	byProject := make(map[uint]*ProjectStats, len(projects))
	for _, p := range projects {
		resp.ProjectStats = append(resp.ProjectStats, ProjectStats{ProjectID: p.ID, ProjectName: p.Name})
	}
	for i := range resp.ProjectStats {
		byProject[resp.ProjectStats[i].ProjectID] = &resp.ProjectStats[i]
	}

	for _, row := range monitorRows {
		resp.Stats.Monitors += row.Total
		if ps, ok := byProject[row.ProjectID]; ok {
			ps.Monitors = row.Total
		}
	}
	for _, row := range commentRows {
		ps := byProject[row.ProjectID]
		switch row.Status {
		case models.CommentStatusPending:
			resp.Stats.PendingComments += row.Total
			if ps != nil {
				ps.Pending = row.Total
			}
		case models.CommentStatusResponded:
			resp.Stats.RespondedComments += row.Total
			if ps != nil {
				ps.Responded = row.Total
			}
		case models.CommentStatusRejected:
			resp.Stats.RejectedComments += row.Total
			if ps != nil {
				ps.Rejected = row.Total
			}
		}
	}

	return resp, nil
}
