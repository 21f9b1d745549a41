package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/lucasfalb/aijarvis-system/internal/models"
	"gorm.io/gorm"
)

type ProjectService struct {
	db    *gorm.DB
	authz *Authorizer
	logs  *ActivityLogService
}

func NewProjectService(db *gorm.DB, authz *Authorizer, logs *ActivityLogService) *ProjectService {
	return &ProjectService{db: db, authz: authz, logs: logs}
}

type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// ProjectSummary is a project as seen by one member.
type ProjectSummary struct {
	models.Project
	Role         models.Role `json:"role"`
	MonitorCount int64       `json:"monitor_count"`
	MemberCount  int64       `json:"member_count"`
}

// Create inserts the project and makes the creator its admin in one
// transaction.
func (s *ProjectService) Create(ctx context.Context, actor Actor, req *CreateProjectRequest) (*models.Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationError("Project name is required.")
	}

	project := models.Project{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Status:      models.ProjectStatusActive,
		CreatedBy:   actor.ID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		return tx.Create(&models.UserProject{
			ProjectID: project.ID,
			UserID:    actor.ID,
			Role:      models.RoleAdmin,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.logs.Record(ctx, actor, project.ID, "create_project", "project", idString(project.ID), nil, project)
	return &project, nil
}

// List returns every project the actor belongs to, newest first.
func (s *ProjectService) List(ctx context.Context, actor Actor) ([]ProjectSummary, error) {
	var rows []struct {
		models.Project
		Role models.Role
	}
	err := s.db.WithContext(ctx).Model(&models.Project{}).
		Select("projects.*, user_projects.role AS role").
		Joins("JOIN user_projects ON user_projects.project_id = projects.id").
		Where("user_projects.user_id = ?", actor.ID).
		Order("projects.created_at DESC, projects.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	items := make([]ProjectSummary, 0, len(rows))
	for _, row := range rows {
		summary, err := s.summarize(ctx, row.Project, row.Role)
		if err != nil {
			return nil, err
		}
		items = append(items, summary)
	}
	return items, nil
}

func (s *ProjectService) Get(ctx context.Context, actor Actor, id uint) (*ProjectSummary, error) {
	project, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	role, err := s.authz.Require(ctx, actor.ID, id, models.ActionViewProject, "")
	if err != nil {
		return nil, err
	}

	summary, err := s.summarize(ctx, *project, role)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *ProjectService) Update(ctx context.Context, actor Actor, id uint, req *UpdateProjectRequest) (*models.Project, error) {
	project, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.Require(ctx, actor.ID, id, models.ActionManageProject, ""); err != nil {
		return nil, err
	}

	previous := *project
	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, validationError("Project name is required.")
		}
		updates["name"] = name
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		if *req.Status != models.ProjectStatusActive && *req.Status != models.ProjectStatusArchived {
			return nil, validationError("Status must be active or archived.")
		}
		updates["status"] = *req.Status
	}
	if len(updates) == 0 {
		return project, nil
	}

	if err := s.db.WithContext(ctx).Model(project).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).First(project, id).Error; err != nil {
		return nil, err
	}

	s.logs.Record(ctx, actor, id, "update_project", "project", idString(id), previous, updates)
	return project, nil
}

// Delete removes memberships first, then the project. Monitors and their
// comments go with the project through the foreign keys.
func (s *ProjectService) Delete(ctx context.Context, actor Actor, id uint) error {
	project, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.authz.Require(ctx, actor.ID, id, models.ActionManageProject, "You do not have permission to delete this project."); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.UserProject{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Project{}, id).Error
	})
	if err != nil {
		return err
	}

	s.logs.Record(ctx, actor, id, "delete_project", "project", idString(id), project, nil)
	return nil
}

func (s *ProjectService) find(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	err := s.db.WithContext(ctx).First(&project, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError("Project not found.")
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *ProjectService) summarize(ctx context.Context, project models.Project, role models.Role) (ProjectSummary, error) {
	summary := ProjectSummary{Project: project, Role: role}
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Monitor{}).Where("project_id = ?", project.ID).Count(&summary.MonitorCount).Error; err != nil {
		return summary, err
	}
	if err := db.Model(&models.UserProject{}).Where("project_id = ?", project.ID).Count(&summary.MemberCount).Error; err != nil {
		return summary, err
	}
	return summary, nil
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
