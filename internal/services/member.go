package services

import (
	"context"
	"errors"
	"time"

	"github.com/lucasfalb/aijarvis-system/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const lastAdminMessage = "A project must keep at least one admin."

type MemberService struct {
	db    *gorm.DB
	authz *Authorizer
	users *UserService
	logs  *ActivityLogService
}

func NewMemberService(db *gorm.DB, authz *Authorizer, users *UserService, logs *ActivityLogService) *MemberService {
	return &MemberService{db: db, authz: authz, users: users, logs: logs}
}

type ShareProjectRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// Member is a membership row joined with the member's profile.
type Member struct {
	UserID    string      `json:"user_id"`
	Email     string      `json:"email"`
	FullName  string      `json:"full_name"`
	AvatarURL string      `json:"avatar_url"`
	Role      models.Role `json:"role"`
	JoinedAt  time.Time   `json:"joined_at"`
}

// Share adds an existing user to the project.
func (s *MemberService) Share(ctx context.Context, actor Actor, projectID uint, req *ShareProjectRequest) (*models.UserProject, error) {
	role, ok := models.ParseRole(req.Role)
	if !ok {
		return nil, validationError("Role must be admin, moderator or viewer.")
	}
	if _, err := s.authz.Require(ctx, actor.ID, projectID, models.ActionManageMembers, "Only admins can share this project."); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	if _, member, err := s.authz.Role(ctx, user.ID, projectID); err != nil {
		return nil, err
	} else if member {
		return nil, conflictError("User is already a member of this project.")
	}

	up := models.UserProject{ProjectID: projectID, UserID: user.ID, Role: role}
	if err := s.db.WithContext(ctx).Create(&up).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictError("User is already a member of this project.")
		}
		return nil, err
	}

	s.logs.Record(ctx, actor, projectID, "share_project", "project", idString(projectID), nil,
		map[string]interface{}{"user_id": user.ID, "email": user.Email, "role": role})
	return &up, nil
}

func (s *MemberService) List(ctx context.Context, actor Actor, projectID uint) ([]Member, error) {
	if _, err := s.authz.Require(ctx, actor.ID, projectID, models.ActionViewProject, ""); err != nil {
		return nil, err
	}

	var rows []models.UserProject
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ?", projectID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	members := make([]Member, 0, len(rows))
	for _, row := range rows {
		m := Member{UserID: row.UserID, Role: row.Role, JoinedAt: row.CreatedAt}
		if row.User != nil {
			m.Email = row.User.Email
			m.FullName = row.User.DisplayName()
			m.AvatarURL = row.User.AvatarURL
		}
		members = append(members, m)
	}
	return members, nil
}

func (s *MemberService) UpdateRole(ctx context.Context, actor Actor, projectID uint, userID string, req *UpdateMemberRoleRequest) error {
	role, ok := models.ParseRole(req.Role)
	if !ok {
		return validationError("Role must be admin, moderator or viewer.")
	}
	if _, err := s.authz.Require(ctx, actor.ID, projectID, models.ActionManageMembers, "Only admins can change member roles."); err != nil {
		return err
	}

	previous, err := s.change(ctx, projectID, userID, &role)
	if err != nil {
		return err
	}

	s.logs.Record(ctx, actor, projectID, "update_member_role", "project", idString(projectID),
		map[string]interface{}{"user_id": userID, "role": previous},
		map[string]interface{}{"user_id": userID, "role": role})
	return nil
}

func (s *MemberService) Remove(ctx context.Context, actor Actor, projectID uint, userID string) error {
	if _, err := s.authz.Require(ctx, actor.ID, projectID, models.ActionManageMembers, "Only admins can remove members."); err != nil {
		return err
	}

	previous, err := s.change(ctx, projectID, userID, nil)
	if err != nil {
		return err
	}

	s.logs.Record(ctx, actor, projectID, "remove_member", "project", idString(projectID),
		map[string]interface{}{"user_id": userID, "role": previous}, nil)
	return nil
}

// Leave removes the caller's own membership.
func (s *MemberService) Leave(ctx context.Context, actor Actor, projectID uint) error {
	previous, err := s.change(ctx, projectID, actor.ID, nil)
	if err != nil {
		return err
	}

	s.logs.Record(ctx, actor, projectID, "leave_project", "project", idString(projectID),
		map[string]interface{}{"user_id": actor.ID, "role": previous}, nil)
	return nil
}

// change is the one place a membership is downgraded or removed. The
// project's admin rows are locked for the duration of the transaction so
// two concurrent demotions cannot both see a second admin. A nil role
// removes the membership.
func (s *MemberService) change(ctx context.Context, projectID uint, userID string, role *models.Role) (models.Role, error) {
	var previous models.Role

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var admins []models.UserProject
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("project_id = ? AND role = ?", projectID, models.RoleAdmin).
			Find(&admins).Error; err != nil {
			return err
		}

		var target models.UserProject
		err := tx.Where("project_id = ? AND user_id = ?", projectID, userID).First(&target).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundError("Member not found.")
		}
		if err != nil {
			return err
		}
		previous = target.Role

		losesAdmin := target.Role == models.RoleAdmin && (role == nil || *role != models.RoleAdmin)
		if losesAdmin && len(admins) <= 1 {
			return invariantError(lastAdminMessage)
		}

		if role == nil {
			return tx.Delete(&target).Error
		}
		return tx.Model(&target).Update("role", *role).Error
	})
	return previous, err
}
