package services

import (
	"context"
	"errors"

	"github.com/lucasfalb/aijarvis-system/internal/models"
	"gorm.io/gorm"
)

var deniedMessages = map[models.Action]string{
	models.ActionViewProject:     "You do not have access to this project.",
	models.ActionManageProject:   "You do not have permission to update this project.",
	models.ActionManageMembers:   "Only admins can manage project members.",
	models.ActionManageMonitors:  "Only admins can manage monitors.",
	models.ActionManageFiles:     "Only admins can manage project files.",
	models.ActionReplyComment:    "You do not have permission to reply to comments.",
	models.ActionModerateComment: "You do not have permission to moderate comments.",
}

// Authorizer answers capability questions from the membership table. It
// never caches: every call reads the caller's current row.
type Authorizer struct {
	db *gorm.DB
}

func NewAuthorizer(db *gorm.DB) *Authorizer {
	return &Authorizer{db: db}
}

// Role returns the caller's role in the project, or ok=false when the
// caller is not a member.
func (a *Authorizer) Role(ctx context.Context, userID string, projectID uint) (models.Role, bool, error) {
	var up models.UserProject
	err := a.db.WithContext(ctx).
		Select("role").
		Where("user_id = ? AND project_id = ?", userID, projectID).
		First(&up).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return up.Role, true, nil
}

// Require fails with a PermissionError unless the caller's role allows
// action on the project. denied overrides the default message.
func (a *Authorizer) Require(ctx context.Context, userID string, projectID uint, action models.Action, denied string) (models.Role, error) {
	role, ok, err := a.Role(ctx, userID, projectID)
	if err != nil {
		return "", err
	}
	if !ok || !role.Can(action) {
		if denied == "" {
			denied = deniedMessages[action]
		}
		return "", permissionError(denied)
	}
	return role, nil
}

// ProjectIDs lists the projects the user belongs to.
func (a *Authorizer) ProjectIDs(ctx context.Context, userID string) ([]uint, error) {
	var ids []uint
	err := a.db.WithContext(ctx).Model(&models.UserProject{}).
		Where("user_id = ?", userID).
		Pluck("project_id", &ids).Error
	return ids, err
}
