package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lucasfalb/aijarvis-system/internal/models"
	"github.com/lucasfalb/aijarvis-system/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserService struct {
	db   *gorm.DB
	logs *ActivityLogService
}

func NewUserService(db *gorm.DB, logs *ActivityLogService) *UserService {
	return &UserService{db: db, logs: logs}
}

type UpdateProfileRequest struct {
	FullName string `json:"full_name" binding:"required"`
}

// SyncUser upserts the users row from verified token claims. The full
// name is only taken from the token on first sight; afterwards it is
// owned by the profile endpoint.
func (s *UserService) SyncUser(ctx context.Context, claims *utils.Claims) error {
	now := time.Now()
	user := models.User{
		ID:         claims.UserID(),
		Email:      strings.ToLower(claims.Email),
		FullName:   claims.UserMetadata.FullName,
		AvatarURL:  claims.UserMetadata.AvatarURL,
		LastSeenAt: &now,
	}

	updates := []string{"email", "last_seen_at", "updated_at"}
	if user.AvatarURL != "" {
		updates = append(updates, "avatar_url")
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(&user).Error
}

// FindByEmail resolves a registered user by email, case-insensitively.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, validationError("Email is required.")
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError("User not found. They need to sign up first.")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) GetProfile(ctx context.Context, actor Actor) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", actor.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError("User not found.")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, actor Actor, req *UpdateProfileRequest) (*models.User, error) {
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, validationError("Full name is required.")
	}
	if len([]rune(name)) > 100 {
		return nil, validationError("Full name must be at most 100 characters.")
	}

	user, err := s.GetProfile(ctx, actor)
	if err != nil {
		return nil, err
	}
	previous := map[string]string{"full_name": user.FullName}

	if err := s.db.WithContext(ctx).Model(user).Update("full_name", name).Error; err != nil {
		return nil, err
	}
	user.FullName = name

	s.logs.Record(ctx, actor, 0, "update_profile", "user", actor.ID, previous, map[string]string{"full_name": name})
	return user, nil
}
