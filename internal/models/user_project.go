package models

import "time"

// UserProject is a user's membership and role within a project.
type UserProject struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"uniqueIndex:idx_project_user;not null" json:"project_id"`
	Project   *Project  `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"project,omitempty"`
	UserID    string    `gorm:"uniqueIndex:idx_project_user;size:36;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Role      Role      `gorm:"size:20;not null;default:viewer;index" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserProject) TableName() string { return "user_projects" }
