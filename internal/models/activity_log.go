package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog is an append-only audit row written by mutating actions.
// ProjectID is nil for actions outside any project.
type ActivityLog struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       string         `gorm:"size:36;index" json:"user_id"`
	UserEmail    string         `gorm:"size:255" json:"user_email"`
	ProjectID    *uint          `gorm:"index" json:"project_id,omitempty"`
	Action       string         `gorm:"size:100;index" json:"action"`
	Entity       string         `gorm:"size:50;index:idx_entity" json:"entity"`
	EntityID     string         `gorm:"size:50;index:idx_entity" json:"entity_id"`
	PreviousData datatypes.JSON `json:"previous_data,omitempty"`
	UpdatedData  datatypes.JSON `json:"updated_data,omitempty"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
}

func (ActivityLog) TableName() string { return "activity_logs" }
