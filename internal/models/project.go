package models

import "time"

const (
	ProjectStatusActive   = "active"
	ProjectStatusArchived = "archived"
)

// Project groups monitors and the people allowed to work on them.
type Project struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Status      string    `gorm:"size:20;default:active" json:"status"`
	CreatedBy   string    `gorm:"size:36" json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }
