package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	CommentStatusPending   = "pending"
	CommentStatusResponded = "responded"
	CommentStatusRejected  = "rejected"
)

// Comment is one inbound platform comment. GenerateResponse mirrors the
// content of the latest Reply and is only written together with it.
type Comment struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	MonitorID        uint           `gorm:"index;not null;uniqueIndex:idx_monitor_external" json:"monitor_id"`
	Monitor          *Monitor       `gorm:"foreignKey:MonitorID;constraint:OnDelete:CASCADE" json:"monitor,omitempty"`
	ExternalID       *string        `gorm:"size:100;uniqueIndex:idx_monitor_external" json:"external_id,omitempty"`
	Username         string         `gorm:"size:200" json:"username"`
	Text             string         `gorm:"type:text" json:"text"`
	MediaID          string         `gorm:"size:100" json:"media_id"`
	Status           string         `gorm:"size:20;default:pending;index" json:"status"`
	GenerateResponse string         `gorm:"type:text" json:"generate_response"`
	Payload          datatypes.JSON `json:"payload,omitempty"`
	ReceivedAt       time.Time      `gorm:"index" json:"received_at"`
	Tags             []CommentTag   `gorm:"foreignKey:CommentID" json:"tags,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (Comment) TableName() string { return "comments" }

// CommentTag is a free-form label on a comment.
type CommentTag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CommentID uint      `gorm:"uniqueIndex:idx_comment_tag;not null" json:"comment_id"`
	Comment   *Comment  `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"-"`
	Tag       string    `gorm:"uniqueIndex:idx_comment_tag;size:50;not null" json:"tag"`
	CreatedBy string    `gorm:"size:36" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func (CommentTag) TableName() string { return "comment_tags" }

// Reply is the authoritative record of a reply that reached the
// automation service.
type Reply struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CommentID  uint      `gorm:"index;not null" json:"comment_id"`
	Comment    *Comment  `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"comment,omitempty"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	ReviewedBy string    `gorm:"size:36;index" json:"reviewed_by"`
	Reviewer   *User     `gorm:"foreignKey:ReviewedBy;references:ID" json:"reviewer,omitempty"`
	ReviewedAt time.Time `gorm:"index" json:"reviewed_at"`
}

func (Reply) TableName() string { return "replies" }
