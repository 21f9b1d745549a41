package models

import (
	"strings"
	"time"
)

// User mirrors the identity issued by the hosted auth service. Rows are
// upserted from verified token claims; this service never stores
// credentials.
type User struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	Email      string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FullName   string     `gorm:"size:200" json:"full_name"`
	AvatarURL  string     `gorm:"size:500" json:"avatar_url"`
	LastSeenAt *time.Time `json:"last_seen_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// DisplayName falls back to the email local part, then a placeholder.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	if at := strings.IndexByte(u.Email, '@'); at > 0 {
		return u.Email[:at]
	}
	return "Unknown User"
}
