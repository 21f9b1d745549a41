package models

import "time"

const (
	PlatformInstagram = "instagram"
	PlatformFacebook  = "facebook"

	MonitorStatusActive   = "active"
	MonitorStatusInactive = "inactive"
)

// Monitor is one watched social account. WebhookReceive embeds the id
// and is therefore back-filled right after the insert.
type Monitor struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ProjectID      uint      `gorm:"index;not null" json:"project_id"`
	Project        *Project  `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	AccountName    string    `gorm:"size:200;not null" json:"account_name"`
	Platform       string    `gorm:"size:20;not null" json:"platform"`
	AccessToken    string    `gorm:"size:1000" json:"-"`
	WebhookReceive string    `gorm:"size:500" json:"webhook_receive"`
	WebhookSend    string    `gorm:"size:500" json:"webhook_send"`
	WebhookToken   string    `gorm:"size:255" json:"webhook_token"`
	Status         string    `gorm:"size:20;default:active" json:"status"`
	PendingCount   int64     `gorm:"-" json:"pending_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Monitor) TableName() string { return "monitors" }

// ValidPlatform reports whether p is a supported platform.
func ValidPlatform(p string) bool {
	return p == PlatformInstagram || p == PlatformFacebook
}

