package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lucasfalb/aijarvis-system/internal/models"
	"gorm.io/gorm"
)

// HealthHandler reports whether the service can reach its database.
type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// CheckHealth returns the health status of all subsystems.
// GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := http.StatusOK

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "error: " + err.Error()
	}
	if dbStatus != "ok" {
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	var pending int64
	if dbStatus == "ok" {
		h.db.WithContext(c.Request.Context()).Model(&models.Comment{}).
			Where("status = ?", models.CommentStatusPending).
			Count(&pending)
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "aijarvis",
		"components": gin.H{
			"database":         dbStatus,
			"pending_comments": pending,
		},
	})
}
