package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lucasfalb/aijarvis-system/internal/models"
	"github.com/lucasfalb/aijarvis-system/internal/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var startTime = time.Now()

// RegisterMetrics adds gauges that are read at scrape time: uptime,
// connection pool state, pending comments and media cache size.
func RegisterMetrics(reg prometheus.Registerer, db *gorm.DB, cache *services.MediaCache) error {
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "aijarvis_uptime_seconds",
			Help: "Time since server start in seconds",
		}, func() float64 { return time.Since(startTime).Seconds() }),

		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "aijarvis_pending_comments",
			Help: "Comments waiting for a reply",
		}, func() float64 {
			var n int64
			db.Model(&models.Comment{}).Where("status = ?", models.CommentStatusPending).Count(&n)
			return float64(n)
		}),

		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "aijarvis_media_cache_entries",
			Help: "Entries held by the media lookup cache",
		}, func() float64 { return float64(cache.Len()) }),
	}

	if sqlDB, err := db.DB(); err == nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "aijarvis_db_open_connections",
			Help: "Number of open DB connections",
		}, func() float64 { return float64(sqlDB.Stats().OpenConnections) }))
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Metrics serves the Prometheus exposition format.
// GET /metrics
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
