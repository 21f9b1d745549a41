package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aijarvis_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	rateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aijarvis_rate_limited_total",
			Help: "Requests rejected by the per-IP rate limiter",
		},
		[]string{"path"},
	)
	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aijarvis_webhook_events_total",
			Help: "Inbound platform webhook events by outcome",
		},
		[]string{"platform", "outcome"},
	)
	replyDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aijarvis_reply_deliveries_total",
			Help: "Replies sent to the automation service by result",
		},
		[]string{"success"},
	)
)

// Metrics records request duration labelled by route template so ids do
// not explode label cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestDuration.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func RecordRateLimited(path string) {
	if path == "" {
		path = "unmatched"
	}
	rateLimited.WithLabelValues(path).Inc()
}

// RecordWebhookEvent counts a relayed event. outcome is one of
// forwarded, forward_failed, queued or rejected.
func RecordWebhookEvent(platform, outcome string) {
	webhookEvents.WithLabelValues(platform, outcome).Inc()
}

func RecordReplyDelivery(success bool) {
	replyDeliveries.WithLabelValues(strconv.FormatBool(success)).Inc()
}
