package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lucasfalb/aijarvis-system/internal/middleware"
	"github.com/lucasfalb/aijarvis-system/internal/services/webhook"
	"github.com/lucasfalb/aijarvis-system/pkg/logger"
	"github.com/lucasfalb/aijarvis-system/pkg/response"
)

// maxWebhookBody caps inbound platform payloads.
const maxWebhookBody = 1 << 20

// WebhookHandler is the public, per-monitor platform callback endpoint.
type WebhookHandler struct {
	relay *webhook.Service
}

func NewWebhookHandler(relay *webhook.Service) *WebhookHandler {
	return &WebhookHandler{relay: relay}
}

// Verify answers the subscription handshake
// GET /api/webhook/:monitorId
func (h *WebhookHandler) Verify(c *gin.Context) {
	challenge, err := h.relay.Verify(c.Request.Context(),
		c.Param("monitorId"),
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
	)
	if err != nil {
		fail(c, err)
		return
	}
	c.String(http.StatusOK, challenge)
}

// Receive relays one event delivery
// POST /api/webhook/:monitorId
func (h *WebhookHandler) Receive(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	result, err := h.relay.Receive(c.Request.Context(), c.Param("monitorId"), body)
	if err != nil {
		middleware.RecordWebhookEvent("unknown", "rejected")
		fail(c, err)
		return
	}

	middleware.RecordWebhookEvent(result.Platform, result.Outcome)
	logger.Info().
		Str("monitor_id", c.Param("monitorId")).
		Str("platform", result.Platform).
		Str("outcome", result.Outcome).
		Int("ingested", result.Ingested).
		Msg("webhook event received")
	response.OK(c)
}
