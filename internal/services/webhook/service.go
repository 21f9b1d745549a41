package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/lucasfalb/aijarvis-system/internal/models"
	"github.com/lucasfalb/aijarvis-system/internal/services"
	"github.com/lucasfalb/aijarvis-system/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	msgInvalidVerification = "Invalid verification request"
	msgVerificationFailed  = "Verification failed"
	msgMonitorNotFound     = "Monitor not found"
	msgInvalidPayload      = "Invalid JSON payload"
)

// Forward outcomes reported in Result.
const (
	OutcomeForwarded     = "forwarded"
	OutcomeForwardFailed = "forward_failed"
	OutcomeDeferred      = "deferred"
	OutcomeSkipped       = "skipped"
)

// Result describes what happened to one inbound delivery.
type Result struct {
	Platform string
	Outcome  string
	Ingested int
}

// Service relays platform webhooks to the automation service and
// optionally stores the comments they carry.
type Service struct {
	db       *gorm.DB
	poster   services.Poster
	policy   services.DeliveryPolicy
	ingest   bool
	now      func() time.Time
	inflight sync.WaitGroup
}

type Option func(*Service)

// WithPolicy sets the delivery policy (default forward-then-ack).
func WithPolicy(p services.DeliveryPolicy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithIngestion turns comment ingestion on or off (default on).
func WithIngestion(enabled bool) Option {
	return func(s *Service) {
		s.ingest = enabled
	}
}

func NewService(db *gorm.DB, poster services.Poster, opts ...Option) *Service {
	s := &Service{
		db:     db,
		poster: poster,
		policy: services.ForwardThenAck,
		ingest: true,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify answers the platform's subscription handshake. It returns the
// challenge to echo back. It never writes.
func (s *Service) Verify(ctx context.Context, monitorID, mode, token, challenge string) (string, error) {
	if mode == "" || token == "" || challenge == "" {
		return "", services.NewError(services.ErrValidation, msgInvalidVerification, nil)
	}

	monitor, err := s.findMonitor(ctx, monitorID)
	if err != nil {
		return "", err
	}

	if mode == "subscribe" && token == monitor.WebhookToken {
		return challenge, nil
	}
	return "", services.NewError(services.ErrPermission, msgVerificationFailed, nil)
}

// Receive handles one event delivery for a monitor. The body is only
// read once the monitor is known. Downstream failures follow the
// configured policy; only a missing monitor, an unreadable or non-JSON
// body, a storage error or a failed required delivery are returned.
func (s *Service) Receive(ctx context.Context, monitorID string, r io.Reader) (*Result, error) {
	monitor, err := s.findMonitor(ctx, monitorID)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(r)
	if err != nil || !json.Valid(body) {
		return nil, services.NewError(services.ErrValidation, msgInvalidPayload, nil)
	}

	now := s.now()
	result := &Result{Platform: monitor.Platform}

	// Paused monitors still ack so the platform keeps the subscription.
	if monitor.Status == models.MonitorStatusInactive {
		result.Outcome = OutcomeSkipped
		return result, nil
	}

	if s.ingest {
		n, err := s.store(ctx, monitor, ExtractComments(body, now))
		if err != nil {
			return nil, err
		}
		result.Ingested = n
	}

	envelope := Envelope{
		MonitorID:   monitor.ID,
		AccountName: monitor.AccountName,
		Platform:    monitor.Platform,
		AccessToken: monitor.AccessToken,
		ProjectID:   monitor.ProjectID,
		ReceivedAt:  now.UTC().Format(time.RFC3339Nano),
		Data:        json.RawMessage(body),
	}

	if monitor.WebhookSend == "" {
		result.Outcome = OutcomeSkipped
		return result, nil
	}

	switch s.policy {
	case services.AckThenForward:
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			s.forward(context.WithoutCancel(ctx), monitor, envelope)
		}()
		result.Outcome = OutcomeDeferred
	case services.RequireDelivery:
		if _, err := s.poster.PostJSON(ctx, monitor.WebhookSend, envelope); err != nil {
			return nil, services.NewError(services.ErrDelivery, "Failed to forward event", err)
		}
		result.Outcome = OutcomeForwarded
	default:
		result.Outcome = s.forward(ctx, monitor, envelope)
	}
	return result, nil
}

// Wait blocks until background forwards have finished.
func (s *Service) Wait() {
	s.inflight.Wait()
}

func (s *Service) forward(ctx context.Context, monitor *models.Monitor, envelope Envelope) string {
	if _, err := s.poster.PostJSON(ctx, monitor.WebhookSend, envelope); err != nil {
		logger.Warn().Err(err).
			Uint("monitor_id", monitor.ID).
			Str("platform", monitor.Platform).
			Msg("failed to forward webhook event")
		return OutcomeForwardFailed
	}
	logger.Debug().Uint("monitor_id", monitor.ID).Msg("webhook event forwarded")
	return OutcomeForwarded
}

// store inserts pending comments, ignoring ones already seen for this
// monitor.
func (s *Service) store(ctx context.Context, monitor *models.Monitor, incoming []IncomingComment) (int, error) {
	if len(incoming) == 0 {
		return 0, nil
	}

	rows := make([]models.Comment, 0, len(incoming))
	for _, c := range incoming {
		externalID := c.ExternalID
		rows = append(rows, models.Comment{
			MonitorID:  monitor.ID,
			ExternalID: &externalID,
			Username:   c.Username,
			Text:       c.Text,
			MediaID:    c.MediaID,
			Status:     models.CommentStatusPending,
			Payload:    datatypes.JSON(c.Raw),
			ReceivedAt: c.ReceivedAt,
		})
	}

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "monitor_id"}, {Name: "external_id"}},
		DoNothing: true,
	}).Create(&rows)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

func (s *Service) findMonitor(ctx context.Context, rawID string) (*models.Monitor, error) {
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		return nil, services.NewError(services.ErrNotFound, msgMonitorNotFound, nil)
	}

	var monitor models.Monitor
	err = s.db.WithContext(ctx).First(&monitor, uint(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, services.NewError(services.ErrNotFound, msgMonitorNotFound, nil)
	}
	if err != nil {
		return nil, err
	}
	return &monitor, nil
}
