package main

import (
	"time"

	"github.com/lucasfalb/aijarvis-system/internal/config"
	"github.com/lucasfalb/aijarvis-system/internal/handlers"
	"github.com/lucasfalb/aijarvis-system/internal/middleware"
	"github.com/lucasfalb/aijarvis-system/internal/models"
	"github.com/lucasfalb/aijarvis-system/internal/services"
	"github.com/lucasfalb/aijarvis-system/internal/services/webhook"
	"github.com/lucasfalb/aijarvis-system/internal/utils"
	"github.com/lucasfalb/aijarvis-system/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// appServices holds everything the router and shutdown path need.
type appServices struct {
	db             *gorm.DB
	relay          *webhook.Service
	scheduler      *cron.Cron
	webhookLimiter *middleware.RateLimiter

	userService *services.UserService

	healthHandler    *handlers.HealthHandler
	webhookHandler   *handlers.WebhookHandler
	projectHandler   *handlers.ProjectHandler
	memberHandler    *handlers.ProjectMemberHandler
	monitorHandler   *handlers.MonitorHandler
	commentHandler   *handlers.CommentHandler
	fileHandler      *handlers.FileHandler
	dashboardHandler *handlers.DashboardHandler
	profileHandler   *handlers.ProfileHandler
	logHandler       *handlers.ActivityLogHandler
}

// bootstrap initializes the database, services, handlers and schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.Auth.JWTSecret)
	utils.SetJWTValidation(cfg.Auth.Issuer, cfg.Auth.Audience)
	if cfg.Auth.JWTSecret == "" {
		logger.Warn().Msg("AUTH_JWT_SECRET is empty, every bearer token will be rejected")
	}

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	db := models.GetDB()

	if err := models.AutoMigrate(db); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	policy, err := services.ParseDeliveryPolicy(cfg.Relay.DeliveryMode)
	if err != nil {
		logger.Fatalf("Invalid relay delivery mode: %v", err)
	}

	automation := services.NewAutomationClient(
		services.WithTimeout(time.Duration(cfg.Automation.TimeoutSeconds) * time.Second),
	)
	graph := services.NewGraphClient(cfg.Graph.InstagramBaseURL, cfg.Graph.FacebookBaseURL, 10*time.Second)
	mediaCache := services.NewMediaCache(graph, time.Duration(cfg.Graph.CacheTTLMinutes)*time.Minute, cfg.Graph.CacheMaxEntries)

	logs := services.NewActivityLogService(db)
	authz := services.NewAuthorizer(db)
	users := services.NewUserService(db, logs)
	projects := services.NewProjectService(db, authz, logs)
	members := services.NewMemberService(db, authz, users, logs)
	monitors := services.NewMonitorService(db, cfg, authz, logs)
	comments := services.NewCommentService(db, authz, users, logs, automation, cfg.Automation.WebhookURL)
	media := services.NewMediaService(comments, mediaCache)
	files := services.NewFileService(authz, logs, automation, cfg.Automation.WebhookURL)
	dashboard := services.NewDashboardService(db, authz)

	relay := webhook.NewService(db, automation,
		webhook.WithPolicy(policy),
		webhook.WithIngestion(cfg.Relay.IngestComments),
	)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every 5m", func() {
		if n := mediaCache.Sweep(); n > 0 {
			logger.Debug().Int("evicted", n).Msg("Media cache swept")
		}
	}); err != nil {
		logger.Fatalf("Failed to schedule media cache sweep: %v", err)
	}
	if err := logs.ScheduleCleanup(scheduler, cfg.Log.RetentionDays); err != nil {
		logger.Fatalf("Failed to schedule activity log cleanup: %v", err)
	}
	scheduler.Start()

	if err := handlers.RegisterMetrics(prometheus.DefaultRegisterer, db, mediaCache); err != nil {
		logger.Warn().Err(err).Msg("Failed to register runtime metrics")
	}

	return &appServices{
		db:             db,
		relay:          relay,
		scheduler:      scheduler,
		webhookLimiter: middleware.NewRateLimiter(cfg.RateLimit.WebhookRPS, cfg.RateLimit.WebhookBurst),

		userService: users,

		healthHandler:    handlers.NewHealthHandler(db),
		webhookHandler:   handlers.NewWebhookHandler(relay),
		projectHandler:   handlers.NewProjectHandler(projects),
		memberHandler:    handlers.NewProjectMemberHandler(members),
		monitorHandler:   handlers.NewMonitorHandler(monitors),
		commentHandler:   handlers.NewCommentHandler(comments, media),
		fileHandler:      handlers.NewFileHandler(files),
		dashboardHandler: handlers.NewDashboardHandler(dashboard),
		profileHandler:   handlers.NewProfileHandler(users),
		logHandler:       handlers.NewActivityLogHandler(logs),
	}
}

// shutdown stops schedulers and waits for deferred relay deliveries.
func (s *appServices) shutdown() {
	<-s.scheduler.Stop().Done()
	logger.Info().Msg("Schedulers stopped")

	s.webhookLimiter.Stop()
	s.relay.Wait()

	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}
