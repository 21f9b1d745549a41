package main

import (
	"github.com/gin-gonic/gin"
	"github.com/lucasfalb/aijarvis-system/internal/config"
	"github.com/lucasfalb/aijarvis-system/internal/handlers"
	"github.com/lucasfalb/aijarvis-system/internal/middleware"
	"github.com/lucasfalb/aijarvis-system/pkg/logger"
)

// newEngine returns a bare engine that only believes X-Forwarded-For
// from the configured proxies.
func newEngine(cfg *config.Config) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, err
	}
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	return r, nil
}

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, cfg *config.Config, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.Use(middleware.CORS(cfg.App.CORSOrigins))
	r.Use(middleware.Metrics())

	r.GET("/health", svc.healthHandler.CheckHealth)
	r.GET("/metrics", handlers.Metrics())

	api := r.Group("/api")
	{
		// Platform webhooks (public, rate limited)
		hooks := api.Group("/webhook", svc.webhookLimiter.Middleware())
		{
			hooks.GET("/:monitorId", svc.webhookHandler.Verify)
			hooks.POST("/:monitorId", svc.webhookHandler.Receive)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthRequired(svc.userService))
		{
			// Profile
			protected.GET("/profile", svc.profileHandler.Get)
			protected.PUT("/profile", svc.profileHandler.Update)

			// Dashboard
			protected.GET("/dashboard/stats", svc.dashboardHandler.GetStats)

			// Projects
			protected.GET("/projects", svc.projectHandler.List)
			protected.GET("/projects/:id", svc.projectHandler.GetByID)
			protected.POST("/projects", svc.projectHandler.Create)
			protected.PUT("/projects/:id", svc.projectHandler.Update)
			protected.DELETE("/projects/:id", svc.projectHandler.Delete)

			// Project members
			protected.GET("/projects/:id/members", svc.memberHandler.List)
			protected.POST("/projects/:id/members", svc.memberHandler.Share)
			protected.PUT("/projects/:id/members/:userId", svc.memberHandler.UpdateRole)
			protected.DELETE("/projects/:id/members/:userId", svc.memberHandler.Remove)
			protected.POST("/projects/:id/leave", svc.memberHandler.Leave)

			// Project files
			protected.GET("/projects/:id/files", svc.fileHandler.List)
			protected.POST("/projects/:id/files", svc.fileHandler.Upload)
			protected.DELETE("/projects/:id/files/:fileId", svc.fileHandler.Delete)

			// Monitors
			protected.GET("/projects/:id/monitors", svc.monitorHandler.List)
			protected.GET("/monitors/:id", svc.monitorHandler.GetByID)
			protected.POST("/monitors", svc.monitorHandler.Create)
			protected.PUT("/monitors/:id", svc.monitorHandler.Update)
			protected.DELETE("/monitors/:id", svc.monitorHandler.Delete)
			protected.GET("/monitors/:id/comments", svc.commentHandler.ListByMonitor)

			// Comments
			protected.GET("/comments", svc.commentHandler.ListMine)
			protected.GET("/comments/:id", svc.commentHandler.GetByID)
			protected.DELETE("/comments/:id", svc.commentHandler.Delete)
			protected.POST("/comments/:id/reply", svc.commentHandler.Reply)
			protected.GET("/comments/:id/reply", svc.commentHandler.GetReply)
			protected.POST("/comments/:id/reject", svc.commentHandler.Reject)
			protected.GET("/comments/:id/media", svc.commentHandler.Media)
			protected.GET("/comments/:id/tags", svc.commentHandler.ListTags)
			protected.POST("/comments/:id/tags", svc.commentHandler.AddTag)
			protected.DELETE("/comments/:id/tags/:tag", svc.commentHandler.RemoveTag)

			// Replies
			protected.GET("/replies", svc.commentHandler.ListMyReplies)

			// Activity logs
			protected.GET("/activity-logs", svc.logHandler.List)
		}
	}
}
