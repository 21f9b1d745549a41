package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lucasfalb/aijarvis-system/internal/config"
	"github.com/lucasfalb/aijarvis-system/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)

	svc := bootstrap(cfg)

	gin.SetMode(cfg.Server.Mode)
	r, err := newEngine(cfg)
	if err != nil {
		logger.Fatalf("Invalid trusted proxies: %v", err)
	}
	registerRoutes(r, cfg, svc)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	svc.shutdown()
	logger.Info().Msg("Server exited")
}
