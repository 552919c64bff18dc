package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/duo-chat/internal/api"
	"github.com/dom/duo-chat/internal/config"
	"github.com/dom/duo-chat/internal/logging"
	"github.com/dom/duo-chat/internal/media"
	"github.com/dom/duo-chat/internal/repository/sqlstore"
	"github.com/dom/duo-chat/internal/service"
	"github.com/dom/duo-chat/internal/session"
	"github.com/dom/duo-chat/internal/websocket"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("failed to load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer lg.Sync()

	// Initialize database
	gormLevel := logger.Warn
	if cfg.IsDevelopment() {
		gormLevel = logger.Info
	}
	db, err := sqlstore.NewConnection(cfg.DatabaseDriver, cfg.DatabaseURL, gormLevel)
	if err != nil {
		lg.Fatal("failed to connect to database", zap.String("driver", cfg.DatabaseDriver), zap.Error(err))
	}

	// Initialize repositories
	repos := sqlstore.NewRepositories(db)

	uploader, err := media.New(cfg)
	if err != nil {
		lg.Fatal("failed to initialize media uploader", zap.String("backend", cfg.MediaBackend), zap.Error(err))
	}

	tokens := session.NewManager(cfg.JWTSecret, cfg.SessionTTL)

	// Initialize presence registry
	hub := websocket.NewHub(lg)

	// Initialize services
	services := service.NewServices(repos, tokens, uploader, hub, lg)

	// Initialize router
	router := api.NewRouter(services, hub, tokens, cfg, lg)

	// Create server
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		lg.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("environment", cfg.Environment),
			zap.String("database", cfg.DatabaseDriver),
			zap.String("media", cfg.MediaBackend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info("shutting down server")

	// Realtime connections are hijacked and not tracked by Shutdown.
	hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		lg.Fatal("server forced to shutdown", zap.Error(err))
	}

	lg.Info("server stopped")
}
