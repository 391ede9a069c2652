package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/davet/jobdigest/internal/api"
	"github.com/davet/jobdigest/internal/api/middleware"
	"github.com/davet/jobdigest/internal/config"
	"github.com/davet/jobdigest/internal/feed"
	"github.com/davet/jobdigest/internal/logger"
	"github.com/davet/jobdigest/internal/mailer"
	"github.com/davet/jobdigest/internal/queue"
	"github.com/davet/jobdigest/internal/service"
	"github.com/davet/jobdigest/internal/storage"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "jobdigest-api",
	})
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		appLogger.WithError(err).Fatal("Invalid configuration")
	}

	backend, err := storage.NewStore(&storage.S3Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}
	if err := backend.EnsureBucket(context.Background()); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure bucket")
	}

	store := queue.NewStore(backend, cfg.Storage.StateKey, appLogger)

	feedClient := feed.NewClient(&feed.Config{
		URL:       cfg.Feed.URL,
		Timeout:   cfg.Feed.Timeout,
		UserAgent: cfg.Feed.UserAgent,
	}, appLogger)

	mailClient := mailer.NewClient(&mailer.Config{
		BaseURL:    cfg.Mailer.BaseURL,
		APIKey:     cfg.Mailer.APIKey,
		ListID:     cfg.Mailer.ListID,
		FromName:   cfg.Mailer.FromName,
		FromEmail:  cfg.Mailer.FromEmail,
		ReplyTo:    cfg.Mailer.ReplyTo,
		AlertEmail: cfg.Mailer.AlertEmail,
		Timeout:    cfg.Mailer.Timeout,
	}, appLogger)

	dispatcher := service.NewDispatcher(
		feedClient,
		feedClient,
		store,
		mailClient,
		mailClient,
		service.Config{
			Threshold:         cfg.Queue.Threshold,
			BatchLimit:        cfg.Queue.BatchLimit,
			CleanupMaxAgeDays: cfg.Queue.CleanupMaxAgeDays,
		},
		appLogger,
	)

	router := api.SetupRouter(dispatcher, cfg.Server.Mode, middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithField("port", cfg.Server.Port).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Forced shutdown")
	}
	appLogger.Info("Server stopped")
}
