package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

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
		ServiceName: "jobdigest-dispatch",
	})
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	configPath := flag.String("config", "", "Path to config file")
	schedule := flag.Bool("schedule", false, "Run on the configured cron schedule instead of once")
	statsOnly := flag.Bool("stats", false, "Print queue statistics and exit")
	cleanupDays := flag.Int("cleanup", 0, "Remove sent jobs older than N days and exit")
	reset := flag.Bool("reset", false, "Delete the queue document and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		appLogger.WithError(err).Fatal("Invalid configuration")
	}

	dispatcher, store, err := buildDispatcher(cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to wire dispatcher")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	switch {
	case *reset:
		if err := store.Reset(ctx); err != nil {
			appLogger.WithError(err).Fatal("Reset failed")
		}
		appLogger.Info("Queue document deleted")
	case *statsOnly:
		printJSON(dispatcher.Stats(ctx))
	case *cleanupDays > 0:
		state, err := store.Cleanup(ctx, *cleanupDays)
		if err != nil {
			appLogger.WithError(err).Fatal("Cleanup failed")
		}
		appLogger.WithFields(logger.Fields{
			"remaining": len(state.JobQueue),
			"pending":   state.PendingCount(),
		}).Info("Cleanup completed")
	case *schedule || cfg.Schedule.Enabled:
		runScheduled(ctx, cfg.Schedule.Cron, dispatcher, appLogger)
	default:
		result, err := dispatcher.RunCycle(ctx)
		printJSON(result)
		if err != nil {
			os.Exit(1)
		}
	}
}

// buildDispatcher wires storage, queue, feed and mailer into a dispatcher.
func buildDispatcher(cfg *config.Config, appLogger *logger.Logger) (*service.Dispatcher, *queue.Store, error) {
	backend, err := storage.NewStore(&storage.S3Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := backend.EnsureBucket(context.Background()); err != nil {
		return nil, nil, fmt.Errorf("failed to ensure bucket: %w", err)
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
	return dispatcher, store, nil
}

// runScheduled runs cycles on the cron schedule until the context is
// canceled. The schedule must not overlap invocations: the queue document
// has no lock, so two concurrent cycles could dispatch duplicates.
func runScheduled(ctx context.Context, spec string, dispatcher *service.Dispatcher, appLogger *logger.Logger) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		result, err := dispatcher.RunCycle(ctx)
		if err != nil {
			appLogger.WithError(err).Error("Scheduled cycle failed")
			return
		}
		appLogger.WithFields(logger.Fields{
			logger.FieldOutcome: string(result.Outcome),
			"message":           result.Message,
		}).Info("Scheduled cycle completed")
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Invalid cron schedule")
	}

	appLogger.WithField("cron", spec).Info("Scheduler started")
	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	appLogger.Info("Scheduler stopped")
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Println(string(data))
}
