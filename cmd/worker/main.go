package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notibell/internal/config"
	"notibell/internal/domain/notification"
	"notibell/internal/infra/groups"
	"notibell/internal/infra/queue"
	"notibell/internal/infra/store"

	"github.com/hibiken/asynq"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("worker configuration loaded")

	// ==========================================
	// Dependency Injection (Manual Wiring)
	// ==========================================

	// Redis store adapter
	db := store.NewRedisStore(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	defer db.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.Ping(pingCtx); err != nil {
		pingCancel()
		slog.Error("failed to reach redis", "error", err)
		os.Exit(1)
	}
	pingCancel()
	slog.Info("redis store initialized", "address", cfg.Redis.Address)

	// Group membership resolver (reads the platform's group sets)
	groupResolver := groups.NewRedisResolver(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	defer groupResolver.Close()

	// Domain components
	notifStore := notification.NewStore(db)
	engine := notification.NewEngine(db, groupResolver)
	notifWorker := notification.NewWorker(notifStore, engine)

	// ==========================================
	// Asynq Server (task processing)
	// ==========================================

	asynqServer := queue.NewServer(
		cfg.Redis.Address,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Queue.Concurrency,
	)

	// Register task handlers
	mux := asynq.NewServeMux()
	mux.HandleFunc(notification.TaskTypeFanout, func(ctx context.Context, task *asynq.Task) error {
		payload, err := notification.ParseFanoutPayload(task.Payload())
		if err != nil {
			return err
		}
		return notifWorker.ProcessFanout(ctx, payload)
	})

	// Start the asynq worker in a goroutine
	go func() {
		slog.Info("worker starting",
			"concurrency", cfg.Queue.Concurrency,
			"redis", cfg.Redis.Address,
		)
		if err := asynqServer.Run(mux); err != nil {
			slog.Error("worker failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// ==========================================
	// Retention Pruner
	// ==========================================

	prunerCtx, prunerCancel := context.WithCancel(context.Background())
	defer prunerCancel()

	pruner := notification.NewPruner(notifStore, notification.PrunerConfig{
		Interval:  time.Duration(cfg.Pruner.IntervalSec) * time.Second,
		Retention: time.Duration(cfg.Pruner.RetentionDays) * 24 * time.Hour,
	})

	go pruner.Run(prunerCtx)

	// ==========================================
	// Graceful Shutdown
	// ==========================================

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	prunerCancel() // Stop the pruner first
	asynqServer.Shutdown()
	slog.Info("worker exited gracefully")
}
