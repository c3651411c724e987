package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/mhartman/cadence/internal/database"
	"github.com/mhartman/cadence/internal/tasks"
	"github.com/mhartman/cadence/internal/tenant"
	"github.com/mhartman/cadence/pkg/config"
	"github.com/mhartman/cadence/pkg/queue"
	"github.com/mhartman/cadence/pkg/util"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting Cadence worker")

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	tenantDB := tenant.NewDB(db, logger)
	client := queue.NewClient(&cfg.Redis)
	srv := queue.NewServer(&cfg.Redis, 10)

	handler := tasks.NewHandler(tenantDB, client, logger)

	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// Enqueue a scheduler tick every minute; the tick handler fans out
	// digest jobs for schedules that have come due.
	ticker := cron.New()
	if _, err := ticker.AddFunc("* * * * *", func() {
		if _, err := client.Enqueue(tasks.NewSchedulerTickTask()); err != nil {
			logger.Error("failed to enqueue scheduler tick", "error", err)
		}
	}); err != nil {
		logger.Error("failed to schedule tick", "error", err)
		os.Exit(1)
	}
	ticker.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		<-ticker.Stop().Done()
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	<-ctx.Done()

	client.Close()
	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
