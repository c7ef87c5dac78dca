package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/resumeprocessor/internal/app"
	"github.com/nikhilbhutani/resumeprocessor/internal/config"
	"github.com/nikhilbhutani/resumeprocessor/internal/queue"
	"github.com/nikhilbhutani/resumeprocessor/internal/queue/workers"
	"github.com/nikhilbhutani/resumeprocessor/internal/retry"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	app.SetupLogging(cfg.Log)

	a, err := app.New(context.Background(), cfg, false)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	backoff := retry.LLMPolicy()
	srv := asynq.NewServer(queue.RedisOpt(cfg.Redis), queue.ServerConfig(cfg.Queue.Concurrency, backoff.Backoff))

	registry := queue.NewHandlersRegistry()

	// Register workers
	resumeWorker := workers.NewResumeWorker(a.Orchestrator)
	registry.Register(queue.TypeResumeProcess, asynq.HandlerFunc(resumeWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", cfg.Queue.Concurrency)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
