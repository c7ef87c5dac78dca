package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nikhilbhutani/resumeprocessor/internal/api"
	"github.com/nikhilbhutani/resumeprocessor/internal/app"
	"github.com/nikhilbhutani/resumeprocessor/internal/config"
	"github.com/nikhilbhutani/resumeprocessor/internal/document"
	"github.com/nikhilbhutani/resumeprocessor/internal/pipeline"
	"github.com/nikhilbhutani/resumeprocessor/internal/queue"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, true)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	var (
		dispatcher document.Dispatcher
		inline     *pipeline.InlineDispatcher
	)
	if cfg.Queue.Enabled {
		qc := queue.NewClient(cfg.Redis)
		defer qc.Close()
		dispatcher = qc
		slog.Info("dispatching resumes to worker queue", "redis", cfg.Redis.Addr)
	} else {
		inline = pipeline.NewInlineDispatcher(a.Orchestrator, cfg.Queue.Concurrency, 10*time.Minute)
		dispatcher = inline
		slog.Info("processing resumes in-process", "concurrency", cfg.Queue.Concurrency)
	}

	svc := document.NewService(a.Store, dispatcher, cfg.Intake.MaxUploadBytes)
	router := api.NewRouter(cfg, api.Deps{
		Resumes:    svc,
		Dispatcher: dispatcher,
		Checks:     a.Checks,
	})
	router.Start(ctx)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	if inline != nil {
		slog.Info("waiting for in-flight processing")
		inline.Wait()
	}
	slog.Info("server stopped")
}
