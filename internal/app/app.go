// Package app wires configuration into the services shared by the API,
// the worker and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/resumeprocessor/internal/api/handlers"
	"github.com/nikhilbhutani/resumeprocessor/internal/cache"
	"github.com/nikhilbhutani/resumeprocessor/internal/config"
	"github.com/nikhilbhutani/resumeprocessor/internal/database"
	"github.com/nikhilbhutani/resumeprocessor/internal/extraction"
	"github.com/nikhilbhutani/resumeprocessor/internal/llm"
	"github.com/nikhilbhutani/resumeprocessor/internal/pipeline"
	"github.com/nikhilbhutani/resumeprocessor/internal/redact"
	"github.com/nikhilbhutani/resumeprocessor/internal/retry"
	"github.com/nikhilbhutani/resumeprocessor/internal/store"
	"github.com/nikhilbhutani/resumeprocessor/internal/summarize"
)

type App struct {
	Config       *config.Config
	Store        store.Store
	Gateway      *llm.Gateway
	Orchestrator *pipeline.Orchestrator
	// Checks are the readiness checks for the dependencies in use.
	Checks map[string]handlers.Check

	db      *pgxpool.Pool
	redis   *redis.Client
	closers []func()
}

// New connects the configured store and model gateway. Postgres migrations
// run on startup when migrate is set.
func New(ctx context.Context, cfg *config.Config, migrate bool) (*App, error) {
	a := &App{Config: cfg, Checks: map[string]handlers.Check{}}

	st, err := a.openStore(ctx, migrate)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = st

	cred, err := llm.NewCredential(cfg.LLM)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("llm credential: %w", err)
	}
	a.Gateway = llm.NewGateway(cfg.LLM, cred)

	extractor, err := extraction.NewExtractor(a.Gateway)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build extractor: %w", err)
	}
	a.Orchestrator = pipeline.NewOrchestrator(
		a.Store,
		extractor,
		summarize.NewSummarizer(a.Gateway),
		redact.NewRedactor(a.Gateway),
		pipeline.WithSummaryWords(cfg.Intake.SummaryWords),
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context, migrate bool) (store.Store, error) {
	cfg := a.Config
	var st store.Store

	switch cfg.Store.Backend {
	case config.BackendMemory:
		slog.Warn("using in-memory document store; documents are lost on restart")
		st = store.NewMemoryStore()
	case config.BackendPostgres:
		pool, err := database.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.db = pool
		a.closers = append(a.closers, pool.Close)
		a.Checks["database"] = pool.Ping

		if migrate {
			if err := database.RunMigrations(ctx, pool); err != nil {
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		st = store.NewRetrying(store.NewPostgresStore(pool, store.Names{
			Raw:       cfg.Store.RawCollection,
			Processed: cfg.Store.ProcessedCollection,
		}), retry.StorePolicy())
	case config.BackendSQLite:
		sq, err := store.NewSQLiteStore(cfg.Store.SQLitePath, store.Names{
			Raw:       cfg.Store.RawCollection,
			Processed: cfg.Store.ProcessedCollection,
		})
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		a.closers = append(a.closers, func() { _ = sq.Close() })
		st = store.NewRetrying(sq, retry.StorePolicy())
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if cfg.Store.CacheTTL > 0 {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unavailable, document cache will fall through", "error", err)
		}
		a.redis = rdb
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		a.Checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		st = store.NewCached(st, cache.NewCache(rdb, cfg.Store.Database+":"), cfg.Store.CacheTTL)
	}
	return st, nil
}

// Pool returns the database pool, if the postgres backend is in use.
func (a *App) Pool() (*pgxpool.Pool, error) {
	if a.db == nil {
		return nil, errors.New("no database configured")
	}
	return a.db, nil
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// SetupLogging installs the JSON slog handler at the configured level.
func SetupLogging(cfg config.LogConfig) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
}
