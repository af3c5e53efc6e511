package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/analytics"
	"github.com/odyssey-erp/odyssey-ledger/internal/observability"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

const testModeEnv = "LEDGER_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

// detectTestMode reads the LEDGER_TEST_MODE flag once.
func detectTestMode() {
	testModeFlag.Store(os.Getenv(testModeEnv) == "1")
}

// InTestMode reports whether the application should skip runtime side effects.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode updates the cached flag after environment changes.
func RefreshTestMode() {
	detectTestMode()
}

// Runtime bundles the long-lived connections and services shared by the
// server and the worker.
type Runtime struct {
	Config  *Config
	Logger  *slog.Logger
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Cache   *analytics.Cache
	Service *analytics.Service
	Metrics *observability.Metrics
}

// Open connects to Postgres and Redis and wires the report service.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("app: config required")
	}
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return nil, fmt.Errorf("app: connect postgres: %w", err)
	}
	client, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("app: connect redis: %w", err)
	}

	reportCache := analytics.NewCache(client, cfg.ReportCacheTTL)
	metrics := observability.NewMetrics()
	service := analytics.NewService(accounting.NewRepository(pool), reportCache, cfg.LedgerOptions(), logger)
	service.WithMetrics(metrics)

	return &Runtime{
		Config:  cfg,
		Logger:  logger,
		Pool:    pool,
		Redis:   client,
		Cache:   reportCache,
		Service: service,
		Metrics: metrics,
	}, nil
}

// ListenForInvalidation follows cache bumps published by other instances.
func (rt *Runtime) ListenForInvalidation(ctx context.Context) {
	if InTestMode() {
		return
	}
	if err := rt.Cache.ListenForInvalidation(ctx, ""); err != nil {
		rt.Logger.Warn("cache invalidation listener", slog.Any("error", err))
	}
}

// Close releases the connections.
func (rt *Runtime) Close() {
	if rt == nil {
		return
	}
	if rt.Redis != nil {
		if err := rt.Redis.Close(); err != nil {
			rt.Logger.Warn("redis close", slog.Any("error", err))
		}
	}
	if rt.Pool != nil {
		rt.Pool.Close()
	}
}
