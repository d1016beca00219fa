// Package app wires configuration into a running set of components: the
// price store, the ingestion lock, the search client, the service and its
// HTTP handler.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/valeevte/pricetrail/internal/config"
	"github.com/valeevte/pricetrail/internal/database"
	"github.com/valeevte/pricetrail/internal/lock"
	"github.com/valeevte/pricetrail/internal/prices"
	"github.com/valeevte/pricetrail/internal/shopping"
)

type App struct {
	Config  *config.Config
	Log     *slog.Logger
	Repo    prices.Repository
	Service *prices.Service
	Handler *prices.Handler

	sqlDB  *sql.DB
	pgPool *pgxpool.Pool
	rdb    *redis.Client
}

// New opens the configured store and builds the service graph. The caller
// must Close the returned App.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{Config: cfg, Log: log}

	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := database.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.pgPool = pool
		a.Repo = prices.NewPostgresRepository(pool)
		log.Info("connected to postgres")
	default:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.sqlDB = db
		a.Repo = prices.NewSQLiteRepository(db)
		log.Info("opened sqlite store", "path", cfg.SQLitePath)
	}

	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisURL != "" {
		rdb, err := lock.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.rdb = rdb
		locker = lock.NewRedis(rdb, "pricetrail:lock:", 30*time.Second)
		log.Info("using redis ingestion lock")
	}

	if !cfg.HasCredentials() {
		log.Warn("NAVER_CLIENT_ID / NAVER_CLIENT_SECRET not set; search requests will be rejected upstream")
	}
	client := shopping.NewClient(shopping.Options{
		Endpoint:     cfg.SearchEndpoint,
		ClientID:     cfg.NaverClientID,
		ClientSecret: cfg.NaverClientSecret,
		Timeout:      cfg.SearchTimeoutDuration(),
	})

	a.Service = prices.NewService(a.Repo, client,
		prices.WithLocker(locker),
		prices.WithRetention(cfg.Retention()),
		prices.WithLogger(log),
	)
	a.Handler = prices.NewHandler(a.Service, log)
	return a, nil
}

// Close releases the store and Redis connections.
func (a *App) Close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	if a.pgPool != nil {
		a.pgPool.Close()
	}
	if a.sqlDB != nil {
		a.sqlDB.Close()
	}
}
