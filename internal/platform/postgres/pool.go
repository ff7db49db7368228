// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package postgres manages the pgx connection pool backing the comic store.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/comicverse/internal/platform/constants"
)

// PoolOptions sizes the pool. Zero fields fall back to the package defaults.
type PoolOptions struct {
	MaxConns int32
	MinConns int32
}

// Pool sizing and session limits.
const (
	defaultMaxConns   = 16
	defaultMinConns   = 2
	maxConnLifetime   = 30 * time.Minute
	maxConnIdleTime   = 5 * time.Minute
	healthCheckPeriod = 30 * time.Second
	connectTimeout    = 5 * time.Second
	pingTimeout       = 2 * time.Second

	// lockTimeout caps how long a versioned save waits behind a competing save
	// of the same comic row before failing.
	lockTimeout = 3 * time.Second
)

/*
NewPool creates and validates the PostgreSQL connection pool.

Parameters:
  - ctx: context.Context (Bounds the initial connection attempt)
  - dsn: string (libpq keyword string or postgres:// URL)
  - options: PoolOptions
  - logger: *slog.Logger

Returns:
  - *pgxpool.Pool: A pool that answered a ping
  - error: Invalid DSN or unreachable database
*/
func NewPool(ctx context.Context, dsn string, options PoolOptions, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := newPoolConfig(dsn, options)
	if err != nil {
		return nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}

	if err := Ping(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("postgres_pool_connected",
		slog.String("host", poolConfig.ConnConfig.Host),
		slog.String("database", poolConfig.ConnConfig.Database),
		slog.String("application_name", poolConfig.ConnConfig.RuntimeParams["application_name"]),
		slog.Int("max_conns", int(poolConfig.MaxConns)),
		slog.Int("min_conns", int(poolConfig.MinConns)),
	)

	return pool, nil
}

// newPoolConfig parses dsn and applies pool sizing and per-session settings.
// An application_name given in the DSN wins over the default.
func newPoolConfig(dsn string, options PoolOptions) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid DSN: %w", err)
	}

	poolConfig.MaxConns = defaultMaxConns
	if options.MaxConns > 0 {
		poolConfig.MaxConns = options.MaxConns
	}
	poolConfig.MinConns = min(defaultMinConns, poolConfig.MaxConns)
	if options.MinConns > 0 {
		poolConfig.MinConns = min(options.MinConns, poolConfig.MaxConns)
	}

	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.HealthCheckPeriod = healthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout

	// Sent in the startup packet, so no round trip per new connection.
	runtime := poolConfig.ConnConfig.RuntimeParams
	if runtime == nil {
		runtime = make(map[string]string)
		poolConfig.ConnConfig.RuntimeParams = runtime
	}
	if runtime["application_name"] == "" {
		runtime["application_name"] = constants.AppName
	}
	runtime["statement_timeout"] = milliseconds(constants.GlobalRequestTimeout)
	runtime["lock_timeout"] = milliseconds(lockTimeout)

	return poolConfig, nil
}

func milliseconds(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}

// Ping verifies that the PostgreSQL connection pool is healthy.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("postgres: ping failed: %w", err)
	}

	return nil
}
