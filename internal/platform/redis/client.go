// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package redis provides the managed go-redis client.

Comicverse keeps two kinds of volatile data there: cached comic documents for the
public read paths, and per-comic follower sets. Losing either is recoverable; the
PostgreSQL aggregate remains the source of truth.
*/
package redis

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/comicverse/internal/platform/constants"
)

// Options sizes the client. A zero PoolSize uses defaultPoolSize.
type Options struct {
	PoolSize int
}

// Client defaults. Callers treat every cache error as a miss.
const (
	defaultPoolSize = 20
	dialTimeout     = 2 * time.Second
	readTimeout     = 500 * time.Millisecond
	writeTimeout    = 500 * time.Millisecond
	connMaxIdleTime = 5 * time.Minute
	pingTimeout     = 2 * time.Second
)

/*
NewClient parses a Redis URL and returns a client that answered a ping.

Parameters:
  - context: stdctx.Context (Bounds the initial ping)
  - redisURL: string (redis:// or rediss:// URL, optionally with a DB number)
  - options: Options
  - logger: *slog.Logger

Returns:
  - *redis.Client
  - error: Invalid URL or unreachable server
*/
func NewClient(context stdctx.Context, redisURL string, options Options, logger *slog.Logger) (*redis.Client, error) {
	clientOptions, err := newClientOptions(redisURL, options)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(clientOptions)

	if err := Ping(context, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis_client_connected",
		slog.String("addr", clientOptions.Addr),
		slog.Int("db", clientOptions.DB),
		slog.String("client_name", clientOptions.ClientName),
		slog.Int("pool_size", clientOptions.PoolSize),
	)

	return client, nil
}

// newClientOptions parses redisURL and applies pool sizing and timeouts.
func newClientOptions(redisURL string, options Options) (*redis.Options, error) {
	clientOptions, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	clientOptions.ClientName = constants.AppName

	clientOptions.PoolSize = defaultPoolSize
	if options.PoolSize > 0 {
		clientOptions.PoolSize = options.PoolSize
	}
	clientOptions.MinIdleConns = max(clientOptions.PoolSize/10, 1)
	clientOptions.MaxIdleConns = max(clientOptions.PoolSize/2, 1)
	clientOptions.ConnMaxIdleTime = connMaxIdleTime

	clientOptions.DialTimeout = dialTimeout
	clientOptions.ReadTimeout = readTimeout
	clientOptions.WriteTimeout = writeTimeout

	return clientOptions, nil
}

// Ping verifies that the Redis client is healthy.
func Ping(context stdctx.Context, client *redis.Client) error {
	pingCtx, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}

	return nil
}
