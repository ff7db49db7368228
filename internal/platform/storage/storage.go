// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package storage provides the object storage drivers behind comic image assets.

An asset id is the object key in the configured bucket. Every driver treats
deleting a missing key as success, so retried or duplicated deletions are safe.

Drivers:

  - s3:    AWS S3 or any S3-compatible endpoint (Cloudflare R2) via aws-sdk-go-v2.
  - minio: A self-hosted MinIO server via minio-go.
  - none:  Accepts and discards every deletion; for local development.
*/
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/comicverse/internal/platform/config"
)

// Store deletes objects by key.
type Store interface {
	// Delete removes one object.
	Delete(ctx context.Context, key string) error

	// DeleteBatch removes several objects and returns the keys that failed.
	DeleteBatch(ctx context.Context, keys []string) map[string]error

	// Ping checks that the bucket is reachable.
	Ping(ctx context.Context) error
}

// New builds the driver selected by cfg.AssetDriver.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.AssetDriver {
	case config.AssetDriverS3:
		store, err := NewS3Store(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		logger.Info("asset_store_ready", slog.String("driver", "s3"), slog.String("bucket", cfg.S3.Bucket))
		return store, nil

	case config.AssetDriverMinIO:
		store, err := NewMinIOStore(cfg.MinIO)
		if err != nil {
			return nil, err
		}
		logger.Info("asset_store_ready", slog.String("driver", "minio"), slog.String("bucket", cfg.MinIO.Bucket))
		return store, nil

	case config.AssetDriverNone:
		logger.Warn("asset_store_disabled")
		return NewNopStore(logger), nil
	}

	return nil, fmt.Errorf("storage: unknown driver %q", cfg.AssetDriver)
}
