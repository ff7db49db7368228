// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package storage

import (
	"context"
	"log/slog"
)

// NopStore accepts every deletion without touching any storage.
type NopStore struct {
	logger *slog.Logger
}

// NewNopStore creates a [NopStore] that logs the keys it would have deleted.
func NewNopStore(logger *slog.Logger) *NopStore {
	return &NopStore{logger: logger}
}

// Delete logs key and succeeds.
func (store *NopStore) Delete(ctx context.Context, key string) error {
	store.logger.DebugContext(ctx, "asset_delete_skipped", slog.String("asset_id", key))
	return nil
}

// DeleteBatch logs keys and succeeds.
func (store *NopStore) DeleteBatch(ctx context.Context, keys []string) map[string]error {
	store.logger.DebugContext(ctx, "asset_delete_skipped", slog.Any("asset_ids", keys))
	return nil
}

// Ping always succeeds.
func (store *NopStore) Ping(context.Context) error {
	return nil
}
