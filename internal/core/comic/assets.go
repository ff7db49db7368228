// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comic

import (
	"context"
	"log/slog"

	"github.com/taibuivan/comicverse/internal/platform/ctxutil"
	"github.com/taibuivan/comicverse/pkg/slice"
)

// # Asset Store

// AssetStore deletes externally stored images by asset id. Deleting an id that
// does not exist must succeed.
type AssetStore interface {
	Delete(ctx context.Context, assetID string) error

	// DeleteBatch returns the ids that could not be deleted with their cause.
	// A nil or empty map means every id was removed.
	DeleteBatch(ctx context.Context, assetIDs []string) map[string]error
}

// AssetFailure reports an asset deletion that did not succeed. The document change
// that orphaned the asset has already been committed.
type AssetFailure struct {
	AssetID string `json:"asset_id"`
	Reason  string `json:"reason"`
}

// # Lifecycle Coordinator

// AssetCoordinator issues best-effort deletions for orphaned assets. Every id is
// attempted once; failures are logged and returned, never raised.
type AssetCoordinator struct {
	store  AssetStore
	logger *slog.Logger
}

// NewAssetCoordinator constructs an [AssetCoordinator] over store.
func NewAssetCoordinator(store AssetStore, logger *slog.Logger) *AssetCoordinator {
	return &AssetCoordinator{store: store, logger: logger}
}

// DeleteOne deletes a single asset. An empty id is a no-op.
func (coordinator *AssetCoordinator) DeleteOne(context context.Context, assetID string) []AssetFailure {
	if assetID == "" {
		return nil
	}

	if err := coordinator.store.Delete(context, assetID); err != nil {
		return []AssetFailure{coordinator.failed(context, assetID, err)}
	}

	return nil
}

/*
DeleteMany deletes a set of assets in one batch.

Description: Empty ids are dropped and duplicates collapsed before the store is
called, so each asset receives exactly one delete request.

Parameters:
  - context: context.Context
  - assetIDs: []string

Returns:
  - []AssetFailure: Ids that could not be deleted, in input order
*/
func (coordinator *AssetCoordinator) DeleteMany(context context.Context, assetIDs []string) []AssetFailure {
	ids := slice.Unique(assetIDs)

	switch len(ids) {
	case 0:
		return nil
	case 1:
		return coordinator.DeleteOne(context, ids[0])
	}

	failed := coordinator.store.DeleteBatch(context, ids)
	if len(failed) == 0 {
		return nil
	}

	var failures []AssetFailure
	for _, id := range ids {
		if err, ok := failed[id]; ok {
			failures = append(failures, coordinator.failed(context, id, err))
		}
	}
	return failures
}

func (coordinator *AssetCoordinator) failed(context context.Context, assetID string, err error) AssetFailure {
	ctxutil.LoggerOr(context, coordinator.logger).Warn("asset_delete_failed",
		slog.String("asset_id", assetID),
		slog.String("error", err.Error()),
	)
	return AssetFailure{AssetID: assetID, Reason: err.Error()}
}
