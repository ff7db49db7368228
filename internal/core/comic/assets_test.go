// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssetCoordinator(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing to delete", func(t *testing.T) {
		store := &recordingAssetStore{}
		coordinator := NewAssetCoordinator(store, discardLogger())

		assert.Nil(t, coordinator.DeleteMany(ctx, nil))
		assert.Nil(t, coordinator.DeleteMany(ctx, []string{"", ""}))
		assert.Nil(t, coordinator.DeleteOne(ctx, ""))
		assert.Empty(t, store.requested())
	})

	t.Run("single id skips the batch call", func(t *testing.T) {
		store := &recordingAssetStore{}
		coordinator := NewAssetCoordinator(store, discardLogger())

		assert.Nil(t, coordinator.DeleteMany(ctx, []string{"ib", "", "ib"}))
		assert.Equal(t, []string{"ib"}, store.singles)
		assert.Empty(t, store.batches)
	})

	t.Run("duplicates collapse into one batch", func(t *testing.T) {
		store := &recordingAssetStore{}
		coordinator := NewAssetCoordinator(store, discardLogger())

		assert.Nil(t, coordinator.DeleteMany(ctx, []string{"a", "b", "a", "", "c", "b"}))
		assert.Equal(t, [][]string{{"a", "b", "c"}}, store.batches)
	})

	t.Run("failures are reported in input order", func(t *testing.T) {
		store := &recordingAssetStore{failKeys: map[string]bool{"c": true, "a": true}}
		coordinator := NewAssetCoordinator(store, discardLogger())

		failures := coordinator.DeleteMany(ctx, []string{"a", "b", "c"})
		assert.Equal(t, []AssetFailure{
			{AssetID: "a", Reason: "bucket unavailable"},
			{AssetID: "c", Reason: "bucket unavailable"},
		}, failures)
	})

	t.Run("single failure", func(t *testing.T) {
		store := &recordingAssetStore{failKeys: map[string]bool{"x": true}}
		coordinator := NewAssetCoordinator(store, discardLogger())

		assert.Equal(t, []AssetFailure{{AssetID: "x", Reason: "bucket unavailable"}}, coordinator.DeleteOne(ctx, "x"))
	})
}
