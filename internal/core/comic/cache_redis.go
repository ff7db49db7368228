// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comic

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/comicverse/internal/platform/constants"
	"github.com/taibuivan/comicverse/internal/platform/ctxutil"
)

// RedisCache implements [Cache] with one JSON document per comic, plus a floor
// key holding the lowest version a later Set may store.
//
// Redis failures degrade to cache misses; the store stays the source of truth.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// # Scripts

// setScript stores KEYS[1] unless the version in ARGV[2] is below the floor in KEYS[2].
var setScript = redis.NewScript(`
local floor = tonumber(redis.call('GET', KEYS[2]) or '0')
if tonumber(ARGV[2]) < floor then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// invalidateScript deletes KEYS[1] and raises the floor in KEYS[2], never lowering it.
var invalidateScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[2]) or '0')
if tonumber(ARGV[1]) > current then
  redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[2])
else
  redis.call('PEXPIRE', KEYS[2], ARGV[2])
end
redis.call('DEL', KEYS[1])
return 1
`)

// NewRedisCache creates a Redis-backed comic cache with the given entry TTL.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

/*
Get returns the cached comic, if any.

Returns:
  - *Comic: The cached document
  - bool: false on a miss or any Redis failure
*/
func (cache *RedisCache) Get(context context.Context, id string) (*Comic, bool) {
	raw, err := cache.client.Get(context, constants.RedisPrefixComic+id).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			cache.warn(context, "comic_cache_get_failed", id, err)
		}
		return nil, false
	}

	var comic Comic
	if err := json.Unmarshal(raw, &comic); err != nil {
		cache.warn(context, "comic_cache_decode_failed", id, err)
		return nil, false
	}

	return &comic, true
}

// Set stores comic under its id for the configured TTL, unless an invalidation
// already raised the floor above its version.
func (cache *RedisCache) Set(context context.Context, comic *Comic) {
	raw, err := json.Marshal(comic)
	if err != nil {
		cache.warn(context, "comic_cache_encode_failed", comic.ID, err)
		return
	}

	keys := []string{constants.RedisPrefixComic + comic.ID, constants.RedisPrefixComicFloor + comic.ID}
	stored, err := setScript.Run(context, cache.client, keys, raw, comic.Version, cache.ttl.Milliseconds()).Int()
	if err != nil {
		cache.warn(context, "comic_cache_set_failed", comic.ID, err)
		return
	}
	if stored == 0 {
		ctxutil.LoggerOr(context, cache.logger).Debug("comic_cache_set_stale",
			slog.String("comic_id", comic.ID),
			slog.Int64("version", comic.Version),
		)
	}
}

// Invalidate drops the cached copy of a comic. The floor outlives the entry by
// one TTL, which bounds how long a read started before the commit can take.
func (cache *RedisCache) Invalidate(context context.Context, id string, floor int64) {
	keys := []string{constants.RedisPrefixComic + id, constants.RedisPrefixComicFloor + id}
	if err := invalidateScript.Run(context, cache.client, keys, floor, cache.ttl.Milliseconds()).Err(); err != nil {
		cache.warn(context, "comic_cache_invalidate_failed", id, err)
	}
}

func (cache *RedisCache) warn(context context.Context, event, id string, err error) {
	ctxutil.LoggerOr(context, cache.logger).Warn(event,
		slog.String("comic_id", id),
		slog.String("error", err.Error()),
	)
}
