// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comic

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/comicverse/internal/platform/constants"
)

// RedisFollowers implements [FollowerRegistry] with one Redis set per comic.
//
// SADD and SREM report whether membership actually changed, which is what lets
// the followers counter move exactly once per follow or unfollow.
type RedisFollowers struct {
	client *redis.Client
}

// NewRedisFollowers creates a Redis-backed follower registry.
func NewRedisFollowers(client *redis.Client) *RedisFollowers {
	return &RedisFollowers{client: client}
}

/*
Add records userID as a follower of comicID.

Returns:
  - bool: true if the user was not following before
  - error: Connectivity errors
*/
func (registry *RedisFollowers) Add(context context.Context, comicID, userID string) (bool, error) {
	added, err := registry.client.SAdd(context, constants.RedisPrefixFollowers+comicID, userID).Result()
	if err != nil {
		return false, fmt.Errorf("redis_followers_add_failed: %w", err)
	}
	return added == 1, nil
}

/*
Remove drops userID from the followers of comicID.

Returns:
  - bool: true if the user was following before
  - error: Connectivity errors
*/
func (registry *RedisFollowers) Remove(context context.Context, comicID, userID string) (bool, error) {
	removed, err := registry.client.SRem(context, constants.RedisPrefixFollowers+comicID, userID).Result()
	if err != nil {
		return false, fmt.Errorf("redis_followers_remove_failed: %w", err)
	}
	return removed == 1, nil
}

// Forget deletes the follower set of a removed comic.
func (registry *RedisFollowers) Forget(context context.Context, comicID string) error {
	if err := registry.client.Del(context, constants.RedisPrefixFollowers+comicID).Err(); err != nil {
		return fmt.Errorf("redis_followers_forget_failed: %w", err)
	}
	return nil
}
