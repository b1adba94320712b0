// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// counts.go provides a Valkey-backed cache for hierarchy item counts.
// Subtree counts walk the descendant set and count distinct items, which
// is the most expensive read in the taxonomy; counts may be a little
// stale under concurrent writes, so a short TTL is acceptable and cache
// failures only cost a recomputation.
package cache

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// countKeyPrefix is the Valkey key prefix for cached item counts.
	countKeyPrefix = "count:"

	// DefaultCountTTL is how long a computed count stays cached.
	DefaultCountTTL = 30 * time.Second
)

// CountCache caches per-label item counts in Valkey, keyed by label id
// and scope ("self" or "subtree").
type CountCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCountCache creates a count cache backed by the given Valkey client.
func NewCountCache(client *redis.Client, ttl time.Duration) *CountCache {
	if ttl == 0 {
		ttl = DefaultCountTTL
	}
	return &CountCache{client: client, ttl: ttl}
}

func countKey(labelID, scope string) string {
	return countKeyPrefix + labelID + ":" + scope
}

// Get retrieves a cached count. The second return is false on a miss.
func (cc *CountCache) Get(ctx context.Context, labelID, scope string) (int64, bool) {
	val, err := cc.client.Get(ctx, countKey(labelID, scope)).Result()
	if err == redis.Nil {
		return 0, false
	}
	if err != nil {
		slog.Warn("count cache get error", "label", labelID, "error", err)
		return 0, false
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		slog.Warn("count cache bad value", "label", labelID, "value", val)
		return 0, false
	}
	return n, true
}

// Set stores a computed count with the configured TTL.
func (cc *CountCache) Set(ctx context.Context, labelID, scope string, n int64) {
	if err := cc.client.Set(ctx, countKey(labelID, scope), strconv.FormatInt(n, 10), cc.ttl).Err(); err != nil {
		slog.Warn("count cache set error", "label", labelID, "error", err)
	}
}

// Invalidate drops both scopes' cached counts for each given label.
// Called when associations change so the affected labels and their
// ancestors recompute on the next read.
func (cc *CountCache) Invalidate(ctx context.Context, labelIDs ...string) {
	if len(labelIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(labelIDs)*2)
	for _, id := range labelIDs {
		keys = append(keys, countKey(id, "self"), countKey(id, "subtree"))
	}
	if err := cc.client.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("count cache invalidate error", "error", err)
	}
	slog.Debug("count cache invalidated", "labels", len(labelIDs))
}
