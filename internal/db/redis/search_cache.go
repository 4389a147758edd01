// Package redisdb caches retrieval results in Redis.
package redisdb

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cuongday/CosmoChatbot/internal/domain/search"
	applog "github.com/cuongday/CosmoChatbot/internal/platform/log"
)

// SearchCache stores retrieval results keyed by the query and result size.
// Every miss falls through to the live index, so cache failures are only
// ever logged, never returned.
type SearchCache struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
}

// NewSearchCache creates a retrieval cache with the given TTL in seconds.
func NewSearchCache(rdb *redis.Client, ttlSeconds int) *SearchCache {
	ttl := 5 * time.Minute
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	return &SearchCache{
		redis:  rdb,
		ttl:    ttl,
		prefix: "search:cache:",
	}
}

// Get returns the cached results for a query, if present.
func (c *SearchCache) Get(ctx context.Context, query string, topK int) ([]search.ProductResult, bool) {
	key := c.cacheKey(query, topK)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}

	var results []search.ProductResult
	if err := json.Unmarshal(data, &results); err != nil {
		applog.Warn("[Search/Cache] Failed to unmarshal cached result", "error", err)
		return nil, false
	}

	applog.Debug("[Search/Cache] Hit", "key", key)
	return results, true
}

// Set stores results for a query. Best effort.
func (c *SearchCache) Set(ctx context.Context, query string, topK int, results []search.ProductResult) {
	key := c.cacheKey(query, topK)
	data, err := json.Marshal(results)
	if err != nil {
		return
	}

	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		applog.Warn("[Search/Cache] Failed to set cache", "key", key, "error", err)
	}
}

// InvalidateAll clears every cached retrieval result. Called after a sync so
// stale product data never outlives the index it came from.
func (c *SearchCache) InvalidateAll(ctx context.Context) {
	pattern := c.prefix + "*"
	iter := c.redis.Scan(ctx, 0, pattern, 500).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		c.redis.Del(ctx, keys...)
		applog.Info("[Search/Cache] All cache invalidated", "keys_deleted", len(keys))
	}
}

func (c *SearchCache) cacheKey(query string, topK int) string {
	raw := fmt.Sprintf("%s|%d", query, topK)
	hash := sha256.Sum256([]byte(raw))
	return c.prefix + fmt.Sprintf("%x", hash[:12])
}
