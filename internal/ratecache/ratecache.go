// Package ratecache implements the best-effort per-network address-count
// cache (SPEC_FULL.md supplemented feature #3): a Redis-backed count with
// live-COUNT fallback on any Redis error, so a cache outage degrades
// performance, not correctness.
package ratecache

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const ttl = 5 * time.Minute

// LiveCounter is the live-query fallback, satisfied by internal/store.
type LiveCounter interface {
	CountAddresses(ctx context.Context, network string) (int64, error)
}

// Cache wraps a redis client; a nil client (Redis not configured) makes
// every call fall straight through to the live counter.
type Cache struct {
	rdb *redis.Client
	log *zap.Logger
}

// New builds a Cache. addr == "" disables Redis entirely.
func New(addr string, log *zap.Logger) *Cache {
	if addr == "" {
		return &Cache{log: log}
	}
	return &Cache{rdb: redis.NewClient(&redis.Options{Addr: addr}), log: log}
}

func key(network string) string {
	return "bugchainindexer:count:" + network
}

// Count returns the cached count if present and fresh, otherwise queries
// live and repopulates the cache (best-effort: a SET failure is logged,
// never returned as an error).
func (c *Cache) Count(ctx context.Context, network string, live LiveCounter) (int64, error) {
	if c.rdb == nil {
		return live.CountAddresses(ctx, network)
	}

	val, err := c.rdb.Get(ctx, key(network)).Result()
	if err == nil {
		if n, parseErr := strconv.ParseInt(val, 10, 64); parseErr == nil {
			return n, nil
		}
	}

	n, err := live.CountAddresses(ctx, network)
	if err != nil {
		return 0, err
	}
	if setErr := c.rdb.Set(ctx, key(network), n, ttl).Err(); setErr != nil {
		c.log.Warn("ratecache: failed to populate cache", zap.String("network", network), zap.Error(setErr))
	}
	return n, nil
}

// Invalidate drops the cached count for a network, forcing the next Count
// call to hit the live counter.
func (c *Cache) Invalidate(ctx context.Context, network string) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, key(network)).Err(); err != nil {
		c.log.Warn("ratecache: failed to invalidate", zap.String("network", network), zap.Error(err))
	}
}
