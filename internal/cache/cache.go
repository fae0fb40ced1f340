// Package cache defines the backend contract the prediction cache runs on.
package cache

import (
	"context"
	"time"
)

// Backend is a namespaced key/value store with TTL expiry and lifetime
// hit/miss accounting. Redis in production, an in-process LRU when no Redis
// address is configured.
type Backend interface {
	// Get returns the value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// DeleteMatching removes every key under the prefix and reports how many.
	DeleteMatching(ctx context.Context, prefix string) (int, error)
	CountKeys(ctx context.Context, prefix string) (int64, error)
	// LifetimeCounters reports the store's own hit/miss totals, which survive
	// restarts of this process.
	LifetimeCounters(ctx context.Context) (hits, misses int64, err error)
	Ping(ctx context.Context) error
}
