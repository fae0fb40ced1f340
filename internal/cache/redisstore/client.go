// Package redisstore wraps the Redis client operations used by the
// prediction cache.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	maintnotifications "github.com/redis/go-redis/v9/maintnotifications"

	"github.com/emberalert/fire-risk/internal/core/observability"
)

type Option func(*redis.Options)

func WithPoolSize(n int) Option {
	return func(o *redis.Options) { o.PoolSize = n }
}

func WithMinIdleConns(n int) Option {
	return func(o *redis.Options) { o.MinIdleConns = n }
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.DialTimeout = d }
}

func WithReadTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.ReadTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.WriteTimeout = d }
}

type Client struct {
	rdb *redis.Client
}

func New(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	ro := &redis.Options{
		Addr:         addr,
		PoolSize:     64,
		MinIdleConns: 4,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	}
	for _, f := range opts {
		f(ro)
	}

	rdb := redis.NewClient(ro)

	start := time.Now()
	err := rdb.Ping(ctx).Err()
	observability.ObserveCacheOp("ping", err, time.Since(start).Seconds())
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// Get returns the value and whether the key exists.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveCacheOp("get", nil, time.Since(start).Seconds())
		return nil, false, nil
	}
	observability.ObserveCacheOp("get", err, time.Since(start).Seconds())
	if err != nil {
		return nil, false, fmt.Errorf("redis GET %q: %w", key, err)
	}
	return val, true, nil
}

func (c *Client) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	start := time.Now()
	err := c.rdb.Set(ctx, key, val, ttl).Err()
	observability.ObserveCacheOp("set", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis SET %q: %w", key, err)
	}
	return nil
}

// DeleteMatching removes every key under the prefix via SCAN so a large
// namespace never blocks the server the way KEYS would.
func (c *Client) DeleteMatching(ctx context.Context, prefix string) (int, error) {
	start := time.Now()
	deleted := 0

	iter := c.rdb.Scan(ctx, 0, prefix+"*", 256).Iterator()
	batch := make([]string, 0, 256)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
			return err
		}
		deleted += len(batch)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				observability.ObserveCacheOp("del_matching", err, time.Since(start).Seconds())
				return deleted, fmt.Errorf("redis DEL batch: %w", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		observability.ObserveCacheOp("del_matching", err, time.Since(start).Seconds())
		return deleted, fmt.Errorf("redis SCAN %q: %w", prefix, err)
	}
	if err := flush(); err != nil {
		observability.ObserveCacheOp("del_matching", err, time.Since(start).Seconds())
		return deleted, fmt.Errorf("redis DEL batch: %w", err)
	}

	observability.ObserveCacheOp("del_matching", nil, time.Since(start).Seconds())
	return deleted, nil
}

func (c *Client) CountKeys(ctx context.Context, prefix string) (int64, error) {
	start := time.Now()
	var n int64

	iter := c.rdb.Scan(ctx, 0, prefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		n++
	}
	err := iter.Err()
	observability.ObserveCacheOp("count_keys", err, time.Since(start).Seconds())
	if err != nil {
		return 0, fmt.Errorf("redis SCAN %q: %w", prefix, err)
	}
	return n, nil
}

// LifetimeCounters reads keyspace_hits/keyspace_misses from INFO stats.
// These are the server's own counters and survive restarts of this process.
func (c *Client) LifetimeCounters(ctx context.Context) (int64, int64, error) {
	start := time.Now()
	info, err := c.rdb.Info(ctx, "stats").Result()
	observability.ObserveCacheOp("info", err, time.Since(start).Seconds())
	if err != nil {
		return 0, 0, fmt.Errorf("redis INFO stats: %w", err)
	}
	hits, misses := parseKeyspaceCounters(info)
	return hits, misses, nil
}

func parseKeyspaceCounters(info string) (hits, misses int64) {
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "keyspace_hits:"); ok {
			hits, _ = strconv.ParseInt(v, 10, 64)
		}
		if v, ok := strings.CutPrefix(line, "keyspace_misses:"); ok {
			misses, _ = strconv.ParseInt(v, 10, 64)
		}
	}
	return hits, misses
}

func (c *Client) Ping(ctx context.Context) error {
	start := time.Now()
	err := c.rdb.Ping(ctx).Err()
	observability.ObserveCacheOp("ping", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}
