// Package memstore is an in-process cache backend used when no Redis
// address is configured (dev mode and tests). It holds entries in an
// expirable LRU and tracks its own lifetime hit/miss counters.
package memstore

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type entry struct {
	val      []byte
	deadline time.Time
}

type Store struct {
	lru    *expirable.LRU[string, entry]
	hits   atomic.Int64
	misses atomic.Int64
	now    func() time.Time
}

// New creates a store bounded to size entries. horizon caps how long any
// entry can live regardless of its own TTL.
func New(size int, horizon time.Duration) *Store {
	if size <= 0 {
		size = 4096
	}
	if horizon <= 0 {
		horizon = 24 * time.Hour
	}
	return &Store{
		lru: expirable.NewLRU[string, entry](size, nil, horizon),
		now: time.Now,
	}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := s.lru.Get(key)
	if !ok || s.now().After(e.deadline) {
		if ok {
			s.lru.Remove(key)
		}
		s.misses.Add(1)
		return nil, false, nil
	}
	s.hits.Add(1)
	return e.val, true, nil
}

func (s *Store) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	s.lru.Add(key, entry{val: val, deadline: s.now().Add(ttl)})
	return nil
}

func (s *Store) DeleteMatching(_ context.Context, prefix string) (int, error) {
	n := 0
	for _, k := range s.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			s.lru.Remove(k)
			n++
		}
	}
	return n, nil
}

func (s *Store) CountKeys(_ context.Context, prefix string) (int64, error) {
	var n int64
	for _, k := range s.lru.Keys() {
		e, ok := s.lru.Peek(k)
		if !ok || s.now().After(e.deadline) {
			continue
		}
		if strings.HasPrefix(k, prefix) {
			n++
		}
	}
	return n, nil
}

func (s *Store) LifetimeCounters(context.Context) (int64, int64, error) {
	return s.hits.Load(), s.misses.Load(), nil
}

func (s *Store) Ping(context.Context) error { return nil }
