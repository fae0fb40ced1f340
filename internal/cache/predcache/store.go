// Package predcache is the prediction cache: a TTL'd, fingerprint-keyed
// store of serialized results in front of the inference gateway. Every
// backend failure degrades to a miss -- the cache is an optimization, never
// a correctness dependency.
package predcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/emberalert/fire-risk/internal/cache"
	"github.com/emberalert/fire-risk/internal/cache/keys"
	"github.com/emberalert/fire-risk/internal/core/observability"
	"github.com/emberalert/fire-risk/internal/model"
)

// DefaultTTL matches how slowly weather actually changes.
const DefaultTTL = time.Hour

// Outcome distinguishes "no data" from "backend broken" so callers never
// have to infer state from log side effects. Both non-hit outcomes are
// served the same way (compute fresh), but they are counted separately.
type Outcome int

const (
	Miss Outcome = iota
	Hit
	BackendError
)

type Store struct {
	backend cache.Backend
	ttl     time.Duration
	timeout time.Duration
	log     zerolog.Logger
}

func New(backend cache.Backend, defaultTTL, opTimeout time.Duration, log zerolog.Logger) *Store {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Store{
		backend: backend,
		ttl:     defaultTTL,
		timeout: opTimeout,
		log:     log,
	}
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Get returns the cached result for the observation's fingerprint. The
// from_cache flag is injected here; it is never part of the stored payload.
func (s *Store) Get(ctx context.Context, obs model.Observation) (model.PredictionResult, Outcome) {
	key := keys.Fingerprint(obs)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		observability.IncCacheError()
		s.log.Warn().Err(err).Str("key", key).Msg("cache get failed, treating as miss")
		return model.PredictionResult{}, BackendError
	}
	if !ok {
		observability.IncCacheMiss()
		return model.PredictionResult{}, Miss
	}

	var res model.PredictionResult
	if err := json.Unmarshal(raw, &res); err != nil {
		observability.IncCacheError()
		s.log.Warn().Err(err).Str("key", key).Msg("cached payload corrupt, treating as miss")
		return model.PredictionResult{}, BackendError
	}

	observability.IncCacheHit()
	res.FromCache = true
	return res, Hit
}

// cachedPayload drops the from_cache flag from the stored form; the shadow
// field wins the JSON name conflict and omits when nil.
type cachedPayload struct {
	model.PredictionResult
	FromCache *bool `json:"from_cache,omitempty"`
}

// Put writes the result through under the observation's fingerprint.
// ttl <= 0 selects the store default. Write failures are swallowed: the
// request that produced the result must not fail because the cache did.
func (s *Store) Put(ctx context.Context, obs model.Observation, res model.PredictionResult, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	key := keys.Fingerprint(obs)

	raw, err := json.Marshal(cachedPayload{PredictionResult: res})
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache payload marshal failed")
		return
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.backend.Set(ctx, key, raw, ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache put failed, continuing without cache")
	}
}

// ClearAll removes every key in the prediction namespace.
func (s *Store) ClearAll(ctx context.Context) (int, error) {
	n, err := s.backend.DeleteMatching(ctx, keys.Namespace)
	if err != nil {
		s.log.Warn().Err(err).Msg("cache clear failed")
		return n, err
	}
	s.log.Info().Int("keys", n).Msg("cleared cached predictions")
	return n, nil
}

// Stats reports the backend's view of the cache. Any backend error collapses
// to connected=false; the serving path stays up either way.
func (s *Store) Stats(ctx context.Context) model.CacheStats {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.backend.Ping(ctx); err != nil {
		s.log.Warn().Err(err).Msg("cache backend unreachable")
		return model.CacheStats{Connected: false}
	}

	total, err := s.backend.CountKeys(ctx, keys.Namespace)
	if err != nil {
		s.log.Warn().Err(err).Msg("cache key count failed")
		return model.CacheStats{Connected: false}
	}

	hits, misses, err := s.backend.LifetimeCounters(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("cache counters unavailable")
		return model.CacheStats{Connected: false}
	}

	return model.CacheStats{
		Connected: true,
		TotalKeys: total,
		Hits:      hits,
		Misses:    misses,
		HitRate:   hitRate(hits, misses),
	}
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}
