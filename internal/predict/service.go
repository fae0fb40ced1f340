// Package predict is the inference gateway: it orchestrates cache lookups,
// model invocation, risk categorization, and write-through for single and
// batch predictions.
package predict

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/emberalert/fire-risk/internal/cache/predcache"
	"github.com/emberalert/fire-risk/internal/core/observability"
	"github.com/emberalert/fire-risk/internal/model"
	"github.com/emberalert/fire-risk/internal/risk"
	"github.com/emberalert/fire-risk/internal/scoring"
)

var (
	// ErrModelUnavailable means the scoring model was never loaded. Distinct
	// from ErrInference so operators can alert on "model missing".
	ErrModelUnavailable = errors.New("scoring model unavailable")

	// ErrInference wraps failures inside the model call itself. Never
	// retried here; the model is deterministic on its input.
	ErrInference = errors.New("inference failed")
)

type Service struct {
	model scoring.Model
	cache *predcache.Store
	log   zerolog.Logger

	// now is swappable so tests can pin the temporal features.
	now func() time.Time
}

// New builds a gateway. A nil model is a valid, detectable state: requests
// that need inference fail with ErrModelUnavailable until a model is loaded.
func New(m scoring.Model, cache *predcache.Store, log zerolog.Logger) *Service {
	return &Service{
		model: m,
		cache: cache,
		log:   log,
		now:   time.Now,
	}
}

// PredictOne serves a single observation, preferring the cache.
func (s *Service) PredictOne(ctx context.Context, obs model.Observation) (model.PredictionResult, error) {
	if cached, out := s.cache.Get(ctx, obs); out == predcache.Hit {
		observability.ObservePrediction(string(cached.RiskLevel), true)
		return cached, nil
	}

	if s.model == nil {
		return model.PredictionResult{}, ErrModelUnavailable
	}

	// Serving path: temporal features come from the wall clock, not from any
	// timestamp on the observation. The ETL path does the opposite.
	feats := risk.BuildFeatures(obs, s.now())

	scores, err := s.model.Predict([]model.FeatureVector{feats})
	if err != nil {
		return model.PredictionResult{}, fmt.Errorf("%w: %v", ErrInference, err)
	}
	if len(scores) != 1 {
		return model.PredictionResult{}, fmt.Errorf("%w: model returned %d scores for 1 input", ErrInference, len(scores))
	}

	res := s.assemble(obs, scores[0])
	s.cache.Put(ctx, obs, res, 0)
	observability.ObservePrediction(string(res.RiskLevel), false)
	return res, nil
}

// PredictBatch serves an ordered sequence of observations. The output is
// length- and order-preserving: out[i] answers in[i]. Cache misses are
// scored in a single model invocation over the whole miss-set.
func (s *Service) PredictBatch(ctx context.Context, obsList []model.Observation) ([]model.PredictionResult, error) {
	results := make([]model.PredictionResult, len(obsList))
	missIdx := make([]int, 0, len(obsList))

	for i, obs := range obsList {
		if cached, out := s.cache.Get(ctx, obs); out == predcache.Hit {
			observability.ObservePrediction(string(cached.RiskLevel), true)
			results[i] = cached
			continue
		}
		missIdx = append(missIdx, i)
	}

	if len(missIdx) == 0 {
		return results, nil
	}
	if s.model == nil {
		return nil, ErrModelUnavailable
	}

	now := s.now()
	feats := make([]model.FeatureVector, len(missIdx))
	for j, i := range missIdx {
		feats[j] = risk.BuildFeatures(obsList[i], now)
	}

	scores, err := s.model.Predict(feats)
	if err != nil {
		return nil, fmt.Errorf("%w: batch of %d: %v", ErrInference, len(feats), err)
	}
	if len(scores) != len(feats) {
		return nil, fmt.Errorf("%w: model returned %d scores for %d inputs", ErrInference, len(scores), len(feats))
	}

	for j, i := range missIdx {
		res := s.assemble(obsList[i], scores[j])
		s.cache.Put(ctx, obsList[i], res, 0)
		observability.ObservePrediction(string(res.RiskLevel), false)
		results[i] = res
	}

	s.log.Debug().
		Int("total", len(obsList)).
		Int("hits", len(obsList)-len(missIdx)).
		Int("misses", len(missIdx)).
		Msg("batch prediction served")

	return results, nil
}

func (s *Service) assemble(obs model.Observation, raw float64) model.PredictionResult {
	score := risk.Round3(risk.Clamp01(raw))
	return model.PredictionResult{
		Latitude:            obs.Latitude,
		Longitude:           obs.Longitude,
		RiskScore:           score,
		RiskLevel:           risk.Categorize(score),
		Timestamp:           s.now(),
		ModelVersion:        s.model.Version(),
		ContributingFactors: risk.Factors(obs),
		FromCache:           false,
	}
}

func (s *Service) ModelLoaded() bool { return s.model != nil }

func (s *Service) ModelVersion() string {
	if s.model == nil {
		return ""
	}
	return s.model.Version()
}

func (s *Service) CacheStats(ctx context.Context) model.CacheStats {
	return s.cache.Stats(ctx)
}

func (s *Service) ClearCache(ctx context.Context) (int, error) {
	return s.cache.ClearAll(ctx)
}
