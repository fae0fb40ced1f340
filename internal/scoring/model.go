// Package scoring wraps the black-box risk model behind a batch predict
// contract. Raw scores are not guaranteed to be in [0,1]; callers clamp.
package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/emberalert/fire-risk/internal/model"
	"github.com/emberalert/fire-risk/internal/risk"
)

// ErrNotLoaded reports an absent or unreadable model artifact.
var ErrNotLoaded = errors.New("scoring model not loaded")

// Model scores feature vectors. Implementations must be safe for concurrent
// use and must return exactly one score per input, in input order.
type Model interface {
	Predict(features []model.FeatureVector) ([]float64, error)
	Version() string
}

// Weights are the per-factor contributions of the composite model.
type Weights struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Wind        float64 `json:"wind"`
}

// Thresholds are the danger midpoints of the sigmoid normalization.
type Thresholds struct {
	TempHigh    float64 `json:"temp_high"`
	HumidityLow float64 `json:"humidity_low"`
	WindHigh    float64 `json:"wind_high"`
}

// Composite is the weighted-sigmoid risk model: each factor is normalized
// around its danger threshold and the weighted sum is the raw score.
type Composite struct {
	version    string
	weights    Weights
	thresholds Thresholds
}

func NewComposite(version string) *Composite {
	return &Composite{
		version:    version,
		weights:    Weights{Temperature: 0.4, Humidity: 0.3, Wind: 0.3},
		thresholds: Thresholds{TempHigh: risk.TempHighF, HumidityLow: risk.HumidityLowPc, WindHigh: risk.WindHighMph},
	}
}

type artifact struct {
	Version    string      `json:"version"`
	Weights    *Weights    `json:"weights"`
	Thresholds *Thresholds `json:"thresholds"`
}

// Load reads a model artifact from disk. A missing file is the "model not
// loaded" state, reported as ErrNotLoaded so operators can alert on it
// distinctly from transient failures.
func Load(path string) (*Composite, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotLoaded, path)
		}
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}

	var a artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	if a.Version == "" {
		return nil, fmt.Errorf("model %s: missing version", path)
	}

	m := NewComposite(a.Version)
	if a.Weights != nil {
		m.weights = *a.Weights
	}
	if a.Thresholds != nil {
		m.thresholds = *a.Thresholds
	}
	return m, nil
}

func (m *Composite) Predict(features []model.FeatureVector) ([]float64, error) {
	out := make([]float64, len(features))
	for i, f := range features {
		tr := risk.NormalizeRisk(f.Temperature, m.thresholds.TempHigh, true)
		hr := risk.NormalizeRisk(f.Humidity, m.thresholds.HumidityLow, false)
		wr := risk.NormalizeRisk(f.WindSpeed, m.thresholds.WindHigh, true)
		out[i] = m.weights.Temperature*tr + m.weights.Humidity*hr + m.weights.Wind*wr
	}
	return out, nil
}

func (m *Composite) Version() string { return m.version }
