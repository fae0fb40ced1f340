// Package risk holds the pure feature-engineering and risk-scoring
// transforms shared by the serving path and the ETL pipeline.
package risk

import (
	"math"
	"time"

	"github.com/emberalert/fire-risk/internal/model"
)

// BuildFeatures derives the model input from an observation and a reference
// instant. The serving path passes the wall clock; the ETL path passes the
// observation's own timestamp. The two paths intentionally disagree here --
// a cached prediction keeps whatever temporal features were current when it
// was first computed.
func BuildFeatures(obs model.Observation, ref time.Time) model.FeatureVector {
	return model.FeatureVector{
		Temperature:   obs.Temperature,
		Humidity:      obs.Humidity,
		WindSpeed:     obs.WindSpeed,
		WindDirection: obs.WindDirection,
		Pressure:      obs.Pressure,
		Month:         int(ref.Month()),
		Hour:          ref.Hour(),
		DayOfYear:     ref.YearDay(),
	}
}

// Categorize maps a score in [0,1] onto a risk level. Buckets are half-open
// on the upper edge except the top one: [0,0.3) LOW, [0.3,0.6) MODERATE,
// [0.6,0.8) HIGH, [0.8,1.0] EXTREME.
func Categorize(score float64) model.RiskLevel {
	switch {
	case score < 0.3:
		return model.RiskLow
	case score < 0.6:
		return model.RiskModerate
	case score < 0.8:
		return model.RiskHigh
	default:
		return model.RiskExtreme
	}
}

// Factors computes the three explanatory sub-scores returned alongside a
// prediction. They are diagnostic only and do not feed the score. The
// temperature factor has no upper clamp, unlike the other two; that matches
// the formula this service has always shipped with.
func Factors(obs model.Observation) map[string]float64 {
	return map[string]float64{
		"temperature_factor": Round3(math.Max(0, (obs.Temperature-70)/40)),
		"humidity_factor":    Round3(math.Max(0, (50-obs.Humidity)/50)),
		"wind_factor":        Round3(math.Min(1, obs.WindSpeed/20)),
	}
}

// Clamp01 bounds a raw model score to [0,1]. NaN collapses to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Round3 rounds to three decimal places, the precision of every numeric
// field at the result boundary.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
