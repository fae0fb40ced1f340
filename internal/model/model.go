// Package model defines core domain types shared across the service.
package model

import "time"

// RiskLevel is the 4-level discretization of a continuous risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskExtreme  RiskLevel = "EXTREME"
)

// Observation is a single validated weather observation. On the serving path
// only the seven request fields are set; the ETL path additionally records
// the provider timestamp and the sky conditions.
type Observation struct {
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Temperature   float64 `json:"temperature"`    // °F
	Humidity      float64 `json:"humidity"`       // %
	WindSpeed     float64 `json:"wind_speed"`     // mph
	WindDirection float64 `json:"wind_direction"` // °
	Pressure      float64 `json:"pressure"`       // hPa

	Timestamp  time.Time `json:"timestamp,omitzero"`
	Conditions string    `json:"conditions,omitempty"`
}

// FeatureVector is the model input derived from an observation plus a
// reference instant. The temporal fields belong to the evaluation instant,
// not the observation.
type FeatureVector struct {
	Temperature   float64 `json:"temperature"`
	Humidity      float64 `json:"humidity"`
	WindSpeed     float64 `json:"wind_speed"`
	WindDirection float64 `json:"wind_direction"`
	Pressure      float64 `json:"pressure"`
	Month         int     `json:"month"`
	Hour          int     `json:"hour"`
	DayOfYear     int     `json:"day_of_year"`
}

// PredictionResult is the assembled outcome of one scored observation.
type PredictionResult struct {
	Latitude            float64            `json:"latitude"`
	Longitude           float64            `json:"longitude"`
	RiskScore           float64            `json:"risk_score"`
	RiskLevel           RiskLevel          `json:"risk_level"`
	Timestamp           time.Time          `json:"timestamp"`
	ModelVersion        string             `json:"model_version"`
	ContributingFactors map[string]float64 `json:"contributing_factors"`
	FromCache           bool               `json:"from_cache"`
}

// CacheStats reports the backing store's view of the prediction cache.
type CacheStats struct {
	Connected bool    `json:"connected"`
	TotalKeys int64   `json:"total_keys"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	HitRate   float64 `json:"hit_rate"`
}
