// Package storage persists ingested observations and their derived risk
// rows to Postgres.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emberalert/fire-risk/internal/model"
)

// Prediction is one derived risk row for the fire_predictions table.
type Prediction struct {
	RunID               string
	Latitude            float64
	Longitude           float64
	H3Cell              string
	RiskScore           float64
	RiskLevel           model.RiskLevel
	ContributingFactors map[string]float64
	ModelVersion        string
	Timestamp           time.Time
}

type Store interface {
	SaveObservation(ctx context.Context, runID string, obs model.Observation, h3Cell string) error
	SavePrediction(ctx context.Context, p Prediction) error
}

type Postgres struct {
	pool *pgxpool.Pool
}

func Open(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() { p.pool.Close() }

func (p *Postgres) SaveObservation(ctx context.Context, runID string, obs model.Observation, h3Cell string) error {
	const q = `
		INSERT INTO weather_data
			(run_id, latitude, longitude, h3_cell, temperature, humidity,
			 wind_speed, wind_direction, pressure, conditions, observed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	_, err := p.pool.Exec(ctx, q,
		runID, obs.Latitude, obs.Longitude, h3Cell,
		obs.Temperature, obs.Humidity, obs.WindSpeed, obs.WindDirection,
		obs.Pressure, obs.Conditions, obs.Timestamp)
	if err != nil {
		return fmt.Errorf("insert weather_data: %w", err)
	}
	return nil
}

func (p *Postgres) SavePrediction(ctx context.Context, pr Prediction) error {
	factors, err := json.Marshal(pr.ContributingFactors)
	if err != nil {
		return fmt.Errorf("marshal contributing factors: %w", err)
	}

	const q = `
		INSERT INTO fire_predictions
			(run_id, latitude, longitude, h3_cell, risk_score, risk_level,
			 contributing_factors, model_version, predicted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = p.pool.Exec(ctx, q,
		pr.RunID, pr.Latitude, pr.Longitude, pr.H3Cell,
		pr.RiskScore, string(pr.RiskLevel), factors, pr.ModelVersion, pr.Timestamp)
	if err != nil {
		return fmt.Errorf("insert fire_predictions: %w", err)
	}
	return nil
}
