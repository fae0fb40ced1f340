// Package etl runs the scheduled ingestion pipeline: fetch observations
// per location, engineer offline features, and persist both raw and
// derived rows.
package etl

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/emberalert/fire-risk/internal/geo"
	"github.com/emberalert/fire-risk/internal/model"
	"github.com/emberalert/fire-risk/internal/risk"
	"github.com/emberalert/fire-risk/internal/storage"
)

// Extractor fetches a current observation for a coordinate.
type Extractor interface {
	Current(ctx context.Context, lat, lon float64) (model.Observation, error)
}

type Location struct {
	Lat  float64
	Lon  float64
	Name string
}

// DefaultLocations covers the major California metros the service was
// originally deployed for.
func DefaultLocations() []Location {
	return []Location{
		{34.0522, -118.2437, "Los Angeles"},
		{37.7749, -122.4194, "San Francisco"},
		{38.5816, -121.4944, "Sacramento"},
		{32.7157, -117.1611, "San Diego"},
		{36.7378, -119.7871, "Fresno"},
	}
}

// ParseLocations parses "lat,lon,name;lat,lon,name" lists from config.
// An empty string yields the default location set.
func ParseLocations(s string) ([]Location, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultLocations(), nil
	}
	var out []Location
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, ",", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("location %q: want lat,lon,name", part)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("location %q: bad latitude: %w", part, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("location %q: bad longitude: %w", part, err)
		}
		out = append(out, Location{Lat: lat, Lon: lon, Name: strings.TrimSpace(fields[2])})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no locations parsed from %q", s)
	}
	return out, nil
}

type Pipeline struct {
	extractor    Extractor
	store        storage.Store
	locations    []Location
	modelVersion string
	h3Res        int
	log          zerolog.Logger
}

func NewPipeline(ex Extractor, store storage.Store, locations []Location, modelVersion string, h3Res int, log zerolog.Logger) *Pipeline {
	if len(locations) == 0 {
		locations = DefaultLocations()
	}
	return &Pipeline{
		extractor:    ex,
		store:        store,
		locations:    locations,
		modelVersion: modelVersion,
		h3Res:        h3Res,
		log:          log,
	}
}

// Run executes one ingestion pass. A failing location is logged and
// skipped; it never aborts the rest of the run.
func (p *Pipeline) Run(ctx context.Context) error {
	runID := uuid.NewString()
	start := time.Now()
	log := p.log.With().Str("run_id", runID).Logger()

	var ok, failed int
	for _, loc := range p.locations {
		if err := p.processLocation(ctx, log, runID, loc); err != nil {
			failed++
			log.Warn().Err(err).Str("location", loc.Name).Msg("location skipped")
			continue
		}
		ok++
	}

	log.Info().
		Int("ok", ok).
		Int("failed", failed).
		Dur("elapsed", time.Since(start)).
		Msg("ingestion run complete")

	if ok == 0 && failed > 0 {
		return fmt.Errorf("ingestion run %s: all %d locations failed", runID, failed)
	}
	return nil
}

func (p *Pipeline) processLocation(ctx context.Context, log zerolog.Logger, runID string, loc Location) error {
	obs, err := p.extractor.Current(ctx, loc.Lat, loc.Lon)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", loc.Name, err)
	}

	cell, err := geo.Cell(obs.Latitude, obs.Longitude, p.h3Res)
	if err != nil {
		return fmt.Errorf("index %s: %w", loc.Name, err)
	}

	// Offline features use the observation's own timestamp, so a
	// delayed run still scores the weather as of when it was measured.
	feats := risk.BuildOffline(obs)
	score := risk.Round3(feats.CompositeRisk)

	if err := p.store.SaveObservation(ctx, runID, obs, cell); err != nil {
		return fmt.Errorf("save observation %s: %w", loc.Name, err)
	}

	pred := storage.Prediction{
		RunID:     runID,
		Latitude:  obs.Latitude,
		Longitude: obs.Longitude,
		H3Cell:    cell,
		RiskScore: score,
		RiskLevel: risk.Categorize(score),
		ContributingFactors: map[string]float64{
			"temp_risk":     risk.Round3(feats.TempRisk),
			"humidity_risk": risk.Round3(feats.HumidityRisk),
			"wind_risk":     risk.Round3(feats.WindRisk),
		},
		ModelVersion: p.modelVersion,
		Timestamp:    obs.Timestamp,
	}
	if err := p.store.SavePrediction(ctx, pred); err != nil {
		return fmt.Errorf("save prediction %s: %w", loc.Name, err)
	}

	log.Debug().
		Str("location", loc.Name).
		Str("h3_cell", cell).
		Float64("risk_score", score).
		Str("risk_level", string(pred.RiskLevel)).
		Msg("location ingested")

	return nil
}
