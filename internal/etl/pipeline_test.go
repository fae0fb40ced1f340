package etl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/emberalert/fire-risk/internal/model"
	"github.com/emberalert/fire-risk/internal/storage"
)

type fakeExtractor struct {
	failFor map[string]bool // keyed by "lat,lon"
	obs     model.Observation
}

func (f *fakeExtractor) Current(_ context.Context, lat, lon float64) (model.Observation, error) {
	if f.failFor[key(lat, lon)] {
		return model.Observation{}, errors.New("upstream down")
	}
	obs := f.obs
	obs.Latitude = lat
	obs.Longitude = lon
	return obs, nil
}

func key(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}

type fakeStore struct {
	observations []model.Observation
	predictions  []storage.Prediction
	saveErr      error
}

func (s *fakeStore) SaveObservation(_ context.Context, _ string, obs model.Observation, _ string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.observations = append(s.observations, obs)
	return nil
}

func (s *fakeStore) SavePrediction(_ context.Context, p storage.Prediction) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.predictions = append(s.predictions, p)
	return nil
}

func baseObs() model.Observation {
	return model.Observation{
		Temperature: 98,
		Humidity:    12,
		WindSpeed:   22,
		Conditions:  "Clear",
		Timestamp:   time.Date(2024, time.August, 10, 15, 0, 0, 0, time.UTC),
	}
}

func TestRunPersistsAllLocations(t *testing.T) {
	store := &fakeStore{}
	ex := &fakeExtractor{obs: baseObs()}
	locs := []Location{
		{34.0522, -118.2437, "Los Angeles"},
		{37.7749, -122.4194, "San Francisco"},
	}
	p := NewPipeline(ex, store, locs, "v1.0", 7, zerolog.New(io.Discard))

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(store.observations) != 2 || len(store.predictions) != 2 {
		t.Fatalf("persisted %d obs / %d preds, want 2/2", len(store.observations), len(store.predictions))
	}

	pred := store.predictions[0]
	if pred.RunID == "" {
		t.Error("prediction missing run id")
	}
	if pred.RunID != store.predictions[1].RunID {
		t.Error("all rows of one run must share a run id")
	}
	if pred.H3Cell == "" {
		t.Error("prediction missing h3 cell")
	}
	if pred.ModelVersion != "v1.0" {
		t.Errorf("model version = %q", pred.ModelVersion)
	}
	if pred.RiskScore <= 0 || pred.RiskScore > 1 {
		t.Errorf("risk score = %v", pred.RiskScore)
	}
	for _, k := range []string{"temp_risk", "humidity_risk", "wind_risk"} {
		if _, ok := pred.ContributingFactors[k]; !ok {
			t.Errorf("missing factor %q", k)
		}
	}
	// Derived rows keep the observation's own timestamp.
	if !pred.Timestamp.Equal(baseObs().Timestamp) {
		t.Errorf("prediction timestamp = %v, want observation timestamp", pred.Timestamp)
	}
}

func TestRunSkipsFailingLocation(t *testing.T) {
	store := &fakeStore{}
	ex := &fakeExtractor{
		obs:     baseObs(),
		failFor: map[string]bool{key(34.0522, -118.2437): true},
	}
	locs := []Location{
		{34.0522, -118.2437, "Los Angeles"},
		{37.7749, -122.4194, "San Francisco"},
	}
	p := NewPipeline(ex, store, locs, "v1.0", 7, zerolog.New(io.Discard))

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("a single failing location must not fail the run: %v", err)
	}
	if len(store.predictions) != 1 {
		t.Fatalf("persisted %d predictions, want 1", len(store.predictions))
	}
}

func TestRunAllLocationsFailed(t *testing.T) {
	store := &fakeStore{}
	ex := &fakeExtractor{
		obs: baseObs(),
		failFor: map[string]bool{
			key(34.0522, -118.2437): true,
			key(37.7749, -122.4194): true,
		},
	}
	locs := []Location{
		{34.0522, -118.2437, "Los Angeles"},
		{37.7749, -122.4194, "San Francisco"},
	}
	p := NewPipeline(ex, store, locs, "v1.0", 7, zerolog.New(io.Discard))

	if err := p.Run(context.Background()); err == nil {
		t.Fatal("a fully failed run should report an error")
	}
}

func TestRunStoreFailureSkipsLocation(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("pg down")}
	p := NewPipeline(&fakeExtractor{obs: baseObs()}, store,
		[]Location{{34.0522, -118.2437, "Los Angeles"}}, "v1.0", 7, zerolog.New(io.Discard))

	if err := p.Run(context.Background()); err == nil {
		t.Fatal("run with no successful locations should error")
	}
}

func TestParseLocations(t *testing.T) {
	locs, err := ParseLocations("34.05,-118.24,Los Angeles; 37.77,-122.42,San Francisco")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(locs) != 2 {
		t.Fatalf("got %d locations", len(locs))
	}
	if locs[0].Name != "Los Angeles" || locs[0].Lat != 34.05 || locs[0].Lon != -118.24 {
		t.Errorf("locs[0] = %+v", locs[0])
	}
}

func TestParseLocationsEmptyUsesDefaults(t *testing.T) {
	locs, err := ParseLocations("")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(locs) != len(DefaultLocations()) {
		t.Fatalf("got %d locations, want defaults", len(locs))
	}
}

func TestParseLocationsErrors(t *testing.T) {
	for _, s := range []string{"34.05,-118.24", "x,-118.24,LA", "34.05,y,LA", ";;"} {
		if _, err := ParseLocations(s); err == nil {
			t.Errorf("ParseLocations(%q) should fail", s)
		}
	}
}
