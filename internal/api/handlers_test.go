package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/emberalert/fire-risk/internal/cache/memstore"
	"github.com/emberalert/fire-risk/internal/cache/predcache"
	"github.com/emberalert/fire-risk/internal/logger"
	"github.com/emberalert/fire-risk/internal/predict"
	"github.com/emberalert/fire-risk/internal/scoring"
)

func newTestServer(t *testing.T, m scoring.Model, maxBatch int) *httptest.Server {
	t.Helper()
	zl := zerolog.New(io.Discard)
	store := predcache.New(memstore.New(64, time.Hour), time.Hour, 0, zl)
	svc := predict.New(m, store, zl)
	srv := httptest.NewServer(NewRouter(NewHandler(svc, maxBatch, zl), logger.NewSlog(&zl)))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, payload
}

const validBody = `{
	"latitude": 34.0522, "longitude": -118.2437,
	"temperature": 95, "humidity": 15, "wind_speed": 25,
	"wind_direction": 270, "pressure": 1013
}`

func TestPredictEndpoint(t *testing.T) {
	srv := newTestServer(t, scoring.NewComposite("v1.0"), 100)

	resp, payload := postJSON(t, srv.URL+"/api/v1/predict", validBody)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%v)", resp.StatusCode, payload)
	}

	for _, field := range []string{"latitude", "longitude", "risk_score", "risk_level", "timestamp", "model_version", "contributing_factors", "from_cache"} {
		if _, ok := payload[field]; !ok {
			t.Errorf("response missing %q: %v", field, payload)
		}
	}
	if payload["from_cache"] != false {
		t.Error("first request should not be served from cache")
	}
	if payload["model_version"] != "v1.0" {
		t.Errorf("model_version = %v", payload["model_version"])
	}

	// Identical repeat comes from the cache.
	_, repeat := postJSON(t, srv.URL+"/api/v1/predict", validBody)
	if repeat["from_cache"] != true {
		t.Error("repeat request should be served from cache")
	}
}

func TestPredictDefaultsOptionalFields(t *testing.T) {
	srv := newTestServer(t, scoring.NewComposite("v1.0"), 100)

	body := `{"latitude": 34, "longitude": -118, "temperature": 95, "humidity": 15, "wind_speed": 25}`
	resp, payload := postJSON(t, srv.URL+"/api/v1/predict", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%v)", resp.StatusCode, payload)
	}
}

func TestPredictValidation(t *testing.T) {
	srv := newTestServer(t, scoring.NewComposite("v1.0"), 100)

	cases := []struct {
		name string
		body string
	}{
		{"latitude out of range", `{"latitude": 91, "longitude": 0, "temperature": 80, "humidity": 50, "wind_speed": 5}`},
		{"longitude out of range", `{"latitude": 0, "longitude": -200, "temperature": 80, "humidity": 50, "wind_speed": 5}`},
		{"temperature too high", `{"latitude": 0, "longitude": 0, "temperature": 200, "humidity": 50, "wind_speed": 5}`},
		{"humidity negative", `{"latitude": 0, "longitude": 0, "temperature": 80, "humidity": -1, "wind_speed": 5}`},
		{"wind speed missing", `{"latitude": 0, "longitude": 0, "temperature": 80, "humidity": 50}`},
		{"pressure out of range", `{"latitude": 0, "longitude": 0, "temperature": 80, "humidity": 50, "wind_speed": 5, "pressure": 2000}`},
		{"not json", `{nope`},
		{"empty body", `{}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			resp, payload := postJSON(t, srv.URL+"/api/v1/predict", c.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (%v)", resp.StatusCode, payload)
			}
			if payload["error"] == nil {
				t.Errorf("error body missing: %v", payload)
			}
		})
	}
}

func TestPredictModelUnavailable(t *testing.T) {
	srv := newTestServer(t, nil, 100)

	resp, _ := postJSON(t, srv.URL+"/api/v1/predict", validBody)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestBatchEndpoint(t *testing.T) {
	srv := newTestServer(t, scoring.NewComposite("v1.0"), 100)

	body := `{"predictions": [
		{"latitude": 34, "longitude": -118, "temperature": 95, "humidity": 15, "wind_speed": 25},
		{"latitude": 37, "longitude": -122, "temperature": 60, "humidity": 80, "wind_speed": 5}
	]}`
	resp, payload := postJSON(t, srv.URL+"/api/v1/predict/batch", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%v)", resp.StatusCode, payload)
	}

	if payload["total"] != float64(2) {
		t.Errorf("total = %v, want 2", payload["total"])
	}
	preds, ok := payload["predictions"].([]any)
	if !ok || len(preds) != 2 {
		t.Fatalf("predictions = %v", payload["predictions"])
	}

	// Order preservation: first slot answers the first coordinate.
	first := preds[0].(map[string]any)
	if first["latitude"] != float64(34) {
		t.Errorf("predictions[0].latitude = %v, want 34", first["latitude"])
	}
	second := preds[1].(map[string]any)
	if second["latitude"] != float64(37) {
		t.Errorf("predictions[1].latitude = %v, want 37", second["latitude"])
	}
}

func TestBatchSizeLimit(t *testing.T) {
	srv := newTestServer(t, scoring.NewComposite("v1.0"), 2)

	var items []string
	for i := 0; i < 3; i++ {
		items = append(items, `{"latitude": 34, "longitude": -118, "temperature": 95, "humidity": 15, "wind_speed": 25}`)
	}
	body := fmt.Sprintf(`{"predictions": [%s]}`, strings.Join(items, ","))

	resp, _ := postJSON(t, srv.URL+"/api/v1/predict/batch", body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestBatchEmptyRejected(t *testing.T) {
	srv := newTestServer(t, scoring.NewComposite("v1.0"), 100)

	resp, _ := postJSON(t, srv.URL+"/api/v1/predict/batch", `{"predictions": []}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestModelInfo(t *testing.T) {
	srv := newTestServer(t, scoring.NewComposite("v2.0"), 100)

	resp, err := http.Get(srv.URL + "/api/v1/model/info")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	var payload map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if payload["version"] != "v2.0" || payload["model_loaded"] != true {
		t.Errorf("model info = %v", payload)
	}
}

func TestCacheStatsEndpoint(t *testing.T) {
	srv := newTestServer(t, scoring.NewComposite("v1.0"), 100)

	_, _ = postJSON(t, srv.URL+"/api/v1/predict", validBody)
	_, _ = postJSON(t, srv.URL+"/api/v1/predict", validBody)

	resp, err := http.Get(srv.URL + "/api/v1/cache/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	var stats map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&stats)
	if stats["connected"] != true {
		t.Errorf("stats = %v", stats)
	}
	if stats["total_keys"] != float64(1) {
		t.Errorf("total_keys = %v, want 1", stats["total_keys"])
	}
}

func TestCacheClearEndpoint(t *testing.T) {
	srv := newTestServer(t, scoring.NewComposite("v1.0"), 100)

	_, _ = postJSON(t, srv.URL+"/api/v1/predict", validBody)

	resp, payload := postJSON(t, srv.URL+"/api/v1/cache/clear", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d (%v)", resp.StatusCode, payload)
	}
	if payload["cleared"] != float64(1) {
		t.Errorf("cleared = %v, want 1", payload["cleared"])
	}

	_, repeat := postJSON(t, srv.URL+"/api/v1/predict", validBody)
	if repeat["from_cache"] != false {
		t.Error("cleared entry should not serve from cache")
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, scoring.NewComposite("v1.0"), 100)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var payload map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if payload["status"] != "healthy" {
		t.Errorf("health = %v", payload)
	}

	live, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = live.Body.Close() }()
	if live.StatusCode != http.StatusOK {
		t.Errorf("healthz = %d", live.StatusCode)
	}
}

func TestHealthDetailedDegradedWithoutModel(t *testing.T) {
	srv := newTestServer(t, nil, 100)

	resp, err := http.Get(srv.URL + "/health/detailed")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	var payload map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if payload["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", payload["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, scoring.NewComposite("v1.0"), 100)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics = %d", resp.StatusCode)
	}
}
