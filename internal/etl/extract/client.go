// Package extract fetches current weather observations from
// OpenWeatherMap for the ingestion pipeline.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/emberalert/fire-risk/internal/core/config"
	"github.com/emberalert/fire-risk/internal/core/observability"
	"github.com/emberalert/fire-risk/internal/model"
)

type Client struct {
	apiKey     string
	baseURL    string
	maxRetries int
	http       *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	log        zerolog.Logger
}

func New(cfg config.WeatherCfg, log zerolog.Logger) *Client {
	settings := gobreaker.Settings{
		Name:        "openweathermap",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
	}

	minInterval := cfg.MinInterval
	if minInterval <= 0 {
		minInterval = time.Second
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		maxRetries: cfg.MaxRetries,
		http:       &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Every(minInterval), 1),
		breaker:    gobreaker.NewCircuitBreaker(settings),
		log:        log,
	}
}

// owmPayload is the slice of the /weather response we consume.
// units=imperial gives temp in °F and wind speed in mph.
type owmPayload struct {
	DT   int64 `json:"dt"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
		Pressure float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
}

// Current fetches the current observation for a coordinate.
func (c *Client) Current(ctx context.Context, lat, lon float64) (model.Observation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.Observation{}, fmt.Errorf("rate limit wait: %w", err)
	}

	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.4f", lat))
	q.Set("lon", fmt.Sprintf("%.4f", lon))
	q.Set("appid", c.apiKey)
	q.Set("units", "imperial")
	endpoint := c.baseURL + "/weather?" + q.Encode()

	raw, err := c.breaker.Execute(func() (any, error) {
		return c.fetch(ctx, endpoint)
	})
	if err != nil {
		return model.Observation{}, err
	}
	payload := raw.(owmPayload)

	obs := model.Observation{
		Latitude:      lat,
		Longitude:     lon,
		Temperature:   payload.Main.Temp,
		Humidity:      payload.Main.Humidity,
		WindSpeed:     payload.Wind.Speed,
		WindDirection: payload.Wind.Deg,
		Pressure:      payload.Main.Pressure,
		Timestamp:     time.Unix(payload.DT, 0).UTC(),
	}
	if len(payload.Weather) > 0 {
		obs.Conditions = payload.Weather[0].Main
	}
	return obs, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) (owmPayload, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return owmPayload{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		payload, retryable, err := c.doOnce(ctx, endpoint)
		if err == nil {
			return payload, nil
		}
		lastErr = err
		if !retryable {
			return owmPayload{}, err
		}
		c.log.Warn().Err(err).Int("attempt", attempt+1).Msg("weather fetch retry")
	}
	return owmPayload{}, fmt.Errorf("weather fetch exhausted retries: %w", lastErr)
}

func (c *Client) doOnce(ctx context.Context, endpoint string) (owmPayload, bool, error) {
	start := time.Now()
	defer func() {
		observability.ObserveUpstreamLatency("openweathermap", time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return owmPayload{}, false, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return owmPayload{}, true, fmt.Errorf("weather request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return owmPayload{}, true, fmt.Errorf("weather api status %d", resp.StatusCode)
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return owmPayload{}, false, fmt.Errorf("weather api status %d", resp.StatusCode)
	}

	var payload owmPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return owmPayload{}, false, fmt.Errorf("decode weather payload: %w", err)
	}
	return payload, false, nil
}
