package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emberalert/fire-risk/internal/core/observability"
	"github.com/emberalert/fire-risk/internal/health"
	"github.com/emberalert/fire-risk/internal/middleware"
)

// NewRouter wires the HTTP surface: prediction endpoints under /api/v1,
// health probes, and the Prometheus scrape endpoint.
func NewRouter(h *Handler, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recover())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(log))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/health", instrument("/health", h.healthCheck))
	r.Get("/health/detailed", instrument("/health/detailed", h.healthDetailed))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/predict", instrument("/api/v1/predict", h.predictOne))
		r.Post("/predict/batch", instrument("/api/v1/predict/batch", h.predictBatch))
		r.Get("/model/info", instrument("/api/v1/model/info", h.modelInfo))
		r.Get("/cache/stats", instrument("/api/v1/cache/stats", h.cacheStats))
		r.Post("/cache/clear", instrument("/api/v1/cache/clear", h.cacheClear))
	})

	return r
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// instrument records request count and latency per route. Routes are
// labeled with their pattern, not the raw path, to keep cardinality low.
func instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next(sw, r)
		observability.ObserveHTTP(r.Method, route, sw.status, time.Since(start).Seconds())
	}
}
