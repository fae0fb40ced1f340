package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/emberalert/fire-risk/internal/model"
	"github.com/emberalert/fire-risk/internal/predict"
)

type Handler struct {
	svc      *predict.Service
	log      zerolog.Logger
	maxBatch int
}

func NewHandler(svc *predict.Service, maxBatch int, log zerolog.Logger) *Handler {
	if maxBatch <= 0 {
		maxBatch = 100
	}
	return &Handler{svc: svc, log: log, maxBatch: maxBatch}
}

func (h *Handler) predictOne(w http.ResponseWriter, r *http.Request) {
	var req predictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	res, err := h.svc.PredictOne(r.Context(), req.toObservation())
	if err != nil {
		h.writePredictError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) predictBatch(w http.ResponseWriter, r *http.Request) {
	var req batchPredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation error", err.Error())
		return
	}
	if len(req.Predictions) > h.maxBatch {
		writeError(w, http.StatusBadRequest, "validation error", "batch size exceeds maximum")
		return
	}

	obsList := make([]model.Observation, len(req.Predictions))
	for i, p := range req.Predictions {
		obsList[i] = p.toObservation()
	}

	results, err := h.svc.PredictBatch(r.Context(), obsList)
	if err != nil {
		h.writePredictError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"predictions":   results,
		"total":         len(results),
		"model_version": h.svc.ModelVersion(),
	})
}

func (h *Handler) writePredictError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, predict.ErrModelUnavailable):
		h.log.Error().Err(err).Msg("prediction rejected: model unavailable")
		writeError(w, http.StatusServiceUnavailable, "model unavailable", "scoring model is not loaded")
	default:
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("prediction failed")
		writeError(w, http.StatusInternalServerError, "prediction failed", err.Error())
	}
}

func (h *Handler) modelInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":      h.svc.ModelVersion(),
		"model_type":   "composite-sigmoid",
		"model_loaded": h.svc.ModelLoaded(),
	})
}

func (h *Handler) cacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.CacheStats(r.Context()))
}

func (h *Handler) cacheClear(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.ClearCache(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cache clear failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": n})
}

func (h *Handler) healthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   h.svc.ModelVersion(),
	})
}

func (h *Handler) healthDetailed(w http.ResponseWriter, r *http.Request) {
	stats := h.svc.CacheStats(r.Context())

	status := "healthy"
	if !h.svc.ModelLoaded() || !stats.Connected {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"components": map[string]any{
			"model": map[string]any{
				"loaded":  h.svc.ModelLoaded(),
				"version": h.svc.ModelVersion(),
			},
			"cache": stats,
		},
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg, details string) {
	writeJSON(w, code, map[string]any{"error": msg, "details": details})
}
