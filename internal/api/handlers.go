// Trackcast - Commuter Rail Track Assignment Prediction
// Copyright 2026 Trackcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trackcast/trackcast

// Package api serves the Trackcast HTTP surface: predictions, learning
// stats, health, and Prometheus metrics.
package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/trackcast/trackcast/internal/feed"
	"github.com/trackcast/trackcast/internal/metrics"
	"github.com/trackcast/trackcast/internal/models"
	"github.com/trackcast/trackcast/internal/prediction"
	"github.com/trackcast/trackcast/internal/store"
)

// Handler holds the read-only dependencies of the request path. Nothing here
// can write to the pattern store.
type Handler struct {
	reader    store.Reader
	engine    *prediction.Engine
	startTime time.Time

	// now is injected for deterministic tests.
	now func() time.Time
}

// NewHandler creates the API handler.
func NewHandler(reader store.Reader, engine *prediction.Engine) *Handler {
	return &Handler{
		reader:    reader,
		engine:    engine,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// Predictions serves GET /api/v1/predictions?destination=X&train=N.
func (h *Handler) Predictions(w http.ResponseWriter, r *http.Request) {
	destination := strings.TrimSpace(r.URL.Query().Get("destination"))
	if destination == "" {
		metrics.PredictionRequests.WithLabelValues("bad_request").Inc()
		respondError(w, http.StatusBadRequest, "MISSING_DESTINATION", "destination query parameter is required", nil)
		return
	}

	// Branch names arrive in whatever casing the caller prefers; anything
	// outside the served destination set is rejected outright rather than
	// handed to the engine as an unanswerable question.
	canonical, ok := feed.ResolveDestination(destination)
	if !ok {
		metrics.PredictionRequests.WithLabelValues("bad_request").Inc()
		respondError(w, http.StatusBadRequest, "UNKNOWN_DESTINATION",
			"unknown destination, valid values: "+strings.Join(feed.Destinations(), ", "), nil)
		return
	}
	destination = canonical

	trainNum := strings.TrimSpace(r.URL.Query().Get("train"))

	preds, err := h.engine.Predict(r.Context(), destination, trainNum)
	if err != nil {
		metrics.PredictionRequests.WithLabelValues("error").Inc()
		if errors.Is(err, feed.ErrFeedUnavailable) {
			respondError(w, http.StatusBadGateway, "FEED_UNAVAILABLE", "upstream feed is unavailable", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to compute predictions", err)
		return
	}

	if len(preds) == 0 {
		metrics.PredictionRequests.WithLabelValues("empty").Inc()
	} else {
		metrics.PredictionRequests.WithLabelValues("hit").Inc()
	}

	respondData(w, http.StatusOK, &models.PredictionResponse{
		Destination: destination,
		TrainNum:    trainNum,
		Predictions: preds,
		Timestamp:   h.now(),
	})
}

// Stats serves GET /api/v1/stats: the persisted learning health snapshot.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reader.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to read learning stats", err)
		return
	}
	respondData(w, http.StatusOK, stats)
}

// Health serves GET /api/v1/health. Staleness is whatever the learner last
// persisted; the request path never recomputes it.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reader.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to read learning stats", err)
		return
	}

	status := "stale"
	if stats.IsHealthy {
		status = "healthy"
	}

	respondData(w, http.StatusOK, &models.HealthResponse{
		Status:        status,
		HealthStats:   *stats,
		UptimeSeconds: h.now().Sub(h.startTime).Seconds(),
	})
}

// HealthLive serves GET /api/v1/health/live: process liveness only.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "alive"})
}
