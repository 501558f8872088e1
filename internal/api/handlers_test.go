// Trackcast - Commuter Rail Track Assignment Prediction
// Copyright 2026 Trackcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trackcast/trackcast

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/trackcast/trackcast/internal/config"
	"github.com/trackcast/trackcast/internal/models"
	"github.com/trackcast/trackcast/internal/prediction"
	"github.com/trackcast/trackcast/internal/store"
)

// envelope mirrors models.APIResponse with raw data for per-test decoding.
type envelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error"`
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Host:            "127.0.0.1",
		Port:            0,
		Timeout:         5 * time.Second,
		RateLimitReqs:   1000,
		RateLimitWindow: time.Minute,
		CORSOrigins:     []string{"*"},
	}
}

// newTestRouter builds the full router over a fresh store and returns the
// writable handle for staging state.
func newTestRouter(t *testing.T) (http.Handler, *store.PatternStore) {
	t.Helper()
	ps := store.NewPatternStore(store.NewMemoryStore())
	engine := prediction.NewEngine(ps, nil, 15*time.Minute)
	handler := NewHandler(ps, engine)
	return NewRouter(handler, testServerConfig()), ps
}

func doRequest(t *testing.T, router http.Handler, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
		}
	}
	return rec, env
}

func TestPredictionsMissingDestination(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, env := doRequest(t, router, "/api/v1/predictions")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "MISSING_DESTINATION" {
		t.Errorf("error = %+v, want MISSING_DESTINATION", env.Error)
	}
}

func TestPredictionsUnknownDestination(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, env := doRequest(t, router, "/api/v1/predictions?destination=Narnia")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "UNKNOWN_DESTINATION" {
		t.Fatalf("error = %+v, want UNKNOWN_DESTINATION", env.Error)
	}
	if !strings.Contains(env.Error.Message, "Babylon") {
		t.Errorf("message = %q, want the served destinations listed", env.Error.Message)
	}
}

func TestPredictionsSeedOnly(t *testing.T) {
	router, ps := newTestRouter(t)
	warmStats(t, ps)

	rec, env := doRequest(t, router, "/api/v1/predictions?destination=babylon")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if env.Status != "success" {
		t.Errorf("envelope status = %q", env.Status)
	}

	var resp models.PredictionResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if resp.Destination != "Babylon" {
		t.Errorf("destination = %q, want canonical Babylon", resp.Destination)
	}
	if len(resp.Predictions) != 1 || resp.Predictions[0].Method != models.MethodBranchPattern {
		t.Errorf("predictions = %+v", resp.Predictions)
	}
}

func TestPredictionsWithTrain(t *testing.T) {
	router, ps := newTestRouter(t)
	warmStats(t, ps)

	now := time.Now()
	p := models.NewTrainPattern()
	p.Observe("13", now)
	p.Observe("13", now)
	// Stage the next bucket too so an hour rollover mid-test cannot flake.
	for _, at := range []time.Time{now, now.Add(time.Hour)} {
		if err := ps.PutPattern(context.Background(), "Babylon", at.Weekday(), at.Hour(), "2739", p); err != nil {
			t.Fatalf("put pattern: %v", err)
		}
	}

	rec, env := doRequest(t, router, "/api/v1/predictions?destination=Babylon&train=2739")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp models.PredictionResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if resp.TrainNum != "2739" {
		t.Errorf("trainNum = %q", resp.TrainNum)
	}
	if len(resp.Predictions) != 2 || resp.Predictions[0].Method != models.MethodHistoricalPattern {
		t.Errorf("predictions = %+v, want historical first", resp.Predictions)
	}
}

func TestStatsEndpoint(t *testing.T) {
	router, ps := newTestRouter(t)
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	stats := &models.HealthStats{
		TotalPatterns:     7,
		LastUpdateAt:      &now,
		SuccessfulFetches: 12,
		FailedFetches:     3,
		IsHealthy:         true,
	}
	if err := ps.PutStats(context.Background(), stats); err != nil {
		t.Fatalf("put stats: %v", err)
	}

	rec, env := doRequest(t, router, "/api/v1/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got models.HealthStats
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if got.TotalPatterns != 7 || got.SuccessfulFetches != 12 || got.FailedFetches != 3 || !got.IsHealthy {
		t.Errorf("stats = %+v", got)
	}
}

func TestHealthEndpoint(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		router, ps := newTestRouter(t)
		warmStats(t, ps)

		rec, env := doRequest(t, router, "/api/v1/health")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp models.HealthResponse
		if err := json.Unmarshal(env.Data, &resp); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		if resp.Status != "healthy" {
			t.Errorf("status = %q, want healthy", resp.Status)
		}
	})

	t.Run("stale before first cycle", func(t *testing.T) {
		router, _ := newTestRouter(t)

		rec, env := doRequest(t, router, "/api/v1/health")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp models.HealthResponse
		if err := json.Unmarshal(env.Data, &resp); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		if resp.Status != "stale" {
			t.Errorf("status = %q, want stale", resp.Status)
		}
	})
}

func TestHealthLiveEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	rec, env := doRequest(t, router, "/api/v1/health/live")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if env.Status != "success" {
		t.Errorf("envelope status = %q", env.Status)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

// warmStats marks the store as having completed a learning cycle.
func warmStats(t *testing.T, ps *store.PatternStore) {
	t.Helper()
	now := time.Now()
	if err := ps.PutStats(context.Background(), &models.HealthStats{LastUpdateAt: &now, IsHealthy: true}); err != nil {
		t.Fatalf("put stats: %v", err)
	}
}
