// Trackcast - Commuter Rail Track Assignment Prediction
// Copyright 2026 Trackcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trackcast/trackcast

// Package metrics provides Prometheus instrumentation for Trackcast:
//   - Feed fetch outcomes, retries, and circuit breaker state
//   - Parse yields and validation rejections
//   - Learning cycle duration and learned pattern counts
//   - Prediction request volume by method
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Feed fetch metrics
	FeedFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackcast_feed_fetches_total",
			Help: "Total number of feed fetch outcomes",
		},
		[]string{"result"}, // "success", "failure"
	)

	FeedFetchRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trackcast_feed_fetch_retries_total",
			Help: "Total number of feed fetch retry attempts",
		},
	)

	FeedFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trackcast_feed_fetch_duration_seconds",
			Help:    "Duration of feed fetches in seconds, including retries",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trackcast_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackcast_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Parser metrics
	AssignmentsParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackcast_assignments_parsed_total",
			Help: "Track assignments extracted from the feed by outcome",
		},
		[]string{"result"}, // "accepted", "invalid_track", "no_timestamp", "unknown_destination"
	)

	// Learning loop metrics
	LearningCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trackcast_learning_cycle_duration_seconds",
			Help:    "Duration of a full learning cycle in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	LearnedPatterns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackcast_learned_patterns",
			Help: "Current number of distinct learned track patterns",
		},
	)

	LearningHealthy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackcast_learning_healthy",
			Help: "1 when the last successful learning cycle is within the staleness threshold",
		},
	)

	// Prediction metrics
	PredictionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackcast_prediction_requests_total",
			Help: "Total prediction requests by result",
		},
		[]string{"result"}, // "hit", "empty", "bad_request", "error"
	)

	PredictionMethods = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackcast_prediction_methods_total",
			Help: "Predictions emitted by method",
		},
		[]string{"method"}, // "inbound_match", "historical_pattern", "branch_pattern", "realtime"
	)

	// API metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trackcast_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"endpoint", "status_code"},
	)
)
