// Trackcast - Commuter Rail Track Assignment Prediction
// Copyright 2026 Trackcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trackcast/trackcast

// Package models defines the core data types shared across Trackcast
// components: feed observations, learned patterns, predictions, health
// statistics, and the JSON API envelope.
package models

import (
	"math"
	"time"
)

// MaxConfidence caps learned confidence below 100. A track assignment is
// never a certainty; the terminal can always make an exception.
const MaxConfidence = 95

// TrackAssignment is a single observation extracted from one feed cycle.
// It is ephemeral: produced by the parser, consumed by the learning loop,
// never stored directly.
type TrackAssignment struct {
	Destination string    `json:"destination"`
	Track       string    `json:"track"`
	TrainNum    string    `json:"train_num,omitempty"`
	IsArrival   bool      `json:"is_arrival"`
	IsDeparture bool      `json:"is_departure"`
	Timestamp   time.Time `json:"timestamp"`
}

// TrainPattern accumulates track observations for one (destination,
// time-bucket, train) key. Counts only grow; patterns are never deleted.
type TrainPattern struct {
	// TrackCounts maps track code to observation count.
	TrackCounts map[string]int `json:"track_counts"`

	// TrackOrder records first-seen order of tracks. Go maps do not preserve
	// insertion order, and the most-common tie-break depends on it.
	TrackOrder []string `json:"track_order"`

	MostCommonTrack   string    `json:"most_common_track"`
	Confidence        int       `json:"confidence"`
	TotalObservations int       `json:"total_observations"`
	AlternativeTracks []string  `json:"alternative_tracks,omitempty"`
	LastSeenAt        time.Time `json:"last_seen_at"`
}

// NewTrainPattern returns an empty pattern ready to observe.
func NewTrainPattern() *TrainPattern {
	return &TrainPattern{
		TrackCounts: make(map[string]int),
	}
}

// Observe records one track observation and recomputes the derived fields.
func (p *TrainPattern) Observe(track string, at time.Time) {
	if p.TrackCounts == nil {
		p.TrackCounts = make(map[string]int)
	}
	if _, seen := p.TrackCounts[track]; !seen {
		p.TrackOrder = append(p.TrackOrder, track)
	}
	p.TrackCounts[track]++
	p.TotalObservations++
	p.LastSeenAt = at
	p.recompute()
}

// recompute derives MostCommonTrack, Confidence, and AlternativeTracks from
// the raw counts. Ties break by first-seen order, which TrackOrder preserves.
func (p *TrainPattern) recompute() {
	var top string
	max := 0
	for _, track := range p.TrackOrder {
		if c := p.TrackCounts[track]; c > max {
			top = track
			max = c
		}
	}
	p.MostCommonTrack = top

	if p.TotalObservations > 0 {
		pct := int(math.Round(float64(max) / float64(p.TotalObservations) * 100))
		if pct > MaxConfidence {
			pct = MaxConfidence
		}
		p.Confidence = pct
	}

	// Alternatives: every other track seen more than once, highest count
	// first, first-seen order on equal counts.
	alts := make([]string, 0, len(p.TrackOrder))
	for _, track := range p.TrackOrder {
		if track != top && p.TrackCounts[track] > 1 {
			alts = append(alts, track)
		}
	}
	for i := 1; i < len(alts); i++ {
		for j := i; j > 0 && p.TrackCounts[alts[j]] > p.TrackCounts[alts[j-1]]; j-- {
			alts[j], alts[j-1] = alts[j-1], alts[j]
		}
	}
	if len(alts) == 0 {
		alts = nil
	}
	p.AlternativeTracks = alts
}

// RecentArrival holds the single most recent inbound arrival for a
// destination. It is overwritten, never merged.
type RecentArrival struct {
	Track      string    `json:"track"`
	TrainNum   string    `json:"train_num,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// SeedPattern is static prior knowledge for a destination, used when no
// learned data exists.
type SeedPattern struct {
	Tracks     []string `json:"tracks"`
	Confidence int      `json:"confidence"`
}

// HealthStats is the process-wide learning health snapshot.
type HealthStats struct {
	TotalPatterns     int        `json:"total_patterns"`
	LastUpdateAt      *time.Time `json:"last_update_at,omitempty"`
	SuccessfulFetches int        `json:"successful_fetches"`
	FailedFetches     int        `json:"failed_fetches"`
	IsHealthy         bool       `json:"is_healthy"`
}

// Prediction method names, in evaluation order.
const (
	MethodInboundMatch      = "inbound_match"
	MethodHistoricalPattern = "historical_pattern"
	MethodBranchPattern     = "branch_pattern"
	MethodRealtime          = "realtime"
)

// Prediction is one ranked track prediction.
type Prediction struct {
	Method       string   `json:"method"`
	Track        string   `json:"track,omitempty"`
	Tracks       []string `json:"tracks,omitempty"`
	Confidence   int      `json:"confidence"`
	Reason       string   `json:"reason"`
	Alternatives []string `json:"alternatives,omitempty"`
}

// PredictionResponse is the payload served for a prediction request.
type PredictionResponse struct {
	Destination string       `json:"destination"`
	TrainNum    string       `json:"train_num,omitempty"`
	Predictions []Prediction `json:"predictions"`
	Timestamp   time.Time    `json:"timestamp"`
}

// HealthResponse extends the stats snapshot with the derived status string
// and process uptime for the /health endpoint.
type HealthResponse struct {
	Status string `json:"status"` // "healthy" or "stale"
	HealthStats
	UptimeSeconds float64 `json:"uptime"`
}

// APIResponse is the standard JSON envelope for all endpoints.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response metadata.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
}

// APIError describes an error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
