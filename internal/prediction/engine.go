// Trackcast - Commuter Rail Track Assignment Prediction
// Copyright 2026 Trackcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trackcast/trackcast

// Package prediction ranks track predictions for a destination by combining
// up to three independent signals: a recent inbound arrival, a learned
// per-train historical pattern, and the static branch prior.
package prediction

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/trackcast/trackcast/internal/logging"
	"github.com/trackcast/trackcast/internal/metrics"
	"github.com/trackcast/trackcast/internal/models"
	"github.com/trackcast/trackcast/internal/store"
)

// InboundConfidence is the confidence of an inbound-match prediction. An
// equipment turn is strong evidence but the train can still be re-platformed.
const InboundConfidence = 85

// RealtimeConfidence is the confidence of a live-feed passthrough
// prediction, served only before the first learning cycle completes.
const RealtimeConfidence = 90

// minPatternObservations is the floor below which a learned pattern is noise.
const minPatternObservations = 2

// RealtimeSource serves the degraded passthrough mode: a live fetch decoded
// into assignments, bypassing the (still empty) store.
type RealtimeSource interface {
	Live(ctx context.Context) ([]models.TrackAssignment, error)
}

// Engine ranks predictions from a read-only store view.
type Engine struct {
	reader        store.Reader
	realtime      RealtimeSource
	inboundWindow time.Duration

	// now is injected for deterministic tests.
	now func() time.Time
}

// NewEngine creates an engine. realtime may be nil to disable the
// passthrough fallback.
func NewEngine(reader store.Reader, realtime RealtimeSource, inboundWindow time.Duration) *Engine {
	return &Engine{
		reader:        reader,
		realtime:      realtime,
		inboundWindow: inboundWindow,
		now:           time.Now,
	}
}

// Predict returns ranked predictions for a destination, optionally narrowed
// by train number. An empty result is a valid answer, not an error.
func (e *Engine) Predict(ctx context.Context, destination, trainNum string) ([]models.Prediction, error) {
	var preds []models.Prediction

	if p, ok := e.inboundMatch(ctx, destination); ok {
		preds = append(preds, p)
	}
	if p, ok := e.historicalPattern(ctx, destination, trainNum); ok {
		preds = append(preds, p)
	}
	if p, ok := e.branchPattern(destination); ok {
		preds = append(preds, p)
	}

	// Before the first completed learning cycle the store answers nothing
	// but seeds; a live feed snapshot is better than priors alone.
	if e.realtime != nil {
		cold, err := e.storeIsCold(ctx)
		if err != nil {
			return nil, err
		}
		if cold {
			live, err := e.realtimePassthrough(ctx, destination, trainNum)
			if err != nil {
				return nil, err
			}
			preds = append(preds, live...)
		}
	}

	// Highest confidence first; equal confidence keeps method order.
	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Confidence > preds[j].Confidence
	})

	for _, p := range preds {
		metrics.PredictionMethods.WithLabelValues(p.Method).Inc()
	}
	return preds, nil
}

// inboundMatch predicts from the most recent inbound arrival when it is
// fresh enough to still be the turning equipment.
func (e *Engine) inboundMatch(ctx context.Context, destination string) (models.Prediction, bool) {
	arrival, err := e.reader.Arrival(ctx, destination)
	if err != nil {
		logging.Error().Err(err).Str("destination", destination).Msg("Failed to read recent arrival")
		return models.Prediction{}, false
	}
	if arrival == nil {
		return models.Prediction{}, false
	}

	age := e.now().Sub(arrival.ObservedAt)
	if age < 0 || age > e.inboundWindow {
		return models.Prediction{}, false
	}

	minutes := int(age.Minutes())
	return models.Prediction{
		Method:     models.MethodInboundMatch,
		Track:      arrival.Track,
		Confidence: InboundConfidence,
		Reason:     fmt.Sprintf("inbound train arrived on track %s %d minutes ago", arrival.Track, minutes),
	}, true
}

// historicalPattern predicts from the learned pattern at the current
// weekday/hour bucket for the given train.
func (e *Engine) historicalPattern(ctx context.Context, destination, trainNum string) (models.Prediction, bool) {
	if trainNum == "" {
		return models.Prediction{}, false
	}

	now := e.now()
	pattern, err := e.reader.Pattern(ctx, destination, now.Weekday(), now.Hour(), trainNum)
	if err != nil {
		logging.Error().Err(err).Str("destination", destination).Str("train", trainNum).Msg("Failed to read pattern")
		return models.Prediction{}, false
	}
	if pattern == nil || pattern.TotalObservations < minPatternObservations {
		return models.Prediction{}, false
	}

	return models.Prediction{
		Method:       models.MethodHistoricalPattern,
		Track:        pattern.MostCommonTrack,
		Confidence:   pattern.Confidence,
		Reason:       fmt.Sprintf("train %s used track %s in %d of %d observations at this hour", trainNum, pattern.MostCommonTrack, pattern.TrackCounts[pattern.MostCommonTrack], pattern.TotalObservations),
		Alternatives: pattern.AlternativeTracks,
	}, true
}

// branchPattern is the static prior, always included when the destination is
// seeded.
func (e *Engine) branchPattern(destination string) (models.Prediction, bool) {
	seed, ok := Seed(destination)
	if !ok {
		return models.Prediction{}, false
	}
	return models.Prediction{
		Method:     models.MethodBranchPattern,
		Tracks:     seed.Tracks,
		Confidence: seed.Confidence,
		Reason:     fmt.Sprintf("%s trains typically use these tracks", destination),
	}, true
}

// storeIsCold reports whether no learning cycle has ever completed.
func (e *Engine) storeIsCold(ctx context.Context) (bool, error) {
	stats, err := e.reader.Stats(ctx)
	if err != nil {
		return false, fmt.Errorf("read learning stats: %w", err)
	}
	return stats.LastUpdateAt == nil, nil
}

// realtimePassthrough serves live departures directly. Unlike learned
// signals, a dead upstream here is the caller's problem: there is nothing
// else to answer with, so the error propagates as a server fault.
func (e *Engine) realtimePassthrough(ctx context.Context, destination, trainNum string) ([]models.Prediction, error) {
	assignments, err := e.realtime.Live(ctx)
	if err != nil {
		return nil, fmt.Errorf("realtime passthrough: %w", err)
	}

	var preds []models.Prediction
	for _, a := range assignments {
		if a.Destination != destination || !a.IsDeparture {
			continue
		}
		if trainNum != "" && a.TrainNum != trainNum {
			continue
		}
		preds = append(preds, models.Prediction{
			Method:     models.MethodRealtime,
			Track:      a.Track,
			Confidence: RealtimeConfidence,
			Reason:     fmt.Sprintf("live feed shows track %s", a.Track),
		})
	}
	return preds, nil
}
