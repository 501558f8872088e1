// Trackcast - Commuter Rail Track Assignment Prediction
// Copyright 2026 Trackcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trackcast/trackcast

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/trackcast/trackcast/internal/models"
)

// Reader is the read-only view of the pattern store handed to the prediction
// engine and the health reporter. Write methods are only reachable through
// *PatternStore, which the learning loop alone holds. That interface split is
// what enforces the single-writer discipline.
type Reader interface {
	Pattern(ctx context.Context, destination string, dayOfWeek time.Weekday, hour int, trainNum string) (*models.TrainPattern, error)
	Arrival(ctx context.Context, destination string) (*models.RecentArrival, error)
	Stats(ctx context.Context) (*models.HealthStats, error)
}

// PatternStore wraps a Store with typed access to learned patterns, recent
// arrivals, and health statistics. Values are JSON-encoded.
type PatternStore struct {
	kv Store
}

// NewPatternStore wraps the given backend.
func NewPatternStore(kv Store) *PatternStore {
	return &PatternStore{kv: kv}
}

// Pattern returns the learned pattern for the key, or nil when absent.
func (s *PatternStore) Pattern(ctx context.Context, destination string, dayOfWeek time.Weekday, hour int, trainNum string) (*models.TrainPattern, error) {
	key := PatternKey(destination, dayOfWeek, hour, trainNum)
	data, found, err := s.kv.Get(ctx, key)
	if err != nil || !found {
		return nil, err
	}
	var p models.TrainPattern
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode pattern %s: %w", key, err)
	}
	return &p, nil
}

// PutPattern persists a learned pattern.
func (s *PatternStore) PutPattern(ctx context.Context, destination string, dayOfWeek time.Weekday, hour int, trainNum string, p *models.TrainPattern) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode pattern: %w", err)
	}
	return s.kv.Set(ctx, PatternKey(destination, dayOfWeek, hour, trainNum), data)
}

// Arrival returns the most recent inbound arrival for the destination, or
// nil when none has been observed.
func (s *PatternStore) Arrival(ctx context.Context, destination string) (*models.RecentArrival, error) {
	data, found, err := s.kv.Get(ctx, ArrivalKey(destination))
	if err != nil || !found {
		return nil, err
	}
	var a models.RecentArrival
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode arrival for %s: %w", destination, err)
	}
	return &a, nil
}

// PutArrival overwrites the recent arrival for the destination.
func (s *PatternStore) PutArrival(ctx context.Context, destination string, a *models.RecentArrival) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode arrival: %w", err)
	}
	return s.kv.Set(ctx, ArrivalKey(destination), data)
}

// Stats returns the persisted health statistics. A store that has never
// completed a learning cycle yields a zero-valued snapshot.
func (s *PatternStore) Stats(ctx context.Context) (*models.HealthStats, error) {
	data, found, err := s.kv.Get(ctx, StatsKey)
	if err != nil {
		return nil, err
	}
	if !found {
		return &models.HealthStats{}, nil
	}
	var h models.HealthStats
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode health stats: %w", err)
	}
	return &h, nil
}

// PutStats persists the health statistics.
func (s *PatternStore) PutStats(ctx context.Context, h *models.HealthStats) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode health stats: %w", err)
	}
	return s.kv.Set(ctx, StatsKey, data)
}

// CountPatterns counts distinct learned pattern keys.
func (s *PatternStore) CountPatterns(ctx context.Context) (int, error) {
	return s.kv.CountPrefix(ctx, PatternKeyPrefix)
}
