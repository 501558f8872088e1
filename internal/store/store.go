// Trackcast - Commuter Rail Track Assignment Prediction
// Copyright 2026 Trackcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trackcast/trackcast

// Package store provides the key-value abstraction backing the pattern
// store, with a durable BadgerDB implementation and an in-memory one.
//
// Key layout:
//
//	pattern:{destination}:{dayOfWeek}:{hour}:{trainNum} -> TrainPattern
//	arrival:{destination}                               -> RecentArrival
//	stats:learning                                      -> HealthStats
//
// Writes are atomic per key. No cross-key transactions are offered; the
// learning loop's key granularity makes them unnecessary.
package store

import (
	"context"
	"fmt"
	"time"
)

// Key prefixes and fixed keys for stored state.
const (
	PatternKeyPrefix = "pattern:"
	ArrivalKeyPrefix = "arrival:"
	StatsKey         = "stats:learning"
)

// Store is the minimal key-value contract required by the learning loop and
// the prediction engine. A durable backend can be substituted without
// changing callers.
type Store interface {
	// Get returns the value for key, with found=false when absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key, atomically with respect to that key.
	Set(ctx context.Context, key string, value []byte) error

	// CountPrefix counts keys beginning with prefix.
	CountPrefix(ctx context.Context, prefix string) (int, error)

	// Close releases backend resources.
	Close() error
}

// PatternKey builds the learned-pattern key for a destination, time bucket,
// and train number.
func PatternKey(destination string, dayOfWeek time.Weekday, hour int, trainNum string) string {
	return fmt.Sprintf("%s%s:%d:%d:%s", PatternKeyPrefix, destination, int(dayOfWeek), hour, trainNum)
}

// ArrivalKey builds the recent-arrival key for a destination.
func ArrivalKey(destination string) string {
	return ArrivalKeyPrefix + destination
}
