// Trackcast - Commuter Rail Track Assignment Prediction
// Copyright 2026 Trackcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trackcast/trackcast

// Package learning runs the background loop that turns feed observations
// into stored track patterns. The learner is the only writer to the pattern
// store; everything else reads.
package learning

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trackcast/trackcast/internal/config"
	"github.com/trackcast/trackcast/internal/logging"
	"github.com/trackcast/trackcast/internal/metrics"
	"github.com/trackcast/trackcast/internal/models"
	"github.com/trackcast/trackcast/internal/store"
)

// Fetcher retrieves one raw feed payload.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Parser decodes a raw payload into track assignments.
type Parser interface {
	Parse(mode string, data []byte) []models.TrackAssignment
}

// Learner runs the fetch-parse-update cycle on a fixed interval.
type Learner struct {
	cfg      config.LearningConfig
	feedMode string
	fetcher  Fetcher
	parser   Parser
	patterns *store.PatternStore

	// now is injected for deterministic tests.
	now func() time.Time

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewLearner creates a learner. The pattern store must be the writable
// handle; no other component may hold one.
func NewLearner(cfg config.LearningConfig, feedMode string, fetcher Fetcher, parser Parser, patterns *store.PatternStore) *Learner {
	return &Learner{
		cfg:      cfg,
		feedMode: feedMode,
		fetcher:  fetcher,
		parser:   parser,
		patterns: patterns,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start launches the learning loop. An immediate cycle runs before the first
// tick so a fresh process has data as soon as the upstream allows.
func (l *Learner) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return fmt.Errorf("learner is already running")
	}
	l.running = true
	// Fresh channel per run so a supervised restart works after Stop.
	l.stopChan = make(chan struct{})
	stop := l.stopChan
	l.mu.Unlock()

	logging.Info().Dur("interval", l.cfg.Interval).Msg("Starting learning loop")

	l.wg.Add(1)
	go l.run(ctx, stop)
	return nil
}

// Stop signals the loop to exit and waits for the current cycle to finish.
func (l *Learner) Stop() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return fmt.Errorf("learner is not running")
	}
	l.running = false
	stop := l.stopChan
	l.mu.Unlock()

	close(stop)
	l.wg.Wait()
	logging.Info().Msg("Learning loop stopped")
	return nil
}

func (l *Learner) run(ctx context.Context, stop <-chan struct{}) {
	defer l.wg.Done()

	l.cycle(ctx)

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Learning loop stopping (context canceled)")
			return
		case <-stop:
			logging.Info().Msg("Learning loop stopping (stop signal received)")
			return
		case <-ticker.C:
			l.cycle(ctx)
		}
	}
}

// cycle runs one fetch-parse-update pass. Panics are recovered here so a bad
// payload or store fault can never kill the loop; a recovered cycle counts as
// a failed fetch.
func (l *Learner) cycle(ctx context.Context) {
	start := l.now()
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("panic", r).Msg("Learning cycle panicked")
			l.recordFailure(ctx)
		}
		metrics.LearningCycleDuration.Observe(time.Since(start).Seconds())
	}()

	data, err := l.fetcher.Fetch(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Feed fetch failed, skipping cycle")
		l.recordFailure(ctx)
		return
	}

	assignments := l.parser.Parse(l.feedMode, data)
	applied := l.apply(ctx, assignments)

	if err := l.recordSuccess(ctx); err != nil {
		logging.Error().Err(err).Msg("Failed to persist learning stats")
		return
	}

	logging.Debug().Int("assignments", len(assignments)).Int("applied", applied).Msg("Learning cycle complete")
}

// apply folds a batch of assignments into the store. Departures grow the
// bucketed patterns; arrivals overwrite the per-destination recent arrival.
// Returns the number of observations that changed stored state.
func (l *Learner) apply(ctx context.Context, assignments []models.TrackAssignment) int {
	applied := 0
	for _, a := range assignments {
		if a.IsArrival {
			arrival := &models.RecentArrival{
				Track:      a.Track,
				TrainNum:   a.TrainNum,
				ObservedAt: a.Timestamp,
			}
			if err := l.patterns.PutArrival(ctx, a.Destination, arrival); err != nil {
				logging.Error().Err(err).Str("destination", a.Destination).Msg("Failed to store arrival")
				continue
			}
			applied++
			continue
		}

		// Pattern keys include the train number; departures without one
		// carry no learnable identity.
		if a.TrainNum == "" {
			continue
		}

		dow := a.Timestamp.Weekday()
		hour := a.Timestamp.Hour()

		pattern, err := l.patterns.Pattern(ctx, a.Destination, dow, hour, a.TrainNum)
		if err != nil {
			logging.Error().Err(err).Str("destination", a.Destination).Str("train", a.TrainNum).Msg("Failed to load pattern")
			continue
		}
		if pattern == nil {
			pattern = models.NewTrainPattern()
		}
		pattern.Observe(a.Track, a.Timestamp)

		if err := l.patterns.PutPattern(ctx, a.Destination, dow, hour, a.TrainNum, pattern); err != nil {
			logging.Error().Err(err).Str("destination", a.Destination).Str("train", a.TrainNum).Msg("Failed to store pattern")
			continue
		}
		applied++
	}
	return applied
}

// recordSuccess bumps the health snapshot after a completed batch.
func (l *Learner) recordSuccess(ctx context.Context) error {
	stats, err := l.patterns.Stats(ctx)
	if err != nil {
		return err
	}

	total, err := l.patterns.CountPatterns(ctx)
	if err != nil {
		return err
	}

	now := l.now()
	stats.SuccessfulFetches++
	stats.TotalPatterns = total
	stats.LastUpdateAt = &now
	stats.IsHealthy = true

	metrics.LearnedPatterns.Set(float64(total))
	metrics.LearningHealthy.Set(1)

	return l.patterns.PutStats(ctx, stats)
}

// recordFailure counts a failed cycle and re-derives staleness from the last
// successful update. Errors here are logged and dropped; a failing store must
// not escalate a failed fetch into a crashed loop.
func (l *Learner) recordFailure(ctx context.Context) {
	stats, err := l.patterns.Stats(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load stats while recording fetch failure")
		return
	}

	stats.FailedFetches++
	stats.IsHealthy = stats.LastUpdateAt != nil && l.now().Sub(*stats.LastUpdateAt) < l.cfg.StalenessThreshold
	if !stats.IsHealthy {
		metrics.LearningHealthy.Set(0)
	}

	if err := l.patterns.PutStats(ctx, stats); err != nil {
		logging.Error().Err(err).Msg("Failed to persist stats while recording fetch failure")
	}
}
