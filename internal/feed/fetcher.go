// Trackcast - Commuter Rail Track Assignment Prediction
// Copyright 2026 Trackcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trackcast/trackcast

package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/trackcast/trackcast/internal/config"
	"github.com/trackcast/trackcast/internal/logging"
	"github.com/trackcast/trackcast/internal/metrics"
)

// ErrFeedUnavailable is returned after all retry attempts fail, or when the
// circuit breaker is open. The learning loop counts it as a failed fetch.
var ErrFeedUnavailable = errors.New("feed unavailable")

// maxFeedBody bounds a single feed payload. GTFS-RT terminal feeds run well
// under 1 MiB; anything larger is a misbehaving upstream.
const maxFeedBody = 8 << 20

// Fetcher retrieves raw feed payloads over HTTP with retry, rate limiting,
// and circuit breaker protection.
//
// The circuit breaker uses real time (via sony/gobreaker) for its interval
// and timeout calculations. Tests exercise the retry path directly against
// an httptest server rather than mocking the breaker.
type Fetcher struct {
	cfg     config.FeedConfig
	client  *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
	name    string
}

// NewFetcher creates a fetcher for the configured feed endpoint.
//
// Circuit breaker configuration:
// - Max 1 probe request in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 5 requests
func NewFetcher(cfg config.FeedConfig) *Fetcher {
	cbName := "upstream-feed"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &Fetcher{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		cb:      cb,
		name:    cbName,
	}
}

// Fetch retrieves one raw feed payload. It retries transient failures with
// doubling backoff up to the configured attempt count; the whole call is
// wrapped in the circuit breaker so a persistently dead upstream stops
// generating request traffic.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()
	data, err := f.cb.Execute(func() ([]byte, error) {
		return f.fetchWithRetry(ctx)
	})
	metrics.FeedFetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.FeedFetchesTotal.WithLabelValues("failure").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Feed fetch rejected")
			return nil, fmt.Errorf("%w: circuit open", ErrFeedUnavailable)
		}
		return nil, err
	}

	metrics.FeedFetchesTotal.WithLabelValues("success").Inc()
	return data, nil
}

// fetchWithRetry performs up to cfg.RetryAttempts attempts, doubling the
// delay after each failure. Context cancellation aborts the wait.
func (f *Fetcher) fetchWithRetry(ctx context.Context) ([]byte, error) {
	var lastErr error
	delay := f.cfg.RetryDelay

	for attempt := 1; attempt <= f.cfg.RetryAttempts; attempt++ {
		if attempt > 1 {
			metrics.FeedFetchRetries.Inc()
			logging.Debug().Int("attempt", attempt).Dur("delay", delay).Msg("Retrying feed fetch")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		data, err := f.fetchOnce(ctx)
		if err == nil {
			return data, nil
		}
		lastErr = err
		logging.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", f.cfg.RetryAttempts).Msg("Feed fetch attempt failed")

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("%w: %d attempts failed: %v", ErrFeedUnavailable, f.cfg.RetryAttempts, lastErr)
}

// fetchOnce performs a single HTTP GET against the feed endpoint.
func (f *Fetcher) fetchOnce(ctx context.Context) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	if f.cfg.APIKey != "" {
		req.Header.Set("x-api-key", f.cfg.APIKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBody))
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}
	return data, nil
}

// stateToFloat converts circuit breaker state to a numeric value for metrics.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to a string for logging.
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
