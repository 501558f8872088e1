// Trackcast - Commuter Rail Track Assignment Prediction
// Copyright 2026 Trackcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trackcast/trackcast

// Package main is the entry point for the Trackcast server.
//
// Trackcast predicts which platform track an outbound commuter train will
// depart from, by continuously learning track assignments from a live
// GTFS-Realtime (or TrainTime JSON) feed and serving ranked predictions
// over HTTP.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, YAML file, environment (Koanf v2)
//  2. Pattern store: BadgerDB (or in-memory for ephemeral runs)
//  3. Feed pipeline: fetcher with retry + circuit breaker, format parser
//  4. Learning loop: 30 s fetch-parse-update cycle, sole store writer
//  5. Prediction engine: read-only ranking over the learned patterns
//  6. HTTP server: chi router with predictions, stats, health, metrics
//
// The learning loop and HTTP server run under a suture supervision tree:
// a crash in either is restarted with backoff and never takes down the
// other.
//
// # Configuration
//
// All knobs have defaults; common overrides:
//
//	export FEED_URL=https://example.com/gtfs-rt
//	export FEED_API_KEY=your-key
//	export STORE_PATH=/data/trackcast
//	export HTTP_PORT=8553
//	export LOG_LEVEL=debug
//	./trackcast
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests (10 s timeout) and the learning loop finishes its
// current cycle before the process exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/trackcast/trackcast/internal/api"
	"github.com/trackcast/trackcast/internal/config"
	"github.com/trackcast/trackcast/internal/feed"
	"github.com/trackcast/trackcast/internal/learning"
	"github.com/trackcast/trackcast/internal/logging"
	"github.com/trackcast/trackcast/internal/prediction"
	"github.com/trackcast/trackcast/internal/store"
	"github.com/trackcast/trackcast/internal/supervisor"
	"github.com/trackcast/trackcast/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config is not available yet; the default logger reports this one.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("feed_url", cfg.Feed.URL).
		Str("feed_mode", cfg.Feed.Mode).
		Str("store_backend", cfg.Store.Backend).
		Msg("Configuration loaded")

	kv, err := openStore(cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open pattern store")
	}
	defer func() {
		if err := kv.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing pattern store")
		}
	}()
	logging.Info().Msg("Pattern store opened")

	patterns := store.NewPatternStore(kv)

	fetcher := feed.NewFetcher(cfg.Feed)
	parser := feed.NewParser(cfg.Feed.TrackMin, cfg.Feed.TrackMax)
	learner := learning.NewLearner(cfg.Learning, cfg.Feed.Mode, fetcher, parser, patterns)

	// The engine and handlers see the store read-only; the learner above
	// holds the only writable handle.
	live := feed.NewLiveSource(fetcher, parser, cfg.Feed.Mode)
	engine := prediction.NewEngine(patterns, live, cfg.Learning.InboundWindow)
	handler := api.NewHandler(patterns, engine)
	router := api.NewRouter(handler, cfg.Server)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddLearningService(services.NewLearnerService(learner))
	tree.AddAPIService(services.NewHTTPServerService(server, supervisor.DefaultTreeConfig().ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Starting Trackcast")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree exited with error")
		os.Exit(1)
	}

	logging.Info().Msg("Trackcast stopped")
}

// openStore opens the configured store backend.
func openStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return store.NewBadgerStore(cfg.Path)
	}
}
