// Trackcast - Commuter Rail Track Assignment Prediction
// Copyright 2026 Trackcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trackcast/trackcast

// Package config loads and validates Trackcast configuration.
//
// Configuration is layered via Koanf v2 (highest priority wins):
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the Trackcast server.
type Config struct {
	Feed     FeedConfig     `koanf:"feed"`
	Store    StoreConfig    `koanf:"store"`
	Learning LearningConfig `koanf:"learning"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// FeedConfig configures the upstream departure/arrival feed.
type FeedConfig struct {
	// URL of the realtime feed endpoint.
	URL string `koanf:"url" validate:"required,url"`

	// Mode selects the feed decoder: gtfsrt (protobuf) or traintime (JSON).
	Mode string `koanf:"mode" validate:"oneof=gtfsrt traintime"`

	// APIKey is sent as the x-api-key header when non-empty.
	APIKey string `koanf:"api_key"`

	// Timeout bounds each fetch attempt.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// RetryAttempts is the total number of fetch attempts per cycle.
	RetryAttempts int `koanf:"retry_attempts" validate:"gte=1,lte=10"`

	// RetryDelay is the initial backoff delay; it doubles per attempt.
	RetryDelay time.Duration `koanf:"retry_delay" validate:"gt=0"`

	// RateLimit caps upstream fetches per second across all callers.
	RateLimit float64 `koanf:"rate_limit" validate:"gt=0"`

	// TrackMin and TrackMax bound the valid platform track range for the
	// modeled terminal.
	TrackMin int `koanf:"track_min" validate:"gte=1"`
	TrackMax int `koanf:"track_max" validate:"gtefield=TrackMin"`
}

// StoreConfig configures the pattern store backend.
type StoreConfig struct {
	// Backend is badger (durable) or memory (ephemeral).
	Backend string `koanf:"backend" validate:"oneof=badger memory"`

	// Path is the BadgerDB directory; ignored for the memory backend.
	Path string `koanf:"path"`
}

// LearningConfig configures the background learning loop.
type LearningConfig struct {
	// Interval between learning cycles.
	Interval time.Duration `koanf:"interval" validate:"gt=0"`

	// StalenessThreshold is the freshness window for isHealthy.
	StalenessThreshold time.Duration `koanf:"staleness_threshold" validate:"gt=0"`

	// InboundWindow is the maximum age of a recent arrival usable for
	// inbound-match predictions.
	InboundWindow time.Duration `koanf:"inbound_window" validate:"gt=0"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// RateLimitReqs requests per RateLimitWindow per client IP.
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gte=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gt=0"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults model the
// LIRR Atlantic Terminal deployment but every knob is overridable.
func defaultConfig() *Config {
	return &Config{
		Feed: FeedConfig{
			URL:           "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/lirr%2Fgtfs-lirr",
			Mode:          "gtfsrt",
			APIKey:        "",
			Timeout:       10 * time.Second,
			RetryAttempts: 3,
			RetryDelay:    time.Second,
			RateLimit:     1.0,
			TrackMin:      1,
			TrackMax:      21,
		},
		Store: StoreConfig{
			Backend: "badger",
			Path:    "/data/trackcast",
		},
		Learning: LearningConfig{
			Interval:           30 * time.Second,
			StalenessThreshold: 5 * time.Minute,
			InboundWindow:      15 * time.Minute,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8553,
			Timeout:         30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

var validate = validator.New()

// Validate checks the configuration for structural errors. It is called by
// Load after all layers are merged.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Store.Backend == "badger" && c.Store.Path == "" {
		return fmt.Errorf("store.path is required for the badger backend")
	}
	return nil
}
