// Trackcast - Commuter Rail Track Assignment Prediction
// Copyright 2026 Trackcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trackcast/trackcast

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trackcast/trackcast/internal/config"
	"github.com/trackcast/trackcast/internal/metrics"
)

// NewRouter wires the full HTTP surface.
func NewRouter(handler *Handler, cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Health endpoints stay outside the rate limiter so monitors cannot
	// starve themselves out.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(requestMetrics("health"))
		r.Get("/live", handler.HealthLive)
		r.Get("/", handler.Health)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))
		r.Use(chimiddleware.Timeout(cfg.Timeout))

		r.With(requestMetrics("predictions")).Get("/predictions", handler.Predictions)
		r.With(requestMetrics("stats")).Get("/stats", handler.Stats)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// requestMetrics records per-endpoint request duration and status code.
func requestMetrics(endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			metrics.APIRequestDuration.
				WithLabelValues(endpoint, strconv.Itoa(ww.Status())).
				Observe(time.Since(start).Seconds())
		})
	}
}
