// Trackcast - Commuter Rail Track Assignment Prediction
// Copyright 2026 Trackcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trackcast/trackcast

package feed

import (
	"context"

	"github.com/trackcast/trackcast/internal/models"
)

// LiveSource couples a fetcher and parser into the one-shot live view the
// prediction engine uses before the first learning cycle completes. It
// shares the fetcher's circuit breaker and rate limiter with the learning
// loop, so passthrough traffic cannot hammer the upstream either.
type LiveSource struct {
	fetcher *Fetcher
	parser  *Parser
	mode    string
}

// NewLiveSource creates a live view over the given fetcher and parser.
func NewLiveSource(fetcher *Fetcher, parser *Parser, mode string) *LiveSource {
	return &LiveSource{fetcher: fetcher, parser: parser, mode: mode}
}

// Live fetches and decodes one feed snapshot.
func (s *LiveSource) Live(ctx context.Context) ([]models.TrackAssignment, error) {
	data, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return s.parser.Parse(s.mode, data), nil
}
