// Trackcast - Commuter Rail Track Assignment Prediction
// Copyright 2026 Trackcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trackcast/trackcast

// Package services adapts Trackcast components to suture's Serve lifecycle.
package services

import (
	"context"
	"fmt"
)

// StartStopManager matches the learning loop's Start/Stop lifecycle.
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// LearnerService wraps the learning loop as a supervised service: Start on
// entry, block on the context, Stop on the way out. The loop manages its own
// goroutines internally via WaitGroup, so this wrapper only orchestrates the
// lifecycle transitions.
type LearnerService struct {
	manager StartStopManager
	name    string
}

// NewLearnerService creates a supervised wrapper around the learning loop.
func NewLearnerService(manager StartStopManager) *LearnerService {
	return &LearnerService{
		manager: manager,
		name:    "learning-loop",
	}
}

// Serve implements suture.Service. A Start failure returns immediately so
// suture applies its restart backoff; Stop blocks until the loop's current
// cycle completes.
func (s *LearnerService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("learning loop start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("learning loop stop failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer; suture uses it in log messages.
func (s *LearnerService) String() string {
	return s.name
}
