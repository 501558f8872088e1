// Trackcast - Commuter Rail Track Assignment Prediction
// Copyright 2026 Trackcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trackcast/trackcast

package prediction

import "github.com/trackcast/trackcast/internal/models"

// SeedConfidence is the fixed confidence of branch-prior predictions. Seeds
// are background knowledge, deliberately below anything learned.
const SeedConfidence = 35

// branchSeeds holds static per-destination track priors for the modeled
// terminal, ordered by historical likelihood. They answer queries before the
// learner has seen a single train, and remain as the baseline signal after.
var branchSeeds = map[string]models.SeedPattern{
	"Babylon":            {Tracks: []string{"15", "16", "17", "18"}, Confidence: SeedConfidence},
	"Hempstead":          {Tracks: []string{"17", "18", "19"}, Confidence: SeedConfidence},
	"Oyster Bay":         {Tracks: []string{"11", "12"}, Confidence: SeedConfidence},
	"Ronkonkoma":         {Tracks: []string{"16", "17", "18", "19"}, Confidence: SeedConfidence},
	"Montauk":            {Tracks: []string{"18", "19", "20"}, Confidence: SeedConfidence},
	"Long Beach":         {Tracks: []string{"13", "14", "15"}, Confidence: SeedConfidence},
	"Far Rockaway":       {Tracks: []string{"13", "14"}, Confidence: SeedConfidence},
	"West Hempstead":     {Tracks: []string{"12", "13"}, Confidence: SeedConfidence},
	"Port Washington":    {Tracks: []string{"19", "20", "21"}, Confidence: SeedConfidence},
	"Port Jefferson":     {Tracks: []string{"14", "15", "16"}, Confidence: SeedConfidence},
	"Belmont Park":       {Tracks: []string{"11"}, Confidence: SeedConfidence},
	"City Terminal Zone": {Tracks: []string{"13", "14", "15", "16"}, Confidence: SeedConfidence},
}

// Seed returns the static prior for a destination.
func Seed(destination string) (models.SeedPattern, bool) {
	s, ok := branchSeeds[destination]
	return s, ok
}
