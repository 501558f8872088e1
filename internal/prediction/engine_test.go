// Trackcast - Commuter Rail Track Assignment Prediction
// Copyright 2026 Trackcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trackcast/trackcast

package prediction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/trackcast/trackcast/internal/models"
	"github.com/trackcast/trackcast/internal/store"
)

var monday15 = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

// newTestEngine returns an engine over a fresh store plus the writable
// handle so tests can stage state.
func newTestEngine(realtime RealtimeSource) (*Engine, *store.PatternStore) {
	ps := store.NewPatternStore(store.NewMemoryStore())
	e := NewEngine(ps, realtime, 15*time.Minute)
	e.now = func() time.Time { return monday15 }
	return e, ps
}

// warm marks the store as having completed a learning cycle so the realtime
// fallback stays out of the way.
func warm(t *testing.T, ps *store.PatternStore) {
	t.Helper()
	now := monday15
	if err := ps.PutStats(context.Background(), &models.HealthStats{LastUpdateAt: &now, IsHealthy: true}); err != nil {
		t.Fatalf("put stats: %v", err)
	}
}

func TestPredictSeedOnly(t *testing.T) {
	ctx := context.Background()
	e, ps := newTestEngine(nil)
	warm(t, ps)

	preds, err := e.Predict(ctx, "Babylon", "")
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(preds) != 1 {
		t.Fatalf("got %d predictions, want 1", len(preds))
	}
	p := preds[0]
	if p.Method != models.MethodBranchPattern || p.Confidence != SeedConfidence {
		t.Errorf("prediction = %+v", p)
	}
	if len(p.Tracks) == 0 || p.Track != "" {
		t.Errorf("branch prediction should list tracks, not a single track: %+v", p)
	}
}

func TestPredictUnknownDestinationIsEmpty(t *testing.T) {
	ctx := context.Background()
	e, ps := newTestEngine(nil)
	warm(t, ps)

	preds, err := e.Predict(ctx, "Narnia", "")
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(preds) != 0 {
		t.Errorf("got %d predictions for unseeded destination, want 0", len(preds))
	}
}

func TestInboundMatchWindow(t *testing.T) {
	ctx := context.Background()

	stage := func(t *testing.T, age time.Duration) []models.Prediction {
		t.Helper()
		e, ps := newTestEngine(nil)
		warm(t, ps)
		arrival := &models.RecentArrival{Track: "12", TrainNum: "2044", ObservedAt: monday15.Add(-age)}
		if err := ps.PutArrival(ctx, "Babylon", arrival); err != nil {
			t.Fatalf("put arrival: %v", err)
		}
		preds, err := e.Predict(ctx, "Babylon", "")
		if err != nil {
			t.Fatalf("predict: %v", err)
		}
		return preds
	}

	t.Run("exactly at window included", func(t *testing.T) {
		preds := stage(t, 15*time.Minute)
		if len(preds) != 2 {
			t.Fatalf("got %d predictions, want inbound + branch", len(preds))
		}
		p := preds[0]
		if p.Method != models.MethodInboundMatch || p.Track != "12" || p.Confidence != InboundConfidence {
			t.Errorf("top prediction = %+v", p)
		}
	})

	t.Run("one minute past window excluded", func(t *testing.T) {
		preds := stage(t, 16*time.Minute)
		if len(preds) != 1 || preds[0].Method != models.MethodBranchPattern {
			t.Errorf("predictions = %+v, want branch only", preds)
		}
	})
}

func TestHistoricalPattern(t *testing.T) {
	ctx := context.Background()
	e, ps := newTestEngine(nil)
	warm(t, ps)

	// 5x track 13, 2x track 15 in the Monday-15h bucket.
	p := models.NewTrainPattern()
	for i := 0; i < 5; i++ {
		p.Observe("13", monday15)
	}
	for i := 0; i < 2; i++ {
		p.Observe("15", monday15)
	}
	if err := ps.PutPattern(ctx, "Babylon", time.Monday, 15, "2739", p); err != nil {
		t.Fatalf("put pattern: %v", err)
	}

	preds, err := e.Predict(ctx, "Babylon", "2739")
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(preds) != 2 {
		t.Fatalf("got %d predictions, want historical + branch", len(preds))
	}
	top := preds[0]
	if top.Method != models.MethodHistoricalPattern || top.Track != "13" {
		t.Errorf("top prediction = %+v", top)
	}
	if top.Confidence != 71 {
		t.Errorf("confidence = %d, want 71", top.Confidence)
	}
	if len(top.Alternatives) != 1 || top.Alternatives[0] != "15" {
		t.Errorf("alternatives = %v, want [15]", top.Alternatives)
	}
}

func TestHistoricalPatternRequiresTwoObservations(t *testing.T) {
	ctx := context.Background()
	e, ps := newTestEngine(nil)
	warm(t, ps)

	p := models.NewTrainPattern()
	p.Observe("13", monday15)
	if err := ps.PutPattern(ctx, "Babylon", time.Monday, 15, "2739", p); err != nil {
		t.Fatalf("put pattern: %v", err)
	}

	preds, err := e.Predict(ctx, "Babylon", "2739")
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(preds) != 1 || preds[0].Method != models.MethodBranchPattern {
		t.Errorf("predictions = %+v, want branch only", preds)
	}
}

func TestPredictOrdering(t *testing.T) {
	ctx := context.Background()
	e, ps := newTestEngine(nil)
	warm(t, ps)

	arrival := &models.RecentArrival{Track: "12", ObservedAt: monday15.Add(-2 * time.Minute)}
	if err := ps.PutArrival(ctx, "Babylon", arrival); err != nil {
		t.Fatalf("put arrival: %v", err)
	}
	p := models.NewTrainPattern()
	for i := 0; i < 5; i++ {
		p.Observe("13", monday15)
	}
	p.Observe("15", monday15)
	p.Observe("15", monday15)
	if err := ps.PutPattern(ctx, "Babylon", time.Monday, 15, "2739", p); err != nil {
		t.Fatalf("put pattern: %v", err)
	}

	preds, err := e.Predict(ctx, "Babylon", "2739")
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	want := []string{models.MethodInboundMatch, models.MethodHistoricalPattern, models.MethodBranchPattern}
	if len(preds) != len(want) {
		t.Fatalf("got %d predictions, want %d", len(preds), len(want))
	}
	for i, method := range want {
		if preds[i].Method != method {
			t.Errorf("preds[%d].Method = %s, want %s", i, preds[i].Method, method)
		}
		if i > 0 && preds[i].Confidence > preds[i-1].Confidence {
			t.Errorf("predictions not in descending confidence: %+v", preds)
		}
	}
}

// stubRealtime is a canned live source.
type stubRealtime struct {
	assignments []models.TrackAssignment
	err         error
}

func (s *stubRealtime) Live(_ context.Context) ([]models.TrackAssignment, error) {
	return s.assignments, s.err
}

func TestRealtimePassthrough(t *testing.T) {
	ctx := context.Background()

	t.Run("cold store serves live predictions", func(t *testing.T) {
		rt := &stubRealtime{assignments: []models.TrackAssignment{
			{Destination: "Babylon", Track: "17", TrainNum: "2739", IsDeparture: true, Timestamp: monday15},
			{Destination: "Hempstead", Track: "19", TrainNum: "800", IsDeparture: true, Timestamp: monday15},
		}}
		e, _ := newTestEngine(rt) // no warm: stats never written

		preds, err := e.Predict(ctx, "Babylon", "")
		if err != nil {
			t.Fatalf("predict: %v", err)
		}
		if len(preds) != 2 {
			t.Fatalf("got %d predictions, want realtime + branch", len(preds))
		}
		top := preds[0]
		if top.Method != models.MethodRealtime || top.Track != "17" || top.Confidence != RealtimeConfidence {
			t.Errorf("top prediction = %+v", top)
		}
	})

	t.Run("warm store skips live source", func(t *testing.T) {
		rt := &stubRealtime{err: errors.New("must not be called")}
		e, ps := newTestEngine(rt)
		warm(t, ps)

		preds, err := e.Predict(ctx, "Babylon", "")
		if err != nil {
			t.Fatalf("predict: %v", err)
		}
		if len(preds) != 1 || preds[0].Method != models.MethodBranchPattern {
			t.Errorf("predictions = %+v, want branch only", preds)
		}
	})

	t.Run("cold store with dead upstream errors", func(t *testing.T) {
		rt := &stubRealtime{err: errors.New("upstream down")}
		e, _ := newTestEngine(rt)

		if _, err := e.Predict(ctx, "Babylon", ""); err == nil {
			t.Fatal("expected error from dead realtime source on cold store")
		}
	})
}
