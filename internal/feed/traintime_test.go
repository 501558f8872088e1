// Trackcast - Commuter Rail Track Assignment Prediction
// Copyright 2026 Trackcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trackcast/trackcast

package feed

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTrainTime(t *testing.T) {
	p := NewParser(1, 21)
	departure := time.Date(2026, 3, 2, 17, 42, 0, 0, time.UTC)

	t.Run("explicit track field wins", func(t *testing.T) {
		payload := []byte(`{"trains":[
			{"train_num":"2739","destination":"Babylon","track":"13","stop_id":"NYK_99","departure_time":` + unixStr(departure) + `}
		]}`)
		got := p.ParseTrainTime(payload)
		if len(got) != 1 {
			t.Fatalf("got %d assignments, want 1", len(got))
		}
		if got[0].Track != "13" || got[0].Destination != "Babylon" || !got[0].IsDeparture {
			t.Errorf("assignment = %+v", got[0])
		}
	})

	t.Run("falls back to stop id extraction", func(t *testing.T) {
		payload := []byte(`{"trains":[
			{"train_num":"100","destination":"hempstead","stop_id":"ATL_07","arrival_time":` + unixStr(departure) + `}
		]}`)
		got := p.ParseTrainTime(payload)
		if len(got) != 1 {
			t.Fatalf("got %d assignments, want 1", len(got))
		}
		if got[0].Track != "07" || got[0].Destination != "Hempstead" || !got[0].IsArrival {
			t.Errorf("assignment = %+v", got[0])
		}
	})

	t.Run("unknown destination discarded", func(t *testing.T) {
		payload := []byte(`{"trains":[
			{"train_num":"1","destination":"Narnia","track":"5","departure_time":` + unixStr(departure) + `}
		]}`)
		if got := p.ParseTrainTime(payload); len(got) != 0 {
			t.Errorf("got %d assignments, want 0", len(got))
		}
	})

	t.Run("missing timestamps discarded", func(t *testing.T) {
		payload := []byte(`{"trains":[{"train_num":"1","destination":"Babylon","track":"5"}]}`)
		if got := p.ParseTrainTime(payload); len(got) != 0 {
			t.Errorf("got %d assignments, want 0", len(got))
		}
	})

	t.Run("malformed payload yields empty slice", func(t *testing.T) {
		if got := p.ParseTrainTime([]byte(`{"trains":[`)); got != nil {
			t.Errorf("got %+v, want nil", got)
		}
	})
}

func TestParseDispatch(t *testing.T) {
	p := NewParser(1, 21)
	payload := []byte(`{"trains":[{"train_num":"1","destination":"Babylon","track":"5","departure_time":1700000000}]}`)

	if got := p.Parse("traintime", payload); len(got) != 1 {
		t.Errorf("traintime mode: got %d assignments, want 1", len(got))
	}
	// The same bytes are not a valid protobuf message.
	if got := p.Parse("gtfsrt", payload); len(got) != 0 {
		t.Errorf("gtfsrt mode: got %d assignments, want 0", len(got))
	}
}

func unixStr(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
