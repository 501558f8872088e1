// Trackcast - Commuter Rail Track Assignment Prediction
// Copyright 2026 Trackcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trackcast/trackcast

package feed

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/trackcast/trackcast/internal/logging"
	"github.com/trackcast/trackcast/internal/metrics"
	"github.com/trackcast/trackcast/internal/models"
)

// trainTimeFeed is the JSON departure listing served by TrainTime-style
// endpoints. It carries branch names instead of GTFS route IDs and usually an
// explicit track field; stop_id is a fallback for older payloads.
type trainTimeFeed struct {
	Trains []trainTimeEntry `json:"trains"`
}

type trainTimeEntry struct {
	TrainNum      string `json:"train_num"`
	Destination   string `json:"destination"`
	Track         string `json:"track"`
	StopID        string `json:"stop_id"`
	ArrivalTime   int64  `json:"arrival_time"`
	DepartureTime int64  `json:"departure_time"`
}

// ParseTrainTime decodes a JSON departure listing into validated track
// assignments. Same contract as ParseGTFSRT: malformed input yields an empty
// slice, never an error.
func (p *Parser) ParseTrainTime(data []byte) []models.TrackAssignment {
	var feed trainTimeFeed
	if err := json.Unmarshal(data, &feed); err != nil {
		logging.Warn().Err(err).Int("bytes", len(data)).Msg("Malformed TrainTime payload, skipping cycle")
		return nil
	}

	var out []models.TrackAssignment
	for _, entry := range feed.Trains {
		destination, ok := ResolveDestination(entry.Destination)
		if !ok {
			metrics.AssignmentsParsed.WithLabelValues("unknown_destination").Inc()
			continue
		}

		// The explicit track field wins; only fall back to extraction when
		// the listing carries a stop identifier instead.
		track := entry.Track
		if track == "" {
			track = ExtractTrack(entry.StopID)
		}
		if !ValidTrack(track, p.trackMin, p.trackMax) {
			metrics.AssignmentsParsed.WithLabelValues("invalid_track").Inc()
			continue
		}

		var ts time.Time
		isArrival := false
		switch {
		case entry.ArrivalTime != 0 && entry.DepartureTime == 0:
			isArrival = true
			ts = time.Unix(entry.ArrivalTime, 0).UTC()
		case entry.DepartureTime != 0:
			ts = time.Unix(entry.DepartureTime, 0).UTC()
		default:
			metrics.AssignmentsParsed.WithLabelValues("no_timestamp").Inc()
			continue
		}

		metrics.AssignmentsParsed.WithLabelValues("accepted").Inc()
		out = append(out, models.TrackAssignment{
			Destination: destination,
			Track:       track,
			TrainNum:    entry.TrainNum,
			IsArrival:   isArrival,
			IsDeparture: !isArrival,
			Timestamp:   ts,
		})
	}
	return out
}

// Parse dispatches on the configured feed mode.
func (p *Parser) Parse(mode string, data []byte) []models.TrackAssignment {
	if mode == "traintime" {
		return p.ParseTrainTime(data)
	}
	return p.ParseGTFSRT(data)
}
