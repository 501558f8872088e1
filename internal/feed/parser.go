// Trackcast - Commuter Rail Track Assignment Prediction
// Copyright 2026 Trackcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trackcast/trackcast

package feed

import (
	"regexp"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/trackcast/trackcast/internal/logging"
	"github.com/trackcast/trackcast/internal/metrics"
	"github.com/trackcast/trackcast/internal/models"
)

// Parser decodes raw feed payloads into track assignments. Parsing is
// best-effort: a malformed payload yields an empty slice and a logged
// diagnostic, never an error that kills a learning cycle.
type Parser struct {
	trackMin int
	trackMax int
}

// NewParser creates a parser validating tracks against [trackMin, trackMax].
func NewParser(trackMin, trackMax int) *Parser {
	return &Parser{trackMin: trackMin, trackMax: trackMax}
}

// trainNumRe pulls the numeric train number out of a trip ID when the
// vehicle descriptor does not carry a label ("GO101_2739_..." -> "2739").
var trainNumRe = regexp.MustCompile(`_(\d{2,4})(?:_|$)`)

// ParseGTFSRT decodes a GTFS-Realtime protobuf payload into a sequence of
// validated track assignments.
func (p *Parser) ParseGTFSRT(data []byte) []models.TrackAssignment {
	msg := &gtfsrt.FeedMessage{}
	if err := proto.Unmarshal(data, msg); err != nil {
		logging.Warn().Err(err).Int("bytes", len(data)).Msg("Malformed GTFS-RT payload, skipping cycle")
		return nil
	}

	var out []models.TrackAssignment
	for _, entity := range msg.GetEntity() {
		tu := entity.GetTripUpdate()
		if tu == nil {
			continue
		}

		destination, ok := ResolveRoute(tu.GetTrip().GetRouteId())
		if !ok {
			metrics.AssignmentsParsed.WithLabelValues("unknown_destination").Inc()
			continue
		}

		trainNum := tu.GetVehicle().GetLabel()
		if trainNum == "" {
			if m := trainNumRe.FindStringSubmatch(tu.GetTrip().GetTripId()); m != nil {
				trainNum = m[1]
			}
		}

		for _, stu := range tu.GetStopTimeUpdate() {
			if a, ok := p.assignment(destination, trainNum, stu); ok {
				out = append(out, a)
			}
		}
	}
	return out
}

// assignment turns one stop time update into a validated TrackAssignment.
func (p *Parser) assignment(destination, trainNum string, stu *gtfsrt.TripUpdate_StopTimeUpdate) (models.TrackAssignment, bool) {
	track := ExtractTrack(stu.GetStopId())
	if !ValidTrack(track, p.trackMin, p.trackMax) {
		metrics.AssignmentsParsed.WithLabelValues("invalid_track").Inc()
		return models.TrackAssignment{}, false
	}

	hasArrival := stu.GetArrival().GetTime() != 0
	hasDeparture := stu.GetDeparture().GetTime() != 0

	var ts time.Time
	isArrival := false
	switch {
	case hasArrival && !hasDeparture:
		isArrival = true
		ts = time.Unix(stu.GetArrival().GetTime(), 0).UTC()
	case hasDeparture:
		ts = time.Unix(stu.GetDeparture().GetTime(), 0).UTC()
	default:
		// Neither time present: nothing to anchor learning on.
		metrics.AssignmentsParsed.WithLabelValues("no_timestamp").Inc()
		return models.TrackAssignment{}, false
	}

	metrics.AssignmentsParsed.WithLabelValues("accepted").Inc()
	return models.TrackAssignment{
		Destination: destination,
		Track:       track,
		TrainNum:    trainNum,
		IsArrival:   isArrival,
		IsDeparture: !isArrival,
		Timestamp:   ts,
	}, true
}
