// Trackcast - Commuter Rail Track Assignment Prediction
// Copyright 2026 Trackcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trackcast/trackcast

package feed

import (
	"regexp"
	"strconv"
)

// Track extraction rules in descending priority. Stop identifiers embed the
// platform track in several historical formats; the prefixed form is the
// current one, the others survive in older equipment records.
var (
	// "NYK_13" -> "13": station prefix, underscore, numeric token.
	prefixedTrackRe = regexp.MustCompile(`^[A-Za-z]+_(\d{1,2})$`)

	// "TRACK7" -> "7": trailing one- or two-digit run. The run is atomic:
	// a longer trailing run ("X_123") must not donate its last two digits,
	// so the match is anchored on a non-digit boundary.
	trailingTrackRe = regexp.MustCompile(`(?:^|\D)(\d{1,2})$`)

	// "something9x" -> "9": first embedded digit run.
	embeddedTrackRe = regexp.MustCompile(`(\d+)`)
)

// ExtractTrack pulls a candidate track code out of a stop identifier.
// Returns "" when the identifier carries no digits at all. The candidate is
// returned verbatim (leading zeros preserved); ValidTrack decides whether it
// names a real platform.
func ExtractTrack(stopID string) string {
	if m := prefixedTrackRe.FindStringSubmatch(stopID); m != nil {
		return m[1]
	}
	if m := trailingTrackRe.FindStringSubmatch(stopID); m != nil {
		return m[1]
	}
	if m := embeddedTrackRe.FindStringSubmatch(stopID); m != nil {
		return m[1]
	}
	return ""
}

// ValidTrack reports whether the candidate parses as an integer within the
// terminal's platform range.
func ValidTrack(track string, min, max int) bool {
	if track == "" {
		return false
	}
	n, err := strconv.Atoi(track)
	if err != nil {
		return false
	}
	return n >= min && n <= max
}
