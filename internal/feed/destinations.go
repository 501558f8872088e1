// Trackcast - Commuter Rail Track Assignment Prediction
// Copyright 2026 Trackcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trackcast/trackcast

package feed

import (
	"sort"
	"strings"
)

// routeDestinations maps GTFS route IDs to branch destination names for the
// modeled terminal (LIRR). Records whose route cannot be resolved are
// skipped by the parser.
var routeDestinations = map[string]string{
	"1":  "Babylon",
	"2":  "Hempstead",
	"3":  "Oyster Bay",
	"4":  "Ronkonkoma",
	"5":  "Montauk",
	"6":  "Long Beach",
	"7":  "Far Rockaway",
	"8":  "West Hempstead",
	"9":  "Port Washington",
	"10": "Port Jefferson",
	"11": "Belmont Park",
	"12": "City Terminal Zone",
}

// destinationNames indexes known destinations by lowercase name, for JSON
// feeds that carry branch names instead of route IDs.
var destinationNames = func() map[string]string {
	m := make(map[string]string, len(routeDestinations))
	for _, name := range routeDestinations {
		m[strings.ToLower(name)] = name
	}
	return m
}()

// ResolveRoute returns the destination for a GTFS route ID.
func ResolveRoute(routeID string) (string, bool) {
	dest, ok := routeDestinations[routeID]
	return dest, ok
}

// ResolveDestination normalizes a branch name from a JSON feed to its
// canonical destination, matching case-insensitively.
func ResolveDestination(name string) (string, bool) {
	dest, ok := destinationNames[strings.ToLower(strings.TrimSpace(name))]
	return dest, ok
}

// Destinations returns every known destination name in sorted order. The
// API uses this set to reject requests for branches the terminal does not
// serve.
func Destinations() []string {
	out := make([]string, 0, len(routeDestinations))
	for _, name := range routeDestinations {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
