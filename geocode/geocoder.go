// Copyright 2026 The Mapcode Workbench Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocode provides the address lookup collaborators: forward
// geocoding, reverse geocoding and address autocompletion.
package geocode

import "context"

// Result represents a forward geocoding result from any provider.
type Result struct {
	Latitude    float64
	Longitude   float64
	Confidence  string // high, medium, low
	Provider    string
	DisplayName string
}

// Geocoder is the lookup collaborator consumed by the resolution engine.
// Implementations classify failures through GeocodingError so callers can
// tell an unknown address from a connectivity problem.
type Geocoder interface {
	// Geocode resolves free-text address input into a coordinate.
	Geocode(ctx context.Context, address string) (*Result, error)

	// ReverseGeocode resolves a coordinate into a display address.
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)

	// Suggest returns address completions for a partial query. An empty
	// result is not an error.
	Suggest(ctx context.Context, query string) ([]string, error)
}
