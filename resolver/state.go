// Copyright 2026 The Mapcode Workbench Authors
// SPDX-License-Identifier: Apache-2.0

// Package resolver keeps one canonical location consistent across its four
// representations: free-text address, numeric latitude/longitude, mapcode
// and map camera. All edits funnel through a single-writer engine; async
// lookups rejoin it tagged with request ids so stale responses never win.
package resolver

import (
	"strconv"

	"github.com/mapcode-foundation/mapcode-workbench/mapcode"
	"github.com/mapcode-foundation/mapcode-workbench/spatial"
)

// AddressHelperKind tags the informational helper under the address field.
type AddressHelperKind int

const (
	// HelperNone shows nothing.
	HelperNone AddressHelperKind = iota
	// HelperNoInternet means the last lookup failed on connectivity.
	HelperNoInternet
	// HelperNoAddress means the coordinate has no reverse-geocoded address.
	HelperNoAddress
	// HelperResolved carries the summary of a resolved address.
	HelperResolved
)

// AddressHelper is the single informational message under the address
// field. At most one of helper and error is shown at a time.
type AddressHelper struct {
	Kind    AddressHelperKind `json:"kind"`
	Summary string            `json:"summary,omitempty"`
}

// UnknownAddress is the field-scoped error for an address query that did
// not resolve.
type UnknownAddress struct {
	Query string `json:"query"`
}

// UnknownMapcode is the field-scoped error for a hand-entered mapcode that
// did not decode.
type UnknownMapcode struct {
	Input string `json:"input"`
}

// NumericFieldState is the edit state of the latitude or longitude field.
// While focused, Text is the user's raw buffer; while unfocused it is
// reformatted from the canonical location. Invalid text never commits.
type NumericFieldState struct {
	Text      string `json:"text"`
	IsValid   bool   `json:"isValid"`
	IsFocused bool   `json:"isFocused"`
}

// AutocompleteState is the dropdown under the address field.
type AutocompleteState struct {
	Query       string   `json:"query"`
	Suggestions []string `json:"suggestions"`
	IsOpen      bool     `json:"isOpen"`
}

// State is the canonical immutable snapshot. Mapcodes are always re-derived
// from Location through the mapcode gateway, never set independently.
type State struct {
	Location             spatial.Point     `json:"location"`
	Zoom                 float64           `json:"zoom"`
	Mapcodes             []mapcode.Mapcode `json:"mapcodes"`
	SelectedMapcodeIndex int               `json:"selectedMapcodeIndex"`

	AddressText    string          `json:"addressText"`
	AddressFocused bool            `json:"addressFocused"`
	AddressHelper  AddressHelper   `json:"addressHelper"`
	AddressError   *UnknownAddress `json:"addressError,omitempty"`

	MapcodeError *UnknownMapcode `json:"mapcodeError,omitempty"`

	LatitudeField  NumericFieldState `json:"latitudeField"`
	LongitudeField NumericFieldState `json:"longitudeField"`

	Autocomplete AutocompleteState `json:"autocomplete"`
}

// SelectedMapcode returns the currently selected mapcode.
func (s State) SelectedMapcode() (mapcode.Mapcode, bool) {
	if len(s.Mapcodes) == 0 {
		return mapcode.Mapcode{}, false
	}

	return s.Mapcodes[s.SelectedMapcodeIndex], true
}

// clone deep-copies the snapshot so watchers never share slices with the
// engine loop.
func (s State) clone() State {
	out := s

	if s.Mapcodes != nil {
		out.Mapcodes = make([]mapcode.Mapcode, len(s.Mapcodes))
		copy(out.Mapcodes, s.Mapcodes)
	}

	if s.Autocomplete.Suggestions != nil {
		out.Autocomplete.Suggestions = make([]string, len(s.Autocomplete.Suggestions))
		copy(out.Autocomplete.Suggestions, s.Autocomplete.Suggestions)
	}

	if s.AddressError != nil {
		err := *s.AddressError
		out.AddressError = &err
	}

	if s.MapcodeError != nil {
		err := *s.MapcodeError
		out.MapcodeError = &err
	}

	return out
}

// formatCoord renders a coordinate for an unfocused numeric field.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
