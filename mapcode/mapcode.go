// Copyright 2026 The Mapcode Workbench Authors
// SPDX-License-Identifier: Apache-2.0

// Package mapcode defines the mapcode value types and the gateway through
// which coordinates are encoded to mapcodes and mapcodes decoded back. The
// codec itself is consumed as an external collaborator, never reimplemented
// here.
package mapcode

import (
	"errors"
	"fmt"

	"github.com/mapcode-foundation/mapcode-workbench/spatial"
)

// Territory identifies the territory a mapcode is scoped to, using the
// ISO 3166 derived alpha codes of the mapcode standard.
type Territory string

// TerritoryInternational is the territory of the worldwide mapcode. Every
// coordinate has one, so an encode result is never empty.
const TerritoryInternational Territory = "AAA"

// ErrUnknownMapcode is returned when a mapcode string cannot be decoded.
var ErrUnknownMapcode = errors.New("unknown mapcode")

// Mapcode is a territory-scoped mapcode.
type Mapcode struct {
	Code      string    `json:"code"`
	Territory Territory `json:"territory"`
}

// CodeWithTerritory returns the territory-prefixed form of the mapcode. The
// international territory carries no prefix.
func (m Mapcode) CodeWithTerritory() string {
	if m.Territory == TerritoryInternational || m.Territory == "" {
		return m.Code
	}

	return fmt.Sprintf("%s %s", m.Territory, m.Code)
}

// Gateway encodes coordinates into ranked mapcodes and decodes mapcode
// strings back into coordinates.
type Gateway interface {
	// Encode returns the mapcodes for a coordinate, best territory first.
	// A successful result is never empty: the international mapcode always
	// exists.
	Encode(lat, lng float64) ([]Mapcode, error)

	// Decode resolves a mapcode string, optionally territory-prefixed, into
	// a coordinate. Returns ErrUnknownMapcode when the string does not
	// decode.
	Decode(code string) (spatial.Point, error)
}
