// Copyright 2026 The Mapcode Workbench Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mapcode-foundation/mapcode-workbench/mapcode"
	"github.com/mapcode-foundation/mapcode-workbench/resolver"
	"github.com/mapcode-foundation/mapcode-workbench/spatial"
)

var resolveOptions struct {
	address string
	code    string
	lat     float64
	lng     float64
	zoom    float64
}

const resolveTimeout = 20 * time.Second

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve an address, coordinate or mapcode once and print every representation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		hasAddress := resolveOptions.address != ""
		hasCode := resolveOptions.code != ""
		hasCoords := cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng")

		modes := 0
		for _, set := range []bool{hasAddress, hasCode, hasCoords} {
			if set {
				modes++
			}
		}

		if modes != 1 {
			return errors.New("exactly one of --address, --mapcode or --lat/--lng is required")
		}

		if hasCoords && (!cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng")) {
			return errors.New("--lat and --lng must be given together")
		}

		engine, err := resolver.New(resolver.Options{
			Mapcodes: mapcode.NewRESTGateway(),
			Geocoder: newGeocoder(cmd.Context()),
		})
		if err != nil {
			return fmt.Errorf("starting resolver engine: %w", err)
		}
		defer engine.Close()

		start := engine.Current().Location

		var settled func(resolver.State) bool

		switch {
		case hasAddress:
			engine.SubmitAddress(resolveOptions.address)

			settled = func(s resolver.State) bool {
				return s.AddressError != nil || s.AddressHelper.Kind != resolver.HelperNone
			}
		case hasCode:
			engine.SubmitMapcode(resolveOptions.code)

			settled = func(s resolver.State) bool {
				return s.MapcodeError != nil || !s.Location.Equal(start)
			}
		default:
			engine.MoveCamera(resolveOptions.lat, resolveOptions.lng, resolveOptions.zoom)

			target := spatial.Point{Lat: resolveOptions.lat, Lng: resolveOptions.lng}.Clamp()

			settled = func(s resolver.State) bool {
				return s.Location.Equal(target)
			}
		}

		state, err := waitSettled(engine, settled, resolveTimeout)
		if err != nil {
			return err
		}

		// Give the reverse geocode a moment to fill in the address.
		if state.MapcodeError == nil && state.AddressError == nil &&
			state.AddressHelper.Kind == resolver.HelperNone {
			if enriched, err := waitSettled(engine, func(s resolver.State) bool {
				return s.AddressHelper.Kind != resolver.HelperNone
			}, 3*time.Second); err == nil {
				state = enriched
			}
		}

		return printResolution(state)
	},
}

func waitSettled(engine *resolver.Engine, settled func(resolver.State) bool, timeout time.Duration) (resolver.State, error) {
	deadline := time.After(timeout)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-deadline:
			return resolver.State{}, errors.New("resolution timed out")
		case <-tick.C:
			if s := engine.Current(); settled(s) {
				return s, nil
			}
		}
	}
}

func printResolution(s resolver.State) error {
	if s.AddressError != nil {
		return fmt.Errorf("unknown address: %q", s.AddressError.Query)
	}

	if s.MapcodeError != nil {
		return fmt.Errorf("unknown mapcode: %q", s.MapcodeError.Input)
	}

	fmt.Printf("📍 %s\n", s.Location)

	switch s.AddressHelper.Kind {
	case resolver.HelperResolved:
		fmt.Printf("🏠 %s\n", s.AddressHelper.Summary)
	case resolver.HelperNoAddress:
		fmt.Println("🏠 (no address at this location)")
	case resolver.HelperNoInternet:
		fmt.Println("⚠️  No internet connection; address unavailable")
	case resolver.HelperNone:
	}

	for i, mc := range s.Mapcodes {
		marker := " "
		if i == s.SelectedMapcodeIndex {
			marker = "*"
		}

		fmt.Printf("%s %s\n", marker, mc.CodeWithTerritory())
	}

	return nil
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringVar(&resolveOptions.address, "address", "", "Free-text address to resolve")
	resolveCmd.Flags().StringVar(&resolveOptions.code, "mapcode", "", "Mapcode to resolve, optionally territory-prefixed")
	resolveCmd.Flags().Float64Var(&resolveOptions.lat, "lat", 0, "Latitude to resolve")
	resolveCmd.Flags().Float64Var(&resolveOptions.lng, "lng", 0, "Longitude to resolve")
	resolveCmd.Flags().Float64Var(&resolveOptions.zoom, "zoom", 16, "Map zoom level")
}
