// Copyright 2026 The Mapcode Workbench Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"

	"github.com/mapcode-foundation/mapcode-workbench/favourites"
	"github.com/mapcode-foundation/mapcode-workbench/geocode"
	"github.com/mapcode-foundation/mapcode-workbench/mapcode"
	"github.com/mapcode-foundation/mapcode-workbench/prefs"
	"github.com/mapcode-foundation/mapcode-workbench/resolver"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the interactive resolver web server (local only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, repo, err := openPrefs()
		if err != nil {
			return err
		}
		defer db.Close()

		store, err := favourites.NewStore(repo)
		if err != nil {
			return fmt.Errorf("opening favourites store: %w", err)
		}
		defer store.Close()

		geocoder := newGeocoder(cmd.Context())

		engine, err := resolver.New(resolver.Options{
			Mapcodes: mapcode.NewRESTGateway(),
			Geocoder: geocoder,
			Prefs:    repo,
		})
		if err != nil {
			return fmt.Errorf("starting resolver engine: %w", err)
		}
		defer engine.Close()

		autocomplete := resolver.NewAutocompleter(engine, geocoder, 0)
		defer autocomplete.Close()

		server := resolver.NewServer(engine, autocomplete, store, serveListen)

		fmt.Println("🗺️  Mapcode workbench server starting...")
		fmt.Printf("📍 Open http://%s in your browser\n", serveListen)
		fmt.Println("🔒 Local only - not exposed to internet")

		return server.Run()
	},
}

// openPrefs opens the workbench database and its preference repository.
// The caller owns the returned handle.
func openPrefs() (*sql.DB, prefs.Repository, error) {
	if err := os.MkdirAll(dataPath, 0o750); err != nil {
		return nil, nil, fmt.Errorf("creating db directory: %w", err)
	}

	dbpath := filepath.Join(dataPath, "workbench.duckdb")

	db, err := sql.Open("duckdb", dbpath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	repo, err := prefs.NewDuckDBRepository(db)
	if err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("creating preferences schema: %w", err)
	}

	return db, repo, nil
}

func newGeocoder(ctx context.Context) geocode.Geocoder {
	apiKey, err := geocode.APIKeyFromEnvOrADC(ctx)
	if err != nil {
		log.Printf("Failed to retrieve Google Maps API key: %v", err)
		log.Print("Address resolution will fail until GOOGLE_MAPS_API_KEY is set.")
	} else {
		log.Println("✅ Google Maps API key ready")
	}

	fmt.Println("📍 Geocoding: Google Maps (primary)")

	return geocode.NewGoogleMapsGeocoder(apiKey)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "localhost:8080", "Address to listen on")
}
