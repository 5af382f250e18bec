// Copyright 2026 The Mapcode Workbench Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/mapcode-foundation/mapcode-workbench/favourites"
	"github.com/mapcode-foundation/mapcode-workbench/utils"
)

var favouritesCmd = &cobra.Command{
	Use:   "favourites",
	Short: "Manage favourite places",
}

// openFavourites opens the store over the workbench database. The caller
// closes both.
func openFavourites() (*favourites.Store, *sql.DB, error) {
	db, repo, err := openPrefs()
	if err != nil {
		return nil, nil, err
	}

	store, err := favourites.NewStore(repo)
	if err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("opening favourites store: %w", err)
	}

	return store, db, nil
}

var favouritesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all favourite places, sorted by name",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		store, db, err := openFavourites()
		if err != nil {
			return err
		}
		defer db.Close()
		defer store.Close()

		entities := store.List()

		a, b, c := strings.Repeat("─", 16), strings.Repeat("─", 30), strings.Repeat("─", 24)
		fmt.Printf("╭─%-16s─┬─%-30s─┬─%-24s╮\n", a, b, c)
		fmt.Printf("│ %-16s │ %-30s │ %-24s│\n", "Id", "Name", "Location")
		fmt.Printf("├─%-16s─┼─%-30s─┼─%-24s┤\n", a, b, c)

		for _, e := range entities {
			location := fmt.Sprintf("%.6f, %.6f", e.Lat, e.Lng)
			fmt.Printf("│ %-16s │ %-30s │ %-24s│\n", e.ID, e.Name, location)
		}

		fmt.Printf("╰─%-16s─┴─%-30s─┴─%-24s╯\n", a, b, c)
		fmt.Printf("%s favourites\n", utils.FormatInt(int64(len(entities))))

		return nil
	},
}

var favouritesAddCmd = &cobra.Command{
	Use:   "add <name> <lat> <lng>",
	Short: "Add a favourite place",
	Args:  cobra.ExactArgs(3),
	RunE: func(_ *cobra.Command, args []string) error {
		lat, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid latitude %q: %w", args[1], err)
		}

		lng, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid longitude %q: %w", args[2], err)
		}

		store, db, err := openFavourites()
		if err != nil {
			return err
		}
		defer db.Close()
		defer store.Close()

		id, err := store.Create(args[0], lat, lng)
		if err != nil {
			return err
		}

		fmt.Printf("✅ Added %q as %s\n", args[0], id)

		return nil
	},
}

var favouritesRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a favourite place, keeping its location",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		store, db, err := openFavourites()
		if err != nil {
			return err
		}
		defer db.Close()
		defer store.Close()

		entity, err := store.Get(args[0])
		if err != nil {
			return err
		}

		entity.Name = args[1]
		if err := store.Update(entity); err != nil {
			return err
		}

		fmt.Printf("✅ Renamed %s to %q\n", entity.ID, entity.Name)

		return nil
	},
}

var favouritesRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a favourite place",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		store, db, err := openFavourites()
		if err != nil {
			return err
		}
		defer db.Close()
		defer store.Close()

		if err := store.Delete(args[0]); err != nil {
			return err
		}

		fmt.Printf("✅ Removed %s\n", args[0])

		return nil
	},
}

var favouritesNearbyCmd = &cobra.Command{
	Use:   "nearby <lat> <lng>",
	Short: "List favourites near a coordinate, closest first",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		lat, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid latitude %q: %w", args[0], err)
		}

		lng, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid longitude %q: %w", args[1], err)
		}

		store, db, err := openFavourites()
		if err != nil {
			return err
		}
		defer db.Close()
		defer store.Close()

		entities, err := store.Nearby(lat, lng)
		if err != nil {
			return err
		}

		for _, e := range entities {
			fmt.Printf("📍 %-30s %.6f, %.6f\n", e.Name, e.Lat, e.Lng)
		}

		if len(entities) == 0 {
			fmt.Println("No favourites nearby")
		}

		return nil
	},
}

var favouritesImportCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import favourites from JSON files, skipping duplicates",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) {
			bar = progressbar.NewOptions(len(args),
				progressbar.OptionSetDescription("Importing favourites"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		var entities []favourites.Entity

		for _, path := range args {
			blob, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}

			var batch []favourites.Entity
			if err := json.Unmarshal(blob, &batch); err != nil {
				return fmt.Errorf("parsing %s: %w", path, err)
			}

			entities = append(entities, batch...)

			if bar != nil {
				_ = bar.Add(1)
			}
		}

		store, db, err := openFavourites()
		if err != nil {
			return err
		}
		defer db.Close()
		defer store.Close()

		added, skipped, err := store.Import(entities)
		if err != nil {
			return err
		}

		fmt.Printf("✅ Imported %s favourites (%s skipped)\n",
			utils.FormatInt(int64(added)), utils.FormatInt(int64(skipped)))

		return nil
	},
}

var favouritesExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export favourites to a JSON file",
	Long:  `Exports all favourite places to a local JSON file. The file is sorted by name to minimize diffs when checking into version control.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		store, db, err := openFavourites()
		if err != nil {
			return err
		}
		defer db.Close()
		defer store.Close()

		entities := store.List()

		blob, err := json.MarshalIndent(entities, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding favourites: %w", err)
		}

		if err := os.WriteFile(args[0], append(blob, '\n'), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", args[0], err)
		}

		fmt.Printf("✅ Exported %s favourites to %s\n",
			utils.FormatInt(int64(len(entities))), args[0])

		return nil
	},
}

func init() {
	rootCmd.AddCommand(favouritesCmd)
	favouritesCmd.AddCommand(favouritesListCmd)
	favouritesCmd.AddCommand(favouritesAddCmd)
	favouritesCmd.AddCommand(favouritesRenameCmd)
	favouritesCmd.AddCommand(favouritesRmCmd)
	favouritesCmd.AddCommand(favouritesNearbyCmd)
	favouritesCmd.AddCommand(favouritesImportCmd)
	favouritesCmd.AddCommand(favouritesExportCmd)
}
