// Copyright 2026 The Mapcode Workbench Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})

	// Optional; a missing .env is not an error.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(
		&dataPath,
		"data",
		"db",
		"Directory holding the workbench database",
	)
}

var dataPath string

var rootCmd = &cobra.Command{
	Use:   "mapcode",
	Short: "mapcode location workbench",
	Long: `
mapcode keeps the four representations of a location (address, decimal
coordinates, mapcode and map position) consistent with each other, and
manages a personal list of favourite places.
`,
}

var Version = "dev"

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
