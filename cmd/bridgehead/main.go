// Command bridgehead generates a site's multi-container deployment bundle:
// service manifests, an environment file and a launcher script, from a
// declarative site configuration. See internal/engine for the composition
// engine that does the actual work; this package is the thin cobra
// front-end around it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/samply/bridgehead-go/internal/logging"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bridgehead",
	Short: "Generate and apply a bridgehead site's deployment bundle",
	Long: `bridgehead resolves a site's declarative configuration into a set of
service manifests, an environment file and a launcher script, and keeps a
git-backed record of every applied change.`,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(updateCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	logging.Init(logging.Config{
		Level:      logging.Level(level),
		JSONOutput: jsonOut,
	})
}
