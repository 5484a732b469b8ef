// Package cmd implements the filterable command line
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fluxbase-eu/filterable/internal/config"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	configFile string
	debugFlag  bool
	envFile    string

	// cfg is loaded by the root PersistentPreRunE
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "filterable",
	Short: "Filter, sort and paginate PostgreSQL tables over HTTP",
	Long: `filterable serves catalogued tables through a JSON list endpoint.

Clients pass rules as JSON in the query string:

  /api/v1/tables/events?filter=[{"f":"level","o":"in","v":["alert","warning"]}]&sort=[{"f":"created_at","o":"desc"}]

Configuration is read from filterable.yaml (or --config) and FILTERABLE_*
environment variables. A .env file in the working directory is loaded first.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: ./filterable.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before the configuration")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(tablesCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, _ []string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	loaded, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if debugFlag {
		loaded.Debug = true
	}
	cfg = loaded

	setupLogging(cfg.Debug)
	return nil
}

func setupLogging(debug bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if debug || isTerminal() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// isTerminal reports whether stderr is an interactive terminal. Set
// FILTERABLE_LOG_JSON to keep JSON output anyway.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd())) && os.Getenv("FILTERABLE_LOG_JSON") == ""
}
