package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"docexport/internal/app"
	"docexport/internal/config"
	"docexport/internal/etl"
	"docexport/internal/logger"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

var (
	// Global flags
	cfgFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "docexport",
	Short: "Export a document store to a single flat CSV file",
	Long: `docexport reads every top-level collection of a Firestore (or MongoDB)
database, flattens nested fields into dotted columns, and writes all documents
into one CSV file with a firestore_collection column naming their origin.

Running docexport with no subcommand performs an export.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runExport,
}

// Execute runs the root command. Fatal export errors and configuration
// errors exit with status 1; degraded runs exit 0.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "YAML config file")
	pf.StringVar(&envFile, "env-file", "", ".env file (default ./.env when present)")
	pf.String("credentials", "serviceAccountKey.json", "credential file (service account key, or mongodb URI file)")
	pf.StringP("output", "o", "data.csv", "output CSV path")
	pf.String("driver", "firestore", "document store driver: firestore, mongodb, memory")
	pf.String("project", "", "firestore project id (default: from credentials)")
	pf.String("database", "", "firestore database id or mongodb database name")
	pf.StringSlice("collection", nil, "only export these collections (repeatable)")
	pf.Int("max-depth", etl.DefaultMaxDepth, "maximum nesting depth before a document is rejected")
	pf.String("log-level", "info", "log level: trace, debug, info, warn, error")
	pf.String("log-format", logger.FormatConsole, "log format: console, json")
	pf.String("history-driver", "sqlite", "run history driver: sqlite, postgres, mysql")
	pf.String("history-dsn", "docexport-history.db", "run history DSN (file path for sqlite)")
	pf.Bool("no-history", false, "do not record run history")

	rootCmd.AddCommand(exportCmd, scheduleCmd, historyCmd, collectionsCmd, mcpCmd)
}

// setup loads and validates configuration and builds the App for a command.
func setup(cmd *cobra.Command, adjust ...func(*config.Config)) (*app.App, *config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: cfgFile,
		EnvFile:    envFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	for _, f := range adjust {
		f(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	log := logger.New(cfg.Log)
	return app.New(cfg, log), cfg, log, nil
}

// exitError reports whether err should fail the process.
func exitError(err error) error {
	if err == nil || !etl.IsFatal(err) {
		return nil
	}
	return err
}
