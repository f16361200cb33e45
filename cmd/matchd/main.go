// Package main provides the matchd binary: the co-founder matching API server,
// its queue worker and operator commands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "matchd",
		Short: "Co-founder matching engine",
		Long: `matchd scores a user's onboarding answers against every other onboarded user
and serves the ranked matches over a REST API.

Configuration is read from the optional --config YAML file, then environment
variables (e.g. MATCHING_WORKERS, DATABASE_URL, JWT_SECRET), then flags.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to a YAML config file")
	flags.String("store", "postgres", "Backing store: postgres or sqlite")
	flags.String("database-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL)")
	flags.String("sqlite-path", "matcher.db", "SQLite database file when --store=sqlite")
	flags.String("log-mode", "dev", "Log encoding: dev or prod")
	flags.Bool("debug", false, "Enable debug logging")
	flags.String("dispatch", "pool", "Job dispatch: pool (in-process) or amqp")

	root.AddCommand(
		newServeCmd(&configPath),
		newWorkerCmd(&configPath),
		newMatchCmd(&configPath),
		newMigrateCmd(&configPath),
		newTokenCmd(&configPath),
		newProfilesCmd(&configPath),
	)
	return root
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
