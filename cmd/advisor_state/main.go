// Package main provides the advisor_state binary: the HTTP API, the MCP tool
// server and operator commands over the state-custody layer.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	databaseURL string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "advisor_state",
	Short: "Career Pathway Advisor state custody",
	Long: `advisor_state owns persistence for the Career Pathway Advisor: anonymous sessions,
runs, the append-only run state log, evidence documents and the role requirement cache.

The store is selected by URL: postgres:// or postgresql:// for PostgreSQL,
sqlite://<path> or file:<path> for an embedded database.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.json file (values can be overridden by env and flags)")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "db-url", "", "Store URL (optional, defaults to DATABASE_URL env var)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed debug information")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
