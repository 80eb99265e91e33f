package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "upool",
		Short: "UPool milestone-governed pooled funding service",
		Long: `upool runs the pool registry, milestone governance engine and
payment relay behind an HTTP API, replaying its event journal on start.`,
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Replay the journal and start the HTTP server, relay and scheduled jobs",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the journal and read-model tables",
		RunE:  runMigrate,
	}

	replayCmd = &cobra.Command{
		Use:   "replay",
		Short: "Rebuild state from the journal and print a registry summary",
		RunE:  runReplay,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	replayCmd.Flags().Bool("sync", false, "also refresh the read-model tables")
	rootCmd.AddCommand(serveCmd, migrateCmd, replayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
