package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3vilTid/Catalogue-Web-App/internal/config"
)

var (
	// Global flags.
	configPath string
	verbose    bool

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "catalogue",
	Short: "Offline-first cache for the catalogue web app",
	Long: `Catalogue keeps the catalogue web app usable without a network.

It serves the app shell through a caching proxy, keeps the last loaded
dataset in a structured snapshot store, and serves both when the backend
cannot be reached.

Examples:
  # Serve the app through the caching proxy
  catalogue serve --origin https://example.com/app/

  # Refresh the snapshot from the backend
  catalogue fetch

  # Show how fresh the snapshot is
  catalogue snapshot status`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("verbose") {
			loaded.Verbose = verbose
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// newLogger builds the process logger: development output when verbose,
// production JSON otherwise.
func newLogger() (*zap.Logger, error) {
	if cfg.Verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// toolLogger is newLogger for the inspection commands, which stay quiet
// unless verbose.
func toolLogger() (*zap.Logger, error) {
	if !cfg.Verbose {
		return zap.NewNop(), nil
	}
	return newLogger()
}
