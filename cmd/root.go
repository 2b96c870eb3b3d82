package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/planwright/planwright/internal/config"
)

var (
	jsonOutput bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "planwright",
	Short: "Sandboxed script runner and project plan executor for AI agents",
	Long:  "Planwright — validate and execute multi-step project plans, run scripts in a sandbox, and scaffold LLM-planned projects.",
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output raw JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
}

// loadConfig reads the environment configuration and builds a logger.
// The --verbose flag overrides the configured log level.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
