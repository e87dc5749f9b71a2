// Package cmd provides the CLI commands for idxbench.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/idxbench/idxbench/internal/logging"
	"github.com/idxbench/idxbench/pkg/version"
)

var (
	debugMode      bool
	logFile        string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the idxbench CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "idxbench",
		Short: "Search index benchmark harness",
		Long: `idxbench runs indexing and search benchmarks against a local
full-text index with a sidecar taxonomy store.

A run is driven by a flat key/value configuration: content source,
document maker, facet source, and query maker are all selected by
config keys. Run 'idxbench run' with no arguments for an in-memory
smoke benchmark.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("idxbench version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write JSON logs to this file")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLogging(_ *cobra.Command, _ []string) error {
	cfg := logging.DefaultConfig()
	if debugMode {
		cfg.Level = "debug"
	}
	cfg.FilePath = logFile

	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
