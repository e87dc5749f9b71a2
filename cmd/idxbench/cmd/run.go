package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/idxbench/idxbench/internal/bench"
	"github.com/idxbench/idxbench/internal/runcfg"
	"github.com/idxbench/idxbench/internal/workload"
)

func newRunCmd() *cobra.Command {
	var (
		configPath string
		overrides  []string
		docs       int
		batchSize  int
		searchers  int
		rounds     int
		cycles     int
		erase      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the built-in indexing and search benchmark",
		Long: `Run builds a run context from configuration, ingests synthetic
documents with facets, publishes a point-in-time reader, runs concurrent
search rounds, and prints a latency report.

With --cycles N the run context is reinitialized between cycles, which
releases and re-provisions the index and taxonomy while producers keep
their identity.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath, overrides)
			if err != nil {
				return err
			}

			rd, err := bench.New(cfg, slog.Default())
			if err != nil {
				return fmt.Errorf("construct run context: %w", err)
			}
			defer func() {
				if err := rd.Dispose(); err != nil {
					slog.Error("dispose failed", slog.String("error", err.Error()))
				}
			}()

			opts := workload.Options{
				Docs:      docs,
				BatchSize: batchSize,
				Searchers: searchers,
				Rounds:    rounds,
			}

			for cycle := 0; cycle < cycles; cycle++ {
				if cycle > 0 {
					if err := rd.Reinit(erase); err != nil {
						return fmt.Errorf("reinit before cycle %d: %w", cycle, err)
					}
				}
				slog.Info("starting cycle", slog.Int("cycle", cycle))
				if err := workload.Run(cmd.Context(), rd, opts); err != nil {
					return fmt.Errorf("cycle %d: %w", cycle, err)
				}
			}

			return rd.Points().Report(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Run configuration file (YAML)")
	cmd.Flags().StringArrayVarP(&overrides, "define", "D", nil, "Override a config key (key=value, repeatable)")
	cmd.Flags().IntVar(&docs, "docs", 1000, "Documents to ingest per cycle")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Ingest batch size (0 uses writer.batch.size)")
	cmd.Flags().IntVar(&searchers, "searchers", 4, "Concurrent search goroutines")
	cmd.Flags().IntVar(&rounds, "rounds", 50, "Searches per searcher per cycle")
	cmd.Flags().IntVar(&cycles, "cycles", 1, "Benchmark cycles, reinitializing between them")
	cmd.Flags().BoolVar(&erase, "erase", false, "Erase persistent directories on reinit")

	return cmd
}

// loadConfig reads the config file (empty path means an empty config) and
// applies key=value overrides on top.
func loadConfig(path string, overrides []string) (*runcfg.Config, error) {
	cfg := runcfg.New()
	if path != "" {
		loaded, err := runcfg.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	for _, kv := range overrides {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid override %q, want key=value", kv)
		}
		cfg.Override(key, value)
	}
	return cfg, nil
}
