package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/TrevorS/pointcluster"
	"github.com/TrevorS/pointcluster/internal/config"
)

var (
	configPath string
	dims       int
	workers    int
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "pointcluster",
	Short: "Group point observations into clusters",
	Long: `pointcluster groups points that describe the same underlying entity.

Input is a headerless CSV table with one point per row: the first --dims
columns are coordinates and an optional extra column is an integer tag
(for example the run the observation came from). The row number is the
point index. Results are written to stdout as JSON.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML run configuration")
	rootCmd.PersistentFlags().IntVarP(&dims, "dims", "d", 2, "Number of coordinate columns (1-3)")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "Worker goroutines (0 = config value or NumCPU)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every merge / extracted cluster")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig returns the file configuration, or the defaults, with flag
// overrides applied. A file pinned to another mode is rejected.
func loadConfig(cmd *cobra.Command, mode string) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}
	if err := cfg.CheckMode(mode); err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg *config.Config) (*pointcluster.Logger, error) {
	lvl, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return pointcluster.NewLogger(slog.NewTextHandler(os.Stderr, opts)), nil
	}
	return pointcluster.NewLogger(slog.NewJSONHandler(os.Stderr, opts)), nil
}

// openInput opens the named file, or stdin for "-".
func openInput(name string) (io.ReadCloser, error) {
	if name == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	return f, nil
}
