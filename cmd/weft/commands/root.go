package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "weft",
		Short: "Weft - Pipeline Execution Framework",
		Long: `Weft executes data pipelines as content-addressed graphs with a
validated, append-only trace of everything that ran.

Features:
  - Canonical pipeline graphs with deterministic identities
  - Run-space fan-out via positional or combinatorial axes
  - Starlark-computed axis values
  - Schema-validated JSONL trace streams (CUE)
  - SQLite trace archive for querying past launches`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newIDCommand())
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newSchemasCommand())
	rootCmd.AddCommand(newArchiveCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}
