package commands

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/weftline/weft/pkg/config"
	"github.com/weftline/weft/pkg/engine"
	"github.com/weftline/weft/pkg/graph"
)

func newValidateCommand() *cobra.Command {
	var checkProcessors bool

	cmd := &cobra.Command{
		Use:   "validate <pipeline.yaml>",
		Short: "Validate a pipeline definition",
		Long: `Validate a pipeline definition file.

This command checks:
  - YAML syntax and document structure
  - Node specs (role, processor, ports)
  - Run-space axis declarations
  - Processor references (with --processors)`,
		Example: `  # Validate a pipeline definition
  weft validate pipeline.yaml

  # Also check every processor reference resolves
  weft validate --processors pipeline.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			g, err := graph.Build(cfg.NodeSpecs())
			if err != nil {
				return err
			}

			if cfg.Runspace != nil {
				if _, err := config.ResolveAxes(cfg.Runspace.Axes); err != nil {
					return err
				}
			}

			if checkProcessors {
				registry := engine.NewProcessorRegistry()
				engine.RegisterBuiltins(registry)
				if _, err := engine.NewPipeline(g, registry); err != nil {
					return err
				}
			}

			log.Info().
				Str("path", path).
				Int("nodes", len(g.Nodes)).
				Msg("Pipeline definition is valid")

			if jsonOutput {
				out, err := json.MarshalIndent(g, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			fmt.Printf("valid: %d nodes\n", len(g.Nodes))
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkProcessors, "processors", false, "check processor references against the built-in registry")

	return cmd
}
