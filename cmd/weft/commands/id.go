package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weftline/weft/pkg/config"
	"github.com/weftline/weft/pkg/graph"
)

func newIDCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "id <pipeline.yaml>",
		Short: "Compute pipeline and node identities",
		Long: `Compute the content-derived identities of a pipeline definition.

The pipeline identity is a digest of the canonical graph encoding;
equivalent definitions produce the same identity regardless of key
order or numeric spelling. Each node gets a deterministic UUID derived
from its spec alone, stable under reordering.`,
		Example: `  # Print the pipeline identity
  weft id pipeline.yaml

  # Print identities as JSON including per-node UUIDs
  weft id --json pipeline.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}

			g, err := graph.Build(cfg.NodeSpecs())
			if err != nil {
				return err
			}

			pipelineID, err := graph.ComputePipelineID(g)
			if err != nil {
				return err
			}

			if jsonOutput {
				type nodeIdentity struct {
					Role      string `json:"role"`
					Processor string `json:"processor"`
					NodeUUID  string `json:"node_uuid"`
				}
				out := struct {
					PipelineID string         `json:"pipeline_id"`
					Nodes      []nodeIdentity `json:"nodes"`
				}{PipelineID: pipelineID}
				for _, n := range g.Nodes {
					out.Nodes = append(out.Nodes, nodeIdentity{
						Role:      n.Role,
						Processor: n.Processor,
						NodeUUID:  n.NodeUUID,
					})
				}
				raw, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(raw))
				return nil
			}

			fmt.Println(pipelineID)
			if verbose {
				for _, n := range g.Nodes {
					fmt.Printf("  %s  %s (%s)\n", n.NodeUUID, n.Processor, n.Role)
				}
			}
			return nil
		},
	}

	return cmd
}
