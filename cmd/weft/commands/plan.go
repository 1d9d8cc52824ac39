package commands

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/weftline/weft/pkg/config"
	"github.com/weftline/weft/pkg/runspace"
)

func newPlanCommand() *cobra.Command {
	var showRuns bool

	cmd := &cobra.Command{
		Use:   "plan <pipeline.yaml>",
		Short: "Expand and inspect the run space",
		Long: `Resolve the run-space axes of a pipeline definition and show the
resulting plan: its identities, combine mode, and run count.

Axis values from files and scripts are resolved and fingerprinted; an
unreadable source fails here, before any launch exists.`,
		Example: `  # Show the plan summary
  weft plan pipeline.yaml

  # Also list every run's injected values
  weft plan --runs pipeline.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}

			if cfg.Runspace == nil {
				fmt.Println("no runspace section: single run")
				return nil
			}

			axes, err := config.ResolveAxes(cfg.Runspace.Axes)
			if err != nil {
				return err
			}

			plan, err := runspace.NewPlan(axes, runspace.CombineMode(cfg.Runspace.Mode), cfg.Runspace.MaxRuns)
			if err != nil {
				return err
			}

			log.Info().
				Str("mode", string(plan.Mode())).
				Int("total_runs", plan.TotalRuns()).
				Msg("Plan expanded")

			if jsonOutput {
				out := struct {
					PlanIdentity   string                  `json:"plan_identity"`
					InputsIdentity string                  `json:"inputs_identity"`
					Mode           string                  `json:"mode"`
					TotalRuns      int                     `json:"total_runs"`
					Runs           []runspace.RunDescriptor `json:"runs,omitempty"`
				}{
					PlanIdentity:   plan.PlanIdentity(),
					InputsIdentity: plan.InputsIdentity(),
					Mode:           string(plan.Mode()),
					TotalRuns:      plan.TotalRuns(),
				}
				if showRuns {
					out.Runs = runspace.NewLaunch(plan).Descriptors()
				}
				raw, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(raw))
				return nil
			}

			fmt.Printf("plan identity:   %s\n", plan.PlanIdentity())
			fmt.Printf("inputs identity: %s\n", plan.InputsIdentity())
			fmt.Printf("mode:            %s\n", plan.Mode())
			fmt.Printf("total runs:      %d\n", plan.TotalRuns())

			if showRuns {
				for _, desc := range runspace.NewLaunch(plan).Descriptors() {
					values, err := json.Marshal(desc.Values)
					if err != nil {
						return err
					}
					fmt.Printf("  run %d: %s\n", desc.Index, values)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showRuns, "runs", false, "list every run's injected values")

	return cmd
}
