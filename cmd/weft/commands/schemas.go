package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weftline/weft/pkg/trace"
)

func newSchemasCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "List registered trace record types",
		Long: `List the record types the trace schema registry validates.

Each record type has its own schema; schemas are open, so records may
carry additive fields beyond what the schema requires.`,
		Example: `  # List record types
  weft schemas`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := trace.NewSchemaRegistry()
			types := registry.Types()

			if jsonOutput {
				raw, err := json.MarshalIndent(types, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(raw))
				return nil
			}

			for _, t := range types {
				fmt.Println(t)
			}
			return nil
		},
	}

	cmd.AddCommand(newSchemasCheckCommand())

	return cmd
}

func newSchemasCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <stream.jsonl>",
		Short: "Validate an existing trace stream",
		Long: `Validate every line of a JSONL trace stream against the schema
registry, reporting the first failure with its line number.`,
		Example: `  # Check a recorded stream
  weft schemas check .weft/trace/weft-abc-a1-20240101T000000Z.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			registry := trace.NewSchemaRegistry()
			checked, err := validateStream(registry, raw)
			if err != nil {
				return err
			}

			fmt.Printf("ok: %d records\n", checked)
			return nil
		},
	}

	return cmd
}

// validateStream validates raw JSONL content line by line.
func validateStream(registry *trace.SchemaRegistry, raw []byte) (int, error) {
	checked := 0
	start := 0
	lineNo := 0
	for i := 0; i <= len(raw); i++ {
		if i != len(raw) && raw[i] != '\n' {
			continue
		}
		line := raw[start:i]
		start = i + 1
		lineNo++
		if len(line) == 0 {
			continue
		}
		if err := registry.ValidateBytes(line); err != nil {
			return checked, fmt.Errorf("line %d: %w", lineNo, err)
		}
		checked++
	}
	return checked, nil
}
