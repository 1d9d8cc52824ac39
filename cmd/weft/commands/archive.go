package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/weftline/weft/pkg/stores"
	"github.com/weftline/weft/pkg/trace"
)

func newArchiveCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "archive <stream.jsonl>",
		Short: "Import a trace stream into the SQLite archive",
		Long: `Import a JSONL trace stream into the SQLite trace archive.

Every line is schema-validated before insertion; an invalid line aborts
the import and nothing from that stream is committed.`,
		Example: `  # Archive a recorded stream
  weft archive --db weft.db .weft/trace/weft-abc-a1-20240101T000000Z.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := stores.NewSQLiteStore(stores.Config{Path: dbPath})
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Init(ctx); err != nil {
				return err
			}
			if err := store.Migrate(ctx); err != nil {
				return err
			}

			imported, err := store.ArchiveStream(ctx, args[0], trace.NewSchemaRegistry())
			if err != nil {
				return err
			}

			log.Info().Str("stream", args[0]).Int("records", imported).Msg("Stream archived")
			fmt.Printf("archived %d records\n", imported)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "weft.db", "SQLite archive database path")

	cmd.AddCommand(newArchiveStatsCommand())

	return cmd
}

func newArchiveStatsCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show archived record counts by type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := stores.NewSQLiteStore(stores.Config{Path: dbPath})
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Init(ctx); err != nil {
				return err
			}
			if err := store.Migrate(ctx); err != nil {
				return err
			}

			counts, err := store.CountRecordsByType(ctx)
			if err != nil {
				return err
			}

			for recordType, count := range counts {
				fmt.Printf("%-16s %d\n", recordType, count)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "weft.db", "SQLite archive database path")

	return cmd
}
