package commands

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/weftline/weft/pkg/config"
	"github.com/weftline/weft/pkg/graph"
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <pipeline.yaml>",
		Short: "Watch a pipeline definition and revalidate on change",
		Long: `Watch a pipeline definition file and revalidate it on every change,
printing the new pipeline identity when it moves.

Useful while editing a definition: an identity change means the edit
was semantic, an unchanged identity means it was cosmetic (key order,
numeric spelling, whitespace).`,
		Example: `  # Revalidate on save
  weft watch pipeline.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()

			// Watch the directory: editors replace files on save, which
			// drops a watch placed on the file itself.
			if err := watcher.Add(filepath.Dir(path)); err != nil {
				return err
			}

			lastID := revalidate(path, "")
			log.Info().Str("path", path).Msg("Watching for changes")

			for {
				select {
				case <-ctx.Done():
					return nil

				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if filepath.Clean(event.Name) != filepath.Clean(path) {
						continue
					}
					if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
						continue
					}
					lastID = revalidate(path, lastID)

				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					log.Error().Err(err).Msg("Watch error")
				}
			}
		},
	}

	return cmd
}

// revalidate loads the definition and reports its identity, returning
// the identity (or the previous one when the definition is broken).
func revalidate(path, lastID string) string {
	cfg, err := config.Load(path)
	if err != nil {
		log.Error().Err(err).Msg("Definition invalid")
		return lastID
	}

	g, err := graph.Build(cfg.NodeSpecs())
	if err != nil {
		log.Error().Err(err).Msg("Definition invalid")
		return lastID
	}

	id, err := graph.ComputePipelineID(g)
	if err != nil {
		log.Error().Err(err).Msg("Identity derivation failed")
		return lastID
	}

	switch {
	case lastID == "":
		fmt.Printf("%s\n", id)
	case id == lastID:
		log.Info().Msg("Identity unchanged (cosmetic edit)")
	default:
		fmt.Printf("%s\n", id)
		log.Info().Msg("Identity changed (semantic edit)")
	}
	return id
}
