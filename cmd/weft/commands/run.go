package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/weftline/weft/pkg/config"
	"github.com/weftline/weft/pkg/engine"
	"github.com/weftline/weft/pkg/graph"
	"github.com/weftline/weft/pkg/runspace"
	"github.com/weftline/weft/pkg/stores"
	"github.com/weftline/weft/pkg/telemetry"
	"github.com/weftline/weft/pkg/trace"
)

func newRunCommand() *cobra.Command {
	var (
		traceDir string
		strict   bool
		retries  int
		dbPath   string
	)

	cmd := &cobra.Command{
		Use:   "run <pipeline.yaml>",
		Short: "Execute a pipeline",
		Long: `Execute a pipeline definition: a single run, or a full launch when
the definition declares a runspace section.

Every run writes an append-only JSONL trace stream, schema-validated
record by record. A failed or partial launch can be retried with
--retries; retries keep the launch identity and bump the attempt
counter, landing in a fresh stream file.`,
		Example: `  # Execute a pipeline
  weft run pipeline.yaml

  # Strict trace validation, custom stream directory
  weft run --strict --trace-dir ./trace pipeline.yaml

  # Retry failed launches up to twice, archive streams to SQLite
  weft run --retries 2 --db weft.db pipeline.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}

			g, err := graph.Build(cfg.NodeSpecs())
			if err != nil {
				return err
			}

			registry := engine.NewProcessorRegistry()
			engine.RegisterBuiltins(registry)

			pipeline, err := engine.NewPipeline(g, registry)
			if err != nil {
				return err
			}

			level := "info"
			if verbose {
				level = "debug"
			}
			logger, err := telemetry.NewLogger(telemetry.LoggingConfig{
				Level:  level,
				Format: "console",
				Output: "stderr",
			})
			if err != nil {
				return err
			}

			metrics, err := telemetry.NewMetrics(telemetry.MetricsConfig{Enabled: false})
			if err != nil {
				return err
			}

			orchRegistry := engine.NewOrchestratorRegistry()
			orchRegistry.Register(engine.NewSequentialOrchestrator(logger, metrics))
			backend, err := orchRegistry.Get(cfg.Backend.Orchestrator)
			if err != nil {
				return err
			}

			dir := cfg.Trace.Dir
			if traceDir != "" {
				dir = traceDir
			}
			if dir == "" {
				dir = ".weft/trace"
			}

			schemaRegistry := trace.NewSchemaRegistry()
			driver, err := trace.NewFileDriver(dir, schemaRegistry, trace.EmitterOptions{
				Strict: strict || cfg.Trace.Strict,
			})
			if err != nil {
				return err
			}

			var streams []string
			defer func() {
				if dbPath != "" && len(streams) > 0 {
					archiveStreams(context.Background(), dbPath, streams, schemaRegistry)
				}
			}()

			if cfg.Runspace == nil {
				streamPath, err := runSingle(ctx, backend, pipeline, driver)
				if streamPath != "" {
					streams = append(streams, streamPath)
				}
				return err
			}

			axes, err := config.ResolveAxes(cfg.Runspace.Axes)
			if err != nil {
				return err
			}
			plan, err := runspace.NewPlan(axes, runspace.CombineMode(cfg.Runspace.Mode), cfg.Runspace.MaxRuns)
			if err != nil {
				return err
			}

			launch := runspace.NewLaunch(plan)
			for {
				emitter, streamPath, err := driver.StreamForLaunch(launch.ID, launch.Attempt)
				if err != nil {
					return err
				}
				streams = append(streams, streamPath)

				result, execErr := backend.ExecuteLaunch(ctx, pipeline, launch, emitter)
				closeErr := emitter.Close()
				if execErr != nil {
					return execErr
				}
				if closeErr != nil {
					return closeErr
				}

				fmt.Printf("launch %s attempt %d: %s (%d succeeded, %d failed of %d)\n",
					result.LaunchID, result.Attempt, result.Status,
					result.Succeeded, result.Failed, result.Total)
				fmt.Printf("trace: %s\n", streamPath)

				if result.Status == engine.LaunchStatusSucceeded {
					return nil
				}
				if result.Status == engine.LaunchStatusAborted || retries <= 0 || launch.Attempt > retries {
					return fmt.Errorf("launch ended with status %s", result.Status)
				}

				launch = launch.Retry()
				log.Warn().
					Str("launch_id", launch.ID).
					Int("attempt", launch.Attempt).
					Msg("Retrying launch")
			}
		},
	}

	cmd.Flags().StringVar(&traceDir, "trace-dir", "", "trace stream directory (default .weft/trace)")
	cmd.Flags().BoolVar(&strict, "strict", false, "make trace schema rejections fatal")
	cmd.Flags().IntVar(&retries, "retries", 0, "retry a failed launch up to N additional attempts")
	cmd.Flags().StringVar(&dbPath, "db", "", "archive trace streams into this SQLite database")

	return cmd
}

// runSingle executes a pipeline with no runspace section as one run.
func runSingle(ctx context.Context, backend engine.Orchestrator, pipeline *engine.Pipeline, driver *trace.FileDriver) (string, error) {
	emitter, streamPath, err := driver.StreamForLaunch(uuid.New().String(), 1)
	if err != nil {
		return "", err
	}

	result := backend.ExecuteRun(ctx, pipeline, runspace.RunDescriptor{Index: 0}, emitter)
	if err := emitter.Close(); err != nil {
		return streamPath, err
	}

	fmt.Printf("run %s: %s\n", result.RunID, result.Status)
	fmt.Printf("trace: %s\n", streamPath)

	if result.Status != engine.RunStatusSucceeded {
		return streamPath, fmt.Errorf("run ended with status %s: %w", result.Status, result.Err)
	}
	return streamPath, nil
}

// archiveStreams imports completed trace streams into the SQLite archive.
func archiveStreams(ctx context.Context, dbPath string, streams []string, registry *trace.SchemaRegistry) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: dbPath})
	if err != nil {
		log.Error().Err(err).Msg("Failed to open trace archive")
		return
	}
	defer store.Close()

	if err := store.Init(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to initialize trace archive")
		return
	}
	if err := store.Migrate(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to migrate trace archive")
		return
	}

	for _, path := range streams {
		imported, err := store.ArchiveStream(ctx, path, registry)
		if err != nil {
			log.Error().Err(err).Str("stream", path).Msg("Failed to archive trace stream")
			continue
		}
		log.Info().Str("stream", path).Int("records", imported).Msg("Archived trace stream")
	}
}
