package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/weftline/weft/pkg/errdefs"
	"github.com/weftline/weft/pkg/pipectx"
	"github.com/weftline/weft/pkg/runspace"
	"github.com/weftline/weft/pkg/telemetry"
	"github.com/weftline/weft/pkg/trace"
)

// RunResult is the outcome of one pipeline run.
type RunResult struct {
	// RunID is the run correlation identifier.
	RunID string `json:"run_id"`

	// Index is the run's zero-based position within its launch.
	Index int `json:"index"`

	// Status is the terminal run status.
	Status RunStatus `json:"status"`

	// Err is the failure cause, nil for succeeded runs.
	Err error `json:"-"`
}

// LaunchResult is the outcome of one launch attempt: the terminal
// status plus the final per-run counts.
type LaunchResult struct {
	// LaunchID is the launch identifier.
	LaunchID string `json:"launch_id"`

	// Attempt is the launch attempt counter.
	Attempt int `json:"attempt"`

	// Status is the terminal launch status.
	Status LaunchStatus `json:"status"`

	// Succeeded is the number of runs that succeeded.
	Succeeded int `json:"succeeded"`

	// Failed is the number of runs that failed.
	Failed int `json:"failed"`

	// Total is the planned run count.
	Total int `json:"total"`

	// Runs holds the per-run results in dispatch order.
	Runs []RunResult `json:"runs"`
}

// Orchestrator executes pipeline runs against a trace stream. Different
// orchestrators vary dispatch (sequential, parallel, remote) but share
// the run semantics: inject axis values, execute nodes in order, emit
// lifecycle records.
type Orchestrator interface {
	// Name returns the registry name of this orchestrator.
	Name() string

	// ExecuteRun executes one run of the pipeline.
	ExecuteRun(ctx context.Context, p *Pipeline, desc runspace.RunDescriptor, emitter trace.Emitter) RunResult

	// ExecuteLaunch executes every run of a launch attempt and reports
	// the aggregate outcome.
	ExecuteLaunch(ctx context.Context, p *Pipeline, launch *runspace.Launch, emitter trace.Emitter) (*LaunchResult, error)
}

// OrchestratorRegistry maps backend names to orchestrator implementations.
type OrchestratorRegistry struct {
	mu            sync.RWMutex
	orchestrators map[string]Orchestrator
}

// NewOrchestratorRegistry creates an empty orchestrator registry.
func NewOrchestratorRegistry() *OrchestratorRegistry {
	return &OrchestratorRegistry{
		orchestrators: make(map[string]Orchestrator),
	}
}

// Register adds an orchestrator to the registry.
func (r *OrchestratorRegistry) Register(o Orchestrator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orchestrators[o.Name()] = o
}

// Get returns the orchestrator registered under name. An empty name
// selects the default sequential orchestrator.
func (r *OrchestratorRegistry) Get(name string) (Orchestrator, error) {
	if name == "" {
		name = "sequential"
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orchestrators[name]
	if !ok {
		return nil, errdefs.NewConfigurationError("orchestrator not registered", nil).
			WithDetail("orchestrator", name)
	}
	return o, nil
}

// Names returns the registered orchestrator names in sorted order.
func (r *OrchestratorRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.orchestrators))
	for name := range r.orchestrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SequentialOrchestrator executes runs one at a time in descriptor
// order. It is the default backend.
type SequentialOrchestrator struct {
	logger  *telemetry.Logger
	metrics *telemetry.Metrics
}

// NewSequentialOrchestrator creates a sequential orchestrator.
func NewSequentialOrchestrator(logger *telemetry.Logger, metrics *telemetry.Metrics) *SequentialOrchestrator {
	return &SequentialOrchestrator{
		logger:  logger.NewComponentLogger("orchestrator"),
		metrics: metrics,
	}
}

// Name returns the registry name of this orchestrator.
func (o *SequentialOrchestrator) Name() string { return "sequential" }

// ExecuteLaunch executes every run of the launch in order. The launch
// start record carries the launch-constant plan fields exactly once;
// final counts are reported only after every dispatched run reached a
// terminal state. Cancellation stops dispatch and reports the counts
// observed at abort time under an aborted status.
func (o *SequentialOrchestrator) ExecuteLaunch(ctx context.Context, p *Pipeline, launch *runspace.Launch, emitter trace.Emitter) (*LaunchResult, error) {
	plan := launch.Plan
	logger := o.logger.WithLaunchID(launch.ID, launch.Attempt).WithPipelineID(p.ID)

	start := trace.LaunchStart(launch.ID, launch.Attempt,
		plan.PlanIdentity(), plan.InputsIdentity(),
		string(plan.Mode()), plan.TotalRuns(), plan.MaxRuns())
	if err := o.emit(emitter, start); err != nil {
		return nil, err
	}
	o.metrics.RecordLaunchStarted()
	logger.Infof("launch started: %d runs", plan.TotalRuns())

	result := &LaunchResult{
		LaunchID: launch.ID,
		Attempt:  launch.Attempt,
		Total:    plan.TotalRuns(),
	}

	aborted := false
	for _, desc := range launch.Descriptors() {
		if ctx.Err() != nil {
			aborted = true
			break
		}

		run := o.ExecuteRun(ctx, p, desc, emitter)
		result.Runs = append(result.Runs, run)

		switch run.Status {
		case RunStatusSucceeded:
			result.Succeeded++
		case RunStatusFailed:
			result.Failed++
		case RunStatusAborted:
			aborted = true
		}
		if aborted {
			break
		}
	}

	switch {
	case aborted:
		result.Status = LaunchStatusAborted
	case result.Failed == 0:
		result.Status = LaunchStatusSucceeded
	case result.Succeeded == 0:
		result.Status = LaunchStatusFailed
	default:
		result.Status = LaunchStatusPartial
	}

	end := trace.LaunchEnd(launch.ID, launch.Attempt,
		string(result.Status), result.Succeeded, result.Failed, result.Total)
	if err := o.emit(emitter, end); err != nil {
		return nil, err
	}
	o.metrics.RecordLaunchCompleted(string(result.Status))
	logger.Infof("launch %s: %d succeeded, %d failed of %d",
		result.Status, result.Succeeded, result.Failed, result.Total)

	return result, nil
}

// ExecuteRun executes one run: a fresh context seeded with the run's
// axis values, every node in graph order, one execution record per
// node attempted. A failing node fails the run; later nodes do not
// execute. Cancellation mid-run yields an aborted terminal record,
// never a false success.
func (o *SequentialOrchestrator) ExecuteRun(ctx context.Context, p *Pipeline, desc runspace.RunDescriptor, emitter trace.Emitter) RunResult {
	runID := uuid.New().String()
	logger := o.logger.WithRunID(runID).WithPipelineID(p.ID)

	result := RunResult{RunID: runID, Index: desc.Index}

	start := trace.RunStart(runID, p.ID, desc.Index, desc.Values, desc.LaunchID, desc.Attempt)
	if err := o.emit(emitter, start); err != nil {
		result.Status = RunStatusFailed
		result.Err = err
		return result
	}
	o.metrics.RecordRunStarted()
	runStarted := time.Now()

	data := pipectx.NewSingleContextFrom(desc.Values)

	for i, node := range p.Graph.Nodes {
		if ctx.Err() != nil {
			logger.Warn("run aborted by cancellation")
			result.Status = RunStatusAborted
			result.Err = ctx.Err()
			o.finishRun(emitter, runID, result, runStarted, ctx.Err().Error())
			return result
		}

		proc := p.Processor(i)
		nodeErr := o.executeNode(ctx, node.NodeUUID, node.NodeSpec.Params, proc, data, runID, emitter, logger)
		if nodeErr != nil {
			result.Status = RunStatusFailed
			result.Err = nodeErr
			o.finishRun(emitter, runID, result, runStarted, nodeErr.Error())
			return result
		}
	}

	result.Status = RunStatusSucceeded
	o.finishRun(emitter, runID, result, runStarted, "")
	return result
}

// executeNode resolves parameters, binds the mutation observer, runs the
// processor, and emits the execution record.
func (o *SequentialOrchestrator) executeNode(ctx context.Context, nodeUUID string, nodeConfig map[string]interface{}, proc Processor, data pipectx.Context, runID string, emitter trace.Emitter, logger *telemetry.Logger) error {
	params, err := pipectx.ResolveParams(proc.DeclaredParams(), nodeConfig, data, proc.Name())
	if err != nil {
		o.emitNode(emitter, runID, nodeUUID, proc.Name(), NodeStatusFailed, 0, err)
		return err
	}

	obs := pipectx.NewObserver(data, proc.Name(), proc.CreatedKeys(), proc.SuppressedKeys())

	started := time.Now()
	procErr := proc.Process(ctx, data, obs, params)
	elapsed := time.Since(started)

	if procErr != nil {
		logger.WithNodeUUID(nodeUUID).WithProcessor(proc.Name()).
			WithError(procErr).Error("node execution failed")
		o.emitNode(emitter, runID, nodeUUID, proc.Name(), NodeStatusFailed, elapsed, procErr)
		return errdefs.NewExecutionError("processor execution failed", procErr).
			WithCode(errdefs.ErrCodeProcessorFailed).
			WithProcessor(proc.Name())
	}

	logger.WithNodeUUID(nodeUUID).WithProcessor(proc.Name()).Debug("node executed")
	o.emitNode(emitter, runID, nodeUUID, proc.Name(), NodeStatusSucceeded, elapsed, nil)
	return nil
}

// finishRun emits the terminal run record and records run metrics.
func (o *SequentialOrchestrator) finishRun(emitter trace.Emitter, runID string, result RunResult, started time.Time, errMessage string) {
	rec := trace.RunEnd(runID, string(result.Status), errMessage)
	if err := o.emit(emitter, rec); err != nil {
		o.logger.WithRunID(runID).WithError(err).Error("failed to emit run end record")
	}
	o.metrics.RecordRunCompleted(string(result.Status), time.Since(started))
}

// emitNode emits one node execution record and records node metrics.
func (o *SequentialOrchestrator) emitNode(emitter trace.Emitter, runID, nodeUUID, processor string, status NodeStatus, duration time.Duration, nodeErr error) {
	msg := ""
	if nodeErr != nil {
		msg = nodeErr.Error()
	}
	rec := trace.NodeExecution(runID, nodeUUID, processor, string(status), duration, msg)
	if err := o.emit(emitter, rec); err != nil {
		o.logger.WithRunID(runID).WithError(err).Error("failed to emit node execution record")
	}
	o.metrics.RecordNodeExecution(processor, string(status), duration)
}

// emit writes one record and keeps the trace stream metrics honest.
func (o *SequentialOrchestrator) emit(emitter trace.Emitter, rec trace.Record) error {
	if err := emitter.Emit(rec); err != nil {
		o.metrics.RecordTraceRejected(rec.Type)
		return err
	}
	o.metrics.RecordTraceEmitted(rec.Type)
	return nil
}
