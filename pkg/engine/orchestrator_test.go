package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/weftline/weft/pkg/errdefs"
	"github.com/weftline/weft/pkg/graph"
	"github.com/weftline/weft/pkg/pipectx"
	"github.com/weftline/weft/pkg/runspace"
	"github.com/weftline/weft/pkg/telemetry"
	"github.com/weftline/weft/pkg/trace"
)

// captureProcessor records the context value it observes; tests use it
// as a terminal sink node.
type captureProcessor struct {
	seen []float64
}

func (p *captureProcessor) Name() string                        { return "test.capture" }
func (p *captureProcessor) DeclaredParams() []pipectx.ParamSpec { return nil }
func (p *captureProcessor) CreatedKeys() []string               { return nil }
func (p *captureProcessor) SuppressedKeys() []string            { return nil }

func (p *captureProcessor) Process(_ context.Context, data pipectx.Context, _ *pipectx.Observer, _ map[string]interface{}) error {
	v, err := numericContextValue(data, valueKey)
	if err != nil {
		return err
	}
	p.seen = append(p.seen, v)
	return nil
}

// failingProcessor fails whenever the context value matches its trigger.
type failingProcessor struct {
	trigger float64
}

func (p *failingProcessor) Name() string                        { return "test.failer" }
func (p *failingProcessor) DeclaredParams() []pipectx.ParamSpec { return nil }
func (p *failingProcessor) CreatedKeys() []string               { return nil }
func (p *failingProcessor) SuppressedKeys() []string            { return nil }

func (p *failingProcessor) Process(_ context.Context, data pipectx.Context, _ *pipectx.Observer, _ map[string]interface{}) error {
	v, err := numericContextValue(data, valueKey)
	if err != nil {
		return err
	}
	if v == p.trigger {
		return fmt.Errorf("trigger value %v reached", v)
	}
	return nil
}

func newTestOrchestrator(t *testing.T) *SequentialOrchestrator {
	t.Helper()

	logger, err := telemetry.NewLogger(telemetry.LoggingConfig{
		Level:  "error",
		Format: "json",
		Output: "stderr",
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	metrics, err := telemetry.NewMetrics(telemetry.MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Failed to create metrics: %v", err)
	}

	return NewSequentialOrchestrator(logger, metrics)
}

func newTestEmitter(buf *bytes.Buffer) *trace.JSONLEmitter {
	return trace.NewJSONLEmitter(buf, trace.NewSchemaRegistry(), trace.EmitterOptions{Strict: true})
}

func buildPipeline(t *testing.T, registry *ProcessorRegistry, specs []graph.NodeSpec) *Pipeline {
	t.Helper()

	g, err := graph.Build(specs)
	if err != nil {
		t.Fatalf("Failed to build graph: %v", err)
	}
	p, err := NewPipeline(g, registry)
	if err != nil {
		t.Fatalf("Failed to bind pipeline: %v", err)
	}
	return p
}

func traceLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var records []map[string]interface{}
	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for scanner.Scan() {
		var obj map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &obj); err != nil {
			t.Fatalf("Trace line not parseable: %v", err)
		}
		records = append(records, obj)
	}
	return records
}

func recordsOfType(records []map[string]interface{}, recordType string) []map[string]interface{} {
	var out []map[string]interface{}
	for _, rec := range records {
		if rec["record_type"] == recordType {
			out = append(out, rec)
		}
	}
	return out
}

func TestNewPipeline_UnknownProcessorFailsBinding(t *testing.T) {
	registry := NewProcessorRegistry()
	RegisterBuiltins(registry)

	g, err := graph.Build([]graph.NodeSpec{
		{Role: "source", Processor: ProcessorConstant, Params: map[string]interface{}{"value": 1.0}},
		{Role: "transform", Processor: "weft.math.modulo"},
	})
	if err != nil {
		t.Fatalf("Failed to build graph: %v", err)
	}

	_, err = NewPipeline(g, registry)
	if err == nil {
		t.Fatal("Expected binding error for unknown processor")
	}

	var e *errdefs.Error
	if !errors.As(err, &e) || e.Code != errdefs.ErrCodeUnknownProcessor {
		t.Errorf("Expected UNKNOWN_PROCESSOR code, got: %v", err)
	}
	if e.Node != 1 {
		t.Errorf("Expected error to name node 1, got %d", e.Node)
	}
}

func TestExecuteRun_ChainComputesThroughContext(t *testing.T) {
	registry := NewProcessorRegistry()
	RegisterBuiltins(registry)
	capture := &captureProcessor{}
	registry.Register(capture)

	p := buildPipeline(t, registry, []graph.NodeSpec{
		{Role: "source", Processor: ProcessorConstant, Params: map[string]interface{}{"value": 1.0}},
		{Role: "transform", Processor: ProcessorAdd, Params: map[string]interface{}{"addend": 2.0}},
		{Role: "transform", Processor: ProcessorMultiply, Params: map[string]interface{}{"factor": 3.0}},
		{Role: "sink", Processor: "test.capture"},
	})

	var buf bytes.Buffer
	orch := newTestOrchestrator(t)
	result := orch.ExecuteRun(context.Background(), p, runspace.RunDescriptor{Index: 0}, newTestEmitter(&buf))

	if result.Status != RunStatusSucceeded {
		t.Fatalf("Expected succeeded run, got %s (%v)", result.Status, result.Err)
	}
	if len(capture.seen) != 1 || capture.seen[0] != 9.0 {
		t.Errorf("Expected (1+2)*3 = 9.0 at the sink, got %v", capture.seen)
	}

	records := traceLines(t, &buf)
	if got := len(recordsOfType(records, trace.TypeRunStart)); got != 1 {
		t.Errorf("Expected 1 run_start, got %d", got)
	}
	if got := len(recordsOfType(records, trace.TypeNodeExecution)); got != 4 {
		t.Errorf("Expected 4 node_execution records, got %d", got)
	}

	ends := recordsOfType(records, trace.TypeRunEnd)
	if len(ends) != 1 || ends[0]["status"] != "succeeded" {
		t.Errorf("Expected 1 succeeded run_end, got %v", ends)
	}

	starts := recordsOfType(records, trace.TypeRunStart)
	if starts[0]["pipeline_id"] != p.ID {
		t.Errorf("run_start pipeline_id = %v, want %s", starts[0]["pipeline_id"], p.ID)
	}
}

func TestExecuteRun_FailingNodeStopsRun(t *testing.T) {
	registry := NewProcessorRegistry()
	RegisterBuiltins(registry)
	capture := &captureProcessor{}
	registry.Register(capture)
	registry.Register(&failingProcessor{trigger: 1.0})

	p := buildPipeline(t, registry, []graph.NodeSpec{
		{Role: "source", Processor: ProcessorConstant, Params: map[string]interface{}{"value": 1.0}},
		{Role: "check", Processor: "test.failer"},
		{Role: "sink", Processor: "test.capture"},
	})

	var buf bytes.Buffer
	orch := newTestOrchestrator(t)
	result := orch.ExecuteRun(context.Background(), p, runspace.RunDescriptor{Index: 0}, newTestEmitter(&buf))

	if result.Status != RunStatusFailed {
		t.Fatalf("Expected failed run, got %s", result.Status)
	}
	if !errdefs.IsExecution(result.Err) {
		t.Errorf("Expected execution error, got: %v", result.Err)
	}
	if len(capture.seen) != 0 {
		t.Error("Node after the failure still executed")
	}

	records := traceLines(t, &buf)
	ends := recordsOfType(records, trace.TypeRunEnd)
	if len(ends) != 1 || ends[0]["status"] != "failed" {
		t.Errorf("Expected failed run_end, got %v", ends)
	}
	if ends[0]["error"] == nil {
		t.Error("Failed run_end missing error message")
	}
	// The failing node has a record; the skipped sink does not.
	if got := len(recordsOfType(records, trace.TypeNodeExecution)); got != 2 {
		t.Errorf("Expected 2 node_execution records, got %d", got)
	}
}

func TestExecuteRun_ParamResolutionPrefersContextOverDefault(t *testing.T) {
	registry := NewProcessorRegistry()
	RegisterBuiltins(registry)
	capture := &captureProcessor{}
	registry.Register(capture)

	// No addend in node params; the axis-injected context supplies it.
	p := buildPipeline(t, registry, []graph.NodeSpec{
		{Role: "transform", Processor: ProcessorAdd},
		{Role: "sink", Processor: "test.capture"},
	})

	var buf bytes.Buffer
	orch := newTestOrchestrator(t)
	result := orch.ExecuteRun(context.Background(), p, runspace.RunDescriptor{
		Index:  0,
		Values: map[string]interface{}{"value": 5.0, "addend": 7.0},
	}, newTestEmitter(&buf))

	if result.Status != RunStatusSucceeded {
		t.Fatalf("Expected succeeded run, got %s (%v)", result.Status, result.Err)
	}
	if len(capture.seen) != 1 || capture.seen[0] != 12.0 {
		t.Errorf("Expected 5+7 = 12.0, got %v", capture.seen)
	}
}

func TestExecuteLaunch_ByPositionFanOut(t *testing.T) {
	registry := NewProcessorRegistry()
	RegisterBuiltins(registry)
	capture := &captureProcessor{}
	registry.Register(capture)

	p := buildPipeline(t, registry, []graph.NodeSpec{
		{Role: "transform", Processor: ProcessorMultiply},
		{Role: "sink", Processor: "test.capture"},
	})

	plan, err := runspace.NewPlan([]runspace.Axis{
		{Name: "value", Values: []interface{}{1.0, 2.0}},
		{Name: "factor", Values: []interface{}{10.0, 20.0}},
	}, runspace.CombineByPosition, 0)
	if err != nil {
		t.Fatalf("Failed to build plan: %v", err)
	}
	launch := runspace.NewLaunch(plan)

	var buf bytes.Buffer
	orch := newTestOrchestrator(t)
	result, err := orch.ExecuteLaunch(context.Background(), p, launch, newTestEmitter(&buf))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Status != LaunchStatusSucceeded {
		t.Errorf("Expected succeeded launch, got %s", result.Status)
	}
	if result.Succeeded != 2 || result.Failed != 0 || result.Total != 2 {
		t.Errorf("Unexpected counts: %+v", result)
	}
	if len(capture.seen) != 2 || capture.seen[0] != 10.0 || capture.seen[1] != 40.0 {
		t.Errorf("Expected [10, 40], got %v", capture.seen)
	}

	records := traceLines(t, &buf)

	starts := recordsOfType(records, trace.TypeLaunchStart)
	if len(starts) != 1 {
		t.Fatalf("Expected 1 launch_start, got %d", len(starts))
	}
	if starts[0]["total_runs"] != float64(2) || starts[0]["combine_mode"] != "by_position" {
		t.Errorf("launch_start missing plan constants: %v", starts[0])
	}
	if starts[0]["plan_identity"] != plan.PlanIdentity() {
		t.Errorf("launch_start plan_identity mismatch")
	}

	runStarts := recordsOfType(records, trace.TypeRunStart)
	if len(runStarts) != 2 {
		t.Fatalf("Expected 2 run_start records, got %d", len(runStarts))
	}
	indices := map[float64]bool{}
	for _, rs := range runStarts {
		indices[rs["run_index"].(float64)] = true
		if rs["launch_id"] != launch.ID {
			t.Errorf("run_start missing launch foreign key: %v", rs)
		}
		// Plan constants are never duplicated on per-run records.
		if _, ok := rs["plan_identity"]; ok {
			t.Error("run_start duplicates plan_identity")
		}
	}
	if !indices[0] || !indices[1] {
		t.Errorf("Expected run indices 0 and 1, got %v", indices)
	}

	ends := recordsOfType(records, trace.TypeLaunchEnd)
	if len(ends) != 1 || ends[0]["status"] != "succeeded" {
		t.Errorf("Expected succeeded launch_end, got %v", ends)
	}
	if ends[0]["succeeded"] != float64(2) || ends[0]["total"] != float64(2) {
		t.Errorf("launch_end counts wrong: %v", ends[0])
	}
}

func TestExecuteLaunch_PartialOutcome(t *testing.T) {
	registry := NewProcessorRegistry()
	RegisterBuiltins(registry)
	registry.Register(&failingProcessor{trigger: 2.0})

	p := buildPipeline(t, registry, []graph.NodeSpec{
		{Role: "check", Processor: "test.failer"},
	})

	plan, err := runspace.NewPlan([]runspace.Axis{
		{Name: "value", Values: []interface{}{1.0, 2.0, 3.0}},
	}, runspace.CombineByPosition, 0)
	if err != nil {
		t.Fatalf("Failed to build plan: %v", err)
	}

	var buf bytes.Buffer
	orch := newTestOrchestrator(t)
	result, err := orch.ExecuteLaunch(context.Background(), p, runspace.NewLaunch(plan), newTestEmitter(&buf))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Status != LaunchStatusPartial {
		t.Errorf("Expected partial launch, got %s", result.Status)
	}
	if result.Succeeded != 2 || result.Failed != 1 {
		t.Errorf("Expected 2 succeeded / 1 failed, got %+v", result)
	}

	// A failed run never reports success in the stream.
	records := traceLines(t, &buf)
	var failedEnds int
	for _, rec := range recordsOfType(records, trace.TypeRunEnd) {
		if rec["status"] == "failed" {
			failedEnds++
		}
	}
	if failedEnds != 1 {
		t.Errorf("Expected exactly 1 failed run_end, got %d", failedEnds)
	}
}

func TestExecuteLaunch_CancellationAborts(t *testing.T) {
	registry := NewProcessorRegistry()
	RegisterBuiltins(registry)

	p := buildPipeline(t, registry, []graph.NodeSpec{
		{Role: "source", Processor: ProcessorConstant, Params: map[string]interface{}{"value": 1.0}},
	})

	plan, err := runspace.NewPlan([]runspace.Axis{
		{Name: "batch", Values: []interface{}{1, 2, 3}},
	}, runspace.CombineByPosition, 0)
	if err != nil {
		t.Fatalf("Failed to build plan: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	orch := newTestOrchestrator(t)
	result, err := orch.ExecuteLaunch(ctx, p, runspace.NewLaunch(plan), newTestEmitter(&buf))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Status != LaunchStatusAborted {
		t.Errorf("Expected aborted launch, got %s", result.Status)
	}

	records := traceLines(t, &buf)
	ends := recordsOfType(records, trace.TypeLaunchEnd)
	if len(ends) != 1 || ends[0]["status"] != "aborted" {
		t.Errorf("Expected aborted launch_end, got %v", ends)
	}
	// Counts observed at abort time: nothing ran.
	if ends[0]["succeeded"] != float64(0) || ends[0]["failed"] != float64(0) {
		t.Errorf("Expected zero counts at abort, got %v", ends[0])
	}
}

func TestProcessorRegistry_Lookup(t *testing.T) {
	registry := NewProcessorRegistry()
	RegisterBuiltins(registry)

	if _, err := registry.Get(ProcessorAdd); err != nil {
		t.Errorf("Expected built-in lookup to succeed, got: %v", err)
	}

	_, err := registry.Get("weft.math.divide")
	if err == nil {
		t.Fatal("Expected lookup error for unregistered processor")
	}
	var e *errdefs.Error
	if !errors.As(err, &e) || e.Code != errdefs.ErrCodeUnknownProcessor {
		t.Errorf("Expected UNKNOWN_PROCESSOR code, got: %v", err)
	}

	names := registry.Names()
	if len(names) != 4 {
		t.Errorf("Expected 4 built-ins, got %v", names)
	}
}

func TestOrchestratorRegistry_DefaultsToSequential(t *testing.T) {
	registry := NewOrchestratorRegistry()
	registry.Register(newTestOrchestrator(t))

	o, err := registry.Get("")
	if err != nil {
		t.Fatalf("Expected default lookup to succeed, got: %v", err)
	}
	if o.Name() != "sequential" {
		t.Errorf("Expected sequential orchestrator, got %s", o.Name())
	}

	if _, err := registry.Get("distributed"); err == nil {
		t.Error("Expected lookup error for unregistered orchestrator")
	}
}
