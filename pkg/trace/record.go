package trace

import (
	"encoding/json"
	"time"
)

// SchemaVersion is the current trace record schema version. Every
// emitted record carries it; consumers reject records from future
// versions they do not understand.
const SchemaVersion = 1

// Record type tags. Adding a record type requires only a new schema and
// a registry entry; no combined schema exists.
const (
	TypeLaunchStart   = "launch_start"
	TypeLaunchEnd     = "launch_end"
	TypeRunStart      = "run_start"
	TypeRunEnd        = "run_end"
	TypeNodeExecution = "node_execution"
)

// Header field names shared by every record.
const (
	FieldRecordType    = "record_type"
	FieldSchemaVersion = "schema_version"
	FieldRunID         = "run_id"
	FieldTimestamp     = "timestamp"
)

// Record is one immutable trace event: the required header plus
// type-specific fields. Records serialize to a single flat JSON object,
// one per line in the stream.
type Record struct {
	// Type is the record type tag used for schema dispatch.
	Type string

	// RunID is the run correlation identifier. Launch-level records use
	// the launch id as their correlation identifier.
	RunID string

	// Timestamp is when the event occurred. Optional in the header
	// schema for backward compatibility; the emitting driver always
	// sets it on lifecycle records.
	Timestamp time.Time

	// Fields holds the type-specific payload.
	Fields map[string]interface{}
}

// MarshalJSON flattens the header and the type-specific fields into one
// JSON object.
func (r Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(r.Fields)+4)
	for k, v := range r.Fields {
		flat[k] = v
	}
	flat[FieldRecordType] = r.Type
	flat[FieldSchemaVersion] = SchemaVersion
	flat[FieldRunID] = r.RunID
	if !r.Timestamp.IsZero() {
		flat[FieldTimestamp] = r.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(flat)
}

// LaunchStart builds the launch-start record. Values constant across the
// whole launch (plan identity, inputs identity, combine mode, total run
// count, configured ceiling) are recorded here exactly once and never
// duplicated per run.
func LaunchStart(launchID string, attempt int, planIdentity, inputsIdentity, mode string, totalRuns, maxRuns int) Record {
	fields := map[string]interface{}{
		"launch_id":       launchID,
		"attempt":         attempt,
		"plan_identity":   planIdentity,
		"inputs_identity": inputsIdentity,
		"combine_mode":    mode,
		"total_runs":      totalRuns,
	}
	if maxRuns > 0 {
		fields["max_runs"] = maxRuns
	}
	return Record{
		Type:      TypeLaunchStart,
		RunID:     launchID,
		Timestamp: time.Now(),
		Fields:    fields,
	}
}

// LaunchEnd builds the launch-end record. Final counts are reported only
// after every dispatched run reached a terminal state; an aborted launch
// reports the counts observed at abort time with an "aborted" status.
func LaunchEnd(launchID string, attempt int, status string, succeeded, failed, total int) Record {
	return Record{
		Type:      TypeLaunchEnd,
		RunID:     launchID,
		Timestamp: time.Now(),
		Fields: map[string]interface{}{
			"launch_id": launchID,
			"attempt":   attempt,
			"status":    status,
			"succeeded": succeeded,
			"failed":    failed,
			"total":     total,
		},
	}
}

// RunStart builds the pipeline-run-start record with the per-run fields:
// run-space index and injected context values, plus the (launch id,
// attempt) composite foreign key when the run is part of a launch.
func RunStart(runID, pipelineID string, runIndex int, values map[string]interface{}, launchID string, attempt int) Record {
	fields := map[string]interface{}{
		"pipeline_id": pipelineID,
		"run_index":   runIndex,
	}
	if len(values) > 0 {
		fields["values"] = values
	}
	if launchID != "" {
		fields["launch_id"] = launchID
		fields["attempt"] = attempt
	}
	return Record{
		Type:      TypeRunStart,
		RunID:     runID,
		Timestamp: time.Now(),
		Fields:    fields,
	}
}

// RunEnd builds the pipeline-run-end record. An aborted or failed run
// carries its true terminal status, never a false success.
func RunEnd(runID, status string, errMessage string) Record {
	fields := map[string]interface{}{
		"status": status,
	}
	if errMessage != "" {
		fields["error"] = errMessage
	}
	return Record{
		Type:      TypeRunEnd,
		RunID:     runID,
		Timestamp: time.Now(),
		Fields:    fields,
	}
}

// NodeExecution builds the per-node execution record.
func NodeExecution(runID, nodeUUID, processor, status string, duration time.Duration, errMessage string) Record {
	fields := map[string]interface{}{
		"node_uuid":   nodeUUID,
		"processor":   processor,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	}
	if errMessage != "" {
		fields["error"] = errMessage
	}
	return Record{
		Type:      TypeNodeExecution,
		RunID:     runID,
		Timestamp: time.Now(),
		Fields:    fields,
	}
}
