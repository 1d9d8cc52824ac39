package trace

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/weftline/weft/pkg/errdefs"
)

const testPipelineID = "plid-" +
	"0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

const testIdentity = "fedcba9876543210fedcba9876543210fedcba9876543210fedcba9876543210"

func TestValidate_BuiltInRecordsPass(t *testing.T) {
	registry := NewSchemaRegistry()

	records := []Record{
		LaunchStart("launch-1", 1, testIdentity, testIdentity, "by_position", 2, 10),
		LaunchEnd("launch-1", 1, "succeeded", 2, 0, 2),
		RunStart("run-1", testPipelineID, 0, map[string]interface{}{"value": 1.0}, "launch-1", 1),
		RunEnd("run-1", "succeeded", ""),
		NodeExecution("run-1", "9b2f0b9e-1111-5222-8333-444455556666", "weft.math.add", "succeeded", 5*time.Millisecond, ""),
	}

	for _, rec := range records {
		if err := registry.Validate(rec); err != nil {
			t.Errorf("Record %s failed validation: %v", rec.Type, err)
		}
	}
}

func TestValidateBytes_MissingHeaderFieldRejectedBeforeDispatch(t *testing.T) {
	registry := NewSchemaRegistry()

	tests := []struct {
		name string
		line string
	}{
		{"no record_type", `{"schema_version":1,"run_id":"r1"}`},
		{"no schema_version", `{"record_type":"run_end","run_id":"r1","status":"succeeded"}`},
		{"wrong schema_version", `{"record_type":"run_end","schema_version":2,"run_id":"r1","status":"succeeded"}`},
		{"no run_id", `{"record_type":"run_end","schema_version":1,"status":"succeeded"}`},
		{"empty run_id", `{"record_type":"run_end","schema_version":1,"run_id":"","status":"succeeded"}`},
		// Header failure wins even for a type no schema exists for.
		{"unknown type without header", `{"record_type":"mystery"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registry.ValidateBytes([]byte(tt.line))
			if err == nil {
				t.Fatal("Expected header validation error")
			}
			var e *errdefs.Error
			if !errors.As(err, &e) || e.Code != errdefs.ErrCodeHeaderInvalid {
				t.Errorf("Expected RECORD_HEADER_INVALID code, got: %v", err)
			}
		})
	}
}

func TestValidateBytes_UnknownRecordTypeFailsDispatch(t *testing.T) {
	registry := NewSchemaRegistry()

	err := registry.ValidateBytes([]byte(`{"record_type":"mystery","schema_version":1,"run_id":"r1"}`))
	if err == nil {
		t.Fatal("Expected dispatch error")
	}

	var e *errdefs.Error
	if !errors.As(err, &e) || e.Code != errdefs.ErrCodeUnknownRecordType {
		t.Errorf("Expected UNKNOWN_RECORD_TYPE code, got: %v", err)
	}
}

func TestValidateBytes_AdditiveFieldsPass(t *testing.T) {
	registry := NewSchemaRegistry()

	line := `{"record_type":"run_end","schema_version":1,"run_id":"r1",` +
		`"status":"succeeded","worker_host":"node-7","queue_latency_ms":12}`
	if err := registry.ValidateBytes([]byte(line)); err != nil {
		t.Errorf("Expected additive fields to pass, got: %v", err)
	}
}

func TestValidateBytes_TypeSchemaFailureNamesSchema(t *testing.T) {
	registry := NewSchemaRegistry()

	// run_index must be >= 0.
	rec := RunStart("run-1", testPipelineID, 0, nil, "", 0)
	rec.Fields["run_index"] = -1

	err := registry.Validate(rec)
	if err == nil {
		t.Fatal("Expected type-specific validation error")
	}
	if !strings.Contains(err.Error(), "schema=run_start") {
		t.Errorf("Expected error to name the schema, got: %v", err)
	}
	if !strings.Contains(err.Error(), "run_index") {
		t.Errorf("Expected error to name the offending field, got: %v", err)
	}
}

func TestRegister_NewTypeExtendsRegistry(t *testing.T) {
	registry := NewSchemaRegistry()

	schema := `
{
	record_type:    "checkpoint"
	schema_version: 1
	run_id:         string & != ""
	sequence:       int & >=0
	...
}
`
	if err := registry.Register("checkpoint", schema); err != nil {
		t.Fatalf("Expected registration to succeed, got: %v", err)
	}

	line := `{"record_type":"checkpoint","schema_version":1,"run_id":"r1","sequence":4}`
	if err := registry.ValidateBytes([]byte(line)); err != nil {
		t.Errorf("Expected registered type to validate, got: %v", err)
	}

	// Existing types still validate; no combined schema was touched.
	if err := registry.Validate(RunEnd("r1", "succeeded", "")); err != nil {
		t.Errorf("Existing type broken by registration: %v", err)
	}
}

func TestRecord_MarshalFlattensHeaderAndFields(t *testing.T) {
	rec := RunEnd("run-1", "failed", "processor exploded")

	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		t.Fatalf("Expected valid JSON, got: %v", err)
	}

	if obj[FieldRecordType] != TypeRunEnd {
		t.Errorf("record_type = %v", obj[FieldRecordType])
	}
	if obj[FieldSchemaVersion] != float64(1) {
		t.Errorf("schema_version = %v", obj[FieldSchemaVersion])
	}
	if obj["status"] != "failed" || obj["error"] != "processor exploded" {
		t.Errorf("Type-specific fields not flattened: %v", obj)
	}
	if _, ok := obj[FieldTimestamp]; !ok {
		t.Error("Lifecycle record missing timestamp")
	}
}
