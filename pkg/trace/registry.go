package trace

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/weftline/weft/pkg/errdefs"
)

// SchemaRegistry maps record type tags to their CUE schemas. Validation
// is a pure two-phase check: the required header first, then dispatch to
// the type-specific schema. The registry is append-only; adding a record
// type never touches existing entries and no combined schema exists.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a registry with the built-in lifecycle and
// node-execution schemas registered.
func NewSchemaRegistry() *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     cuecontext.New(),
		schemas: make(map[string]cue.Value),
	}
	sr.registerBuiltInSchemas()
	return sr
}

// registerBuiltInSchemas registers the minimum record taxonomy.
func (sr *SchemaRegistry) registerBuiltInSchemas() {
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(sr.Register(TypeLaunchStart, launchStartSchema))
	must(sr.Register(TypeLaunchEnd, launchEndSchema))
	must(sr.Register(TypeRunStart, runStartSchema))
	must(sr.Register(TypeRunEnd, runEndSchema))
	must(sr.Register(TypeNodeExecution, nodeExecutionSchema))
}

// Register compiles and registers a CUE schema for a record type.
func (sr *SchemaRegistry) Register(recordType, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema)
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", recordType, err)
	}

	sr.schemas[recordType] = val
	return nil
}

// Types returns all registered record type tags in sorted order.
func (sr *SchemaRegistry) Types() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	types := make([]string, 0, len(sr.schemas))
	for t := range sr.schemas {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Validate checks a constructed record against the header contract and
// its type-specific schema.
func (sr *SchemaRegistry) Validate(rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return errdefs.NewSchemaError("record not serializable", err)
	}
	return sr.ValidateBytes(raw)
}

// ValidateBytes checks one serialized record line. Header validation runs
// first: a record missing any required header field is rejected before
// type dispatch. Type dispatch then validates against the schema
// registered for the record's type tag; unknown tags fail dispatch.
func (sr *SchemaRegistry) ValidateBytes(line []byte) error {
	var obj map[string]interface{}
	if err := json.Unmarshal(line, &obj); err != nil {
		return errdefs.NewSchemaError("record is not a JSON object", err).
			WithCode(errdefs.ErrCodeHeaderInvalid)
	}

	recordType, err := validateHeader(obj)
	if err != nil {
		return err
	}

	sr.mu.RLock()
	schema, ok := sr.schemas[recordType]
	sr.mu.RUnlock()
	if !ok {
		return errdefs.NewSchemaError("unrecognized record type tag", nil).
			WithCode(errdefs.ErrCodeUnknownRecordType).
			WithDetail("record_type", recordType)
	}

	dataVal := sr.ctx.Encode(obj)
	if err := dataVal.Err(); err != nil {
		return errdefs.NewSchemaError("record not encodable for validation", err).
			WithSchema(recordType)
	}

	unified := schema.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		// The CUE error names the offending field path.
		return errdefs.NewSchemaError("record failed type-specific validation", err).
			WithCode(errdefs.ErrCodeRecordInvalid).
			WithSchema(recordType)
	}

	return nil
}

// validateHeader enforces the required header fields: record type tag,
// schema version (the literal integer 1), and a run correlation
// identifier. Timestamp stays optional for backward compatibility.
func validateHeader(obj map[string]interface{}) (string, error) {
	rawType, ok := obj[FieldRecordType]
	if !ok {
		return "", headerError("record has no record_type", FieldRecordType)
	}
	recordType, ok := rawType.(string)
	if !ok || recordType == "" {
		return "", headerError("record_type is not a non-empty string", FieldRecordType)
	}

	rawVersion, ok := obj[FieldSchemaVersion]
	if !ok {
		return "", headerError("record has no schema_version", FieldSchemaVersion)
	}
	version, ok := rawVersion.(float64)
	if !ok || version != float64(SchemaVersion) {
		return "", headerError(
			fmt.Sprintf("schema_version must be the literal %d", SchemaVersion), FieldSchemaVersion)
	}

	rawRunID, ok := obj[FieldRunID]
	if !ok {
		return "", headerError("record has no run correlation identifier", FieldRunID)
	}
	runID, ok := rawRunID.(string)
	if !ok || runID == "" {
		return "", headerError("run_id is not a non-empty string", FieldRunID)
	}

	return recordType, nil
}

func headerError(message, field string) error {
	return errdefs.NewSchemaError(message, nil).
		WithCode(errdefs.ErrCodeHeaderInvalid).
		WithDetail("field", field)
}
