package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Emitter appends validated records to an append-only stream.
type Emitter interface {
	// Emit validates and appends one record.
	Emit(rec Record) error

	// Close flushes and releases the underlying stream.
	Close() error
}

// EmitterOptions configures a JSONL emitter.
type EmitterOptions struct {
	// Strict makes a schema rejection fatal to the caller. When false,
	// rejected records are dropped (reported via RejectHook) and the
	// stream stays intact.
	Strict bool

	// RejectHook, if set, is called for every rejected record.
	RejectHook func(rec Record, err error)
}

// JSONLEmitter writes one self-describing JSON object per line.
// Concurrent emitters share it safely: whole lines are written under a
// single lock, so partial lines never interleave and each line remains
// independently parseable. A failure on a later record never reorders or
// drops records already written.
type JSONLEmitter struct {
	mu       sync.Mutex
	w        io.Writer
	registry *SchemaRegistry
	opts     EmitterOptions
	emitted  int64
	rejected int64
}

// NewJSONLEmitter creates an emitter writing to w, validating every
// record against the registry before it reaches the stream.
func NewJSONLEmitter(w io.Writer, registry *SchemaRegistry, opts EmitterOptions) *JSONLEmitter {
	return &JSONLEmitter{
		w:        w,
		registry: registry,
		opts:     opts,
	}
}

// Emit validates rec and appends it as one line. Validation failures in
// strict mode surface to the caller; in lenient mode the record is
// dropped and the hook notified. Either way the stream's prior contents
// are untouched.
func (e *JSONLEmitter) Emit(rec Record) error {
	if err := e.registry.Validate(rec); err != nil {
		e.mu.Lock()
		e.rejected++
		e.mu.Unlock()

		if e.opts.RejectHook != nil {
			e.opts.RejectHook(rec, err)
		}
		if e.opts.Strict {
			return err
		}
		return nil
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize trace record: %w", err)
	}
	line = append(line, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.w.Write(line); err != nil {
		return fmt.Errorf("failed to append trace record: %w", err)
	}
	e.emitted++
	return nil
}

// Emitted returns the number of records written so far.
func (e *JSONLEmitter) Emitted() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.emitted
}

// Rejected returns the number of records rejected by validation.
func (e *JSONLEmitter) Rejected() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rejected
}

// Close closes the underlying writer when it is closable.
func (e *JSONLEmitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if closer, ok := e.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
