// Package errdefs defines the classified error type shared by all Weft
// components. Every error surfaced by the core carries a class, an error
// code, and enough structured context (node index, parameter name, axis
// name, schema name) for the caller to act without re-deriving state.
package errdefs

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of an error.
type ErrorClass string

const (
	// ErrorClassConfiguration indicates a malformed pipeline definition or
	// an unresolvable reference. Raised at build time, before any execution.
	ErrorClassConfiguration ErrorClass = "configuration"

	// ErrorClassValidation indicates a rejected mutation or an unsatisfiable
	// plan. Raised before the affected run (or launch) proceeds.
	ErrorClassValidation ErrorClass = "validation"

	// ErrorClassSchema indicates a trace record that failed header or
	// type-specific schema validation.
	ErrorClassSchema ErrorClass = "schema"

	// ErrorClassExecution indicates a processor's own logic failed.
	// Propagated to the orchestrator, which decides retry/abort policy.
	ErrorClassExecution ErrorClass = "execution"
)

// Error represents a classified error with structured context.
type Error struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Node is the offending node index, if applicable. -1 means unset.
	Node int `json:"node,omitempty"`

	// Processor is the processor name involved, if applicable.
	Processor string `json:"processor,omitempty"`

	// Key is the offending context key, if applicable.
	Key string `json:"key,omitempty"`

	// Parameter is the offending parameter name, if applicable.
	Parameter string `json:"parameter,omitempty"`

	// Axis is the offending run-space axis name, if applicable.
	Axis string `json:"axis,omitempty"`

	// Schema is the schema name that rejected a record, if applicable.
	Schema string `json:"schema,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	for _, part := range []struct {
		label string
		value string
	}{
		{"processor", e.Processor},
		{"key", e.Key},
		{"parameter", e.Parameter},
		{"axis", e.Axis},
		{"schema", e.Schema},
	} {
		if part.value != "" {
			msg += fmt.Sprintf(" (%s=%s)", part.label, part.value)
		}
	}
	if e.Node >= 0 {
		msg += fmt.Sprintf(" (node=%d)", e.Node)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(message string, err error) *Error {
	return &Error{Class: ErrorClassConfiguration, Message: message, Err: err, Node: -1}
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, err error) *Error {
	return &Error{Class: ErrorClassValidation, Message: message, Err: err, Node: -1}
}

// NewSchemaError creates a new schema error.
func NewSchemaError(message string, err error) *Error {
	return &Error{Class: ErrorClassSchema, Message: message, Err: err, Node: -1}
}

// NewExecutionError creates a new execution error.
func NewExecutionError(message string, err error) *Error {
	return &Error{Class: ErrorClassExecution, Message: message, Err: err, Node: -1}
}

// WithCode adds an error code.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithNode adds the offending node index.
func (e *Error) WithNode(index int) *Error {
	e.Node = index
	return e
}

// WithProcessor adds the processor name.
func (e *Error) WithProcessor(name string) *Error {
	e.Processor = name
	return e
}

// WithKey adds the offending context key.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithParameter adds the offending parameter name.
func (e *Error) WithParameter(name string) *Error {
	e.Parameter = name
	return e
}

// WithAxis adds the offending axis name.
func (e *Error) WithAxis(name string) *Error {
	e.Axis = name
	return e
}

// WithSchema adds the schema name.
func (e *Error) WithSchema(name string) *Error {
	e.Schema = name
	return e
}

// WithDetail adds a detail field to the error context.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsConfiguration returns true if the error is a configuration error.
func IsConfiguration(err error) bool { return hasClass(err, ErrorClassConfiguration) }

// IsValidation returns true if the error is a validation error.
func IsValidation(err error) bool { return hasClass(err, ErrorClassValidation) }

// IsSchema returns true if the error is a schema error.
func IsSchema(err error) bool { return hasClass(err, ErrorClassSchema) }

// IsExecution returns true if the error is an execution error.
func IsExecution(err error) bool { return hasClass(err, ErrorClassExecution) }

func hasClass(err error, class ErrorClass) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == class
	}
	return false
}

// Common error codes.
const (
	ErrCodeEmptyPipeline     = "EMPTY_PIPELINE"
	ErrCodeBadNodeSpec       = "BAD_NODE_SPEC"
	ErrCodeUnknownProcessor  = "UNKNOWN_PROCESSOR"
	ErrCodeDuplicatePort     = "DUPLICATE_PORT"
	ErrCodeKeyNotDeclared    = "KEY_NOT_DECLARED"
	ErrCodeParamUnresolved   = "PARAM_UNRESOLVED"
	ErrCodeAxisMismatch      = "AXIS_LENGTH_MISMATCH"
	ErrCodeRunLimitExceeded  = "RUN_LIMIT_EXCEEDED"
	ErrCodeAxisSource        = "AXIS_SOURCE_UNREADABLE"
	ErrCodeHeaderInvalid     = "RECORD_HEADER_INVALID"
	ErrCodeUnknownRecordType = "UNKNOWN_RECORD_TYPE"
	ErrCodeRecordInvalid     = "RECORD_INVALID"
	ErrCodeProcessorFailed   = "PROCESSOR_FAILED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)
