// Package trace implements the append-only audit protocol: every
// lifecycle event and node completion serializes to one self-describing
// JSON line, validated against a CUE schema registry before it reaches
// the stream.
//
// Validation is two-phase: the required header (record type tag, schema
// version, run correlation identifier) is checked first, then the type
// tag dispatches to that type's registered schema. Schemas are open
// structs, so producers can add fields without breaking consumers; only
// the header and the type-specific required fields are enforced.
package trace
