// Package graph builds canonical, content-addressed pipeline graphs.
//
// A pipeline definition from any supported source form (a YAML file, a
// decoded mapping, or an in-memory node list) normalizes into a GraphV1:
// an ordered node list under a fixed version tag. Each node carries a
// node_uuid derived by hashing its canonical encoding under a fixed
// namespace, and the whole graph hashes into a "plid-"-prefixed
// PipelineId. Two structurally equal definitions always produce identical
// identifiers regardless of key order in the source.
//
// All functions in this package are pure and safe for concurrent use.
package graph
