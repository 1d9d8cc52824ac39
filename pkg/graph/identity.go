package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// PipelineIDPrefix namespaces pipeline identifiers against other
// identifier kinds external tooling may encounter.
const PipelineIDPrefix = "plid-"

// nodeNamespace is the fixed namespace for name-based node identifiers.
// It never changes without an explicit namespace bump, so node_uuid
// values are stable across processes and builder versions.
var nodeNamespace = uuid.MustParse("1f3c9a70-54d2-4b8e-9c1a-7e2d08c4b6aa")

// NodeUUID computes the deterministic, name-derived identifier for a node
// spec. Identical canonical fields always yield the identical identifier,
// independent of the graph's serialized source form.
func NodeUUID(spec NodeSpec) (string, error) {
	enc, err := CanonicalJSON(spec.canonical())
	if err != nil {
		return "", fmt.Errorf("node canonicalization failed: %w", err)
	}
	return uuid.NewSHA1(nodeNamespace, enc).String(), nil
}

// ComputePipelineID derives the content-addressed identifier for a whole
// canonical graph: the PipelineIDPrefix plus the SHA-256 hex digest of the
// graph's canonical JSON encoding. Computed once per distinct definition;
// used to correlate trace records across runs of the same logical pipeline.
func ComputePipelineID(g *GraphV1) (string, error) {
	enc, err := CanonicalJSON(g)
	if err != nil {
		return "", fmt.Errorf("graph canonicalization failed: %w", err)
	}
	sum := sha256.Sum256(enc)
	return PipelineIDPrefix + hex.EncodeToString(sum[:]), nil
}
