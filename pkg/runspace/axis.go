package runspace

import (
	"fmt"
)

// CombineMode selects how axis value lists combine into runs.
type CombineMode string

const (
	// CombineByPosition zips the axes: every axis must have the same
	// length L, producing exactly L runs.
	CombineByPosition CombineMode = "by_position"

	// CombineCombinatorial takes the full Cartesian product of the axes.
	CombineCombinatorial CombineMode = "combinatorial"
)

// Validate checks that the combine mode is one of the known modes.
func (m CombineMode) Validate() error {
	switch m {
	case CombineByPosition, CombineCombinatorial:
		return nil
	default:
		return fmt.Errorf("invalid combine mode: %s", m)
	}
}

// Axis is one named parameter dimension of a run-space plan, already
// resolved to its concrete value list. Axes loaded from an external
// source carry a content fingerprint for audit; inline axes do not.
type Axis struct {
	// Name is the axis name; it becomes an ordinary context key in every
	// run the plan produces.
	Name string `json:"name"`

	// Values is the resolved value list.
	Values []interface{} `json:"values"`

	// Source describes where the values came from ("inline", a file
	// path, or a script path). Informational only; not hashed.
	Source string `json:"source,omitempty"`

	// Fingerprint is the SHA-256 hex digest of the external source
	// content, empty for inline values.
	Fingerprint string `json:"fingerprint,omitempty"`
}
