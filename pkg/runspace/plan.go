package runspace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/weftline/weft/pkg/errdefs"
	"github.com/weftline/weft/pkg/graph"
)

// Plan is an immutable run-space expansion specification: named axes, a
// combination mode, and an optional run-count ceiling. Both identities
// are computed once at construction and never change across launch
// attempts.
type Plan struct {
	axes    []Axis
	mode    CombineMode
	maxRuns int

	planIdentity   string
	inputsIdentity string
	totalRuns      int
}

// NewPlan validates the expansion specification and computes its
// identities. Every structural problem (unknown mode, duplicate or empty
// axes, by_position length mismatch, run-count ceiling exceeded) fails
// here, before any run descriptor is materialized.
func NewPlan(axes []Axis, mode CombineMode, maxRuns int) (*Plan, error) {
	if err := mode.Validate(); err != nil {
		return nil, errdefs.NewValidationError("invalid run-space combine mode", err)
	}

	if len(axes) == 0 {
		return nil, errdefs.NewValidationError("run-space plan has no axes", nil)
	}

	seen := make(map[string]bool, len(axes))
	for _, axis := range axes {
		if axis.Name == "" {
			return nil, errdefs.NewValidationError("run-space axis has no name", nil)
		}
		if seen[axis.Name] {
			return nil, errdefs.NewValidationError("duplicate run-space axis", nil).
				WithAxis(axis.Name)
		}
		seen[axis.Name] = true

		if len(axis.Values) == 0 {
			return nil, errdefs.NewValidationError("run-space axis has no values", nil).
				WithAxis(axis.Name)
		}
	}

	total, err := totalRuns(axes, mode)
	if err != nil {
		return nil, err
	}

	if maxRuns > 0 && total > maxRuns {
		return nil, errdefs.NewValidationError(
			fmt.Sprintf("plan would produce %d runs, exceeding the configured ceiling of %d", total, maxRuns), nil).
			WithCode(errdefs.ErrCodeRunLimitExceeded).
			WithDetail("total_runs", total).
			WithDetail("max_runs", maxRuns)
	}

	planID, err := planIdentity(axes, mode)
	if err != nil {
		return nil, err
	}
	inputsID, err := inputsIdentity(axes)
	if err != nil {
		return nil, err
	}

	copied := make([]Axis, len(axes))
	copy(copied, axes)

	return &Plan{
		axes:           copied,
		mode:           mode,
		maxRuns:        maxRuns,
		planIdentity:   planID,
		inputsIdentity: inputsID,
		totalRuns:      total,
	}, nil
}

// Axes returns the plan's axes in declaration order.
func (p *Plan) Axes() []Axis {
	return p.axes
}

// Mode returns the combination mode.
func (p *Plan) Mode() CombineMode {
	return p.mode
}

// MaxRuns returns the configured run-count ceiling, 0 when unbounded.
func (p *Plan) MaxRuns() int {
	return p.maxRuns
}

// TotalRuns returns the number of runs this plan expands to.
func (p *Plan) TotalRuns() int {
	return p.totalRuns
}

// PlanIdentity is the stable hash of the canonical encoding of
// {axes (values + fingerprints), mode}. Unaffected by launch attempts.
func (p *Plan) PlanIdentity() string {
	return p.planIdentity
}

// InputsIdentity is the stable hash of the canonical encoding of all
// external source fingerprints alone. Empty-input plans still hash to a
// fixed value so the field is always present for correlation.
func (p *Plan) InputsIdentity() string {
	return p.inputsIdentity
}

// totalRuns computes the run count for the mode, validating by_position
// length agreement before anything executes.
func totalRuns(axes []Axis, mode CombineMode) (int, error) {
	switch mode {
	case CombineByPosition:
		length := len(axes[0].Values)
		for _, axis := range axes[1:] {
			if len(axis.Values) != length {
				return 0, errdefs.NewValidationError(
					fmt.Sprintf("by_position requires equal axis lengths: axis %q has %d values, axis %q has %d",
						axes[0].Name, length, axis.Name, len(axis.Values)), nil).
					WithCode(errdefs.ErrCodeAxisMismatch).
					WithAxis(axis.Name)
			}
		}
		return length, nil

	case CombineCombinatorial:
		total := 1
		for _, axis := range axes {
			total *= len(axis.Values)
		}
		return total, nil

	default:
		return 0, errdefs.NewValidationError(fmt.Sprintf("invalid combine mode: %s", mode), nil)
	}
}

// planHashShape is the exact shape hashed into a plan identity.
type planHashShape struct {
	Axes []axisHashShape `json:"axes"`
	Mode string          `json:"mode"`
}

type axisHashShape struct {
	Name        string        `json:"name"`
	Values      []interface{} `json:"values"`
	Fingerprint string        `json:"fingerprint,omitempty"`
}

func planIdentity(axes []Axis, mode CombineMode) (string, error) {
	shape := planHashShape{Mode: string(mode)}
	for _, axis := range axes {
		shape.Axes = append(shape.Axes, axisHashShape{
			Name:        axis.Name,
			Values:      axis.Values,
			Fingerprint: axis.Fingerprint,
		})
	}

	enc, err := graph.CanonicalJSON(shape)
	if err != nil {
		return "", errdefs.NewValidationError("plan identity encoding failed", err)
	}
	sum := sha256.Sum256(enc)
	return hex.EncodeToString(sum[:]), nil
}

func inputsIdentity(axes []Axis) (string, error) {
	fingerprints := make(map[string]interface{})
	for _, axis := range axes {
		if axis.Fingerprint != "" {
			fingerprints[axis.Name] = axis.Fingerprint
		}
	}

	enc, err := graph.CanonicalJSON(fingerprints)
	if err != nil {
		return "", errdefs.NewValidationError("inputs identity encoding failed", err)
	}
	sum := sha256.Sum256(enc)
	return hex.EncodeToString(sum[:]), nil
}
