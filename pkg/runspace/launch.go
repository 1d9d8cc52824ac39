package runspace

import (
	"github.com/google/uuid"
)

// RunDescriptor is one concrete, self-contained unit of work produced by
// expanding a plan: its zero-based index, the per-axis values injected
// into that run's context, and the owning launch coordinates. Descriptors
// carry everything a local or remote executor needs; no coordination
// between them is required.
type RunDescriptor struct {
	// Index is the zero-based position of this run within the launch.
	Index int `json:"index"`

	// Values maps each axis name to the concrete value for this run.
	Values map[string]interface{} `json:"values"`

	// LaunchID is the owning launch identifier.
	LaunchID string `json:"launch_id"`

	// Attempt is the owning launch's attempt counter.
	Attempt int `json:"attempt"`
}

// Launch is one attempt to execute a run-space plan. The launch
// identifier is stable across retries; only the 1-based attempt counter
// moves. Trace consumers use the (LaunchID, Attempt) composite key to
// distinguish "same logical batch, nth attempt" from "a different batch".
type Launch struct {
	// ID is the launch identifier, stable across retries.
	ID string `json:"id"`

	// Attempt is the 1-based attempt counter.
	Attempt int `json:"attempt"`

	// Plan is the immutable plan this launch executes.
	Plan *Plan `json:"-"`
}

// NewLaunch creates the first attempt of a launch for the given plan.
func NewLaunch(plan *Plan) *Launch {
	return &Launch{
		ID:      uuid.New().String(),
		Attempt: 1,
		Plan:    plan,
	}
}

// Retry returns the next attempt of the same launch: identical launch id
// and plan, attempt counter incremented by exactly 1.
func (l *Launch) Retry() *Launch {
	return &Launch{
		ID:      l.ID,
		Attempt: l.Attempt + 1,
		Plan:    l.Plan,
	}
}

// Descriptors expands the plan into the ordered run descriptor sequence
// for this attempt. Expansion is a one-shot pure computation; the plan
// was already validated at construction, so no failure can occur here
// after a launch starts.
func (l *Launch) Descriptors() []RunDescriptor {
	axes := l.Plan.Axes()

	switch l.Plan.Mode() {
	case CombineByPosition:
		descriptors := make([]RunDescriptor, 0, l.Plan.TotalRuns())
		for i := 0; i < l.Plan.TotalRuns(); i++ {
			values := make(map[string]interface{}, len(axes))
			for _, axis := range axes {
				values[axis.Name] = axis.Values[i]
			}
			descriptors = append(descriptors, RunDescriptor{
				Index:    i,
				Values:   values,
				LaunchID: l.ID,
				Attempt:  l.Attempt,
			})
		}
		return descriptors

	case CombineCombinatorial:
		return l.cartesian(axes)

	default:
		// Unreachable: NewPlan rejects unknown modes.
		return nil
	}
}

// cartesian produces the full product across axes. The last axis varies
// fastest, so descriptor order is deterministic odometer order.
func (l *Launch) cartesian(axes []Axis) []RunDescriptor {
	total := l.Plan.TotalRuns()
	descriptors := make([]RunDescriptor, 0, total)

	indices := make([]int, len(axes))
	for i := 0; i < total; i++ {
		values := make(map[string]interface{}, len(axes))
		for a, axis := range axes {
			values[axis.Name] = axis.Values[indices[a]]
		}
		descriptors = append(descriptors, RunDescriptor{
			Index:    i,
			Values:   values,
			LaunchID: l.ID,
			Attempt:  l.Attempt,
		})

		for a := len(axes) - 1; a >= 0; a-- {
			indices[a]++
			if indices[a] < len(axes[a].Values) {
				break
			}
			indices[a] = 0
		}
	}

	return descriptors
}
