package engine

import (
	"encoding/json"
	"fmt"
)

// RunStatus represents the status of one pipeline run.
type RunStatus string

const (
	// RunStatusPending indicates the run is planned but not yet started.
	RunStatusPending RunStatus = "pending"

	// RunStatusRunning indicates the run is currently executing.
	RunStatusRunning RunStatus = "running"

	// RunStatusSucceeded indicates the run completed successfully.
	RunStatusSucceeded RunStatus = "succeeded"

	// RunStatusFailed indicates the run failed with errors.
	RunStatusFailed RunStatus = "failed"

	// RunStatusAborted indicates the run was cancelled before completion.
	RunStatusAborted RunStatus = "aborted"
)

// IsTerminal returns true if the run status represents a final state.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed || s == RunStatusAborted
}

// IsActive returns true if the run is currently active.
func (s RunStatus) IsActive() bool {
	return s == RunStatusPending || s == RunStatusRunning
}

// Validate checks if the run status is valid.
func (s RunStatus) Validate() error {
	switch s {
	case RunStatusPending, RunStatusRunning, RunStatusSucceeded,
		RunStatusFailed, RunStatusAborted:
		return nil
	default:
		return fmt.Errorf("invalid run status: %s", s)
	}
}

// MarshalJSON implements custom JSON marshaling for type-safe enum serialization.
func (s RunStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements custom JSON unmarshaling with validation.
func (s *RunStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = RunStatus(str)
	return s.Validate()
}

// NodeStatus represents the status of one node execution within a run.
type NodeStatus string

const (
	// NodeStatusPending indicates the node is waiting to execute.
	NodeStatusPending NodeStatus = "pending"

	// NodeStatusRunning indicates the node is currently executing.
	NodeStatusRunning NodeStatus = "running"

	// NodeStatusSucceeded indicates the node completed successfully.
	NodeStatusSucceeded NodeStatus = "succeeded"

	// NodeStatusFailed indicates the node failed.
	NodeStatusFailed NodeStatus = "failed"

	// NodeStatusSkipped indicates the node was skipped because an earlier
	// node failed or the run was aborted.
	NodeStatusSkipped NodeStatus = "skipped"
)

// IsTerminal returns true if the node status represents a final state.
func (s NodeStatus) IsTerminal() bool {
	return s == NodeStatusSucceeded || s == NodeStatusFailed || s == NodeStatusSkipped
}

// Validate checks if the node status is valid.
func (s NodeStatus) Validate() error {
	switch s {
	case NodeStatusPending, NodeStatusRunning, NodeStatusSucceeded,
		NodeStatusFailed, NodeStatusSkipped:
		return nil
	default:
		return fmt.Errorf("invalid node status: %s", s)
	}
}

// LaunchStatus represents the terminal status of a launch attempt.
type LaunchStatus string

const (
	// LaunchStatusRunning indicates the launch is still executing runs.
	LaunchStatusRunning LaunchStatus = "running"

	// LaunchStatusSucceeded indicates every run in the launch succeeded.
	LaunchStatusSucceeded LaunchStatus = "succeeded"

	// LaunchStatusFailed indicates every run in the launch failed.
	LaunchStatusFailed LaunchStatus = "failed"

	// LaunchStatusPartial indicates some runs succeeded and some failed.
	LaunchStatusPartial LaunchStatus = "partial"

	// LaunchStatusAborted indicates the launch was cancelled before every
	// run reached a terminal state.
	LaunchStatusAborted LaunchStatus = "aborted"
)

// IsTerminal returns true if the launch status represents a final state.
func (s LaunchStatus) IsTerminal() bool {
	return s == LaunchStatusSucceeded || s == LaunchStatusFailed ||
		s == LaunchStatusPartial || s == LaunchStatusAborted
}

// Validate checks if the launch status is valid.
func (s LaunchStatus) Validate() error {
	switch s {
	case LaunchStatusRunning, LaunchStatusSucceeded, LaunchStatusFailed,
		LaunchStatusPartial, LaunchStatusAborted:
		return nil
	default:
		return fmt.Errorf("invalid launch status: %s", s)
	}
}
