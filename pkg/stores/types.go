package stores

import (
	"context"
	"database/sql"
	"time"
)

// LaunchRow is one archived launch attempt.
type LaunchRow struct {
	LaunchID       string     `json:"launch_id"`
	Attempt        int        `json:"attempt"`
	PlanIdentity   string     `json:"plan_identity"`
	InputsIdentity string     `json:"inputs_identity"`
	CombineMode    string     `json:"combine_mode"`
	TotalRuns      int        `json:"total_runs"`
	Status         string     `json:"status"`
	Succeeded      int        `json:"succeeded"`
	Failed         int        `json:"failed"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// RunRow is one archived pipeline run.
type RunRow struct {
	RunID       string     `json:"run_id"`
	LaunchID    *string    `json:"launch_id,omitempty"`
	Attempt     *int       `json:"attempt,omitempty"`
	PipelineID  string     `json:"pipeline_id"`
	RunIndex    int        `json:"run_index"`
	Status      string     `json:"status"`
	Error       *string    `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RecordRow is one archived trace record: its dispatch header plus the
// full original JSON line, stored verbatim so replay round-trips.
type RecordRow struct {
	ID         int64      `json:"id"`
	RunID      string     `json:"run_id"`
	RecordType string     `json:"record_type"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
	Payload    string     `json:"payload"`
}

// Store defines the interface for the trace archive persistence layer.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	// Launch operations
	CreateLaunch(ctx context.Context, launch *LaunchRow) error
	FinishLaunch(ctx context.Context, launchID string, attempt int, status string, succeeded, failed int) error
	GetLaunch(ctx context.Context, launchID string, attempt int) (*LaunchRow, error)
	ListLaunches(ctx context.Context, limit, offset int) ([]*LaunchRow, error)

	// Run operations
	CreateRun(ctx context.Context, run *RunRow) error
	FinishRun(ctx context.Context, runID, status string, errMsg *string) error
	GetRun(ctx context.Context, runID string) (*RunRow, error)
	ListRunsByLaunch(ctx context.Context, launchID string, attempt int) ([]*RunRow, error)

	// Record operations
	AppendRecord(ctx context.Context, rec *RecordRow) error
	ListRecordsByRun(ctx context.Context, runID string) ([]*RecordRow, error)
	CountRecordsByType(ctx context.Context) (map[string]int64, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
