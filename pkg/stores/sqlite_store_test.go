package stores

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/weftline/weft/pkg/trace"
)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestLaunchCRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	launch := &LaunchRow{
		LaunchID:       "launch-1",
		Attempt:        1,
		PlanIdentity:   "abc123",
		InputsIdentity: "def456",
		CombineMode:    "by_position",
		TotalRuns:      3,
		Status:         "running",
		StartedAt:      time.Now(),
	}

	if err := store.CreateLaunch(ctx, launch); err != nil {
		t.Fatalf("failed to create launch: %v", err)
	}

	got, err := store.GetLaunch(ctx, "launch-1", 1)
	if err != nil {
		t.Fatalf("failed to get launch: %v", err)
	}
	if got.PlanIdentity != "abc123" || got.TotalRuns != 3 {
		t.Errorf("unexpected launch row: %+v", got)
	}

	if err := store.FinishLaunch(ctx, "launch-1", 1, "partial", 2, 1); err != nil {
		t.Fatalf("failed to finish launch: %v", err)
	}

	got, err = store.GetLaunch(ctx, "launch-1", 1)
	if err != nil {
		t.Fatalf("failed to get launch: %v", err)
	}
	if got.Status != "partial" || got.Succeeded != 2 || got.Failed != 1 {
		t.Errorf("unexpected terminal launch row: %+v", got)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
}

func TestRetryIsSeparateLaunchRow(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for attempt := 1; attempt <= 2; attempt++ {
		err := store.CreateLaunch(ctx, &LaunchRow{
			LaunchID:     "launch-1",
			Attempt:      attempt,
			PlanIdentity: "abc123",
			CombineMode:  "combinatorial",
			TotalRuns:    4,
			Status:       "running",
			StartedAt:    time.Now(),
		})
		if err != nil {
			t.Fatalf("failed to create attempt %d: %v", attempt, err)
		}
	}

	launches, err := store.ListLaunches(ctx, 10, 0)
	if err != nil {
		t.Fatalf("failed to list launches: %v", err)
	}
	if len(launches) != 2 {
		t.Errorf("expected 2 launch rows, got %d", len(launches))
	}
}

func TestRunCRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	launchID := "launch-1"
	attempt := 1
	err := store.CreateLaunch(ctx, &LaunchRow{
		LaunchID:     launchID,
		Attempt:      attempt,
		PlanIdentity: "abc",
		CombineMode:  "by_position",
		TotalRuns:    2,
		Status:       "running",
		StartedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to create launch: %v", err)
	}

	for i, runID := range []string{"run-a", "run-b"} {
		err := store.CreateRun(ctx, &RunRow{
			RunID:      runID,
			LaunchID:   &launchID,
			Attempt:    &attempt,
			PipelineID: "plid-deadbeef",
			RunIndex:   i,
			Status:     "running",
			StartedAt:  time.Now(),
		})
		if err != nil {
			t.Fatalf("failed to create run %s: %v", runID, err)
		}
	}

	errMsg := "processor exploded"
	if err := store.FinishRun(ctx, "run-b", "failed", &errMsg); err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}
	if err := store.FinishRun(ctx, "run-a", "succeeded", nil); err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}

	runs, err := store.ListRunsByLaunch(ctx, launchID, attempt)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	// Ordered by run index, not completion order.
	if runs[0].RunID != "run-a" || runs[1].RunID != "run-b" {
		t.Errorf("runs out of order: %s, %s", runs[0].RunID, runs[1].RunID)
	}
	if runs[1].Error == nil || *runs[1].Error != errMsg {
		t.Errorf("expected error message on failed run, got %v", runs[1].Error)
	}

	if err := store.FinishRun(ctx, "run-missing", "failed", nil); err == nil {
		t.Error("expected error finishing unknown run")
	}
}

func TestRecordAppendAndCount(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	now := time.Now()
	records := []*RecordRow{
		{RunID: "run-a", RecordType: "run_start", Timestamp: &now, Payload: `{"record_type":"run_start"}`},
		{RunID: "run-a", RecordType: "node_execution", Timestamp: &now, Payload: `{"record_type":"node_execution"}`},
		{RunID: "run-a", RecordType: "run_end", Timestamp: &now, Payload: `{"record_type":"run_end"}`},
	}
	for _, rec := range records {
		if err := store.AppendRecord(ctx, rec); err != nil {
			t.Fatalf("failed to append record: %v", err)
		}
		if rec.ID == 0 {
			t.Error("expected auto-assigned record ID")
		}
	}

	listed, err := store.ListRecordsByRun(ctx, "run-a")
	if err != nil {
		t.Fatalf("failed to list records: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 records, got %d", len(listed))
	}
	if listed[0].RecordType != "run_start" || listed[2].RecordType != "run_end" {
		t.Error("records not in append order")
	}

	counts, err := store.CountRecordsByType(ctx)
	if err != nil {
		t.Fatalf("failed to count records: %v", err)
	}
	if counts["node_execution"] != 1 || counts["run_start"] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestArchiveStream_ImportsValidatedLines(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	registry := trace.NewSchemaRegistry()

	pipelineID := "plid-" +
		"0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

	stream := `{"record_type":"run_start","schema_version":1,"run_id":"r1","pipeline_id":"` + pipelineID + `","run_index":0}
{"record_type":"run_end","schema_version":1,"run_id":"r1","status":"succeeded"}
`
	path := filepath.Join(t.TempDir(), "stream.jsonl")
	if err := os.WriteFile(path, []byte(stream), 0o644); err != nil {
		t.Fatalf("failed to write stream: %v", err)
	}

	imported, err := store.ArchiveStream(ctx, path, registry)
	if err != nil {
		t.Fatalf("failed to archive stream: %v", err)
	}
	if imported != 2 {
		t.Errorf("expected 2 imported records, got %d", imported)
	}

	listed, err := store.ListRecordsByRun(ctx, "r1")
	if err != nil {
		t.Fatalf("failed to list records: %v", err)
	}
	if len(listed) != 2 {
		t.Errorf("expected 2 archived records, got %d", len(listed))
	}
}

func TestArchiveStream_InvalidLineRollsBack(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	registry := trace.NewSchemaRegistry()

	stream := `{"record_type":"run_end","schema_version":1,"run_id":"r1","status":"succeeded"}
{"record_type":"run_end","schema_version":1,"status":"succeeded"}
`
	path := filepath.Join(t.TempDir(), "stream.jsonl")
	if err := os.WriteFile(path, []byte(stream), 0o644); err != nil {
		t.Fatalf("failed to write stream: %v", err)
	}

	if _, err := store.ArchiveStream(ctx, path, registry); err == nil {
		t.Fatal("expected archive to fail on invalid line")
	}

	// The valid first line must not have been committed.
	listed, err := store.ListRecordsByRun(ctx, "r1")
	if err != nil {
		t.Fatalf("failed to list records: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("expected rollback, found %d records", len(listed))
	}
}

func TestConnectionPoolConfig(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path:            ":memory:",
		MaxOpenConns:    3,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if got := store.db.Stats().MaxOpenConnections; got != 3 {
		t.Errorf("expected 3 max open connections, got %d", got)
	}
}

func TestConnectionPoolDefaults(t *testing.T) {
	store, err := NewSQLiteStore(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if store.cfg.MaxOpenConns != 25 {
		t.Errorf("expected default 25 max open conns, got %d", store.cfg.MaxOpenConns)
	}
	if store.cfg.MaxIdleConns != 5 {
		t.Errorf("expected default 5 max idle conns, got %d", store.cfg.MaxIdleConns)
	}
	if store.cfg.ConnMaxLifetime != 5*time.Minute {
		t.Errorf("expected default 5m conn lifetime, got %v", store.cfg.ConnMaxLifetime)
	}
}
