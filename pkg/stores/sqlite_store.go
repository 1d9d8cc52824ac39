package stores

import (
	"bufio"
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/weftline/weft/pkg/trace"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		cfg: cfg,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Foreign keys are a connection-level setting.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
}

// CommitTx commits a transaction
func (s *SQLiteStore) CommitTx(tx *sql.Tx) error {
	return tx.Commit()
}

// RollbackTx rolls back a transaction
func (s *SQLiteStore) RollbackTx(tx *sql.Tx) error {
	return tx.Rollback()
}

// CreateLaunch creates a new launch row
func (s *SQLiteStore) CreateLaunch(ctx context.Context, launch *LaunchRow) error {
	query := `
		INSERT INTO launches (launch_id, attempt, plan_identity, inputs_identity, combine_mode, total_runs, status, succeeded, failed, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		launch.LaunchID,
		launch.Attempt,
		launch.PlanIdentity,
		launch.InputsIdentity,
		launch.CombineMode,
		launch.TotalRuns,
		launch.Status,
		launch.Succeeded,
		launch.Failed,
		launch.StartedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create launch: %w", err)
	}

	return nil
}

// FinishLaunch records the terminal status and final counts of a launch
func (s *SQLiteStore) FinishLaunch(ctx context.Context, launchID string, attempt int, status string, succeeded, failed int) error {
	query := `
		UPDATE launches
		SET status = ?, succeeded = ?, failed = ?, completed_at = ?
		WHERE launch_id = ? AND attempt = ?
	`

	now := time.Now()
	result, err := s.db.ExecContext(ctx, query, status, succeeded, failed, now, launchID, attempt)
	if err != nil {
		return fmt.Errorf("failed to finish launch: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("launch not found: %s attempt %d", launchID, attempt)
	}

	return nil
}

// GetLaunch retrieves one launch attempt
func (s *SQLiteStore) GetLaunch(ctx context.Context, launchID string, attempt int) (*LaunchRow, error) {
	query := `
		SELECT launch_id, attempt, plan_identity, inputs_identity, combine_mode, total_runs, status, succeeded, failed, started_at, completed_at
		FROM launches
		WHERE launch_id = ? AND attempt = ?
	`

	launch := &LaunchRow{}
	err := s.db.QueryRowContext(ctx, query, launchID, attempt).Scan(
		&launch.LaunchID,
		&launch.Attempt,
		&launch.PlanIdentity,
		&launch.InputsIdentity,
		&launch.CombineMode,
		&launch.TotalRuns,
		&launch.Status,
		&launch.Succeeded,
		&launch.Failed,
		&launch.StartedAt,
		&launch.CompletedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("launch not found: %s attempt %d", launchID, attempt)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get launch: %w", err)
	}

	return launch, nil
}

// ListLaunches lists launches with pagination, most recent first
func (s *SQLiteStore) ListLaunches(ctx context.Context, limit, offset int) ([]*LaunchRow, error) {
	query := `
		SELECT launch_id, attempt, plan_identity, inputs_identity, combine_mode, total_runs, status, succeeded, failed, started_at, completed_at
		FROM launches
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list launches: %w", err)
	}
	defer rows.Close()

	launches := []*LaunchRow{}
	for rows.Next() {
		launch := &LaunchRow{}
		err := rows.Scan(
			&launch.LaunchID,
			&launch.Attempt,
			&launch.PlanIdentity,
			&launch.InputsIdentity,
			&launch.CombineMode,
			&launch.TotalRuns,
			&launch.Status,
			&launch.Succeeded,
			&launch.Failed,
			&launch.StartedAt,
			&launch.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan launch: %w", err)
		}
		launches = append(launches, launch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating launches: %w", err)
	}

	return launches, nil
}

// CreateRun creates a new run row
func (s *SQLiteStore) CreateRun(ctx context.Context, run *RunRow) error {
	query := `
		INSERT INTO runs (run_id, launch_id, attempt, pipeline_id, run_index, status, error, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.RunID,
		run.LaunchID,
		run.Attempt,
		run.PipelineID,
		run.RunIndex,
		run.Status,
		run.Error,
		run.StartedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// FinishRun records the terminal status of a run
func (s *SQLiteStore) FinishRun(ctx context.Context, runID, status string, errMsg *string) error {
	query := `
		UPDATE runs
		SET status = ?, error = ?, completed_at = ?
		WHERE run_id = ?
	`

	now := time.Now()
	result, err := s.db.ExecContext(ctx, query, status, errMsg, now, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}

	return nil
}

// GetRun retrieves a run by ID
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*RunRow, error) {
	query := `
		SELECT run_id, launch_id, attempt, pipeline_id, run_index, status, error, started_at, completed_at
		FROM runs
		WHERE run_id = ?
	`

	run := &RunRow{}
	err := s.db.QueryRowContext(ctx, query, runID).Scan(
		&run.RunID,
		&run.LaunchID,
		&run.Attempt,
		&run.PipelineID,
		&run.RunIndex,
		&run.Status,
		&run.Error,
		&run.StartedAt,
		&run.CompletedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// ListRunsByLaunch lists all runs of one launch attempt in run-space order
func (s *SQLiteStore) ListRunsByLaunch(ctx context.Context, launchID string, attempt int) ([]*RunRow, error) {
	query := `
		SELECT run_id, launch_id, attempt, pipeline_id, run_index, status, error, started_at, completed_at
		FROM runs
		WHERE launch_id = ? AND attempt = ?
		ORDER BY run_index ASC
	`

	rows, err := s.db.QueryContext(ctx, query, launchID, attempt)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*RunRow{}
	for rows.Next() {
		run := &RunRow{}
		err := rows.Scan(
			&run.RunID,
			&run.LaunchID,
			&run.Attempt,
			&run.PipelineID,
			&run.RunIndex,
			&run.Status,
			&run.Error,
			&run.StartedAt,
			&run.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// AppendRecord appends one archived trace record
func (s *SQLiteStore) AppendRecord(ctx context.Context, rec *RecordRow) error {
	query := `
		INSERT INTO records (run_id, record_type, timestamp, payload)
		VALUES (?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		rec.RunID,
		rec.RecordType,
		rec.Timestamp,
		rec.Payload,
	)

	if err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get record ID: %w", err)
	}

	rec.ID = id
	return nil
}

// ListRecordsByRun lists the archived records of one run in append order
func (s *SQLiteStore) ListRecordsByRun(ctx context.Context, runID string) ([]*RecordRow, error) {
	query := `
		SELECT id, run_id, record_type, timestamp, payload
		FROM records
		WHERE run_id = ?
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records := []*RecordRow{}
	for rows.Next() {
		rec := &RecordRow{}
		err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.RecordType,
			&rec.Timestamp,
			&rec.Payload,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

// CountRecordsByType returns the archived record count per record type
func (s *SQLiteStore) CountRecordsByType(ctx context.Context) (map[string]int64, error) {
	query := `
		SELECT record_type, COUNT(*)
		FROM records
		GROUP BY record_type
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var recordType string
		var count int64
		if err := rows.Scan(&recordType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[recordType] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating counts: %w", err)
	}

	return counts, nil
}

// ArchiveStream imports a JSONL trace stream into the record archive.
// Every line is validated against the registry before insertion; the
// first invalid line aborts the import and rolls the batch back.
func (s *SQLiteStore) ArchiveStream(ctx context.Context, path string, registry *trace.SchemaRegistry) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open trace stream: %w", err)
	}
	defer f.Close()

	tx, err := s.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin archive transaction: %w", err)
	}

	imported := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		if err := registry.ValidateBytes(line); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("line %d failed validation: %w", imported+1, err)
		}

		var header struct {
			RecordType string `json:"record_type"`
			RunID      string `json:"run_id"`
			Timestamp  string `json:"timestamp"`
		}
		if err := json.Unmarshal(line, &header); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("line %d not parseable: %w", imported+1, err)
		}

		var ts *time.Time
		if header.Timestamp != "" {
			if parsed, err := time.Parse(time.RFC3339Nano, header.Timestamp); err == nil {
				ts = &parsed
			}
		}

		query := `INSERT INTO records (run_id, record_type, timestamp, payload) VALUES (?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, query, header.RunID, header.RecordType, ts, string(line)); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("failed to insert record: %w", err)
		}
		imported++
	}

	if err := scanner.Err(); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to read trace stream: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit archive: %w", err)
	}

	return imported, nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}
