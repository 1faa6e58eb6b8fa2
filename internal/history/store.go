package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"vigil/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; users delete the history database to adopt the new schema.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Record describes one task execution as seen by the supervisor.
type Record struct {
	RunID      string
	TaskID     string
	Outcome    string
	Value      string
	Error      string
	Skipped    bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store manages the run journal backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database at the configured
// path.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := strings.TrimSpace(cfg.History.Path)
	if dbPath == "" {
		return nil, errors.New("history path not configured")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path reports where the journal lives on disk.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to recreate)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// RecordRun inserts one execution record. A missing run ID is filled in.
func (s *Store) RecordRun(ctx context.Context, rec Record) error {
	if strings.TrimSpace(rec.TaskID) == "" {
		return errors.New("record task id required")
	}
	if rec.RunID == "" {
		rec.RunID = uuid.NewString()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = rec.StartedAt
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO task_runs (
            run_id, task_id, outcome, value, error, skipped, started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.TaskID,
		rec.Outcome,
		nullableString(rec.Value),
		nullableString(rec.Error),
		boolToInt(rec.Skipped),
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecentRuns returns the newest runs across all tasks, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM task_runs ORDER BY started_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// TaskRuns returns the newest runs for a single task, newest first.
func (s *Store) TaskRuns(ctx context.Context, taskID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM task_runs WHERE task_id = ? ORDER BY started_at DESC, run_id LIMIT ?`,
		taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("query task runs: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// LatestByTask returns the newest run per task, keyed by task ID.
func (s *Store) LatestByTask(ctx context.Context) (map[string]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM (
            SELECT `+runColumns+`,
                ROW_NUMBER() OVER (PARTITION BY task_id ORDER BY started_at DESC, run_id) AS rn
            FROM task_runs
        ) WHERE rn = 1`)
	if err != nil {
		return nil, fmt.Errorf("query latest runs: %w", err)
	}
	defer rows.Close()

	records, err := collectRecords(rows)
	if err != nil {
		return nil, err
	}
	latest := make(map[string]Record, len(records))
	for _, rec := range records {
		latest[rec.TaskID] = rec
	}
	return latest, nil
}

// Prune deletes everything but the newest keepRuns rows. A non-positive
// keepRuns leaves the journal untouched.
func (s *Store) Prune(ctx context.Context, keepRuns int) (int64, error) {
	if keepRuns <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM task_runs WHERE run_id NOT IN (
            SELECT run_id FROM task_runs ORDER BY started_at DESC, run_id LIMIT ?
        )`, keepRuns)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

const runColumns = "run_id, task_id, outcome, value, error, skipped, started_at, finished_at"

func collectRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		rec         Record
		value       sql.NullString
		errText     sql.NullString
		skipped     sql.NullInt64
		startedRaw  string
		finishedRaw string
	)
	if err := scanner.Scan(
		&rec.RunID,
		&rec.TaskID,
		&rec.Outcome,
		&value,
		&errText,
		&skipped,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return Record{}, fmt.Errorf("scan run: %w", err)
	}
	rec.Value = value.String
	rec.Error = errText.String
	if skipped.Valid {
		rec.Skipped = skipped.Int64 != 0
	}
	if started, err := time.Parse(time.RFC3339Nano, startedRaw); err == nil {
		rec.StartedAt = started
	}
	if finished, err := time.Parse(time.RFC3339Nano, finishedRaw); err == nil {
		rec.FinishedAt = finished
	}
	return rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
