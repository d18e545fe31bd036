package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const timeLayout = time.RFC3339Nano

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// Open opens or creates a SQLite database and initializes the schema
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL allows readers such as perft-query while a harness is writing
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set busy timeout to 5 seconds
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.runMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// CreateRun creates a new run record
func (db *DB) CreateRun(run *Run) error {
	result, err := db.conn.Exec(`
		INSERT INTO runs (uuid, mode, app, framework, runtime, platform, pid, started_at, status, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.UUID, run.Mode, run.App, run.Framework, run.Runtime, run.Platform, run.PID,
		run.StartedAt.Format(timeLayout), run.Status, run.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	run.ID = id
	return nil
}

// UpdateRun updates the completion state of an existing run
func (db *DB) UpdateRun(run *Run) error {
	var completedAt *string
	if run.CompletedAt != nil {
		t := run.CompletedAt.Format(timeLayout)
		completedAt = &t
	}

	_, err := db.conn.Exec(`
		UPDATE runs
		SET completed_at = ?, status = ?, notes = ?
		WHERE id = ?`,
		completedAt, run.Status, run.Notes, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	return nil
}

const runColumns = `id, uuid, mode, app, framework, runtime, platform, pid, started_at, completed_at, status, notes`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var startedAt string
	var completedAt, app, framework, notes *string

	err := row.Scan(
		&run.ID, &run.UUID, &run.Mode, &app, &framework, &run.Runtime, &run.Platform,
		&run.PID, &startedAt, &completedAt, &run.Status, &notes,
	)
	if err != nil {
		return nil, err
	}

	run.App = deref(app)
	run.Framework = deref(framework)
	run.Notes = deref(notes)
	run.StartedAt, _ = time.Parse(timeLayout, startedAt)
	if completedAt != nil {
		t, _ := time.Parse(timeLayout, *completedAt)
		run.CompletedAt = &t
	}
	return &run, nil
}

// GetRun retrieves a run by ID
func (db *DB) GetRun(id int64) (*Run, error) {
	run, err := scanRun(db.conn.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns lists runs newest first, optionally filtered by mode ("" = all)
func (db *DB) ListRuns(mode string) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	var args []interface{}
	if mode != "" {
		query = `SELECT ` + runColumns + ` FROM runs WHERE mode = ? ORDER BY started_at DESC`
		args = append(args, mode)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// CreateCaseResult records the outcome of one test case
func (db *DB) CreateCaseResult(cr *CaseResult) error {
	result, err := db.conn.Exec(`
		INSERT INTO case_results (run_id, test_case, status, warmup_ms, started_at, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		cr.RunID, cr.TestCase, cr.Status, cr.WarmupMs, cr.StartedAt.Format(timeLayout), cr.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to create case result: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	cr.ID = id
	return nil
}

// ListCaseResults lists the case results of a run in execution order
func (db *DB) ListCaseResults(runID int64) ([]*CaseResult, error) {
	rows, err := db.conn.Query(`
		SELECT id, run_id, test_case, status, warmup_ms, started_at, error
		FROM case_results WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list case results: %w", err)
	}
	defer rows.Close()

	var results []*CaseResult
	for rows.Next() {
		var cr CaseResult
		var startedAt string
		var errText *string

		if err := rows.Scan(&cr.ID, &cr.RunID, &cr.TestCase, &cr.Status, &cr.WarmupMs, &startedAt, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan case result: %w", err)
		}

		cr.Error = deref(errText)
		cr.StartedAt, _ = time.Parse(timeLayout, startedAt)
		results = append(results, &cr)
	}

	return results, rows.Err()
}

// CreateMeasurements stores the measurements of one case in a single transaction
func (db *DB) CreateMeasurements(ms []*Measurement) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO measurements (run_id, result_id, test_case, metric, run_index, value, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range ms {
		result, err := stmt.Exec(m.RunID, m.ResultID, m.TestCase, m.Metric, m.RunIndex, m.Value, m.CreatedAt.Format(timeLayout))
		if err != nil {
			return fmt.Errorf("failed to create measurement: %w", err)
		}
		if m.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit measurements: %w", err)
	}
	return nil
}

// ListMeasurements lists the stored values of a case and metric, oldest first.
// A limit of 0 returns every row.
func (db *DB) ListMeasurements(testCase, metric string, limit int) ([]*Measurement, error) {
	query := `
		SELECT id, run_id, result_id, test_case, metric, run_index, value, created_at
		FROM measurements WHERE test_case = ? AND metric = ? ORDER BY id`
	args := []interface{}{testCase, metric}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list measurements: %w", err)
	}
	defer rows.Close()

	var ms []*Measurement
	for rows.Next() {
		var m Measurement
		var createdAt string

		err := rows.Scan(&m.ID, &m.RunID, &m.ResultID, &m.TestCase, &m.Metric, &m.RunIndex, &m.Value, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}

		m.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		ms = append(ms, &m)
	}

	return ms, rows.Err()
}

// Stats aggregates measurements per case and metric, optionally for one case ("" = all)
func (db *DB) Stats(testCase string) ([]*MetricStats, error) {
	query := `
		SELECT test_case, metric, COUNT(*), AVG(value), MIN(value), MAX(value)
		FROM measurements`
	var args []interface{}
	if testCase != "" {
		query += ` WHERE test_case = ?`
		args = append(args, testCase)
	}
	query += ` GROUP BY test_case, metric ORDER BY test_case, metric`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	defer rows.Close()

	var stats []*MetricStats
	for rows.Next() {
		var s MetricStats
		if err := rows.Scan(&s.TestCase, &s.Metric, &s.Count, &s.Mean, &s.Min, &s.Max); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		stats = append(stats, &s)
	}

	return stats, rows.Err()
}

// CreateHistoryFile records the state of a history file after an append
func (db *DB) CreateHistoryFile(hf *HistoryFile) error {
	result, err := db.conn.Exec(`
		INSERT INTO history_files (run_id, file_path, size_bytes, crc32, recorded_at)
		VALUES (?, ?, ?, ?, ?)`,
		hf.RunID, hf.FilePath, hf.SizeBytes, hf.CRC32, hf.RecordedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create history file record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	hf.ID = id
	return nil
}

// LatestHistoryFiles returns the most recent record of every history file
func (db *DB) LatestHistoryFiles() ([]*HistoryFile, error) {
	rows, err := db.conn.Query(`
		SELECT h.id, h.run_id, h.file_path, h.size_bytes, h.crc32, h.recorded_at
		FROM history_files h
		JOIN (SELECT file_path, MAX(id) AS id FROM history_files GROUP BY file_path) latest
		  ON latest.id = h.id
		ORDER BY h.file_path`)
	if err != nil {
		return nil, fmt.Errorf("failed to list history files: %w", err)
	}
	defer rows.Close()

	var files []*HistoryFile
	for rows.Next() {
		var hf HistoryFile
		var recordedAt string

		if err := rows.Scan(&hf.ID, &hf.RunID, &hf.FilePath, &hf.SizeBytes, &hf.CRC32, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history file: %w", err)
		}

		hf.RecordedAt, _ = time.Parse(timeLayout, recordedAt)
		files = append(files, &hf)
	}

	return files, rows.Err()
}

// runMigrations applies schema changes to databases created by older versions
func (db *DB) runMigrations() error {
	var notesExists bool
	err := db.conn.QueryRow(`
		SELECT COUNT(*) > 0
		FROM pragma_table_info('runs')
		WHERE name = 'notes'
	`).Scan(&notesExists)
	if err != nil {
		return fmt.Errorf("failed to check for notes column: %w", err)
	}

	if !notesExists {
		if _, err := db.conn.Exec(`ALTER TABLE runs ADD COLUMN notes TEXT`); err != nil {
			return fmt.Errorf("failed to add notes column: %w", err)
		}
	}

	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
