// Package runstore keeps a SQLite history of evaluation runs and their
// per-branch results.
package runstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/hochfrequenz/branch-eval/internal/domain"
)

// Store provides SQLite-backed run persistence
type Store struct {
	db *sql.DB
}

// New opens (and if needed creates) the database at dbPath
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// A second pooled connection would see a different in-memory database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun stores a finished run together with its records in one
// transaction. Recording the same run ID twice replaces the earlier rows.
func (s *Store) RecordRun(run *domain.Run, records []domain.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, mode, test_target, artifact_subdir, started_at, finished_at, candidates, compiled, passed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			candidates = excluded.candidates,
			compiled = excluded.compiled,
			passed = excluded.passed
	`,
		run.ID,
		string(run.Mode),
		run.TestTarget,
		run.ArtifactSubdir,
		run.StartedAt,
		run.FinishedAt,
		run.Candidates,
		run.Compiled,
		run.Passed,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM results WHERE run_id = ?`, run.ID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO results (run_id, position, branch, ident, compile, test, reached, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, rec := range records {
		_, err := stmt.Exec(run.ID, i, rec.Branch, rec.ID, rec.Compile, rec.Test, string(rec.Reached), string(rec.Failed))
		if err != nil {
			return fmt.Errorf("inserting result for %s: %w", rec.Branch, err)
		}
	}

	return tx.Commit()
}

// GetRun retrieves a run by ID
func (s *Store) GetRun(id string) (*domain.Run, error) {
	row := s.db.QueryRow(`
		SELECT id, mode, test_target, artifact_subdir, started_at, finished_at, candidates, compiled, passed
		FROM runs WHERE id = ?
	`, id)
	return scanRun(row)
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns all runs.
func (s *Store) ListRuns(limit int) ([]*domain.Run, error) {
	query := `SELECT id, mode, test_target, artifact_subdir, started_at, finished_at, candidates, compiled, passed
		FROM runs ORDER BY started_at DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetResults returns the records of a run in table order
func (s *Store) GetResults(runID string) ([]domain.Record, error) {
	rows, err := s.db.Query(`
		SELECT branch, ident, compile, test, reached, failed
		FROM results WHERE run_id = ? ORDER BY position
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// BranchHistory returns every evaluated result for branch, newest run first
func (s *Store) BranchHistory(branch string) ([]domain.Record, error) {
	rows, err := s.db.Query(`
		SELECT r.branch, r.ident, r.compile, r.test, r.reached, r.failed
		FROM results r JOIN runs ON runs.id = r.run_id
		WHERE r.branch = ? AND runs.mode = ?
		ORDER BY runs.started_at DESC
	`, branch, string(domain.ModeEvaluate))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]domain.Record, error) {
	records := []domain.Record{}
	for rows.Next() {
		var rec domain.Record
		var ident, reached, failed sql.NullString
		if err := rows.Scan(&rec.Branch, &ident, &rec.Compile, &rec.Test, &reached, &failed); err != nil {
			return nil, err
		}
		rec.ID = ident.String
		rec.Reached = domain.ParseStage(reached.String)
		rec.Failed = domain.ParseStage(failed.String)
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*domain.Run, error) {
	var run domain.Run
	var mode string
	var target, subdir sql.NullString
	var finished sql.NullTime

	err := row.Scan(&run.ID, &mode, &target, &subdir, &run.StartedAt, &finished, &run.Candidates, &run.Compiled, &run.Passed)
	if err != nil {
		return nil, err
	}

	run.Mode = domain.Mode(mode)
	run.TestTarget = target.String
	run.ArtifactSubdir = subdir.String
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	return &run, nil
}
