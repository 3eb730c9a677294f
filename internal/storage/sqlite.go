// Package storage keeps a history of harvest runs in sqlite. It is a ledger
// only; runs are never resumed from it.
package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// Storage handles all database operations
type Storage struct {
	db *sql.DB
}

// NewStorage opens or creates the ledger database and initializes the schema.
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db}

	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		config_name TEXT NOT NULL,
		mode TEXT NOT NULL,
		state TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		pages INTEGER DEFAULT 0,
		links_found INTEGER DEFAULT 0,
		links_unique INTEGER DEFAULT 0,
		articles_fetched INTEGER DEFAULT 0,
		articles_written INTEGER DEFAULT 0,
		articles_skipped INTEGER DEFAULT 0,
		articles_failed INTEGER DEFAULT 0,
		write_errors INTEGER DEFAULT 0,
		error TEXT DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS run_files (
		run_id TEXT NOT NULL,
		path TEXT NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
		UNIQUE(run_id, path)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_run_files_run ON run_files(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RecordRun inserts run, or replaces the counters and file list of an
// existing run with the same id.
func (s *Storage) RecordRun(run Run) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (run_id, config_name, mode, state, started_at, finished_at,
			pages, links_found, links_unique, articles_fetched, articles_written,
			articles_skipped, articles_failed, write_errors, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			state = EXCLUDED.state,
			finished_at = EXCLUDED.finished_at,
			pages = EXCLUDED.pages,
			links_found = EXCLUDED.links_found,
			links_unique = EXCLUDED.links_unique,
			articles_fetched = EXCLUDED.articles_fetched,
			articles_written = EXCLUDED.articles_written,
			articles_skipped = EXCLUDED.articles_skipped,
			articles_failed = EXCLUDED.articles_failed,
			write_errors = EXCLUDED.write_errors,
			error = EXCLUDED.error
	`, run.RunID, run.ConfigName, run.Mode, run.State, run.StartedAt.UTC(), nullTime(run),
		run.Pages, run.LinksFound, run.LinksUnique, run.ArticlesFetched, run.ArticlesWritten,
		run.ArticlesSkipped, run.ArticlesFailed, run.WriteErrors, run.Error)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	for _, path := range run.Files {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO run_files (run_id, path) VALUES (?, ?)`, run.RunID, path); err != nil {
			return fmt.Errorf("failed to record run file: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first, at most limit of them. A
// non-positive limit returns every run. File lists are not loaded.
func (s *Storage) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(`
		SELECT run_id, config_name, mode, state, started_at, finished_at,
			pages, links_found, links_unique, articles_fetched, articles_written,
			articles_skipped, articles_failed, write_errors, error
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// GetRun returns a run with its files.
func (s *Storage) GetRun(runID string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, config_name, mode, state, started_at, finished_at,
			pages, links_found, links_unique, articles_fetched, articles_written,
			articles_skipped, articles_failed, write_errors, error
		FROM runs
		WHERE run_id = ?
	`, runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT path FROM run_files WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan run file: %w", err)
		}
		run.Files = append(run.Files, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run files: %w", err)
	}

	return run, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run      Run
		finished sql.NullTime
	)
	err := row.Scan(&run.RunID, &run.ConfigName, &run.Mode, &run.State, &run.StartedAt, &finished,
		&run.Pages, &run.LinksFound, &run.LinksUnique, &run.ArticlesFetched, &run.ArticlesWritten,
		&run.ArticlesSkipped, &run.ArticlesFailed, &run.WriteErrors, &run.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	return &run, nil
}

func nullTime(run Run) sql.NullTime {
	if run.FinishedAt.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: run.FinishedAt.UTC(), Valid: true}
}
