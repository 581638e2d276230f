package ingest

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Store wraps an SQLite database recording ingestion runs. One row per run,
// one row per file visited in that run.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the SQLite ledger at path and runs migrations.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS runs (
    id               TEXT PRIMARY KEY,
    source_dir       TEXT NOT NULL,
    started_at       TEXT NOT NULL,
    finished_at      TEXT,
    files_total      INTEGER NOT NULL DEFAULT 0,
    files_processed  INTEGER NOT NULL DEFAULT 0,
    files_skipped    INTEGER NOT NULL DEFAULT 0,
    files_failed     INTEGER NOT NULL DEFAULT 0,
    documents_total  INTEGER NOT NULL DEFAULT 0,
    aborted          INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_files (
    run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    path          TEXT NOT NULL,
    name          TEXT NOT NULL,
    outcome       TEXT NOT NULL,
    documents     INTEGER NOT NULL DEFAULT 0,
    summary_path  TEXT DEFAULT '',
    error         TEXT DEFAULT '',
    processed_at  TEXT NOT NULL,
    PRIMARY KEY (run_id, path)
);

CREATE INDEX IF NOT EXISTS idx_run_files_outcome ON run_files(outcome);
`
	_, err := s.db.Exec(ddl)
	return err
}

// RunRecord is one row of the runs table.
type RunRecord struct {
	ID             string `json:"id"`
	SourceDir      string `json:"source_dir"`
	StartedAt      string `json:"started_at"`
	FinishedAt     string `json:"finished_at,omitempty"`
	FilesTotal     int    `json:"files_total"`
	FilesProcessed int    `json:"files_processed"`
	FilesSkipped   int    `json:"files_skipped"`
	FilesFailed    int    `json:"files_failed"`
	DocumentsTotal int    `json:"documents_total"`
	Aborted        bool   `json:"aborted"`
}

// RunFileRecord is one row of the run_files table.
type RunFileRecord struct {
	RunID       string `json:"run_id"`
	Path        string `json:"path"`
	Name        string `json:"name"`
	Outcome     string `json:"outcome"`
	Documents   int    `json:"documents"`
	SummaryPath string `json:"summary_path,omitempty"`
	Error       string `json:"error,omitempty"`
	ProcessedAt string `json:"processed_at"`
}

// BeginRun inserts a new run row.
func (s *Store) BeginRun(id, sourceDir string, filesTotal int) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (id, source_dir, started_at, files_total) VALUES (?, ?, ?, ?)`,
		id, sourceDir, time.Now().UTC().Format(time.RFC3339), filesTotal,
	)
	return err
}

// FinishRun records the final counters for a run.
func (s *Store) FinishRun(id string, processed, skipped, failed, documents int, aborted bool) error {
	abortedInt := 0
	if aborted {
		abortedInt = 1
	}
	_, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, files_processed = ?, files_skipped = ?,
		 files_failed = ?, documents_total = ?, aborted = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), processed, skipped, failed, documents, abortedInt, id,
	)
	return err
}

// RecordFile inserts the outcome of one visited file.
func (s *Store) RecordFile(rf *RunFileRecord) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO run_files (run_id, path, name, outcome, documents, summary_path, error, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rf.RunID, rf.Path, rf.Name, rf.Outcome, rf.Documents, rf.SummaryPath, rf.Error,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, source_dir, started_at, COALESCE(finished_at, ''), files_total,
		 files_processed, files_skipped, files_failed, documents_total, aborted
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var aborted int
		if err := rows.Scan(&r.ID, &r.SourceDir, &r.StartedAt, &r.FinishedAt, &r.FilesTotal,
			&r.FilesProcessed, &r.FilesSkipped, &r.FilesFailed, &r.DocumentsTotal, &aborted); err != nil {
			return nil, err
		}
		r.Aborted = aborted != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns a run by ID. Returns nil, nil if not found.
func (s *Store) GetRun(id string) (*RunRecord, error) {
	r := &RunRecord{}
	var aborted int
	err := s.db.QueryRow(
		`SELECT id, source_dir, started_at, COALESCE(finished_at, ''), files_total,
		 files_processed, files_skipped, files_failed, documents_total, aborted
		 FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.SourceDir, &r.StartedAt, &r.FinishedAt, &r.FilesTotal,
		&r.FilesProcessed, &r.FilesSkipped, &r.FilesFailed, &r.DocumentsTotal, &aborted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Aborted = aborted != 0
	return r, nil
}

// ListRunFiles returns the per-file outcomes of one run.
func (s *Store) ListRunFiles(runID string) ([]RunFileRecord, error) {
	rows, err := s.db.Query(
		`SELECT run_id, path, name, outcome, documents, summary_path, error, processed_at
		 FROM run_files WHERE run_id = ? ORDER BY path`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []RunFileRecord
	for rows.Next() {
		var rf RunFileRecord
		if err := rows.Scan(&rf.RunID, &rf.Path, &rf.Name, &rf.Outcome, &rf.Documents,
			&rf.SummaryPath, &rf.Error, &rf.ProcessedAt); err != nil {
			return nil, err
		}
		files = append(files, rf)
	}
	return files, rows.Err()
}
