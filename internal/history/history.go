// Package history records processed booklet jobs in a SQLite database.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	source     TEXT NOT NULL,
	output     TEXT NOT NULL,
	pages      INTEGER NOT NULL,
	sheets     INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// defaultLimit caps Recent listings when no limit is given.
const defaultLimit = 20

// Job is one processed document: which file came in, what was written
// out and how the pages were grouped.
type Job struct {
	ID        int64
	Source    string
	Output    string
	Pages     int
	Sheets    int
	CreatedAt time.Time
}

// Store manages the job history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a job and returns its id.
func (s *Store) Record(j Job) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO jobs (source, output, pages, sheets) VALUES (?, ?, ?, ?)`,
		j.Source, j.Output, j.Pages, j.Sheets,
	)
	if err != nil {
		return 0, fmt.Errorf("recording job: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns the most recently recorded jobs, newest first. A limit
// of 0 or less falls back to the default.
func (s *Store) Recent(limit int) ([]Job, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	rows, err := s.db.Query(
		`SELECT id, source, output, pages, sheets, created_at
		 FROM jobs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.ID, &j.Source, &j.Output, &j.Pages, &j.Sheets, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
