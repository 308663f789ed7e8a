// Package history keeps a record of backup and post-backup action runs in a
// SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run kinds.
const (
	KindBackup = "backup"
	KindAction = "action"
)

// DefaultLimit caps List when no limit is given.
const DefaultLimit = 50

// ErrClosed is returned after Close.
var ErrClosed = errors.New("history store closed")

// Run is one recorded execution.
type Run struct {
	ID       string
	Job      string
	Kind     string
	Started  time.Time
	Finished time.Time
	Outcome  string
	ExitCode int
	Message  string
	Output   string
}

// Recorder stores runs. The scheduler records through it.
type Recorder interface {
	Record(ctx context.Context, r Run) (string, error)
}

// Store is a Recorder backed by SQLite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id        TEXT PRIMARY KEY,
    job       TEXT NOT NULL,
    kind      TEXT NOT NULL,
    started   INTEGER NOT NULL,
    finished  INTEGER NOT NULL,
    outcome   TEXT NOT NULL,
    exit_code INTEGER NOT NULL,
    message   TEXT NOT NULL DEFAULT '',
    output    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS runs_job_started ON runs (job, started DESC);
`

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Record inserts r, assigning a new ID when r.ID is empty, and returns the ID.
func (s *Store) Record(ctx context.Context, r Run) (string, error) {
	if s.db == nil {
		return "", ErrClosed
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO runs (id, job, kind, started, finished, outcome, exit_code, message, output)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, r.ID, r.Job, r.Kind, r.Started.UnixNano(), r.Finished.UnixNano(), r.Outcome, r.ExitCode, r.Message, r.Output)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return r.ID, nil
}

// List returns the most recent runs, newest first, optionally restricted to
// one job. A limit of zero or less means DefaultLimit.
func (s *Store) List(ctx context.Context, job string, limit int) ([]Run, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT id, job, kind, started, finished, outcome, exit_code, message, output
        FROM runs
        WHERE (? = '' OR job = ?)
        ORDER BY started DESC, rowid DESC
        LIMIT ?
    `, job, job, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished int64
		)
		if err := rows.Scan(&r.ID, &r.Job, &r.Kind, &started, &finished, &r.Outcome, &r.ExitCode, &r.Message, &r.Output); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Started = time.Unix(0, started).UTC()
		r.Finished = time.Unix(0, finished).UTC()
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

var _ Recorder = (*Store)(nil)
