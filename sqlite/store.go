// Package sqlite archives queue runs in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/olivere/jobqueue/v2/history"
	"github.com/olivere/jobqueue/v2/internal/sqlstore"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS jobqueue_runs (
id TEXT PRIMARY KEY,
started INTEGER NOT NULL,
finished INTEGER NOT NULL,
seconds REAL NOT NULL,
concurrency INTEGER NOT NULL,
succeeded INTEGER NOT NULL,
failed INTEGER NOT NULL);`,
	`CREATE INDEX IF NOT EXISTS ix_runs_started ON jobqueue_runs (started);`,
	`CREATE TABLE IF NOT EXISTS jobqueue_run_jobs (
run_id TEXT NOT NULL REFERENCES jobqueue_runs (id),
seq INTEGER NOT NULL,
id TEXT NOT NULL,
name TEXT NOT NULL,
status TEXT NOT NULL,
value TEXT NOT NULL,
error TEXT NOT NULL,
created INTEGER NOT NULL,
started INTEGER NOT NULL,
completed INTEGER NOT NULL,
queue_seconds REAL NOT NULL,
exec_seconds REAL NOT NULL,
PRIMARY KEY (run_id, seq));`,
	`CREATE INDEX IF NOT EXISTS ix_run_jobs_id ON jobqueue_run_jobs (id);`,
}

// Store is a history sink backed by SQLite.
// It implements history.Sink, history.Lister, and history.Finder.
type Store struct {
	db *sql.DB
}

// NewStore opens the SQLite database at dsn, e.g. a file name or
// ":memory:", and creates the schema if necessary.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("sqlite: no database specified")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers; a single connection also keeps
	// ":memory:" databases from being opened once per connection.
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &Store{db: db}, nil
}

// Record archives run.
func (s *Store) Record(ctx context.Context, run *history.Run) error {
	return sqlstore.RunInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return sqlstore.InsertRun(ctx, tx, run)
	})
}

// List returns the most recent runs first, without their jobs.
func (s *Store) List(ctx context.Context, limit int) ([]*history.Run, error) {
	return sqlstore.ListRuns(ctx, s.db, limit)
}

// Find loads a run including its jobs.
func (s *Store) Find(ctx context.Context, id string) (*history.Run, error) {
	return sqlstore.FindRun(ctx, s.db, id)
}

// Close the database.
func (s *Store) Close() error {
	return s.db.Close()
}
