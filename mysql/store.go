// Package mysql archives queue runs in a MySQL database.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"github.com/olivere/jobqueue/v2/history"
	"github.com/olivere/jobqueue/v2/internal/sqlstore"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS jobqueue_runs (
id varchar(36) primary key,
started bigint not null,
finished bigint not null,
seconds double not null,
concurrency integer not null,
succeeded integer not null,
failed integer not null,
index ix_runs_started (started));`,
	`CREATE TABLE IF NOT EXISTS jobqueue_run_jobs (
run_id varchar(36) not null,
seq integer not null,
id varchar(36) not null,
name varchar(255) not null,
status varchar(30) not null,
value mediumtext not null,
error text not null,
created bigint not null,
started bigint not null,
completed bigint not null,
queue_seconds double not null,
exec_seconds double not null,
primary key (run_id, seq),
index ix_run_jobs_id (id));`,
}

// Store is a history sink backed by MySQL.
// It implements history.Sink, history.Lister, and history.Finder.
type Store struct {
	db    *sql.DB
	debug bool
}

// StoreOption is an options provider for Store.
type StoreOption func(*Store)

// NewStore initializes a new MySQL-based history sink. The database in url
// is created if it does not exist.
func NewStore(url string, options ...StoreOption) (*Store, error) {
	st := &Store{}
	for _, opt := range options {
		opt(st)
	}
	cfg, err := mysqldriver.ParseDSN(url)
	if err != nil {
		return nil, err
	}
	dbname := cfg.DBName
	if dbname == "" {
		return nil, errors.New("mysql: no database specified")
	}
	// First connect without DB name
	cfg.DBName = ""
	setupdb, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, err
	}
	defer setupdb.Close()
	// Create database
	_, err = setupdb.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", dbname))
	if err != nil {
		return nil, err
	}

	// Now connect again, this time with the db name
	st.db, err = sql.Open("mysql", url)
	if err != nil {
		return nil, err
	}

	// Create schema
	for _, stmt := range mysqlSchema {
		if _, err := st.db.Exec(stmt); err != nil {
			st.db.Close()
			return nil, err
		}
	}
	return st, nil
}

// SetDebug indicates whether to enable or disable debugging (which will
// log SQL statements at debug level).
func SetDebug(enabled bool) StoreOption {
	return func(s *Store) {
		s.debug = enabled
	}
}

// Record archives run. Deadlocks are retried with exponential backoff.
// Recording a run id twice returns history.ErrDuplicateRun.
func (s *Store) Record(ctx context.Context, run *history.Run) error {
	err := sqlstore.RunInTxWithRetry(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return sqlstore.InsertRun(ctx, s.execer(tx), run)
	}, sqlstore.IsDeadlock)
	return recordError(run.ID, err)
}

func recordError(id string, err error) error {
	if sqlstore.IsDup(err) {
		return fmt.Errorf("%w: %s", history.ErrDuplicateRun, id)
	}
	return err
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

func (s *Store) execer(tx *sql.Tx) sqlstore.Execer {
	if s.debug {
		return debugExecer{tx}
	}
	return tx
}

type debugExecer struct {
	sqlstore.Execer
}

func (e debugExecer) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	log.Debug().Str("sql", query).Int("args", len(args)).Msg("mysql: exec")
	return e.Execer.ExecContext(ctx, query, args...)
}
