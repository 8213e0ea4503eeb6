package sqlstore

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/olivere/jobqueue/v2/history"
)

const (
	// RunsTable keeps one row per archived run.
	RunsTable = "jobqueue_runs"
	// RunJobsTable keeps one row per job of an archived run.
	RunJobsTable = "jobqueue_run_jobs"

	// JobRowsPerInsert is the maximum number of job rows per INSERT.
	JobRowsPerInsert = 500
)

// Execer is implemented by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Querier is implemented by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var runColumns = []string{
	"id", "started", "finished", "seconds", "concurrency", "succeeded", "failed",
}

var jobColumns = []string{
	"id", "name", "status", "value", "error",
	"created", "started", "completed", "queue_seconds", "exec_seconds",
}

// InsertRun writes run and its jobs. Use it inside a transaction.
func InsertRun(ctx context.Context, tx Execer, run *history.Run) error {
	query, args, err := sq.Insert(RunsTable).
		Columns(runColumns...).
		Values(
			run.ID,
			toNanos(run.Started),
			toNanos(run.Finished),
			run.Seconds,
			run.Concurrency,
			run.Succeeded,
			run.Failed,
		).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	// SQLite and MySQL cap the number of placeholders per statement.
	for lo := 0; lo < len(run.Jobs); lo += JobRowsPerInsert {
		hi := lo + JobRowsPerInsert
		if hi > len(run.Jobs) {
			hi = len(run.Jobs)
		}
		if err := insertJobs(ctx, tx, run.ID, lo, run.Jobs[lo:hi]); err != nil {
			return err
		}
	}
	return nil
}

// insertJobs writes jobs in one statement, numbering them from seq.
func insertJobs(ctx context.Context, tx Execer, runID string, seq int, jobs []history.JobRecord) error {
	ins := sq.Insert(RunJobsTable).Columns(append([]string{"run_id", "seq"}, jobColumns...)...)
	for i, job := range jobs {
		ins = ins.Values(
			runID,
			seq+i,
			job.ID,
			job.Name,
			job.Status,
			job.Value,
			job.Error,
			toNanos(job.Created),
			toNanos(job.Started),
			toNanos(job.Completed),
			job.QueueSeconds,
			job.ExecSeconds,
		)
	}
	query, args, err := ins.ToSql()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

// ListRuns returns the most recent runs first, without their jobs.
// A limit <= 0 returns all runs.
func ListRuns(ctx context.Context, db Querier, limit int) ([]*history.Run, error) {
	sel := sq.Select(runColumns...).From(RunsTable).OrderBy("started DESC", "id")
	if limit > 0 {
		sel = sel.Limit(uint64(limit))
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*history.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// FindRun loads a single run including its jobs, in order of completion.
// It returns history.ErrNotFound if there is no such run.
func FindRun(ctx context.Context, db Querier, id string) (*history.Run, error) {
	query, args, err := sq.Select(runColumns...).From(RunsTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	run, err := scanRun(db.QueryRowContext(ctx, query, args...))
	if IsNotFound(err) {
		return nil, history.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	query, args, err = sq.Select(jobColumns...).
		From(RunJobsTable).
		Where(sq.Eq{"run_id": id}).
		OrderBy("seq").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			job                         history.JobRecord
			created, started, completed int64
		)
		err := rows.Scan(
			&job.ID,
			&job.Name,
			&job.Status,
			&job.Value,
			&job.Error,
			&created,
			&started,
			&completed,
			&job.QueueSeconds,
			&job.ExecSeconds,
		)
		if err != nil {
			return nil, err
		}
		job.Created = fromNanos(created)
		job.Started = fromNanos(started)
		job.Completed = fromNanos(completed)
		run.Jobs = append(run.Jobs, job)
	}
	return run, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*history.Run, error) {
	var (
		run               history.Run
		started, finished int64
	)
	err := row.Scan(
		&run.ID,
		&started,
		&finished,
		&run.Seconds,
		&run.Concurrency,
		&run.Succeeded,
		&run.Failed,
	)
	if err != nil {
		return nil, err
	}
	run.Started = fromNanos(started)
	run.Finished = fromNanos(finished)
	return &run, nil
}

// Times are stored as nanoseconds since the Unix epoch, 0 for the zero time.
func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
