// Copyright 2016-present Oliver Eilhard. All rights reserved.
// Use of this source code is governed by a MIT-license.
// See http://olivere.mit-license.org/license.txt for details.

// Package history archives finished queue runs.
//
// A Sink receives one Run after a queue has published its terminal event.
// The archive is write-mostly: it is used for reporting on past runs, and
// nothing in jobqueue ever reads it back to resume work.
//
// Sinks are implemented in this package (MemorySink) and in the "sqlite",
// "mysql", and "mongodb" packages.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/olivere/jobqueue/v2"
)

// ErrNotFound is returned when a run cannot be found.
var ErrNotFound = errors.New("history: run not found")

// ErrDuplicateRun is returned by sinks that refuse to record a run whose
// id has already been recorded.
var ErrDuplicateRun = errors.New("history: run already recorded")

// Run is the archived outcome of running a queue.
type Run struct {
	ID          string      `json:"id" yaml:"id" bson:"_id"`
	Started     time.Time   `json:"started" yaml:"started" bson:"started"`
	Finished    time.Time   `json:"finished" yaml:"finished" bson:"finished"`
	Seconds     float64     `json:"seconds" yaml:"seconds" bson:"seconds"`
	Concurrency int         `json:"concurrency" yaml:"concurrency" bson:"concurrency"`
	Succeeded   int         `json:"succeeded" yaml:"succeeded" bson:"succeeded"`
	Failed      int         `json:"failed" yaml:"failed" bson:"failed"`
	Jobs        []JobRecord `json:"jobs,omitempty" yaml:"jobs,omitempty" bson:"jobs,omitempty"`
}

// JobRecord is the archived outcome of a single job.
type JobRecord struct {
	ID           string    `json:"id" yaml:"id" bson:"id"`
	Name         string    `json:"name,omitempty" yaml:"name,omitempty" bson:"name,omitempty"`
	Status       string    `json:"status" yaml:"status" bson:"status"`
	Value        string    `json:"value,omitempty" yaml:"value,omitempty" bson:"value,omitempty"` // JSON-encoded result value
	Error        string    `json:"error,omitempty" yaml:"error,omitempty" bson:"error,omitempty"`
	Created      time.Time `json:"created" yaml:"created" bson:"created"`
	Started      time.Time `json:"started" yaml:"started" bson:"started"`
	Completed    time.Time `json:"completed" yaml:"completed" bson:"completed"`
	QueueSeconds float64   `json:"queueSeconds" yaml:"queueSeconds" bson:"queue_seconds"`
	ExecSeconds  float64   `json:"execSeconds" yaml:"execSeconds" bson:"exec_seconds"`
}

// Sink stores runs.
type Sink interface {
	// Record archives a run.
	Record(ctx context.Context, run *Run) error

	// Close releases resources held by the sink.
	Close() error
}

// Lister is implemented by sinks that can list past runs, most recent
// first. Listed runs may come without their Jobs.
type Lister interface {
	List(ctx context.Context, limit int) ([]*Run, error)
}

// Finder is implemented by sinks that can load a single run, including
// its Jobs. It returns ErrNotFound if there is no run with the given id.
type Finder interface {
	Find(ctx context.Context, id string) (*Run, error)
}

// NewRun creates a Run from a queue and the stats of its terminal
// event. Jobs are recorded in order of completion.
func NewRun(q *jobqueue.Queue, stats jobqueue.Stats) *Run {
	finished := time.Now()
	run := &Run{
		ID:          uuid.New().String(),
		Finished:    finished,
		Started:     finished.Add(-time.Duration(stats.Seconds * float64(time.Second))),
		Seconds:     stats.Seconds,
		Concurrency: q.Concurrency(),
		Jobs:        make([]JobRecord, 0, len(stats.Jobs)),
	}
	for _, job := range stats.Jobs {
		rec := NewJobRecord(job)
		if rec.Error != "" {
			run.Failed++
		} else {
			run.Succeeded++
		}
		run.Jobs = append(run.Jobs, rec)
	}
	return run
}

// NewJobRecord creates a JobRecord from a job. Result values that cannot
// be encoded as JSON are recorded as an error.
func NewJobRecord(job *jobqueue.Job) JobRecord {
	rec := JobRecord{
		ID:           job.ID(),
		Name:         job.Name(),
		Status:       string(job.Status()),
		Created:      job.Created(),
		Started:      job.Started(),
		Completed:    job.Completed(),
		QueueSeconds: job.QueueTime().Seconds(),
		ExecSeconds:  job.ExecTime().Seconds(),
	}
	res := job.Result()
	if res.Err != nil {
		rec.Error = res.Err.Error()
		return rec
	}
	if res.Value != nil {
		v, err := json.Marshal(res.Value)
		if err != nil {
			rec.Error = "history: cannot encode result: " + err.Error()
		} else {
			rec.Value = string(v)
		}
	}
	return rec
}

// Attach subscribes to the terminal event of q and records the run into
// sink. Failures to record are passed to the logger; they never affect
// the queue. The returned channel receives the recorded run, or nil if
// recording failed, and is closed afterwards.
func Attach(ctx context.Context, q *jobqueue.Queue, sink Sink, logger jobqueue.Logger) <-chan *Run {
	recorded := make(chan *Run, 1)
	q.Reporter().On(jobqueue.EventQueueDone, func(e *jobqueue.Event) {
		defer close(recorded)
		run := NewRun(q, e.Stats)
		if err := sink.Record(ctx, run); err != nil {
			if logger != nil {
				logger.Printf("history: unable to record run %s: %v", run.ID, err)
			}
			recorded <- nil
			return
		}
		recorded <- run
	})
	return recorded
}
