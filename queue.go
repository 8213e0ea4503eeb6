// Copyright 2016-present Oliver Eilhard. All rights reserved.
// Use of this source code is governed by a MIT-license.
// See http://olivere.mit-license.org/license.txt for details.

package jobqueue

import (
	"context"
	"sync"
	"time"
)

// Queue events, published on Queue.Reporter.
const (
	// EventJobStarted is published when a job gets admitted to run.
	// Event.Job and Event.Stats are set.
	EventJobStarted = "jobStarted"
	// EventJobFinished is published after a job is done.
	// Event.Job and Event.Stats are set.
	EventJobFinished = "jobFinished"
	// EventQueueDone is published exactly once, after all jobs are done.
	// Event.Stats is set, including Stats.Jobs.
	EventQueueDone = "done"
)

// State is the state of a Queue.
type State string

const (
	// StateIdle is the state of a queue before Run is called.
	StateIdle State = "idle"
	// StateScheduling means there are still jobs waiting for admission.
	StateScheduling State = "scheduling"
	// StateDraining means all jobs have been admitted, but some are
	// still running.
	StateDraining State = "draining"
	// StateDone means all jobs are done.
	StateDone State = "done"
)

func nop() {}

// CompletionFunc is called after the queue has finished all of its jobs.
// The error is always nil; complete lists the jobs in order of completion.
type CompletionFunc func(err error, complete []*Job)

// Queue runs a fixed list of jobs, at most a given number at a time.
// Create a new queue via NewQueue.
type Queue struct {
	logger      Logger
	concurrency int
	jobs        []*Job
	st          *inMemoryStore
	reporter    *Reporter
	created     time.Time
	onComplete  CompletionFunc

	mu     sync.Mutex // guards the following block
	state  State
	active bool // true while Run is executing

	testJobAdmitted func() // testing hook
	testJobFinished func() // testing hook
	testQueueDone   func() // testing hook
}

// QueueOption is the signature of an options provider.
type QueueOption func(*Queue)

// SetLogger specifies the logger to use when e.g. reporting failed jobs.
func SetLogger(logger Logger) QueueOption {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// SetCompletionCallback specifies a function to be called once all
// jobs are done, right after EventQueueDone has been published.
func SetCompletionCallback(fn CompletionFunc) QueueOption {
	return func(q *Queue) {
		q.onComplete = fn
	}
}

// NewQueue creates a new queue for the given jobs. At most concurrency
// jobs will be running at the same time; concurrency must be greater or
// equal to 1. Jobs are admitted in the order given.
//
// NewQueue returns a *ConstructionError if a job is nil, a job is passed
// more than once, or concurrency is invalid.
func NewQueue(jobs []*Job, concurrency int, options ...QueueOption) (*Queue, error) {
	if concurrency < 1 {
		return nil, &ConstructionError{Index: -1, Err: ErrInvalidConcurrency}
	}
	seen := make(map[string]bool, len(jobs))
	for i, job := range jobs {
		if job == nil {
			return nil, &ConstructionError{Index: i, Err: ErrNilJob}
		}
		if seen[job.ID()] {
			return nil, &ConstructionError{Index: i, Err: ErrDuplicateJob}
		}
		seen[job.ID()] = true
	}

	q := &Queue{
		logger:          defaultLogger{},
		concurrency:     concurrency,
		jobs:            append([]*Job(nil), jobs...),
		st:              newInMemoryStore(jobs),
		reporter:        NewReporter(),
		created:         time.Now(),
		state:           StateIdle,
		testJobAdmitted: nop,
		testJobFinished: nop,
		testQueueDone:   nop,
	}
	for _, opt := range options {
		opt(q)
	}
	return q, nil
}

// Reporter returns the channel for queue events.
func (q *Queue) Reporter() *Reporter { return q.reporter }

// Concurrency returns the maximum number of jobs running at the same time.
func (q *Queue) Concurrency() int { return q.concurrency }

// Jobs returns the jobs the queue was created with, in their original order.
func (q *Queue) Jobs() []*Job {
	return append([]*Job(nil), q.jobs...)
}

// State returns the current state of the queue.
func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

func (q *Queue) setState(state State) {
	q.mu.Lock()
	q.state = state
	q.mu.Unlock()
}

// RunAnother returns true if there is a job waiting and a free slot
// to run it.
func (q *Queue) RunAnother() bool {
	return q.st.canRun(q.concurrency)
}

// Done returns true if no job is waiting or running.
func (q *Queue) Done() bool {
	return q.st.drained()
}

// -- Run --

// Run executes all jobs and returns when they are done. Jobs are started
// in order, and whenever a job finishes, the next waiting job is started
// right away. Failed jobs are done as well; their failure is recorded in
// their result.
//
// The context is passed to the payloads. The queue itself never cancels
// a job; a job that never returns blocks Run forever.
//
// Run returns ErrQueueRunning if another goroutine is currently running
// the queue. Calling Run on a queue that is done is a no-op.
func (q *Queue) Run(ctx context.Context) error {
	q.mu.Lock()
	if q.active {
		q.mu.Unlock()
		return ErrQueueRunning
	}
	if q.state == StateDone {
		q.mu.Unlock()
		return nil
	}
	q.active = true
	q.state = StateScheduling
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.active = false
		q.mu.Unlock()
	}()

	// Workers never block on finished: at most concurrency jobs are in flight
	finished := make(chan *Job, q.concurrency)
	for {
		// Fill up available slots with jobs
		for {
			job := q.st.next(q.concurrency)
			if job == nil {
				break
			}
			q.logger.Printf("jobqueue: starting job %v", job)
			q.report(EventJobStarted, job)
			q.testJobAdmitted() // testing hook
			newWorker(ctx, q, job, finished)
		}

		if q.st.drained() {
			break
		}
		if pending, _, _ := q.st.counts(); pending == 0 {
			q.setState(StateDraining)
		}

		job := <-finished
		if !q.st.finish(job) {
			q.logger.Printf("jobqueue: job %v finished but was not running", job)
			continue
		}
		q.report(EventJobFinished, job)
		q.testJobFinished() // testing hook
	}

	q.setState(StateDone)

	complete := q.st.completed()
	stats := Stats{
		Complete: len(complete),
		Seconds:  time.Since(q.created).Seconds(),
		Jobs:     complete,
	}
	q.logger.Printf("jobqueue: %d jobs done in %.3fs", stats.Complete, stats.Seconds)
	q.reporter.Publish(&Event{Name: EventQueueDone, Stats: stats})
	if q.onComplete != nil {
		q.onComplete(nil, complete)
	}
	q.testQueueDone() // testing hook
	return nil
}

// report publishes a job event along with the current counts.
func (q *Queue) report(name string, job *Job) {
	q.reporter.Publish(&Event{
		Name:  name,
		Job:   job,
		Stats: q.Stats(),
	})
}

// -- Stats, Lookup and List --

// Stats returns current statistics about the job queue.
// Stats.Jobs is not set.
func (q *Queue) Stats() Stats {
	pending, running, complete := q.st.counts()
	return Stats{
		Pending:  pending,
		Running:  running,
		Complete: complete,
		Seconds:  time.Since(q.created).Seconds(),
	}
}

// Lookup returns the job with the specified identifier.
// If no such job exists, ErrNotFound is returned.
func (q *Queue) Lookup(id string) (*Job, error) {
	return q.st.lookup(id)
}

// List returns all jobs matching the parameters in the request.
func (q *Queue) List(request *ListRequest) *ListResponse {
	if request == nil {
		request = &ListRequest{}
	}
	return q.st.list(request)
}
