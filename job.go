// Copyright 2016-present Oliver Eilhard. All rights reserved.
// Use of this source code is governed by a MIT-license.
// See http://olivere.mit-license.org/license.txt for details.

package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a Job.
type Status string

const (
	// Waiting for executing.
	Waiting Status = "waiting"
	// Running is the state for currently executing jobs.
	Running Status = "running"
	// Done is the terminal state. The job has a result.
	Done Status = "done"
)

// Job events, published on Job.Reporter.
const (
	// EventStarted is published right before the payload gets invoked.
	// Event.JobID is set.
	EventStarted = "started"
	// EventDone is published after the result has been recorded.
	// Event.Job is set.
	EventDone = "done"
)

// defaultName is what MarshalJSON reports for jobs without a name.
const defaultName = "Not Specified"

// Job is a single unit of work. Create a job via NewJob, then either
// call Execute directly or hand it to a Queue.
type Job struct {
	id       string
	payload  Payload
	params   interface{}
	reporter *Reporter

	mu        sync.Mutex // guards the following block
	name      string
	status    Status
	result    Result
	created   time.Time
	started   time.Time
	completed time.Time
	queueTime time.Duration // created -> started
	execTime  time.Duration // started -> completed
}

// JobOption is the signature of an options provider for Job.
type JobOption func(*Job)

// SetName gives the job a human readable name.
func SetName(name string) JobOption {
	return func(j *Job) {
		j.name = name
	}
}

// NewJob creates a new job in the Waiting state. The params are passed
// to the payload verbatim when the job executes.
func NewJob(payload Payload, params interface{}, options ...JobOption) *Job {
	j := &Job{
		id:       uuid.New().String(),
		payload:  payload,
		params:   params,
		reporter: NewReporter(),
		status:   Waiting,
		created:  time.Now(),
	}
	for _, opt := range options {
		opt(j)
	}
	return j
}

// ID returns the unique identifier of the job.
func (j *Job) ID() string { return j.id }

// Params returns the parameters passed to the payload.
func (j *Job) Params() interface{} { return j.params }

// Reporter returns the channel for job events.
func (j *Job) Reporter() *Reporter { return j.reporter }

// Name returns the name of the job, which may be empty.
func (j *Job) Name() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.name
}

// SetName changes the name of the job.
func (j *Job) SetName(name string) {
	j.mu.Lock()
	j.name = name
	j.mu.Unlock()
}

// Status returns the current state of the job.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Result returns the outcome of the payload. It is the zero Result
// until the job is Done.
func (j *Job) Result() Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Created returns the time the job was created.
func (j *Job) Created() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.created
}

// Started returns the time the job started running, or the zero time.
func (j *Job) Started() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.started
}

// Completed returns the time the job finished, or the zero time.
func (j *Job) Completed() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.completed
}

// QueueTime is the time the job spent waiting, i.e. from creation
// until it started. It is zero until the job is Done.
func (j *Job) QueueTime() time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.queueTime
}

// ExecTime is the time the payload took. It is zero until the job is Done.
func (j *Job) ExecTime() time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.execTime
}

// Execute runs the payload and returns its result. Execute never fails:
// an error returned by the payload, or a panic inside of it or inside a
// handler of the started event, is recorded as the Err of the result.
//
// A job can only be executed once. Subsequent calls return the result
// of the first execution (or the zero Result if it is still running)
// without invoking the payload again.
func (j *Job) Execute(ctx context.Context) Result {
	j.mu.Lock()
	if j.status != Waiting {
		res := j.result
		j.mu.Unlock()
		return res
	}
	j.status = Running
	j.started = time.Now()
	j.mu.Unlock()

	res := j.invoke(ctx)

	j.mu.Lock()
	j.result = res
	j.completed = time.Now()
	j.execTime = j.completed.Sub(j.started)
	j.queueTime = j.started.Sub(j.created)
	j.status = Done
	j.mu.Unlock()

	j.reporter.Publish(&Event{Name: EventDone, Job: j})

	return res
}

// invoke publishes the started event, then calls the payload. It traps
// returned errors and panics; a panicking started handler skips the payload.
func (j *Job) invoke(ctx context.Context) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: &PanicError{Value: r, Stack: debug.Stack()}}
		}
	}()
	j.reporter.Publish(&Event{Name: EventStarted, JobID: j.id})
	if j.payload == nil {
		return Result{Err: ErrNoPayload}
	}
	v, err := j.payload(ctx, j.params)
	if err != nil {
		return Result{Err: err}
	}
	return Result{Value: v}
}

// String returns a short description of the job, suitable for logging.
func (j *Job) String() string {
	if name := j.Name(); name != "" {
		return fmt.Sprintf("%s (%s)", j.id, name)
	}
	return j.id
}

// MarshalJSON serializes the job as seen from the outside.
func (j *Job) MarshalJSON() ([]byte, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	name := j.name
	if name == "" {
		name = defaultName
	}
	v := struct {
		ID           string  `json:"id"`
		Name         string  `json:"name"`
		Status       Status  `json:"status"`
		Result       *Result `json:"result"`
		QueueSeconds float64 `json:"queueSeconds,omitempty"`
		ExecSeconds  float64 `json:"execSeconds,omitempty"`
	}{
		ID:           j.id,
		Name:         name,
		Status:       j.status,
		QueueSeconds: j.queueTime.Seconds(),
		ExecSeconds:  j.execTime.Seconds(),
	}
	if j.status == Done {
		res := j.result
		v.Result = &res
	}
	return json.Marshal(v)
}
