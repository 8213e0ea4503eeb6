package jobqueue

import (
	"context"
)

// worker executes a single admitted job on its own goroutine.
type worker struct {
	q    *Queue
	job  *Job
	done chan<- *Job
}

// newWorker creates a new worker. It spins up a new goroutine that
// executes the job and then posts it to done.
func newWorker(ctx context.Context, q *Queue, job *Job, done chan<- *Job) *worker {
	w := &worker{q: q, job: job, done: done}
	go w.run(ctx)
	return w
}

// run is the main goroutine in the worker. The job is always posted to
// done, even if an event handler panics, so that the queue can drain.
func (w *worker) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.q.logger.Printf("jobqueue: event handler of job %v panicked: %v", w.job, r)
		}
		w.done <- w.job
	}()

	res := w.job.Execute(ctx)
	if res.Failed() {
		w.q.logger.Printf("jobqueue: job %v failed with: %v", w.job, res.Err)
	}
}
