// Copyright 2016-present Oliver Eilhard. All rights reserved.
// Use of this source code is governed by a MIT-license.
// See http://olivere.mit-license.org/license.txt for details.

package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type stringLogger struct {
	mu    sync.Mutex
	Lines []string
}

func (l *stringLogger) Printf(format string, v ...interface{}) {
	l.mu.Lock()
	l.Lines = append(l.Lines, fmt.Sprintf(format, v...))
	l.mu.Unlock()
}

func hey(ctx context.Context, p interface{}) (interface{}, error) {
	return "hey", nil
}

// sleeper returns a payload that sleeps for the duration passed as params.
func sleeper(ctx context.Context, p interface{}) (interface{}, error) {
	d, _ := p.(time.Duration)
	time.Sleep(d)
	return d, nil
}

func newJobs(n int, payload Payload) []*Job {
	jobs := make([]*Job, n)
	for i := range jobs {
		jobs[i] = NewJob(payload, nil, SetName(fmt.Sprintf("job %d", i+1)))
	}
	return jobs
}

func TestQueueDefaults(t *testing.T) {
	jobs := newJobs(2, hey)
	q, err := NewQueue(jobs, 1)
	if err != nil {
		t.Fatalf("NewQueue failed with %v", err)
	}
	if have, want := q.Concurrency(), 1; have != want {
		t.Fatalf("Concurrency = %d, want %d", have, want)
	}
	if have, want := q.State(), StateIdle; have != want {
		t.Fatalf("State = %q, want %q", have, want)
	}
	stats := q.Stats()
	if have, want := stats.Pending, 2; have != want {
		t.Fatalf("Stats.Pending = %d, want %d", have, want)
	}
	if have, want := stats.Running+stats.Complete, 0; have != want {
		t.Fatalf("Stats.Running+Stats.Complete = %d, want %d", have, want)
	}
	if _, ok := q.logger.(defaultLogger); !ok {
		t.Fatalf("expected default logger, got %T", q.logger)
	}
}

func TestQueueConstructionErrors(t *testing.T) {
	job := NewJob(hey, nil)
	tests := []struct {
		Jobs        []*Job
		Concurrency int
		Err         error
		Index       int
	}{
		{[]*Job{job, nil}, 1, ErrNilJob, 1},
		{[]*Job{nil}, 2, ErrNilJob, 0},
		{[]*Job{job, NewJob(hey, nil), job}, 1, ErrDuplicateJob, 2},
		{[]*Job{job}, 0, ErrInvalidConcurrency, -1},
		{[]*Job{job}, -5, ErrInvalidConcurrency, -1},
	}
	for i, tt := range tests {
		q, err := NewQueue(tt.Jobs, tt.Concurrency)
		if err == nil {
			t.Fatalf("#%d: expected NewQueue to fail", i)
		}
		if q != nil {
			t.Fatalf("#%d: expected no queue", i)
		}
		if !errors.Is(err, tt.Err) {
			t.Fatalf("#%d: err = %v, want %v", i, err, tt.Err)
		}
		var cerr *ConstructionError
		if !errors.As(err, &cerr) {
			t.Fatalf("#%d: expected a *ConstructionError, got %T", i, err)
		}
		if have, want := cerr.Index, tt.Index; have != want {
			t.Fatalf("#%d: Index = %d, want %d", i, have, want)
		}
	}
	if have, want := job.Status(), Waiting; have != want {
		t.Fatalf("Status = %q, want %q", have, want)
	}
}

func TestQueueRunAnother(t *testing.T) {
	q, err := NewQueue(newJobs(1, hey), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !q.RunAnother() {
		t.Fatal("expected RunAnother to be true")
	}
	if job := q.st.next(1); job == nil {
		t.Fatal("expected a job")
	}
	if q.RunAnother() {
		t.Fatal("expected RunAnother to be false with nothing pending")
	}

	q, err = NewQueue(newJobs(2, hey), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !q.RunAnother() {
		t.Fatal("expected RunAnother to be true")
	}
	q.st.next(1)
	if q.RunAnother() {
		t.Fatal("expected RunAnother to be false with all slots taken")
	}
}

func TestQueueDone(t *testing.T) {
	q, err := NewQueue(newJobs(1, hey), 1)
	if err != nil {
		t.Fatal(err)
	}
	if q.Done() {
		t.Fatal("expected Done to be false")
	}
	job := q.st.next(1)
	if q.Done() {
		t.Fatal("expected Done to be false while a job is running")
	}
	q.st.finish(job)
	if !q.Done() {
		t.Fatal("expected Done to be true")
	}

	q, err = NewQueue(newJobs(2, hey), 1)
	if err != nil {
		t.Fatal(err)
	}
	q.st.finish(q.st.next(1))
	if q.Done() {
		t.Fatal("expected Done to be false with a job pending")
	}

	q, err = NewQueue(nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !q.Done() {
		t.Fatal("expected Done to be true for an empty queue")
	}
}

func TestQueueRun(t *testing.T) {
	const concurrency = 1
	jobs := newJobs(2, hey)

	var (
		callbackErr      error
		callbackComplete []*Job
		callbacks        int
	)
	q, err := NewQueue(jobs, concurrency, SetCompletionCallback(func(err error, complete []*Job) {
		callbacks++
		callbackErr = err
		callbackComplete = complete
	}))
	if err != nil {
		t.Fatal(err)
	}

	var jobStarted, jobFinished, done int
	var final Stats
	q.Reporter().On(EventJobStarted, func(e *Event) {
		jobStarted++
		if e.Stats.Running > concurrency {
			t.Errorf("Running = %d, want <= %d", e.Stats.Running, concurrency)
		}
		if e.Job == nil || e.Job.Status() == Done {
			t.Errorf("expected job started event to carry an unfinished job")
		}
	})
	q.Reporter().On(EventJobFinished, func(e *Event) {
		jobFinished++
		if have, want := e.Job.Status(), Done; have != want {
			t.Errorf("Status = %q, want %q", have, want)
		}
	})
	q.Reporter().On(EventQueueDone, func(e *Event) {
		done++
		final = e.Stats
	})

	if err := q.Run(context.Background()); err != nil {
		t.Fatalf("Run failed with %v", err)
	}

	if have, want := jobStarted, 2; have != want {
		t.Fatalf("jobStarted = %d, want %d", have, want)
	}
	if have, want := jobFinished, 2; have != want {
		t.Fatalf("jobFinished = %d, want %d", have, want)
	}
	if have, want := done, 1; have != want {
		t.Fatalf("done = %d, want %d", have, want)
	}
	if have, want := final.Pending, 0; have != want {
		t.Fatalf("Pending = %d, want %d", have, want)
	}
	if have, want := final.Running, 0; have != want {
		t.Fatalf("Running = %d, want %d", have, want)
	}
	if have, want := final.Complete, 2; have != want {
		t.Fatalf("Complete = %d, want %d", have, want)
	}
	if have, want := len(final.Jobs), 2; have != want {
		t.Fatalf("len(Jobs) = %d, want %d", have, want)
	}
	if final.Seconds <= 0 {
		t.Fatalf("Seconds = %v, want > 0", final.Seconds)
	}
	if have, want := callbacks, 1; have != want {
		t.Fatalf("callback called %d times, want %d", have, want)
	}
	if callbackErr != nil {
		t.Fatalf("callback err = %v, want nil", callbackErr)
	}
	if have, want := len(callbackComplete), 2; have != want {
		t.Fatalf("len(complete) = %d, want %d", have, want)
	}
	if have, want := q.State(), StateDone; have != want {
		t.Fatalf("State = %q, want %q", have, want)
	}
	for _, job := range jobs {
		if have, want := job.Result().Value, "hey"; have != want {
			t.Fatalf("Value = %v, want %v", have, want)
		}
	}
}

func TestQueueRunWithoutJobs(t *testing.T) {
	var done, callbacks int
	q, err := NewQueue(nil, 3, SetCompletionCallback(func(err error, complete []*Job) {
		callbacks++
		if len(complete) != 0 {
			t.Errorf("len(complete) = %d, want 0", len(complete))
		}
	}))
	if err != nil {
		t.Fatal(err)
	}
	q.Reporter().On(EventJobStarted, func(*Event) { t.Error("unexpected job started") })
	q.Reporter().On(EventQueueDone, func(e *Event) {
		done++
		if e.Stats.Total() != 0 {
			t.Errorf("Total = %d, want 0", e.Stats.Total())
		}
	})

	for i := 0; i < 3; i++ {
		if err := q.Run(context.Background()); err != nil {
			t.Fatalf("Run failed with %v", err)
		}
	}
	if have, want := done, 1; have != want {
		t.Fatalf("done = %d, want %d", have, want)
	}
	if have, want := callbacks, 1; have != want {
		t.Fatalf("callbacks = %d, want %d", have, want)
	}
}

func TestQueueConcurrencyLimit(t *testing.T) {
	for _, limit := range []int{1, 2, 3, 7, 50} {
		limit := limit
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			const n = 25

			var inflight, peak int32
			payload := func(ctx context.Context, p interface{}) (interface{}, error) {
				cur := atomic.AddInt32(&inflight, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
						break
					}
				}
				time.Sleep(p.(time.Duration))
				atomic.AddInt32(&inflight, -1)
				return nil, nil
			}
			jobs := make([]*Job, n)
			for i := range jobs {
				jobs[i] = NewJob(payload, time.Duration(i%4+1)*time.Millisecond)
			}
			q, err := NewQueue(jobs, limit)
			if err != nil {
				t.Fatal(err)
			}

			check := func(e *Event) {
				if e.Stats.Running > limit {
					t.Errorf("%s: Running = %d, want <= %d", e.Name, e.Stats.Running, limit)
				}
				if have, want := e.Stats.Total(), n; have != want {
					t.Errorf("%s: Pending+Running+Complete = %d, want %d", e.Name, have, want)
				}
			}
			q.Reporter().On(EventJobStarted, check)
			q.Reporter().On(EventJobFinished, check)

			if err := q.Run(context.Background()); err != nil {
				t.Fatal(err)
			}
			if have, want := int(atomic.LoadInt32(&peak)), limit; have > want {
				t.Fatalf("peak concurrency = %d, want <= %d", have, want)
			}
			final := q.Stats()
			if have, want := final.Complete, n; have != want {
				t.Fatalf("Complete = %d, want %d", have, want)
			}
			if final.Pending != 0 || final.Running != 0 {
				t.Fatalf("expected nothing pending or running, got %+v", final)
			}
		})
	}
}

func TestQueueAdmitsInOrder(t *testing.T) {
	// Later jobs are quicker; with a concurrency of 1 they still start in order.
	jobs := []*Job{
		NewJob(sleeper, 30*time.Millisecond, SetName("A")),
		NewJob(sleeper, 20*time.Millisecond, SetName("B")),
		NewJob(sleeper, 10*time.Millisecond, SetName("C")),
	}
	q, err := NewQueue(jobs, 1)
	if err != nil {
		t.Fatal(err)
	}
	var started, finished []string
	q.Reporter().On(EventJobStarted, func(e *Event) { started = append(started, e.Job.Name()) })
	q.Reporter().On(EventJobFinished, func(e *Event) { finished = append(finished, e.Job.Name()) })

	if err := q.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if have, want := fmt.Sprint(started), "[A B C]"; have != want {
		t.Fatalf("started = %s, want %s", have, want)
	}
	if have, want := fmt.Sprint(finished), "[A B C]"; have != want {
		t.Fatalf("finished = %s, want %s", have, want)
	}
	if jobs[1].Started().Before(jobs[0].Completed()) {
		t.Fatal("expected B to start after A completed")
	}
}

func TestQueueBackfill(t *testing.T) {
	releaseA := make(chan struct{})
	releaseB := make(chan struct{})
	block := func(ctx context.Context, p interface{}) (interface{}, error) {
		<-p.(chan struct{})
		return nil, nil
	}
	a := NewJob(block, releaseA, SetName("A"))
	b := NewJob(block, releaseB, SetName("B"))
	c := NewJob(hey, nil, SetName("C"))

	q, err := NewQueue([]*Job{a, b, c}, 2)
	if err != nil {
		t.Fatal(err)
	}
	admitted := make(chan struct{}, 3)
	q.testJobAdmitted = func() { admitted <- struct{}{} }
	finished := make(chan struct{}, 3)
	q.testJobFinished = func() { finished <- struct{}{} }

	errc := make(chan error, 1)
	go func() { errc <- q.Run(context.Background()) }()

	timeout := 2 * time.Second
	for i := 0; i < 2; i++ {
		select {
		case <-admitted:
		case <-time.After(timeout):
			t.Fatal("job admission timed out")
		}
	}
	if have, want := c.Status(), Waiting; have != want {
		t.Fatalf("C: Status = %q, want %q", have, want)
	}
	if q.RunAnother() {
		t.Fatal("expected RunAnother to be false while A and B are running")
	}
	if have, want := q.State(), StateScheduling; have != want {
		t.Fatalf("State = %q, want %q", have, want)
	}

	// Finishing B frees a slot for C while A keeps running
	close(releaseB)
	select {
	case <-admitted:
	case <-time.After(timeout):
		t.Fatal("C was not admitted after B finished")
	}
	if have, want := b.Status(), Done; have != want {
		t.Fatalf("B: Status = %q, want %q", have, want)
	}
	if have, want := a.Status(), Running; have != want {
		t.Fatalf("A: Status = %q, want %q", have, want)
	}

	// Wait for B and C to be moved to complete, then A is the only one left
	for i := 0; i < 2; i++ {
		select {
		case <-finished:
		case <-time.After(timeout):
			t.Fatal("job completion timed out")
		}
	}
	if have, want := q.State(), StateDraining; have != want {
		t.Fatalf("State = %q, want %q", have, want)
	}
	rsp := q.List(&ListRequest{Status: Running})
	if have, want := rsp.Total, 1; have != want {
		t.Fatalf("running = %d, want %d", have, want)
	}
	if rsp.Jobs[0] != a {
		t.Fatalf("expected A to be running, got %v", rsp.Jobs[0])
	}
	if err := q.Run(context.Background()); err != ErrQueueRunning {
		t.Fatalf("Run = %v, want %v", err, ErrQueueRunning)
	}

	close(releaseA)
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Run failed with %v", err)
		}
	case <-time.After(timeout):
		t.Fatal("Run timed out")
	}

	rsp = q.List(&ListRequest{Status: Done})
	if have, want := len(rsp.Jobs), 3; have != want {
		t.Fatalf("len(complete) = %d, want %d", have, want)
	}
	if rsp.Jobs[0] != b || rsp.Jobs[2] != a {
		t.Fatal("expected complete to be in order of completion: B, C, A")
	}
}

func TestQueueFailedJobsAreComplete(t *testing.T) {
	jobs := []*Job{
		NewJob(hey, nil),
		NewJob(func(ctx context.Context, p interface{}) (interface{}, error) {
			return nil, errors.New("failed job")
		}, nil),
		NewJob(func(ctx context.Context, p interface{}) (interface{}, error) {
			panic("kaboom")
		}, nil),
	}
	l := &stringLogger{}
	q, err := NewQueue(jobs, 2, SetLogger(l))
	if err != nil {
		t.Fatal(err)
	}
	var done int
	q.Reporter().On(EventQueueDone, func(e *Event) { done++ })
	if err := q.Run(context.Background()); err != nil {
		t.Fatalf("Run failed with %v", err)
	}
	if have, want := done, 1; have != want {
		t.Fatalf("done = %d, want %d", have, want)
	}
	if have, want := q.Stats().Complete, 3; have != want {
		t.Fatalf("Complete = %d, want %d", have, want)
	}
	for i, job := range jobs {
		if have, want := job.Status(), Done; have != want {
			t.Fatalf("#%d: Status = %q, want %q", i, have, want)
		}
	}
	if jobs[0].Result().Failed() {
		t.Fatal("expected job 0 to succeed")
	}
	if !jobs[1].Result().Failed() || !jobs[2].Result().Failed() {
		t.Fatal("expected jobs 1 and 2 to fail")
	}

	var failures int
	l.mu.Lock()
	for _, line := range l.Lines {
		if strings.Contains(line, "failed with") {
			failures++
		}
	}
	l.mu.Unlock()
	if have, want := failures, 2; have != want {
		t.Fatalf("logged %d failures, want %d", have, want)
	}
}

func TestQueueLookupAndList(t *testing.T) {
	jobs := newJobs(5, hey)
	q, err := NewQueue(jobs, 2)
	if err != nil {
		t.Fatal(err)
	}
	job, err := q.Lookup(jobs[3].ID())
	if err != nil {
		t.Fatalf("Lookup failed with %v", err)
	}
	if job != jobs[3] {
		t.Fatal("Lookup returned the wrong job")
	}
	if _, err := q.Lookup("no-such-job"); err != ErrNotFound {
		t.Fatalf("Lookup = %v, want %v", err, ErrNotFound)
	}

	rsp := q.List(&ListRequest{Status: Waiting, Offset: 1, Limit: 2})
	if have, want := rsp.Total, 5; have != want {
		t.Fatalf("Total = %d, want %d", have, want)
	}
	if have, want := len(rsp.Jobs), 2; have != want {
		t.Fatalf("len(Jobs) = %d, want %d", have, want)
	}
	if rsp.Jobs[0] != jobs[1] || rsp.Jobs[1] != jobs[2] {
		t.Fatal("expected pending jobs in admission order")
	}
	if rsp := q.List(&ListRequest{Offset: 10}); len(rsp.Jobs) != 0 {
		t.Fatalf("expected no jobs past the end, got %d", len(rsp.Jobs))
	}
	if rsp := q.List(nil); len(rsp.Jobs) != 5 {
		t.Fatalf("expected all jobs, got %d", len(rsp.Jobs))
	}
}

func TestQueueSurvivesPanickingHandler(t *testing.T) {
	jobs := newJobs(2, hey)
	jobs[0].Reporter().On(EventDone, func(*Event) { panic("handler") })
	q, err := NewQueue(jobs, 1, SetLogger(&stringLogger{}))
	if err != nil {
		t.Fatal(err)
	}
	errc := make(chan error, 1)
	go func() { errc <- q.Run(context.Background()) }()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run timed out")
	}
	if have, want := q.Stats().Complete, 2; have != want {
		t.Fatalf("Complete = %d, want %d", have, want)
	}
}

func TestQueuePanickingStartedHandler(t *testing.T) {
	jobs := newJobs(3, hey)
	jobs[0].Reporter().On(EventStarted, func(*Event) { panic("kaboom") })
	q, err := NewQueue(jobs, 2, SetLogger(&stringLogger{}))
	if err != nil {
		t.Fatal(err)
	}
	errc := make(chan error, 1)
	go func() { errc <- q.Run(context.Background()) }()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run timed out")
	}

	rsp := q.List(&ListRequest{Status: Done})
	if have, want := len(rsp.Jobs), 3; have != want {
		t.Fatalf("len(Jobs) = %d, want %d", have, want)
	}
	for _, job := range rsp.Jobs {
		if have, want := job.Status(), Done; have != want {
			t.Fatalf("%s: Status = %q, want %q", job.Name(), have, want)
		}
	}
	var perr *PanicError
	if !errors.As(jobs[0].Result().Err, &perr) {
		t.Fatalf("expected a *PanicError, got %T", jobs[0].Result().Err)
	}
	if jobs[1].Result().Failed() || jobs[2].Result().Failed() {
		t.Fatal("expected remaining jobs to succeed")
	}
}
