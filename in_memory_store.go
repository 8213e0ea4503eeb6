// Copyright 2016-present Oliver Eilhard. All rights reserved.
// Use of this source code is governed by a MIT-license.
// See http://olivere.mit-license.org/license.txt for details.

package jobqueue

import "sync"

// inMemoryStore keeps the jobs of a queue, partitioned into pending,
// running, and complete. Every job is in exactly one partition.
//
// Only the scheduler changes partitions; the mutex is there for readers
// on other goroutines, e.g. Stats and Lookup.
type inMemoryStore struct {
	mu       sync.Mutex
	byID     map[string]*Job // all jobs
	pending  []*Job          // FIFO
	running  map[string]*Job
	complete []*Job // in order of completion
}

func newInMemoryStore(jobs []*Job) *inMemoryStore {
	st := &inMemoryStore{
		byID:     make(map[string]*Job, len(jobs)),
		pending:  make([]*Job, len(jobs)),
		running:  make(map[string]*Job),
		complete: make([]*Job, 0, len(jobs)),
	}
	copy(st.pending, jobs)
	for _, job := range jobs {
		st.byID[job.ID()] = job
	}
	return st
}

// next moves the head of pending into running and returns it.
// It returns nil if the running partition already holds limit jobs or
// no job is pending.
func (st *inMemoryStore) next(limit int) *Job {
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.running) >= limit || len(st.pending) == 0 {
		return nil
	}
	job := st.pending[0]
	st.pending[0] = nil
	st.pending = st.pending[1:]
	st.running[job.ID()] = job
	return job
}

// finish moves a job from running into complete. It returns false if
// the job was not running.
func (st *inMemoryStore) finish(job *Job) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, found := st.running[job.ID()]; !found {
		return false
	}
	delete(st.running, job.ID())
	st.complete = append(st.complete, job)
	return true
}

// canRun returns true if another job can be moved into running.
func (st *inMemoryStore) canRun(limit int) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.running) < limit && len(st.pending) > 0
}

// drained returns true if no job is pending or running.
func (st *inMemoryStore) drained() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.running) == 0 && len(st.pending) == 0
}

// counts returns the size of each partition.
func (st *inMemoryStore) counts() (pending, running, complete int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.pending), len(st.running), len(st.complete)
}

// completed returns a copy of the complete partition.
func (st *inMemoryStore) completed() []*Job {
	st.mu.Lock()
	defer st.mu.Unlock()
	list := make([]*Job, len(st.complete))
	copy(list, st.complete)
	return list
}

// lookup returns the job with the specified identifier (or ErrNotFound).
func (st *inMemoryStore) lookup(id string) (*Job, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	job, found := st.byID[id]
	if !found {
		return nil, ErrNotFound
	}
	return job, nil
}

// list finds matching jobs. Pending jobs come in admission order,
// complete jobs in completion order, running jobs in no particular order.
func (st *inMemoryStore) list(req *ListRequest) *ListResponse {
	st.mu.Lock()
	var all []*Job
	switch req.Status {
	case Waiting:
		all = append(all, st.pending...)
	case Running:
		for _, job := range st.running {
			all = append(all, job)
		}
	case Done:
		all = append(all, st.complete...)
	default:
		all = append(all, st.complete...)
		for _, job := range st.running {
			all = append(all, job)
		}
		all = append(all, st.pending...)
	}
	st.mu.Unlock()

	rsp := &ListResponse{Total: len(all)}
	if req.Offset > 0 {
		if req.Offset >= len(all) {
			return rsp
		}
		all = all[req.Offset:]
	}
	if req.Limit > 0 && req.Limit < len(all) {
		all = all[:req.Limit]
	}
	rsp.Jobs = all
	return rsp
}
