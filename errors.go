// Copyright 2016-present Oliver Eilhard. All rights reserved.
// Use of this source code is governed by a MIT-license.
// See http://olivere.mit-license.org/license.txt for details.

package jobqueue

import (
	"errors"
	"fmt"
)

var (
	// ErrNilJob is reported by NewQueue when the list of jobs contains nil.
	ErrNilJob = errors.New("jobqueue: job must not be nil")

	// ErrDuplicateJob is reported by NewQueue when the same job is passed twice.
	ErrDuplicateJob = errors.New("jobqueue: job added more than once")

	// ErrInvalidConcurrency is reported by NewQueue when the concurrency
	// limit is less than 1.
	ErrInvalidConcurrency = errors.New("jobqueue: concurrency must be greater or equal to 1")

	// ErrQueueRunning is returned by Run if the queue is already being run
	// by another goroutine.
	ErrQueueRunning = errors.New("jobqueue: queue is already running")

	// ErrNoPayload is recorded as the result of a job without a payload.
	ErrNoPayload = errors.New("jobqueue: job has no payload")
)

// ConstructionError is returned by NewQueue if the queue cannot be
// created. No job has been executed when it is returned.
type ConstructionError struct {
	Index int // index of the offending job, or -1
	Err   error
}

func (e *ConstructionError) Error() string {
	if e.Index < 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v (job at index %d)", e.Err, e.Index)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// PanicError is recorded as the result of a job whose payload panicked.
type PanicError struct {
	Value interface{} // value passed to panic
	Stack []byte      // stack trace at the time of the panic
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("jobqueue: payload panicked: %v", e.Value)
}
