// Copyright 2016-present Oliver Eilhard. All rights reserved.
// Use of this source code is governed by a MIT-license.
// See http://olivere.mit-license.org/license.txt for details.

package jobqueue

import "errors"

var (
	// ErrNotFound is returned by Lookup when a certain job could not be
	// found in the queue.
	ErrNotFound = errors.New("jobqueue: job not found")
)

// ListRequest specifies a filter for listing jobs.
type ListRequest struct {
	Status Status // filter by job status; empty means all
	Limit  int    // maximum number of jobs to return
	Offset int    // number of jobs to skip (for pagination)
}

// ListResponse is the outcome of invoking List on the Queue.
type ListResponse struct {
	Total int    // total number of jobs found, excluding pagination
	Jobs  []*Job // list of jobs
}
