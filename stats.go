// Copyright 2016-present Oliver Eilhard. All rights reserved.
// Use of this source code is governed by a MIT-license.
// See http://olivere.mit-license.org/license.txt for details.

package jobqueue

// Stats returns statistics about the job queue.
type Stats struct {
	Pending  int     `json:"pending"`        // number of jobs waiting to be executed
	Running  int     `json:"running"`        // number of jobs currently being executed
	Complete int     `json:"complete"`       // number of finished jobs, failed or not
	Seconds  float64 `json:"seconds"`        // seconds since the queue was created
	Jobs     []*Job  `json:"jobs,omitempty"` // finished jobs; only set for EventQueueDone
}

// Total returns the number of jobs the queue was created with.
func (s Stats) Total() int {
	return s.Pending + s.Running + s.Complete
}
