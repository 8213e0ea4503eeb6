// Copyright 2016-present Oliver Eilhard. All rights reserved.
// Use of this source code is governed by a MIT-license.
// See http://olivere.mit-license.org/license.txt for details.

package jobqueue

import "sync"

// Event is published by Job and Queue to notify listeners.
type Event struct {
	Name  string // e.g. EventStarted or EventJobFinished
	JobID string // set for EventStarted
	Job   *Job   // set for EventDone, EventJobStarted and EventJobFinished
	Stats Stats  // set for queue events
}

// Handler is called for every event a listener subscribed to.
type Handler func(*Event)

// Reporter is a small publish/subscribe channel. Handlers run
// synchronously on the publishing goroutine, in subscription order.
// Handlers must not block.
type Reporter struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewReporter creates a new Reporter without any listeners.
func NewReporter() *Reporter {
	return &Reporter{
		handlers: make(map[string][]Handler),
	}
}

// On adds a handler for the event with the given name.
func (r *Reporter) On(name string, h Handler) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.handlers[name] = append(r.handlers[name], h)
	r.mu.Unlock()
}

// Publish calls all handlers registered for e.Name.
func (r *Reporter) Publish(e *Event) {
	r.mu.RLock()
	handlers := r.handlers[e.Name]
	r.mu.RUnlock()
	for _, h := range handlers {
		h(e)
	}
}
