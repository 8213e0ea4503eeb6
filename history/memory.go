// Copyright 2016-present Oliver Eilhard. All rights reserved.
// Use of this source code is governed by a MIT-license.
// See http://olivere.mit-license.org/license.txt for details.

package history

import (
	"context"
	"sync"
)

// MemorySink is a simple in-memory sink. Do not use in production.
type MemorySink struct {
	mu   sync.Mutex
	runs []*Run
}

// NewMemorySink creates a new MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record adds the run.
func (s *MemorySink) Record(ctx context.Context, run *Run) error {
	s.mu.Lock()
	s.runs = append(s.runs, run)
	s.mu.Unlock()
	return nil
}

// List returns recorded runs, most recent first. A limit <= 0 returns
// all of them.
func (s *MemorySink) List(ctx context.Context, limit int) ([]*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.runs)
	if limit > 0 && limit < n {
		n = limit
	}
	list := make([]*Run, 0, n)
	for i := len(s.runs) - 1; i >= 0 && len(list) < n; i-- {
		list = append(list, s.runs[i])
	}
	return list, nil
}

// Find returns the run with the given id.
func (s *MemorySink) Find(ctx context.Context, id string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, run := range s.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return nil, ErrNotFound
}

// Close is a no-op.
func (s *MemorySink) Close() error {
	return nil
}
