// Copyright 2016-present Oliver Eilhard. All rights reserved.
// Use of this source code is governed by a MIT-license.
// See http://olivere.mit-license.org/license.txt for details.

// Package server pushes the progress of a queue to websocket clients.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/olivere/jobqueue/v2"
)

// Message types.
const (
	TypeState     = "STATE"
	TypeJobLookup = "JOB_LOOKUP"
)

// EventSnapshot is the event of the first STATE message a client receives.
const EventSnapshot = "snapshot"

// Server is a simple web server with a WebSocket backend.
type Server struct {
	q         *jobqueue.Queue
	hub       *hub
	publicDir string
}

// ServerOption is an options provider for Server.
type ServerOption func(*Server)

// SetPublicDir serves static files from dir at "/".
func SetPublicDir(dir string) ServerOption {
	return func(s *Server) {
		s.publicDir = dir
	}
}

// New initializes a new Server and subscribes it to the events of q.
// Call Close to release it.
func New(q *jobqueue.Queue, options ...ServerOption) *Server {
	srv := &Server{q: q}
	for _, opt := range options {
		opt(srv)
	}
	srv.hub = newHub(srv.snapshot)
	go srv.hub.run() // run websocket hub

	for _, name := range []string{jobqueue.EventJobStarted, jobqueue.EventJobFinished, jobqueue.EventQueueDone} {
		q.Reporter().On(name, srv.onEvent)
	}
	return srv
}

// State is a STATE message.
type State struct {
	Type     string          `json:"type"`
	Event    string          `json:"event"`
	Stats    jobqueue.Stats  `json:"stats"`
	Job      *jobqueue.Job   `json:"job,omitempty"`
	Waiting  []*jobqueue.Job `json:"waiting,omitempty"`
	Running  []*jobqueue.Job `json:"running,omitempty"`
	Complete []*jobqueue.Job `json:"complete,omitempty"`
}

func (srv *Server) onEvent(e *jobqueue.Event) {
	v, err := json.Marshal(&State{
		Type:  TypeState,
		Event: e.Name,
		Stats: e.Stats,
		Job:   e.Job,
	})
	if err != nil {
		log.Error().Err(err).Str("event", e.Name).Msg("server: cannot encode state")
		return
	}
	srv.hub.publish(v)
}

func (srv *Server) snapshot() []byte {
	state := &State{
		Type:     TypeState,
		Event:    EventSnapshot,
		Stats:    srv.q.Stats(),
		Waiting:  srv.q.List(&jobqueue.ListRequest{Status: jobqueue.Waiting}).Jobs,
		Running:  srv.q.List(&jobqueue.ListRequest{Status: jobqueue.Running}).Jobs,
		Complete: srv.q.List(&jobqueue.ListRequest{Status: jobqueue.Done}).Jobs,
	}
	v, err := json.Marshal(state)
	if err != nil {
		log.Error().Err(err).Msg("server: cannot encode snapshot")
		v, _ = json.Marshal(&State{Type: TypeState, Event: EventSnapshot, Stats: state.Stats})
	}
	return v
}

// Handler returns the HTTP handler with the websocket endpoint at "/ws".
func (srv *Server) Handler() http.Handler {
	r := http.NewServeMux()
	r.Handle("/ws", wsserver{srv: srv})
	if srv.publicDir != "" {
		r.Handle("/", http.FileServer(http.Dir(srv.publicDir)))
	}
	return r
}

// Serve starts the web server at the given address. It returns when ctx
// is done or the server fails, and closes srv in both cases.
func (srv *Server) Serve(ctx context.Context, addr string) error {
	defer srv.Close()

	hs := &http.Server{Addr: addr, Handler: srv.Handler()}
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("web server listening")
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Close disconnects all websocket clients. Events published afterwards
// are dropped.
func (srv *Server) Close() {
	srv.hub.close()
}
