// Portions of this code are:
// Copyright 2013 The Gorilla WebSocket Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// reply is a message for a single connection.
type reply struct {
	c       *connection
	message []byte
}

// hub maintains the set of active connections and broadcasts messages to
// them. Only the hub goroutine writes to or closes connection.send.
type hub struct {
	// Registered connections.
	connections map[*connection]bool

	// Inbound messages for all connections.
	broadcast chan []byte

	// Inbound messages for a single connection.
	direct chan reply

	// Register requests from the connections.
	register chan *connection

	// Unregister requests from connections.
	unregister chan *connection

	// snapshot returns the first message sent to a new connection.
	snapshot func() []byte

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func newHub(snapshot func() []byte) *hub {
	return &hub{
		connections: make(map[*connection]bool),
		broadcast:   make(chan []byte, 256),
		direct:      make(chan reply),
		register:    make(chan *connection),
		unregister:  make(chan *connection),
		snapshot:    snapshot,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

func (h *hub) run() {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.connections[c] = true
			if h.snapshot != nil {
				h.send(c, h.snapshot())
			}
		case c := <-h.unregister:
			if _, ok := h.connections[c]; ok {
				delete(h.connections, c)
				close(c.send)
			}
		case m := <-h.broadcast:
			for c := range h.connections {
				h.send(c, m)
			}
		case r := <-h.direct:
			if _, ok := h.connections[r.c]; ok {
				h.send(r.c, r.message)
			}
		case <-h.stop:
			for c := range h.connections {
				delete(h.connections, c)
				close(c.send)
			}
			return
		}
	}
}

// send drops connections that cannot keep up.
func (h *hub) send(c *connection, m []byte) {
	select {
	case c.send <- m:
	default:
		log.Warn().Msg("server: dropping slow websocket connection")
		delete(h.connections, c)
		close(c.send)
	}
}

// publish queues m for all connections. It never blocks: messages are
// dropped if the hub is stopped or its buffer is full.
func (h *hub) publish(m []byte) {
	select {
	case h.broadcast <- m:
	case <-h.done:
	default:
		log.Warn().Msg("server: dropping websocket broadcast")
	}
}

func (h *hub) add(c *connection) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *hub) remove(c *connection) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *hub) reply(c *connection, m []byte) {
	select {
	case h.direct <- reply{c: c, message: m}:
	case <-h.done:
	}
}

// close stops the hub and closes all connections. It is safe to call
// more than once.
func (h *hub) close() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}
