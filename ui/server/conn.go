// Portions of this code are:
// Copyright 2013 The Gorilla WebSocket Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/olivere/jobqueue/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// connection is an middleman between the websocket connection and the hub.
type connection struct {
	// The websocket connection.
	ws *websocket.Conn
	// Buffered channel of outbound messages.
	send chan []byte
	srv  *Server
}

// Request is a message sent by a client.
type Request struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// LookupResponse answers a JOB_LOOKUP request.
type LookupResponse struct {
	Type    string        `json:"type"`
	Message string        `json:"message,omitempty"`
	Job     *jobqueue.Job `json:"job,omitempty"`
}

// readPump pumps messages from the websocket connection to the hub.
func (c *connection) readPump() {
	defer func() {
		c.srv.hub.remove(c)
		c.ws.Close()
	}()
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		var msg Request
		err := c.ws.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("server: websocket read failed")
			}
			break
		}
		switch msg.Type {
		case TypeJobLookup:
			rsp := LookupResponse{Type: TypeJobLookup}
			job, err := c.srv.q.Lookup(msg.ID)
			if err != nil {
				rsp.Message = "Job cannot be found"
			} else {
				rsp.Job = job
			}
			payload, err := json.Marshal(rsp)
			if err != nil {
				log.Error().Err(err).Str("job", msg.ID).Msg("server: cannot encode job")
				continue
			}
			c.srv.hub.reply(c, payload)
		default:
			log.Debug().Str("type", msg.Type).Msg("server: ignoring unknown request")
		}
	}
}

// write writes a message with the given message type and payload.
func (c *connection) write(mt int, payload []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(mt, payload)
}

// writePump pumps messages from the hub to the websocket connection.
func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}

type wsserver struct {
	srv *Server
}

// ServeHTTP handles websocket requests from the peer.
func (s wsserver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("server: websocket upgrade failed")
		return
	}
	c := &connection{send: make(chan []byte, 256), ws: ws, srv: s.srv}
	if !s.srv.hub.add(c) {
		ws.Close()
		return
	}
	go c.writePump()
	c.readPump()
}
