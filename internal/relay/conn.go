// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package relay

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/partysync/internal/logging"
)

const maxMessageSize = 4 * 1024

// State is a connection's lifecycle state.
type State int32

const (
	StateActive State = iota
	StateDisplaced
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDisplaced:
		return "displaced"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// conn is one accepted websocket. Writes go through send and are performed
// by writePump only; send is never closed, done signals shutdown. final
// carries the notice for a displaced connection, after which the socket is
// closed.
type conn struct {
	token       string
	subject     string
	ws          *websocket.Conn
	send        chan []byte
	final       chan []byte
	done        chan struct{}
	closeOnce   sync.Once
	state       atomic.Int32
	displaced   atomic.Bool
	connectedAt time.Time
	writeWait   time.Duration
}

func newConn(token, subject string, ws *websocket.Conn, buffer int, writeWait time.Duration) *conn {
	return &conn{
		token:       token,
		subject:     subject,
		ws:          ws,
		send:        make(chan []byte, buffer),
		final:       make(chan []byte, 1),
		done:        make(chan struct{}),
		connectedAt: time.Now(),
		writeWait:   writeWait,
	}
}

func (c *conn) State() State {
	return State(c.state.Load())
}

// enqueue queues a frame if the connection is active. It reports false for
// displaced or closed connections and when the buffer is full.
func (c *conn) enqueue(frame []byte) bool {
	if c.State() != StateActive {
		return false
	}
	return c.push(frame)
}

func (c *conn) push(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// displace moves an active connection to displaced and hands writePump its
// final frame. Only the first call has any effect. Frames still queued on
// send are dropped.
func (c *conn) displace(final []byte) bool {
	if !c.state.CompareAndSwap(int32(StateActive), int32(StateDisplaced)) {
		return false
	}
	c.displaced.Store(true)
	c.final <- final
	return true
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.done)
		_ = c.ws.Close()
	})
}

// readPump drains inbound frames. Clients never send anything meaningful;
// only a transport close is observed.
func (c *conn) readPump(onClose func(*conn, error)) {
	c.ws.SetReadLimit(maxMessageSize)
	var err error
	for {
		if _, _, err = c.ws.ReadMessage(); err != nil {
			break
		}
	}
	onClose(c, err)
}

func (c *conn) writePump() {
	for {
		select {
		case frame := <-c.final:
			if c.write(frame) {
				_ = c.ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "displaced"),
					time.Now().Add(c.writeWait))
			}
			c.close()
			return
		case frame := <-c.send:
			if !c.write(frame) {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *conn) write(frame []byte) bool {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return false
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		logging.Debug().Err(err).Str("token", shortToken(c.token)).Msg("[RELAY] Write failed")
		return false
	}
	return true
}

func shortToken(token string) string {
	if len(token) > 8 {
		return token[:8]
	}
	return token
}
