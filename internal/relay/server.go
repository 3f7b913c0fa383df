// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package relay

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/partysync/internal/config"
	"github.com/tomtom215/partysync/internal/logging"
	"github.com/tomtom215/partysync/internal/metrics"
	"github.com/tomtom215/partysync/internal/models"
	"github.com/tomtom215/partysync/internal/store"
)

// TokenResolver finds the subject that owns a direct-control token.
// store.CredentialStore satisfies it.
type TokenResolver interface {
	GetByDirectToken(ctx context.Context, token string) (*models.Credential, error)
}

// Server accepts relay connections and pushes commands to them.
//
// At most one connection per token is active. A newer connection with the
// same token displaces the older one, which receives a single inactive
// frame followed by a close.
type Server struct {
	cfg      config.RelayConfig
	resolver TokenResolver
	upgrader websocket.Upgrader
	now      func() time.Time
	running  atomic.Bool

	mu     sync.RWMutex
	active map[string]*conn
	open   map[*conn]struct{}
}

// NewServer creates a relay server.
func NewServer(cfg config.RelayConfig, resolver TokenResolver) *Server {
	s := &Server{
		cfg:      cfg,
		resolver: resolver,
		now:      time.Now,
		active:   make(map[string]*conn),
		open:     make(map[*conn]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: cfg.HandshakeTimeout,
		CheckOrigin:      s.checkOrigin,
	}
	return s
}

// checkOrigin allows any origin unless an allow-list is configured. The
// desktop client does not send a browser origin.
func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", origin).Msg("[RELAY] Connection rejected from unauthorized origin")
	return false
}

// Handshake results, used as the metrics label.
const (
	handshakeAccepted       = "accepted"
	handshakeInvalidFormat  = "invalid_format"
	handshakeReservedFormat = "reserved_format"
	handshakeUnknownSubject = "unknown_subject"
	handshakeUpgradeFailed  = "upgrade_failed"
)

// Handler upgrades a relay connection. The token is the single websocket
// sub-protocol offered by the client.
func (s *Server) Handler(w http.ResponseWriter, r *http.Request) {
	protocols := websocket.Subprotocols(r)
	token := ""
	if len(protocols) == 1 {
		token = protocols[0]
	}

	logging.Debug().Str("token", shortToken(token)).Msg("[RELAY] Client connecting")

	switch len(token) {
	case models.DirectControlTokenLength:
	case models.ReservedTokenLength:
		metrics.RelayHandshakes.WithLabelValues(handshakeReservedFormat).Inc()
		logging.Info().Str("token", shortToken(token)).Msg("[RELAY] Connection refused, reserved token format")
		http.Error(w, "token format not accepted", http.StatusForbidden)
		return
	default:
		metrics.RelayHandshakes.WithLabelValues(handshakeInvalidFormat).Inc()
		logging.Info().Int("length", len(token)).Msg("[RELAY] Connection failed, invalid token format")
		http.Error(w, "invalid token", http.StatusBadRequest)
		return
	}

	cred, err := s.resolver.GetByDirectToken(r.Context(), token)
	if err != nil {
		metrics.RelayHandshakes.WithLabelValues(handshakeUnknownSubject).Inc()
		if !errors.Is(err, store.ErrNotFound) {
			logging.Warn().Err(err).Str("token", shortToken(token)).Msg("[RELAY] Token lookup failed")
		} else {
			logging.Info().Str("token", shortToken(token)).Msg("[RELAY] Connection failed, subject not found")
		}
		http.Error(w, "unknown token", http.StatusForbidden)
		return
	}

	upgrader := s.upgrader
	upgrader.Subprotocols = []string{token}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.RelayHandshakes.WithLabelValues(handshakeUpgradeFailed).Inc()
		logging.Warn().Err(err).Str("token", shortToken(token)).Msg("[RELAY] Upgrade failed")
		return
	}
	metrics.RelayHandshakes.WithLabelValues(handshakeAccepted).Inc()

	c := newConn(token, cred.SubjectID, ws, s.cfg.SendBuffer, s.cfg.WriteTimeout)
	s.register(c)

	go c.writePump()
	go c.readPump(s.unregister)
}

func (s *Server) register(c *conn) {
	inactive, _ := NewMessage(MessageInactive, "", s.now().UnixMilli()).encode()

	s.mu.Lock()
	old := s.active[c.token]
	s.active[c.token] = c
	s.open[c] = struct{}{}
	count := len(s.active)
	s.mu.Unlock()

	if old != nil && old.displace(inactive) {
		metrics.RelayDisplacements.Inc()
		logging.Info().Str("token", shortToken(c.token)).Msg("[RELAY] Subject already connected, deactivating old socket")
	}
	metrics.RelayConnectionsActive.Set(float64(count))

	logging.Info().
		Str("token", shortToken(c.token)).
		Str("subject", c.subject).
		Msg("[RELAY] Client connected")
}

func (s *Server) unregister(c *conn, err error) {
	displaced := c.displaced.Load()

	s.mu.Lock()
	if s.active[c.token] == c {
		delete(s.active, c.token)
	}
	delete(s.open, c)
	count := len(s.active)
	s.mu.Unlock()

	c.close()
	metrics.RelayConnectionsActive.Set(float64(count))

	event := logging.Info().Str("token", shortToken(c.token)).Bool("displaced", displaced)
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		event = event.Int("code", ce.Code).Str("reason", ce.Text)
	}
	event.Dur("connected_for", s.now().Sub(c.connectedAt)).Msg("[RELAY] Client disconnected")
}

// Connected reports whether token has an active connection.
func (s *Server) Connected(token string) bool {
	s.mu.RLock()
	c := s.active[token]
	s.mu.RUnlock()
	return c != nil && c.State() == StateActive
}

// Send pushes a command to the active connection for token. It returns
// false when no active connection matches or the frame cannot be queued.
func (s *Server) Send(token string, kind MessageType, uri string, positionMs int64) bool {
	s.mu.RLock()
	c := s.active[token]
	s.mu.RUnlock()
	if c == nil {
		metrics.RecordRelaySend(string(kind), false)
		return false
	}

	frame, err := NewMessage(kind, uri, positionMs).encode()
	if err != nil {
		metrics.RecordRelaySend(string(kind), false)
		return false
	}
	ok := c.enqueue(frame)
	metrics.RecordRelaySend(string(kind), ok)
	return ok
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}

// pingAll queues a ping on every active connection. Missing replies never
// close a connection.
func (s *Server) pingAll() int {
	frame, _ := NewMessage(MessagePing, "", s.now().UnixMilli()).encode()

	s.mu.RLock()
	targets := make([]*conn, 0, len(s.active))
	for _, c := range s.active {
		targets = append(targets, c)
	}
	s.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if c.enqueue(frame) {
			sent++
		}
	}
	return sent
}

// Run sends keepalive pings until ctx is done, then closes every open
// connection.
func (s *Server) Run(ctx context.Context) error {
	s.running.Store(true)
	defer s.running.Store(false)

	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			closed := s.closeAll()
			logging.Info().
				Str("component", "relay").
				Int("connections_closed", closed).
				Msg("Relay stopped")
			return ctx.Err()
		case <-ticker.C:
			s.pingAll()
		}
	}
}

// Running reports whether Run is active.
func (s *Server) Running() bool {
	return s.running.Load()
}

func (s *Server) closeAll() int {
	s.mu.Lock()
	conns := make([]*conn, 0, len(s.open))
	for c := range s.open {
		conns = append(conns, c)
	}
	s.active = make(map[string]*conn)
	s.open = make(map[*conn]struct{})
	s.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
	metrics.RelayConnectionsActive.Set(0)
	return len(conns)
}
