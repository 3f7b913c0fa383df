// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package party

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/partysync/internal/models"
	"github.com/tomtom215/partysync/internal/store"
)

// Role is an actor's relation to a party.
type Role string

const (
	RoleHost     Role = "host"
	RoleCreator  Role = "creator"
	RoleListener Role = "listener"
)

// Listener is one member being kept in sync with the host.
type Listener struct {
	Actor        models.ActorRef
	LastSnapshot *models.PlaybackSnapshot

	// RelayConnected is nil when the listener has no relay capability.
	RelayConnected *bool
}

// Party is a group of listeners following one host session.
//
// Handle, Host, Creator and Started never change. Everything else is
// guarded by mu; callers see copies.
type Party struct {
	Handle  string
	Host    models.ActorRef
	Creator models.ActorRef
	Started time.Time

	mu        sync.Mutex
	listeners []*Listener
	reference *models.PlaybackSnapshot
	activity  time.Time
	ended     *time.Time
	revision  uint64

	reconciling atomic.Bool
}

// New creates a party started now. When the creator nominates someone else
// as host, the creator joins as the first listener.
func New(host, creator models.ActorRef, now time.Time) *Party {
	p := &Party{
		Handle:   uuid.NewString(),
		Host:     host,
		Creator:  creator,
		Started:  now,
		activity: now,
	}
	if creator.ID != host.ID {
		p.listeners = []*Listener{{Actor: creator}}
	}
	return p
}

// FromRecord rebuilds a checkpointed party. Activity is preserved so an
// idle party still times out on the first tick after a restart.
func FromRecord(rec *store.PartyRecord) *Party {
	p := &Party{
		Handle:    rec.Handle,
		Host:      rec.Host,
		Creator:   rec.Creator,
		Started:   rec.Started,
		reference: rec.Reference,
		activity:  rec.Activity,
	}
	seen := make(map[string]bool, len(rec.Listeners))
	for _, a := range rec.Listeners {
		if seen[a.ID] || a.ID == rec.Host.ID {
			continue
		}
		seen[a.ID] = true
		p.listeners = append(p.listeners, &Listener{Actor: a})
	}
	return p
}

// Active reports whether the party has not ended.
func (p *Party) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ended == nil
}

// Activity returns the last time host and a listener were both playing.
func (p *Party) Activity() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activity
}

// Touch records activity. Ignored once the party has ended.
func (p *Party) Touch(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ended == nil && now.After(p.activity) {
		p.activity = now
	}
}

// Reference returns the host snapshot captured on the previous tick.
func (p *Party) Reference() *models.PlaybackSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reference
}

// SwapReference replaces the reference snapshot and returns the previous
// one. ok is false when the party has ended; nothing is stored then.
func (p *Party) SwapReference(snap *models.PlaybackSnapshot) (prev *models.PlaybackSnapshot, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ended != nil {
		return p.reference, false
	}
	prev = p.reference
	p.reference = snap
	return prev, true
}

// Listeners returns copies of the current listeners in join order.
func (p *Party) Listeners() []Listener {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Listener, len(p.listeners))
	for i, l := range p.listeners {
		out[i] = *l
	}
	return out
}

// ListenerCount returns the number of listeners.
func (p *Party) ListenerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

// HasListener reports whether actorID is currently a listener.
func (p *Party) HasListener(actorID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.indexOf(actorID) >= 0
}

// UpdateListener stores the state observed for a listener this tick and
// returns what was stored before. ok is false when the party has ended or
// the actor is no longer a listener; nothing is stored then.
func (p *Party) UpdateListener(actorID string, snap *models.PlaybackSnapshot, relayConnected *bool) (prev Listener, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ended != nil {
		return Listener{}, false
	}
	i := p.indexOf(actorID)
	if i < 0 {
		return Listener{}, false
	}
	l := p.listeners[i]
	prev = *l
	l.LastSnapshot = snap
	l.RelayConnected = relayConnected
	return prev, true
}

// BeginReconcile marks the party as being reconciled. It returns false if a
// previous tick still holds it.
func (p *Party) BeginReconcile() bool {
	return p.reconciling.CompareAndSwap(false, true)
}

// EndReconcile releases the mark set by BeginReconcile.
func (p *Party) EndReconcile() {
	p.reconciling.Store(false)
}

// Record returns the persisted form of the party.
func (p *Party) Record(now time.Time) *store.PartyRecord {
	return p.Summary().Record(now)
}

// The methods below require p.mu to be held.

func (p *Party) indexOf(actorID string) int {
	for i, l := range p.listeners {
		if l.Actor.ID == actorID {
			return i
		}
	}
	return -1
}

func (p *Party) addListener(actor models.ActorRef) bool {
	if p.indexOf(actor.ID) >= 0 {
		return false
	}
	p.listeners = append(p.listeners, &Listener{Actor: actor})
	return true
}

func (p *Party) removeListener(actorID string) bool {
	i := p.indexOf(actorID)
	if i < 0 {
		return false
	}
	p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
	return true
}

func (p *Party) end(now time.Time) {
	if p.ended == nil {
		p.ended = &now
	}
}
