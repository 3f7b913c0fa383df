// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package party

import (
	"time"

	"github.com/tomtom215/partysync/internal/models"
	"github.com/tomtom215/partysync/internal/store"
)

// ListenerSummary is the externally visible state of one listener.
type ListenerSummary struct {
	Actor          models.ActorRef          `json:"actor"`
	Snapshot       *models.PlaybackSnapshot `json:"snapshot"`
	RelayConnected *bool                    `json:"relay_connected,omitempty"`
}

// Summary is the externally visible state of a party, as rendered by the
// presentation layer and carried on party events.
type Summary struct {
	Handle    string                   `json:"handle"`
	Host      models.ActorRef          `json:"host"`
	Creator   models.ActorRef          `json:"creator"`
	Listeners []ListenerSummary        `json:"listeners"`
	Reference *models.PlaybackSnapshot `json:"reference"`
	Activity  time.Time                `json:"activity"`
	Started   time.Time                `json:"started"`
	Ended     *time.Time               `json:"ended,omitempty"`

	// Revision increases with every summary taken of the same party.
	// Zero means unknown.
	Revision uint64 `json:"revision,omitempty"`
}

// Summary returns a consistent copy of the party state.
func (p *Party) Summary() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revision++
	s := Summary{
		Handle:    p.Handle,
		Host:      p.Host,
		Creator:   p.Creator,
		Listeners: make([]ListenerSummary, len(p.listeners)),
		Reference: p.reference,
		Activity:  p.activity,
		Started:   p.Started,
		Revision:  p.revision,
	}
	if p.ended != nil {
		t := *p.ended
		s.Ended = &t
	}
	for i, l := range p.listeners {
		s.Listeners[i] = ListenerSummary{Actor: l.Actor, Snapshot: l.LastSnapshot, RelayConnected: l.RelayConnected}
	}
	return s
}

// Record converts a summary to its checkpoint form.
func (s Summary) Record(now time.Time) *store.PartyRecord {
	rec := &store.PartyRecord{
		Handle:    s.Handle,
		Host:      s.Host,
		Creator:   s.Creator,
		Listeners: make([]models.ActorRef, len(s.Listeners)),
		Reference: s.Reference,
		Activity:  s.Activity,
		Started:   s.Started,
		SavedAt:   now,
	}
	for i, l := range s.Listeners {
		rec.Listeners[i] = l.Actor
	}
	return rec
}

// Notifier receives party lifecycle notifications. Implementations must
// not call back into the Registry synchronously.
type Notifier interface {
	PartyChanged(s Summary)
	PartyEnded(s Summary, reason EndReason)
}

type nopNotifier struct{}

func (nopNotifier) PartyChanged(Summary) {}
func (nopNotifier) PartyEnded(Summary, EndReason) {}
