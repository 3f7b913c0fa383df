// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package party

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/partysync/internal/logging"
	"github.com/tomtom215/partysync/internal/metrics"
	"github.com/tomtom215/partysync/internal/models"
)

// membership is one entry of the actor index. An actor can hold several
// roles, but only ever in one party.
type membership struct {
	party *Party
	roles []Role
}

func (m *membership) has(role Role) bool {
	for _, r := range m.roles {
		if r == role {
			return true
		}
	}
	return false
}

func (m *membership) drop(role Role) {
	out := m.roles[:0]
	for _, r := range m.roles {
		if r != role {
			out = append(out, r)
		}
	}
	m.roles = out
}

// Search is the result of FindByActor. Party is nil when the actor is in
// no active party.
type Search struct {
	Roles []Role
	Party *Party
}

// Has reports whether the search found the actor in the given role.
func (s Search) Has(role Role) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Registry is the authoritative set of active parties.
//
// Lock order is Registry.mu, then Party.mu. Notifications are delivered
// after both are released.
type Registry struct {
	mu      sync.RWMutex
	parties map[string]*Party
	actors  map[string]*membership

	notifier Notifier
	now      func() time.Time
}

// NewRegistry creates an empty registry. n may be nil.
func NewRegistry(n Notifier) *Registry {
	if n == nil {
		n = nopNotifier{}
	}
	return &Registry{
		parties:  make(map[string]*Party),
		actors:   make(map[string]*membership),
		notifier: n,
		now:      time.Now,
	}
}

// AddParty registers p. It fails with ReasonAlreadyInParty when the host,
// the creator or any listener already belongs to an active party.
func (r *Registry) AddParty(p *Party) error {
	r.mu.Lock()

	if _, dup := r.parties[p.Handle]; dup {
		r.mu.Unlock()
		return fmt.Errorf("party %s is already registered", p.Handle)
	}

	p.mu.Lock()
	members := make([]models.ActorRef, 0, len(p.listeners)+2)
	members = append(members, p.Host, p.Creator)
	for _, l := range p.listeners {
		members = append(members, l.Actor)
	}
	p.mu.Unlock()

	for _, a := range members {
		if m, ok := r.actors[a.ID]; ok && m.party != p {
			r.mu.Unlock()
			return newError(ReasonAlreadyInParty, a.ID, m.party.Handle)
		}
	}

	r.parties[p.Handle] = p
	r.index(p.Host.ID, p, RoleHost)
	r.index(p.Creator.ID, p, RoleCreator)
	for _, a := range members[2:] {
		r.index(a.ID, p, RoleListener)
	}
	total := len(r.parties)
	r.mu.Unlock()

	logging.Info().
		Str("party", p.Handle).
		Str("host", p.Host.ID).
		Str("creator", p.Creator.ID).
		Int("total_parties", total).
		Msg("Party started")
	r.notifier.PartyChanged(p.Summary())
	return nil
}

func (r *Registry) index(actorID string, p *Party, role Role) {
	m, ok := r.actors[actorID]
	if !ok {
		m = &membership{party: p}
		r.actors[actorID] = m
	}
	if !m.has(role) {
		m.roles = append(m.roles, role)
	}
}

// RemoveByHandle tears down the party with the given handle.
func (r *Registry) RemoveByHandle(handle string, reason EndReason) (*Party, bool) {
	r.mu.Lock()
	p, ok := r.parties[handle]
	if !ok {
		r.mu.Unlock()
		return nil, false
	}
	total := r.teardownLocked(p)
	r.mu.Unlock()

	r.ended(p, reason, total)
	return p, true
}

// RemoveByActor tears down the party hosted or created by actorID. An
// empty reason is derived from the role: host_left, else creator_left.
// Listeners cannot end a party; ok is false for them.
func (r *Registry) RemoveByActor(actorID string, reason EndReason) (*Party, bool) {
	r.mu.Lock()
	m, ok := r.actors[actorID]
	if !ok || !(m.has(RoleHost) || m.has(RoleCreator)) {
		r.mu.Unlock()
		return nil, false
	}
	if reason == "" {
		reason = EndCreatorLeft
		if m.has(RoleHost) {
			reason = EndHostLeft
		}
	}
	p := m.party
	total := r.teardownLocked(p)
	r.mu.Unlock()

	r.ended(p, reason, total)
	return p, true
}

func (r *Registry) teardownLocked(p *Party) int {
	delete(r.parties, p.Handle)

	p.mu.Lock()
	p.end(r.now())
	ids := make([]string, 0, len(p.listeners)+2)
	ids = append(ids, p.Host.ID, p.Creator.ID)
	for _, l := range p.listeners {
		ids = append(ids, l.Actor.ID)
	}
	p.mu.Unlock()

	for _, id := range ids {
		if m, ok := r.actors[id]; ok && m.party == p {
			delete(r.actors, id)
		}
	}
	return len(r.parties)
}

func (r *Registry) ended(p *Party, reason EndReason, total int) {
	metrics.PartyTeardowns.WithLabelValues(string(reason)).Inc()
	logging.Info().
		Str("party", p.Handle).
		Str("host", p.Host.ID).
		Str("reason", string(reason)).
		Int("total_parties", total).
		Msg("Party ended")
	r.notifier.PartyEnded(p.Summary(), reason)
}

// FindByActor returns every role actorID holds and the party it holds them in.
func (r *Registry) FindByActor(actorID string) Search {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.actors[actorID]
	if !ok {
		return Search{}
	}
	return Search{Roles: append([]Role(nil), m.roles...), Party: m.party}
}

// FindByHandle returns the active party with the given handle.
func (r *Registry) FindByHandle(handle string) (*Party, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parties[handle]
	return p, ok
}

// AddListener adds actor to the party identified by handle.
func (r *Registry) AddListener(handle string, actor models.ActorRef) error {
	r.mu.Lock()
	p, ok := r.parties[handle]
	if !ok {
		r.mu.Unlock()
		return newError(ReasonPartyNotFound, actor.ID, handle)
	}
	if m, taken := r.actors[actor.ID]; taken {
		r.mu.Unlock()
		return newError(ReasonAlreadyInParty, actor.ID, m.party.Handle)
	}

	p.mu.Lock()
	added := p.ended == nil && p.addListener(actor)
	p.mu.Unlock()
	if !added {
		r.mu.Unlock()
		return newError(ReasonPartyNotFound, actor.ID, handle)
	}
	r.index(actor.ID, p, RoleListener)
	r.mu.Unlock()

	logging.Info().Str("party", handle).Str("actor", actor.ID).Msg("Listener joined party")
	r.notifier.PartyChanged(p.Summary())
	return nil
}

// RemoveListener removes actorID from the listeners of the party
// identified by handle. A creator who nominated another host keeps the
// creator role.
func (r *Registry) RemoveListener(handle, actorID string, reason RemovalReason) error {
	r.mu.Lock()
	p, ok := r.parties[handle]
	if !ok {
		r.mu.Unlock()
		return newError(ReasonPartyNotFound, actorID, handle)
	}
	m, ok := r.actors[actorID]
	if !ok || m.party != p || !m.has(RoleListener) {
		r.mu.Unlock()
		return newError(ReasonNotAListener, actorID, handle)
	}

	p.mu.Lock()
	p.removeListener(actorID)
	p.mu.Unlock()

	m.drop(RoleListener)
	if len(m.roles) == 0 {
		delete(r.actors, actorID)
	}
	r.mu.Unlock()

	metrics.ListenerRemovals.WithLabelValues(string(reason)).Inc()
	logging.Info().
		Str("party", handle).
		Str("actor", actorID).
		Str("reason", string(reason)).
		Msg("Listener removed from party")
	r.notifier.PartyChanged(p.Summary())
	return nil
}

// Parties returns the active parties, oldest first.
func (r *Registry) Parties() []*Party {
	r.mu.RLock()
	out := make([]*Party, 0, len(r.parties))
	for _, p := range r.parties {
		out = append(out, p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Started.Equal(out[j].Started) {
			return out[i].Handle < out[j].Handle
		}
		return out[i].Started.Before(out[j].Started)
	})
	return out
}

// Len returns the number of active parties.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.parties)
}
