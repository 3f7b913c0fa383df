// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package party

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/partysync/internal/logging"
	"github.com/tomtom215/partysync/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

type ended struct {
	handle string
	reason EndReason
}

type recorder struct {
	mu      sync.Mutex
	changed []string
	ended   []ended
}

func (r *recorder) PartyChanged(s Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, s.Handle)
}

func (r *recorder) PartyEnded(s Summary, reason EndReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = append(r.ended, ended{s.Handle, reason})
}

func actor(id string) models.ActorRef {
	return models.ActorRef{ID: id, DisplayName: "user " + id}
}

var t0 = time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)

func TestRegistry_AtMostOneParty(t *testing.T) {
	reg := NewRegistry(nil)
	p1 := New(actor("h1"), actor("h1"), t0)
	if err := reg.AddParty(p1); err != nil {
		t.Fatalf("AddParty: %v", err)
	}
	if err := reg.AddListener(p1.Handle, actor("l1")); err != nil {
		t.Fatalf("AddListener: %v", err)
	}

	tests := []struct {
		name  string
		party *Party
		actor string
	}{
		{"host already hosting", New(actor("h1"), actor("h1"), t0), "h1"},
		{"listener as new host", New(actor("l1"), actor("l1"), t0), "l1"},
		{"creator already listening", New(actor("h2"), actor("l1"), t0), "l1"},
		{"creator already hosting", New(actor("h2"), actor("h1"), t0), "h1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.AddParty(tt.party)
			if !errors.Is(err, ErrAlreadyInParty) {
				t.Fatalf("err = %v, want already_in_party", err)
			}
			var pe *Error
			if !errors.As(err, &pe) || pe.Actor != tt.actor || pe.Handle != p1.Handle {
				t.Errorf("error = %+v", pe)
			}
		})
	}

	if reg.Len() != 1 {
		t.Errorf("Len = %d, want 1", reg.Len())
	}
	if found := reg.FindByActor("h2"); found.Party != nil {
		t.Error("rejected party leaked into the actor index")
	}

	p2 := New(actor("h2"), actor("h2"), t0)
	if err := reg.AddParty(p2); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddListener(p2.Handle, actor("l1")); !errors.Is(err, ErrAlreadyInParty) {
		t.Errorf("joining a second party: %v", err)
	}
	if err := reg.AddListener(p2.Handle, actor("h1")); !errors.Is(err, ErrAlreadyInParty) {
		t.Errorf("host joining another party: %v", err)
	}
}

func TestRegistry_ConcurrentJoinsKeepInvariant(t *testing.T) {
	reg := NewRegistry(nil)
	var handles []string
	for i := 0; i < 8; i++ {
		p := New(actor(fmt.Sprintf("host-%d", i)), actor(fmt.Sprintf("host-%d", i)), t0)
		if err := reg.AddParty(p); err != nil {
			t.Fatal(err)
		}
		handles = append(handles, p.Handle)
	}

	var joined atomic.Int32
	var wg sync.WaitGroup
	for _, h := range handles {
		wg.Add(1)
		go func(h string) {
			defer wg.Done()
			if reg.AddListener(h, actor("everyone")) == nil {
				joined.Add(1)
			}
		}(h)
	}
	wg.Wait()

	if joined.Load() != 1 {
		t.Fatalf("actor joined %d parties, want 1", joined.Load())
	}
	count := 0
	for _, p := range reg.Parties() {
		if p.HasListener("everyone") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("actor listed in %d parties", count)
	}
}

func TestRegistry_FindByActorRoles(t *testing.T) {
	reg := NewRegistry(nil)
	p := New(actor("host"), actor("creator"), t0)
	if err := reg.AddParty(p); err != nil {
		t.Fatal(err)
	}

	if got := p.Listeners(); len(got) != 1 || got[0].Actor.ID != "creator" {
		t.Fatalf("listeners = %+v, want the creator", got)
	}

	creator := reg.FindByActor("creator")
	if creator.Party != p || !creator.Has(RoleCreator) || !creator.Has(RoleListener) || creator.Has(RoleHost) {
		t.Errorf("creator search = %+v", creator)
	}
	host := reg.FindByActor("host")
	if !host.Has(RoleHost) || host.Has(RoleListener) {
		t.Errorf("host search = %+v", host)
	}
	if none := reg.FindByActor("nobody"); none.Party != nil || len(none.Roles) != 0 {
		t.Errorf("stranger search = %+v", none)
	}

	self := New(actor("solo"), actor("solo"), t0)
	if err := reg.AddParty(self); err != nil {
		t.Fatal(err)
	}
	solo := reg.FindByActor("solo")
	if !solo.Has(RoleHost) || !solo.Has(RoleCreator) || self.ListenerCount() != 0 {
		t.Errorf("solo search = %+v, listeners %d", solo, self.ListenerCount())
	}

	if got, ok := reg.FindByHandle(p.Handle); !ok || got != p {
		t.Error("FindByHandle did not return the party")
	}
}

func TestRegistry_RemoveByActor(t *testing.T) {
	tests := []struct {
		name   string
		remove string
		ok     bool
		reason EndReason
	}{
		{"host ends", "host", true, EndHostLeft},
		{"creator ends", "creator", true, EndCreatorLeft},
		{"listener cannot end", "listener", false, ""},
		{"stranger", "stranger", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			reg := NewRegistry(rec)
			p := New(actor("host"), actor("creator"), t0)
			if err := reg.AddParty(p); err != nil {
				t.Fatal(err)
			}
			if err := reg.AddListener(p.Handle, actor("listener")); err != nil {
				t.Fatal(err)
			}

			got, ok := reg.RemoveByActor(tt.remove, "")
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				if !p.Active() || len(rec.ended) != 0 {
					t.Error("party should still be active")
				}
				return
			}
			if got != p || p.Active() {
				t.Error("party should have ended")
			}
			if len(rec.ended) != 1 || rec.ended[0].reason != tt.reason {
				t.Errorf("ended = %+v, want one %s", rec.ended, tt.reason)
			}
			if p.Summary().Ended == nil {
				t.Error("summary has no end time")
			}
			for _, id := range []string{"host", "creator", "listener"} {
				if reg.FindByActor(id).Party != nil {
					t.Errorf("%s still indexed after teardown", id)
				}
			}
		})
	}
}

func TestRegistry_RemoveByHandle(t *testing.T) {
	rec := &recorder{}
	reg := NewRegistry(rec)
	p := New(actor("host"), actor("host"), t0)
	if err := reg.AddParty(p); err != nil {
		t.Fatal(err)
	}

	if _, ok := reg.RemoveByHandle("unknown", EndHandleInvalidated); ok {
		t.Error("unknown handle removed")
	}
	if _, ok := reg.RemoveByHandle(p.Handle, EndInactivity); !ok {
		t.Fatal("RemoveByHandle failed")
	}
	if _, ok := reg.RemoveByHandle(p.Handle, EndInactivity); ok {
		t.Error("second removal should fail")
	}
	if len(rec.ended) != 1 || rec.ended[0] != (ended{p.Handle, EndInactivity}) {
		t.Errorf("ended = %+v", rec.ended)
	}
	if len(rec.changed) != 1 {
		t.Errorf("changed = %v, want the AddParty notification only", rec.changed)
	}

	// The host is free to start again.
	if err := reg.AddParty(New(actor("host"), actor("host"), t0)); err != nil {
		t.Errorf("restart after teardown: %v", err)
	}
}

func TestRegistry_RemoveListener(t *testing.T) {
	reg := NewRegistry(nil)
	p := New(actor("host"), actor("creator"), t0)
	if err := reg.AddParty(p); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddListener(p.Handle, actor("l1")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		handle  string
		actorID string
		want    error
	}{
		{"unknown party", "nope", "l1", ErrPartyNotFound},
		{"host is not a listener", p.Handle, "host", ErrNotAListener},
		{"stranger", p.Handle, "stranger", ErrNotAListener},
		{"listener", p.Handle, "l1", nil},
		{"same listener twice", p.Handle, "l1", ErrNotAListener},
		{"creator stops listening", p.Handle, "creator", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.RemoveListener(tt.handle, tt.actorID, RemovalLeft)
			if tt.want == nil && err != nil || tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if p.ListenerCount() != 0 {
		t.Errorf("listeners = %d", p.ListenerCount())
	}
	creator := reg.FindByActor("creator")
	if creator.Party != p || !creator.Has(RoleCreator) || creator.Has(RoleListener) {
		t.Errorf("creator after leaving = %+v", creator)
	}
	if reg.FindByActor("l1").Party != nil {
		t.Error("l1 still indexed")
	}
}

func TestRegistry_AddListenerErrors(t *testing.T) {
	reg := NewRegistry(nil)
	if err := reg.AddListener("missing", actor("a")); !errors.Is(err, ErrPartyNotFound) {
		t.Errorf("err = %v", err)
	}

	p := New(actor("host"), actor("host"), t0)
	if err := reg.AddParty(p); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddParty(p); err == nil {
		t.Error("duplicate handle accepted")
	}
}

func TestRegistry_PartiesOldestFirst(t *testing.T) {
	reg := NewRegistry(nil)
	late := New(actor("b"), actor("b"), t0.Add(time.Minute))
	early := New(actor("a"), actor("a"), t0)
	for _, p := range []*Party{late, early} {
		if err := reg.AddParty(p); err != nil {
			t.Fatal(err)
		}
	}
	got := reg.Parties()
	if len(got) != 2 || got[0] != early || got[1] != late {
		t.Errorf("order = %v, %v", got[0].Host.ID, got[1].Host.ID)
	}
}

func TestError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", newError(ReasonNotEligible, "a", "h"))
	if !errors.Is(err, ErrNotEligible) || errors.Is(err, ErrNotAListener) {
		t.Error("Is should match on reason only")
	}
	if r, ok := ReasonOf(err); !ok || r != ReasonNotEligible {
		t.Errorf("ReasonOf = %q, %v", r, ok)
	}
	if _, ok := ReasonOf(errors.New("other")); ok {
		t.Error("ReasonOf matched a plain error")
	}
	if got := newError(ReasonPartyNotFound, "", "h").Error(); got != "party h: party_not_found" {
		t.Errorf("Error() = %q", got)
	}
}
