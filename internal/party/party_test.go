// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package party

import (
	"testing"
	"time"

	"github.com/tomtom215/partysync/internal/models"
	"github.com/tomtom215/partysync/internal/store"
)

func TestParty_UpdateListener(t *testing.T) {
	reg := NewRegistry(nil)
	p := New(actor("host"), actor("host"), t0)
	if err := reg.AddParty(p); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddListener(p.Handle, actor("l")); err != nil {
		t.Fatal(err)
	}

	snap := &models.PlaybackSnapshot{Status: models.StatusPresent, Playing: true}
	connected := true
	prev, ok := p.UpdateListener("l", snap, &connected)
	if !ok || prev.LastSnapshot != nil || prev.RelayConnected != nil {
		t.Fatalf("first update = %+v, %v", prev, ok)
	}
	prev, ok = p.UpdateListener("l", nil, nil)
	if !ok || prev.LastSnapshot != snap || prev.RelayConnected == nil || !*prev.RelayConnected {
		t.Errorf("second update prev = %+v", prev)
	}

	if _, ok := p.UpdateListener("stranger", snap, nil); ok {
		t.Error("update stored for a non-member")
	}

	if err := reg.RemoveListener(p.Handle, "l", RemovalCapabilityRevoked); err != nil {
		t.Fatal(err)
	}
	if _, ok := p.UpdateListener("l", snap, nil); ok {
		t.Error("update stored for a removed listener")
	}
}

func TestParty_EndedIgnoresWrites(t *testing.T) {
	reg := NewRegistry(nil)
	p := New(actor("host"), actor("creator"), t0)
	if err := reg.AddParty(p); err != nil {
		t.Fatal(err)
	}
	reg.RemoveByHandle(p.Handle, EndHostUnauthorized)

	if _, ok := p.SwapReference(&models.PlaybackSnapshot{}); ok {
		t.Error("reference stored after end")
	}
	if _, ok := p.UpdateListener("creator", nil, nil); ok {
		t.Error("listener update stored after end")
	}
	p.Touch(t0.Add(time.Hour))
	if !p.Activity().Equal(t0) {
		t.Errorf("activity moved after end: %v", p.Activity())
	}
}

func TestParty_TouchAndReference(t *testing.T) {
	p := New(actor("host"), actor("host"), t0)
	p.Touch(t0.Add(-time.Minute))
	if !p.Activity().Equal(t0) {
		t.Error("activity moved backwards")
	}
	p.Touch(t0.Add(time.Minute))
	if !p.Activity().Equal(t0.Add(time.Minute)) {
		t.Error("activity not refreshed")
	}

	first := models.AbsentSnapshot(t0)
	prev, ok := p.SwapReference(first)
	if !ok || prev != nil {
		t.Errorf("first swap = %v, %v", prev, ok)
	}
	prev, _ = p.SwapReference(nil)
	if prev != first || p.Reference() != nil {
		t.Error("swap did not replace the reference")
	}
}

func TestParty_BeginReconcile(t *testing.T) {
	p := New(actor("host"), actor("host"), t0)
	if !p.BeginReconcile() {
		t.Fatal("first BeginReconcile failed")
	}
	if p.BeginReconcile() {
		t.Error("second BeginReconcile should fail while held")
	}
	p.EndReconcile()
	if !p.BeginReconcile() {
		t.Error("BeginReconcile failed after release")
	}
}

func TestParty_RecordRoundTrip(t *testing.T) {
	p := New(actor("host"), actor("creator"), t0)
	p.mu.Lock()
	p.addListener(actor("l2"))
	p.mu.Unlock()
	ref := &models.PlaybackSnapshot{Status: models.StatusPresent, ItemID: "T"}
	p.SwapReference(ref)

	rec := p.Record(t0.Add(time.Second))
	if rec.Handle != p.Handle || len(rec.Listeners) != 2 || rec.Reference != ref || !rec.SavedAt.Equal(t0.Add(time.Second)) {
		t.Fatalf("record = %+v", rec)
	}

	back := FromRecord(rec)
	if back.Handle != p.Handle || back.ListenerCount() != 2 || !back.Activity().Equal(t0) || back.Reference().ItemID != "T" {
		t.Errorf("restored = %+v", back.Summary())
	}
}

func TestFromRecord_DropsDuplicateAndHostListeners(t *testing.T) {
	rec := &store.PartyRecord{
		Handle:    "h",
		Host:      actor("host"),
		Creator:   actor("host"),
		Listeners: []models.ActorRef{actor("a"), actor("host"), actor("a"), actor("b")},
		Started:   t0,
		Activity:  t0,
	}
	p := FromRecord(rec)
	got := p.Listeners()
	if len(got) != 2 || got[0].Actor.ID != "a" || got[1].Actor.ID != "b" {
		t.Errorf("listeners = %+v", got)
	}
}

func TestParty_SummaryRevisionIncreases(t *testing.T) {
	p := New(actor("host"), actor("host"), t0)
	first := p.Summary()
	p.mu.Lock()
	p.addListener(actor("l1"))
	p.mu.Unlock()
	second := p.Summary()

	if first.Revision == 0 || second.Revision <= first.Revision {
		t.Errorf("revisions = %d then %d, want increasing and non-zero", first.Revision, second.Revision)
	}
	if len(second.Listeners) != 1 {
		t.Errorf("listeners = %+v", second.Listeners)
	}
}
