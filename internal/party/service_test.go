// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package party

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/partysync/internal/models"
	"github.com/tomtom215/partysync/internal/store"
)

func newService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	ctx := context.Background()
	creds := []*models.Credential{
		{SubjectID: "premium", RefreshToken: "r", Tier: models.TierPremium},
		{SubjectID: "premium2", RefreshToken: "r", Tier: models.TierPremium},
		{SubjectID: "free", RefreshToken: "r", Tier: models.TierFree},
		{SubjectID: "paired", RefreshToken: "r", Tier: models.TierFree, DirectControlToken: "00000000-0000-0000-0000-000000000001"},
	}
	for _, c := range creds {
		if _, err := st.Save(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	svc := NewService(NewRegistry(nil), st, st)
	svc.now = func() time.Time { return t0 }
	return svc, st
}

func ref(id string) *models.ActorRef {
	a := actor(id)
	return &a
}

func TestService_Start(t *testing.T) {
	tests := []struct {
		name    string
		creator string
		host    *models.ActorRef
		want    error
	}{
		{"self host", "free", nil, nil},
		{"self host named explicitly", "free", ref("free"), nil},
		{"self host not logged in", "ghost", nil, ErrReauthRequired},
		{"nominate host", "premium", ref("premium2"), nil},
		{"paired creator may nominate", "paired", ref("premium"), nil},
		{"free creator cannot follow", "free", ref("premium"), ErrNotEligible},
		{"creator not logged in", "ghost", ref("premium"), ErrReauthRequired},
		{"host not logged in", "premium", ref("ghost"), ErrTargetNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t)
			p, err := svc.Start(context.Background(), actor(tt.creator), tt.host)
			if tt.want != nil {
				if !errors.Is(err, tt.want) {
					t.Fatalf("err = %v, want %v", err, tt.want)
				}
				if svc.Registry().Len() != 0 {
					t.Error("party registered despite rejection")
				}
				return
			}
			if err != nil {
				t.Fatalf("Start: %v", err)
			}
			if p.Creator.ID != tt.creator || !p.Started.Equal(t0) {
				t.Errorf("party = %+v", p.Summary())
			}
			if tt.host != nil && tt.host.ID != tt.creator {
				if p.Host.ID != tt.host.ID || !p.HasListener(tt.creator) {
					t.Errorf("nominated party = %+v", p.Summary())
				}
			}
		})
	}
}

func TestService_StartJoinsExistingHostParty(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	hosted, err := svc.Start(ctx, actor("premium2"), nil)
	if err != nil {
		t.Fatal(err)
	}
	joined, err := svc.Start(ctx, actor("premium"), ref("premium2"))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if joined != hosted || !hosted.HasListener("premium") || svc.Registry().Len() != 1 {
		t.Error("creator should have joined the existing party")
	}
	if _, err := svc.Start(ctx, actor("premium"), nil); !errors.Is(err, ErrAlreadyInParty) {
		t.Errorf("second start err = %v", err)
	}
}

func TestService_JoinLeaveEnd(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	p, err := svc.Start(ctx, actor("premium"), nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Join(ctx, p.Handle, actor("free")); !errors.Is(err, ErrNotEligible) {
		t.Errorf("free join err = %v", err)
	}
	if _, err := svc.Join(ctx, p.Handle, actor("ghost")); !errors.Is(err, ErrReauthRequired) {
		t.Errorf("ghost join err = %v", err)
	}
	if _, err := svc.Join(ctx, "missing", actor("paired")); !errors.Is(err, ErrPartyNotFound) {
		t.Errorf("missing party err = %v", err)
	}
	if _, err := svc.Join(ctx, p.Handle, actor("paired")); err != nil {
		t.Fatalf("paired join: %v", err)
	}

	if _, err := svc.Leave("premium"); !errors.Is(err, ErrNotAListener) {
		t.Errorf("host leave err = %v", err)
	}
	if _, err := svc.Leave("paired"); err != nil {
		t.Errorf("leave: %v", err)
	}
	if _, err := svc.Leave("paired"); !errors.Is(err, ErrNotAListener) {
		t.Errorf("second leave err = %v", err)
	}

	if _, err := svc.End("paired"); !errors.Is(err, ErrPartyNotFound) {
		t.Errorf("stranger end err = %v", err)
	}
	if ended, err := svc.End("premium"); err != nil || ended != p || p.Active() {
		t.Errorf("End = %v, %v", ended, err)
	}
}

func TestService_Invalidate(t *testing.T) {
	svc, _ := newService(t)
	p, err := svc.Start(context.Background(), actor("premium"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Invalidate("missing"); !errors.Is(err, ErrPartyNotFound) {
		t.Errorf("err = %v", err)
	}
	if _, err := svc.Invalidate(p.Handle); err != nil || p.Active() {
		t.Errorf("Invalidate = %v, active %v", err, p.Active())
	}
}

func TestService_Restore(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	first := &store.PartyRecord{
		Handle:    "first",
		Host:      actor("premium"),
		Creator:   actor("premium"),
		Listeners: []models.ActorRef{actor("paired")},
		Started:   t0,
		Activity:  t0,
	}
	// Conflicts with first: premium cannot be in two parties.
	second := &store.PartyRecord{
		Handle:    "second",
		Host:      actor("premium2"),
		Creator:   actor("premium2"),
		Listeners: []models.ActorRef{actor("premium")},
		Started:   t0.Add(time.Second),
		Activity:  t0,
	}
	for _, rec := range []*store.PartyRecord{first, second} {
		if err := st.SaveParty(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	n, err := svc.Restore(ctx)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if n != 1 {
		t.Fatalf("restored %d, want 1", n)
	}
	p, ok := svc.Registry().FindByHandle("first")
	if !ok || !p.HasListener("paired") || !p.Activity().Equal(t0) {
		t.Errorf("restored party = %+v", p)
	}

	left, _ := st.ListParties(ctx)
	if len(left) != 1 || left[0].Handle != "first" {
		t.Errorf("saved parties after restore = %d", len(left))
	}

	if n, err := NewService(NewRegistry(nil), st, nil).Restore(ctx); n != 0 || err != nil {
		t.Errorf("restore without party store = %d, %v", n, err)
	}
}
