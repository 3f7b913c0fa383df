// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package models

import (
	"testing"
	"time"
)

func TestPlaybackSnapshot_NilSafe(t *testing.T) {
	var s *PlaybackSnapshot

	if s.Present() || s.IsPlaying() || s.IsStopped() || s.IsLocalTrack() || s.Forbids(ActionPause) {
		t.Error("nil snapshot should report false for every predicate")
	}
	if s.Kind() != ItemKindUnknown {
		t.Errorf("Kind() = %q, want unknown", s.Kind())
	}
	if s.CurrentItemID() != "" || s.Progress() != 0 {
		t.Error("nil snapshot should have no item and zero progress")
	}
}

func TestPlaybackSnapshot_AbsentIsNotStopped(t *testing.T) {
	s := AbsentSnapshot(time.Now())
	if s.Present() {
		t.Error("absent snapshot reports Present")
	}
	if s.IsStopped() {
		t.Error("absent snapshot should not count as stopped")
	}
}

func TestPlaybackSnapshot_Predicates(t *testing.T) {
	s := &PlaybackSnapshot{
		Status:     StatusPresent,
		Playing:    false,
		ItemKind:   ItemKindTrack,
		ItemLocal:  true,
		ProgressMs: 1200,
		Disallowed: NewActionSet(ActionSeek, ActionSkipPrev),
	}

	if !s.IsStopped() {
		t.Error("expected IsStopped")
	}
	if !s.IsLocalTrack() {
		t.Error("expected IsLocalTrack")
	}
	if !s.Forbids(ActionSeek) || !s.Forbids(ActionSkipPrev) {
		t.Error("expected seek and skip-prev to be forbidden")
	}
	if s.Forbids(ActionPause) {
		t.Error("pause should be allowed")
	}
	if s.Progress() != 1200 {
		t.Errorf("Progress() = %d", s.Progress())
	}
}

func TestParseItemKind(t *testing.T) {
	tests := map[string]ItemKind{
		"track":   ItemKindTrack,
		"episode": ItemKindEpisode,
		"ad":      ItemKindAd,
		"unknown": ItemKindUnknown,
		"":        ItemKindUnknown,
		"podcast": ItemKindUnknown,
	}
	for in, want := range tests {
		if got := ParseItemKind(in); got != want {
			t.Errorf("ParseItemKind(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCredential_Capabilities(t *testing.T) {
	tests := []struct {
		name         string
		cred         *Credential
		premium      bool
		direct       bool
		controllable bool
	}{
		{"nil", nil, false, false, false},
		{"free", &Credential{Tier: TierFree}, false, false, false},
		{"premium", &Credential{Tier: TierPremium}, true, false, true},
		{"free with relay", &Credential{Tier: TierFree, DirectControlToken: "t"}, false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cred.Premium(); got != tt.premium {
				t.Errorf("Premium() = %v", got)
			}
			if got := tt.cred.HasDirectControl(); got != tt.direct {
				t.Errorf("HasDirectControl() = %v", got)
			}
			if got := tt.cred.Controllable(); got != tt.controllable {
				t.Errorf("Controllable() = %v", got)
			}
		})
	}
}
