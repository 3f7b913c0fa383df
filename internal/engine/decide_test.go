// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package engine

import (
	"testing"
	"time"

	"github.com/tomtom215/partysync/internal/models"
)

type snapOpt func(*models.PlaybackSnapshot)

func playing(item string, progress int64, opts ...snapOpt) *models.PlaybackSnapshot {
	s := &models.PlaybackSnapshot{
		Status:     models.StatusPresent,
		Playing:    true,
		ItemID:     item,
		ItemURI:    "spotify:track:" + item,
		ItemKind:   models.ItemKindTrack,
		ProgressMs: progress,
		HasDevice:  true,
		Device:     models.Device{Type: "Computer", Active: true},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func stopped(item string, progress int64, opts ...snapOpt) *models.PlaybackSnapshot {
	return playing(item, progress, append([]snapOpt{func(s *models.PlaybackSnapshot) { s.Playing = false }}, opts...)...)
}

func kind(k models.ItemKind) snapOpt {
	return func(s *models.PlaybackSnapshot) { s.ItemKind = k }
}

func local() snapOpt {
	return func(s *models.PlaybackSnapshot) { s.ItemLocal = true }
}

func forbids(actions ...models.Action) snapOpt {
	return func(s *models.PlaybackSnapshot) { s.Disallowed = models.NewActionSet(actions...) }
}

func TestDecide(t *testing.T) {
	d := newDecider(5 * time.Second)
	absent := models.AbsentSnapshot(time.Time{})

	tests := []struct {
		name     string
		host     *models.PlaybackSnapshot
		listener *models.PlaybackSnapshot
		want     Decision
		rule     string
	}{
		{"in sync", playing("T", 10000), playing("T", 10050), DecideNone, "in_sync"},
		{"trails by 5000", playing("T", 10000), playing("T", 5000), DecideStart, "listener_behind"},
		{"trails by 4999", playing("T", 10000), playing("T", 5001), DecideNone, "in_sync"},
		{"leads by 5000", playing("T", 10000), playing("T", 15000), DecideStart, "listener_ahead"},
		{"leads by 4999", playing("T", 10000), playing("T", 14999), DecideNone, "in_sync"},
		{"different item", playing("T", 10000), playing("U", 10000), DecideStart, "item_differs"},
		{"listener stopped", playing("T", 10000), stopped("T", 10000), DecideStart, "listener_stopped"},
		{"listener unknown", playing("T", 10000), nil, DecideStart, "listener_unknown"},
		{"listener absent", playing("T", 10000), absent, DecideStart, "item_differs"},
		{"listener forbids seek", playing("T", 10000), playing("T", 0, forbids(models.ActionSeek)), DecideNone, "listener_forbids_seek"},

		{"host unknown, listener playing", nil, playing("T", 0), DecidePause, "host_unknown"},
		{"host unknown, listener unknown", nil, nil, DecidePause, "host_not_track"},
		{"host absent", absent, playing("T", 0), DecidePause, "host_not_track"},
		{"host on episode", playing("E", 0, kind(models.ItemKindEpisode)), playing("T", 0), DecidePause, "host_not_track"},
		{"host paused", stopped("T", 10000), playing("T", 10000), DecidePause, "host_stopped"},
		{"host local track", playing("L", 0, local()), playing("T", 0), DecidePause, "host_local_item"},

		{"host paused, listener already paused", stopped("T", 10000), stopped("T", 10000), DecideNone, "host_stopped"},
		{"host absent, listener absent", absent, absent, DecideNone, "host_not_track"},
		{"listener forbids pause, host paused", stopped("T", 0), playing("T", 0, forbids(models.ActionPause)), DecideNone, "host_not_playing"},
		{"listener forbids pause, host on local", playing("L", 0, local()), playing("T", 0, forbids(models.ActionPause)), DecideNone, "host_local_item"},
		{"listener forbids pause, drifted", playing("T", 20000), playing("T", 0, forbids(models.ActionPause)), DecideStart, "listener_behind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rule := d.decide(tt.host, tt.listener)
			if got != tt.want || rule != tt.rule {
				t.Errorf("decide = %v (%s), want %v (%s)", got, rule, tt.want, tt.rule)
			}
		})
	}
}

func TestSkipDevice(t *testing.T) {
	tests := []struct {
		name     string
		listener *models.PlaybackSnapshot
		want     string
	}{
		{"unknown", nil, "no_device"},
		{"absent", models.AbsentSnapshot(time.Time{}), "no_device"},
		{"no device info", playing("T", 0, func(s *models.PlaybackSnapshot) { s.HasDevice = false }), "no_device"},
		{"restricted", playing("T", 0, func(s *models.PlaybackSnapshot) { s.Device.Restricted = true }), "device_restricted"},
		{"inactive", playing("T", 0, func(s *models.PlaybackSnapshot) { s.Device.Active = false }), "device_inactive"},
		{"private", playing("T", 0, func(s *models.PlaybackSnapshot) { s.Device.Private = true }), "private_session"},
		{"usable", playing("T", 0), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstMatch(skipDevice, nil, tt.listener); got != tt.want {
				t.Errorf("firstMatch = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListenerChanged(t *testing.T) {
	yes, no := true, false
	base := playing("T", 1000)

	tests := []struct {
		name  string
		prevS *models.PlaybackSnapshot
		prevR *bool
		snap  *models.PlaybackSnapshot
		relay *bool
		want  bool
	}{
		{"identical", base, nil, playing("T", 9000), nil, false},
		{"item change alone is not visible", base, nil, playing("U", 0), nil, false},
		{"relay appeared", base, nil, base, &no, true},
		{"relay flipped", base, &no, base, &yes, true},
		{"relay unchanged", base, &yes, base, &yes, false},
		{"became unknown", base, nil, nil, nil, true},
		{"both unknown", nil, nil, nil, nil, false},
		{"became absent", base, nil, models.AbsentSnapshot(time.Time{}), nil, true},
		{"paused", base, nil, stopped("T", 1000), nil, true},
		{"device type", base, nil, playing("T", 0, func(s *models.PlaybackSnapshot) { s.Device.Type = "Smartphone" }), nil, true},
		{"device inactive", base, nil, playing("T", 0, func(s *models.PlaybackSnapshot) { s.Device.Active = false }), nil, true},
		{"private session", base, nil, playing("T", 0, func(s *models.PlaybackSnapshot) { s.Device.Private = true }), nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := partyListener(tt.prevS, tt.prevR)
			if got := listenerChanged(prev, tt.snap, tt.relay); got != tt.want {
				t.Errorf("listenerChanged = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPartyChanged(t *testing.T) {
	tests := []struct {
		name string
		ref  *models.PlaybackSnapshot
		host *models.PlaybackSnapshot
		want bool
	}{
		{"first observation", nil, playing("T", 0), true},
		{"still unknown", nil, nil, false},
		{"progress only", playing("T", 0), playing("T", 3000), false},
		{"next item", playing("T", 0), playing("U", 0), true},
		{"paused", playing("T", 0), stopped("T", 0), true},
		{"kind", playing("T", 0), playing("T", 0, kind(models.ItemKindEpisode)), true},
		{"stopped everywhere", playing("T", 0), models.AbsentSnapshot(time.Time{}), true},
		{"became unknown", playing("T", 0), nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := partyChanged(tt.ref, tt.host); got != tt.want {
				t.Errorf("partyChanged = %v, want %v", got, tt.want)
			}
		})
	}
}
