// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package models

import (
	"time"
)

// ItemKind is the kind of item a playback session is currently playing.
type ItemKind string

const (
	ItemKindTrack   ItemKind = "track"
	ItemKindEpisode ItemKind = "episode"
	ItemKindAd      ItemKind = "ad"
	ItemKindUnknown ItemKind = "unknown"
)

// ParseItemKind maps the upstream currently_playing_type onto ItemKind.
func ParseItemKind(s string) ItemKind {
	switch ItemKind(s) {
	case ItemKindTrack, ItemKindEpisode, ItemKindAd:
		return ItemKind(s)
	default:
		return ItemKindUnknown
	}
}

// Action is a playback action the upstream may disallow for a session.
type Action uint16

const (
	ActionPause Action = 1 << iota
	ActionSeek
	ActionResume
	ActionSkipNext
	ActionSkipPrev
	ActionInterrupt
	ActionTransfer
	ActionToggleShuffle
	ActionToggleRepeatContext
	ActionToggleRepeatTrack
)

// ActionSet is an immutable set of actions.
type ActionSet uint16

// NewActionSet builds a set from the given actions.
func NewActionSet(actions ...Action) ActionSet {
	var s ActionSet
	for _, a := range actions {
		s |= ActionSet(a)
	}
	return s
}

// Has reports whether a is in the set.
func (s ActionSet) Has(a Action) bool {
	return s&ActionSet(a) != 0
}

// SnapshotStatus distinguishes "no active playback" from "playback data present".
// An unknown state (the fetch itself failed) is a nil *PlaybackSnapshot.
type SnapshotStatus int

const (
	StatusAbsent SnapshotStatus = iota
	StatusPresent
)

// Device describes the device a session is playing on.
type Device struct {
	Type       string `json:"type"`
	Active     bool   `json:"active"`
	Restricted bool   `json:"restricted"`
	Private    bool   `json:"private"`
}

// PlaybackSnapshot is a point-in-time read of one playback session.
// Snapshots are never mutated after capture; each poll produces a new one.
type PlaybackSnapshot struct {
	Status     SnapshotStatus `json:"status"`
	Playing    bool           `json:"playing"`
	ItemID     string         `json:"item_id,omitempty"`
	ItemURI    string         `json:"item_uri,omitempty"`
	ItemName   string         `json:"item_name,omitempty"`
	ItemKind   ItemKind       `json:"item_kind"`
	ItemLocal  bool           `json:"item_local,omitempty"`
	ProgressMs int64          `json:"progress_ms"`
	DurationMs int64          `json:"duration_ms,omitempty"`
	HasDevice  bool           `json:"has_device"`
	Device     Device         `json:"device"`
	Disallowed ActionSet      `json:"disallowed"`
	CapturedAt time.Time      `json:"captured_at"`
}

// AbsentSnapshot is returned when the upstream reports no active playback.
func AbsentSnapshot(at time.Time) *PlaybackSnapshot {
	return &PlaybackSnapshot{Status: StatusAbsent, ItemKind: ItemKindUnknown, CapturedAt: at}
}

// Present reports whether playback data is available. Nil-safe.
func (s *PlaybackSnapshot) Present() bool {
	return s != nil && s.Status == StatusPresent
}

// IsPlaying reports whether the session is actively playing. Nil-safe.
func (s *PlaybackSnapshot) IsPlaying() bool {
	return s.Present() && s.Playing
}

// IsStopped reports whether playback data is present and explicitly not playing.
func (s *PlaybackSnapshot) IsStopped() bool {
	return s.Present() && !s.Playing
}

// Kind returns the item kind, ItemKindUnknown when no data is present.
func (s *PlaybackSnapshot) Kind() ItemKind {
	if !s.Present() {
		return ItemKindUnknown
	}
	return s.ItemKind
}

// IsLocalTrack reports whether the current item is a local (non-catalog) track.
func (s *PlaybackSnapshot) IsLocalTrack() bool {
	return s.Present() && s.ItemKind == ItemKindTrack && s.ItemLocal
}

// Forbids reports whether the upstream disallows action a. Nil-safe.
func (s *PlaybackSnapshot) Forbids(a Action) bool {
	return s.Present() && s.Disallowed.Has(a)
}

// CurrentItemID returns the item id or "" when nothing is present.
func (s *PlaybackSnapshot) CurrentItemID() string {
	if !s.Present() {
		return ""
	}
	return s.ItemID
}

// Progress returns the playback position in milliseconds, 0 when unknown.
func (s *PlaybackSnapshot) Progress() int64 {
	if !s.Present() {
		return 0
	}
	return s.ProgressMs
}
