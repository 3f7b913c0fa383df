// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package engine

import (
	"time"

	"github.com/tomtom215/partysync/internal/models"
)

// Decision is the corrective command chosen for one listener.
type Decision int

const (
	DecideNone Decision = iota
	DecidePause
	DecideStart
)

func (d Decision) String() string {
	switch d {
	case DecidePause:
		return "pause"
	case DecideStart:
		return "start"
	default:
		return "none"
	}
}

// rule is one named predicate over the host and listener snapshots.
// Either snapshot may be nil (unknown).
type rule struct {
	name  string
	match func(host, listener *models.PlaybackSnapshot) bool
}

// firstMatch returns the name of the first matching rule, or "".
func firstMatch(rules []rule, host, listener *models.PlaybackSnapshot) string {
	for _, r := range rules {
		if r.match(host, listener) {
			return r.name
		}
	}
	return ""
}

// skipDevice lists the conditions under which a premium listener's device
// cannot be driven through the playback API.
var skipDevice = []rule{
	{"no_device", func(_, l *models.PlaybackSnapshot) bool { return !l.Present() || !l.HasDevice }},
	{"device_restricted", func(_, l *models.PlaybackSnapshot) bool { return l.Device.Restricted }},
	{"device_inactive", func(_, l *models.PlaybackSnapshot) bool { return !l.Device.Active }},
	{"private_session", func(_, l *models.PlaybackSnapshot) bool { return l.Device.Private }},
}

// skipPause disables the pause rules. Play rules are still evaluated.
var skipPause = []rule{
	{"listener_forbids_pause", func(_, l *models.PlaybackSnapshot) bool { return l.Forbids(models.ActionPause) }},
}

// pauseWhen lists the host states the listener must not keep playing
// through.
var pauseWhen = []rule{
	{"host_unknown", func(h, l *models.PlaybackSnapshot) bool { return h == nil && l.IsPlaying() }},
	{"host_not_track", func(h, _ *models.PlaybackSnapshot) bool { return h.Kind() != models.ItemKindTrack }},
	{"host_stopped", func(h, _ *models.PlaybackSnapshot) bool { return h.IsStopped() }},
	{"host_local_item", func(h, _ *models.PlaybackSnapshot) bool { return h.IsLocalTrack() }},
}

// skipStart disables the start rules.
var skipStart = []rule{
	{"host_not_playing", func(h, _ *models.PlaybackSnapshot) bool { return !h.IsPlaying() }},
	{"listener_forbids_seek", func(_, l *models.PlaybackSnapshot) bool { return l.Forbids(models.ActionSeek) }},
	{"host_local_item", func(h, _ *models.PlaybackSnapshot) bool { return h.IsLocalTrack() }},
}

// startRules returns the start triggers for the given drift tolerance.
func startRules(tolerance time.Duration) []rule {
	tol := tolerance.Milliseconds()
	return []rule{
		{"listener_unknown", func(_, l *models.PlaybackSnapshot) bool { return l == nil }},
		{"listener_stopped", func(_, l *models.PlaybackSnapshot) bool { return l.IsStopped() }},
		{"listener_behind", func(h, l *models.PlaybackSnapshot) bool {
			return l.Present() && l.Progress() <= h.Progress()-tol
		}},
		{"listener_ahead", func(h, l *models.PlaybackSnapshot) bool {
			return l.Present() && l.Progress() >= h.Progress()+tol
		}},
		{"item_differs", func(h, l *models.PlaybackSnapshot) bool { return l.CurrentItemID() != h.CurrentItemID() }},
	}
}

// decider evaluates the ordered rule lists for one listener.
type decider struct {
	start []rule
}

func newDecider(tolerance time.Duration) *decider {
	return &decider{start: startRules(tolerance)}
}

// decide returns the command for a listener together with the name of the
// rule that chose it. Rules are first-match: a matching pause rule settles
// the outcome, and a listener that is not playing needs no pause.
func (d *decider) decide(host, listener *models.PlaybackSnapshot) (Decision, string) {
	if firstMatch(skipPause, host, listener) == "" {
		if why := firstMatch(pauseWhen, host, listener); why != "" {
			if listener != nil && !listener.IsPlaying() {
				return DecideNone, why
			}
			return DecidePause, why
		}
	}

	if why := firstMatch(skipStart, host, listener); why != "" {
		return DecideNone, why
	}
	if why := firstMatch(d.start, host, listener); why != "" {
		return DecideStart, why
	}
	return DecideNone, "in_sync"
}
