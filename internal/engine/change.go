// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package engine

import (
	"github.com/tomtom215/partysync/internal/models"
	"github.com/tomtom215/partysync/internal/party"
)

// listenerChanged reports whether a listener's visible state differs from
// what was stored on the previous tick.
func listenerChanged(prev party.Listener, snap *models.PlaybackSnapshot, relayConnected *bool) bool {
	old := prev.LastSnapshot
	switch {
	case !sameBool(prev.RelayConnected, relayConnected):
		return true
	case (old == nil) != (snap == nil):
		return true
	case old == nil:
		return false
	case old.Status != snap.Status,
		old.Device.Type != snap.Device.Type,
		old.Device.Active != snap.Device.Active,
		old.Device.Private != snap.Device.Private,
		old.Playing != snap.Playing:
		return true
	}
	return false
}

// partyChanged reports whether the host state that the party summary
// renders differs from the reference snapshot.
func partyChanged(ref, host *models.PlaybackSnapshot) bool {
	switch {
	case (ref == nil) != (host == nil):
		return true
	case ref == nil:
		return false
	}
	return ref.Status != host.Status ||
		ref.Playing != host.Playing ||
		ref.Kind() != host.Kind() ||
		ref.CurrentItemID() != host.CurrentItemID()
}

func sameBool(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
