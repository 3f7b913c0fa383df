// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package upstream

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/partysync/internal/models"
)

// Upstream JSON shapes. Only the fields the service reads are declared.

type wireDevice struct {
	ID               *string `json:"id"`
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	IsActive         bool    `json:"is_active"`
	IsRestricted     bool    `json:"is_restricted"`
	IsPrivateSession bool    `json:"is_private_session"`
}

type wireItem struct {
	ID         string `json:"id"`
	URI        string `json:"uri"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	IsLocal    bool   `json:"is_local"`
	DurationMs int64  `json:"duration_ms"`
}

type wireCurrentlyPlaying struct {
	Timestamp            *int64      `json:"timestamp"`
	Device               *wireDevice `json:"device"`
	ProgressMs           *int64      `json:"progress_ms"`
	IsPlaying            bool        `json:"is_playing"`
	CurrentlyPlayingType string      `json:"currently_playing_type"`
	Actions              struct {
		Disallows map[string]bool `json:"disallows"`
	} `json:"actions"`
	Item *wireItem `json:"item"`
}

type wireError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

type wireToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type wirePlayHistory struct {
	Track    json.RawMessage `json:"track"`
	PlayedAt string          `json:"played_at"`
}

var disallowActions = map[string]models.Action{
	"interrupting_playback":   models.ActionInterrupt,
	"pausing":                 models.ActionPause,
	"resuming":                models.ActionResume,
	"seeking":                 models.ActionSeek,
	"skipping_next":           models.ActionSkipNext,
	"skipping_prev":           models.ActionSkipPrev,
	"toggling_repeat_context": models.ActionToggleRepeatContext,
	"toggling_shuffle":        models.ActionToggleShuffle,
	"toggling_repeat_track":   models.ActionToggleRepeatTrack,
	"transferring_playback":   models.ActionTransfer,
}

// toSnapshot converts a currently-playing body into a snapshot. A nil body
// or one without any fields means no active playback.
func toSnapshot(body []byte, at time.Time) (*models.PlaybackSnapshot, error) {
	if len(body) == 0 || string(body) == "null" {
		return models.AbsentSnapshot(at), nil
	}

	var cp wireCurrentlyPlaying
	if err := json.Unmarshal(body, &cp); err != nil {
		return nil, err
	}

	snap := &models.PlaybackSnapshot{
		Status:     models.StatusPresent,
		Playing:    cp.IsPlaying,
		ItemKind:   models.ParseItemKind(cp.CurrentlyPlayingType),
		CapturedAt: at,
	}
	if cp.ProgressMs != nil {
		snap.ProgressMs = *cp.ProgressMs
	}
	if cp.Item != nil {
		snap.ItemID = cp.Item.ID
		snap.ItemURI = cp.Item.URI
		snap.ItemName = cp.Item.Name
		snap.ItemLocal = cp.Item.IsLocal
		snap.DurationMs = cp.Item.DurationMs
	}
	if cp.Device != nil {
		snap.HasDevice = true
		snap.Device = models.Device{
			Type:       cp.Device.Type,
			Active:     cp.Device.IsActive,
			Restricted: cp.Device.IsRestricted,
			Private:    cp.Device.IsPrivateSession,
		}
	}
	var disallowed []models.Action
	for name, set := range cp.Actions.Disallows {
		if a, ok := disallowActions[name]; ok && set {
			disallowed = append(disallowed, a)
		}
	}
	snap.Disallowed = models.NewActionSet(disallowed...)
	return snap, nil
}
