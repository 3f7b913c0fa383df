// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tomtom215/partysync/internal/logging"
	"github.com/tomtom215/partysync/internal/metrics"
	"github.com/tomtom215/partysync/internal/models"
	"github.com/tomtom215/partysync/internal/relay"
)

// Control paths, used as the metrics "path" label.
const (
	PathRelay = "relay"
	PathAPI   = "api"
)

// PlaybackOptions are the optional query parameters of CurrentPlayback.
type PlaybackOptions struct {
	Market          string
	AdditionalTypes string
}

// StartOptions selects what Start plays. An empty ItemURI resumes the
// current item.
type StartOptions struct {
	ItemURI    string
	PositionMs int64
}

// Direction is a skip direction.
type Direction string

const (
	DirectionNext     Direction = "next"
	DirectionPrevious Direction = "previous"
)

// CurrentPlayback reads the subject's playback state. A 204 (nothing
// playing anywhere) yields an absent snapshot, never nil.
func (c *Client) CurrentPlayback(ctx context.Context, cred *models.Credential, opts PlaybackOptions) (*models.PlaybackSnapshot, error) {
	q := url.Values{}
	if opts.Market != "" {
		q.Set("market", opts.Market)
	}
	if opts.AdditionalTypes != "" {
		q.Set("additional_types", opts.AdditionalTypes)
	}

	resp, err := c.execute(ctx, &request{
		op:     "current_playback",
		method: http.MethodGet,
		url:    c.apiURL("/me/player"),
		query:  q,
		accept: []int{http.StatusOK, http.StatusNoContent},
	}, cred)
	if err != nil {
		return nil, err
	}

	if resp.status == http.StatusNoContent {
		return models.AbsentSnapshot(c.now()), nil
	}
	snap, err := toSnapshot(resp.body, c.now())
	if err != nil {
		return nil, fmt.Errorf("decode playback state: %w", err)
	}
	return snap, nil
}

// ControlPath reports which path a command for cred would take, or
// ErrNotControllable.
func (c *Client) ControlPath(cred *models.Credential) (string, error) {
	if cred.HasDirectControl() && c.relay != nil && c.relay.Connected(cred.DirectControlToken) {
		return PathRelay, nil
	}
	if cred.Premium() {
		return PathAPI, nil
	}
	return "", ErrNotControllable
}

// Start plays opts.ItemURI from opts.PositionMs (or resumes). Relay pushes
// are fire-and-forget; API calls are confirmed by the response status.
func (c *Client) Start(ctx context.Context, cred *models.Credential, opts StartOptions) error {
	return c.control(ctx, cred, relay.MessagePlay, opts, func() error {
		var body interface{}
		if opts.ItemURI != "" {
			body = map[string]interface{}{
				"uris":        []string{opts.ItemURI},
				"position_ms": opts.PositionMs,
			}
		}
		resp, err := c.execute(ctx, &request{
			op:     "start",
			method: http.MethodPut,
			url:    c.apiURL("/me/player/play"),
			body:   body,
			accept: []int{http.StatusOK, http.StatusNoContent, http.StatusNotFound},
		}, cred)
		if err != nil {
			return err
		}
		if resp.status == http.StatusNotFound {
			return ErrNoActiveDevice
		}
		return nil
	})
}

// Pause pauses the subject's playback.
func (c *Client) Pause(ctx context.Context, cred *models.Credential) error {
	return c.control(ctx, cred, relay.MessagePause, StartOptions{}, func() error {
		_, err := c.execute(ctx, &request{
			op:     "pause",
			method: http.MethodPut,
			url:    c.apiURL("/me/player/pause"),
			accept: []int{http.StatusOK, http.StatusNoContent},
		}, cred)
		return err
	})
}

// Skip moves to the next or previous item.
func (c *Client) Skip(ctx context.Context, cred *models.Credential, dir Direction) error {
	var kind relay.MessageType
	switch dir {
	case DirectionNext:
		kind = relay.MessageNext
	case DirectionPrevious:
		kind = relay.MessagePrevious
	default:
		return fmt.Errorf("unknown skip direction %q", dir)
	}

	return c.control(ctx, cred, kind, StartOptions{}, func() error {
		_, err := c.execute(ctx, &request{
			op:     "skip_" + string(dir),
			method: http.MethodPost,
			url:    c.apiURL("/me/player/" + string(dir)),
			accept: []int{http.StatusOK, http.StatusNoContent},
		}, cred)
		return err
	})
}

func (c *Client) control(ctx context.Context, cred *models.Credential, kind relay.MessageType, opts StartOptions, viaAPI func() error) error {
	path, err := c.ControlPath(cred)
	if err != nil {
		return err
	}

	switch path {
	case PathRelay:
		ok := c.relay.Send(cred.DirectControlToken, kind, opts.ItemURI, opts.PositionMs)
		metrics.RecordCommand(string(kind), PathRelay, ok)
		if !ok {
			return ErrRelaySend
		}
		return nil
	default:
		err := viaAPI()
		metrics.RecordCommand(string(kind), PathAPI, err == nil)
		if err != nil {
			logging.Debug().Err(err).Str("subject", cred.SubjectID).Str("command", string(kind)).Msg("Playback command failed")
		}
		return err
	}
}
