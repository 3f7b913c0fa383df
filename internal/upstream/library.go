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
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/partysync/internal/models"
)

// Page is a paging object. Items are passed through undecoded.
type Page struct {
	Href     string            `json:"href"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
	Total    int               `json:"total"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
	Items    []json.RawMessage `json:"items"`
}

// Playlist is the subset of a playlist object the service exposes.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URI         string `json:"uri"`
	SnapshotID  string `json:"snapshot_id"`
	Public      *bool  `json:"public"`
	Owner       struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"owner"`
	Tracks json.RawMessage `json:"tracks"`
}

// TopItems lists the subject's top artists or tracks. itemType is
// "artists" or "tracks"; timeRange is short_term, medium_term or long_term.
func (c *Client) TopItems(ctx context.Context, cred *models.Credential, itemType, timeRange string, limit, offset int) (*Page, error) {
	q := url.Values{}
	if timeRange != "" {
		q.Set("time_range", timeRange)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	resp, err := c.execute(ctx, &request{
		op:     "top_items",
		method: http.MethodGet,
		url:    c.apiURL("/me/top/" + url.PathEscape(itemType)),
		query:  q,
		accept: []int{http.StatusOK, http.StatusForbidden},
	}, cred)
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusForbidden {
		return nil, ErrForbidden
	}

	var page Page
	if err := json.Unmarshal(resp.body, &page); err != nil {
		return nil, fmt.Errorf("decode top items: %w", err)
	}
	return &page, nil
}

// RecentItems lists recently played tracks, flattened from play-history
// objects to the tracks themselves. after and before are unix millisecond
// cursors; zero omits them. A private session (204) yields an empty page.
func (c *Client) RecentItems(ctx context.Context, cred *models.Credential, limit int, after, before int64) (*Page, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if after > 0 {
		q.Set("after", strconv.FormatInt(after, 10))
	}
	if before > 0 {
		q.Set("before", strconv.FormatInt(before, 10))
	}

	resp, err := c.execute(ctx, &request{
		op:     "recent_items",
		method: http.MethodGet,
		url:    c.apiURL("/me/player/recently-played"),
		query:  q,
		accept: []int{http.StatusOK, http.StatusNoContent, http.StatusForbidden},
	}, cred)
	if err != nil {
		return nil, err
	}
	switch resp.status {
	case http.StatusForbidden:
		return nil, ErrForbidden
	case http.StatusNoContent:
		return &Page{Items: []json.RawMessage{}}, nil
	}

	var raw struct {
		Href  string            `json:"href"`
		Limit int               `json:"limit"`
		Total int               `json:"total"`
		Next  *string           `json:"next"`
		Items []wirePlayHistory `json:"items"`
	}
	if err := json.Unmarshal(resp.body, &raw); err != nil {
		return nil, fmt.Errorf("decode recent items: %w", err)
	}

	page := &Page{Href: raw.Href, Limit: raw.Limit, Total: raw.Total, Next: raw.Next}
	page.Items = make([]json.RawMessage, 0, len(raw.Items))
	for _, h := range raw.Items {
		page.Items = append(page.Items, h.Track)
	}
	return page, nil
}

// Playlist fetches a playlist. It returns nil, nil when the subject may not
// read it (403).
func (c *Client) Playlist(ctx context.Context, cred *models.Credential, id, market string, fields []string) (*Playlist, error) {
	q := url.Values{}
	if market != "" {
		q.Set("market", market)
	}
	if len(fields) > 0 {
		q.Set("fields", strings.Join(fields, ","))
	}

	resp, err := c.execute(ctx, &request{
		op:     "playlist",
		method: http.MethodGet,
		url:    c.apiURL("/playlists/" + url.PathEscape(id)),
		query:  q,
		accept: []int{http.StatusOK, http.StatusForbidden},
	}, cred)
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusForbidden {
		return nil, nil
	}

	var pl Playlist
	if err := json.Unmarshal(resp.body, &pl); err != nil {
		return nil, fmt.Errorf("decode playlist: %w", err)
	}
	return &pl, nil
}
