// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/partysync/internal/logging"
	"github.com/tomtom215/partysync/internal/upstream"
)

// PlayRequest is the optional body of a play control. Without URI the
// current item resumes.
type PlayRequest struct {
	URI        string `json:"uri,omitempty" validate:"omitempty,spotifyuri"`
	PositionMs int64  `json:"position_ms,omitempty" validate:"gte=0"`
}

// TopItemsRequest holds the query parameters of the top items lookup.
type TopItemsRequest struct {
	Type      string `validate:"required,itemtype"`
	TimeRange string `validate:"omitempty,oneof=short_term medium_term long_term"`
	Limit     int    `validate:"min=1,max=50"`
	Offset    int    `validate:"min=0"`
}

// RecentItemsRequest holds the query parameters of the recent items lookup.
type RecentItemsRequest struct {
	Limit  int   `validate:"min=1,max=50"`
	After  int64 `validate:"min=0"`
	Before int64 `validate:"min=0"`
}

// PlayerState handles GET /api/v1/actors/{actor}/player.
//
// @Summary Get the actor's playback
// @Tags Player
// @Produce json
// @Param actor path string true "Actor id"
// @Param market query string false "Market code"
// @Param additional_types query string false "Extra item types, e.g. episode"
// @Success 200 {object} models.APIResponse{data=models.PlaybackSnapshot}
// @Failure 401 {object} models.APIResponse "Actor must log in again"
// @Failure 503 {object} models.APIResponse "Upstream unavailable"
// @Security BearerAuth
// @Router /api/v1/actors/{actor}/player [get]
func (h *Handler) PlayerState(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := actorParam(w, r)
	if !ok {
		return
	}
	cred, ok := h.credential(w, r, actor)
	if !ok {
		return
	}

	snap, err := h.upstream.CurrentPlayback(r.Context(), cred, upstream.PlaybackOptions{
		Market:          r.URL.Query().Get("market"),
		AdditionalTypes: r.URL.Query().Get("additional_types"),
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, snap, start)
}

// PlayerControl handles POST /api/v1/actors/{actor}/player/{action}.
// Commands go through the relay when the actor is connected there, the
// playback API otherwise.
//
// @Summary Control the actor's player
// @Tags Player
// @Accept json
// @Produce json
// @Param actor path string true "Actor id"
// @Param action path string true "Control" Enums(play, pause, next, previous)
// @Param request body PlayRequest false "Item and position for play"
// @Success 200 {object} models.APIResponse "Command sent; data.path is relay or api"
// @Failure 400 {object} models.APIResponse "Invalid action or body"
// @Failure 401 {object} models.APIResponse "Actor must log in again"
// @Failure 403 {object} models.APIResponse "Account cannot be controlled"
// @Failure 409 {object} models.APIResponse "No active device"
// @Failure 502 {object} models.APIResponse "Command not delivered"
// @Security BearerAuth
// @Router /api/v1/actors/{actor}/player/{action} [post]
func (h *Handler) PlayerControl(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := actorParam(w, r)
	if !ok {
		return
	}

	action := chi.URLParam(r, "action")
	var req PlayRequest
	switch action {
	case "play":
		if !decodeAndValidate(w, r, &req) {
			return
		}
	case "pause", "next", "previous":
	default:
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Action must be one of play, pause, next, previous", nil)
		return
	}

	cred, ok := h.credential(w, r, actor)
	if !ok {
		return
	}
	path, err := h.upstream.ControlPath(cred)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	switch action {
	case "play":
		err = h.upstream.Start(r.Context(), cred, upstream.StartOptions{ItemURI: req.URI, PositionMs: req.PositionMs})
	case "pause":
		err = h.upstream.Pause(r.Context(), cred)
	case "next":
		err = h.upstream.Skip(r.Context(), cred, upstream.DirectionNext)
	case "previous":
		err = h.upstream.Skip(r.Context(), cred, upstream.DirectionPrevious)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	logging.Ctx(r.Context()).Debug().Str("actor", actor).Str("action", action).Str("path", path).Msg("Player control sent")
	respondData(w, http.StatusOK, map[string]string{"action": action, "path": path}, start)
}

// TopItems handles GET /api/v1/actors/{actor}/top/{type}.
//
// @Summary Get the actor's top items
// @Tags Library
// @Produce json
// @Param actor path string true "Actor id"
// @Param type path string true "Item type" Enums(artists, tracks)
// @Param time_range query string false "Time range" Enums(short_term, medium_term, long_term)
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {object} models.APIResponse{data=upstream.Page}
// @Failure 400 {object} models.APIResponse "Invalid query"
// @Failure 401 {object} models.APIResponse "Actor must log in again"
// @Security BearerAuth
// @Router /api/v1/actors/{actor}/top/{type} [get]
func (h *Handler) TopItems(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := actorParam(w, r)
	if !ok {
		return
	}

	req := TopItemsRequest{
		Type:      chi.URLParam(r, "type"),
		TimeRange: r.URL.Query().Get("time_range"),
		Limit:     getIntParam(r, "limit", 20),
		Offset:    getIntParam(r, "offset", 0),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
		return
	}

	cred, ok := h.credential(w, r, actor)
	if !ok {
		return
	}
	page, err := h.upstream.TopItems(r.Context(), cred, req.Type, req.TimeRange, req.Limit, req.Offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, page, start)
}

// RecentItems handles GET /api/v1/actors/{actor}/recent.
//
// @Summary Get recently played items
// @Tags Library
// @Produce json
// @Param actor path string true "Actor id"
// @Param limit query int false "Page size" default(20)
// @Param after query int false "Unix ms cursor, exclusive with before"
// @Param before query int false "Unix ms cursor, exclusive with after"
// @Success 200 {object} models.APIResponse{data=upstream.Page}
// @Failure 400 {object} models.APIResponse "Invalid query"
// @Failure 401 {object} models.APIResponse "Actor must log in again"
// @Security BearerAuth
// @Router /api/v1/actors/{actor}/recent [get]
func (h *Handler) RecentItems(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := actorParam(w, r)
	if !ok {
		return
	}

	req := RecentItemsRequest{
		Limit:  getIntParam(r, "limit", 20),
		After:  getInt64Param(r, "after"),
		Before: getInt64Param(r, "before"),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
		return
	}
	if req.After > 0 && req.Before > 0 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Only one of after and before may be set", nil)
		return
	}

	cred, ok := h.credential(w, r, actor)
	if !ok {
		return
	}
	page, err := h.upstream.RecentItems(r.Context(), cred, req.Limit, req.After, req.Before)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, page, start)
}

// Playlist handles GET /api/v1/actors/{actor}/playlists/{id}. A playlist
// the actor may not read is reported as 404.
//
// @Summary Get a playlist
// @Tags Library
// @Produce json
// @Param actor path string true "Actor id"
// @Param id path string true "Playlist id"
// @Param market query string false "Market code"
// @Param fields query string false "Comma separated field filter"
// @Success 200 {object} models.APIResponse{data=upstream.Playlist}
// @Failure 400 {object} models.APIResponse "Invalid playlist id"
// @Failure 404 {object} models.APIResponse "Playlist not found or not readable"
// @Security BearerAuth
// @Router /api/v1/actors/{actor}/playlists/{id} [get]
func (h *Handler) Playlist(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := actorParam(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > 64 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid playlist id", nil)
		return
	}

	cred, ok := h.credential(w, r, actor)
	if !ok {
		return
	}
	pl, err := h.upstream.Playlist(r.Context(), cred, id, r.URL.Query().Get("market"), parseCommaSeparated(r.URL.Query().Get("fields")))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if pl == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Playlist not found or not readable", nil)
		return
	}
	respondData(w, http.StatusOK, pl, start)
}
