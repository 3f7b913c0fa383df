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
	"github.com/tomtom215/partysync/internal/models"
	"github.com/tomtom215/partysync/internal/party"
)

// StartParty handles POST /api/v1/parties.
//
// When the named host already runs a party, the creator joins it and the
// response is 200 instead of 201.
//
// @Summary Start a party
// @Description Starts a party hosted by the creator or by a nominated host. When the host already runs a party the creator joins it instead.
// @Tags Parties
// @Accept json
// @Produce json
// @Param request body StartPartyRequest true "Creator and optional host"
// @Success 201 {object} models.APIResponse{data=party.Summary} "Party started"
// @Success 200 {object} models.APIResponse{data=party.Summary} "Joined the host's existing party"
// @Failure 400 {object} models.APIResponse "Invalid request"
// @Failure 401 {object} models.APIResponse "Creator must log in again"
// @Failure 403 {object} models.APIResponse "Account not eligible"
// @Failure 404 {object} models.APIResponse "Host not logged in"
// @Failure 409 {object} models.APIResponse "Already in a party"
// @Security BearerAuth
// @Router /api/v1/parties [post]
func (h *Handler) StartParty(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req StartPartyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var host *models.ActorRef
	if req.Host != nil {
		ref := req.Host.ref()
		host = &ref
	}

	p, err := h.service.Start(r.Context(), req.Creator.ref(), host)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if p.Creator.ID != req.Creator.ID {
		status = http.StatusOK
	}
	logging.Ctx(r.Context()).Info().
		Str("party", p.Handle).
		Str("creator", req.Creator.ID).
		Str("host", p.Host.ID).
		Msg("Start command accepted")
	respondData(w, status, p.Summary(), start)
}

// GetParty handles GET /api/v1/parties/{handle}.
//
// @Summary Get a party
// @Tags Parties
// @Produce json
// @Param handle path string true "Party handle"
// @Success 200 {object} models.APIResponse{data=party.Summary}
// @Failure 404 {object} models.APIResponse "Party not found"
// @Security BearerAuth
// @Router /api/v1/parties/{handle} [get]
func (h *Handler) GetParty(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, ok := h.registry.FindByHandle(chi.URLParam(r, "handle"))
	if !ok {
		respondServiceError(w, party.ErrPartyNotFound)
		return
	}
	respondData(w, http.StatusOK, p.Summary(), start)
}

// ListParties handles GET /api/v1/parties.
//
// @Summary List running parties
// @Tags Parties
// @Produce json
// @Success 200 {object} models.APIResponse{data=[]party.Summary}
// @Security BearerAuth
// @Router /api/v1/parties [get]
func (h *Handler) ListParties(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	parties := h.registry.Parties()
	out := make([]party.Summary, len(parties))
	for i, p := range parties {
		out[i] = p.Summary()
	}
	respondData(w, http.StatusOK, out, start)
}

// JoinParty handles POST /api/v1/parties/{handle}/listeners.
//
// @Summary Join a party
// @Tags Parties
// @Accept json
// @Produce json
// @Param handle path string true "Party handle"
// @Param request body ActorRequest true "Joining actor"
// @Success 200 {object} models.APIResponse{data=party.Summary}
// @Failure 400 {object} models.APIResponse "Invalid request"
// @Failure 401 {object} models.APIResponse "Actor must log in again"
// @Failure 403 {object} models.APIResponse "Account not eligible"
// @Failure 404 {object} models.APIResponse "Party not found"
// @Failure 409 {object} models.APIResponse "Already in a party"
// @Security BearerAuth
// @Router /api/v1/parties/{handle}/listeners [post]
func (h *Handler) JoinParty(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req ActorRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	p, err := h.service.Join(r.Context(), chi.URLParam(r, "handle"), req.ref())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, p.Summary(), start)
}

// LeaveParty handles DELETE /api/v1/parties/{handle}/listeners/{actor}.
//
// @Summary Leave a party
// @Tags Parties
// @Produce json
// @Param handle path string true "Party handle"
// @Param actor path string true "Actor id"
// @Success 200 {object} models.APIResponse{data=party.Summary}
// @Failure 409 {object} models.APIResponse "Actor is not listening to this party"
// @Security BearerAuth
// @Router /api/v1/parties/{handle}/listeners/{actor} [delete]
func (h *Handler) LeaveParty(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := actorParam(w, r)
	if !ok {
		return
	}

	found := h.registry.FindByActor(actor)
	if !found.Has(party.RoleListener) || found.Party.Handle != chi.URLParam(r, "handle") {
		respondServiceError(w, party.ErrNotAListener)
		return
	}

	p, err := h.service.Leave(actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, p.Summary(), start)
}

// InvalidateParty handles DELETE /api/v1/parties/{handle}. It ends the
// party as if its handle had been deleted.
//
// @Summary Invalidate a party handle
// @Tags Parties
// @Produce json
// @Param handle path string true "Party handle"
// @Success 200 {object} models.APIResponse{data=party.Summary} "Party ended"
// @Failure 404 {object} models.APIResponse "Party not found"
// @Security BearerAuth
// @Router /api/v1/parties/{handle} [delete]
func (h *Handler) InvalidateParty(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, err := h.service.Invalidate(chi.URLParam(r, "handle"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, p.Summary(), start)
}

// EndParty handles POST /api/v1/actors/{actor}/end. Only the host or the
// creator can end a party this way.
//
// @Summary End the actor's party
// @Tags Parties
// @Produce json
// @Param actor path string true "Host or creator id"
// @Success 200 {object} models.APIResponse{data=party.Summary} "Party ended"
// @Failure 404 {object} models.APIResponse "Party not found"
// @Security BearerAuth
// @Router /api/v1/actors/{actor}/end [post]
func (h *Handler) EndParty(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := actorParam(w, r)
	if !ok {
		return
	}

	p, err := h.service.End(actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, p.Summary(), start)
}

// ActorParty handles GET /api/v1/actors/{actor}/party.
//
// @Summary Get the actor's party
// @Tags Parties
// @Produce json
// @Param actor path string true "Actor id"
// @Success 200 {object} models.APIResponse{data=ActorPartyResponse}
// @Failure 404 {object} models.APIResponse "Actor is not in a party"
// @Security BearerAuth
// @Router /api/v1/actors/{actor}/party [get]
func (h *Handler) ActorParty(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := actorParam(w, r)
	if !ok {
		return
	}

	found := h.registry.FindByActor(actor)
	if found.Party == nil {
		respondServiceError(w, party.ErrPartyNotFound)
		return
	}
	respondData(w, http.StatusOK, ActorPartyResponse{
		Roles: found.Roles,
		Party: found.Party.Summary(),
	}, start)
}
