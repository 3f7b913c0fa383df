// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/partysync/internal/models"
	"github.com/tomtom215/partysync/internal/party"
	"github.com/tomtom215/partysync/internal/store"
	"github.com/tomtom215/partysync/internal/upstream"
)

// Pinger reports whether a dependency is usable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RelayStatus is the relay surface the health endpoints read.
type RelayStatus interface {
	Running() bool
	ConnectionCount() int
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_party.go: party commands and lookups
//   - handlers_player.go: player controls and stats lookups
//   - handlers_credentials.go: credential ingest and logout
//   - handlers_health.go: liveness and readiness
type Handler struct {
	service   *party.Service
	registry  *party.Registry
	creds     store.CredentialStore
	upstream  *upstream.Client
	store     Pinger
	relay     RelayStatus
	startTime time.Time
}

// NewHandler creates the API handler. relay may be nil when the relay is
// disabled.
func NewHandler(svc *party.Service, creds store.CredentialStore, client *upstream.Client, st Pinger, relay RelayStatus) *Handler {
	return &Handler{
		service:   svc,
		registry:  svc.Registry(),
		creds:     creds,
		upstream:  client,
		store:     st,
		relay:     relay,
		startTime: time.Now(),
	}
}

// ActorRequest names an actor in a request body.
type ActorRequest struct {
	ID          string `json:"id" validate:"required,max=128"`
	DisplayName string `json:"display_name,omitempty" validate:"max=128"`
}

func (a ActorRequest) ref() models.ActorRef {
	return models.ActorRef{ID: a.ID, DisplayName: a.DisplayName}
}

// StartPartyRequest starts a party. Without Host the creator hosts.
type StartPartyRequest struct {
	Creator ActorRequest  `json:"creator" validate:"required"`
	Host    *ActorRequest `json:"host,omitempty"`
}

// ActorPartyResponse is the party an actor belongs to and its roles there.
type ActorPartyResponse struct {
	Roles []party.Role  `json:"roles"`
	Party party.Summary `json:"party"`
}

// actorParam returns the {actor} URL parameter, or writes a 400.
func actorParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor := chi.URLParam(r, "actor")
	if actor == "" || len(actor) > 128 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid actor id", nil)
		return "", false
	}
	return actor, true
}

// credential loads the stored credential for actor, or writes the error.
func (h *Handler) credential(w http.ResponseWriter, r *http.Request, actor string) (*models.Credential, bool) {
	cred, err := h.creds.Get(r.Context(), actor)
	if err != nil {
		respondServiceError(w, err)
		return nil, false
	}
	return cred, true
}
