// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/partysync/internal/logging"
	"github.com/tomtom215/partysync/internal/models"
)

// CredentialRequest stores an actor's authorization after an OAuth login
// completed elsewhere. Without an access token the refresh token is
// exchanged immediately.
type CredentialRequest struct {
	RefreshToken       string `json:"refresh_token" validate:"required,max=2048"`
	AccessToken        string `json:"access_token,omitempty" validate:"max=2048"`
	DirectControlToken string `json:"direct_control_token,omitempty" validate:"omitempty,len=36|len=73"`
	DisplayName        string `json:"display_name,omitempty" validate:"max=128"`
}

// CredentialView is the stored credential without its secrets.
type CredentialView struct {
	SubjectID      string      `json:"subject_id"`
	Tier           models.Tier `json:"tier"`
	ProviderUserID string      `json:"provider_user_id,omitempty"`
	DisplayName    string      `json:"display_name,omitempty"`
	DirectControl  bool        `json:"direct_control"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func viewOf(c *models.Credential) CredentialView {
	return CredentialView{
		SubjectID:      c.SubjectID,
		Tier:           c.Tier,
		ProviderUserID: c.ProviderUserID,
		DisplayName:    c.DisplayName,
		DirectControl:  c.HasDirectControl(),
		UpdatedAt:      c.UpdatedAt,
	}
}

// PutCredential handles PUT /api/v1/actors/{actor}/credential.
//
// The account tier is read from the upstream profile. A supplied access
// token that the upstream rejects falls back to a token refresh.
//
// @Summary Store an actor credential
// @Description Stores the tokens from an OAuth login completed elsewhere. The account tier comes from the upstream profile.
// @Tags Credentials
// @Accept json
// @Produce json
// @Param actor path string true "Actor id"
// @Param request body CredentialRequest true "Tokens"
// @Success 200 {object} models.APIResponse{data=CredentialView}
// @Failure 400 {object} models.APIResponse "Invalid request"
// @Failure 401 {object} models.APIResponse "Refresh token rejected"
// @Failure 502 {object} models.APIResponse "Upstream request failed"
// @Security BearerAuth
// @Router /api/v1/actors/{actor}/credential [put]
func (h *Handler) PutCredential(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := actorParam(w, r)
	if !ok {
		return
	}

	var req CredentialRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	cred := &models.Credential{
		SubjectID:          actor,
		RefreshToken:       req.RefreshToken,
		AccessToken:        req.AccessToken,
		DirectControlToken: req.DirectControlToken,
		DisplayName:        req.DisplayName,
		Tier:               models.TierFree,
	}

	var (
		saved *models.Credential
		err   error
	)
	if req.AccessToken != "" {
		user, uerr := h.upstream.CurrentUser(r.Context(), req.AccessToken)
		if uerr == nil {
			cred.Tier = user.Tier()
			cred.ProviderUserID = user.ID
			if cred.DisplayName == "" {
				cred.DisplayName = user.DisplayName
			}
			saved, err = h.creds.Save(r.Context(), cred)
		} else {
			logging.Ctx(r.Context()).Debug().Err(uerr).Str("actor", actor).Msg("Access token rejected, refreshing")
		}
	}
	if saved == nil && err == nil {
		saved, err = h.upstream.RedeemRefreshToken(r.Context(), cred)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("actor", actor).
		Str("tier", string(saved.Tier)).
		Bool("direct_control", saved.HasDirectControl()).
		Msg("Credential stored")
	respondData(w, http.StatusOK, viewOf(saved), start)
}

// DeleteCredential handles DELETE /api/v1/actors/{actor}/credential. The
// next tick removes the actor from its party, or ends the party when the
// actor hosts it.
//
// @Summary Delete an actor credential
// @Tags Credentials
// @Produce json
// @Param actor path string true "Actor id"
// @Success 200 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse "No stored credential"
// @Security BearerAuth
// @Router /api/v1/actors/{actor}/credential [delete]
func (h *Handler) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := actorParam(w, r)
	if !ok {
		return
	}

	existed, err := h.creds.Delete(r.Context(), actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !existed {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "No stored credential for actor", nil)
		return
	}

	logging.Ctx(r.Context()).Info().Str("actor", actor).Msg("Credential deleted")
	respondData(w, http.StatusOK, map[string]string{"subject_id": actor}, start)
}
