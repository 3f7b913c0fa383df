// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/partysync/internal/party"
	"github.com/tomtom215/partysync/internal/store"
	"github.com/tomtom215/partysync/internal/upstream"
)

type errorMapping struct {
	status int
	code   string
	msg    string
}

// reasonErrors maps rejected party commands to distinct API codes.
var reasonErrors = map[party.Reason]errorMapping{
	party.ReasonReauthRequired: {http.StatusUnauthorized, "REAUTH_REQUIRED", "Log in again to use parties"},
	party.ReasonNotEligible:    {http.StatusForbidden, "NOT_ELIGIBLE", "Account cannot be synchronized: premium or direct control required"},
	party.ReasonTargetNotFound: {http.StatusNotFound, "TARGET_NOT_FOUND", "Requested host is not logged in"},
	party.ReasonAlreadyInParty: {http.StatusConflict, "ALREADY_IN_PARTY", "Actor is already in a party"},
	party.ReasonPartyNotFound:  {http.StatusNotFound, "PARTY_NOT_FOUND", "Party not found"},
	party.ReasonNotAListener:   {http.StatusConflict, "NOT_A_LISTENER", "Actor is not listening to this party"},
}

// respondServiceError writes the response for an error returned by the
// party service, the credential store or the upstream client.
func respondServiceError(w http.ResponseWriter, err error) {
	if reason, ok := party.ReasonOf(err); ok {
		m, known := reasonErrors[reason]
		if !known {
			m = errorMapping{http.StatusBadRequest, "PARTY_REJECTED", string(reason)}
		}
		details := map[string]interface{}{"reason": string(reason)}
		var perr *party.Error
		if errors.As(err, &perr) && perr.Handle != "" {
			details["handle"] = perr.Handle
		}
		respondErrorDetails(w, m.status, m.code, m.msg, details, nil)
		return
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusUnauthorized, "REAUTH_REQUIRED", "No stored credential for actor", nil)
	case errors.Is(err, upstream.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "REAUTH_REQUIRED", "Upstream authorization expired", err)
	case errors.Is(err, upstream.ErrNotControllable):
		respondError(w, http.StatusForbidden, "NOT_ELIGIBLE", "Account cannot be controlled", nil)
	case errors.Is(err, upstream.ErrNoActiveDevice):
		respondError(w, http.StatusConflict, "NO_ACTIVE_DEVICE", "No active playback device", nil)
	case errors.Is(err, upstream.ErrForbidden):
		respondError(w, http.StatusForbidden, "FORBIDDEN", "Upstream refused the request", nil)
	case errors.Is(err, upstream.ErrCircuitOpen):
		respondError(w, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Playback service temporarily unavailable", err)
	case errors.Is(err, upstream.ErrRelaySend):
		respondError(w, http.StatusBadGateway, "RELAY_SEND_FAILED", "Direct control command could not be delivered", err)
	case upstream.IsStatus(err, http.StatusNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Upstream resource not found", nil)
	case errors.Is(err, upstream.ErrTransport), isStatusError(err):
		respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Playback service request failed", err)
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", err)
	}
}

func isStatusError(err error) bool {
	var se *upstream.StatusError
	return errors.As(err, &se)
}
