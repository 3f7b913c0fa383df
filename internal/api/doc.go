// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

/*
Package api exposes the party commands, player controls and health checks
over HTTP using the Chi router.

# Routes

Party commands (bearer auth unless AUTH_MODE=none):

	GET    /api/v1/parties
	POST   /api/v1/parties                           start; creator may name a host
	GET    /api/v1/parties/{handle}
	DELETE /api/v1/parties/{handle}                  handle invalidated
	POST   /api/v1/parties/{handle}/listeners        join
	DELETE /api/v1/parties/{handle}/listeners/{actor} leave
	POST   /api/v1/actors/{actor}/end                end by host or creator
	GET    /api/v1/actors/{actor}/party

Credentials and player:

	PUT    /api/v1/actors/{actor}/credential
	DELETE /api/v1/actors/{actor}/credential
	GET    /api/v1/actors/{actor}/player
	POST   /api/v1/actors/{actor}/player/{play|pause|next|previous}
	GET    /api/v1/actors/{actor}/top/{artists|tracks}
	GET    /api/v1/actors/{actor}/recent
	GET    /api/v1/actors/{actor}/playlists/{id}

Operations: /healthz, /readyz and /metrics. The relay websocket is mounted
at RELAY_PATH outside bearer auth.

# Responses

Every response uses models.APIResponse. Rejected party commands carry a
distinct error code (REAUTH_REQUIRED, NOT_ELIGIBLE, TARGET_NOT_FOUND,
ALREADY_IN_PARTY, PARTY_NOT_FOUND, NOT_A_LISTENER) and the machine reason
in error.details.reason.
*/
package api
