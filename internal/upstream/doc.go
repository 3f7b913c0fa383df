// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

/*
Package upstream is the client for the streaming service's playback and
accounts APIs.

Every request goes through one shared token bucket (golang.org/x/time/rate)
and one circuit breaker (sony/gobreaker). Only transport failures and 5xx
responses count against the breaker; 4xx answers are part of normal
operation (a listener without a device, a private playlist).

# Token Refresh

A 401 on a credentialed request triggers exactly one refresh through the
accounts endpoint. The refreshed credential is saved to the CredentialStore
and the request is retried once. A second 401 returns ErrUnauthorized.

# Control Paths

Start, Pause and Skip prefer the direct-control relay when the subject has
a pairing token with a live connection, then the playback API for premium
subjects. Anything else is ErrNotControllable.

	path, err := client.ControlPath(cred)
	if errors.Is(err, upstream.ErrNotControllable) {
		// drop the listener
	}
*/
package upstream
