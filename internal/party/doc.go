// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

/*
Package party holds the in-process set of listening parties.

A Party is one host session and the listeners following it. The Registry
owns every active party and an index from actor id to the roles that actor
holds, which enforces that an actor is in at most one active party. The
Service layers the eligibility rules of the command surface (login,
subscription tier, direct-control pairing) on top of the Registry.

Rejections are *Error values carrying a Reason:

	if _, err := svc.Join(ctx, handle, actor); errors.Is(err, party.ErrAlreadyInParty) {
		// tell the actor to leave their current party first
	}

Lifecycle changes are reported to a Notifier after all locks are released.
*/
package party
