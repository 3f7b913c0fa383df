// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package party

import (
	"errors"
	"fmt"
)

// Reason is the machine-readable cause of a rejected party command.
type Reason string

const (
	ReasonReauthRequired Reason = "reauth_required"
	ReasonNotEligible    Reason = "not_eligible"
	ReasonTargetNotFound Reason = "target_not_found"
	ReasonAlreadyInParty Reason = "already_in_party"
	ReasonPartyNotFound  Reason = "party_not_found"
	ReasonNotAListener   Reason = "not_a_listener"
)

// Error is a rejected party command. Compare with errors.Is against the
// Err* values, which match on Reason only.
type Error struct {
	Reason Reason
	Actor  string
	Handle string
}

var (
	ErrReauthRequired = &Error{Reason: ReasonReauthRequired}
	ErrNotEligible    = &Error{Reason: ReasonNotEligible}
	ErrTargetNotFound = &Error{Reason: ReasonTargetNotFound}
	ErrAlreadyInParty = &Error{Reason: ReasonAlreadyInParty}
	ErrPartyNotFound  = &Error{Reason: ReasonPartyNotFound}
	ErrNotAListener   = &Error{Reason: ReasonNotAListener}
)

func (e *Error) Error() string {
	switch {
	case e.Actor != "" && e.Handle != "":
		return fmt.Sprintf("party %s: actor %s: %s", e.Handle, e.Actor, e.Reason)
	case e.Actor != "":
		return fmt.Sprintf("actor %s: %s", e.Actor, e.Reason)
	case e.Handle != "":
		return fmt.Sprintf("party %s: %s", e.Handle, e.Reason)
	}
	return string(e.Reason)
}

// Is matches any *Error with the same Reason.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Reason == e.Reason
}

func newError(reason Reason, actor, handle string) *Error {
	return &Error{Reason: reason, Actor: actor, Handle: handle}
}

// ReasonOf extracts the Reason from err, if it is a party error.
func ReasonOf(err error) (Reason, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason, true
	}
	return "", false
}

// EndReason records why a party was torn down.
type EndReason string

const (
	EndInactivity        EndReason = "inactivity"
	EndHostUnauthorized  EndReason = "host_unauthorized"
	EndHostLeft          EndReason = "host_left"
	EndCreatorLeft       EndReason = "creator_left"
	EndHandleInvalidated EndReason = "handle_invalidated"
)

// RemovalReason records why a listener left a party.
type RemovalReason string

const (
	RemovalLeft              RemovalReason = "left"
	RemovalCapabilityRevoked RemovalReason = "capability_revoked"
)
