// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package upstream

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when a request is still rejected with 401
	// after one token refresh, or when the refresh itself is rejected.
	ErrUnauthorized = errors.New("upstream: unauthorized")

	// ErrTransport wraps network failures. No partial state is returned.
	ErrTransport = errors.New("upstream: transport failure")

	// ErrCircuitOpen is returned while the circuit breaker rejects requests.
	ErrCircuitOpen = errors.New("upstream: circuit open")

	// ErrNotControllable is returned by Start/Pause/Skip when the subject is
	// neither premium nor connected through the relay.
	ErrNotControllable = errors.New("upstream: subject cannot be controlled")

	// ErrNoActiveDevice is returned by Start when the upstream reports 404.
	ErrNoActiveDevice = errors.New("upstream: no active device")

	// ErrForbidden is returned by read operations answered with 403.
	ErrForbidden = errors.New("upstream: forbidden")

	// ErrRelaySend is returned when a relay push could not be written.
	ErrRelaySend = errors.New("upstream: relay send failed")
)

// StatusError is an unacceptable HTTP status from the upstream.
type StatusError struct {
	Method  string
	URL     string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: unexpected status %d - %s", e.Method, e.URL, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.Status)
}

// IsStatus reports whether err is a *StatusError with the given code.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}
