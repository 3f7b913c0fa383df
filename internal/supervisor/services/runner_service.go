// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package services

import (
	"context"
)

// ContextRunner is a component whose Run blocks until ctx is canceled.
//
// Satisfied by *relay.Server and *events.Checkpointer.
type ContextRunner interface {
	Run(ctx context.Context) error
}

// RunnerService wraps a ContextRunner as a supervised service. Run already
// follows the suture.Service contract, so Serve only delegates.
type RunnerService struct {
	runner ContextRunner
	name   string
}

// NewRunnerService wraps runner under the given service name.
func NewRunnerService(name string, runner ContextRunner) *RunnerService {
	return &RunnerService{
		runner: runner,
		name:   name,
	}
}

// NewRelayService wraps the device relay's connection loop.
func NewRelayService(runner ContextRunner) *RunnerService {
	return NewRunnerService("device-relay", runner)
}

// NewCheckpointerService wraps the party checkpointer.
func NewCheckpointerService(runner ContextRunner) *RunnerService {
	return NewRunnerService("events-checkpointer", runner)
}

// Serve implements suture.Service.
func (r *RunnerService) Serve(ctx context.Context) error {
	return r.runner.Run(ctx)
}

// String implements fmt.Stringer for suture's event log.
func (r *RunnerService) String() string {
	return r.name
}
