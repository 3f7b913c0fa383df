// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

/*
Package supervisor runs the long-lived components of Partysync under a
suture v4 supervisor tree.

# Overview

Services are grouped into three layers, each its own child supervisor:

	RootSupervisor ("partysync")
	├── DataSupervisor ("data-layer")
	│   └── events-checkpointer
	├── MessagingSupervisor ("messaging-layer")
	│   ├── device-relay
	│   └── sync-engine
	└── APISupervisor ("api-layer")
	    └── http-server

Each layer counts failures independently. A sync engine that keeps failing
backs off inside the messaging layer while the command API stays up.

# Configuration

TreeConfigFrom maps the SUPERVISOR_* settings. Zero fields take suture's
defaults:
  - FailureThreshold: 5 failures
  - FailureDecay: 30 seconds
  - FailureBackoff: 15 seconds
  - ShutdownTimeout: 10 seconds

# Logging

Supervisor events (service panics, restarts, backoff) go through sutureslog
into the slog bridge from internal/logging, so they land in the same
zerolog stream as the rest of the service.

# Not Supervised

The store and the event bus are plain resources opened before the tree
starts and closed after it stops. They have no loop of their own to
restart.

# Debugging Shutdown

	report, _ := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
	}
*/
package supervisor
