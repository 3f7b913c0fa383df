// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

/*
Package metrics provides Prometheus metrics for partysync.

Metrics are registered with the default registry through promauto and
exposed at /metrics in Prometheus text format:

	curl http://localhost:3000/metrics

# Available Metrics

Reconciliation:
  - partysync_tick_duration_seconds: wall time of one reconciliation tick
  - partysync_parties_active / partysync_listeners_active: registry size
  - partysync_parties_skipped_total: parties still reconciling when a tick fired
  - partysync_corrective_commands_total{kind,path,result}
  - partysync_party_teardowns_total{reason}
  - partysync_summary_changes_total

Relay:
  - partysync_relay_connections_active
  - partysync_relay_handshakes_total{result}
  - partysync_relay_displacements_total
  - partysync_relay_messages_sent_total{type,result}

Upstream:
  - partysync_upstream_requests_total{operation,status}
  - partysync_upstream_request_duration_seconds{operation}
  - partysync_upstream_token_refreshes_total{result}
  - circuit_breaker_* (state, requests, consecutive failures, transitions)
*/
package metrics
