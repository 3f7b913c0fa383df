// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

/*
Package store persists credentials and party checkpoints.

Two backends implement Store:
  - MemoryStore: maps behind a RWMutex, lost on restart
  - BadgerStore: BadgerDB on disk (or in memory for tests)

Credentials are read fresh for every operation that needs them and are
never cached by callers beyond one reconciliation tick. Refreshed access
tokens are always written back through Save.

Party records are checkpoints written by the event checkpointer. They are
advisory: the in-process registry is authoritative while the service runs,
and records are only read back at start-up.
*/
package store
