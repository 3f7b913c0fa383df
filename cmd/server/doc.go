// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

/*
Package main is the entry point for the Partysync server.

Partysync keeps a group of Spotify listeners in step with a host: every
sync interval it reads the host's playback and starts, seeks or pauses
each listener to match.

# Application Architecture

	RootSupervisor ("partysync")
	├── DataSupervisor ("data-layer")
	│   └── events-checkpointer (party snapshots into the store)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── device-relay (direct-control WebSocket, if RELAY_ENABLED)
	│   └── sync-engine (reconciliation loop)
	└── APISupervisor ("api-layer")
	    └── http-server (command API, health, metrics, relay upgrade)

Initialization order:

 1. Configuration: Koanf v2 (defaults, YAML file, environment)
 2. Logging: zerolog, JSON or console
 3. Store: in-memory or BadgerDB credentials and party checkpoints
 4. Device relay and the upstream playback client
 5. Event bus (Watermill GoChannel, optional NATS export)
 6. Party registry, service and sync engine
 7. Command API: chi router, JWT auth, rate limits
 8. Supervisor tree, then party restore when RESTORE_PARTIES is set

# Configuration

	PORT=3000
	LOG_LEVEL=info
	LOG_FORMAT=json

	SPOTIFY_CLIENT_ID=...
	SPOTIFY_CLIENT_SECRET=...

	API_POLLING_MS=3000          # sync interval
	PARTY_TIMEOUT_MS=1800000     # idle party teardown

	STORE_BACKEND=badger
	STORE_PATH=/data/partysync

	AUTH_MODE=jwt
	JWT_SECRET=<32+ chars>

	EVENTS_NATS_URL=nats://localhost:4222   # optional event export

See package config for the full list.

# Shutdown

SIGINT or SIGTERM cancels the root context. Each supervised service gets
SUPERVISOR_SHUTDOWN_TIMEOUT to stop; the event bus and the store are closed
after the tree has returned.
*/
package main

// @title Partysync API
// @version 1.0
// @description Synchronized Spotify listening parties: a host's playback is mirrored to every listener.
// @description
// @description All error responses carry `status: "error"` and an `error` object with `code` and `message`.
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:3000
// @BasePath /
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT bearer token, sent as "Bearer <token>". Not required when AUTH_MODE=none.
//
// @tag.name Parties
// @tag.description Start, join, leave and end listening parties
//
// @tag.name Credentials
// @tag.description Actor authorization ingest
//
// @tag.name Player
// @tag.description Playback state and controls for one actor
//
// @tag.name Library
// @tag.description Top items, recent plays and playlists
//
// @tag.name Health
// @tag.description Liveness and readiness
