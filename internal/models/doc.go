// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

// Package models holds the value types shared across partysync packages:
// playback snapshots, stored credentials, actor references and the HTTP
// response envelope.
package models
