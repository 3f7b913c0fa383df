// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

// Package logging provides centralized zerolog-based logging for partysync.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("party", handle).Msg("Party started")
//	logging.Error().Err(err).Msg("Upstream request failed")
//
//	// Per-tick correlation
//	ctx = logging.ContextWithNewCorrelationID(ctx)
//	logging.Ctx(ctx).Debug().Msg("Reconciling")
//
// Always terminate log chains with .Msg() or .Send(); an unterminated
// event is never written.
//
// # Bridges
//
// NewSlogLogger returns an *slog.Logger writing through zerolog, used for
// the sutureslog event hook in the supervisor tree.
package logging
