// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

/*
Package services adapts Partysync components to suture.Service.

Three lifecycle shapes are covered:

	ListenAndServe/Shutdown  HTTPServerService  (http-server)
	Start/Stop               EngineService      (sync-engine)
	Run(ctx)                 RunnerService      (device-relay, events-checkpointer)

Serve returns ctx.Err() on a requested shutdown. Any other error makes
suture restart the service according to the tree's backoff policy.
*/
package services
