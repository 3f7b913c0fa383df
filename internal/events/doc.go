// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

/*
Package events publishes party lifecycle events.

The Bus is the registry's and the engine's notifier. Every event is
published on a single in-process Watermill GoChannel topic (Topic), with
the event type in message metadata. A single dispatcher goroutine delivers
events one at a time, so subscribers see them in publish order.

Event types:
  - party.summary_changed: membership or reference playback changed
  - party.ended: the party was torn down, with the end reason

When EVENTS_NATS_URL is set, events are also exported to core NATS on the
subject "<prefix>.<type>", for example "partysync.party.ended".

# Checkpointing

The Checkpointer subscribes to the bus and mirrors active parties into the
PartyStore so they can be restored after a restart. An ended handle is
remembered for an hour so that a late summary change cannot resurrect its
checkpoint. Summaries carry a per-party revision; one older than the last
saved for its party is dropped.
*/
package events
