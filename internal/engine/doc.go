// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

/*
Package engine is the reconciliation loop that keeps listeners in step with
their party's host.

Every tick reads the host's playback snapshot once per party and then, for
each listener, reads its snapshot and issues at most one corrective
command. Decisions are ordered rule lists evaluated first-match (see
decide.go):

 1. skipDevice: a premium listener whose device cannot be driven is left alone
 2. skipPause, pauseWhen: pause a listener that plays while the host cannot be followed
 3. skipStart, startRules: start the host's item at the host's position when
    the listener is stopped, unknown, on another item or drifted by at least
    the drift tolerance

A listener that is already not playing needs no pause, so a second tick over
unchanged state issues nothing.

Parties are reconciled concurrently. A party whose previous tick is still
running is skipped. Party state is copied under the party lock and every
write after a network call re-checks that the party is still active and the
listener still a member.
*/
package engine
