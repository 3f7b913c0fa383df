// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/partysync/internal/logging"
	"github.com/tomtom215/partysync/internal/store"
)

// tombstoneTTL bounds how long an ended handle suppresses late
// summary-changed events.
const tombstoneTTL = time.Hour

// Checkpointer persists party summaries so parties survive a restart.
// Changed events save the party; ended events delete it. A summary whose
// revision is not newer than the last one saved for its party is dropped.
type Checkpointer struct {
	bus    *Bus
	store  store.PartyStore
	logger zerolog.Logger
	now    func() time.Time

	ready     chan struct{}
	readyOnce sync.Once

	mu     sync.Mutex
	ended  map[string]time.Time
	latest map[string]uint64
	saved  int
	purged int
}

// NewCheckpointer creates a checkpointer reading from bus.
func NewCheckpointer(bus *Bus, ps store.PartyStore) *Checkpointer {
	return &Checkpointer{
		bus:    bus,
		store:  ps,
		logger: logging.WithComponent("checkpointer"),
		now:    time.Now,
		ready:  make(chan struct{}),
		ended:  make(map[string]time.Time),
		latest: make(map[string]uint64),
	}
}

// Run consumes events until ctx is done or the bus closes.
func (c *Checkpointer) Run(ctx context.Context) error {
	msgs, err := c.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	c.readyOnce.Do(func() { close(c.ready) })
	c.logger.Info().Msg("Checkpointer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrClosed
			}
			c.handle(ctx, msg)
		}
	}
}

// Ready is closed once the first subscription is in place.
func (c *Checkpointer) Ready() <-chan struct{} {
	return c.ready
}

// String implements fmt.Stringer for the supervisor.
func (c *Checkpointer) String() string {
	return "events-checkpointer"
}

// Stats returns the number of saves and deletes performed.
func (c *Checkpointer) Stats() (saved, purged int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saved, c.purged
}

func (c *Checkpointer) handle(ctx context.Context, msg *message.Message) {
	// Store failures are logged, not redelivered; the next change
	// checkpoints the party again.
	defer msg.Ack()

	e, err := Decode(msg)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Dropping undecodable event")
		return
	}

	switch {
	case e.Type == TypeEnded || e.Party.Ended != nil:
		c.tombstone(e.Party.Handle)
		if err := c.store.DeleteParty(ctx, e.Party.Handle); err != nil && !errors.Is(err, store.ErrNotFound) {
			c.logger.Error().Err(err).Str("party", e.Party.Handle).Msg("Failed to delete party checkpoint")
			return
		}
		c.mu.Lock()
		c.purged++
		c.mu.Unlock()

	case e.Type == TypeSummaryChanged:
		if c.isEnded(e.Party.Handle) {
			return
		}
		if !c.advance(e.Party.Handle, e.Party.Revision) {
			c.logger.Debug().Str("party", e.Party.Handle).Uint64("revision", e.Party.Revision).Msg("Dropping stale summary")
			return
		}
		if err := c.store.SaveParty(ctx, e.Party.Record(c.now())); err != nil {
			c.logger.Error().Err(err).Str("party", e.Party.Handle).Msg("Failed to checkpoint party")
			return
		}
		c.mu.Lock()
		c.saved++
		c.mu.Unlock()

	default:
		c.logger.Debug().Str("type", e.Type).Msg("Ignoring event")
	}
}

func (c *Checkpointer) tombstone(handle string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.ended[handle] = now
	delete(c.latest, handle)
	for h, at := range c.ended {
		if now.Sub(at) > tombstoneTTL {
			delete(c.ended, h)
		}
	}
}

func (c *Checkpointer) isEnded(handle string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.ended[handle]
	return ok
}

// advance records rev as the newest revision seen for handle. It reports
// false when rev is older than or equal to one already seen.
func (c *Checkpointer) advance(handle string, rev uint64) bool {
	if rev == 0 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if rev <= c.latest[handle] {
		return false
	}
	c.latest[handle] = rev
	return true
}
