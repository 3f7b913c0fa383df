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

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/partysync/internal/config"
	"github.com/tomtom215/partysync/internal/logging"
	"github.com/tomtom215/partysync/internal/metrics"
	"github.com/tomtom215/partysync/internal/party"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("events: bus closed")

// closeDrainTimeout bounds how long Close waits for queued events to reach
// subscribers before tearing the pub/sub down.
const closeDrainTimeout = 5 * time.Second

// Bus fans party notifications out to in-process subscribers and, when
// configured, to an external publisher.
//
// Bus implements party.Notifier and engine.SummaryNotifier. Events are
// queued and delivered by a single dispatcher goroutine, one at a time, so
// subscribers receive them in publish order. Publishing blocks only when
// the queue is full.
type Bus struct {
	pubsub   *gochannel.GoChannel
	external message.Publisher
	prefix   string
	logger   watermill.LoggerAdapter
	now      func() time.Time

	queue chan *Event
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewBus creates a bus and starts its dispatcher. external may be nil.
func NewBus(cfg config.EventsConfig, external message.Publisher) *Bus {
	logger := logging.NewWatermillAdapter("events")
	b := &Bus{
		// Waiting for the subscriber ack keeps delivery sequential; without
		// it GoChannel hands each message to its own goroutine.
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            cfg.OutputBuffer,
			BlockPublishUntilSubscriberAck: true,
		}, logger),
		external: external,
		prefix:   cfg.SubjectPrefix,
		logger:   logger,
		now:      time.Now,
		queue:    make(chan *Event, max(cfg.OutputBuffer, 1)),
		done:     make(chan struct{}),
	}
	go b.dispatch()
	return b
}

// PartyChanged publishes a PartySummaryChanged event.
func (b *Bus) PartyChanged(s party.Summary) {
	b.publish(newEvent(TypeSummaryChanged, s, "", b.now()))
}

// PartyEnded publishes a PartyEnded event.
func (b *Bus) PartyEnded(s party.Summary, reason party.EndReason) {
	b.publish(newEvent(TypeEnded, s, reason, b.now()))
}

func (b *Bus) publish(e *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		metrics.RecordEventPublished(e.Type, ErrClosed)
		return
	}
	b.queue <- e
}

func (b *Bus) dispatch() {
	defer close(b.done)
	for e := range b.queue {
		b.deliver(e)
	}
}

func (b *Bus) deliver(e *Event) {
	msg, err := e.toMessage()
	if err != nil {
		metrics.RecordEventPublished(e.Type, err)
		b.logger.Error("Failed to encode event", err, watermill.LogFields{"party": e.Party.Handle})
		return
	}

	err = b.pubsub.Publish(Topic, msg)
	metrics.RecordEventPublished(e.Type, err)
	if err != nil {
		b.logger.Error("Failed to publish event", err, watermill.LogFields{"type": e.Type, "party": e.Party.Handle})
	}

	if b.external != nil {
		subject := e.Type
		if b.prefix != "" {
			subject = b.prefix + "." + e.Type
		}
		if err := b.external.Publish(subject, msg.Copy()); err != nil {
			b.logger.Error("Failed to export event", err, watermill.LogFields{"subject": subject, "party": e.Party.Handle})
		}
	}
}

// Subscribe returns a channel of every event published after the call.
// The channel closes when ctx is done or the bus is closed. Each message
// must be acked.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}
	return b.pubsub.Subscribe(ctx, Topic)
}

// Close drains queued events, then closes the pub/sub and the external
// publisher.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	// Queued events still go out unless a subscriber has stopped reading,
	// in which case closing the pub/sub releases the dispatcher.
	select {
	case <-b.done:
	case <-time.After(closeDrainTimeout):
	}
	err := b.pubsub.Close()
	<-b.done
	if b.external != nil {
		err = errors.Join(err, b.external.Close())
	}
	return err
}
