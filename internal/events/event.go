// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/partysync/internal/party"
)

// Topic is the in-process topic carrying every party event.
const Topic = "party.events"

// Event types. Also used as the suffix of exported NATS subjects.
const (
	TypeSummaryChanged = "party.summary_changed"
	TypeEnded          = "party.ended"
)

// MetadataType is the message metadata key holding the event type.
const MetadataType = "event_type"

// Event is the payload of every party event.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Party      party.Summary   `json:"party"`
	Reason     party.EndReason `json:"reason,omitempty"`
}

func newEvent(kind string, s party.Summary, reason party.EndReason, at time.Time) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       kind,
		OccurredAt: at,
		Party:      s,
		Reason:     reason,
	}
}

func (e *Event) toMessage() (*message.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	msg := message.NewMessage(e.ID, payload)
	msg.Metadata.Set(MetadataType, e.Type)
	msg.Metadata.Set("party", e.Party.Handle)
	return msg, nil
}

// Decode parses an event message.
func Decode(msg *message.Message) (*Event, error) {
	var e Event
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return nil, fmt.Errorf("decode event %s: %w", msg.UUID, err)
	}
	if e.Type == "" {
		e.Type = msg.Metadata.Get(MetadataType)
	}
	return &e, nil
}
