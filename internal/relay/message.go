// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package relay

import (
	"github.com/goccy/go-json"
)

// MessageType is the "type" field of a server push.
type MessageType string

const (
	MessagePlay     MessageType = "play"
	MessagePause    MessageType = "pause"
	MessageNext     MessageType = "next"
	MessagePrevious MessageType = "previous"
	MessageInactive MessageType = "inactive"
	MessagePing     MessageType = "ping"
)

// Message is the only frame the server sends. URI and Timestamp encode as
// null when unset. For play, Timestamp carries the seek position in
// milliseconds; for ping and inactive it carries the server clock.
type Message struct {
	Type      MessageType `json:"type"`
	URI       *string     `json:"uri"`
	Timestamp *int64      `json:"timestamp"`
}

// NewMessage builds a frame. An empty uri and a zero timestamp become null.
func NewMessage(kind MessageType, uri string, timestamp int64) Message {
	m := Message{Type: kind}
	if uri != "" {
		m.URI = &uri
	}
	if timestamp != 0 {
		m.Timestamp = &timestamp
	}
	return m
}

func (m Message) encode() ([]byte, error) {
	return json.Marshal(m)
}
