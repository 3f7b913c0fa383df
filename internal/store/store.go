// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/partysync/internal/config"
	"github.com/tomtom215/partysync/internal/models"
)

var (
	// ErrNotFound is returned by lookups for records that do not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("store: closed")

	// ErrInvalidRecord is returned when saving a record without its key.
	ErrInvalidRecord = errors.New("store: record has no key")
)

// CredentialStore holds one credential per subject. Implementations return
// copies; callers may not retain or mutate the store's own records.
type CredentialStore interface {
	// Get returns the credential for subjectID, or ErrNotFound.
	Get(ctx context.Context, subjectID string) (*models.Credential, error)

	// Save inserts or replaces the credential and returns the stored copy.
	Save(ctx context.Context, cred *models.Credential) (*models.Credential, error)

	// Delete removes the credential. The bool reports whether it existed.
	Delete(ctx context.Context, subjectID string) (bool, error)

	// GetByDirectToken finds the subject owning a direct-control token, or
	// returns ErrNotFound.
	GetByDirectToken(ctx context.Context, token string) (*models.Credential, error)
}

// PartyRecord is the persisted form of an active party.
type PartyRecord struct {
	Handle    string                   `json:"handle"`
	Host      models.ActorRef          `json:"host"`
	Creator   models.ActorRef          `json:"creator"`
	Listeners []models.ActorRef        `json:"listeners"`
	Reference *models.PlaybackSnapshot `json:"reference,omitempty"`
	Activity  time.Time                `json:"activity"`
	Started   time.Time                `json:"started"`
	SavedAt   time.Time                `json:"saved_at"`
}

// PartyStore checkpoints active parties so they survive a restart.
type PartyStore interface {
	SaveParty(ctx context.Context, rec *PartyRecord) error
	DeleteParty(ctx context.Context, handle string) error
	ListParties(ctx context.Context) ([]*PartyRecord, error)
}

// Store is the full persistence surface used by the service.
type Store interface {
	CredentialStore
	PartyStore

	// Ping reports whether the backend is usable.
	Ping(ctx context.Context) error
	Close() error
}

func copyCredential(c *models.Credential) *models.Credential {
	cp := *c
	return &cp
}

func copyParty(r *PartyRecord) *PartyRecord {
	cp := *r
	cp.Listeners = append([]models.ActorRef(nil), r.Listeners...)
	return &cp
}

// Open returns the backend selected by cfg.
func Open(cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "memory", "":
		return NewMemoryStore(), nil
	case "badger":
		return OpenBadger(BadgerConfig{Path: cfg.Path, SyncWrites: cfg.SyncWrites})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
