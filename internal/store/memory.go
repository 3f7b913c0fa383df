// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/partysync/internal/models"
)

// MemoryStore is a process-local Store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	creds   map[string]*models.Credential
	direct  map[string]string
	parties map[string]*PartyRecord
	closed  bool
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		creds:   make(map[string]*models.Credential),
		direct:  make(map[string]string),
		parties: make(map[string]*PartyRecord),
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(ctx context.Context, subjectID string) (*models.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	c, ok := m.creds[subjectID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyCredential(c), nil
}

func (m *MemoryStore) Save(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	if cred == nil || cred.SubjectID == "" {
		return nil, ErrInvalidRecord
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	if old, ok := m.creds[cred.SubjectID]; ok && old.DirectControlToken != cred.DirectControlToken {
		delete(m.direct, old.DirectControlToken)
	}

	stored := copyCredential(cred)
	stored.UpdatedAt = m.now().UTC()
	m.creds[stored.SubjectID] = stored
	if stored.DirectControlToken != "" {
		m.direct[stored.DirectControlToken] = stored.SubjectID
	}
	return copyCredential(stored), nil
}

func (m *MemoryStore) Delete(ctx context.Context, subjectID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, ErrClosed
	}
	c, ok := m.creds[subjectID]
	if !ok {
		return false, nil
	}
	delete(m.direct, c.DirectControlToken)
	delete(m.creds, subjectID)
	return true, nil
}

func (m *MemoryStore) GetByDirectToken(ctx context.Context, token string) (*models.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	subject, ok := m.direct[token]
	if !ok || token == "" {
		return nil, ErrNotFound
	}
	return copyCredential(m.creds[subject]), nil
}

func (m *MemoryStore) SaveParty(ctx context.Context, rec *PartyRecord) error {
	if rec == nil || rec.Handle == "" {
		return ErrInvalidRecord
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	stored := copyParty(rec)
	stored.SavedAt = m.now().UTC()
	m.parties[rec.Handle] = stored
	return nil
}

func (m *MemoryStore) DeleteParty(ctx context.Context, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.parties, handle)
	return nil
}

// ListParties returns saved parties ordered by start time.
func (m *MemoryStore) ListParties(ctx context.Context) ([]*PartyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]*PartyRecord, 0, len(m.parties))
	for _, r := range m.parties {
		out = append(out, copyParty(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
