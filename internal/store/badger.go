// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/partysync/internal/logging"
	"github.com/tomtom215/partysync/internal/models"
)

// Key prefixes
const (
	prefixCredential = "cred:"
	prefixDirect     = "direct:"
	prefixParty      = "party:"
)

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	Path       string
	SyncWrites bool

	// InMemory keeps everything in RAM and ignores Path.
	InMemory bool
}

// BadgerStore persists credentials and party checkpoints in BadgerDB.
//
// Credentials live under cred:<subject>. A secondary index
// direct:<token> -> subject is maintained in the same transaction as the
// credential, so a token lookup never sees a half-written pair.
type BadgerStore struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
	now    func() time.Time
}

// OpenBadger opens (or creates) a BadgerStore.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("Store opened")

	return &BadgerStore{db: db, now: time.Now}, nil
}

func (s *BadgerStore) view(fn func(txn *badger.Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.View(fn)
}

func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.Update(fn)
}

func readJSON(txn *badger.Txn, key string, dst interface{}) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dst)
	})
}

func writeJSON(txn *badger.Txn, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

func (s *BadgerStore) Get(ctx context.Context, subjectID string) (*models.Credential, error) {
	var cred models.Credential
	err := s.view(func(txn *badger.Txn) error {
		return readJSON(txn, prefixCredential+subjectID, &cred)
	})
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (s *BadgerStore) Save(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	if cred == nil || cred.SubjectID == "" {
		return nil, ErrInvalidRecord
	}

	stored := copyCredential(cred)
	stored.UpdatedAt = s.now().UTC()

	err := s.update(func(txn *badger.Txn) error {
		var old models.Credential
		err := readJSON(txn, prefixCredential+stored.SubjectID, &old)
		switch {
		case err == nil:
			if old.DirectControlToken != "" && old.DirectControlToken != stored.DirectControlToken {
				if err := txn.Delete([]byte(prefixDirect + old.DirectControlToken)); err != nil {
					return err
				}
			}
		case !errors.Is(err, ErrNotFound):
			return err
		}

		if err := writeJSON(txn, prefixCredential+stored.SubjectID, stored); err != nil {
			return err
		}
		if stored.DirectControlToken != "" {
			return txn.Set([]byte(prefixDirect+stored.DirectControlToken), []byte(stored.SubjectID))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save credential: %w", err)
	}
	return copyCredential(stored), nil
}

func (s *BadgerStore) Delete(ctx context.Context, subjectID string) (bool, error) {
	existed := false
	err := s.update(func(txn *badger.Txn) error {
		var old models.Credential
		err := readJSON(txn, prefixCredential+subjectID, &old)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		existed = true
		if old.DirectControlToken != "" {
			if err := txn.Delete([]byte(prefixDirect + old.DirectControlToken)); err != nil {
				return err
			}
		}
		return txn.Delete([]byte(prefixCredential + subjectID))
	})
	if err != nil {
		return false, fmt.Errorf("delete credential: %w", err)
	}
	return existed, nil
}

func (s *BadgerStore) GetByDirectToken(ctx context.Context, token string) (*models.Credential, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	var cred models.Credential
	err := s.view(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixDirect + token))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		subject, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return readJSON(txn, prefixCredential+string(subject), &cred)
	})
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (s *BadgerStore) SaveParty(ctx context.Context, rec *PartyRecord) error {
	if rec == nil || rec.Handle == "" {
		return ErrInvalidRecord
	}
	stored := copyParty(rec)
	stored.SavedAt = s.now().UTC()
	err := s.update(func(txn *badger.Txn) error {
		return writeJSON(txn, prefixParty+stored.Handle, stored)
	})
	if err != nil {
		return fmt.Errorf("save party %s: %w", rec.Handle, err)
	}
	return nil
}

func (s *BadgerStore) DeleteParty(ctx context.Context, handle string) error {
	err := s.update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(prefixParty + handle))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("delete party %s: %w", handle, err)
	}
	return nil
}

// ListParties returns saved parties ordered by start time. Records that fail
// to decode are logged and skipped.
func (s *BadgerStore) ListParties(ctx context.Context) ([]*PartyRecord, error) {
	var out []*PartyRecord
	err := s.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixParty)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			item := it.Item()
			var rec PartyRecord
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				logging.Warn().Err(err).Str("key", string(item.Key())).Msg("Store failed to decode party record")
				continue
			}
			out = append(out, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list parties: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out, nil
}

func (s *BadgerStore) Ping(ctx context.Context) error {
	return s.view(func(txn *badger.Txn) error { return nil })
}

// Close flushes and closes the database. Further calls return ErrClosed.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
