// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package party

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/partysync/internal/logging"
	"github.com/tomtom215/partysync/internal/models"
	"github.com/tomtom215/partysync/internal/store"
)

// Service applies the eligibility rules of the command surface on top of
// the Registry.
type Service struct {
	registry *Registry
	creds    store.CredentialStore
	parties  store.PartyStore
	now      func() time.Time
}

// NewService creates a Service. parties may be nil when checkpointing is
// disabled.
func NewService(reg *Registry, creds store.CredentialStore, parties store.PartyStore) *Service {
	return &Service{registry: reg, creds: creds, parties: parties, now: time.Now}
}

// Registry returns the underlying registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

func (s *Service) credential(ctx context.Context, actorID string, missing Reason) (*models.Credential, error) {
	cred, err := s.creds.Get(ctx, actorID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(missing, actorID, "")
	}
	if err != nil {
		return nil, fmt.Errorf("load credential for %s: %w", actorID, err)
	}
	return cred, nil
}

// Start begins a party for creator. With host nil (or equal to creator)
// the creator hosts and must be logged in. Otherwise the creator must be
// able to follow playback and the named host must be logged in; if the host
// is already in a party the creator joins it instead.
func (s *Service) Start(ctx context.Context, creator models.ActorRef, host *models.ActorRef) (*Party, error) {
	if found := s.registry.FindByActor(creator.ID); found.Party != nil {
		return nil, newError(ReasonAlreadyInParty, creator.ID, found.Party.Handle)
	}

	if host == nil || host.ID == creator.ID {
		if _, err := s.credential(ctx, creator.ID, ReasonReauthRequired); err != nil {
			return nil, err
		}
		p := New(creator, creator, s.now())
		if err := s.registry.AddParty(p); err != nil {
			return nil, err
		}
		return p, nil
	}

	cred, err := s.credential(ctx, creator.ID, ReasonReauthRequired)
	if err != nil {
		return nil, err
	}
	if !cred.Controllable() {
		return nil, newError(ReasonNotEligible, creator.ID, "")
	}
	if _, err := s.credential(ctx, host.ID, ReasonTargetNotFound); err != nil {
		return nil, err
	}

	if existing := s.registry.FindByActor(host.ID); existing.Party != nil {
		if err := s.registry.AddListener(existing.Party.Handle, creator); err != nil {
			return nil, err
		}
		return existing.Party, nil
	}

	p := New(*host, creator, s.now())
	if err := s.registry.AddParty(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Join adds actor as a listener of the party identified by handle.
func (s *Service) Join(ctx context.Context, handle string, actor models.ActorRef) (*Party, error) {
	cred, err := s.credential(ctx, actor.ID, ReasonReauthRequired)
	if err != nil {
		return nil, err
	}
	if !cred.Controllable() {
		return nil, newError(ReasonNotEligible, actor.ID, handle)
	}
	if err := s.registry.AddListener(handle, actor); err != nil {
		return nil, err
	}
	p, _ := s.registry.FindByHandle(handle)
	return p, nil
}

// Leave removes actorID from the party it listens to.
func (s *Service) Leave(actorID string) (*Party, error) {
	found := s.registry.FindByActor(actorID)
	if !found.Has(RoleListener) {
		return nil, newError(ReasonNotAListener, actorID, "")
	}
	if err := s.registry.RemoveListener(found.Party.Handle, actorID, RemovalLeft); err != nil {
		return nil, err
	}
	return found.Party, nil
}

// End tears down the party hosted or created by actorID.
func (s *Service) End(actorID string) (*Party, error) {
	p, ok := s.registry.RemoveByActor(actorID, "")
	if !ok {
		return nil, newError(ReasonPartyNotFound, actorID, "")
	}
	return p, nil
}

// Invalidate tears down a party whose externally rendered handle was
// destroyed.
func (s *Service) Invalidate(handle string) (*Party, error) {
	p, ok := s.registry.RemoveByHandle(handle, EndHandleInvalidated)
	if !ok {
		return nil, newError(ReasonPartyNotFound, "", handle)
	}
	return p, nil
}

// Restore loads checkpointed parties into the registry. Records that
// conflict with an already registered party are discarded.
func (s *Service) Restore(ctx context.Context) (int, error) {
	if s.parties == nil {
		return 0, nil
	}
	recs, err := s.parties.ListParties(ctx)
	if err != nil {
		return 0, fmt.Errorf("list saved parties: %w", err)
	}

	restored := 0
	for _, rec := range recs {
		if err := s.registry.AddParty(FromRecord(rec)); err != nil {
			logging.Warn().Err(err).Str("party", rec.Handle).Msg("Discarding saved party")
			if derr := s.parties.DeleteParty(ctx, rec.Handle); derr != nil {
				logging.Warn().Err(derr).Str("party", rec.Handle).Msg("Failed to delete saved party")
			}
			continue
		}
		restored++
	}

	if restored > 0 {
		logging.Info().Int("parties", restored).Msg("Restored saved parties")
	}
	return restored, nil
}
