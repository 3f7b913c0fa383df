// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package engine

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/partysync/internal/logging"
	"github.com/tomtom215/partysync/internal/metrics"
	"github.com/tomtom215/partysync/internal/models"
	"github.com/tomtom215/partysync/internal/party"
	"github.com/tomtom215/partysync/internal/store"
	"github.com/tomtom215/partysync/internal/upstream"
)

// reconcile runs one tick for one party. No party lock is held across
// upstream or relay calls; every write re-checks membership.
func (e *Engine) reconcile(ctx context.Context, p *party.Party) {
	if !p.BeginReconcile() {
		metrics.PartiesSkipped.Inc()
		logging.Debug().Str("party", p.Handle).Msg("Party still reconciling, skipping tick")
		return
	}
	defer p.EndReconcile()

	if !p.Active() {
		return
	}

	now := e.now()
	if now.Sub(p.Activity()) > e.timeout {
		e.registry.RemoveByHandle(p.Handle, party.EndInactivity)
		return
	}

	hostCred, err := e.creds.Get(ctx, p.Host.ID)
	if errors.Is(err, store.ErrNotFound) {
		e.registry.RemoveByHandle(p.Handle, party.EndHostUnauthorized)
		return
	}
	if err != nil {
		logging.Warn().Err(err).Str("party", p.Handle).Msg("Failed to load host credential")
		return
	}
	host := e.fetch(ctx, hostCred)

	changed := false
	for _, l := range p.Listeners() {
		if e.reconcileListener(ctx, p, l.Actor, host, now) {
			changed = true
		}
	}

	prev, ok := p.SwapReference(host)
	if !ok {
		return
	}
	if changed || partyChanged(prev, host) {
		metrics.SummaryChanges.Inc()
		e.notifier.PartyChanged(p.Summary())
	}
}

// reconcileListener updates one listener and issues at most one corrective
// command. It reports whether the listener's visible state changed.
func (e *Engine) reconcileListener(ctx context.Context, p *party.Party, actor models.ActorRef, host *models.PlaybackSnapshot, now time.Time) bool {
	log := logging.With().Str("party", p.Handle).Str("listener", actor.ID).Logger()

	cred, err := e.creds.Get(ctx, actor.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Warn().Err(err).Msg("Failed to load listener credential")
		return false
	}
	if !cred.Controllable() {
		if rerr := e.registry.RemoveListener(p.Handle, actor.ID, party.RemovalCapabilityRevoked); rerr != nil {
			log.Debug().Err(rerr).Msg("Listener already gone")
		}
		return false
	}

	var relayConnected *bool
	if !cred.Premium() && cred.HasDirectControl() {
		connected := e.relay != nil && e.relay.Connected(cred.DirectControlToken)
		relayConnected = &connected
	}

	snap := e.fetch(ctx, cred)

	prev, ok := p.UpdateListener(actor.ID, snap, relayConnected)
	if !ok {
		return false
	}
	changed := listenerChanged(prev, snap, relayConnected)

	if cred.Premium() {
		if why := firstMatch(skipDevice, host, snap); why != "" {
			log.Trace().Str("rule", why).Msg("Listener device cannot be driven")
			return changed
		}
	}

	if host.IsPlaying() && snap.IsPlaying() {
		p.Touch(now)
	}

	if snap.Kind() == models.ItemKindAd {
		return changed
	}

	decision, why := e.decider.decide(host, snap)
	switch decision {
	case DecidePause:
		err = e.playback.Pause(ctx, cred)
	case DecideStart:
		err = e.playback.Start(ctx, cred, upstream.StartOptions{ItemURI: host.ItemURI, PositionMs: host.Progress()})
	default:
		return changed
	}

	if err != nil {
		log.Warn().Err(err).Str("command", decision.String()).Str("rule", why).Msg("Corrective command failed")
	} else {
		log.Debug().Str("command", decision.String()).Str("rule", why).Msg("Corrective command sent")
	}
	return changed
}

// fetch reads a snapshot. Any failure yields nil (unknown).
func (e *Engine) fetch(ctx context.Context, cred *models.Credential) *models.PlaybackSnapshot {
	snap, err := e.playback.CurrentPlayback(ctx, cred, upstream.PlaybackOptions{})
	if err != nil {
		logging.Debug().Err(err).Str("subject", cred.SubjectID).Msg("Playback state unknown this tick")
		return nil
	}
	return snap
}
