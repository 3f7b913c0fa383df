// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/partysync/internal/config"
	"github.com/tomtom215/partysync/internal/logging"
	"github.com/tomtom215/partysync/internal/metrics"
	"github.com/tomtom215/partysync/internal/models"
	"github.com/tomtom215/partysync/internal/party"
	"github.com/tomtom215/partysync/internal/upstream"
)

// Credentials is the read side of the credential store.
type Credentials interface {
	Get(ctx context.Context, subjectID string) (*models.Credential, error)
}

// Playback reads and corrects playback sessions.
// Implemented by *upstream.Client.
type Playback interface {
	CurrentPlayback(ctx context.Context, cred *models.Credential, opts upstream.PlaybackOptions) (*models.PlaybackSnapshot, error)
	Start(ctx context.Context, cred *models.Credential, opts upstream.StartOptions) error
	Pause(ctx context.Context, cred *models.Credential) error
}

// RelayStatus reports direct-control liveness. Implemented by *relay.Server.
type RelayStatus interface {
	Connected(token string) bool
}

// SummaryNotifier receives PartySummaryChanged notifications.
type SummaryNotifier interface {
	PartyChanged(s party.Summary)
}

// Engine periodically reconciles every active party.
type Engine struct {
	registry *party.Registry
	creds    Credentials
	playback Playback
	relay    RelayStatus
	notifier SummaryNotifier

	interval time.Duration
	timeout  time.Duration
	decider  *decider
	now      func() time.Time

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates an Engine. relay may be nil when direct control is disabled.
func New(cfg *config.SyncConfig, reg *party.Registry, creds Credentials, pb Playback, relay RelayStatus, n SummaryNotifier) *Engine {
	logging.Info().
		Dur("interval", cfg.Interval).
		Dur("party_timeout", cfg.PartyTimeout).
		Dur("drift_tolerance", cfg.DriftTolerance).
		Msg("Sync engine config loaded")

	return &Engine{
		registry: reg,
		creds:    creds,
		playback: pb,
		relay:    relay,
		notifier: n,
		interval: cfg.Interval,
		timeout:  cfg.PartyTimeout,
		decider:  newDecider(cfg.DriftTolerance),
		now:      time.Now,
	}
}

// Start begins ticking. Each tick runs in its own goroutine so a slow tick
// never delays the next one.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return fmt.Errorf("sync engine is already running")
	}
	e.running = true
	e.stopChan = make(chan struct{})

	e.wg.Add(1)
	go e.loop(ctx, e.stopChan)

	logging.Info().Dur("interval", e.interval).Msg("Sync engine started")
	return nil
}

// Stop ends the loop and waits for in-flight ticks to finish.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	close(e.stopChan)
	e.mu.Unlock()

	e.wg.Wait()
	logging.Info().Msg("Sync engine stopped")
	return nil
}

func (e *Engine) loop(ctx context.Context, stop <-chan struct{}) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			e.wg.Add(1)
			go func() {
				defer e.wg.Done()
				e.Tick(ctx)
			}()
		}
	}
}

// Tick reconciles every active party concurrently and returns when all of
// them are done. A party still held by an earlier tick is skipped.
func (e *Engine) Tick(ctx context.Context) {
	start := time.Now()
	parties := e.registry.Parties()

	listeners := 0
	var wg sync.WaitGroup
	for _, p := range parties {
		listeners += p.ListenerCount()
		wg.Add(1)
		go func(p *party.Party) {
			defer wg.Done()
			e.reconcile(ctx, p)
		}(p)
	}
	wg.Wait()

	metrics.RecordTick(time.Since(start), e.registry.Len(), listeners)
}
