// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package services

import (
	"context"
	"fmt"
)

// StartStopper matches the sync engine lifecycle:
//   - Start(ctx) spawns the tick loop and returns
//   - Stop() waits for the loop to drain
type StartStopper interface {
	Start(ctx context.Context) error
	Stop() error
}

// EngineService adapts a Start/Stop component to suture's Serve pattern.
type EngineService struct {
	engine StartStopper
	name   string
}

// NewEngineService wraps the sync engine.
//
//	eng := engine.New(&cfg.Sync, registry, store, client, relaySrv, bus)
//	tree.AddMessagingService(services.NewEngineService(eng))
func NewEngineService(engine StartStopper) *EngineService {
	return &EngineService{
		engine: engine,
		name:   "sync-engine",
	}
}

// Serve implements suture.Service. A Start failure is returned so suture
// restarts the engine with backoff.
func (s *EngineService) Serve(ctx context.Context) error {
	if err := s.engine.Start(ctx); err != nil {
		return fmt.Errorf("sync engine start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.engine.Stop(); err != nil {
		return fmt.Errorf("sync engine stop failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for suture's event log.
func (s *EngineService) String() string {
	return s.name
}
