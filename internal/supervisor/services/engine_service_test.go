// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

type mockEngine struct {
	started    atomic.Bool
	stopped    atomic.Bool
	startError error
	stopError  error
}

func (m *mockEngine) Start(ctx context.Context) error {
	if m.startError != nil {
		return m.startError
	}
	m.started.Store(true)
	return nil
}

func (m *mockEngine) Stop() error {
	m.stopped.Store(true)
	return m.stopError
}

func waitStarted(m *mockEngine) {
	for i := 0; i < 10; i++ {
		if m.started.Load() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestEngineServiceInterface(t *testing.T) {
	var _ suture.Service = (*EngineService)(nil)
}

func TestEngineService(t *testing.T) {
	t.Run("starts and stops the engine", func(t *testing.T) {
		eng := &mockEngine{}
		svc := NewEngineService(eng)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- svc.Serve(ctx)
		}()

		waitStarted(eng)
		if !eng.started.Load() {
			t.Fatal("engine was not started")
		}
		cancel()

		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("service did not stop in time")
		}
		if !eng.stopped.Load() {
			t.Error("engine was not stopped")
		}
	})

	t.Run("propagates start error", func(t *testing.T) {
		startErr := errors.New("engine already running")
		eng := &mockEngine{startError: startErr}

		err := NewEngineService(eng).Serve(context.Background())
		if !errors.Is(err, startErr) {
			t.Errorf("expected wrapped start error, got %v", err)
		}
		if eng.started.Load() {
			t.Error("engine should not be marked started")
		}
	})

	t.Run("reports stop error", func(t *testing.T) {
		eng := &mockEngine{stopError: errors.New("stop failed")}
		svc := NewEngineService(eng)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- svc.Serve(ctx)
		}()
		waitStarted(eng)
		cancel()

		if err := <-done; err == nil {
			t.Error("expected error from stop failure")
		}
	})

	t.Run("name", func(t *testing.T) {
		if got := NewEngineService(&mockEngine{}).String(); got != "sync-engine" {
			t.Errorf("expected 'sync-engine', got %q", got)
		}
	})
}

// flakyEngine fails its first failUntil starts.
type flakyEngine struct {
	starts    atomic.Int32
	failUntil int32
}

func (m *flakyEngine) Start(ctx context.Context) error {
	if m.starts.Add(1) <= m.failUntil {
		return errors.New("simulated start failure")
	}
	return nil
}

func (m *flakyEngine) Stop() error { return nil }

func TestEngineServiceWithSupervisor(t *testing.T) {
	eng := &flakyEngine{failUntil: 2}

	sup := suture.New("messaging-layer", suture.Spec{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          100 * time.Millisecond,
	})
	sup.Add(NewEngineService(eng))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	errCh := sup.ServeBackground(ctx)
	time.Sleep(200 * time.Millisecond)

	if got := eng.starts.Load(); got < 3 {
		t.Errorf("expected at least 3 start attempts, got %d", got)
	}

	cancel()
	<-errCh
}
