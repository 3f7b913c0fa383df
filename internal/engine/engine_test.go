// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package engine

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/partysync/internal/config"
	"github.com/tomtom215/partysync/internal/logging"
	"github.com/tomtom215/partysync/internal/models"
	"github.com/tomtom215/partysync/internal/party"
	"github.com/tomtom215/partysync/internal/store"
	"github.com/tomtom215/partysync/internal/upstream"
)

func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

func partyListener(s *models.PlaybackSnapshot, r *bool) party.Listener {
	return party.Listener{LastSnapshot: s, RelayConnected: r}
}

const pairToken = "00000000-0000-0000-0000-0000000000aa"

type command struct {
	subject  string
	kind     string
	uri      string
	position int64
}

// fakePlayback serves snapshots per subject. A missing entry is a failed
// fetch (unknown state).
type fakePlayback struct {
	mu       sync.Mutex
	snaps    map[string]*models.PlaybackSnapshot
	commands []command
	fetches  atomic.Int32
	block    chan struct{}
}

func (f *fakePlayback) CurrentPlayback(ctx context.Context, cred *models.Credential, _ upstream.PlaybackOptions) (*models.PlaybackSnapshot, error) {
	f.fetches.Add(1)
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snaps[cred.SubjectID]
	if !ok {
		return nil, upstream.ErrTransport
	}
	return s, nil
}

func (f *fakePlayback) Start(ctx context.Context, cred *models.Credential, opts upstream.StartOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, command{cred.SubjectID, "start", opts.ItemURI, opts.PositionMs})
	return nil
}

func (f *fakePlayback) Pause(ctx context.Context, cred *models.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, command{subject: cred.SubjectID, kind: "pause"})
	return nil
}

func (f *fakePlayback) set(subject string, s *models.PlaybackSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s == nil {
		delete(f.snaps, subject)
		return
	}
	f.snaps[subject] = s
}

func (f *fakePlayback) take() []command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.commands
	f.commands = nil
	return out
}

type fakeRelay map[string]bool

func (r fakeRelay) Connected(token string) bool { return r[token] }

type notifications struct {
	mu      sync.Mutex
	changed []party.Summary
	ended   map[string]party.EndReason
}

func (n *notifications) PartyChanged(s party.Summary) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, s)
}

func (n *notifications) PartyEnded(s party.Summary, reason party.EndReason) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ended[s.Handle] = reason
}

func (n *notifications) takeChanged() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := len(n.changed)
	n.changed = nil
	return c
}

type harness struct {
	engine    *Engine
	registry  *party.Registry
	store     *store.MemoryStore
	playback  *fakePlayback
	relay     fakeRelay
	regEvents *notifications
	events    *notifications
	now       time.Time
}

var start = time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:     store.NewMemoryStore(),
		playback:  &fakePlayback{snaps: make(map[string]*models.PlaybackSnapshot)},
		relay:     fakeRelay{},
		regEvents: &notifications{ended: make(map[string]party.EndReason)},
		events:    &notifications{ended: make(map[string]party.EndReason)},
		now:       start,
	}
	h.registry = party.NewRegistry(h.regEvents)
	cfg := &config.SyncConfig{
		Interval:       10 * time.Millisecond,
		PartyTimeout:   30 * time.Minute,
		DriftTolerance: 5 * time.Second,
	}
	h.engine = New(cfg, h.registry, h.store, h.playback, h.relay, h.events)
	h.engine.now = func() time.Time { return h.now }
	return h
}

func (h *harness) login(t *testing.T, id string, tier models.Tier, token string) {
	t.Helper()
	_, err := h.store.Save(context.Background(), &models.Credential{
		SubjectID:          id,
		RefreshToken:       "r-" + id,
		AccessToken:        "a-" + id,
		Tier:               tier,
		DirectControlToken: token,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func (h *harness) party(t *testing.T, host string, listeners ...string) *party.Party {
	t.Helper()
	p := party.New(models.ActorRef{ID: host}, models.ActorRef{ID: host}, h.now)
	if err := h.registry.AddParty(p); err != nil {
		t.Fatal(err)
	}
	for _, l := range listeners {
		if err := h.registry.AddListener(p.Handle, models.ActorRef{ID: l}); err != nil {
			t.Fatal(err)
		}
	}
	return p
}

func TestTick_EndToEndDriftCorrection(t *testing.T) {
	h := newHarness(t)
	h.login(t, "host", models.TierPremium, "")
	h.login(t, "listener", models.TierPremium, "")
	h.party(t, "host", "listener")
	ctx := context.Background()

	h.playback.set("host", playing("T", 10000))
	h.playback.set("listener", playing("T", 2000))
	h.engine.Tick(ctx)

	got := h.playback.take()
	want := command{"listener", "start", "spotify:track:T", 10000}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("commands = %+v, want [%+v]", got, want)
	}

	h.playback.set("listener", playing("T", 10050))
	h.engine.Tick(ctx)
	if got := h.playback.take(); len(got) != 0 {
		t.Errorf("in-sync tick issued %+v", got)
	}
}

func TestTick_SecondTickIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.login(t, "host", models.TierPremium, "")
	h.login(t, "listener", models.TierPremium, "")
	p := h.party(t, "host", "listener")
	ctx := context.Background()
	h.regEvents.takeChanged()

	h.playback.set("host", stopped("T", 10000))
	h.playback.set("listener", playing("T", 10000))
	h.engine.Tick(ctx)
	if got := h.playback.take(); len(got) != 1 || got[0].kind != "pause" {
		t.Fatalf("first tick commands = %+v, want one pause", got)
	}
	if h.events.takeChanged() != 1 {
		t.Error("first observation should raise a summary change")
	}

	h.playback.set("listener", stopped("T", 10000))
	h.engine.Tick(ctx)
	if got := h.playback.take(); len(got) != 0 {
		t.Errorf("second tick commands = %+v", got)
	}
	if h.events.takeChanged() != 1 {
		t.Error("listener pausing should raise a summary change")
	}

	h.engine.Tick(ctx)
	if got := h.playback.take(); len(got) != 0 {
		t.Errorf("third tick commands = %+v", got)
	}
	if n := h.events.takeChanged(); n != 0 {
		t.Errorf("unchanged tick raised %d summary changes", n)
	}
	if ref := p.Reference(); !ref.IsStopped() {
		t.Errorf("reference = %+v", ref)
	}
}

func TestTick_InactivityTeardown(t *testing.T) {
	h := newHarness(t)
	h.login(t, "host", models.TierPremium, "")
	p := h.party(t, "host")

	h.now = start.Add(30*time.Minute + time.Millisecond)
	h.engine.Tick(context.Background())

	if p.Active() {
		t.Fatal("party should have timed out")
	}
	if h.regEvents.ended[p.Handle] != party.EndInactivity {
		t.Errorf("reason = %q", h.regEvents.ended[p.Handle])
	}
	if h.playback.fetches.Load() != 0 {
		t.Error("timed out party was still polled")
	}
}

func TestTick_ActivityKeepsPartyAlive(t *testing.T) {
	h := newHarness(t)
	h.login(t, "host", models.TierPremium, "")
	h.login(t, "listener", models.TierPremium, "")
	p := h.party(t, "host", "listener")

	h.playback.set("host", playing("T", 10000))
	h.playback.set("listener", playing("T", 10000))
	h.now = start.Add(20 * time.Minute)
	h.engine.Tick(context.Background())
	if !p.Activity().Equal(h.now) {
		t.Fatalf("activity = %v, want %v", p.Activity(), h.now)
	}

	h.now = start.Add(45 * time.Minute)
	h.engine.Tick(context.Background())
	if !p.Active() {
		t.Error("party ended although a listener was playing along")
	}
}

func TestTick_HostUnauthorized(t *testing.T) {
	h := newHarness(t)
	h.login(t, "listener", models.TierPremium, "")
	p := h.party(t, "host", "listener")

	h.engine.Tick(context.Background())

	if p.Active() || h.regEvents.ended[p.Handle] != party.EndHostUnauthorized {
		t.Errorf("active=%v reason=%q", p.Active(), h.regEvents.ended[p.Handle])
	}
}

func TestTick_CapabilityRemoval(t *testing.T) {
	h := newHarness(t)
	h.login(t, "host", models.TierPremium, "")
	h.login(t, "free", models.TierFree, "")
	h.login(t, "premium", models.TierPremium, "")
	p := h.party(t, "host", "free", "gone", "premium")
	if err := h.registry.AddListener(p.Handle, models.ActorRef{ID: "late"}); err != nil {
		t.Fatal(err)
	}
	h.login(t, "late", models.TierFree, pairToken)

	h.playback.set("host", playing("T", 30000))
	h.playback.set("premium", playing("T", 0))
	h.playback.set("late", playing("T", 0))
	h.relay[pairToken] = true
	h.engine.Tick(context.Background())

	members := map[string]bool{}
	for _, l := range p.Listeners() {
		members[l.Actor.ID] = true
	}
	if members["free"] || members["gone"] || !members["premium"] || !members["late"] {
		t.Errorf("listeners after tick = %v", members)
	}

	// Listeners after a removed one are still reconciled.
	got := h.playback.take()
	if len(got) != 2 {
		t.Fatalf("commands = %+v, want starts for premium and late", got)
	}
}

func TestTick_DeviceGuardPremiumOnly(t *testing.T) {
	h := newHarness(t)
	h.login(t, "host", models.TierPremium, "")
	h.login(t, "phone", models.TierPremium, "")
	h.login(t, "relayed", models.TierFree, pairToken)
	p := h.party(t, "host", "phone", "relayed")
	h.relay[pairToken] = true

	inactive := func(s *models.PlaybackSnapshot) { s.Device.Active = false }
	h.playback.set("host", playing("T", 30000))
	h.playback.set("phone", playing("T", 0, inactive))
	h.playback.set("relayed", stopped("T", 0, inactive))
	h.now = start.Add(time.Minute)
	h.engine.Tick(context.Background())

	got := h.playback.take()
	if len(got) != 1 || got[0].subject != "relayed" {
		t.Fatalf("commands = %+v, want one for the relayed listener", got)
	}
	if !p.Activity().Equal(start) {
		t.Error("a guarded premium listener must not refresh activity")
	}

	var relayed party.Listener
	for _, l := range p.Listeners() {
		if l.Actor.ID == "relayed" {
			relayed = l
		}
	}
	if relayed.RelayConnected == nil || !*relayed.RelayConnected {
		t.Errorf("relay state = %v", relayed.RelayConnected)
	}
}

func TestTick_AdGuard(t *testing.T) {
	h := newHarness(t)
	h.login(t, "host", models.TierPremium, "")
	h.login(t, "listener", models.TierPremium, "")
	h.party(t, "host", "listener")

	h.playback.set("host", playing("T", 30000))
	h.playback.set("listener", playing("AD", 0, kind(models.ItemKindAd)))
	h.engine.Tick(context.Background())

	if got := h.playback.take(); len(got) != 0 {
		t.Errorf("commands during an ad = %+v", got)
	}
}

func TestTick_SkipsPartyStillReconciling(t *testing.T) {
	h := newHarness(t)
	h.login(t, "host", models.TierPremium, "")
	h.login(t, "listener", models.TierPremium, "")
	h.party(t, "host", "listener")
	h.playback.set("host", playing("T", 30000))
	h.playback.set("listener", playing("T", 0))

	h.playback.block = make(chan struct{})
	done := make(chan struct{})
	go func() {
		h.engine.Tick(context.Background())
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for h.playback.fetches.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first tick never fetched")
		}
		time.Sleep(time.Millisecond)
	}

	// The first tick holds the party; a second tick must not touch it.
	h.engine.Tick(context.Background())
	if n := h.playback.fetches.Load(); n != 1 {
		t.Errorf("fetches = %d, want 1", n)
	}

	close(h.playback.block)
	<-done
	if got := h.playback.take(); len(got) != 1 {
		t.Errorf("commands = %+v", got)
	}
}

func TestTick_ListenerRemovedMidTick(t *testing.T) {
	h := newHarness(t)
	h.login(t, "host", models.TierPremium, "")
	h.login(t, "listener", models.TierPremium, "")
	p := h.party(t, "host", "listener")
	h.playback.set("host", playing("T", 30000))
	h.playback.set("listener", playing("T", 0))

	h.playback.block = make(chan struct{})
	done := make(chan struct{})
	go func() {
		h.engine.Tick(context.Background())
		close(done)
	}()
	for h.playback.fetches.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	if err := h.registry.RemoveListener(p.Handle, "listener", party.RemovalLeft); err != nil {
		t.Fatal(err)
	}
	close(h.playback.block)
	<-done

	if got := h.playback.take(); len(got) != 0 {
		t.Errorf("removed listener was commanded: %+v", got)
	}
}

func TestTick_HostFetchFailurePausesPlayingListeners(t *testing.T) {
	h := newHarness(t)
	h.login(t, "host", models.TierPremium, "")
	h.login(t, "listener", models.TierPremium, "")
	p := h.party(t, "host", "listener")
	h.playback.set("listener", playing("T", 0))

	h.engine.Tick(context.Background())

	got := h.playback.take()
	if len(got) != 1 || got[0].kind != "pause" {
		t.Errorf("commands = %+v, want pause", got)
	}
	if p.Reference() != nil {
		t.Error("reference should be unknown")
	}
}

func TestStartStop(t *testing.T) {
	h := newHarness(t)
	h.login(t, "host", models.TierPremium, "")
	h.party(t, "host")
	h.playback.set("host", playing("T", 0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := h.engine.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := h.engine.Start(ctx); err == nil {
		t.Error("second Start should fail")
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.playback.fetches.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("engine never ticked")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := h.engine.Stop(); err != nil {
		t.Fatal(err)
	}
	n := h.playback.fetches.Load()
	time.Sleep(50 * time.Millisecond)
	if h.playback.fetches.Load() != n {
		t.Error("engine kept ticking after Stop")
	}
	if err := h.engine.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestDecisionString(t *testing.T) {
	for d, want := range map[Decision]string{DecideNone: "none", DecidePause: "pause", DecideStart: "start"} {
		if d.String() != want {
			t.Errorf("%d.String() = %q", d, d.String())
		}
	}
}
