// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/partysync/internal/api"
	"github.com/tomtom215/partysync/internal/config"
	"github.com/tomtom215/partysync/internal/engine"
	"github.com/tomtom215/partysync/internal/events"
	"github.com/tomtom215/partysync/internal/logging"
	"github.com/tomtom215/partysync/internal/party"
	"github.com/tomtom215/partysync/internal/relay"
	"github.com/tomtom215/partysync/internal/store"
	"github.com/tomtom215/partysync/internal/supervisor"
	"github.com/tomtom215/partysync/internal/supervisor/services"
	"github.com/tomtom215/partysync/internal/upstream"
)

//nolint:gocyclo // sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("environment", cfg.Server.Environment).
		Str("store", cfg.Store.Backend).
		Str("auth_mode", cfg.Security.AuthMode).
		Bool("relay_enabled", cfg.Relay.Enabled).
		Dur("sync_interval", cfg.Sync.Interval).
		Msg("Starting Partysync")

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS_ORIGINS=* with authentication enabled; restrict origins before exposing the API")
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	// The relay server is always constructed; when disabled it is neither
	// mounted nor supervised, and nothing ever connects to it.
	relaySrv := relay.NewServer(cfg.Relay, st)
	var (
		directRelay  upstream.Relay
		relayStatus  engine.RelayStatus
		healthRelay  api.RelayStatus
		relayHandler http.Handler
	)
	if cfg.Relay.Enabled {
		directRelay = relaySrv
		relayStatus = relaySrv
		healthRelay = relaySrv
		relayHandler = http.HandlerFunc(relaySrv.Handler)
	}

	client := upstream.New(&cfg.Upstream, st, directRelay)

	natsURL := cfg.Events.NATSURL
	if cfg.Events.EmbeddedNATS {
		embedded, err := events.NewEmbeddedServer(cfg.Events.EmbeddedNATSHost, cfg.Events.EmbeddedNATSPort)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to start embedded NATS server")
		}
		defer embedded.Shutdown()
		natsURL = embedded.ClientURL()
		logging.Info().Str("url", natsURL).Msg("Embedded NATS server started")
	}

	var external message.Publisher
	if natsURL != "" {
		external, err = events.NewNATSPublisher(natsURL)
		if err != nil {
			logging.Fatal().Err(err).Str("url", natsURL).Msg("Failed to create NATS publisher")
		}
		logging.Info().Str("subject_prefix", cfg.Events.SubjectPrefix).Msg("Exporting party events to NATS")
	}
	bus := events.NewBus(cfg.Events, external)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	registry := party.NewRegistry(bus)
	service := party.NewService(registry, st, st)
	checkpointer := events.NewCheckpointer(bus, st)

	syncEngine := engine.New(&cfg.Sync, registry, st, client, relayStatus, bus)

	var jwtManager *api.JWTManager
	if cfg.Security.AuthMode == "jwt" {
		jwtManager, err = api.NewJWTManager(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
	}

	handler := api.NewHandler(service, st, client, st, healthRelay)
	router := api.NewRouter(cfg, handler, jwtManager, relayHandler)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(&cfg.Supervisor))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDataService(services.NewCheckpointerService(checkpointer))
	if cfg.Relay.Enabled {
		tree.AddMessagingService(services.NewRelayService(relaySrv))
	}
	tree.AddMessagingService(services.NewEngineService(syncEngine))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	// Restore only after the checkpointer has subscribed; the in-process
	// bus drops messages published with no subscriber.
	errCh := tree.ServeBackground(ctx)
	if cfg.Sync.RestoreOnStart {
		restoreParties(ctx, service, checkpointer)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	saved, purged := checkpointer.Stats()
	logging.Info().
		Int("parties_active", registry.Len()).
		Int("checkpoints_saved", saved).
		Int("checkpoints_purged", purged).
		Msg("Partysync stopped")
}

// restoreParties waits briefly for the checkpointer subscription and then
// reloads the checkpointed parties. A failure here is logged, not fatal:
// the service starts empty and clients can start parties again.
func restoreParties(ctx context.Context, svc *party.Service, cp *events.Checkpointer) {
	select {
	case <-cp.Ready():
	case <-time.After(5 * time.Second):
		logging.Warn().Msg("Checkpointer not ready; restoring parties without checkpoint updates")
	case <-ctx.Done():
		return
	}

	if _, err := svc.Restore(ctx); err != nil {
		logging.Error().Err(err).Msg("Failed to restore parties")
	}
}
