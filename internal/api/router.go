// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/partysync/internal/config"
)

// Router wires the handler, middleware and relay endpoint together.
type Router struct {
	handler *Handler
	mw      *ChiMiddleware
	jwt     *JWTManager
	relay   http.Handler
	relayAt string
}

// NewRouter creates the router. jwt is nil when AUTH_MODE=none; relay is
// nil when the relay is disabled.
func NewRouter(cfg *config.Config, h *Handler, jwt *JWTManager, relay http.Handler) *Router {
	mwCfg := DefaultChiMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mwCfg.RateLimitRequests = cfg.Security.RateLimitRequests
	mwCfg.RateLimitWindow = cfg.Security.RateLimitWindow
	mwCfg.RateLimitDisabled = cfg.Security.RateLimitDisabled

	return &Router{
		handler: h,
		mw:      NewChiMiddleware(mwCfg),
		jwt:     jwt,
		relay:   relay,
		relayAt: cfg.Relay.Path,
	}
}

// Setup builds the HTTP handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestLogger)

	// The relay authenticates with its own pairing token during the
	// handshake; it must stay outside bearer auth and CORS.
	if router.relay != nil {
		r.Get(router.relayAt, router.relay.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(router.mw.RateLimitHealth())
		r.Get("/healthz", router.handler.Healthz)
		r.Get("/readyz", router.handler.Readyz)
		r.Handle("/metrics", promhttp.Handler())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.mw.CORS())
		r.Use(APISecurityHeaders())
		r.Use(router.mw.RateLimit())
		r.Use(PrometheusMetrics)
		r.Use(Authenticate(router.jwt))

		r.Route("/parties", func(r chi.Router) {
			r.Get("/", router.handler.ListParties)
			r.Post("/", router.handler.StartParty)
			r.Get("/{handle}", router.handler.GetParty)
			r.Delete("/{handle}", router.handler.InvalidateParty)
			r.Post("/{handle}/listeners", router.handler.JoinParty)
			r.Delete("/{handle}/listeners/{actor}", router.handler.LeaveParty)
		})

		r.Route("/actors/{actor}", func(r chi.Router) {
			r.Put("/credential", router.handler.PutCredential)
			r.Delete("/credential", router.handler.DeleteCredential)
			r.Get("/party", router.handler.ActorParty)
			r.Post("/end", router.handler.EndParty)
			r.Get("/player", router.handler.PlayerState)
			r.Post("/player/{action}", router.handler.PlayerControl)
			r.Get("/top/{type}", router.handler.TopItems)
			r.Get("/recent", router.handler.RecentItems)
			r.Get("/playlists/{id}", router.handler.Playlist)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	return r
}
