// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package api

import (
	"context"
	"net/http"
	"time"
)

// HealthStatus is the body of the health endpoints.
type HealthStatus struct {
	Status           string  `json:"status"`
	StoreReachable   bool    `json:"store_reachable"`
	RelayRunning     bool    `json:"relay_running"`
	RelayConnections int     `json:"relay_connections"`
	Parties          int     `json:"parties"`
	UpstreamBreaker  string  `json:"upstream_breaker,omitempty"`
	Uptime           float64 `json:"uptime_seconds"`
}

const readinessTimeout = 2 * time.Second

// Healthz handles GET /healthz. It only reports that the process serves
// requests.
//
// @Summary Liveness check
// @Tags Health
// @Produce json
// @Success 200 {object} HealthStatus
// @Router /healthz [get]
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondData(w, http.StatusOK, HealthStatus{
		Status:  "alive",
		Parties: h.registry.Len(),
		Uptime:  time.Since(h.startTime).Seconds(),
	}, start)
}

// Readyz handles GET /readyz: the store must answer a ping and the relay,
// when enabled, must be running.
//
// @Summary Readiness check
// @Tags Health
// @Produce json
// @Success 200 {object} HealthStatus
// @Failure 503 {object} HealthStatus "Store or relay not ready"
// @Router /readyz [get]
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	status := HealthStatus{
		Status:         "ready",
		StoreReachable: h.store == nil || h.store.Ping(ctx) == nil,
		RelayRunning:   h.relay == nil || h.relay.Running(),
		Parties:        h.registry.Len(),
		Uptime:         time.Since(h.startTime).Seconds(),
	}
	if h.relay != nil {
		status.RelayConnections = h.relay.ConnectionCount()
	}
	if h.upstream != nil {
		status.UpstreamBreaker = h.upstream.BreakerState()
	}

	code := http.StatusOK
	if !status.StoreReachable || !status.RelayRunning {
		status.Status = "not_ready"
		code = http.StatusServiceUnavailable
	}
	respondData(w, code, status, start)
}
