// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
//
// Loading order (Koanf v2):
//  1. Defaults from defaultConfig()
//  2. Optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment variables
//
// Config is immutable after Load() and safe for concurrent reads.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Upstream   UpstreamConfig   `koanf:"upstream"`
	Sync       SyncConfig       `koanf:"sync"`
	Relay      RelayConfig      `koanf:"relay"`
	Store      StoreConfig      `koanf:"store"`
	Events     EventsConfig     `koanf:"events"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// ServerConfig configures the HTTP listener shared by the API and the relay.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	Environment     string        `koanf:"environment" validate:"oneof=development production"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// UpstreamConfig configures the playback API client.
type UpstreamConfig struct {
	APIBaseURL     string        `koanf:"api_base_url" validate:"required,url"`
	AccountsURL    string        `koanf:"accounts_url" validate:"required,url"`
	ClientID       string        `koanf:"client_id"`
	ClientSecret   string        `koanf:"client_secret"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`

	// RateLimit is the sustained request rate (requests/second) across all
	// subjects; RateBurst is the bucket size.
	RateLimit float64 `koanf:"rate_limit" validate:"gt=0"`
	RateBurst int     `koanf:"rate_burst" validate:"min=1"`

	BreakerMaxRequests  uint32        `koanf:"breaker_max_requests" validate:"min=1"`
	BreakerInterval     time.Duration `koanf:"breaker_interval" validate:"gt=0"`
	BreakerTimeout      time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
	BreakerMinRequests  uint32        `koanf:"breaker_min_requests" validate:"min=1"`
	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio" validate:"gt=0,lte=1"`
}

// SyncConfig configures the reconciliation loop.
type SyncConfig struct {
	// Interval is the tick period. API_POLLING_MS is accepted as a plain
	// millisecond count.
	Interval time.Duration `koanf:"interval" validate:"gt=0"`

	// PartyTimeout tears a party down when nobody has been playing along
	// for this long. PARTY_TIMEOUT_MS is accepted as a plain millisecond count.
	PartyTimeout time.Duration `koanf:"party_timeout" validate:"gt=0"`

	// DriftTolerance is the position difference at which a listener is
	// re-seeked to the host.
	DriftTolerance time.Duration `koanf:"drift_tolerance" validate:"gt=0"`

	// RestoreOnStart reloads checkpointed parties from the store at startup.
	RestoreOnStart bool `koanf:"restore_on_start"`
}

// RelayConfig configures the direct-control websocket relay.
type RelayConfig struct {
	Enabled          bool          `koanf:"enabled"`
	Path             string        `koanf:"path" validate:"required,startswith=/"`
	PingInterval     time.Duration `koanf:"ping_interval" validate:"gt=0"`
	WriteTimeout     time.Duration `koanf:"write_timeout" validate:"gt=0"`
	HandshakeTimeout time.Duration `koanf:"handshake_timeout" validate:"gt=0"`
	SendBuffer       int           `koanf:"send_buffer" validate:"min=1"`
	AllowedOrigins   []string      `koanf:"allowed_origins"`
}

// StoreConfig selects the credential/party store backend.
type StoreConfig struct {
	Backend    string `koanf:"backend" validate:"oneof=memory badger"`
	Path       string `koanf:"path"`
	SyncWrites bool   `koanf:"sync_writes"`
}

// EventsConfig configures party event fan-out.
type EventsConfig struct {
	OutputBuffer int64 `koanf:"output_buffer" validate:"min=1"`

	// NATSURL enables exporting party events to NATS when non-empty.
	NATSURL       string `koanf:"nats_url" validate:"omitempty,url"`
	SubjectPrefix string `koanf:"subject_prefix"`

	// EmbeddedNATS starts an in-process NATS server and exports to it.
	// Mutually exclusive with NATSURL.
	EmbeddedNATS     bool   `koanf:"embedded_nats"`
	EmbeddedNATSHost string `koanf:"embedded_nats_host"`
	EmbeddedNATSPort int    `koanf:"embedded_nats_port" validate:"min=-1,max=65535"`
}

// SecurityConfig configures the command API.
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode" validate:"oneof=jwt none"`
	JWTSecret         string        `koanf:"jwt_secret"`
	JWTIssuer         string        `koanf:"jwt_issuer"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// SupervisorConfig mirrors supervisor.TreeConfig.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gt=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gt=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"gt=0"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
