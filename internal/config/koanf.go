// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/partysync/config.yaml",
	"/etc/partysync/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Upstream: UpstreamConfig{
			APIBaseURL:          "https://api.spotify.com/v1",
			AccountsURL:         "https://accounts.spotify.com/api/token",
			RequestTimeout:      10 * time.Second,
			RateLimit:           20,
			RateBurst:           40,
			BreakerMaxRequests:  3,
			BreakerInterval:     time.Minute,
			BreakerTimeout:      30 * time.Second,
			BreakerMinRequests:  20,
			BreakerFailureRatio: 0.6,
		},
		Sync: SyncConfig{
			Interval:       3 * time.Second,
			PartyTimeout:   30 * time.Minute,
			DriftTolerance: 5 * time.Second,
			RestoreOnStart: true,
		},
		Relay: RelayConfig{
			Enabled:          true,
			Path:             "/spotify-party/websocket",
			PingInterval:     25 * time.Second,
			WriteTimeout:     10 * time.Second,
			HandshakeTimeout: 10 * time.Second,
			SendBuffer:       16,
		},
		Store: StoreConfig{
			Backend: "memory",
			Path:    "/data/partysync",
		},
		Events: EventsConfig{
			OutputBuffer:     64,
			SubjectPrefix:    "partysync",
			EmbeddedNATSHost: "127.0.0.1",
			EmbeddedNATSPort: 4222,
		},
		Security: SecurityConfig{
			AuthMode:          "jwt",
			JWTIssuer:         "partysync",
			RateLimitRequests: 60,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// Load reads configuration with the precedence ENV > file > defaults and
// validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}
	if err := processMillisecondFields(k); err != nil {
		return nil, fmt.Errorf("failed to process millisecond fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"relay.allowed_origins",
	"security.cors_origins",
}

// processSliceFields converts comma-separated env values into slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// millisecondConfigPaths are duration fields that legacy deployments set as
// bare millisecond counts (API_POLLING_MS=3000).
var millisecondConfigPaths = []string{
	"sync.interval",
	"sync.party_timeout",
	"sync.drift_tolerance",
}

// processMillisecondFields rewrites bare integers on duration paths to
// millisecond durations. Values with a unit ("3s") are left alone.
func processMillisecondFields(k *koanf.Koanf) error {
	for _, path := range millisecondConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		ms, err := strconv.ParseInt(strings.TrimSpace(strVal), 10, 64)
		if err != nil {
			continue
		}
		if err := k.Set(path, time.Duration(ms)*time.Millisecond); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Server
	"host":                  "server.host",
	"port":                  "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	// Upstream
	"spotify_api_url":          "upstream.api_base_url",
	"spotify_accounts_url":     "upstream.accounts_url",
	"spotify_client_id":        "upstream.client_id",
	"spotify_client_secret":    "upstream.client_secret",
	"upstream_timeout":         "upstream.request_timeout",
	"upstream_rate_limit":      "upstream.rate_limit",
	"upstream_rate_burst":      "upstream.rate_burst",
	"upstream_breaker_timeout": "upstream.breaker_timeout",

	// Sync
	"api_polling_ms":   "sync.interval",
	"sync_interval":    "sync.interval",
	"party_timeout_ms": "sync.party_timeout",
	"party_timeout":    "sync.party_timeout",
	"drift_tolerance":  "sync.drift_tolerance",
	"restore_parties":  "sync.restore_on_start",

	// Relay
	"relay_enabled":         "relay.enabled",
	"relay_path":            "relay.path",
	"relay_ping_interval":   "relay.ping_interval",
	"relay_allowed_origins": "relay.allowed_origins",

	// Store
	"store_backend":     "store.backend",
	"store_path":        "store.path",
	"store_sync_writes": "store.sync_writes",

	// Events
	"events_nats_url":       "events.nats_url",
	"events_subject_prefix": "events.subject_prefix",
	"events_embedded_nats":  "events.embedded_nats",
	"events_nats_host":      "events.embedded_nats_host",
	"events_nats_port":      "events.embedded_nats_port",

	// Security
	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"jwt_issuer":          "security.jwt_issuer",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Supervisor
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
