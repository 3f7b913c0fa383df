// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

/*
Package config loads and validates the service configuration.

# Configuration Sources

Configuration is layered with Koanf v2, later layers overriding earlier ones:
  - Built-in defaults (defaultConfig)
  - An optional YAML file, found via CONFIG_PATH or DefaultConfigPaths
  - Environment variables, mapped explicitly in envMappings

Unmapped environment variables are ignored, so the process environment can
carry unrelated settings without colliding with config keys.

# Legacy Variables

API_POLLING_MS and PARTY_TIMEOUT_MS are accepted as bare millisecond counts
("3000"). Any duration path also accepts Go duration strings ("3s", "30m").

Slice settings (CORS_ORIGINS, RELAY_ALLOWED_ORIGINS) are comma separated.

# Validation

Validate runs the struct tag rules through the shared validator and then the
cross-field checks:
  - STORE_PATH is required for the badger backend
  - DRIFT_TOLERANCE and PARTY_TIMEOUT must be at least one sync interval
  - AUTH_MODE=none and wildcard CORS are refused in production
  - JWT_SECRET must be at least 32 characters when AUTH_MODE=jwt
  - EVENTS_EMBEDDED_NATS and EVENTS_NATS_URL cannot both be set

# Example

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	fmt.Println(cfg.Server.Addr())
*/
package config
