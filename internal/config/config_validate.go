// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/partysync/internal/validation"
)

// Validate checks field-level constraints from the struct tags, then the
// cross-field rules that tags cannot express.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("invalid configuration: %w", verr)
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	if err := c.validateSync(); err != nil {
		return err
	}

	if err := c.validateRelay(); err != nil {
		return err
	}

	if c.Events.EmbeddedNATS && c.Events.NATSURL != "" {
		return fmt.Errorf("EVENTS_EMBEDDED_NATS and EVENTS_NATS_URL are mutually exclusive")
	}

	return c.validateSecurity()
}

func (c *Config) validateStore() error {
	if c.Store.Backend == "badger" && strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("STORE_PATH is required when STORE_BACKEND=badger")
	}
	return nil
}

// validateSync rejects a drift tolerance below one tick, which would make
// every listener look out of sync between two polls.
func (c *Config) validateSync() error {
	if c.Sync.DriftTolerance < c.Sync.Interval {
		return fmt.Errorf("DRIFT_TOLERANCE (%v) must not be shorter than the sync interval (%v)",
			c.Sync.DriftTolerance, c.Sync.Interval)
	}
	if c.Sync.PartyTimeout < c.Sync.Interval {
		return fmt.Errorf("PARTY_TIMEOUT (%v) must not be shorter than the sync interval (%v)",
			c.Sync.PartyTimeout, c.Sync.Interval)
	}
	return nil
}

func (c *Config) validateRelay() error {
	if !c.Relay.Enabled {
		return nil
	}
	if strings.HasPrefix(c.Relay.Path, "/api/") {
		return fmt.Errorf("RELAY_PATH must not live under /api/")
	}
	return nil
}

// Rate limit constants
const (
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateSecurity() error {
	if err := c.validateAuthModeForEnvironment(); err != nil {
		return err
	}

	if c.Security.AuthMode == "jwt" {
		if err := c.validateJWTSecret(); err != nil {
			return err
		}
	}

	if err := c.validateCORS(); err != nil {
		return err
	}

	return c.validateRateLimits()
}

// validateAuthModeForEnvironment refuses AUTH_MODE=none in production.
func (c *Config) validateAuthModeForEnvironment() error {
	if c.Security.AuthMode == "none" && c.IsProduction() {
		return fmt.Errorf("AUTH_MODE=none is not allowed when ENVIRONMENT=production")
	}
	return nil
}

func (c *Config) validateJWTSecret() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_MODE is jwt")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if containsPlaceholder(c.Security.JWTSecret) {
		return fmt.Errorf("JWT_SECRET contains a placeholder value - generate a secret with: openssl rand -base64 32")
	}
	return nil
}

// validateCORS rejects wildcard origins in production when auth is enabled.
func (c *Config) validateCORS() error {
	if c.Security.AuthMode != "none" && c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* is not allowed in production with authentication enabled")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if CORS configuration has security
// concerns that should be logged at startup.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Security.AuthMode != "none" && c.hasWildcardCORS()
}

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitRequests > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at most %d", maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"PLACEHOLDER",
	"EXAMPLE",
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}
