// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

/*
Package config provides centralized configuration management for Rollcall.

This package handles loading, validation, and parsing of configuration for
all application components. Configuration is layered: built-in defaults,
then an optional YAML config file, then environment variables, with later
layers overriding earlier ones.

# Configuration Sources

The package reads configuration from:
  - Built-in defaults (always present)
  - YAML config file (config.yaml, or path in CONFIG_PATH)
  - Environment variables (highest priority)

# Configuration Structure

The package organizes configuration into logical groups:

  - ServerConfig: HTTP server settings (host, port, timeout, environment)
  - DatabaseConfig: DuckDB path and performance tuning
  - TimeSyncConfig: Time authority cadence (sync, heartbeat, minimum intervals)
  - TransportConfig: WebSocket push and long-poll tuning
  - GeofenceConfig: Location verification radii, accuracy tiers, strict mode
  - AttendanceConfig: Clock session rules
  - SecurityConfig: Authentication, rate limiting, sessions, CORS
  - CacheConfig: Site/rotation read cache (memory or BadgerDB)
  - AuditConfig: Durable sync event logging and circuit breaker
  - NATSConfig: Optional sync event mirroring via JetStream
  - BackupConfig: Scheduled database exports
  - ImportConfig: Roster import from a SQLite export
  - LoggingConfig: Log levels and output formats

# Environment Variables

Key environment variables by component:

HTTP Server (ServerConfig):
  - HTTP_HOST: Bind address (default: 0.0.0.0)
  - HTTP_PORT: Listen port (default: 8417)
  - HTTP_TIMEOUT: Request timeout (default: 30s)
  - ENVIRONMENT: development, staging, or production (default: development)

Time Authority (TimeSyncConfig):
  - SYNC_INTERVAL: Push time_sync cadence (default: 5s)
  - HEARTBEAT_INTERVAL: Push heartbeat cadence (default: 30s)
  - MIN_SYNC_INTERVAL: Per-client sync gate across transports (default: 5s)
  - SYNC_STATS_WINDOW: Drift statistics window (default: 5m)

Transports (TransportConfig):
  - POLL_MAX_WAIT: Long-poll wait ceiling (default: 60s)
  - PUSH_PONG_WAIT: WebSocket pong deadline (default: 60s)
  - PUSH_WRITE_WAIT: WebSocket write deadline (default: 10s)

Geofencing (GeofenceConfig):
  - GEOFENCE_STRICT: Hard-fail on geofence/accuracy violations (default: false)
  - GEOFENCE_MIN_RADIUS_M: Radius floor in meters (default: 100)
  - GEOFENCE_MAX_ACCURACY_M: Max acceptable GPS accuracy (default: 100)

Authentication (SecurityConfig):
  - AUTH_MODE: Authentication mode (none, jwt, basic, oidc; default: jwt)
  - JWT_SECRET: JWT signing secret (min 32 chars, required for jwt mode)
  - ADMIN_USERNAME: Admin login username (required for jwt/basic)
  - ADMIN_PASSWORD: Admin login password (policy-checked, required for jwt/basic)
  - SESSION_STORE: Session backend, memory or badger (default: badger)
  - TRUSTED_PROXIES: Comma-separated list of trusted proxy IPs

Database (DatabaseConfig):
  - DUCKDB_PATH: Database file path (default: /data/rollcall.duckdb)
  - DUCKDB_THREADS: Thread count (default: CPU count)
  - DUCKDB_MAX_MEMORY: Memory limit (default: 1GB)
  - SEED_DEMO_DATA: Seed demo roster for dev/tests (default: false)

# Usage Example

Basic configuration loading:

	import "github.com/rollcall-attendance/rollcall/internal/config"

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
	    log.Fatalf("Failed to load config: %v", err)
	}

	// Access configuration values
	fmt.Printf("Starting server on %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("Sync cadence: %s\n", cfg.TimeSync.SyncInterval)
	fmt.Printf("Database: %s\n", cfg.Database.Path)

Testing with custom configuration:

	// Override environment variables for testing
	os.Setenv("HTTP_PORT", "8080")
	os.Setenv("AUTH_MODE", "none")
	os.Setenv("SYNC_INTERVAL", "1s")

	cfg, err := config.Load()
	// Use cfg for testing

# Validation

The package performs comprehensive validation:

  - Required fields per auth mode: JWT_SECRET (jwt), ADMIN_PASSWORD (jwt/basic),
    OIDC_ISSUER_URL + OIDC_CLIENT_ID + OIDC_CLIENT_SECRET (oidc)
  - String length: JWT_SECRET >= 32 chars, admin password policy-checked
  - Numeric ranges: HTTP_PORT (1-65535), IMPORT_BATCH_SIZE (1-10000)
  - Duration ranges: SYNC_INTERVAL (1s-5m), POLL_MAX_WAIT (1s-5m)
  - Accuracy tiers must be strictly ordered (high < medium < max)
  - URL formats: OIDC_ISSUER_URL, NATS_URL, CORS origins
  - Production guards: no AUTH_MODE=none, no wildcard CORS with auth

# Security Best Practices

When configuring authentication:

 1. Use strong JWT secrets: Minimum 32 characters, cryptographically random
    Generate with: openssl rand -base64 48

 2. Use strong admin passwords: the default policy requires 12+ characters
    with mixed case, digits, and symbols

 3. Configure trusted proxies: Only allow known reverse proxy IPs
    Example: TRUSTED_PROXIES=127.0.0.1,10.0.0.0/8

 4. Set specific CORS origins in production; wildcard origins are rejected
    when authentication is enabled

# Docker Deployment

For Docker deployments, use environment variables or docker-compose.yml:

	services:
	  rollcall:
	    image: ghcr.io/rollcall-attendance/rollcall:latest
	    environment:
	      JWT_SECRET: ${JWT_SECRET}
	      ADMIN_USERNAME: admin
	      ADMIN_PASSWORD: ${ADMIN_PASSWORD}
	      DUCKDB_PATH: /data/rollcall.duckdb
	      ENVIRONMENT: production
	      CORS_ORIGINS: https://attendance.example.edu
	    ports:
	      - "8417:8417"

# Thread Safety

The Config struct is immutable after Load() returns, making it safe for concurrent
access from multiple goroutines without synchronization.

# Performance

Configuration loading is fast (<10ms) and only happens once at startup. Values
are parsed and validated during Load(), so runtime access is direct field reads
with zero overhead.
*/
package config
