// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

/*
Package main is the entry point for the Rollcall server application.

Rollcall is a self-hosted attendance platform for distributed clinical and
field education programs. It serves authoritative time to client devices,
measures and reconciles their clock drift, verifies reported locations
against site geofences, and turns the combined evidence into clock-in and
clock-out decisions that auditors can trust.

# Application Architecture

The server implements a layered architecture with Suture v4 process
supervision:

	RootSupervisor ("rollcall")
	├── MaintenanceSupervisor ("maintenance-layer")
	│   └── Backup scheduler (optional, BACKUP_ENABLED=true)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── Push registry (WebSocket stream lifecycle)
	│   └── Event mirror (optional, -tags nats)
	└── APISupervisor ("api-layer")
	    └── HTTP server (Chi router, REST + WebSocket endpoints)

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Database: DuckDB holding subjects, sites, rotations, and clock sessions
 4. Cache: roster cache (memory or BadgerDB) shared with the importer
 5. Audit: circuit-broken sync event log and async security trail
 6. Time authority: snapshots, drift reports, and reconciliation
 7. Geofence verifier: haversine checks against site radii
 8. Transports: one producer feeding the push stream and the long-poll
 9. Attendance service: clock-in/out decisions over the evidence above
 10. Authentication: JWT, Basic Auth, OIDC introspection, or no-auth mode
 11. Authorization: Casbin RBAC with role hierarchy and decision cache
 12. Optional features: NATS event mirror, snapshot backups, roster import
 13. Supervisor tree: Suture v4 process supervision
 14. HTTP server: Chi router with middleware stack

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest priority
wins):

	Priority: Environment variables > Config file > Defaults

Core environment variables:

	# Server
	HTTP_PORT=8417               # HTTP server port
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console

	# Authentication (choose one mode)
	AUTH_MODE=jwt                # jwt, basic, oidc, or none
	JWT_SECRET=<32+ chars>       # Required for JWT mode
	ADMIN_USERNAME=admin
	ADMIN_PASSWORD=<password>

	# Time sync cadence
	SYNC_INTERVAL=5s             # Push stream time_sync cadence
	HEARTBEAT_INTERVAL=30s       # Push stream heartbeat cadence
	MIN_SYNC_INTERVAL=5s         # Per-client floor across transports

	# Geofencing
	GEOFENCE_ENABLED=true
	GEOFENCE_STRICT_MODE=false   # Reject low-accuracy readings outright

See .env.example for the complete configuration reference.

# Build Tags

Optional build tags enable additional functionality:

	go build ./cmd/server                      # Standard build
	go build -tags nats ./cmd/server           # Enable NATS JetStream mirroring
	go test -tags "nats integration" ./...     # Container-backed broker tests

The nats tag adds the EventMirrorService to the messaging layer; without it
the mirror compiles to a stub and NATS_ENABLED=true logs a warning.

# Signal Handling

The server handles graceful shutdown on SIGINT and SIGTERM:

 1. Stops accepting new HTTP connections
 2. Closes push streams and marks their sessions inactive
 3. Waits for in-flight requests (10s timeout)
 4. Flushes the security trail and checkpoints the database
 5. Reports any services that failed to stop

# Usage Examples

Development without credentials:

	export AUTH_MODE=none
	export SEED_DEMO_DATA=true
	./rollcall

Production with JWT:

	export JWT_SECRET=$(openssl rand -base64 32)
	export ADMIN_USERNAME=admin
	export ADMIN_PASSWORD=secure-password
	export ENVIRONMENT=production
	./rollcall

With event mirroring (binary built with -tags nats):

	export NATS_ENABLED=true
	export NATS_STORE_DIR=/data/nats/jetstream
	./rollcall
*/
package main
