// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

// Package main provides the Rollcall HTTP server
//
// Rollcall serves authoritative time, verifies presence against site
// geofences, and records auditable clock-in/clock-out sessions.
//
// @title Rollcall API
// @version 1.0
// @description Attendance time synchronization and presence verification for distributed clinical and field education programs
// @description
// @description ## Features
// @description
// @description - **Time Authority**: Authoritative server time with per-client drift measurement and reconciliation
// @description - **Dual Sync Transports**: WebSocket push stream and bounded long-poll delivering the same event shape
// @description - **Geofenced Attendance**: Clock-in/clock-out verified against site radii with accuracy tiers
// @description - **Durable Audit**: Every sync event and security outcome persisted in DuckDB
// @description - **Roster Import**: Sites, rotations, and assignments loaded from an upstream SQLite export
// @description - **Snapshot Backups**: Scheduled database exports with retention
// @description
// @description ## Authentication
// @description
// @description Most endpoints require JWT authentication via HTTP-only cookie or Authorization header.
// @description Use `/api/v1/auth/login` to obtain a token; the cookie is included automatically in subsequent requests.
// @description OIDC bearer tokens from an external provider are accepted when AUTH_MODE=oidc.
// @description
// @description ## Rate Limiting
// @description
// @description Default rate limit: 100 requests per minute per IP address, with a stricter bucket on write endpoints.
// @description
// @description ## Error Responses
// @description
// @description All error responses follow this format:
// @description ```json
// @description {
// @description   "status": "error",
// @description   "data": null,
// @description   "error": {
// @description     "code": "ERROR_CODE",
// @description     "message": "Human-readable error message",
// @description     "details": {}
// @description   },
// @description   "metadata": {
// @description     "timestamp": "2026-08-25T12:34:56Z"
// @description   }
// @description }
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/rollcall-attendance/rollcall/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:8417
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in cookie
// @name token
// @description JWT token stored in HTTP-only cookie. Obtain via /api/v1/auth/login endpoint.
//
// @tag.name Core
// @tag.description Health probes and readiness checks for orchestrators and load balancers
//
// @tag.name Time
// @tag.description Authoritative server time and client drift reporting
//
// @tag.name Sync
// @tag.description Sync event delivery over the WebSocket push stream and the long-poll endpoint
//
// @tag.name Attendance
// @tag.description Clock-in, clock-out, and status operations with geofence verification
//
// @tag.name Auth
// @tag.description Authentication and session management endpoints
//
// @tag.name Admin
// @tag.description Administrative operations requiring the admin role (backups, roster import)
package main
