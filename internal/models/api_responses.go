// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package models

import (
	"time"

	"github.com/rollcall-attendance/rollcall/internal/apperrors"
)

// APIResponse is the uniform envelope returned by every HTTP endpoint.
//
// Fields:
//   - Success: true when the request completed; false when Error is set
//   - Data: response payload (any JSON-serializable type)
//   - Metadata: timing metadata for observability
//   - Error: structured error details (populated only on failure)
//
// Example successful response:
//
//	{
//	  "success": true,
//	  "data": {"record_id": "…", "clocked_in": true},
//	  "metadata": {"timestamp": "2026-02-12T09:00:00Z", "query_time_ms": 12}
//	}
//
// Example error response:
//
//	{
//	  "success": false,
//	  "error": {
//	    "type": "BusinessLogicError",
//	    "code": "ALREADY_CLOCKED_IN",
//	    "message": "Subject already has an open clock session",
//	    "retryable": false,
//	    "timestamp": "2026-02-12T09:00:00Z"
//	  },
//	  "metadata": {"timestamp": "2026-02-12T09:00:00Z"}
//	}
type APIResponse struct {
	Success  bool             `json:"success"`
	Data     any              `json:"data,omitempty"`
	Metadata Metadata         `json:"metadata"`
	Error    *apperrors.Error `json:"error,omitempty"`
}

// Metadata carries per-response observability details.
// QueryTimeMS is the server-side handling time in milliseconds (0 when the
// response was served from cache).
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// Warning is a non-blocking notice attached to a successful result, e.g.
// a geofence miss in lenient mode or degraded GPS accuracy. Clients surface
// these without treating the operation as failed.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthStatus is the full health check payload from GET /api/v1/health.
// Status is "healthy" when the database answers a ping and "degraded"
// otherwise; the server keeps serving time in both states.
type HealthStatus struct {
	Status            string  `json:"status"`
	Version           string  `json:"version"`
	AuthMode          string  `json:"auth_mode"`
	DatabaseConnected bool    `json:"database_connected"`
	PushClients       int     `json:"push_clients"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// LoginRequest is the request body for POST /auth/login (jwt and basic auth
// modes). Password travels in plaintext; HTTPS is required in production.
type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// LoginResponse returns a signed JWT for subsequent authenticated requests.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	SubjectID string    `json:"subject_id"`
}
