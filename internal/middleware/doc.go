// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

// Package middleware provides the HTTP middleware the router composes around
// every handler: request ID propagation for tracing and Prometheus request
// instrumentation.
//
// Both follow chi's middleware convention (func(http.Handler) http.Handler)
// so they slot into r.Use alongside chi's own Recoverer, RealIP, and
// Compress. Rate limiting lives with the router (go-chi/httprate) and
// authentication with the auth package; this package is deliberately
// identity-free.
package middleware
