// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

// Package audit records what happened, durably, off the hot path.
//
// It carries two independent logs:
//
//   - Writer appends domain sync events (ticks, drift measurements, clock
//     operations) to the sync_events table behind a circuit breaker. The
//     transports fire and forget; a failing store never stalls a tick.
//   - Trail records security events (logins, logouts, authorization
//     denials, imports, backups) to the security_events table through a
//     buffered async writer with severity filtering and retention cleanup.
//
// Both swallow persistence failures and surface them only through logs
// and metrics. Attendance truth lives in clock_sessions; nothing here is
// consulted to answer a domain question.
package audit
