// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

// Package attendance implements the clock session state machine: clock-in,
// clock-out, and current status for a subject.
//
// The defining invariant is at most one open session per subject. The
// database layer enforces it with a per-subject mutex around a transactional
// check-and-insert; this package turns the resulting conflict into the
// ALREADY_CLOCKED_IN business error and never observes a half-open state.
//
// Clock-in resolves the rotation the hours are attributed to. An explicit
// rotation ID is validated against the roster; otherwise a prioritized chain
// picks one: an ACTIVE rotation valid now, then a SCHEDULED rotation inside
// its window, then an active site assignment that references a rotation,
// then any rotation valid now regardless of status. Roster reads go through
// the cache-aside layer so repeated clock-ins against the same site do not
// hammer the database.
//
// Timestamps prefer the client's corrected value over its raw clock over
// server time, and each leg is handed to the timesync reconciler so the
// session's synchronized record accumulates per-leg drift.
package attendance
