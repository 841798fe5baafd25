// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

/*
Package database provides the DuckDB persistence layer for Rollcall.

The package wraps a single DuckDB connection pool and exposes typed CRUD
methods for the attendance tables. All state the rest of the system relies
on lives here:

  - sync_sessions: one row per client, upserted by both sync transports
  - sync_events: append-only audit log of every emitted sync event
  - clock_sessions: clock-in/clock-out records, never deleted
  - synchronized_clock_records: drift-reconciled timestamps per session
  - location_verifications: write-once geofence check outcomes
  - sites / rotations / site_assignments: roster read models consumed by
    the rotation resolution chain (managed externally, seeded for dev)

# Concurrency

DuckDB aborts one of two transactions that update the same row. Two
mechanisms keep concurrent writers correct:

  - Per-key mutexes (client_id for sync session upserts, subject_id for
    clock-in check-and-insert) serialize writers of the same logical row
    while leaving writers of different rows fully concurrent.
  - A bounded retry loop with exponential backoff absorbs the residual
    transaction conflicts DuckDB reports under cross-row contention.

The clock-in path additionally runs its open-session check and insert in
one transaction, so the at-most-one-open-session rule holds even if a
second writer slips past the mutex (e.g. multiple processes).

# Usage

	db, err := database.New(&cfg.Database)
	if err != nil {
	    return err
	}
	defer db.Close()

	session, err := db.UpsertSyncSession(ctx, &models.SyncSession{...})

All public methods accept a context; operations without a deadline get a
30-second default. Tests use Path ":memory:" for hermetic fixtures.
*/
package database
