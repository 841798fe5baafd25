// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

/*
database_schema.go - Database Schema Management

This file manages the DuckDB database schema including table creation and
index management.

Tables:
  - sync_sessions: One row per client tracking its time-sync relationship
  - sync_events: Append-only audit log of emitted sync events
  - clock_sessions: Clock-in/clock-out attendance records
  - synchronized_clock_records: Drift-reconciled timestamps per clock session
  - location_verifications: Write-once geofence check outcomes
  - sites, rotations, site_assignments: Roster read models for the
    rotation resolution chain (owned by the upstream roster system,
    materialized here for lookups and dev seeding)

Schema Strategy (Pre-Release):
All columns are defined in the initial CREATE TABLE statement. After the
first public release, schema changes go through versioned migrations in
migrations.go instead.

Index Strategy:
Indexes cover the hot lookups: open-session checks by subject, sync event
window aggregation by client and time, and roster resolution by subject
and site.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := db.getTableCreationQueries()

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

// getTableCreationQueries returns the table creation SQL statements.
func (db *DB) getTableCreationQueries() []string {
	return []string{
		// Sync sessions: one row per client, upserted by both transports.
		// status flips inactive on disconnect; the row is never deleted so
		// last_sync_at and drift_ms survive transport switches.
		`CREATE TABLE IF NOT EXISTS sync_sessions (
			client_id TEXT PRIMARY KEY,
			subject_id TEXT,
			protocol TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			last_sync_at TIMESTAMP NOT NULL,
			drift_ms BIGINT NOT NULL DEFAULT 0,
			connected_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,

		// Sync events: append-only audit log. client_time and drift_ms are
		// populated only for drift_measurement events.
		`CREATE TABLE IF NOT EXISTS sync_events (
			id UUID PRIMARY KEY,
			client_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			server_time TIMESTAMP NOT NULL,
			client_time TIMESTAMP,
			drift_ms BIGINT,
			metadata JSON,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,

		// Clock sessions: the attendance record of truth. Rows are closed by
		// setting clock_out exactly once and are never deleted.
		`CREATE TABLE IF NOT EXISTS clock_sessions (
			id UUID PRIMARY KEY,
			subject_id TEXT NOT NULL,
			rotation_id TEXT NOT NULL,
			site_id TEXT NOT NULL,
			clock_in TIMESTAMP NOT NULL,
			clock_out TIMESTAMP,
			total_hours DOUBLE,
			status TEXT NOT NULL DEFAULT 'active',
			clock_in_latitude DOUBLE,
			clock_in_longitude DOUBLE,
			clock_in_accuracy_m DOUBLE,
			clock_out_latitude DOUBLE,
			clock_out_longitude DOUBLE,
			clock_out_accuracy_m DOUBLE,
			notes TEXT,
			activities JSON,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,

		// Synchronized clock records: drift-corrected timestamps, one per
		// clock session. Created lazily on the first reconciled leg, updated
		// on the second; verification_status flips verified when both legs
		// are present.
		`CREATE TABLE IF NOT EXISTS synchronized_clock_records (
			id UUID PRIMARY KEY,
			clock_session_id UUID NOT NULL UNIQUE,
			synced_clock_in TIMESTAMP,
			synced_clock_out TIMESTAMP,
			clock_in_drift_ms BIGINT,
			clock_out_drift_ms BIGINT,
			sync_accuracy TEXT NOT NULL DEFAULT 'low',
			verification_status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,

		// Location verifications: write-once geofence outcomes, kept for
		// failed attempts too so flagged activity is auditable.
		`CREATE TABLE IF NOT EXISTS location_verifications (
			id UUID PRIMARY KEY,
			clock_session_id UUID,
			subject_id TEXT NOT NULL,
			site_id TEXT NOT NULL,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			accuracy_m DOUBLE NOT NULL,
			source TEXT,
			distance_m DOUBLE NOT NULL,
			within_geofence BOOLEAN NOT NULL,
			status TEXT NOT NULL,
			flag_reason TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,

		// Roster read models. Owned by the upstream roster system; Rollcall
		// only reads them (plus the CSV importer and dev seeder write them).
		`CREATE TABLE IF NOT EXISTS sites (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			latitude DOUBLE,
			longitude DOUBLE,
			allowed_radius_m DOUBLE NOT NULL DEFAULT 100,
			enforce_geofence BOOLEAN,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,

		`CREATE TABLE IF NOT EXISTS rotations (
			id TEXT PRIMARY KEY,
			subject_id TEXT NOT NULL,
			site_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'SCHEDULED',
			start_date TIMESTAMP NOT NULL,
			end_date TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,

		`CREATE TABLE IF NOT EXISTS site_assignments (
			id TEXT PRIMARY KEY,
			subject_id TEXT NOT NULL,
			site_id TEXT NOT NULL,
			rotation_id TEXT,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
	}
}

// createIndexes creates database indexes for query optimization.
// Skips index creation if cfg.SkipIndexes is true (for fast test setup).
func (db *DB) createIndexes() error {
	if db.cfg != nil && db.cfg.SkipIndexes {
		return nil
	}

	return db.doCreateIndexes()
}

// CreateIndexes creates all database indexes.
// Exposed for tests that specifically exercise indexed query plans; most
// tests should use SkipIndexes: true for fast setup.
func (db *DB) CreateIndexes() error {
	return db.doCreateIndexes()
}

// doCreateIndexes is the internal implementation that creates all indexes.
func (db *DB) doCreateIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := db.getIndexQueries()

	for _, query := range indexes {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute index query: %s: %w", query, err)
		}
	}

	return nil
}

// getIndexQueries returns index creation SQL statements.
func (db *DB) getIndexQueries() []string {
	return []string{
		// Sync session liveness scans
		`CREATE INDEX IF NOT EXISTS idx_sync_sessions_status ON sync_sessions(status);`,
		`CREATE INDEX IF NOT EXISTS idx_sync_sessions_subject ON sync_sessions(subject_id);`,

		// Sync event window aggregation (trailing drift stats per client)
		`CREATE INDEX IF NOT EXISTS idx_sync_events_client_created ON sync_events(client_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_sync_events_type ON sync_events(event_type);`,

		// Open-session check: subject_id + clock_out IS NULL
		`CREATE INDEX IF NOT EXISTS idx_clock_sessions_subject_open ON clock_sessions(subject_id, clock_out);`,
		`CREATE INDEX IF NOT EXISTS idx_clock_sessions_site ON clock_sessions(site_id, clock_in DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_clock_sessions_status ON clock_sessions(status);`,

		// Reconciliation lookup by owning clock session
		`CREATE INDEX IF NOT EXISTS idx_sync_records_session ON synchronized_clock_records(clock_session_id);`,
		`CREATE INDEX IF NOT EXISTS idx_sync_records_verification ON synchronized_clock_records(verification_status);`,

		// Verification audit scans
		`CREATE INDEX IF NOT EXISTS idx_location_verifications_subject ON location_verifications(subject_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_location_verifications_session ON location_verifications(clock_session_id);`,
		`CREATE INDEX IF NOT EXISTS idx_location_verifications_status ON location_verifications(status);`,

		// Rotation resolution chain
		`CREATE INDEX IF NOT EXISTS idx_rotations_subject_site ON rotations(subject_id, site_id);`,
		`CREATE INDEX IF NOT EXISTS idx_rotations_status ON rotations(status);`,
		`CREATE INDEX IF NOT EXISTS idx_site_assignments_subject ON site_assignments(subject_id, active);`,
	}
}
