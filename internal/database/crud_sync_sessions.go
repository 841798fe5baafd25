// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rollcall-attendance/rollcall/internal/models"
)

// UpsertSyncSession inserts or refreshes the one sync_sessions row for a
// client. Repeat connects, transport switches, and poll bursts all land on
// the same row.
//
// Update semantics on conflict:
//   - protocol and subject_id track the latest connect
//   - status flips back to the incoming status (normally active)
//   - last_sync_at is monotonic non-decreasing (GREATEST)
//   - connected_at refreshes only on an inactive->active transition, so
//     ticks within one connection keep the original connect time
//   - drift_ms is untouched; only UpdateSyncSessionDrift writes it
//
// Uses per-client locking to serialize writers of the same row and a retry
// loop for residual transaction conflicts.
func (db *DB) UpsertSyncSession(ctx context.Context, session *models.SyncSession) error {
	mu := db.acquireClientLock(session.ClientID)
	defer db.releaseClientLock(session.ClientID, mu)

	now := time.Now()
	if session.ConnectedAt.IsZero() {
		session.ConnectedAt = now
	}
	if session.LastSyncAt.IsZero() {
		session.LastSyncAt = now
	}
	if session.Status == "" {
		session.Status = models.SyncStatusActive
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withConflictRetry(ctx, func(ctx context.Context) error {
		query := `INSERT INTO sync_sessions (
			client_id, subject_id, protocol, status, last_sync_at, drift_ms,
			connected_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (client_id) DO UPDATE SET
			subject_id = COALESCE(EXCLUDED.subject_id, sync_sessions.subject_id),
			protocol = EXCLUDED.protocol,
			status = EXCLUDED.status,
			last_sync_at = GREATEST(sync_sessions.last_sync_at, EXCLUDED.last_sync_at),
			connected_at = CASE
				WHEN sync_sessions.status = 'inactive' THEN EXCLUDED.connected_at
				ELSE sync_sessions.connected_at
			END,
			updated_at = EXCLUDED.updated_at`

		_, err := db.conn.ExecContext(ctx, query,
			session.ClientID, session.SubjectID, string(session.Protocol),
			string(session.Status), session.LastSyncAt, session.DriftMs,
			session.ConnectedAt, now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert sync session: %w", err)
		}
		return nil
	})
}

// TouchSyncSession advances a client's last_sync_at after a delivered tick.
// last_sync_at never moves backwards.
func (db *DB) TouchSyncSession(ctx context.Context, clientID string, at time.Time) error {
	mu := db.acquireClientLock(clientID)
	defer db.releaseClientLock(clientID, mu)

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	// Hot path: fires on every sync tick, so it goes through the
	// prepared statement cache.
	return db.withConflictRetry(ctx, func(ctx context.Context) error {
		stmt, err := db.getOrPrepareStmt(ctx, `UPDATE sync_sessions
			SET last_sync_at = GREATEST(last_sync_at, ?), updated_at = ?
			WHERE client_id = ?`)
		if err != nil {
			return err
		}

		if _, err := stmt.ExecContext(ctx, at, time.Now(), clientID); err != nil {
			return fmt.Errorf("failed to touch sync session: %w", err)
		}
		return nil
	})
}

// RefreshSyncSessionStatus confirms a client's liveness without advancing
// its sync cursor. Heartbeats land here: status flips back to active and
// connected_at refreshes on an inactive->active transition, but
// last_sync_at stays untouched so a heartbeat never delays the next
// time_sync. A client never seen before gets a row with a zero
// last_sync_at, making it due immediately.
func (db *DB) RefreshSyncSessionStatus(ctx context.Context, clientID string, protocol models.SyncProtocol) error {
	mu := db.acquireClientLock(clientID)
	defer db.releaseClientLock(clientID, mu)

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withConflictRetry(ctx, func(ctx context.Context) error {
		now := time.Now()
		query := `INSERT INTO sync_sessions (
			client_id, subject_id, protocol, status, last_sync_at, drift_ms,
			connected_at, created_at, updated_at
		) VALUES (?, NULL, ?, 'active', ?, 0, ?, ?, ?)
		ON CONFLICT (client_id) DO UPDATE SET
			status = 'active',
			protocol = EXCLUDED.protocol,
			connected_at = CASE
				WHEN sync_sessions.status = 'inactive' THEN EXCLUDED.connected_at
				ELSE sync_sessions.connected_at
			END,
			updated_at = EXCLUDED.updated_at`

		_, err := db.conn.ExecContext(ctx, query,
			clientID, string(protocol), time.Time{}, now, now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to refresh sync session status: %w", err)
		}
		return nil
	})
}

// UpdateSyncSessionDrift records the latest measured drift for a client.
// Clients may report drift before any transport session exists, so this
// upserts: a fresh row is created as an active poll session, an existing
// row keeps its protocol, subject, and connection timestamps.
func (db *DB) UpdateSyncSessionDrift(ctx context.Context, clientID string, driftMs int64, at time.Time) error {
	mu := db.acquireClientLock(clientID)
	defer db.releaseClientLock(clientID, mu)

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withConflictRetry(ctx, func(ctx context.Context) error {
		now := time.Now()
		query := `INSERT INTO sync_sessions (
			client_id, subject_id, protocol, status, last_sync_at, drift_ms,
			connected_at, created_at, updated_at
		) VALUES (?, NULL, 'poll', 'active', ?, ?, ?, ?, ?)
		ON CONFLICT (client_id) DO UPDATE SET
			drift_ms = EXCLUDED.drift_ms,
			last_sync_at = GREATEST(sync_sessions.last_sync_at, EXCLUDED.last_sync_at),
			updated_at = EXCLUDED.updated_at`

		if _, err := db.conn.ExecContext(ctx, query, clientID, at, driftMs, now, now, now); err != nil {
			return fmt.Errorf("failed to update sync session drift: %w", err)
		}
		return nil
	})
}

// MarkSyncSessionInactive flips a client's session to inactive. Safe to
// call repeatedly; only an active row is touched.
func (db *DB) MarkSyncSessionInactive(ctx context.Context, clientID string) error {
	mu := db.acquireClientLock(clientID)
	defer db.releaseClientLock(clientID, mu)

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withConflictRetry(ctx, func(ctx context.Context) error {
		query := `UPDATE sync_sessions
			SET status = 'inactive', updated_at = ?
			WHERE client_id = ? AND status = 'active'`

		if _, err := db.conn.ExecContext(ctx, query, time.Now(), clientID); err != nil {
			return fmt.Errorf("failed to mark sync session inactive: %w", err)
		}
		return nil
	})
}

// GetSyncSession retrieves a client's sync session.
// Returns nil without error when the client has never connected.
func (db *DB) GetSyncSession(ctx context.Context, clientID string) (*models.SyncSession, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
	SELECT client_id, subject_id, protocol, status, last_sync_at, drift_ms,
		connected_at, created_at, updated_at
	FROM sync_sessions
	WHERE client_id = ?`

	var s models.SyncSession
	err := db.conn.QueryRowContext(ctx, query, clientID).Scan(
		&s.ClientID, &s.SubjectID, &s.Protocol, &s.Status, &s.LastSyncAt,
		&s.DriftMs, &s.ConnectedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync session: %w", err)
	}

	return &s, nil
}

// ListActiveSyncSessions returns all sessions currently marked active,
// most recently synced first.
func (db *DB) ListActiveSyncSessions(ctx context.Context) ([]models.SyncSession, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
	SELECT client_id, subject_id, protocol, status, last_sync_at, drift_ms,
		connected_at, created_at, updated_at
	FROM sync_sessions
	WHERE status = 'active'
	ORDER BY last_sync_at DESC`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active sync sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.SyncSession
	for rows.Next() {
		var s models.SyncSession
		err := rows.Scan(
			&s.ClientID, &s.SubjectID, &s.Protocol, &s.Status, &s.LastSyncAt,
			&s.DriftMs, &s.ConnectedAt, &s.CreatedAt, &s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync session: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync sessions: %w", err)
	}

	return sessions, nil
}
