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

	"github.com/google/uuid"

	"github.com/rollcall-attendance/rollcall/internal/models"
)

// RecordClockInSync reconciles the clock-in leg of a session: the
// synchronized record is created on first contact and updated in place after
// that. The record flips to verified only when the clock-out leg is already
// present, so legs may arrive in either order and over different transports.
func (db *DB) RecordClockInSync(ctx context.Context, sessionID uuid.UUID, syncedAt time.Time, driftMs int64, accuracy models.SyncAccuracy) error {
	return db.upsertSyncLeg(ctx, sessionID, syncedAt, driftMs, accuracy,
		"synced_clock_in", "clock_in_drift_ms", "synced_clock_out")
}

// RecordClockOutSync reconciles the clock-out leg. See RecordClockInSync.
func (db *DB) RecordClockOutSync(ctx context.Context, sessionID uuid.UUID, syncedAt time.Time, driftMs int64, accuracy models.SyncAccuracy) error {
	return db.upsertSyncLeg(ctx, sessionID, syncedAt, driftMs, accuracy,
		"synced_clock_out", "clock_out_drift_ms", "synced_clock_in")
}

// upsertSyncLeg writes one reconciliation leg. Column names are compile-time
// constants from the two public wrappers, never caller input.
//
// The accuracy kept on the record is the worse of the two legs: a session
// whose clock-out drifted badly is low-accuracy overall even if the clock-in
// was clean.
func (db *DB) upsertSyncLeg(ctx context.Context, sessionID uuid.UUID, syncedAt time.Time, driftMs int64, accuracy models.SyncAccuracy, legCol, driftCol, otherLegCol string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	now := time.Now()

	query := fmt.Sprintf(`INSERT INTO synchronized_clock_records (
		id, clock_session_id, %s, %s, sync_accuracy, verification_status, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (clock_session_id) DO UPDATE SET
		%s = EXCLUDED.%s,
		%s = EXCLUDED.%s,
		sync_accuracy = CASE
			WHEN synchronized_clock_records.sync_accuracy = 'low' OR EXCLUDED.sync_accuracy = 'low' THEN 'low'
			WHEN synchronized_clock_records.sync_accuracy = 'medium' OR EXCLUDED.sync_accuracy = 'medium' THEN 'medium'
			ELSE 'high'
		END,
		verification_status = CASE
			WHEN synchronized_clock_records.%s IS NOT NULL THEN 'verified'
			ELSE 'pending'
		END,
		updated_at = EXCLUDED.updated_at`,
		legCol, driftCol, legCol, legCol, driftCol, driftCol, otherLegCol)

	return db.withConflictRetry(ctx, func(ctx context.Context) error {
		_, err := db.conn.ExecContext(ctx, query,
			uuid.New(), sessionID, syncedAt, driftMs, string(accuracy),
			string(models.VerificationPending), now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert sync record leg: %w", err)
		}
		return nil
	})
}

// GetSynchronizedRecord retrieves the reconciliation record for a clock
// session. Returns nil without error when no leg has been reconciled yet.
func (db *DB) GetSynchronizedRecord(ctx context.Context, sessionID uuid.UUID) (*models.SynchronizedClockRecord, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var r models.SynchronizedClockRecord
	err := db.conn.QueryRowContext(ctx, `SELECT
		id, clock_session_id, synced_clock_in, synced_clock_out,
		clock_in_drift_ms, clock_out_drift_ms, sync_accuracy,
		verification_status, created_at, updated_at
	FROM synchronized_clock_records
	WHERE clock_session_id = ?`, sessionID).Scan(
		&r.ID, &r.ClockSessionID, &r.SyncedClockIn, &r.SyncedClockOut,
		&r.ClockInDriftMs, &r.ClockOutDriftMs, &r.SyncAccuracy,
		&r.Verification, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get synchronized record: %w", err)
	}
	return &r, nil
}

// CountPendingVerifications returns how many synchronized records still wait
// for their second leg.
func (db *DB) CountPendingVerifications(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM synchronized_clock_records WHERE verification_status = ?`,
		string(models.VerificationPending),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending verifications: %w", err)
	}
	return count, nil
}
