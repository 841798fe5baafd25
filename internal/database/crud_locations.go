// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rollcall-attendance/rollcall/internal/models"
)

// InsertLocationVerification persists the outcome of one proximity check.
// Rows are append-only: every clock-in/out attempt that carried a location
// leaves a row, including rejected ones.
func (db *DB) InsertLocationVerification(ctx context.Context, v *models.LocationVerification) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}

	return db.withConflictRetry(ctx, func(ctx context.Context) error {
		_, err := db.conn.ExecContext(ctx, `INSERT INTO location_verifications (
			id, clock_session_id, subject_id, site_id, latitude, longitude,
			accuracy_m, source, distance_m, within_geofence, status, flag_reason, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			v.ID, v.ClockSessionID, v.SubjectID, v.SiteID, v.Latitude, v.Longitude,
			v.AccuracyM, v.Source, v.DistanceM, v.WithinGeofence, string(v.Status),
			v.FlagReason, v.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert location verification: %w", err)
		}
		return nil
	})
}

// ListLocationVerifications returns a subject's verification history,
// newest first.
func (db *DB) ListLocationVerifications(ctx context.Context, subjectID string, limit int) ([]models.LocationVerification, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.QueryContext(ctx, `SELECT
		id, clock_session_id, subject_id, site_id, latitude, longitude,
		accuracy_m, source, distance_m, within_geofence, status, flag_reason, created_at
	FROM location_verifications
	WHERE subject_id = ?
	ORDER BY created_at DESC
	LIMIT ?`, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query location verifications: %w", err)
	}
	defer rows.Close()

	return collectLocationVerifications(rows)
}

// ListSessionLocationVerifications returns the checks recorded against one
// clock session, oldest first (clock-in check before clock-out check).
func (db *DB) ListSessionLocationVerifications(ctx context.Context, sessionID uuid.UUID) ([]models.LocationVerification, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT
		id, clock_session_id, subject_id, site_id, latitude, longitude,
		accuracy_m, source, distance_m, within_geofence, status, flag_reason, created_at
	FROM location_verifications
	WHERE clock_session_id = ?
	ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query session location verifications: %w", err)
	}
	defer rows.Close()

	return collectLocationVerifications(rows)
}

func collectLocationVerifications(rows *sql.Rows) ([]models.LocationVerification, error) {
	var verifications []models.LocationVerification
	for rows.Next() {
		var v models.LocationVerification
		err := rows.Scan(
			&v.ID, &v.ClockSessionID, &v.SubjectID, &v.SiteID, &v.Latitude,
			&v.Longitude, &v.AccuracyM, &v.Source, &v.DistanceM,
			&v.WithinGeofence, &v.Status, &v.FlagReason, &v.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan location verification: %w", err)
		}
		verifications = append(verifications, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating location verifications: %w", err)
	}

	return verifications, nil
}
