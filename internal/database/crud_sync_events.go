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

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/rollcall-attendance/rollcall/internal/models"
)

// InsertSyncEvent appends one row to the sync event log. The log is
// append-only; there is no update or delete path.
func (db *DB) InsertSyncEvent(ctx context.Context, event *models.SyncEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.ServerTime.IsZero() {
		event.ServerTime = time.Now()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var metadata interface{}
	if len(event.Metadata) > 0 {
		data, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal sync event metadata: %w", err)
		}
		metadata = string(data)
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `INSERT INTO sync_events (
		id, client_id, event_type, server_time, client_time, drift_ms,
		metadata, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := db.conn.ExecContext(ctx, query,
		event.ID, event.ClientID, string(event.EventType), event.ServerTime,
		event.ClientTime, event.DriftMs, metadata, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync event: %w", err)
	}

	return nil
}

// GetSyncStats aggregates a client's drift history over the trailing
// window in a single pass. Only drift_measurement events carry drift, so
// the averages ignore ticks and heartbeats while the event count covers
// everything the client received.
func (db *DB) GetSyncStats(ctx context.Context, clientID string, window time.Duration) (*models.SyncStats, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	since := time.Now().Add(-window)

	query := `
	SELECT
		COUNT(*) AS recent_events,
		COALESCE(AVG(drift_ms), 0) AS avg_drift,
		COALESCE(MAX(ABS(drift_ms)), 0) AS max_abs_drift
	FROM sync_events
	WHERE client_id = ? AND created_at >= ?`

	// Served with every identified time snapshot, so the compiled
	// statement is cached.
	stmt, err := db.getOrPrepareStmt(ctx, query)
	if err != nil {
		return nil, err
	}

	var stats models.SyncStats
	err = stmt.QueryRowContext(ctx, clientID, since).Scan(
		&stats.RecentEventCount, &stats.AverageDriftMs, &stats.MaxAbsDriftMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sync stats: %w", err)
	}

	return &stats, nil
}

// ListSyncEvents returns a client's most recent events, optionally filtered
// by event type, newest first.
func (db *DB) ListSyncEvents(ctx context.Context, clientID string, eventTypes []string, limit int) ([]models.SyncEvent, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	query := `
	SELECT id, client_id, event_type, server_time, client_time, drift_ms,
		metadata, created_at
	FROM sync_events
	WHERE client_id = ?`
	args := []interface{}{clientID}

	if len(eventTypes) > 0 {
		placeholders, typeArgs := buildInClause(eventTypes)
		query += fmt.Sprintf(" AND event_type IN (%s)", placeholders)
		args = append(args, typeArgs...)
	}

	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync events: %w", err)
	}
	defer rows.Close()

	var events []models.SyncEvent
	for rows.Next() {
		var e models.SyncEvent
		var metadata sql.NullString
		err := rows.Scan(
			&e.ID, &e.ClientID, &e.EventType, &e.ServerTime, &e.ClientTime,
			&e.DriftMs, &metadata, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync event: %w", err)
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode sync event metadata: %w", err)
			}
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync events: %w", err)
	}

	return events, nil
}
