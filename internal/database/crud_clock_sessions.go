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

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/rollcall-attendance/rollcall/internal/models"
)

// ErrSessionAlreadyOpen is returned by CreateClockSession when the subject
// already has an open clock session.
var ErrSessionAlreadyOpen = errors.New("subject already has an open clock session")

// ErrSessionClosed is returned by CloseClockSession when the session was
// already closed. Completed sessions are immutable.
var ErrSessionClosed = errors.New("clock session already closed")

const clockSessionColumns = `id, subject_id, rotation_id, site_id, clock_in, clock_out,
	total_hours, status, clock_in_latitude, clock_in_longitude, clock_in_accuracy_m,
	clock_out_latitude, clock_out_longitude, clock_out_accuracy_m, notes, activities,
	created_at, updated_at`

// CreateClockSession opens a new clock session for a subject.
//
// The at-most-one-open-session rule is enforced twice: the per-subject
// mutex serializes writers inside this process, and the open-session check
// runs in the same transaction as the insert so concurrent writers from
// other processes still observe each other. A plain read-then-insert would
// leave a window between check and write.
//
// Returns ErrSessionAlreadyOpen when the subject has an open session.
func (db *DB) CreateClockSession(ctx context.Context, session *models.ClockSession) error {
	mu := db.acquireSubjectLock(session.SubjectID)
	defer db.releaseSubjectLock(session.SubjectID, mu)

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	if session.Status == "" {
		session.Status = models.ClockStatusActive
	}

	activities, err := marshalActivities(session.Activities)
	if err != nil {
		return err
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withConflictRetry(ctx, func(ctx context.Context) error {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		committed := false
		defer func() {
			if !committed {
				_ = tx.Rollback()
			}
		}()

		var openCount int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM clock_sessions WHERE subject_id = ? AND clock_out IS NULL`,
			session.SubjectID,
		).Scan(&openCount)
		if err != nil {
			return fmt.Errorf("failed to check open sessions: %w", err)
		}
		if openCount > 0 {
			return ErrSessionAlreadyOpen
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO clock_sessions (
			id, subject_id, rotation_id, site_id, clock_in, status,
			clock_in_latitude, clock_in_longitude, clock_in_accuracy_m,
			notes, activities, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			session.ID, session.SubjectID, session.RotationID, session.SiteID,
			session.ClockIn, string(session.Status),
			session.ClockInLatitude, session.ClockInLongitude, session.ClockInAccuracyM,
			session.Notes, activities, session.CreatedAt, session.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert clock session: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit clock session: %w", err)
		}
		committed = true
		return nil
	})
}

// CloseClockSession completes an open session exactly once: sets clock_out,
// total hours, optional clock-out location, and flips status to completed.
// A completed row is immutable; closing it again returns ErrSessionClosed.
func (db *DB) CloseClockSession(ctx context.Context, session *models.ClockSession) error {
	mu := db.acquireSubjectLock(session.SubjectID)
	defer db.releaseSubjectLock(session.SubjectID, mu)

	if session.ClockOut == nil {
		return fmt.Errorf("clock session %s has no clock-out time", session.ID)
	}

	activities, err := marshalActivities(session.Activities)
	if err != nil {
		return err
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withConflictRetry(ctx, func(ctx context.Context) error {
		result, err := db.conn.ExecContext(ctx, `UPDATE clock_sessions SET
			clock_out = ?,
			total_hours = ?,
			status = ?,
			clock_out_latitude = ?,
			clock_out_longitude = ?,
			clock_out_accuracy_m = ?,
			notes = ?,
			activities = ?,
			updated_at = ?
		WHERE id = ? AND clock_out IS NULL`,
			session.ClockOut, session.TotalHours, string(models.ClockStatusCompleted),
			session.ClockOutLatitude, session.ClockOutLongitude, session.ClockOutAccuracyM,
			session.Notes, activities, time.Now(), session.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to close clock session: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read close result: %w", err)
		}
		if affected == 0 {
			return ErrSessionClosed
		}

		session.Status = models.ClockStatusCompleted
		return nil
	})
}

// GetClockSession retrieves a clock session by ID.
// Returns nil without error when no such session exists.
func (db *DB) GetClockSession(ctx context.Context, id uuid.UUID) (*models.ClockSession, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + clockSessionColumns + ` FROM clock_sessions WHERE id = ?`

	session, err := scanClockSession(db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get clock session: %w", err)
	}
	return session, nil
}

// GetOpenClockSession retrieves a subject's open session, if any.
// Returns nil without error when the subject is not clocked in.
func (db *DB) GetOpenClockSession(ctx context.Context, subjectID string) (*models.ClockSession, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + clockSessionColumns + ` FROM clock_sessions
	WHERE subject_id = ? AND clock_out IS NULL
	ORDER BY clock_in DESC
	LIMIT 1`

	session, err := scanClockSession(db.conn.QueryRowContext(ctx, query, subjectID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open clock session: %w", err)
	}
	return session, nil
}

// ListClockSessions returns a subject's sessions, newest first.
func (db *DB) ListClockSessions(ctx context.Context, subjectID string, limit int) ([]models.ClockSession, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + clockSessionColumns + ` FROM clock_sessions
	WHERE subject_id = ?
	ORDER BY clock_in DESC
	LIMIT ?`

	rows, err := db.conn.QueryContext(ctx, query, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query clock sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.ClockSession
	for rows.Next() {
		session, err := scanClockSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan clock session: %w", err)
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clock sessions: %w", err)
	}

	return sessions, nil
}

// CountOpenClockSessions returns the number of open sessions across all
// subjects, used by the open-sessions gauge and health report.
func (db *DB) CountOpenClockSessions(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clock_sessions WHERE clock_out IS NULL`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count open clock sessions: %w", err)
	}
	return count, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClockSession(row rowScanner) (*models.ClockSession, error) {
	var s models.ClockSession
	var notes sql.NullString
	var activities sql.NullString

	err := row.Scan(
		&s.ID, &s.SubjectID, &s.RotationID, &s.SiteID, &s.ClockIn, &s.ClockOut,
		&s.TotalHours, &s.Status, &s.ClockInLatitude, &s.ClockInLongitude,
		&s.ClockInAccuracyM, &s.ClockOutLatitude, &s.ClockOutLongitude,
		&s.ClockOutAccuracyM, &notes, &activities, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Notes = notes.String
	if activities.Valid && activities.String != "" {
		if err := json.Unmarshal([]byte(activities.String), &s.Activities); err != nil {
			return nil, fmt.Errorf("failed to decode activities: %w", err)
		}
	}

	return &s, nil
}

// marshalActivities encodes the activities list for the JSON column.
// Empty lists are stored as NULL.
func marshalActivities(activities []string) (interface{}, error) {
	if len(activities) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(activities)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal activities: %w", err)
	}
	return string(data), nil
}
