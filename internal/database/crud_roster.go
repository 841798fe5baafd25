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

// Roster CRUD. Sites, rotations, and assignments originate in an upstream
// student information system; writes here come only from the importer and
// the dev seed, reads from rotation resolution and the geofence verifier.

// GetSite retrieves a site by its upstream ID.
// Returns nil without error when the site does not exist.
func (db *DB) GetSite(ctx context.Context, id string) (*models.Site, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var s models.Site
	err := db.conn.QueryRowContext(ctx, `SELECT
		id, name, latitude, longitude, allowed_radius_m, enforce_geofence, active, created_at
	FROM sites
	WHERE id = ?`, id).Scan(
		&s.ID, &s.Name, &s.Latitude, &s.Longitude, &s.AllowedRadiusM,
		&s.EnforceGeofence, &s.Active, &s.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get site: %w", err)
	}
	return &s, nil
}

// ListSites returns all sites, active first, then by name.
func (db *DB) ListSites(ctx context.Context) ([]models.Site, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT
		id, name, latitude, longitude, allowed_radius_m, enforce_geofence, active, created_at
	FROM sites
	ORDER BY active DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sites: %w", err)
	}
	defer rows.Close()

	var sites []models.Site
	for rows.Next() {
		var s models.Site
		err := rows.Scan(
			&s.ID, &s.Name, &s.Latitude, &s.Longitude, &s.AllowedRadiusM,
			&s.EnforceGeofence, &s.Active, &s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sites: %w", err)
	}

	return sites, nil
}

// UpsertSite inserts or replaces a site definition.
func (db *DB) UpsertSite(ctx context.Context, s *models.Site) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}

	return db.withConflictRetry(ctx, func(ctx context.Context) error {
		_, err := db.conn.ExecContext(ctx, `INSERT INTO sites (
			id, name, latitude, longitude, allowed_radius_m, enforce_geofence, active, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			allowed_radius_m = EXCLUDED.allowed_radius_m,
			enforce_geofence = EXCLUDED.enforce_geofence,
			active = EXCLUDED.active`,
			s.ID, s.Name, s.Latitude, s.Longitude, s.AllowedRadiusM,
			s.EnforceGeofence, s.Active, s.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert site: %w", err)
		}
		return nil
	})
}

// GetRotation retrieves a rotation by its upstream ID.
// Returns nil without error when the rotation does not exist.
func (db *DB) GetRotation(ctx context.Context, id string) (*models.Rotation, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var r models.Rotation
	err := db.conn.QueryRowContext(ctx, `SELECT
		id, subject_id, site_id, status, start_date, end_date, created_at
	FROM rotations
	WHERE id = ?`, id).Scan(
		&r.ID, &r.SubjectID, &r.SiteID, &r.Status, &r.StartDate, &r.EndDate, &r.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rotation: %w", err)
	}
	return &r, nil
}

// ListRotationsForSubject returns a subject's rotations, optionally filtered
// to one site (empty siteID means all). Ordered by start date descending so
// resolution prefers the most recent rotation when several match a window.
func (db *DB) ListRotationsForSubject(ctx context.Context, subjectID, siteID string) ([]models.Rotation, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT id, subject_id, site_id, status, start_date, end_date, created_at
	FROM rotations
	WHERE subject_id = ?`
	args := []interface{}{subjectID}

	if siteID != "" {
		query += ` AND site_id = ?`
		args = append(args, siteID)
	}
	query += ` ORDER BY start_date DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rotations: %w", err)
	}
	defer rows.Close()

	var rotations []models.Rotation
	for rows.Next() {
		var r models.Rotation
		err := rows.Scan(&r.ID, &r.SubjectID, &r.SiteID, &r.Status, &r.StartDate, &r.EndDate, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rotation: %w", err)
		}
		rotations = append(rotations, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rotations: %w", err)
	}

	return rotations, nil
}

// UpsertRotation inserts or replaces a rotation.
func (db *DB) UpsertRotation(ctx context.Context, r *models.Rotation) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	return db.withConflictRetry(ctx, func(ctx context.Context) error {
		_, err := db.conn.ExecContext(ctx, `INSERT INTO rotations (
			id, subject_id, site_id, status, start_date, end_date, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			subject_id = EXCLUDED.subject_id,
			site_id = EXCLUDED.site_id,
			status = EXCLUDED.status,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date`,
			r.ID, r.SubjectID, r.SiteID, string(r.Status), r.StartDate, r.EndDate, r.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert rotation: %w", err)
		}
		return nil
	})
}

// GetActiveSiteAssignment returns the subject's active assignment, preferring
// one that carries a rotation reference. Empty siteID means any site.
// Returns nil without error when the subject has no active assignment.
func (db *DB) GetActiveSiteAssignment(ctx context.Context, subjectID, siteID string) (*models.SiteAssignment, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT id, subject_id, site_id, rotation_id, active, created_at
	FROM site_assignments
	WHERE subject_id = ? AND active = TRUE`
	args := []interface{}{subjectID}

	if siteID != "" {
		query += ` AND site_id = ?`
		args = append(args, siteID)
	}
	query += ` ORDER BY rotation_id IS NOT NULL DESC, created_at DESC LIMIT 1`

	var a models.SiteAssignment
	err := db.conn.QueryRowContext(ctx, query, args...).Scan(
		&a.ID, &a.SubjectID, &a.SiteID, &a.RotationID, &a.Active, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get site assignment: %w", err)
	}
	return &a, nil
}

// UpsertSiteAssignment inserts or replaces a site assignment.
func (db *DB) UpsertSiteAssignment(ctx context.Context, a *models.SiteAssignment) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	return db.withConflictRetry(ctx, func(ctx context.Context) error {
		_, err := db.conn.ExecContext(ctx, `INSERT INTO site_assignments (
			id, subject_id, site_id, rotation_id, active, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			subject_id = EXCLUDED.subject_id,
			site_id = EXCLUDED.site_id,
			rotation_id = EXCLUDED.rotation_id,
			active = EXCLUDED.active`,
			a.ID, a.SubjectID, a.SiteID, a.RotationID, a.Active, a.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert site assignment: %w", err)
		}
		return nil
	})
}
