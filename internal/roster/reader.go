// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package roster

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	// DuckDB driver - used with the sqlite extension for reading roster exports
	_ "github.com/duckdb/duckdb-go/v2"
)

// ExportReader reads roster tables from a SQLite export using DuckDB's
// sqlite extension. This avoids linking a separate SQLite driver: the
// export is attached to an in-memory DuckDB connection and queried with
// plain SQL.
type ExportReader struct {
	db     *sql.DB
	dbPath string
	attach string // attach name derived from the file name
}

// requiredTables are the roster tables every export must contain.
var requiredTables = []string{"sites", "rotations", "site_assignments"}

// NewExportReader creates a reader for the given SQLite export file.
func NewExportReader(dbPath string) (*ExportReader, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	if err := loadSQLiteExtension(db); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup on error path
		return nil, fmt.Errorf("load sqlite extension: %w", err)
	}

	if err := attachExport(db, dbPath); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup on error path
		return nil, fmt.Errorf("attach export: %w", err)
	}

	// sqlite_attach names the database after the file without extension.
	attach := strings.TrimSuffix(filepath.Base(dbPath), filepath.Ext(dbPath))

	if err := verifyTables(db); err != nil {
		detachExport(db, attach)
		db.Close() //nolint:errcheck // best-effort cleanup on error path
		return nil, fmt.Errorf("verify tables: %w", err)
	}

	return &ExportReader{
		db:     db,
		dbPath: dbPath,
		attach: attach,
	}, nil
}

// loadSQLiteExtension installs and loads the sqlite extension in DuckDB.
func loadSQLiteExtension(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Try to install, then load (extension may already be installed)
	if _, err := db.ExecContext(ctx, "INSTALL sqlite_scanner;"); err != nil {
		// Installation might fail if already installed, try loading
		if _, loadErr := db.ExecContext(ctx, "LOAD sqlite_scanner;"); loadErr != nil {
			// Try force install as last resort
			if _, forceErr := db.ExecContext(ctx, "FORCE INSTALL sqlite_scanner;"); forceErr != nil {
				return fmt.Errorf("install error: %w, load error: %w, force install error: %w", err, loadErr, forceErr)
			}
		}
		return nil
	}

	_, err := db.ExecContext(ctx, "LOAD sqlite_scanner;")
	return err
}

// attachExport attaches the SQLite export file to DuckDB.
func attachExport(db *sql.DB, dbPath string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := db.ExecContext(ctx, "CALL sqlite_attach(?)", dbPath)
	if err != nil {
		return fmt.Errorf("sqlite_attach: %w", err)
	}
	return nil
}

// detachExport detaches the export from DuckDB by its attach name.
func detachExport(db *sql.DB, attach string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db.ExecContext(ctx, fmt.Sprintf("DETACH DATABASE IF EXISTS %q", attach)) //nolint:errcheck // best-effort detach, errors not actionable
}

// verifyTables checks that all required roster tables exist.
// DuckDB exposes attached SQLite tables through information_schema.
func verifyTables(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, table := range requiredTables {
		var count int
		err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?",
			table,
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}
		if count == 0 {
			return fmt.Errorf("table %s not found in attached export", table)
		}
	}
	return nil
}

// Close detaches the export and closes the connection.
func (r *ExportReader) Close() error {
	detachExport(r.db, r.attach)
	return r.db.Close()
}

// Counts returns per-table row counts for the export.
func (r *ExportReader) Counts(ctx context.Context) (TableCounts, error) {
	var counts TableCounts
	row := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM sites),
			(SELECT COUNT(*) FROM rotations),
			(SELECT COUNT(*) FROM site_assignments)
	`)
	if err := row.Scan(&counts.Sites, &counts.Rotations, &counts.Assignments); err != nil {
		return counts, fmt.Errorf("count rows: %w", err)
	}
	return counts, nil
}

// ReadSites reads a batch of site rows ordered by ID.
//
// SQLite stores booleans as integers and leaves every column nullable,
// so raw rows are scanned through sql.Null* and converted here.
func (r *ExportReader) ReadSites(ctx context.Context, offset, limit int) ([]SiteRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, latitude, longitude, radius_m, enforce_geofence, active
		FROM sites
		ORDER BY id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}
	defer rows.Close()

	var records []SiteRecord
	for rows.Next() {
		var rec SiteRecord
		var lat, lon, radius sql.NullFloat64
		var enforce, active sql.NullInt64

		if err := rows.Scan(&rec.ID, &rec.Name, &lat, &lon, &radius, &enforce, &active); err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}

		if lat.Valid {
			v := lat.Float64
			rec.Latitude = &v
		}
		if lon.Valid {
			v := lon.Float64
			rec.Longitude = &v
		}
		if radius.Valid {
			v := radius.Float64
			rec.RadiusM = &v
		}
		if enforce.Valid {
			v := enforce.Int64 != 0
			rec.EnforceGeofence = &v
		}
		rec.Active = active.Valid && active.Int64 != 0

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sites: %w", err)
	}
	return records, nil
}

// ReadRotations reads a batch of rotation rows ordered by ID.
func (r *ExportReader) ReadRotations(ctx context.Context, offset, limit int) ([]RotationRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, subject_id, site_id, status, start_date, end_date
		FROM rotations
		ORDER BY id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query rotations: %w", err)
	}
	defer rows.Close()

	var records []RotationRecord
	for rows.Next() {
		var rec RotationRecord
		var status, startDate, endDate sql.NullString

		if err := rows.Scan(&rec.ID, &rec.SubjectID, &rec.SiteID, &status, &startDate, &endDate); err != nil {
			return nil, fmt.Errorf("scan rotation: %w", err)
		}

		rec.Status = status.String
		rec.StartDate = startDate.String
		if endDate.Valid {
			v := endDate.String
			rec.EndDate = &v
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rotations: %w", err)
	}
	return records, nil
}

// ReadAssignments reads a batch of site assignment rows ordered by ID.
func (r *ExportReader) ReadAssignments(ctx context.Context, offset, limit int) ([]AssignmentRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, subject_id, site_id, rotation_id, active
		FROM site_assignments
		ORDER BY id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query site_assignments: %w", err)
	}
	defer rows.Close()

	var records []AssignmentRecord
	for rows.Next() {
		var rec AssignmentRecord
		var rotationID sql.NullString
		var active sql.NullInt64

		if err := rows.Scan(&rec.ID, &rec.SubjectID, &rec.SiteID, &rotationID, &active); err != nil {
			return nil, fmt.Errorf("scan site_assignment: %w", err)
		}

		if rotationID.Valid {
			v := rotationID.String
			rec.RotationID = &v
		}
		rec.Active = active.Valid && active.Int64 != 0

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate site_assignments: %w", err)
	}
	return records, nil
}
