// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package roster

import (
	"time"
)

// SiteRecord is a raw row from the export's sites table.
type SiteRecord struct {
	ID              string
	Name            string
	Latitude        *float64
	Longitude       *float64
	RadiusM         *float64 // allowed geofence radius in meters
	EnforceGeofence *bool    // nil defers to the deployment default
	Active          bool
}

// RotationRecord is a raw row from the export's rotations table.
// Dates are ISO strings as the upstream system writes them; the mapper
// parses and validates them.
type RotationRecord struct {
	ID        string
	SubjectID string
	SiteID    string
	Status    string
	StartDate string
	EndDate   *string
}

// AssignmentRecord is a raw row from the export's site_assignments table.
type AssignmentRecord struct {
	ID         string
	SubjectID  string
	SiteID     string
	RotationID *string
	Active     bool
}

// TableCounts holds per-table row counts from the export file.
type TableCounts struct {
	Sites       int64
	Rotations   int64
	Assignments int64
}

// Total returns the number of rows across all tables.
func (c TableCounts) Total() int64 {
	return c.Sites + c.Rotations + c.Assignments
}

// Stats tracks the progress and outcome of one import run.
type Stats struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`
	DryRun    bool      `json:"dry_run"`

	// TotalRows is the row count across all tables in the export.
	TotalRows int64 `json:"total_rows"`

	// Per-table imported counts. On a dry run these count rows that
	// would have been written.
	Sites       int64 `json:"sites"`
	Rotations   int64 `json:"rotations"`
	Assignments int64 `json:"assignments"`

	// Skipped counts rows rejected by validation.
	Skipped int64 `json:"skipped"`

	// Errors counts rows that failed to upsert.
	Errors int64 `json:"errors"`
}

// Imported returns the total rows written (or validated, on a dry run).
func (s *Stats) Imported() int64 {
	return s.Sites + s.Rotations + s.Assignments
}

// Duration returns elapsed time, using now when the run is still going.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// RowCounts returns per-table counts for the audit trail.
func (s *Stats) RowCounts() map[string]int {
	return map[string]int{
		"sites":            int(s.Sites),
		"rotations":        int(s.Rotations),
		"site_assignments": int(s.Assignments),
		"skipped":          int(s.Skipped),
		"errors":           int(s.Errors),
	}
}
