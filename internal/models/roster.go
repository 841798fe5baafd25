// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package models

import (
	"time"
)

// Roster read models. Sites, rotations, and site assignments are managed by
// an upstream student information system; Rollcall reads them to resolve
// rotation context and geofence parameters, and only writes them through the
// roster importer and dev seed. IDs are upstream identifiers, not UUIDs.

// Site is a registered clinical site. Coordinates are optional: a site
// without them skips proximity checking entirely (fail-open, logged as
// lower confidence).
type Site struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	// AllowedRadiusM is the geofence radius in meters. The verifier applies
	// the configured deployment floor when this is smaller.
	AllowedRadiusM float64 `json:"allowed_radius_m"`

	// EnforceGeofence overrides the deployment-wide strict mode for this
	// site. Nil defers to the deployment default.
	EnforceGeofence *bool `json:"enforce_geofence,omitempty"`

	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// HasCoordinates reports whether the site can be geofenced at all.
func (s *Site) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// RotationStatus is the scheduling state of a rotation.
type RotationStatus string

const (
	RotationActive    RotationStatus = "ACTIVE"
	RotationScheduled RotationStatus = "SCHEDULED"
	RotationCompleted RotationStatus = "COMPLETED"
	RotationCancelled RotationStatus = "CANCELLED"
)

// Rotation is a subject's clinical assignment at a site over a date window.
// A nil EndDate means open-ended: the rotation is valid "now" for any now
// after StartDate.
type Rotation struct {
	ID        string         `json:"id"`
	SubjectID string         `json:"subject_id"`
	SiteID    string         `json:"site_id"`
	Status    RotationStatus `json:"status"`
	StartDate time.Time      `json:"start_date"`
	EndDate   *time.Time     `json:"end_date,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ValidAt reports whether the rotation's date window contains t.
// Open-ended rotations (nil EndDate) are valid for any t >= StartDate.
func (r *Rotation) ValidAt(t time.Time) bool {
	if t.Before(r.StartDate) {
		return false
	}
	return r.EndDate == nil || !t.After(*r.EndDate)
}

// SiteAssignment is a standing subject-to-site link, used as the third step
// of the rotation resolution chain when it carries a rotation reference.
type SiteAssignment struct {
	ID         string    `json:"id"`
	SubjectID  string    `json:"subject_id"`
	SiteID     string    `json:"site_id"`
	RotationID *string   `json:"rotation_id,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}
