// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package models

import (
	"time"

	"github.com/google/uuid"
)

// ClockSessionStatus is the lifecycle state of a clock session.
type ClockSessionStatus string

const (
	// ClockStatusActive means the subject is clocked in (clock_out IS NULL).
	ClockStatusActive ClockSessionStatus = "active"

	// ClockStatusCompleted means the session closed; the row is immutable after.
	ClockStatusCompleted ClockSessionStatus = "completed"
)

// ClockSession is one clock-in/clock-out cycle for a subject at a site.
//
// Rows form an append-only audit trail: created on clock-in, mutated exactly
// once on clock-out, never deleted. The defining invariant is that at most
// one session per subject has a NULL ClockOut at any instant, enforced by the
// attendance state machine's transactional check-and-insert.
//
// Key fields:
//   - SubjectID: The student the session belongs to
//   - RotationID: The clinical rotation the hours are attributed to,
//     resolved via the fallback chain when not supplied explicitly
//   - ClockIn/ClockOut: Corrected timestamps (drift-adjusted when possible)
//   - TotalHours: (ClockOut - ClockIn) in hours, rounded to 2 decimals,
//     derived at clock-out
//   - Location fields: the raw GPS fix reported with each leg, kept for
//     audit even when verification is skipped
type ClockSession struct {
	ID         uuid.UUID          `json:"id"`
	SubjectID  string             `json:"subject_id"`
	RotationID string             `json:"rotation_id"`
	SiteID     string             `json:"site_id"`
	ClockIn    time.Time          `json:"clock_in"`
	ClockOut   *time.Time         `json:"clock_out,omitempty"`
	TotalHours *float64           `json:"total_hours,omitempty"`
	Status     ClockSessionStatus `json:"status"`

	ClockInLatitude   *float64 `json:"clock_in_latitude,omitempty"`
	ClockInLongitude  *float64 `json:"clock_in_longitude,omitempty"`
	ClockInAccuracyM  *float64 `json:"clock_in_accuracy_m,omitempty"`
	ClockOutLatitude  *float64 `json:"clock_out_latitude,omitempty"`
	ClockOutLongitude *float64 `json:"clock_out_longitude,omitempty"`
	ClockOutAccuracyM *float64 `json:"clock_out_accuracy_m,omitempty"`

	Notes      string   `json:"notes,omitempty"`
	Activities []string `json:"activities,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Open reports whether the session is still clocked in.
func (c *ClockSession) Open() bool {
	return c.ClockOut == nil
}

// RecordVerificationStatus is the reconciliation state of a synchronized
// clock record.
type RecordVerificationStatus string

const (
	// VerificationPending means only one leg (usually clock-in) has been
	// reconciled so far.
	VerificationPending RecordVerificationStatus = "pending"

	// VerificationVerified means both legs carry server-computed drift.
	VerificationVerified RecordVerificationStatus = "verified"
)

// SynchronizedClockRecord links a ClockSession to its drift reconciliation
// data. Created lazily when the first leg is reconciled and updated when the
// second arrives; the two legs are independent because a session may clock in
// over one transport and clock out over the other.
type SynchronizedClockRecord struct {
	ID              uuid.UUID                `json:"id"`
	ClockSessionID  uuid.UUID                `json:"clock_session_id"`
	SyncedClockIn   *time.Time               `json:"synced_clock_in,omitempty"`
	SyncedClockOut  *time.Time               `json:"synced_clock_out,omitempty"`
	ClockInDriftMs  *int64                   `json:"clock_in_drift_ms,omitempty"`
	ClockOutDriftMs *int64                   `json:"clock_out_drift_ms,omitempty"`
	SyncAccuracy    SyncAccuracy             `json:"sync_accuracy"`
	Verification    RecordVerificationStatus `json:"verification_status"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

// GeoFix is a device-reported location sample. AccuracyM is the GPS accuracy
// radius in meters as reported by the device (larger = worse).
type GeoFix struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	AccuracyM float64 `json:"accuracy"`
	Source    string  `json:"source,omitempty"` // gps, network, manual
}

// LocationVerificationStatus is the outcome class of one proximity check.
type LocationVerificationStatus string

const (
	// LocationVerified means the fix passed all checks.
	LocationVerified LocationVerificationStatus = "verified"

	// LocationFlagged means the fix raised warnings but did not block the
	// transition (lenient mode, missing site coordinates, poor accuracy).
	LocationFlagged LocationVerificationStatus = "flagged"

	// LocationFailed means the fix hard-failed verification.
	LocationFailed LocationVerificationStatus = "failed"
)

// LocationVerification is the write-once record of a single proximity check:
// the reported fix, the computed great-circle distance to the site, and the
// geofence decision. Kept even for failed attempts so flagged activity is
// auditable.
type LocationVerification struct {
	ID             uuid.UUID                  `json:"id"`
	ClockSessionID *uuid.UUID                 `json:"clock_session_id,omitempty"`
	SubjectID      string                     `json:"subject_id"`
	SiteID         string                     `json:"site_id"`
	Latitude       float64                    `json:"latitude"`
	Longitude      float64                    `json:"longitude"`
	AccuracyM      float64                    `json:"accuracy_m"`
	Source         string                     `json:"source,omitempty"`
	DistanceM      float64                    `json:"distance_m"`
	WithinGeofence bool                       `json:"within_geofence"`
	Status         LocationVerificationStatus `json:"status"`
	FlagReason     *string                    `json:"flag_reason,omitempty"`
	CreatedAt      time.Time                  `json:"created_at"`
}
