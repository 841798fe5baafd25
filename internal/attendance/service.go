// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package attendance

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rollcall-attendance/rollcall/internal/apperrors"
	"github.com/rollcall-attendance/rollcall/internal/cache"
	"github.com/rollcall-attendance/rollcall/internal/config"
	"github.com/rollcall-attendance/rollcall/internal/geofence"
	"github.com/rollcall-attendance/rollcall/internal/logging"
	"github.com/rollcall-attendance/rollcall/internal/models"
)

// Store is the slice of the database layer the service depends on.
// *database.DB satisfies it.
type Store interface {
	CreateClockSession(ctx context.Context, session *models.ClockSession) error
	CloseClockSession(ctx context.Context, session *models.ClockSession) error
	GetClockSession(ctx context.Context, id uuid.UUID) (*models.ClockSession, error)
	GetOpenClockSession(ctx context.Context, subjectID string) (*models.ClockSession, error)

	GetSite(ctx context.Context, id string) (*models.Site, error)
	GetRotation(ctx context.Context, id string) (*models.Rotation, error)
	ListRotationsForSubject(ctx context.Context, subjectID, siteID string) ([]models.Rotation, error)
	GetActiveSiteAssignment(ctx context.Context, subjectID, siteID string) (*models.SiteAssignment, error)
}

// LocationVerifier checks a reported fix against a site's geofence.
// *geofence.Verifier satisfies it.
type LocationVerifier interface {
	Verify(ctx context.Context, in geofence.VerifyInput) *geofence.Result
	Record(ctx context.Context, in geofence.VerifyInput, res *geofence.Result, sessionID *uuid.UUID)
}

// DriftReconciler folds per-leg drift into the session's synchronized
// record. *timesync.Reconciler satisfies it.
type DriftReconciler interface {
	ReconcileClockIn(ctx context.Context, sessionID uuid.UUID, syncedAt time.Time, driftMs int64) error
	ReconcileClockOut(ctx context.Context, sessionID uuid.UUID, syncedAt time.Time, driftMs int64) error
}

// ClockInRequest opens a clock session.
//
// Timestamp is the client-corrected epoch-milliseconds instant (raw clock
// plus the client's last known drift); ClientTimestamp is the raw clock.
// Either may be zero when the client cannot supply it.
type ClockInRequest struct {
	SubjectID       string         `json:"subject_id" validate:"required,min=1,max=128"`
	RotationID      string         `json:"rotation_id,omitempty" validate:"omitempty,max=128"`
	SiteID          string         `json:"site_id,omitempty" validate:"omitempty,max=128"`
	Timestamp       int64          `json:"timestamp,omitempty" validate:"omitempty,gte=0"`
	ClientTimestamp int64          `json:"client_timestamp,omitempty" validate:"omitempty,gte=0"`
	Location        *models.GeoFix `json:"location,omitempty"`
	Notes           string         `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Activities      []string       `json:"activities,omitempty" validate:"omitempty,max=50,dive,max=200"`
}

// ClockOutRequest closes a session, resolved by RecordID when supplied and
// by the subject's open session otherwise. DriftMs carries the client sync
// engine's own drift estimate, used only when no raw timestamp is available
// to compute one server-side.
type ClockOutRequest struct {
	RecordID        uuid.UUID      `json:"record_id,omitempty"`
	SubjectID       string         `json:"subject_id,omitempty" validate:"omitempty,max=128"`
	Timestamp       int64          `json:"timestamp,omitempty" validate:"omitempty,gte=0"`
	ClientTimestamp int64          `json:"client_timestamp,omitempty" validate:"omitempty,gte=0"`
	DriftMs         *int64         `json:"drift_ms,omitempty"`
	Location        *models.GeoFix `json:"location,omitempty"`
	Notes           string         `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Activities      []string       `json:"activities,omitempty" validate:"omitempty,max=50,dive,max=200"`
}

// SyncData reports the drift reconciliation outcome of one leg.
type SyncData struct {
	DriftMs  int64               `json:"drift_ms"`
	Accuracy models.SyncAccuracy `json:"accuracy"`
}

// ClockInResult is the outcome of a successful clock-in.
type ClockInResult struct {
	RecordID    uuid.UUID `json:"record_id"`
	ClockedIn   bool      `json:"clocked_in"`
	CurrentSite string    `json:"current_site"`
	RotationID  string    `json:"rotation_id"`
	ClockInTime time.Time `json:"clock_in_time"`
	Sync        *SyncData `json:"sync_data,omitempty"`
	Warnings    []string  `json:"warnings,omitempty"`
}

// ClockOutResult is the outcome of a successful clock-out.
type ClockOutResult struct {
	RecordID     uuid.UUID `json:"record_id"`
	ClockedIn    bool      `json:"clocked_in"`
	CurrentSite  string    `json:"current_site"`
	ClockInTime  time.Time `json:"clock_in_time"`
	ClockOutTime time.Time `json:"clock_out_time"`
	TotalHours   float64   `json:"total_hours"`
	Sync         *SyncData `json:"sync_data,omitempty"`
	Warnings     []string  `json:"warnings,omitempty"`
}

// StatusResult describes a subject's current attendance state.
type StatusResult struct {
	ClockedIn    bool       `json:"clocked_in"`
	RecordID     *uuid.UUID `json:"record_id,omitempty"`
	CurrentSite  string     `json:"current_site,omitempty"`
	RotationID   string     `json:"rotation_id,omitempty"`
	ClockInTime  *time.Time `json:"clock_in_time,omitempty"`
	ElapsedHours float64    `json:"elapsed_hours,omitempty"`
}

// Service is the clock session state machine.
type Service struct {
	cfg        *config.AttendanceConfig
	store      Store
	verifier   LocationVerifier
	reconciler DriftReconciler
	cache      cache.Store
	timeFunc   func() time.Time
	log        zerolog.Logger
}

// New creates the attendance service. The cache is optional; a nil cache
// sends every roster read to the store.
func New(cfg *config.AttendanceConfig, store Store, verifier LocationVerifier, reconciler DriftReconciler, cacheStore cache.Store) *Service {
	return &Service{
		cfg:        cfg,
		store:      store,
		verifier:   verifier,
		reconciler: reconciler,
		cache:      cacheStore,
		timeFunc:   time.Now,
		log:        logging.WithComponent("attendance"),
	}
}

// Status reports whether the subject is clocked in, and where.
func (s *Service) Status(ctx context.Context, subjectID string) (*StatusResult, error) {
	if subjectID == "" {
		return nil, apperrors.Validation(apperrors.CodeValidationError, "subject_id is required")
	}

	session, err := s.store.GetOpenClockSession(ctx, subjectID)
	if err != nil {
		return nil, apperrors.Database(apperrors.CodeDatabaseError, "failed to look up open session", err)
	}
	if session == nil {
		return &StatusResult{ClockedIn: false}, nil
	}

	elapsed := s.timeFunc().Sub(session.ClockIn)
	if elapsed < 0 {
		elapsed = 0
	}

	return &StatusResult{
		ClockedIn:    true,
		RecordID:     &session.ID,
		CurrentSite:  s.siteName(ctx, session.SiteID),
		RotationID:   session.RotationID,
		ClockInTime:  &session.ClockIn,
		ElapsedHours: roundHours(elapsed),
	}, nil
}

// correctedTime picks the instant a leg is recorded at: the client-corrected
// timestamp when supplied, the raw client clock otherwise, server time as
// the last resort. Epoch milliseconds in, UTC out.
func (s *Service) correctedTime(timestamp, clientTimestamp int64) time.Time {
	switch {
	case timestamp > 0:
		return time.UnixMilli(timestamp).UTC()
	case clientTimestamp > 0:
		return time.UnixMilli(clientTimestamp).UTC()
	default:
		return s.timeFunc().UTC()
	}
}

// validateFix range-checks a reported location. The validator tags cannot
// reach through the optional pointer, so the ranges are checked here.
func validateFix(fix *models.GeoFix) *apperrors.Error {
	if fix == nil {
		return nil
	}
	if fix.Latitude < -90 || fix.Latitude > 90 {
		return apperrors.Validation(apperrors.CodeValidationError, "latitude must be between -90 and 90")
	}
	if fix.Longitude < -180 || fix.Longitude > 180 {
		return apperrors.Validation(apperrors.CodeValidationError, "longitude must be between -180 and 180")
	}
	if fix.AccuracyM < 0 {
		return apperrors.Validation(apperrors.CodeValidationError, "accuracy must not be negative")
	}
	return nil
}

// minSessionDuration returns the configured clock-out floor. Zero disables
// the check; equality with the floor is always allowed.
func (s *Service) minSessionDuration() time.Duration {
	if s.cfg == nil || s.cfg.MinSessionDuration < 0 {
		return 0
	}
	return s.cfg.MinSessionDuration
}

// roundHours converts a duration to hours rounded to 2 decimals, the
// resolution total_hours is reported at.
func roundHours(d time.Duration) float64 {
	hours := float64(d.Milliseconds()) / 3_600_000.0
	return math.Round(hours*100) / 100
}
