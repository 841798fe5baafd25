// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package geofence

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rollcall-attendance/rollcall/internal/apperrors"
	"github.com/rollcall-attendance/rollcall/internal/config"
	"github.com/rollcall-attendance/rollcall/internal/logging"
	"github.com/rollcall-attendance/rollcall/internal/metrics"
	"github.com/rollcall-attendance/rollcall/internal/models"
)

// AccuracyTier is the coarse trust class of a GPS fix, derived from the
// device-reported accuracy radius.
type AccuracyTier string

const (
	TierHigh   AccuracyTier = "high"
	TierMedium AccuracyTier = "medium"
	TierLow    AccuracyTier = "low"
)

// minTravelDelta suppresses the travel plausibility check between fixes
// reported close together: sub-minute deltas are dominated by GPS jitter,
// not movement.
const minTravelDelta = time.Minute

// Store is the persistence surface the verifier needs. *database.DB
// satisfies it.
type Store interface {
	InsertLocationVerification(ctx context.Context, v *models.LocationVerification) error
	ListLocationVerifications(ctx context.Context, subjectID string, limit int) ([]models.LocationVerification, error)
}

// VerifyInput is one proximity check request.
type VerifyInput struct {
	SubjectID string
	Site      *models.Site
	Fix       models.GeoFix
}

// Result is the outcome of one proximity check.
//
// IsValid reports whether the attendance transition may proceed. Warnings
// ride along on valid results; Errors carry the typed failures that made an
// invalid one. DistanceM is -1 when no distance could be computed (site
// without coordinates).
type Result struct {
	IsValid          bool
	DistanceM        float64
	EffectiveRadiusM float64
	AccuracyTier     AccuracyTier
	WithinGeofence   bool
	Strict           bool
	Status           models.LocationVerificationStatus
	FlagReason       *string
	Warnings         []string
	Errors           []*apperrors.Error
}

// Verifier checks reported fixes against site geofences.
type Verifier struct {
	cfg   *config.GeofenceConfig
	store Store
	log   zerolog.Logger
}

// New creates a Verifier backed by the given store.
func New(cfg *config.GeofenceConfig, store Store) *Verifier {
	return &Verifier{
		cfg:   cfg,
		store: store,
		log:   logging.WithComponent("geofence"),
	}
}

// AccuracyTierFor classifies a device-reported GPS accuracy radius.
// Non-positive accuracy means the device reported none; it classifies low.
func (v *Verifier) AccuracyTierFor(accuracyM float64) AccuracyTier {
	switch {
	case accuracyM <= 0:
		return TierLow
	case accuracyM <= v.cfg.HighAccuracyM:
		return TierHigh
	case accuracyM <= v.cfg.MediumAccuracyM:
		return TierMedium
	default:
		return TierLow
	}
}

// Verify evaluates one fix against the site's geofence. It reads the
// subject's previous verification for the travel plausibility check but
// writes nothing; callers persist the attempt with Record once the related
// clock session is known.
func (v *Verifier) Verify(ctx context.Context, in VerifyInput) *Result {
	res := &Result{
		DistanceM:    -1,
		AccuracyTier: v.AccuracyTierFor(in.Fix.AccuracyM),
		Strict:       v.strictFor(in.Site),
	}

	if in.Site == nil || !in.Site.HasCoordinates() {
		// Fail open: a site without registered coordinates cannot be
		// geofenced, and blocking attendance for a roster gap punishes
		// the student for an admin problem.
		res.IsValid = true
		res.Status = models.LocationFlagged
		reason := "site has no registered coordinates; proximity not verified"
		res.FlagReason = &reason
		res.Warnings = append(res.Warnings, reason)

		v.log.Warn().
			Str("subject_id", in.SubjectID).
			Str("site_id", siteID(in.Site)).
			Msg("Geofence check skipped: site has no coordinates")
		metrics.RecordGeofenceCheck("skipped", 0)
		return res
	}

	res.EffectiveRadiusM = math.Max(in.Site.AllowedRadiusM, v.cfg.MinRadiusM)
	res.DistanceM = Distance(in.Fix.Latitude, in.Fix.Longitude, *in.Site.Latitude, *in.Site.Longitude)
	res.WithinGeofence = res.DistanceM <= res.EffectiveRadiusM

	v.checkDistance(in, res)
	v.checkAccuracy(in, res)
	v.checkTravel(ctx, in, res)

	res.IsValid = len(res.Errors) == 0
	switch {
	case !res.IsValid:
		res.Status = models.LocationFailed
		reason := res.Errors[0].Message
		res.FlagReason = &reason
	case len(res.Warnings) > 0:
		res.Status = models.LocationFlagged
		reason := res.Warnings[0]
		res.FlagReason = &reason
	default:
		res.Status = models.LocationVerified
	}

	outcome := "within"
	if !res.WithinGeofence {
		outcome = "outside"
	}
	metrics.RecordGeofenceCheck(outcome, res.DistanceM)

	v.log.Debug().
		Str("subject_id", in.SubjectID).
		Str("site_id", in.Site.ID).
		Float64("distance_m", res.DistanceM).
		Float64("radius_m", res.EffectiveRadiusM).
		Str("accuracy_tier", string(res.AccuracyTier)).
		Str("status", string(res.Status)).
		Bool("strict", res.Strict).
		Msg("Geofence check evaluated")

	return res
}

// checkDistance applies the geofence rule. Outside the fence is a warning
// in lenient mode and an error in strict mode; more than twice the radius
// is an error in any mode.
func (v *Verifier) checkDistance(in VerifyInput, res *Result) {
	if res.WithinGeofence {
		return
	}

	msg := fmt.Sprintf("location is %.0fm from %s (allowed %.0fm)",
		res.DistanceM, in.Site.Name, res.EffectiveRadiusM)

	if res.DistanceM > 2*res.EffectiveRadiusM {
		res.Errors = append(res.Errors, apperrors.Business(apperrors.CodeLocationTooFar, msg))
		return
	}
	if res.Strict {
		res.Errors = append(res.Errors, apperrors.Business(apperrors.CodeLocationTooFar, msg))
		return
	}
	res.Warnings = append(res.Warnings, msg)
}

// checkAccuracy applies the GPS accuracy ceiling. An unreported accuracy is
// only ever a warning: plenty of clients cannot supply one.
func (v *Verifier) checkAccuracy(in VerifyInput, res *Result) {
	if in.Fix.AccuracyM <= 0 {
		res.Warnings = append(res.Warnings, "no GPS accuracy reported with fix")
		return
	}
	if in.Fix.AccuracyM <= v.cfg.MaxAccuracyM {
		return
	}

	msg := fmt.Sprintf("GPS accuracy %.0fm exceeds maximum %.0fm",
		in.Fix.AccuracyM, v.cfg.MaxAccuracyM)
	if res.Strict {
		res.Errors = append(res.Errors, apperrors.Validation(apperrors.CodeAccuracyTooLow, msg))
		return
	}
	res.Warnings = append(res.Warnings, msg)
}

// checkTravel flags implausible movement since the subject's previous fix.
// It never blocks, even in strict mode: GPS glitches are common enough that
// a hard failure would generate false rejections, but the flag gives
// coordinators a review trail. Disabled when MaxSpeedKmh is zero.
func (v *Verifier) checkTravel(ctx context.Context, in VerifyInput, res *Result) {
	if v.cfg.MaxSpeedKmh <= 0 {
		return
	}

	prev, err := v.store.ListLocationVerifications(ctx, in.SubjectID, 1)
	if err != nil {
		v.log.Error().Err(err).
			Str("subject_id", in.SubjectID).
			Msg("Failed to load previous verification for travel check")
		return
	}
	if len(prev) == 0 || prev[0].DistanceM < 0 {
		return
	}

	last := prev[0]
	delta := time.Since(last.CreatedAt)
	if delta < minTravelDelta {
		return
	}

	travelM := Distance(last.Latitude, last.Longitude, in.Fix.Latitude, in.Fix.Longitude)
	speedKmh := (travelM / 1000.0) / delta.Hours()
	if speedKmh <= v.cfg.MaxSpeedKmh {
		return
	}

	msg := fmt.Sprintf("moved %.0fkm in %.0f minutes since previous fix (%.0f km/h)",
		travelM/1000.0, delta.Minutes(), speedKmh)
	res.Warnings = append(res.Warnings, msg)

	v.log.Warn().
		Str("subject_id", in.SubjectID).
		Float64("travel_km", travelM/1000.0).
		Float64("speed_kmh", speedKmh).
		Msg("Implausible travel between location fixes")
}

// Record persists the attempt as a location_verifications row. sessionID is
// nil when the attempt never produced a clock session (hard-failed checks).
// Persistence failures are logged and swallowed: losing one audit row must
// not unwind an otherwise valid attendance transition.
func (v *Verifier) Record(ctx context.Context, in VerifyInput, res *Result, sessionID *uuid.UUID) {
	row := &models.LocationVerification{
		ClockSessionID: sessionID,
		SubjectID:      in.SubjectID,
		SiteID:         siteID(in.Site),
		Latitude:       in.Fix.Latitude,
		Longitude:      in.Fix.Longitude,
		AccuracyM:      in.Fix.AccuracyM,
		Source:         in.Fix.Source,
		DistanceM:      res.DistanceM,
		WithinGeofence: res.WithinGeofence,
		Status:         res.Status,
		FlagReason:     res.FlagReason,
	}

	if err := v.store.InsertLocationVerification(ctx, row); err != nil {
		v.log.Error().Err(err).
			Str("subject_id", in.SubjectID).
			Str("site_id", row.SiteID).
			Msg("Failed to persist location verification")
	}
}

// strictFor resolves the enforcement mode: per-site override when set,
// deployment default otherwise.
func (v *Verifier) strictFor(site *models.Site) bool {
	if site != nil && site.EnforceGeofence != nil {
		return *site.EnforceGeofence
	}
	return v.cfg.StrictMode
}

func siteID(site *models.Site) string {
	if site == nil {
		return ""
	}
	return site.ID
}
