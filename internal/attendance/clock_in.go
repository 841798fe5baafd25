// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/rollcall-attendance/rollcall/internal/apperrors"
	"github.com/rollcall-attendance/rollcall/internal/database"
	"github.com/rollcall-attendance/rollcall/internal/geofence"
	"github.com/rollcall-attendance/rollcall/internal/metrics"
	"github.com/rollcall-attendance/rollcall/internal/models"
	"github.com/rollcall-attendance/rollcall/internal/validation"
)

// ClockIn opens a clock session for a subject.
//
// The open-session invariant is enforced by the store's transactional
// check-and-insert; a losing racer comes back as ALREADY_CLOCKED_IN no
// matter how the requests interleave. Location verification runs before the
// insert so a strict-mode failure never leaves a session behind, and the
// verification row is written after it so the row can reference the session
// it admitted.
func (s *Service) ClockIn(ctx context.Context, req *ClockInRequest) (*ClockInResult, error) {
	if verr := validation.ValidateStruct(req); verr != nil {
		recordOutcome("clock_in", apperrors.TypeValidation)
		return nil, verr.ToAppError()
	}
	if err := validateFix(req.Location); err != nil {
		recordOutcome("clock_in", apperrors.TypeValidation)
		return nil, err
	}

	clockIn := s.correctedTime(req.Timestamp, req.ClientTimestamp)

	rotation, err := s.resolveRotation(ctx, req.SubjectID, req.RotationID, req.SiteID, clockIn)
	if err != nil {
		recordOutcome("clock_in", errType(err))
		return nil, err
	}

	siteID := req.SiteID
	if siteID == "" {
		siteID = rotation.SiteID
	}

	var warnings []string
	site, err := s.site(ctx, siteID)
	if err != nil {
		recordOutcome("clock_in", apperrors.TypeDatabase)
		return nil, apperrors.Database(apperrors.CodeDatabaseError, "failed to look up site", err)
	}
	switch {
	case site == nil:
		warnings = append(warnings, fmt.Sprintf("site %s is not in the roster; location not verified", siteID))
	case !site.Active:
		warnings = append(warnings, fmt.Sprintf("site %s is marked inactive", site.Name))
	}

	var verifyIn geofence.VerifyInput
	var verifyRes *geofence.Result
	if req.Location != nil {
		verifyIn = geofence.VerifyInput{SubjectID: req.SubjectID, Site: site, Fix: *req.Location}
		verifyRes = s.verifier.Verify(ctx, verifyIn)
		if !verifyRes.IsValid {
			s.verifier.Record(ctx, verifyIn, verifyRes, nil)
			recordOutcome("clock_in", errType(verifyRes.Errors[0]))
			return nil, verifyRes.Errors[0]
		}
		warnings = append(warnings, verifyRes.Warnings...)
	}

	session := &models.ClockSession{
		SubjectID:  req.SubjectID,
		RotationID: rotation.ID,
		SiteID:     siteID,
		ClockIn:    clockIn,
		Status:     models.ClockStatusActive,
		Notes:      req.Notes,
		Activities: req.Activities,
	}
	if req.Location != nil {
		session.ClockInLatitude = &req.Location.Latitude
		session.ClockInLongitude = &req.Location.Longitude
		session.ClockInAccuracyM = &req.Location.AccuracyM
	}

	if err := s.store.CreateClockSession(ctx, session); err != nil {
		if errors.Is(err, database.ErrSessionAlreadyOpen) {
			recordOutcome("clock_in", apperrors.TypeBusiness)
			return nil, apperrors.Business(apperrors.CodeAlreadyClockedIn,
				fmt.Sprintf("subject %s already has an open clock session", req.SubjectID))
		}
		recordOutcome("clock_in", apperrors.TypeDatabase)
		return nil, apperrors.Database(apperrors.CodeDatabaseError, "failed to create clock session", err)
	}

	if verifyRes != nil {
		s.verifier.Record(ctx, verifyIn, verifyRes, &session.ID)
	}

	result := &ClockInResult{
		RecordID:    session.ID,
		ClockedIn:   true,
		CurrentSite: s.siteName(ctx, siteID),
		RotationID:  rotation.ID,
		ClockInTime: clockIn,
		Warnings:    warnings,
	}
	result.Sync = s.reconcileLeg(ctx, legClockIn, session.ID, clockIn, req.ClientTimestamp, nil)

	recordOutcome("clock_in", "")
	s.log.Info().
		Str("subject_id", req.SubjectID).
		Str("session_id", session.ID.String()).
		Str("site_id", siteID).
		Str("rotation_id", rotation.ID).
		Time("clock_in", clockIn).
		Int("warnings", len(warnings)).
		Msg("Subject clocked in")

	return result, nil
}

// recordOutcome counts a clock operation by outcome class: success,
// rejected (the caller's problem), or error (ours).
func recordOutcome(operation string, t apperrors.Type) {
	switch t {
	case "":
		metrics.RecordClockOperation(operation, "success")
	case apperrors.TypeValidation, apperrors.TypeBusiness, apperrors.TypeAuthorization:
		metrics.RecordClockOperation(operation, "rejected")
	default:
		metrics.RecordClockOperation(operation, "error")
	}
}

// errType extracts the app error type for outcome classification.
func errType(err error) apperrors.Type {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return apperrors.TypeSystem
}
