// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rollcall-attendance/rollcall/internal/apperrors"
	"github.com/rollcall-attendance/rollcall/internal/database"
	"github.com/rollcall-attendance/rollcall/internal/geofence"
	"github.com/rollcall-attendance/rollcall/internal/metrics"
	"github.com/rollcall-attendance/rollcall/internal/models"
	"github.com/rollcall-attendance/rollcall/internal/validation"
)

// ClockOut closes the subject's open session.
//
// The session resolves by record ID when supplied, by the subject's open
// session otherwise. A completed row is immutable: the store's close runs
// against clock_out IS NULL, so two racing clock-outs produce exactly one
// completed session and one NO_ACTIVE_SESSION.
func (s *Service) ClockOut(ctx context.Context, req *ClockOutRequest) (*ClockOutResult, error) {
	if verr := validation.ValidateStruct(req); verr != nil {
		recordOutcome("clock_out", apperrors.TypeValidation)
		return nil, verr.ToAppError()
	}
	if req.RecordID == uuid.Nil && req.SubjectID == "" {
		recordOutcome("clock_out", apperrors.TypeValidation)
		return nil, apperrors.Validation(apperrors.CodeValidationError,
			"either record_id or subject_id is required")
	}
	if err := validateFix(req.Location); err != nil {
		recordOutcome("clock_out", apperrors.TypeValidation)
		return nil, err
	}

	session, err := s.resolveOpenSession(ctx, req)
	if err != nil {
		recordOutcome("clock_out", errType(err))
		return nil, err
	}

	clockOut := s.correctedTime(req.Timestamp, req.ClientTimestamp)
	if clockOut.Sub(session.ClockIn) < s.minSessionDuration() {
		recordOutcome("clock_out", apperrors.TypeBusiness)
		return nil, apperrors.Business(apperrors.CodeSessionTooShort,
			fmt.Sprintf("session duration is below the minimum of %s", s.minSessionDuration()))
	}

	var warnings []string
	var verifyIn geofence.VerifyInput
	var verifyRes *geofence.Result
	if req.Location != nil {
		site, err := s.site(ctx, session.SiteID)
		if err != nil {
			recordOutcome("clock_out", apperrors.TypeDatabase)
			return nil, apperrors.Database(apperrors.CodeDatabaseError, "failed to look up site", err)
		}
		verifyIn = geofence.VerifyInput{SubjectID: session.SubjectID, Site: site, Fix: *req.Location}
		verifyRes = s.verifier.Verify(ctx, verifyIn)
		if !verifyRes.IsValid {
			s.verifier.Record(ctx, verifyIn, verifyRes, &session.ID)
			recordOutcome("clock_out", errType(verifyRes.Errors[0]))
			return nil, verifyRes.Errors[0]
		}
		warnings = append(warnings, verifyRes.Warnings...)
	}

	totalHours := roundHours(clockOut.Sub(session.ClockIn))
	session.ClockOut = &clockOut
	session.TotalHours = &totalHours
	session.Notes = mergeNotes(session.Notes, req.Notes)
	session.Activities = mergeActivities(session.Activities, req.Activities)
	if req.Location != nil {
		session.ClockOutLatitude = &req.Location.Latitude
		session.ClockOutLongitude = &req.Location.Longitude
		session.ClockOutAccuracyM = &req.Location.AccuracyM
	}

	if err := s.store.CloseClockSession(ctx, session); err != nil {
		if errors.Is(err, database.ErrSessionClosed) {
			recordOutcome("clock_out", apperrors.TypeBusiness)
			return nil, apperrors.Business(apperrors.CodeNoActiveSession,
				"clock session was already closed")
		}
		recordOutcome("clock_out", apperrors.TypeDatabase)
		return nil, apperrors.Database(apperrors.CodeDatabaseError, "failed to close clock session", err)
	}

	if verifyRes != nil {
		s.verifier.Record(ctx, verifyIn, verifyRes, &session.ID)
	}

	result := &ClockOutResult{
		RecordID:     session.ID,
		ClockedIn:    false,
		CurrentSite:  s.siteName(ctx, session.SiteID),
		ClockInTime:  session.ClockIn,
		ClockOutTime: clockOut,
		TotalHours:   totalHours,
		Warnings:     warnings,
	}
	result.Sync = s.reconcileLeg(ctx, legClockOut, session.ID, clockOut, req.ClientTimestamp, req.DriftMs)

	recordOutcome("clock_out", "")
	metrics.RecordSessionHours(totalHours)
	s.log.Info().
		Str("subject_id", session.SubjectID).
		Str("session_id", session.ID.String()).
		Str("site_id", session.SiteID).
		Float64("total_hours", totalHours).
		Time("clock_out", clockOut).
		Msg("Subject clocked out")

	return result, nil
}

// resolveOpenSession finds the session a clock-out targets. Record ID takes
// precedence; a subject ID supplied alongside must agree with the row it
// names.
func (s *Service) resolveOpenSession(ctx context.Context, req *ClockOutRequest) (*models.ClockSession, error) {
	if req.RecordID != uuid.Nil {
		session, err := s.store.GetClockSession(ctx, req.RecordID)
		if err != nil {
			return nil, apperrors.Database(apperrors.CodeDatabaseError, "failed to look up clock session", err)
		}
		if session == nil || !session.Open() {
			return nil, apperrors.Business(apperrors.CodeNoActiveSession,
				fmt.Sprintf("no open clock session with record id %s", req.RecordID))
		}
		if req.SubjectID != "" && session.SubjectID != req.SubjectID {
			return nil, apperrors.Validation(apperrors.CodeValidationError,
				fmt.Sprintf("clock session %s does not belong to subject %s", req.RecordID, req.SubjectID))
		}
		return session, nil
	}

	session, err := s.store.GetOpenClockSession(ctx, req.SubjectID)
	if err != nil {
		return nil, apperrors.Database(apperrors.CodeDatabaseError, "failed to look up open session", err)
	}
	if session == nil {
		return nil, apperrors.Business(apperrors.CodeNoActiveSession,
			fmt.Sprintf("subject %s has no open clock session", req.SubjectID))
	}
	return session, nil
}

// mergeNotes appends clock-out notes under the clock-in notes rather than
// overwriting them; both legs' context ends up on the completed row.
func mergeNotes(existing, added string) string {
	switch {
	case added == "":
		return existing
	case existing == "":
		return added
	default:
		return existing + "\n" + added
	}
}

// mergeActivities appends activities reported at clock-out, dropping ones
// already present from clock-in.
func mergeActivities(existing, added []string) []string {
	if len(added) == 0 {
		return existing
	}
	seen := make(map[string]bool, len(existing))
	for _, a := range existing {
		seen[a] = true
	}
	merged := existing
	for _, a := range added {
		if !seen[a] {
			merged = append(merged, a)
			seen[a] = true
		}
	}
	return merged
}
