// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/rollcall-attendance/rollcall/internal/apperrors"
	"github.com/rollcall-attendance/rollcall/internal/models"
)

// resolveRotation determines the rotation a clock-in is attributed to.
//
// An explicit rotation ID must exist and belong to the subject; its date
// window is deliberately not enforced, because coordinators backfill hours
// against rotations that have already ended.
//
// Without an explicit ID, a prioritized chain runs and the first match
// wins:
//
//  1. an ACTIVE rotation valid now (a NULL end date never expires)
//  2. a SCHEDULED rotation whose window has opened
//  3. an active site assignment that references a rotation
//  4. any rotation valid now, regardless of status
//
// Step 4 exists because upstream systems are routinely late flipping
// statuses; a subject standing at their site inside the rotation window
// should not be turned away over a stale COMPLETED flag. The rotation list
// arrives newest-first, so overlapping windows resolve to the most recent.
func (s *Service) resolveRotation(ctx context.Context, subjectID, rotationID, siteID string, now time.Time) (*models.Rotation, error) {
	if rotationID != "" {
		rotation, err := s.rotationByID(ctx, rotationID)
		if err != nil {
			return nil, apperrors.Database(apperrors.CodeDatabaseError, "failed to look up rotation", err)
		}
		if rotation == nil {
			return nil, apperrors.Validation(apperrors.CodeNoValidRotation,
				fmt.Sprintf("rotation %s not found", rotationID))
		}
		if rotation.SubjectID != subjectID {
			return nil, apperrors.Validation(apperrors.CodeNoValidRotation,
				fmt.Sprintf("rotation %s does not belong to subject %s", rotationID, subjectID))
		}
		return rotation, nil
	}

	rotations, err := s.rotationsFor(ctx, subjectID, siteID)
	if err != nil {
		return nil, apperrors.Database(apperrors.CodeDatabaseError, "failed to list rotations", err)
	}

	for i := range rotations {
		r := &rotations[i]
		if r.Status == models.RotationActive && r.ValidAt(now) {
			return r, nil
		}
	}

	for i := range rotations {
		r := &rotations[i]
		if r.Status == models.RotationScheduled && r.ValidAt(now) {
			return r, nil
		}
	}

	assignment, err := s.assignmentFor(ctx, subjectID, siteID)
	if err != nil {
		return nil, apperrors.Database(apperrors.CodeDatabaseError, "failed to look up site assignment", err)
	}
	if assignment != nil && assignment.RotationID != nil {
		rotation, err := s.rotationByID(ctx, *assignment.RotationID)
		if err != nil {
			return nil, apperrors.Database(apperrors.CodeDatabaseError, "failed to look up assigned rotation", err)
		}
		if rotation != nil {
			s.log.Debug().
				Str("subject_id", subjectID).
				Str("rotation_id", rotation.ID).
				Str("assignment_id", assignment.ID).
				Msg("Rotation resolved through site assignment")
			return rotation, nil
		}
	}

	for i := range rotations {
		r := &rotations[i]
		if r.ValidAt(now) {
			s.log.Warn().
				Str("subject_id", subjectID).
				Str("rotation_id", r.ID).
				Str("status", string(r.Status)).
				Msg("Rotation resolved despite non-schedulable status")
			return r, nil
		}
	}

	msg := "no valid rotation found for subject"
	if siteID != "" {
		msg = fmt.Sprintf("no valid rotation found for subject at site %s", siteID)
	}
	return nil, apperrors.Validation(apperrors.CodeNoValidRotation, msg)
}
