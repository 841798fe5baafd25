// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package authz

import (
	"github.com/rollcall-attendance/rollcall/internal/apperrors"
	"github.com/rollcall-attendance/rollcall/internal/auth"
	"github.com/rollcall-attendance/rollcall/internal/models"
)

// ResolveSubjectScope decides which student an attendance operation may
// target and returns the effective student ID. The target is named in the
// request body, not the path, so path-level policy cannot cover this rule;
// handlers call it after binding the request.
//
//   - An empty requested ID means the caller acts for itself.
//   - Coordinators and admins may act for any subject.
//   - Students may act only for themselves. Both the subject ID and the
//     username count as self, since kiosk-minted tokens identify students
//     by username.
func ResolveSubjectScope(actor *auth.AuthSubject, requested string) (string, error) {
	if actor == nil {
		return "", apperrors.Authorization(apperrors.CodeUnauthorized, "Authentication required")
	}

	if requested == "" {
		return selfID(actor), nil
	}

	if actor.HasAnyRole(models.RoleCoordinator, models.RoleAdmin) {
		return requested, nil
	}

	if requested == actor.ID || (actor.Username != "" && requested == actor.Username) {
		return requested, nil
	}

	return "", apperrors.Authorization(apperrors.CodeForbidden,
		"Students may record attendance only for themselves")
}

// CanActForSubject reports whether the actor may operate on the given
// student's attendance record.
func CanActForSubject(actor *auth.AuthSubject, studentID string) bool {
	_, err := ResolveSubjectScope(actor, studentID)
	return err == nil
}

// selfID returns the identifier the actor's own attendance is recorded
// under.
func selfID(actor *auth.AuthSubject) string {
	if actor.ID != "" {
		return actor.ID
	}
	return actor.Username
}
