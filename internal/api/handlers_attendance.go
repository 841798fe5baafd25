// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/rollcall-attendance/rollcall/internal/apperrors"
	"github.com/rollcall-attendance/rollcall/internal/attendance"
	"github.com/rollcall-attendance/rollcall/internal/auth"
	"github.com/rollcall-attendance/rollcall/internal/authz"
)

// ClockIn opens a clock session
//
// @Summary Clock in
// @Description Opens a clock session for a subject at the time the request names, corrected for measured clock drift. Students may clock in only for themselves; coordinators and admins may act for any subject. An empty subject_id means the caller.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param request body attendance.ClockInRequest true "Clock-in request"
// @Success 200 {object} models.APIResponse{data=attendance.ClockInResult} "Session opened"
// @Failure 400 {object} models.APIResponse "Invalid request"
// @Failure 403 {object} models.APIResponse "Not permitted for this subject"
// @Failure 409 {object} models.APIResponse "Subject already clocked in"
// @Security BearerAuth
// @Router /attendance/clock-in [post]
func (h *Handler) ClockIn(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req attendance.ClockInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondAppError(w, r, apperrors.Validation(apperrors.CodeValidationError, "Invalid request body"))
		return
	}

	// The target subject is named in the body, so path-level policy cannot
	// enforce self-scope; resolve it here before the service runs.
	subjectID, err := authz.ResolveSubjectScope(auth.GetAuthSubject(r.Context()), req.SubjectID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	req.SubjectID = subjectID

	result, err := h.attendance.ClockIn(r.Context(), &req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, result, start)
}

// ClockOut closes a clock session
//
// @Summary Clock out
// @Description Closes the session named by record_id, or the caller's open session when no record_id is given. Returns the total hours worked, rounded to two decimals.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param request body attendance.ClockOutRequest true "Clock-out request"
// @Success 200 {object} models.APIResponse{data=attendance.ClockOutResult} "Session closed"
// @Failure 400 {object} models.APIResponse "Invalid request"
// @Failure 403 {object} models.APIResponse "Not permitted for this subject"
// @Failure 409 {object} models.APIResponse "No open session"
// @Security BearerAuth
// @Router /attendance/clock-out [post]
func (h *Handler) ClockOut(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req attendance.ClockOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondAppError(w, r, apperrors.Validation(apperrors.CodeValidationError, "Invalid request body"))
		return
	}

	subjectID, err := authz.ResolveSubjectScope(auth.GetAuthSubject(r.Context()), req.SubjectID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	req.SubjectID = subjectID

	result, err := h.attendance.ClockOut(r.Context(), &req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, result, start)
}

// AttendanceStatus reports a subject's current clock state
//
// @Summary Get attendance status
// @Description Reports whether a subject is clocked in, and for open sessions the site, rotation, and elapsed hours. An empty subject_id means the caller.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param subject_id query string false "Subject to look up (self when omitted)"
// @Success 200 {object} models.APIResponse{data=attendance.StatusResult} "Current clock state"
// @Failure 403 {object} models.APIResponse "Not permitted for this subject"
// @Security BearerAuth
// @Router /attendance/status [get]
func (h *Handler) AttendanceStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	subjectID, err := authz.ResolveSubjectScope(auth.GetAuthSubject(r.Context()), r.URL.Query().Get("subject_id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.attendance.Status(r.Context(), subjectID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, result, start)
}
