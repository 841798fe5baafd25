// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rollcall-attendance/rollcall/internal/apperrors"
	"github.com/rollcall-attendance/rollcall/internal/attendance"
)

func TestClockIn_SelfDefault(t *testing.T) {
	h, deps := newTestHandler(t)
	deps.attendance.clockInResult = &attendance.ClockInResult{
		RecordID:    uuid.New(),
		ClockedIn:   true,
		CurrentSite: "site-ward-3",
		ClockInTime: time.Now(),
	}

	// Empty subject_id resolves to the caller.
	body := `{"client_timestamp":1772442904250,"notes":"morning rounds"}`
	rec := httptest.NewRecorder()
	h.ClockIn(rec, authedRequest(http.MethodPost, "/api/v1/attendance/clock-in", body, studentSubject()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if deps.attendance.lastClockIn.SubjectID != "stu-1001" {
		t.Errorf("service saw subject %q, want the caller stu-1001", deps.attendance.lastClockIn.SubjectID)
	}
	if deps.attendance.lastClockIn.Notes != "morning rounds" {
		t.Errorf("notes not passed through: %q", deps.attendance.lastClockIn.Notes)
	}

	var result attendance.ClockInResult
	decodeData(t, rec, &result)
	if !result.ClockedIn {
		t.Error("result not marked clocked in")
	}
	if result.CurrentSite != "site-ward-3" {
		t.Errorf("current_site = %q", result.CurrentSite)
	}
}

func TestClockIn_StudentForOtherForbidden(t *testing.T) {
	h, deps := newTestHandler(t)

	body := `{"subject_id":"stu-2002"}`
	rec := httptest.NewRecorder()
	h.ClockIn(rec, authedRequest(http.MethodPost, "/api/v1/attendance/clock-in", body, studentSubject()))

	wantError(t, rec, http.StatusForbidden, apperrors.CodeForbidden)
	if deps.attendance.calls != 0 {
		t.Fatal("service ran despite the scope rejection")
	}
}

func TestClockIn_StudentForSelfByID(t *testing.T) {
	h, deps := newTestHandler(t)
	deps.attendance.clockInResult = &attendance.ClockInResult{ClockedIn: true}

	body := `{"subject_id":"stu-1001"}`
	rec := httptest.NewRecorder()
	h.ClockIn(rec, authedRequest(http.MethodPost, "/api/v1/attendance/clock-in", body, studentSubject()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if deps.attendance.lastClockIn.SubjectID != "stu-1001" {
		t.Errorf("service saw subject %q", deps.attendance.lastClockIn.SubjectID)
	}
}

func TestClockIn_CoordinatorForOther(t *testing.T) {
	h, deps := newTestHandler(t)
	deps.attendance.clockInResult = &attendance.ClockInResult{ClockedIn: true}

	body := `{"subject_id":"stu-2002","site_id":"site-ward-3"}`
	rec := httptest.NewRecorder()
	h.ClockIn(rec, authedRequest(http.MethodPost, "/api/v1/attendance/clock-in", body, coordinatorSubject()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if deps.attendance.lastClockIn.SubjectID != "stu-2002" {
		t.Errorf("service saw subject %q, want stu-2002", deps.attendance.lastClockIn.SubjectID)
	}
}

func TestClockIn_NoSubjectInContext(t *testing.T) {
	h, deps := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ClockIn(rec, authedRequest(http.MethodPost, "/api/v1/attendance/clock-in", `{}`, nil))

	wantError(t, rec, http.StatusUnauthorized, apperrors.CodeUnauthorized)
	if deps.attendance.calls != 0 {
		t.Fatal("service ran without an authenticated subject")
	}
}

func TestClockIn_AlreadyOpen(t *testing.T) {
	h, deps := newTestHandler(t)
	deps.attendance.clockInErr = apperrors.Business(apperrors.CodeAlreadyClockedIn, "Subject already has an open session")

	rec := httptest.NewRecorder()
	h.ClockIn(rec, authedRequest(http.MethodPost, "/api/v1/attendance/clock-in", `{}`, studentSubject()))

	wantError(t, rec, http.StatusConflict, apperrors.CodeAlreadyClockedIn)
}

func TestClockIn_BadBody(t *testing.T) {
	h, deps := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ClockIn(rec, authedRequest(http.MethodPost, "/api/v1/attendance/clock-in", `{"subject_id":`, studentSubject()))

	wantError(t, rec, http.StatusBadRequest, apperrors.CodeValidationError)
	if deps.attendance.calls != 0 {
		t.Fatal("service ran despite a malformed body")
	}
}

func TestClockOut(t *testing.T) {
	h, deps := newTestHandler(t)
	deps.attendance.clockOutResult = &attendance.ClockOutResult{
		RecordID:     uuid.New(),
		CurrentSite:  "site-ward-3",
		ClockInTime:  time.Now().Add(-4 * time.Hour),
		ClockOutTime: time.Now(),
		TotalHours:   4.0,
	}

	body := `{"client_timestamp":1772457304250}`
	rec := httptest.NewRecorder()
	h.ClockOut(rec, authedRequest(http.MethodPost, "/api/v1/attendance/clock-out", body, studentSubject()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if deps.attendance.lastClockOut.SubjectID != "stu-1001" {
		t.Errorf("service saw subject %q, want stu-1001", deps.attendance.lastClockOut.SubjectID)
	}

	var result attendance.ClockOutResult
	decodeData(t, rec, &result)
	if result.TotalHours != 4.0 {
		t.Errorf("total_hours = %v, want 4.0", result.TotalHours)
	}
}

func TestClockOut_NothingOpen(t *testing.T) {
	h, deps := newTestHandler(t)
	deps.attendance.clockOutErr = apperrors.Business(apperrors.CodeNoActiveSession, "No open clock session")

	rec := httptest.NewRecorder()
	h.ClockOut(rec, authedRequest(http.MethodPost, "/api/v1/attendance/clock-out", `{}`, studentSubject()))

	wantError(t, rec, http.StatusConflict, apperrors.CodeNoActiveSession)
}

func TestClockOut_StudentForOtherForbidden(t *testing.T) {
	h, deps := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ClockOut(rec, authedRequest(http.MethodPost, "/api/v1/attendance/clock-out", `{"subject_id":"stu-2002"}`, studentSubject()))

	wantError(t, rec, http.StatusForbidden, apperrors.CodeForbidden)
	if deps.attendance.calls != 0 {
		t.Fatal("service ran despite the scope rejection")
	}
}

func TestAttendanceStatus_SelfDefault(t *testing.T) {
	h, deps := newTestHandler(t)
	openSince := time.Now().Add(-90 * time.Minute)
	deps.attendance.statusResult = &attendance.StatusResult{
		ClockedIn:    true,
		CurrentSite:  "site-ward-3",
		ClockInTime:  &openSince,
		ElapsedHours: 1.5,
	}

	rec := httptest.NewRecorder()
	h.AttendanceStatus(rec, authedRequest(http.MethodGet, "/api/v1/attendance/status", "", studentSubject()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if deps.attendance.lastStatusID != "stu-1001" {
		t.Errorf("service saw subject %q, want stu-1001", deps.attendance.lastStatusID)
	}

	var result attendance.StatusResult
	decodeData(t, rec, &result)
	if !result.ClockedIn || result.ElapsedHours != 1.5 {
		t.Errorf("unexpected status result: %+v", result)
	}
}

func TestAttendanceStatus_CoordinatorForOther(t *testing.T) {
	h, deps := newTestHandler(t)
	deps.attendance.statusResult = &attendance.StatusResult{ClockedIn: false}

	rec := httptest.NewRecorder()
	h.AttendanceStatus(rec, authedRequest(http.MethodGet, "/api/v1/attendance/status?subject_id=stu-2002", "", coordinatorSubject()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if deps.attendance.lastStatusID != "stu-2002" {
		t.Errorf("service saw subject %q, want stu-2002", deps.attendance.lastStatusID)
	}
}

func TestAttendanceStatus_StudentForOtherForbidden(t *testing.T) {
	h, deps := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.AttendanceStatus(rec, authedRequest(http.MethodGet, "/api/v1/attendance/status?subject_id=stu-2002", "", studentSubject()))

	wantError(t, rec, http.StatusForbidden, apperrors.CodeForbidden)
	if deps.attendance.calls != 0 {
		t.Fatal("service ran despite the scope rejection")
	}
}
