// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/rollcall-attendance/rollcall/internal/apperrors"
	"github.com/rollcall-attendance/rollcall/internal/geofence"
	"github.com/rollcall-attendance/rollcall/internal/models"
)

func TestClockIn_ResolvesActiveRotation(t *testing.T) {
	f := newServiceFixture()
	f.seedSite("site-1", "General Hospital")
	f.seedRotation("rot-1", "student-1", "site-1", models.RotationActive)

	result, err := f.service.ClockIn(context.Background(), &ClockInRequest{
		SubjectID: "student-1",
	})
	if err != nil {
		t.Fatalf("ClockIn: %v", err)
	}

	if !result.ClockedIn {
		t.Error("expected ClockedIn true")
	}
	if result.RotationID != "rot-1" {
		t.Errorf("expected rotation rot-1, got %s", result.RotationID)
	}
	if result.CurrentSite != "General Hospital" {
		t.Errorf("expected site name in result, got %q", result.CurrentSite)
	}
	if !result.ClockInTime.Equal(fixedNow) {
		t.Errorf("expected server-time clock-in %v, got %v", fixedNow, result.ClockInTime)
	}

	stored := f.store.storedSession(result.RecordID)
	if stored == nil {
		t.Fatal("expected session persisted")
	}
	if stored.SiteID != "site-1" || stored.RotationID != "rot-1" {
		t.Errorf("unexpected stored session: site=%s rotation=%s", stored.SiteID, stored.RotationID)
	}
	if stored.Status != models.ClockStatusActive {
		t.Errorf("expected active status, got %s", stored.Status)
	}
}

func TestClockIn_ExplicitRotation(t *testing.T) {
	f := newServiceFixture()
	f.seedSite("site-2", "Clinic East")
	f.seedRotation("rot-mine", "student-1", "site-2", models.RotationCompleted)
	f.seedRotation("rot-other", "student-2", "site-2", models.RotationActive)

	// An explicit rotation is honored even when its status would never be
	// picked by the resolution chain.
	result, err := f.service.ClockIn(context.Background(), &ClockInRequest{
		SubjectID:  "student-1",
		RotationID: "rot-mine",
	})
	if err != nil {
		t.Fatalf("ClockIn with explicit rotation: %v", err)
	}
	if result.RotationID != "rot-mine" {
		t.Errorf("expected rot-mine, got %s", result.RotationID)
	}

	// Another subject's rotation is rejected.
	f2 := newServiceFixture()
	f2.seedRotation("rot-other", "student-2", "site-2", models.RotationActive)
	_, err = f2.service.ClockIn(context.Background(), &ClockInRequest{
		SubjectID:  "student-1",
		RotationID: "rot-other",
	})
	if !apperrors.IsCode(err, apperrors.CodeNoValidRotation) {
		t.Fatalf("expected NO_VALID_ROTATION for foreign rotation, got %v", err)
	}

	_, err = f2.service.ClockIn(context.Background(), &ClockInRequest{
		SubjectID:  "student-1",
		RotationID: "rot-missing",
	})
	if !apperrors.IsCode(err, apperrors.CodeNoValidRotation) {
		t.Fatalf("expected NO_VALID_ROTATION for unknown rotation, got %v", err)
	}
}

func TestClockIn_RotationChain(t *testing.T) {
	scheduled := func(f *serviceFixture) {
		f.seedRotation("rot-sched", "student-1", "site-1", models.RotationScheduled)
	}
	assignment := func(f *serviceFixture) {
		f.seedRotation("rot-assigned", "student-1", "site-1", models.RotationCancelled)
		// Push the referenced rotation out of its window so only the
		// assignment path can find it.
		f.store.rotations[0].StartDate = fixedNow.Add(24 * time.Hour)
		rotID := "rot-assigned"
		f.store.assignments = append(f.store.assignments, models.SiteAssignment{
			ID: "assign-1", SubjectID: "student-1", SiteID: "site-1",
			RotationID: &rotID, Active: true,
		})
	}
	staleStatus := func(f *serviceFixture) {
		f.seedRotation("rot-stale", "student-1", "site-1", models.RotationCompleted)
	}

	tests := []struct {
		name     string
		seed     func(*serviceFixture)
		expected string
	}{
		{"scheduled rotation in window", scheduled, "rot-sched"},
		{"assignment carries rotation", assignment, "rot-assigned"},
		{"valid window beats stale status", staleStatus, "rot-stale"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture()
			f.seedSite("site-1", "General Hospital")
			tt.seed(f)

			result, err := f.service.ClockIn(context.Background(), &ClockInRequest{
				SubjectID: "student-1",
				SiteID:    "site-1",
			})
			if err != nil {
				t.Fatalf("ClockIn: %v", err)
			}
			if result.RotationID != tt.expected {
				t.Errorf("expected rotation %s, got %s", tt.expected, result.RotationID)
			}
		})
	}
}

func TestClockIn_ActiveRotationWinsOverScheduled(t *testing.T) {
	f := newServiceFixture()
	f.seedSite("site-1", "General Hospital")
	f.seedRotation("rot-sched", "student-1", "site-1", models.RotationScheduled)
	f.seedRotation("rot-active", "student-1", "site-1", models.RotationActive)

	result, err := f.service.ClockIn(context.Background(), &ClockInRequest{
		SubjectID: "student-1",
		SiteID:    "site-1",
	})
	if err != nil {
		t.Fatalf("ClockIn: %v", err)
	}
	if result.RotationID != "rot-active" {
		t.Errorf("expected active rotation to win, got %s", result.RotationID)
	}
}

func TestClockIn_OpenEndedRotationNeverExpires(t *testing.T) {
	f := newServiceFixture()
	f.seedSite("site-1", "General Hospital")
	r := f.seedRotation("rot-open", "student-1", "site-1", models.RotationActive)
	r.StartDate = fixedNow.Add(-365 * 24 * time.Hour)
	r.EndDate = nil

	result, err := f.service.ClockIn(context.Background(), &ClockInRequest{SubjectID: "student-1"})
	if err != nil {
		t.Fatalf("ClockIn: %v", err)
	}
	if result.RotationID != "rot-open" {
		t.Errorf("expected open-ended rotation, got %s", result.RotationID)
	}
}

func TestClockIn_NoRotationContext(t *testing.T) {
	f := newServiceFixture()
	f.seedSite("site-1", "General Hospital")

	_, err := f.service.ClockIn(context.Background(), &ClockInRequest{
		SubjectID: "student-1",
		SiteID:    "site-1",
	})
	if !apperrors.IsCode(err, apperrors.CodeNoValidRotation) {
		t.Fatalf("expected NO_VALID_ROTATION, got %v", err)
	}
	if !apperrors.IsType(err, apperrors.TypeValidation) {
		t.Errorf("expected validation type, got %v", err)
	}
	if f.store.createCalls != 0 {
		t.Error("expected no session creation attempt")
	}
}

func TestClockIn_AlreadyClockedIn(t *testing.T) {
	f := newServiceFixture()
	f.seedSite("site-1", "General Hospital")
	f.seedRotation("rot-1", "student-1", "site-1", models.RotationActive)
	f.seedOpenSession("student-1", "site-1", fixedNow.Add(-time.Hour))

	_, err := f.service.ClockIn(context.Background(), &ClockInRequest{SubjectID: "student-1"})
	if !apperrors.IsCode(err, apperrors.CodeAlreadyClockedIn) {
		t.Fatalf("expected ALREADY_CLOCKED_IN, got %v", err)
	}
	if !apperrors.IsType(err, apperrors.TypeBusiness) {
		t.Errorf("expected business type, got %v", err)
	}
}

func TestClockIn_TimestampPreference(t *testing.T) {
	corrected := fixedNow.Add(-2 * time.Second).UnixMilli()
	raw := fixedNow.Add(-5 * time.Second).UnixMilli()

	tests := []struct {
		name            string
		timestamp       int64
		clientTimestamp int64
		expected        time.Time
	}{
		{"corrected timestamp wins", corrected, raw, time.UnixMilli(corrected).UTC()},
		{"raw client clock next", 0, raw, time.UnixMilli(raw).UTC()},
		{"server time last", 0, 0, fixedNow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture()
			f.seedSite("site-1", "General Hospital")
			f.seedRotation("rot-1", "student-1", "site-1", models.RotationActive)

			result, err := f.service.ClockIn(context.Background(), &ClockInRequest{
				SubjectID:       "student-1",
				Timestamp:       tt.timestamp,
				ClientTimestamp: tt.clientTimestamp,
			})
			if err != nil {
				t.Fatalf("ClockIn: %v", err)
			}
			if !result.ClockInTime.Equal(tt.expected) {
				t.Errorf("expected clock-in %v, got %v", tt.expected, result.ClockInTime)
			}
		})
	}
}

func TestClockIn_GeofenceHardFailCreatesNoSession(t *testing.T) {
	f := newServiceFixture()
	f.seedSite("site-1", "General Hospital")
	f.seedRotation("rot-1", "student-1", "site-1", models.RotationActive)
	f.verifier.result = &geofence.Result{
		IsValid:   false,
		DistanceM: 900,
		Status:    models.LocationFailed,
		Errors: []*apperrors.Error{
			apperrors.Business(apperrors.CodeLocationTooFar, "location is 900m from General Hospital (allowed 150m)"),
		},
	}

	_, err := f.service.ClockIn(context.Background(), &ClockInRequest{
		SubjectID: "student-1",
		Location:  &models.GeoFix{Latitude: 40.72, Longitude: -74.0, AccuracyM: 10},
	})
	if !apperrors.IsCode(err, apperrors.CodeLocationTooFar) {
		t.Fatalf("expected LOCATION_TOO_FAR, got %v", err)
	}

	if f.store.createCalls != 0 {
		t.Error("expected no session creation after geofence failure")
	}
	if len(f.verifier.recorded) != 1 {
		t.Fatalf("expected 1 recorded verification, got %d", len(f.verifier.recorded))
	}
	if f.verifier.recorded[0].sessionID != nil {
		t.Error("expected verification recorded without a session reference")
	}
}

func TestClockIn_GeofenceWarningsRide(t *testing.T) {
	f := newServiceFixture()
	f.seedSite("site-1", "General Hospital")
	f.seedRotation("rot-1", "student-1", "site-1", models.RotationActive)
	f.verifier.result = &geofence.Result{
		IsValid:        true,
		DistanceM:      180,
		WithinGeofence: false,
		Status:         models.LocationFlagged,
		Warnings:       []string{"location is 180m from General Hospital (allowed 150m)"},
	}

	result, err := f.service.ClockIn(context.Background(), &ClockInRequest{
		SubjectID: "student-1",
		Location:  &models.GeoFix{Latitude: 40.71, Longitude: -74.0, AccuracyM: 25},
	})
	if err != nil {
		t.Fatalf("ClockIn: %v", err)
	}

	if len(result.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d: %v", len(result.Warnings), result.Warnings)
	}
	if len(f.verifier.recorded) != 1 {
		t.Fatalf("expected 1 recorded verification, got %d", len(f.verifier.recorded))
	}
	if f.verifier.recorded[0].sessionID == nil || *f.verifier.recorded[0].sessionID != result.RecordID {
		t.Error("expected verification linked to the created session")
	}

	stored := f.store.storedSession(result.RecordID)
	if stored.ClockInLatitude == nil || *stored.ClockInLatitude != 40.71 {
		t.Error("expected clock-in fix persisted on the session")
	}
}

func TestClockIn_ReconcilesDrift(t *testing.T) {
	f := newServiceFixture()
	f.seedSite("site-1", "General Hospital")
	f.seedRotation("rot-1", "student-1", "site-1", models.RotationActive)

	clientTs := fixedNow.Add(-250 * time.Millisecond).UnixMilli()
	result, err := f.service.ClockIn(context.Background(), &ClockInRequest{
		SubjectID:       "student-1",
		ClientTimestamp: clientTs,
	})
	if err != nil {
		t.Fatalf("ClockIn: %v", err)
	}

	if result.Sync == nil {
		t.Fatal("expected sync data with a client timestamp supplied")
	}
	if result.Sync.DriftMs != 250 {
		t.Errorf("expected drift 250ms, got %d", result.Sync.DriftMs)
	}
	if result.Sync.Accuracy != models.SyncAccuracyMedium {
		t.Errorf("expected medium accuracy, got %s", result.Sync.Accuracy)
	}

	if len(f.reconciler.inLegs) != 1 {
		t.Fatalf("expected 1 reconciled clock-in leg, got %d", len(f.reconciler.inLegs))
	}
	leg := f.reconciler.inLegs[0]
	if leg.sessionID != result.RecordID || leg.driftMs != 250 {
		t.Errorf("unexpected leg: session=%s drift=%d", leg.sessionID, leg.driftMs)
	}
}

func TestClockIn_NoClientTimestampNoSyncData(t *testing.T) {
	f := newServiceFixture()
	f.seedSite("site-1", "General Hospital")
	f.seedRotation("rot-1", "student-1", "site-1", models.RotationActive)

	result, err := f.service.ClockIn(context.Background(), &ClockInRequest{SubjectID: "student-1"})
	if err != nil {
		t.Fatalf("ClockIn: %v", err)
	}
	if result.Sync != nil {
		t.Errorf("expected no sync data without a client timestamp, got %+v", result.Sync)
	}
	if len(f.reconciler.inLegs) != 0 {
		t.Error("expected no reconciliation without a client timestamp")
	}
}

func TestClockIn_ReconcileFailureDoesNotFailClockIn(t *testing.T) {
	f := newServiceFixture()
	f.seedSite("site-1", "General Hospital")
	f.seedRotation("rot-1", "student-1", "site-1", models.RotationActive)
	f.reconciler.inErr = context.DeadlineExceeded

	result, err := f.service.ClockIn(context.Background(), &ClockInRequest{
		SubjectID:       "student-1",
		ClientTimestamp: fixedNow.Add(-time.Second).UnixMilli(),
	})
	if err != nil {
		t.Fatalf("expected clock-in to survive reconcile failure, got %v", err)
	}
	if result.Sync == nil || result.Sync.DriftMs != 1000 {
		t.Errorf("expected measured drift to ride back anyway, got %+v", result.Sync)
	}
}

func TestClockIn_ValidationRejects(t *testing.T) {
	f := newServiceFixture()

	tests := []struct {
		name string
		req  *ClockInRequest
	}{
		{"missing subject", &ClockInRequest{}},
		{"latitude out of range", &ClockInRequest{
			SubjectID: "student-1",
			Location:  &models.GeoFix{Latitude: 91, Longitude: 0},
		}},
		{"longitude out of range", &ClockInRequest{
			SubjectID: "student-1",
			Location:  &models.GeoFix{Latitude: 0, Longitude: -181},
		}},
		{"negative accuracy", &ClockInRequest{
			SubjectID: "student-1",
			Location:  &models.GeoFix{Latitude: 0, Longitude: 0, AccuracyM: -1},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.ClockIn(context.Background(), tt.req)
			if !apperrors.IsType(err, apperrors.TypeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if f.store.createCalls != 0 {
		t.Error("expected no store writes for rejected requests")
	}
}

func TestClockIn_UnknownSiteWarnsButProceeds(t *testing.T) {
	f := newServiceFixture()
	f.seedRotation("rot-1", "student-1", "site-ghost", models.RotationActive)

	result, err := f.service.ClockIn(context.Background(), &ClockInRequest{SubjectID: "student-1"})
	if err != nil {
		t.Fatalf("ClockIn: %v", err)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a warning for a site missing from the roster")
	}
	if result.CurrentSite != "site-ghost" {
		t.Errorf("expected raw site id as display name, got %q", result.CurrentSite)
	}
}
