// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package geofence

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rollcall-attendance/rollcall/internal/apperrors"
	"github.com/rollcall-attendance/rollcall/internal/config"
	"github.com/rollcall-attendance/rollcall/internal/models"
)

// fakeStore implements Store without a database.
type fakeStore struct {
	previous []models.LocationVerification
	inserted []*models.LocationVerification
	listErr  error
}

func (f *fakeStore) InsertLocationVerification(_ context.Context, v *models.LocationVerification) error {
	f.inserted = append(f.inserted, v)
	return nil
}

func (f *fakeStore) ListLocationVerifications(_ context.Context, _ string, limit int) ([]models.LocationVerification, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.previous) > limit {
		return f.previous[:limit], nil
	}
	return f.previous, nil
}

func testGeofenceConfig() *config.GeofenceConfig {
	return &config.GeofenceConfig{
		StrictMode:      false,
		MinRadiusM:      100,
		HighAccuracyM:   10,
		MediumAccuracyM: 50,
		MaxAccuracyM:    100,
		MaxSpeedKmh:     800,
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

func boolPtr(v bool) *bool {
	return &v
}

// testSite sits at the origin with a 100m radius so distances are easy to
// reason about: 0.001 degrees of longitude on the equator is ~111m.
func testSite() *models.Site {
	return &models.Site{
		ID:             "site-1",
		Name:           "General Hospital",
		Latitude:       floatPtr(0),
		Longitude:      floatPtr(0),
		AllowedRadiusM: 100,
		Active:         true,
	}
}

func hasErrorCode(errs []*apperrors.Error, code string) bool {
	for _, e := range errs {
		if e.Code == code {
			return true
		}
	}
	return false
}

func hasWarningContaining(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestVerify_WithinGeofence(t *testing.T) {
	v := New(testGeofenceConfig(), &fakeStore{})

	res := v.Verify(context.Background(), VerifyInput{
		SubjectID: "student-001",
		Site:      testSite(),
		Fix:       models.GeoFix{Latitude: 0, Longitude: 0.0005, AccuracyM: 8},
	})

	if !res.IsValid {
		t.Fatalf("expected valid result, errors: %v", res.Errors)
	}
	if !res.WithinGeofence {
		t.Error("expected within geofence")
	}
	if res.Status != models.LocationVerified {
		t.Errorf("status: expected verified, got %s", res.Status)
	}
	if res.AccuracyTier != TierHigh {
		t.Errorf("tier: expected high, got %s", res.AccuracyTier)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
}

func TestVerify_BoundaryIsInclusive(t *testing.T) {
	cfg := testGeofenceConfig()
	cfg.MinRadiusM = 0
	site := testSite()
	site.AllowedRadiusM = 111

	v := New(cfg, &fakeStore{})
	res := v.Verify(context.Background(), VerifyInput{
		SubjectID: "student-001",
		Site:      site,
		Fix:       models.GeoFix{Latitude: 0, Longitude: 0.001, AccuracyM: 5},
	})

	// Distance rounds to exactly 111m; a fix exactly on the fence is inside.
	if res.DistanceM != 111 {
		t.Fatalf("expected distance 111m, got %v", res.DistanceM)
	}
	if !res.WithinGeofence {
		t.Error("boundary fix should be within the geofence")
	}
	if !res.IsValid {
		t.Errorf("boundary fix should be valid, errors: %v", res.Errors)
	}
}

func TestVerify_OutsideFence_LenientWarns(t *testing.T) {
	v := New(testGeofenceConfig(), &fakeStore{})

	// ~111m from the site against a 100m fence: outside, but under 2x.
	res := v.Verify(context.Background(), VerifyInput{
		SubjectID: "student-001",
		Site:      testSite(),
		Fix:       models.GeoFix{Latitude: 0, Longitude: 0.001, AccuracyM: 5},
	})

	if !res.IsValid {
		t.Fatalf("lenient mode should not block, errors: %v", res.Errors)
	}
	if res.WithinGeofence {
		t.Error("expected outside geofence")
	}
	if res.Status != models.LocationFlagged {
		t.Errorf("status: expected flagged, got %s", res.Status)
	}
	if !hasWarningContaining(res.Warnings, "111m from General Hospital") {
		t.Errorf("expected distance warning, got %v", res.Warnings)
	}
}

func TestVerify_OutsideFence_StrictFails(t *testing.T) {
	cfg := testGeofenceConfig()
	cfg.StrictMode = true
	v := New(cfg, &fakeStore{})

	res := v.Verify(context.Background(), VerifyInput{
		SubjectID: "student-001",
		Site:      testSite(),
		Fix:       models.GeoFix{Latitude: 0, Longitude: 0.001, AccuracyM: 5},
	})

	if res.IsValid {
		t.Fatal("strict mode should reject an out-of-fence fix")
	}
	if !hasErrorCode(res.Errors, apperrors.CodeLocationTooFar) {
		t.Errorf("expected LOCATION_TOO_FAR, got %v", res.Errors)
	}
	if res.Status != models.LocationFailed {
		t.Errorf("status: expected failed, got %s", res.Status)
	}
}

func TestVerify_DoubleRadiusAlwaysFails(t *testing.T) {
	// Lenient deployment, lenient site: a fix beyond twice the radius still
	// hard-fails.
	v := New(testGeofenceConfig(), &fakeStore{})

	res := v.Verify(context.Background(), VerifyInput{
		SubjectID: "student-001",
		Site:      testSite(),
		Fix:       models.GeoFix{Latitude: 0, Longitude: 0.002, AccuracyM: 5}, // ~222m
	})

	if res.IsValid {
		t.Fatal("fix beyond 2x radius must fail in any mode")
	}
	if !hasErrorCode(res.Errors, apperrors.CodeLocationTooFar) {
		t.Errorf("expected LOCATION_TOO_FAR, got %v", res.Errors)
	}
}

func TestVerify_PerSiteOverrideBeatsDeploymentDefault(t *testing.T) {
	// Deployment lenient, site strict.
	site := testSite()
	site.EnforceGeofence = boolPtr(true)
	v := New(testGeofenceConfig(), &fakeStore{})

	res := v.Verify(context.Background(), VerifyInput{
		SubjectID: "student-001",
		Site:      site,
		Fix:       models.GeoFix{Latitude: 0, Longitude: 0.001, AccuracyM: 5},
	})
	if res.IsValid {
		t.Fatal("site-level strict override should reject")
	}

	// Deployment strict, site lenient.
	cfg := testGeofenceConfig()
	cfg.StrictMode = true
	site2 := testSite()
	site2.EnforceGeofence = boolPtr(false)
	v2 := New(cfg, &fakeStore{})

	res2 := v2.Verify(context.Background(), VerifyInput{
		SubjectID: "student-001",
		Site:      site2,
		Fix:       models.GeoFix{Latitude: 0, Longitude: 0.001, AccuracyM: 5},
	})
	if !res2.IsValid {
		t.Fatalf("site-level lenient override should warn only, errors: %v", res2.Errors)
	}
}

func TestVerify_MinRadiusFloor(t *testing.T) {
	// A site configured tighter than the deployment floor is verified
	// against the floor.
	site := testSite()
	site.AllowedRadiusM = 10
	v := New(testGeofenceConfig(), &fakeStore{})

	res := v.Verify(context.Background(), VerifyInput{
		SubjectID: "student-001",
		Site:      site,
		Fix:       models.GeoFix{Latitude: 0, Longitude: 0.0008, AccuracyM: 5}, // ~89m
	})

	if res.EffectiveRadiusM != 100 {
		t.Errorf("effective radius: expected 100, got %v", res.EffectiveRadiusM)
	}
	if !res.WithinGeofence {
		t.Error("fix within the floor radius should pass")
	}
}

func TestVerify_AccuracyTiers(t *testing.T) {
	v := New(testGeofenceConfig(), &fakeStore{})

	tests := []struct {
		accuracyM float64
		want      AccuracyTier
	}{
		{5, TierHigh},
		{10, TierHigh},
		{11, TierMedium},
		{50, TierMedium},
		{51, TierLow},
		{100, TierLow},
		{250, TierLow},
		{0, TierLow},
	}
	for _, tt := range tests {
		if got := v.AccuracyTierFor(tt.accuracyM); got != tt.want {
			t.Errorf("AccuracyTierFor(%v) = %s, want %s", tt.accuracyM, got, tt.want)
		}
	}
}

func TestVerify_PoorAccuracy(t *testing.T) {
	// Lenient: warning only.
	v := New(testGeofenceConfig(), &fakeStore{})
	res := v.Verify(context.Background(), VerifyInput{
		SubjectID: "student-001",
		Site:      testSite(),
		Fix:       models.GeoFix{Latitude: 0, Longitude: 0.0002, AccuracyM: 250},
	})
	if !res.IsValid {
		t.Fatalf("lenient mode should warn on poor accuracy, errors: %v", res.Errors)
	}
	if !hasWarningContaining(res.Warnings, "accuracy 250m") {
		t.Errorf("expected accuracy warning, got %v", res.Warnings)
	}

	// Strict: hard failure.
	cfg := testGeofenceConfig()
	cfg.StrictMode = true
	vs := New(cfg, &fakeStore{})
	res = vs.Verify(context.Background(), VerifyInput{
		SubjectID: "student-001",
		Site:      testSite(),
		Fix:       models.GeoFix{Latitude: 0, Longitude: 0.0002, AccuracyM: 250},
	})
	if res.IsValid {
		t.Fatal("strict mode should reject poor accuracy")
	}
	if !hasErrorCode(res.Errors, apperrors.CodeAccuracyTooLow) {
		t.Errorf("expected ACCURACY_TOO_LOW, got %v", res.Errors)
	}
}

func TestVerify_NoCoordinatesFailsOpen(t *testing.T) {
	cfg := testGeofenceConfig()
	cfg.StrictMode = true // even strict deployments fail open on roster gaps
	v := New(cfg, &fakeStore{})

	res := v.Verify(context.Background(), VerifyInput{
		SubjectID: "student-001",
		Site:      &models.Site{ID: "site-nocoords", Name: "Outreach Van", AllowedRadiusM: 100},
		Fix:       models.GeoFix{Latitude: 40.7, Longitude: -74.0, AccuracyM: 5},
	})

	if !res.IsValid {
		t.Fatalf("missing site coordinates must fail open, errors: %v", res.Errors)
	}
	if res.Status != models.LocationFlagged {
		t.Errorf("status: expected flagged, got %s", res.Status)
	}
	if res.DistanceM != -1 {
		t.Errorf("expected sentinel distance -1, got %v", res.DistanceM)
	}
	if !hasWarningContaining(res.Warnings, "no registered coordinates") {
		t.Errorf("expected fail-open warning, got %v", res.Warnings)
	}
}

func TestVerify_ImplausibleTravelWarns(t *testing.T) {
	// Previous fix in London two minutes ago; current fix at the site (0,0).
	store := &fakeStore{
		previous: []models.LocationVerification{{
			SubjectID: "student-001",
			Latitude:  51.5074,
			Longitude: -0.1278,
			DistanceM: 20,
			CreatedAt: time.Now().Add(-2 * time.Minute),
		}},
	}
	v := New(testGeofenceConfig(), store)

	res := v.Verify(context.Background(), VerifyInput{
		SubjectID: "student-001",
		Site:      testSite(),
		Fix:       models.GeoFix{Latitude: 0, Longitude: 0.0002, AccuracyM: 5},
	})

	// Travel never blocks; it only flags.
	if !res.IsValid {
		t.Fatalf("travel check must not block, errors: %v", res.Errors)
	}
	if !hasWarningContaining(res.Warnings, "km/h") {
		t.Errorf("expected travel warning, got %v", res.Warnings)
	}
	if res.Status != models.LocationFlagged {
		t.Errorf("status: expected flagged, got %s", res.Status)
	}
}

func TestVerify_TravelCheckDisabled(t *testing.T) {
	cfg := testGeofenceConfig()
	cfg.MaxSpeedKmh = 0
	store := &fakeStore{
		previous: []models.LocationVerification{{
			Latitude:  51.5074,
			Longitude: -0.1278,
			DistanceM: 20,
			CreatedAt: time.Now().Add(-2 * time.Minute),
		}},
	}
	v := New(cfg, store)

	res := v.Verify(context.Background(), VerifyInput{
		SubjectID: "student-001",
		Site:      testSite(),
		Fix:       models.GeoFix{Latitude: 0, Longitude: 0.0002, AccuracyM: 5},
	})

	if hasWarningContaining(res.Warnings, "km/h") {
		t.Errorf("travel check should be disabled, got %v", res.Warnings)
	}
}

func TestRecord_PersistsAttempt(t *testing.T) {
	store := &fakeStore{}
	v := New(testGeofenceConfig(), store)

	in := VerifyInput{
		SubjectID: "student-001",
		Site:      testSite(),
		Fix:       models.GeoFix{Latitude: 0, Longitude: 0.001, AccuracyM: 5, Source: "gps"},
	}
	res := v.Verify(context.Background(), in)
	v.Record(context.Background(), in, res, nil)

	if len(store.inserted) != 1 {
		t.Fatalf("expected 1 persisted verification, got %d", len(store.inserted))
	}
	row := store.inserted[0]
	if row.SubjectID != "student-001" || row.SiteID != "site-1" {
		t.Errorf("row identity wrong: %+v", row)
	}
	if row.DistanceM != res.DistanceM {
		t.Errorf("distance mismatch: row %v, result %v", row.DistanceM, res.DistanceM)
	}
	if row.Status != models.LocationFlagged {
		t.Errorf("status: expected flagged, got %s", row.Status)
	}
	if row.FlagReason == nil {
		t.Error("expected flag reason on flagged row")
	}
	if row.Source != "gps" {
		t.Errorf("source: got %q", row.Source)
	}
}
