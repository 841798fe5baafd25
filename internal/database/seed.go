// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rollcall-attendance/rollcall/internal/logging"
	"github.com/rollcall-attendance/rollcall/internal/models"
)

// SeedDemoData loads a small roster of sites, rotations, and assignments for
// local development and demos. Seeding is idempotent: fixed IDs plus upserts
// mean a restart refreshes the same rows instead of duplicating them.
//
// Never enabled in production; the importer owns roster data there.
func (db *DB) SeedDemoData(ctx context.Context) error {
	logging.Info().Str("component", "database").Msg("Seeding demo roster data")

	now := time.Now()

	floatPtr := func(v float64) *float64 { return &v }
	boolPtr := func(v bool) *bool { return &v }
	strPtr := func(v string) *string { return &v }

	sites := []models.Site{
		{
			ID:             "site-general",
			Name:           "General Hospital",
			Latitude:       floatPtr(40.7406),
			Longitude:      floatPtr(-73.9754),
			AllowedRadiusM: 150,
			Active:         true,
		},
		{
			ID:              "site-eastside",
			Name:            "Eastside Clinic",
			Latitude:        floatPtr(40.7831),
			Longitude:       floatPtr(-73.9512),
			AllowedRadiusM:  75,
			EnforceGeofence: boolPtr(true),
			Active:          true,
		},
		{
			// No coordinates: proximity checks fail open for this site.
			ID:             "site-community",
			Name:           "Community Outreach Center",
			AllowedRadiusM: 100,
			Active:         true,
		},
	}

	for i := range sites {
		if err := db.UpsertSite(ctx, &sites[i]); err != nil {
			return fmt.Errorf("failed to seed site %s: %w", sites[i].ID, err)
		}
	}

	rotations := []models.Rotation{
		{
			ID:        "rot-demo-current",
			SubjectID: "student-001",
			SiteID:    "site-general",
			Status:    models.RotationActive,
			StartDate: now.AddDate(0, 0, -14),
			EndDate:   timePtr(now.AddDate(0, 0, 14)),
		},
		{
			ID:        "rot-demo-upcoming",
			SubjectID: "student-001",
			SiteID:    "site-eastside",
			Status:    models.RotationScheduled,
			StartDate: now.AddDate(0, 0, 21),
			EndDate:   timePtr(now.AddDate(0, 0, 49)),
		},
		{
			ID:        "rot-demo-open-ended",
			SubjectID: "student-002",
			SiteID:    "site-community",
			Status:    models.RotationActive,
			StartDate: now.AddDate(0, 0, -7),
		},
		{
			ID:        "rot-demo-finished",
			SubjectID: "student-002",
			SiteID:    "site-general",
			Status:    models.RotationCompleted,
			StartDate: now.AddDate(0, -3, 0),
			EndDate:   timePtr(now.AddDate(0, -1, 0)),
		},
	}

	for i := range rotations {
		if err := db.UpsertRotation(ctx, &rotations[i]); err != nil {
			return fmt.Errorf("failed to seed rotation %s: %w", rotations[i].ID, err)
		}
	}

	assignments := []models.SiteAssignment{
		{
			ID:         "assign-demo-1",
			SubjectID:  "student-001",
			SiteID:     "site-general",
			RotationID: strPtr("rot-demo-current"),
			Active:     true,
		},
		{
			ID:        "assign-demo-2",
			SubjectID: "student-003",
			SiteID:    "site-eastside",
			Active:    true,
		},
	}

	for i := range assignments {
		if err := db.UpsertSiteAssignment(ctx, &assignments[i]); err != nil {
			return fmt.Errorf("failed to seed assignment %s: %w", assignments[i].ID, err)
		}
	}

	logging.Info().
		Str("component", "database").
		Int("sites", len(sites)).
		Int("rotations", len(rotations)).
		Int("assignments", len(assignments)).
		Msg("Demo roster data seeded")

	return nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}
