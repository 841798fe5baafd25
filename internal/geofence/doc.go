// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

// Package geofence verifies that a reported GPS fix plausibly places a
// subject at their clinical site.
//
// The verifier computes the great-circle distance between the fix and the
// site's registered coordinates and classifies the outcome against the
// site's allowed radius (floored at the deployment minimum). GPS accuracy
// is tiered rather than trusted: a fix with 200m accuracy cannot prove
// presence inside a 100m fence no matter where it lands.
//
// Enforcement has two modes. Lenient mode records warnings and lets the
// attendance transition proceed; strict mode (deployment default or per-site
// override) promotes geofence and accuracy warnings to hard failures.
// A fix more than twice the allowed radius from the site always fails,
// regardless of mode. Sites without registered coordinates fail open: the
// check is skipped, flagged, and logged.
//
// Every verification attempt persists a location_verifications row, so
// flagged and failed attempts remain auditable.
package geofence
