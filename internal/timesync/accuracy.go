// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package timesync

import "github.com/rollcall-attendance/rollcall/internal/models"

// Drift tier boundaries in absolute milliseconds. A measurement exactly on
// a boundary falls into the worse tier.
const (
	highDriftMaxMs   = 100
	mediumDriftMaxMs = 500
)

// AccuracyForDrift maps a signed drift measurement to its quality tier.
// Direction does not matter; a client 400ms ahead and one 400ms behind are
// equally medium.
func AccuracyForDrift(driftMs int64) models.SyncAccuracy {
	abs := driftMs
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs < highDriftMaxMs:
		return models.SyncAccuracyHigh
	case abs < mediumDriftMaxMs:
		return models.SyncAccuracyMedium
	default:
		return models.SyncAccuracyLow
	}
}
