// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package apperrors

// Machine-readable error codes. These appear verbatim in API responses and
// in client retry logic; treat them as a published contract.
const (
	// Validation codes
	CodeValidationError = "VALIDATION_ERROR"  // malformed or out-of-range input
	CodeNoValidRotation = "NO_VALID_ROTATION" // rotation context could not be resolved
	CodeAccuracyTooLow  = "ACCURACY_TOO_LOW"  // GPS accuracy unacceptable in strict mode

	// Business codes
	CodeAlreadyClockedIn = "ALREADY_CLOCKED_IN" // subject already has an open session
	CodeNoActiveSession  = "NO_ACTIVE_SESSION"  // clock-out with nothing open
	CodeSessionTooShort  = "SESSION_TOO_SHORT"  // below the configured minimum duration
	CodeLocationTooFar   = "LOCATION_TOO_FAR"   // outside the geofence (strict mode or >2x radius)
	CodeImportInProgress = "IMPORT_IN_PROGRESS" // roster import already running

	// Authorization codes
	CodeUnauthorized = "UNAUTHORIZED" // missing or invalid credentials
	CodeForbidden    = "FORBIDDEN"    // authenticated but not permitted

	// Resource codes
	CodeNotFound          = "NOT_FOUND"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"

	// System codes
	CodeSystemError   = "SYSTEM_ERROR"
	CodeDatabaseError = "DATABASE_ERROR"
)
