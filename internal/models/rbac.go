// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package models

// Role constants define the standard Rollcall roles. They align with the
// Casbin policy in internal/authz/policy.csv; token claims, basic-auth
// mapping, and policy grants must use these names to resolve.
const (
	// RoleStudent is the default role. Students sync time and record
	// attendance for themselves only.
	RoleStudent = "student"

	// RoleCoordinator reviews attendance and manages roster data, and may
	// act for any subject. Inherits student permissions.
	RoleCoordinator = "coordinator"

	// RoleAdmin holds the full API surface including backups and policy
	// administration. Inherits coordinator permissions.
	RoleAdmin = "admin"
)

// ValidRoles contains all valid role names for validation.
var ValidRoles = []string{RoleStudent, RoleCoordinator, RoleAdmin}

// IsValidRole checks if a role name is valid.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
