// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

// Package api is the HTTP surface of Rollcall: a chi router over handlers
// for time authority queries, drift reports, the two sync transports, the
// attendance clock, login, and health probes.
//
// Every response uses the models.APIResponse envelope. Errors travel as
// *apperrors.Error inside it; system and database failures are reduced to a
// generic message before they leave the process, with the detail kept in
// the logs.
//
// Route groups carry their own middleware tiers:
//
//   - /api/v1/health: permissive rate limit, no authentication
//   - /api/v1/auth:   strict rate limit, login stricter still
//   - /api/v1:        standard rate limit, request metrics, authentication
//     and casbin authorization
//
// Handlers take their collaborators as narrow interfaces (TimeAuthority,
// AttendanceService, EventPoller) so tests can substitute fakes without a
// database.
package api
