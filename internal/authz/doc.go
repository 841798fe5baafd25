// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

// Package authz provides role-based authorization using Casbin.
//
// The enforcer evaluates (subject, object, action) requests against an
// embedded RBAC model and policy, with optional file overrides and policy
// auto-reload for deployments that manage policy outside the binary.
// Objects are API paths, actions are read/write/delete derived from HTTP
// methods, and roles chain student -> coordinator -> admin.
//
// Two checks compose per request:
//
//   - Path-level: the HTTP middleware asks whether any of the subject's
//     roles permit the action on the request path. Decisions are cached
//     with a short TTL.
//   - Subject-level: attendance operations name a target student, and
//     ResolveSubjectScope restricts students to their own record while
//     coordinators and admins may act for anyone. Handlers call this after
//     binding the request body, since the target is not in the path.
//
// Roles come from the authenticated subject (token claims, basic-auth
// mapping, or the configured default); there is no user-role database.
package authz
