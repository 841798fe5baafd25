// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

// Package auth provides request authentication for the Rollcall API.
//
// Four modes are supported, selected by AUTH_MODE:
//
//   - none:  no authentication; every request is treated as a trusted
//     development caller (refused in production by config validation)
//   - basic: HTTP Basic against the configured admin credentials (bcrypt)
//   - jwt:   locally minted HS256 bearer tokens (POST /api/v1/auth/login)
//   - oidc:  bearer tokens validated against an external provider via
//     RFC 7662 token introspection
//
// Every mode is implemented as an Authenticator. In oidc mode a locally
// minted JWT is still accepted when a JWT secret is configured, so kiosk
// devices with operator-issued tokens keep working alongside the IdP;
// MultiAuthenticator chains the two in priority order.
//
// Successful authentication places an *AuthSubject in the request context.
// Downstream authorization (internal/authz) and handlers read it with
// GetAuthSubject.
//
// Tokens minted by the login endpoint carry a session ID ("sid" claim)
// backed by a SessionStore, which makes them revocable: logout deletes the
// session and the token stops validating even before its expiry.
package auth
