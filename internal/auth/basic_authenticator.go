// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package auth

import (
	"context"
	"net/http"
	"strings"
)

// BasicAuthenticatorConfig configures role assignment for Basic auth users.
type BasicAuthenticatorConfig struct {
	// DefaultRole is assigned to authenticated users other than the admin.
	// Defaults to "student" (least privilege: a student can only clock
	// their own attendance).
	DefaultRole string

	// AdminUsername receives the admin role instead of DefaultRole.
	AdminUsername string
}

// BasicAuthenticator implements Authenticator for HTTP Basic authentication.
type BasicAuthenticator struct {
	manager       *BasicAuthManager
	defaultRole   string
	adminUsername string
}

// NewBasicAuthenticator creates a Basic authenticator around the manager.
func NewBasicAuthenticator(manager *BasicAuthManager, cfg *BasicAuthenticatorConfig) *BasicAuthenticator {
	defaultRole := "student"
	adminUsername := ""

	if cfg != nil {
		if cfg.DefaultRole != "" {
			defaultRole = cfg.DefaultRole
		}
		adminUsername = cfg.AdminUsername
	}

	return &BasicAuthenticator{
		manager:       manager,
		defaultRole:   defaultRole,
		adminUsername: adminUsername,
	}
}

// Authenticate validates Basic credentials from the Authorization header.
func (a *BasicAuthenticator) Authenticate(ctx context.Context, r *http.Request) (*AuthSubject, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Basic ") {
		return nil, ErrNoCredentials
	}

	username, err := a.manager.ValidateCredentials(authHeader)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	role := a.defaultRole
	if a.adminUsername != "" && username == a.adminUsername {
		role = "admin"
	}

	return &AuthSubject{
		ID:         username,
		Username:   username,
		AuthMethod: AuthModeBasic,
		Issuer:     "local",
		Roles:      []string{role},
	}, nil
}

// Name returns the authenticator name.
func (a *BasicAuthenticator) Name() string {
	return string(AuthModeBasic)
}

// Priority returns 30: Basic runs last in a chain because it is the only
// mode that cannot distinguish "no credentials" from "foreign credentials"
// once another scheme's Authorization header is present.
func (a *BasicAuthenticator) Priority() int {
	return 30
}

// GetWWWAuthenticateHeader exposes the manager's challenge header for the
// middleware's 401 responses.
func (a *BasicAuthenticator) GetWWWAuthenticateHeader() string {
	return a.manager.GetWWWAuthenticateHeader()
}
