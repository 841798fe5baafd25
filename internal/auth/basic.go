// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost balances hashing time against login throughput. The hash is
// computed once at startup, so the cost only matters per-request in basic
// mode where every request carries credentials.
const bcryptCost = 12

// BasicAuthManager verifies HTTP Basic credentials against the configured
// admin account. The password is bcrypt-hashed at construction so the
// plaintext never lives beyond startup.
type BasicAuthManager struct {
	username     string
	passwordHash []byte
}

// NewBasicAuthManager creates a manager for the given credentials.
func NewBasicAuthManager(username, password string) (*BasicAuthManager, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return &BasicAuthManager{
		username:     username,
		passwordHash: hash,
	}, nil
}

// ValidateCredentials validates an Authorization header value of the form
// "Basic <base64(user:pass)>" and returns the username on success.
func (m *BasicAuthManager) ValidateCredentials(authHeader string) (string, error) {
	if !strings.HasPrefix(authHeader, "Basic ") {
		return "", fmt.Errorf("invalid authorization header format")
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(authHeader, "Basic "))
	if err != nil {
		return "", fmt.Errorf("failed to decode credentials")
	}

	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid credentials format")
	}

	if err := m.Verify(parts[0], parts[1]); err != nil {
		return "", err
	}
	return parts[0], nil
}

// Verify checks a username/password pair. Both comparisons always run so
// response time does not leak which of the two was wrong. The login
// endpoint uses this directly; the Basic header path goes through
// ValidateCredentials.
func (m *BasicAuthManager) Verify(username, password string) error {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(m.passwordHash, []byte(password)) == nil

	if !usernameMatch || !passwordMatch {
		return fmt.Errorf("invalid username or password")
	}
	return nil
}

// GetWWWAuthenticateHeader returns the challenge header sent with 401
// responses, as the HTTP spec requires for Basic auth.
func (m *BasicAuthManager) GetWWWAuthenticateHeader() string {
	return `Basic realm="Rollcall", charset="UTF-8"`
}
