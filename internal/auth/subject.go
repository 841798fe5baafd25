// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// AuthMode identifies an authentication mechanism.
type AuthMode string

const (
	// AuthModeNone disables authentication entirely.
	AuthModeNone AuthMode = "none"

	// AuthModeBasic uses HTTP Basic authentication.
	AuthModeBasic AuthMode = "basic"

	// AuthModeJWT uses locally minted JWT bearer tokens.
	AuthModeJWT AuthMode = "jwt"

	// AuthModeOIDC validates bearer tokens via OIDC token introspection.
	AuthModeOIDC AuthMode = "oidc"
)

// ParseAuthMode parses a string into an AuthMode.
func ParseAuthMode(s string) (AuthMode, error) {
	switch AuthMode(s) {
	case AuthModeNone, AuthModeBasic, AuthModeJWT, AuthModeOIDC:
		return AuthMode(s), nil
	default:
		return "", fmt.Errorf("invalid auth mode: %q", s)
	}
}

// Sentinel errors returned by Authenticator implementations. The middleware
// and MultiAuthenticator dispatch on these with errors.Is, so implementations
// must return (or wrap) them rather than inventing new error values.
var (
	// ErrNoCredentials indicates the request carried no credentials this
	// authenticator understands. In a chain, the next authenticator is tried.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials indicates credentials were present but failed
	// validation. This is fatal: the chain stops.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrExpiredCredentials indicates credentials were valid once but have
	// expired or been revoked. Fatal, like ErrInvalidCredentials.
	ErrExpiredCredentials = errors.New("expired credentials")

	// ErrAuthenticatorUnavailable indicates the authenticator could not reach
	// its backing service (e.g. the OIDC introspection endpoint). In a chain,
	// the next authenticator is tried.
	ErrAuthenticatorUnavailable = errors.New("authenticator unavailable")
)

// Authenticator validates request credentials and produces an AuthSubject.
type Authenticator interface {
	// Authenticate extracts and validates credentials from the request.
	// Returns ErrNoCredentials when the request carries nothing this
	// authenticator can act on.
	Authenticate(ctx context.Context, r *http.Request) (*AuthSubject, error)

	// Name returns the authenticator's name for logging.
	Name() string

	// Priority orders authenticators in a chain; lower runs first.
	Priority() int
}

// AuthSubject is the authenticated caller identity, normalized across all
// auth modes. Handlers use ID to match the caller against attendance
// subjects, and authz uses Roles for RBAC decisions.
type AuthSubject struct {
	// ID is the stable unique identifier: the OIDC "sub" claim, or the
	// username for locally authenticated callers.
	ID string `json:"id"`

	// Username is the human-readable login name.
	Username string `json:"username"`

	// Email is the caller's email address, when the provider supplies one.
	Email string `json:"email,omitempty"`

	// EmailVerified reports whether the provider attested the email.
	EmailVerified bool `json:"email_verified,omitempty"`

	// Roles drive authorization: student, coordinator, admin.
	Roles []string `json:"roles,omitempty"`

	// Groups are provider-supplied group memberships, carried through for
	// policy use but not interpreted by Rollcall itself.
	Groups []string `json:"groups,omitempty"`

	// Issuer identifies the token issuer ("local" or the OIDC issuer URL).
	Issuer string `json:"issuer,omitempty"`

	// AuthMethod records which mode authenticated this request.
	AuthMethod AuthMode `json:"auth_method"`

	// IssuedAt and ExpiresAt are Unix seconds from the credential, zero
	// when the credential carries no lifetime.
	IssuedAt  int64 `json:"issued_at,omitempty"`
	ExpiresAt int64 `json:"expires_at,omitempty"`

	// SessionID links the credential to a revocable server-side session.
	// Empty for stateless credentials (OIDC tokens, operator-issued JWTs).
	SessionID string `json:"session_id,omitempty"`

	// RawClaims preserves the full provider claim set for diagnostics.
	// Never serialized.
	RawClaims map[string]interface{} `json:"-"`
}

// HasRole reports whether the subject holds the given role.
func (s *AuthSubject) HasRole(role string) bool {
	if role == "" {
		return false
	}
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the subject holds at least one of the roles.
func (s *AuthSubject) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if s.HasRole(role) {
			return true
		}
	}
	return false
}

// IsExpired reports whether the credential behind this subject has expired.
// Subjects without an expiry never expire.
func (s *AuthSubject) IsExpired() bool {
	if s.ExpiresAt == 0 {
		return false
	}
	return time.Now().Unix() > s.ExpiresAt
}

// AuthSubjectFromClaims builds an AuthSubject from locally minted JWT claims.
func AuthSubjectFromClaims(claims *Claims) *AuthSubject {
	if claims == nil {
		return nil
	}

	subject := &AuthSubject{
		ID:         claims.Username,
		Username:   claims.Username,
		AuthMethod: AuthModeJWT,
		Issuer:     "local",
		SessionID:  claims.SessionID,
	}

	if claims.Role != "" {
		subject.Roles = []string{claims.Role}
	}
	if claims.ExpiresAt != nil {
		subject.ExpiresAt = claims.ExpiresAt.Unix()
	}
	if claims.IssuedAt != nil {
		subject.IssuedAt = claims.IssuedAt.Unix()
	}

	return subject
}
