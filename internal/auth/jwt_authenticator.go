// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTAuthenticator validates locally minted bearer tokens. When a session
// store is attached, tokens carrying a session ID are additionally checked
// against it, which turns logout into real revocation.
type JWTAuthenticator struct {
	manager  *JWTManager
	sessions SessionStore
}

// NewJWTAuthenticator creates a JWT authenticator. sessions may be nil, in
// which case tokens are purely stateless.
func NewJWTAuthenticator(manager *JWTManager, sessions SessionStore) *JWTAuthenticator {
	return &JWTAuthenticator{manager: manager, sessions: sessions}
}

// Authenticate extracts and validates a JWT from the request.
//
// Token extraction order:
//  1. Authorization header ("Bearer <token>")
//  2. Cookie "token" (set by the login endpoint for browser clients)
func (a *JWTAuthenticator) Authenticate(ctx context.Context, r *http.Request) (*AuthSubject, error) {
	tokenStr := a.extractToken(r)
	if tokenStr == "" {
		return nil, ErrNoCredentials
	}

	claims, err := a.manager.ValidateToken(tokenStr)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredCredentials
		}
		return nil, ErrInvalidCredentials
	}

	// A token with a session ID is only valid while its session exists.
	// Tokens without one were issued out of band and stay stateless.
	if a.sessions != nil && claims.SessionID != "" {
		if _, err := a.sessions.Get(ctx, claims.SessionID); err != nil {
			if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
				return nil, ErrExpiredCredentials
			}
			return nil, ErrAuthenticatorUnavailable
		}
	}

	return AuthSubjectFromClaims(claims), nil
}

// Name returns the authenticator name.
func (a *JWTAuthenticator) Name() string {
	return string(AuthModeJWT)
}

// Priority returns 20: below OIDC, above Basic.
func (a *JWTAuthenticator) Priority() int {
	return 20
}

// extractToken pulls the token from the Authorization header or the token
// cookie. Returns empty string when neither is present.
func (a *JWTAuthenticator) extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	cookie, err := r.Cookie("token")
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}
