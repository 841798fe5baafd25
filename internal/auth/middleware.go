// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/rollcall-attendance/rollcall/internal/apperrors"
	"github.com/rollcall-attendance/rollcall/internal/config"
	"github.com/rollcall-attendance/rollcall/internal/logging"
	"github.com/rollcall-attendance/rollcall/internal/models"
)

type contextKey string

// subjectContextKey carries the *AuthSubject through the request context.
const subjectContextKey contextKey = "auth_subject"

// Middleware enforces authentication on API routes. It is built once at
// startup from the security configuration and mounted on the router in
// front of every protected route group.
type Middleware struct {
	mode          AuthMode
	authenticator Authenticator
	basicManager  *BasicAuthManager
}

// NewMiddleware builds the middleware for the configured auth mode.
// Construction wires the mode's collaborators together:
//
//   - jwt:   JWTManager plus the session store for revocation checks
//   - basic: BasicAuthManager with the admin account
//   - oidc:  introspection authenticator; when a JWT secret is also
//     configured, locally minted tokens stay valid through a
//     MultiAuthenticator chain
//   - none:  no authenticator; see Authenticate for the trust model
//
// The context is used for OIDC discovery and should carry a startup
// timeout.
func NewMiddleware(ctx context.Context, cfg *config.SecurityConfig, sessions SessionStore) (*Middleware, error) {
	mode, err := ParseAuthMode(cfg.AuthMode)
	if err != nil {
		return nil, err
	}

	m := &Middleware{mode: mode}

	switch mode {
	case AuthModeNone:
		return m, nil

	case AuthModeJWT:
		manager, err := NewJWTManager(cfg)
		if err != nil {
			return nil, err
		}
		m.authenticator = NewJWTAuthenticator(manager, sessions)

	case AuthModeBasic:
		manager, err := NewBasicAuthManager(cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			return nil, err
		}
		m.basicManager = manager
		m.authenticator = NewBasicAuthenticator(manager, &BasicAuthenticatorConfig{
			DefaultRole:   cfg.BasicAuthDefaultRole,
			AdminUsername: cfg.AdminUsername,
		})

	case AuthModeOIDC:
		oidcAuth, err := NewOIDCAuthenticator(ctx, &cfg.OIDC)
		if err != nil {
			return nil, err
		}
		if cfg.JWTSecret != "" {
			manager, err := NewJWTManager(cfg)
			if err != nil {
				return nil, err
			}
			m.authenticator = NewMultiAuthenticator(oidcAuth, NewJWTAuthenticator(manager, sessions))
		} else {
			m.authenticator = oidcAuth
		}
	}

	return m, nil
}

// Authenticate enforces authentication and injects the AuthSubject into the
// request context. In none mode every caller becomes a trusted development
// subject with the admin role; config validation refuses that mode in
// production, so this never weakens a real deployment.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.mode == AuthModeNone {
			next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), devSubject())))
			return
		}

		subject, err := m.authenticator.Authenticate(r.Context(), r)
		if err != nil {
			m.respondAuthError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), subject)))
	})
}

// Mode returns the configured auth mode.
func (m *Middleware) Mode() AuthMode {
	return m.mode
}

// devSubject is the identity assigned to every request in none mode.
func devSubject() *AuthSubject {
	return &AuthSubject{
		ID:         "dev",
		Username:   "dev",
		Roles:      []string{"admin"},
		Issuer:     "local",
		AuthMethod: AuthModeNone,
	}
}

// respondAuthError writes the standard error envelope for an auth failure.
func (m *Middleware) respondAuthError(w http.ResponseWriter, err error) {
	logging.Debug().Err(err).Msg("Authentication failed")

	status := http.StatusUnauthorized
	appErr := apperrors.Authorization(apperrors.CodeUnauthorized, "Authentication required")

	switch {
	case errors.Is(err, ErrNoCredentials):
		// The Basic challenge header tells browsers to prompt; other modes
		// have no challenge to offer.
		if m.basicManager != nil {
			w.Header().Set("WWW-Authenticate", m.basicManager.GetWWWAuthenticateHeader())
		}
	case errors.Is(err, ErrInvalidCredentials):
		appErr = apperrors.Authorization(apperrors.CodeUnauthorized, "Invalid credentials")
	case errors.Is(err, ErrExpiredCredentials):
		appErr = apperrors.Authorization(apperrors.CodeUnauthorized, "Credentials expired")
	case errors.Is(err, ErrAuthenticatorUnavailable):
		status = http.StatusServiceUnavailable
		appErr = apperrors.System(apperrors.CodeSystemError, "Authentication service unavailable", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(&models.APIResponse{
		Success:  false,
		Error:    appErr,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	}); encErr != nil {
		logging.Error().Err(encErr).Msg("Failed to encode auth error response")
	}
}

// ContextWithSubject returns a context carrying the subject. Exposed for
// handler tests that need an authenticated context without the middleware.
func ContextWithSubject(ctx context.Context, subject *AuthSubject) context.Context {
	return context.WithValue(ctx, subjectContextKey, subject)
}

// GetAuthSubject retrieves the AuthSubject from the context, or nil when
// the request never passed the middleware.
func GetAuthSubject(ctx context.Context) *AuthSubject {
	subject, ok := ctx.Value(subjectContextKey).(*AuthSubject)
	if !ok {
		return nil
	}
	return subject
}
