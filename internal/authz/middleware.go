// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package authz

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/rollcall-attendance/rollcall/internal/apperrors"
	"github.com/rollcall-attendance/rollcall/internal/auth"
	"github.com/rollcall-attendance/rollcall/internal/logging"
	"github.com/rollcall-attendance/rollcall/internal/models"
)

// DenialAuditor receives authorization denials for the security trail.
// Implementations must not block; the middleware calls this on the request
// path.
type DenialAuditor interface {
	RecordAuthzDenial(ctx context.Context, subject *auth.AuthSubject, object, action string)
}

// Middleware enforces path-level authorization. It is mounted after the
// authentication middleware and reads the AuthSubject from the request
// context.
type Middleware struct {
	enforcer *Enforcer
	auditor  DenialAuditor
}

// NewMiddleware creates the authorization middleware.
func NewMiddleware(enforcer *Enforcer) *Middleware {
	return &Middleware{enforcer: enforcer}
}

// SetAuditor wires denial events into the security trail. Call before the
// router starts serving; the field is not guarded.
func (m *Middleware) SetAuditor(a DenialAuditor) {
	m.auditor = a
}

// Authorize authorizes every request by its path and method. The action is
// read for GET/HEAD/OPTIONS, write for POST/PUT/PATCH, delete for DELETE.
func (m *Middleware) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.enforce(w, r, r.URL.Path, methodToAction(r.Method), next)
	})
}

// Require returns middleware that authorizes against a fixed object and
// action regardless of the request path. Used for routes whose permission
// does not follow from their URL.
func (m *Middleware) Require(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.enforce(w, r, object, action, next)
		})
	}
}

func (m *Middleware) enforce(w http.ResponseWriter, r *http.Request, object, action string, next http.Handler) {
	subject := auth.GetAuthSubject(r.Context())
	if subject == nil {
		// Authorize mounted without Authenticate in front of it.
		m.respondDenied(w, "Forbidden")
		return
	}

	start := time.Now()
	allowed, err := m.enforcer.EnforceWithRoles(subject.ID, subject.Roles, object, action)
	RecordAuthzDecision(primaryRole(subject), object, action, allowed, time.Since(start))

	if err != nil {
		logging.Error().Err(err).Str("object", object).Str("action", action).Msg("Authorization check failed")
		m.respondError(w, err)
		return
	}

	if !allowed {
		logging.Warn().
			Str("subject", subject.ID).
			Strs("roles", subject.Roles).
			Str("object", object).
			Str("action", action).
			Msg("Authorization denied")
		if m.auditor != nil {
			m.auditor.RecordAuthzDenial(r.Context(), subject, object, action)
		}
		m.respondDenied(w, "Insufficient permissions")
		return
	}

	next.ServeHTTP(w, r)
}

// methodToAction maps HTTP methods to policy actions.
func methodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return "read"
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return "write"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// primaryRole picks the metric label for a subject: its first role, or
// "none" for a subject with no role grants.
func primaryRole(subject *auth.AuthSubject) string {
	if len(subject.Roles) > 0 {
		return subject.Roles[0]
	}
	return "none"
}

func (m *Middleware) respondDenied(w http.ResponseWriter, message string) {
	writeEnvelope(w, http.StatusForbidden, apperrors.Authorization(apperrors.CodeForbidden, message))
}

func (m *Middleware) respondError(w http.ResponseWriter, err error) {
	writeEnvelope(w, http.StatusInternalServerError,
		apperrors.System(apperrors.CodeSystemError, "Authorization check failed", err))
}

func writeEnvelope(w http.ResponseWriter, status int, appErr *apperrors.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(&models.APIResponse{
		Success:  false,
		Error:    appErr,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	}); err != nil {
		logging.Error().Err(err).Msg("Failed to encode authz error response")
	}
}
