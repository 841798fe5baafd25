// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/rollcall-attendance/rollcall/internal/apperrors"
	"github.com/rollcall-attendance/rollcall/internal/audit"
	"github.com/rollcall-attendance/rollcall/internal/auth"
	"github.com/rollcall-attendance/rollcall/internal/models"
	"github.com/rollcall-attendance/rollcall/internal/validation"
)

// loginValidation applies the request rules the shared model leaves
// tagless.
type loginValidation struct {
	Username string `validate:"required,min=1,max=128"`
	Password string `validate:"required,min=1,max=512"`
}

// Login authenticates the operator account and mints a JWT
//
// @Summary Log in with username and password
// @Description Verifies the configured operator credentials, opens a revocable server-side session, and returns a signed JWT. The token is also set as an HTTP-only cookie; with remember_me the cookie persists across browser restarts.
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.APIResponse{data=models.LoginResponse} "Authentication successful"
// @Failure 400 {object} models.APIResponse "Invalid request body"
// @Failure 401 {object} models.APIResponse "Invalid credentials"
// @Failure 403 {object} models.APIResponse "Password login not enabled"
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondAppError(w, r, apperrors.Validation(apperrors.CodeValidationError, "Invalid request body"))
		return
	}
	if verr := validation.ValidateStruct(&loginValidation{Username: req.Username, Password: req.Password}); verr != nil {
		respondAppError(w, r, verr.ToAppError())
		return
	}

	if h.jwtManager == nil || h.basicAuth == nil || h.sessions == nil {
		respondAppError(w, r, apperrors.Authorization(apperrors.CodeForbidden, "Password login is not enabled"))
		return
	}

	if err := h.basicAuth.Verify(req.Username, req.Password); err != nil {
		if h.trail != nil {
			h.trail.LogAuthFailure(r.Context(), req.Username, audit.SourceFromRequest(r), "invalid credentials")
		}
		respondAppError(w, r, apperrors.Authorization(apperrors.CodeUnauthorized, "Invalid username or password"))
		return
	}

	// Verify only passes for the configured operator account, which holds
	// the admin role.
	subject := &auth.AuthSubject{
		ID:         req.Username,
		Username:   req.Username,
		Roles:      []string{models.RoleAdmin},
		Issuer:     "local",
		AuthMethod: auth.AuthModeJWT,
	}

	session := auth.NewSession(subject, h.jwtManager.TokenTimeout())
	if err := h.sessions.Create(r.Context(), session); err != nil {
		respondError(w, r, err)
		return
	}

	token, err := h.jwtManager.GenerateToken(req.Username, models.RoleAdmin, session.ID)
	if err != nil {
		respondAppError(w, r, apperrors.System(apperrors.CodeSystemError, "failed to sign token", err))
		return
	}

	h.setTokenCookie(w, r, token, session.ExpiresAt, req.RememberMe)

	if h.trail != nil {
		h.trail.LogAuthSuccess(r.Context(), audit.ActorFromSubject(subject), audit.SourceFromRequest(r))
	}

	respondData(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		Username:  req.Username,
		Role:      models.RoleAdmin,
		SubjectID: req.Username,
	}, start)
}

// Logout revokes the caller's session
//
// @Summary Log out
// @Description Deletes the caller's server-side session, invalidating the JWT that references it, and expires the token cookie.
// @Tags Auth
// @Produce json
// @Success 200 {object} models.APIResponse "Session revoked"
// @Failure 401 {object} models.APIResponse "Not authenticated"
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	subject := auth.GetAuthSubject(r.Context())
	if subject == nil {
		respondAppError(w, r, apperrors.Authorization(apperrors.CodeUnauthorized, "Authentication required"))
		return
	}

	// A failed delete leaves the token usable, so it is surfaced rather
	// than swallowed. Stateless credentials have no session to revoke.
	if subject.SessionID != "" && h.sessions != nil {
		if err := h.sessions.Delete(r.Context(), subject.SessionID); err != nil {
			respondError(w, r, err)
			return
		}
	}

	h.clearTokenCookie(w, r)

	if h.trail != nil {
		h.trail.LogLogout(r.Context(), audit.ActorFromSubject(subject), audit.SourceFromRequest(r), subject.SessionID)
	}

	respondData(w, http.StatusOK, map[string]interface{}{"logged_out": true}, start)
}

// UserInfo returns the authenticated caller's identity
//
// @Summary Get the caller's identity
// @Description Returns the normalized subject the credential resolved to: ID, username, roles, and auth method.
// @Tags Auth
// @Produce json
// @Success 200 {object} models.APIResponse{data=auth.AuthSubject} "Caller identity"
// @Failure 401 {object} models.APIResponse "Not authenticated"
// @Security BearerAuth
// @Router /auth/userinfo [get]
func (h *Handler) UserInfo(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	subject := auth.GetAuthSubject(r.Context())
	if subject == nil {
		respondAppError(w, r, apperrors.Authorization(apperrors.CodeUnauthorized, "Authentication required"))
		return
	}

	respondData(w, http.StatusOK, subject, start)
}

// setTokenCookie writes the JWT as an HTTP-only cookie. Without remember_me
// the cookie carries no expiry and dies with the browser session; the token
// inside expires either way.
func (h *Handler) setTokenCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time, remember bool) {
	cookie := &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	}
	if remember {
		cookie.Expires = expiresAt
	}
	http.SetCookie(w, cookie)
}

// clearTokenCookie expires the token cookie.
func (h *Handler) clearTokenCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}
