// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rollcall-attendance/rollcall/internal/auth"
	"github.com/rollcall-attendance/rollcall/internal/authz"
	"github.com/rollcall-attendance/rollcall/internal/config"
	"github.com/rollcall-attendance/rollcall/internal/models"
)

// newTestRouter assembles the full route tree with auth in none mode, so
// every request runs as the development admin subject, and rate limiting
// disabled.
func newTestRouter(t *testing.T) (http.Handler, *testDeps) {
	t.Helper()

	h, deps := newTestHandler(t)

	secCfg := &config.SecurityConfig{
		AuthMode:          "none",
		RateLimitDisabled: true,
	}

	authMW, err := auth.NewMiddleware(context.Background(), secCfg, nil)
	if err != nil {
		t.Fatalf("auth.NewMiddleware: %v", err)
	}

	enforcer, err := authz.NewEnforcer(context.Background(), &config.CasbinConfig{
		DefaultRole: models.RoleStudent,
	})
	if err != nil {
		t.Fatalf("authz.NewEnforcer: %v", err)
	}
	t.Cleanup(enforcer.Close)

	return NewRouter(secCfg, h, authMW, authz.NewMiddleware(enforcer)).SetupChi(), deps
}

func TestRouter_Dispatch(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{"health", http.MethodGet, "/api/v1/health", "", http.StatusOK},
		{"liveness", http.MethodGet, "/api/v1/health/live", "", http.StatusOK},
		{"readiness degraded", http.MethodGet, "/api/v1/health/ready", "", http.StatusServiceUnavailable},
		{"server time", http.MethodGet, "/api/v1/time", "", http.StatusOK},
		{"drift report", http.MethodPost, "/api/v1/time/drift", `{"client_id":"kiosk-01","client_timestamp":1772442904250}`, http.StatusOK},
		{"poll", http.MethodGet, "/api/v1/sync/poll?client_id=kiosk-01", "", http.StatusOK},
		{"clock in", http.MethodPost, "/api/v1/attendance/clock-in", `{"subject_id":"stu-1001"}`, http.StatusOK},
		{"clock out", http.MethodPost, "/api/v1/attendance/clock-out", `{"subject_id":"stu-1001"}`, http.StatusOK},
		{"status", http.MethodGet, "/api/v1/attendance/status", "", http.StatusOK},
		{"userinfo", http.MethodGet, "/api/v1/auth/userinfo", "", http.StatusOK},
		{"backup without manager", http.MethodPost, "/api/v1/admin/backup", "", http.StatusForbidden},
		{"import status without importer", http.MethodGet, "/api/v1/admin/import/status", "", http.StatusForbidden},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"unknown route", http.MethodGet, "/api/v1/nope", "", http.StatusNotFound},
		{"wrong method", http.MethodDelete, "/api/v1/time", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.body == "" {
				req = httptest.NewRequest(tt.method, tt.target, nil)
			} else {
				req = httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
				req.Header.Set("Content-Type", "application/json")
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestRouter_HealthSkipsAuth(t *testing.T) {
	// Health must answer before authentication so orchestrator probes work
	// without credentials even in jwt mode.
	h, _ := newTestHandler(t)

	secCfg := &config.SecurityConfig{
		AuthMode:          "jwt",
		JWTSecret:         "0123456789abcdef0123456789abcdef",
		RateLimitDisabled: true,
	}
	authMW, err := auth.NewMiddleware(context.Background(), secCfg, auth.NewMemorySessionStore())
	if err != nil {
		t.Fatalf("auth.NewMiddleware: %v", err)
	}
	enforcer, err := authz.NewEnforcer(context.Background(), &config.CasbinConfig{
		DefaultRole: models.RoleStudent,
	})
	if err != nil {
		t.Fatalf("authz.NewEnforcer: %v", err)
	}
	t.Cleanup(enforcer.Close)
	router := NewRouter(secCfg, h, authMW, authz.NewMiddleware(enforcer)).SetupChi()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200 without credentials", rec.Code)
	}

	// The API group, by contrast, rejects the same anonymous caller.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/time", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("time status = %d, want 401 without credentials", rec.Code)
	}
}

func TestRouter_RequestIDPropagated(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("X-Request-ID header missing from the response")
	}
}

func TestRouter_SecurityHeadersOnAPIGroup(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/time", nil))

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q, want nosniff", got)
	}
}

func TestRouter_PreflightAnswered(t *testing.T) {
	h, _ := newTestHandler(t)

	secCfg := &config.SecurityConfig{
		AuthMode:          "none",
		RateLimitDisabled: true,
		CORSOrigins:       []string{"https://kiosk.example.edu"},
	}
	authMW, err := auth.NewMiddleware(context.Background(), secCfg, nil)
	if err != nil {
		t.Fatalf("auth.NewMiddleware: %v", err)
	}
	enforcer, err := authz.NewEnforcer(context.Background(), &config.CasbinConfig{
		DefaultRole: models.RoleStudent,
	})
	if err != nil {
		t.Fatalf("authz.NewEnforcer: %v", err)
	}
	t.Cleanup(enforcer.Close)
	router := NewRouter(secCfg, h, authMW, authz.NewMiddleware(enforcer)).SetupChi()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/attendance/clock-in", nil)
	req.Header.Set("Origin", "https://kiosk.example.edu")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://kiosk.example.edu" {
		t.Fatalf("preflight Access-Control-Allow-Origin = %q", got)
	}
}
