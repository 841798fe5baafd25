// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/rollcall-attendance/rollcall/internal/config"
)

// RateLimitConfig defines rate limit parameters for a route group.
type RateLimitConfig struct {
	// Requests is the number of requests allowed in the window.
	Requests int
	// Window is the time window for rate limiting.
	Window time.Duration
}

// Per-group rate limit presets. Limits are keyed by client IP, so clients
// behind one NAT share a bucket; the sync preset leaves headroom for a
// kiosk fleet on a shared school network.
var (
	// RateLimitAuth bounds the authentication group.
	RateLimitAuth = RateLimitConfig{Requests: 30, Window: time.Minute}

	// RateLimitLogin is very strict for credential attempts. Stacked on top
	// of RateLimitAuth for the login route.
	RateLimitLogin = RateLimitConfig{Requests: 5, Window: 5 * time.Minute}

	// RateLimitSync bounds long-poll turnarounds and stream upgrades. A
	// well-behaved poller completes at most a handful of rounds per minute;
	// the rest of the budget absorbs reconnect storms.
	RateLimitSync = RateLimitConfig{Requests: 60, Window: time.Minute}

	// RateLimitWrite bounds clock mutations. A person clocks in and out a
	// few times a day; sustained writes at this rate are a replay loop.
	RateLimitWrite = RateLimitConfig{Requests: 30, Window: time.Minute}

	// RateLimitAPI is the default limit for authenticated endpoints.
	RateLimitAPI = RateLimitConfig{Requests: 100, Window: time.Minute}

	// RateLimitHealth is permissive; orchestrators probe aggressively.
	RateLimitHealth = RateLimitConfig{Requests: 1000, Window: time.Minute}
)

// ChiMiddleware builds the route-group middleware from the security
// configuration: one shared CORS handler and per-group httprate limiters.
type ChiMiddleware struct {
	cors     func(http.Handler) http.Handler
	apiLimit RateLimitConfig
	disabled bool
}

// NewChiMiddleware creates the middleware factory. The default API limit
// can be overridden via RATE_LIMIT_REQS / RATE_LIMIT_WINDOW; the other
// presets are fixed.
func NewChiMiddleware(cfg *config.SecurityConfig) *ChiMiddleware {
	m := &ChiMiddleware{
		apiLimit: RateLimitAPI,
		disabled: cfg.RateLimitDisabled,
	}
	if cfg.RateLimitReqs > 0 && cfg.RateLimitWindow > 0 {
		m.apiLimit = RateLimitConfig{Requests: cfg.RateLimitReqs, Window: cfg.RateLimitWindow}
	}

	m.cors = cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return m
}

// CORS returns the shared go-chi/cors handler. Mounted globally so OPTIONS
// preflight requests are answered before any route group can 404 them.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit returns the default limiter for authenticated API groups.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	return m.RateLimitCustom(m.apiLimit)
}

// RateLimitAuth returns the limiter for the authentication group.
func (m *ChiMiddleware) RateLimitAuth() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitAuth)
}

// RateLimitLogin returns the per-route limiter for credential attempts.
func (m *ChiMiddleware) RateLimitLogin() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitLogin)
}

// RateLimitSync returns the limiter for poll and stream endpoints.
func (m *ChiMiddleware) RateLimitSync() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitSync)
}

// RateLimitWrite returns the limiter for clock-in and clock-out.
func (m *ChiMiddleware) RateLimitWrite() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitWrite)
}

// RateLimitHealth returns the permissive limiter for health probes.
func (m *ChiMiddleware) RateLimitHealth() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitHealth)
}

// RateLimitCustom returns an IP-keyed limiter for the given config, or a
// passthrough when rate limiting is disabled (tests, trusted networks).
func (m *ChiMiddleware) RateLimitCustom(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if m.disabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return httprate.LimitByIP(cfg.Requests, cfg.Window)
}

// APISecurityHeaders sets the standard security response headers. HSTS is
// only meaningful over TLS, so it is gated on the connection (or the
// forwarded proto when a proxy terminates TLS).
func APISecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}
