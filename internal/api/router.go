// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/rollcall-attendance/rollcall/internal/auth"
	"github.com/rollcall-attendance/rollcall/internal/authz"
	"github.com/rollcall-attendance/rollcall/internal/config"
	"github.com/rollcall-attendance/rollcall/internal/middleware"
)

// Router assembles the chi route tree from the handler and the two
// enforcement middlewares.
type Router struct {
	handler *Handler
	authMW  *auth.Middleware
	authzMW *authz.Middleware
	chiMW   *ChiMiddleware
}

// NewRouter creates the router. The security config drives CORS and the
// rate limit tiers.
func NewRouter(cfg *config.SecurityConfig, handler *Handler, authMW *auth.Middleware, authzMW *authz.Middleware) *Router {
	return &Router{
		handler: handler,
		authMW:  authMW,
		authzMW: authzMW,
		chiMW:   NewChiMiddleware(cfg),
	}
}

// SetupChi builds the route tree.
//
// Three groups with distinct middleware tiers, plus two operational mounts
// outside the response envelope:
//
//	/api/v1/health  permissive rate limit, unauthenticated
//	/api/v1/auth    strict rate limit; login stricter still
//	/api/v1         standard rate limit, request metrics, authn + RBAC
//	/metrics        prometheus text format
//	/swagger/*      API documentation UI
func (rt *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// CORS is global so OPTIONS preflight is answered before route
	// matching can 404 it.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(rt.chiMW.CORS())

	h := rt.handler

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(rt.chiMW.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(rt.chiMW.RateLimitAuth())
		r.Use(APISecurityHeaders())

		r.With(rt.chiMW.RateLimitLogin()).Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(rt.authMW.Authenticate)
			r.Use(rt.authzMW.Authorize)
			r.Post("/logout", h.Logout)
			r.Get("/userinfo", h.UserInfo)
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.chiMW.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Use(rt.authMW.Authenticate)
		r.Use(rt.authzMW.Authorize)

		r.Get("/time", h.ServerTime)
		r.Post("/time/drift", h.ReportDrift)

		r.With(rt.chiMW.RateLimitSync()).Get("/sync/ws", h.SyncStream)
		r.With(rt.chiMW.RateLimitSync()).Get("/sync/poll", h.SyncPoll)

		r.With(rt.chiMW.RateLimitWrite()).Post("/attendance/clock-in", h.ClockIn)
		r.With(rt.chiMW.RateLimitWrite()).Post("/attendance/clock-out", h.ClockOut)
		r.Get("/attendance/status", h.AttendanceStatus)

		// Maintenance surface. The RBAC policy grants these paths to the
		// admin role only.
		r.With(rt.chiMW.RateLimitWrite()).Post("/admin/backup", h.TriggerBackup)
		r.Get("/admin/backups", h.ListBackups)
		r.With(rt.chiMW.RateLimitWrite()).Post("/admin/import", h.TriggerImport)
		r.Get("/admin/import/status", h.ImportStatus)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	return r
}
