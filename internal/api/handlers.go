// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rollcall-attendance/rollcall/internal/attendance"
	"github.com/rollcall-attendance/rollcall/internal/audit"
	"github.com/rollcall-attendance/rollcall/internal/auth"
	"github.com/rollcall-attendance/rollcall/internal/config"
	"github.com/rollcall-attendance/rollcall/internal/timesync"
	"github.com/rollcall-attendance/rollcall/internal/transport"
)

// Version reported by the health endpoint and the swagger spec.
const Version = "1.0.0"

// TimeAuthority is the slice of the timesync authority the handlers use.
type TimeAuthority interface {
	ServerTime(ctx context.Context, clientID string) (*timesync.ServerTimeSnapshot, error)
	ReportClientTime(ctx context.Context, clientID string, clientTime time.Time, clientTimestamp int64) (*timesync.DriftReport, error)
}

// AttendanceService is the slice of the clock session service the handlers
// use.
type AttendanceService interface {
	ClockIn(ctx context.Context, req *attendance.ClockInRequest) (*attendance.ClockInResult, error)
	ClockOut(ctx context.Context, req *attendance.ClockOutRequest) (*attendance.ClockOutResult, error)
	Status(ctx context.Context, subjectID string) (*attendance.StatusResult, error)
}

// EventPoller delivers one sync event per bounded long-poll round.
type EventPoller interface {
	Poll(ctx context.Context, req transport.PollRequest) (*transport.SyncEventMessage, error)
}

// StreamUpgrader upgrades HTTP requests into push streams. The push
// transport owns the full websocket lifecycle; the handler only mounts it.
type StreamUpgrader interface {
	HandleStream(w http.ResponseWriter, r *http.Request)
}

// DatabasePinger reports persistence connectivity for the health probes.
// *database.DB satisfies it.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// Handler carries the collaborators behind the HTTP endpoints.
//
// Handler methods are split across files by concern:
//   - handlers.go:            struct, constructor, optional-dep setters
//   - handlers_time.go:       server time and drift reports
//   - handlers_sync.go:       push stream mount and long-poll
//   - handlers_attendance.go: clock-in, clock-out, status
//   - handlers_auth.go:       login, logout, userinfo
//   - handlers_health.go:     liveness, readiness, full health
//   - handlers_admin.go:      backup trigger/list, roster import
type Handler struct {
	cfg        *config.Config
	db         DatabasePinger
	authority  TimeAuthority
	attendance AttendanceService
	push       StreamUpgrader
	poller     EventPoller
	registry   *transport.Registry
	startTime  time.Time

	// Login collaborators, set when the configuration supports password
	// login. Nil otherwise; the login endpoint answers 403.
	jwtManager *auth.JWTManager
	basicAuth  *auth.BasicAuthManager
	sessions   auth.SessionStore

	// trail records auth outcomes. Optional; nil drops the events.
	trail *audit.Trail

	// Maintenance collaborators, set for the features the configuration
	// enables. Endpoints whose collaborator is nil answer 403.
	backups  BackupManager
	importer RosterImporter
}

// NewHandler creates the API handler. db and registry may be nil in tests;
// the health endpoints treat nil as "not connected".
func NewHandler(cfg *config.Config, db DatabasePinger, authority TimeAuthority, service AttendanceService, push StreamUpgrader, poller EventPoller, registry *transport.Registry) *Handler {
	return &Handler{
		cfg:        cfg,
		db:         db,
		authority:  authority,
		attendance: service,
		push:       push,
		poller:     poller,
		registry:   registry,
		startTime:  time.Now(),
	}
}

// SetLoginBackend wires the collaborators the login endpoint mints tokens
// with. Called during startup when the auth mode supports password login;
// without it the endpoint reports login as not enabled.
func (h *Handler) SetLoginBackend(jwtManager *auth.JWTManager, basicAuth *auth.BasicAuthManager, sessions auth.SessionStore) {
	h.jwtManager = jwtManager
	h.basicAuth = basicAuth
	h.sessions = sessions
}

// SetTrail wires the security event trail into the auth handlers.
func (h *Handler) SetTrail(trail *audit.Trail) {
	h.trail = trail
}
