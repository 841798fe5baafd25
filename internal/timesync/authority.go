// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

// Package timesync is the server-side time authority. Every timestamp that
// matters (clock-in, clock-out, sync ticks) is stamped here from the
// server's clock; client clocks are treated as untrusted input whose only
// role is drift measurement. The Authority serves time snapshots and ingests
// client time reports, and the Reconciler folds per-leg drift into the
// synchronized record that backs verification.
package timesync

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/rollcall-attendance/rollcall/internal/apperrors"
	"github.com/rollcall-attendance/rollcall/internal/config"
	"github.com/rollcall-attendance/rollcall/internal/logging"
	"github.com/rollcall-attendance/rollcall/internal/metrics"
	"github.com/rollcall-attendance/rollcall/internal/models"
)

// Store is the slice of the database layer the authority reads and writes.
type Store interface {
	GetSyncSession(ctx context.Context, clientID string) (*models.SyncSession, error)
	GetSyncStats(ctx context.Context, clientID string, window time.Duration) (*models.SyncStats, error)
	UpdateSyncSessionDrift(ctx context.Context, clientID string, driftMs int64, at time.Time) error
	InsertSyncEvent(ctx context.Context, event *models.SyncEvent) error
}

// ServerTimeSnapshot is one authoritative reading of the server clock.
//
// Monotonic is a process-lifetime counter, not a wall-clock value: two
// snapshots with the same Timestamp (millisecond collisions happen under
// load) still order unambiguously by Monotonic. ClientID, Session, and
// Stats are present only on identified snapshots.
type ServerTimeSnapshot struct {
	ServerTime       time.Time           `json:"server_time"`
	Timestamp        int64               `json:"timestamp"`
	Monotonic        uint64              `json:"monotonic"`
	Timezone         string              `json:"timezone"`
	UTCOffsetSeconds int                 `json:"utc_offset_seconds"`
	ClientID         string              `json:"client_id,omitempty"`
	Session          *models.SyncSession `json:"session,omitempty"`
	Stats            *models.SyncStats   `json:"stats,omitempty"`
}

// DriftReport is the authority's response to a client time report: the
// server clock at ingestion and the signed drift the server computed from
// it. Positive drift means the client clock is behind the server.
type DriftReport struct {
	ServerTime      time.Time           `json:"server_time"`
	ServerTimestamp int64               `json:"server_timestamp"`
	DriftMs         int64               `json:"drift_ms"`
	Accuracy        models.SyncAccuracy `json:"accuracy"`
}

// EventSink receives a copy of recorded drift events. Implementations must
// swallow their own failures; the authority treats Record as infallible.
type EventSink interface {
	Record(ctx context.Context, event *models.SyncEvent)
}

// Authority owns the server clock. All snapshots and drift computations go
// through it so the monotonic counter stays coherent across transports.
type Authority struct {
	cfg       *config.TimeSyncConfig
	store     Store
	mirror    EventSink
	monotonic atomic.Uint64
	timeFunc  func() time.Time
	log       zerolog.Logger
}

// New creates a time authority backed by the given store.
func New(cfg *config.TimeSyncConfig, store Store) *Authority {
	return &Authority{
		cfg:      cfg,
		store:    store,
		timeFunc: time.Now,
		log:      logging.WithComponent("timesync"),
	}
}

// SetMirror attaches a sink that receives a copy of every drift
// measurement after it lands in the store. Set during startup wiring,
// before the API begins serving reports.
func (a *Authority) SetMirror(mirror EventSink) {
	a.mirror = mirror
}

// ServerTime returns the current authoritative time. With a non-empty
// clientID the snapshot also carries that client's sync session and its
// trailing drift statistics; store failures on those lookups degrade the
// snapshot (session/stats omitted) rather than failing the time answer,
// since transports tick against this method and a database blip must not
// stop time delivery.
func (a *Authority) ServerTime(ctx context.Context, clientID string) (*ServerTimeSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := a.timeFunc()
	zone, offset := now.Zone()

	snap := &ServerTimeSnapshot{
		ServerTime:       now,
		Timestamp:        now.UnixMilli(),
		Monotonic:        a.monotonic.Add(1),
		Timezone:         zone,
		UTCOffsetSeconds: offset,
	}
	if clientID == "" {
		return snap, nil
	}
	snap.ClientID = clientID

	session, err := a.store.GetSyncSession(ctx, clientID)
	if err != nil {
		a.log.Warn().Err(err).Str("client_id", clientID).
			Msg("sync session lookup failed, serving bare snapshot")
		return snap, nil
	}
	snap.Session = session

	stats, err := a.store.GetSyncStats(ctx, clientID, a.statsWindow())
	if err != nil {
		a.log.Warn().Err(err).Str("client_id", clientID).
			Msg("drift stats aggregation failed, serving snapshot without stats")
		return snap, nil
	}
	snap.Stats = stats

	return snap, nil
}

// ReportClientTime ingests one client clock sample. Drift is computed
// against the client's epoch timestamp, not its parsed wall-clock time, so
// a client in the wrong timezone with a correct clock reports near-zero
// drift. The measurement is persisted as a drift_measurement event and
// rolled into the client's sync session before the report is returned;
// persistence failure fails the report, since an unrecorded measurement
// must not be acknowledged.
func (a *Authority) ReportClientTime(ctx context.Context, clientID string, clientTime time.Time, clientTimestamp int64) (*DriftReport, error) {
	if clientID == "" {
		return nil, apperrors.Validation("CLIENT_ID_REQUIRED", "client_id is required for drift reporting")
	}

	now := a.timeFunc()
	driftMs := now.UnixMilli() - clientTimestamp

	event := &models.SyncEvent{
		ClientID:   clientID,
		EventType:  models.SyncEventDriftMeasurement,
		ServerTime: now,
		ClientTime: &clientTime,
		DriftMs:    &driftMs,
	}
	if err := a.store.InsertSyncEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to record drift measurement: %w", err)
	}
	if a.mirror != nil {
		a.mirror.Record(ctx, event)
	}

	if err := a.store.UpdateSyncSessionDrift(ctx, clientID, driftMs, now); err != nil {
		return nil, fmt.Errorf("failed to update sync session drift: %w", err)
	}

	accuracy := AccuracyForDrift(driftMs)
	metrics.RecordDriftReport(driftMs, string(accuracy))

	a.log.Debug().
		Str("client_id", clientID).
		Int64("drift_ms", driftMs).
		Str("accuracy", string(accuracy)).
		Msg("client drift recorded")

	return &DriftReport{
		ServerTime:      now,
		ServerTimestamp: now.UnixMilli(),
		DriftMs:         driftMs,
		Accuracy:        accuracy,
	}, nil
}

func (a *Authority) statsWindow() time.Duration {
	if a.cfg != nil && a.cfg.StatsWindow > 0 {
		return a.cfg.StatsWindow
	}
	return 5 * time.Minute
}
