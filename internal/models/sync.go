// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

// Package models defines data structures used throughout the Rollcall application.
// These models represent sync sessions, sync events, clock sessions, location
// verifications, roster read models, and API responses.

package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncProtocol identifies the transport a client used to reach the time
// authority. Both protocols write the same SyncSession row, so a client may
// switch between them without losing continuity.
type SyncProtocol string

const (
	// ProtocolPush is the persistent WebSocket stream.
	ProtocolPush SyncProtocol = "push"

	// ProtocolPoll is the bounded long-poll fallback.
	ProtocolPoll SyncProtocol = "poll"
)

// SyncSessionStatus is the liveness state of a client's sync session.
type SyncSessionStatus string

const (
	SyncStatusActive   SyncSessionStatus = "active"
	SyncStatusInactive SyncSessionStatus = "inactive"
)

// SyncEventType classifies a single entry in the append-only sync event log.
type SyncEventType string

const (
	// SyncEventConnection is emitted once when a transport connection opens.
	SyncEventConnection SyncEventType = "connection"

	// SyncEventTimeSync is a periodic server-time tick.
	SyncEventTimeSync SyncEventType = "time_sync"

	// SyncEventHeartbeat confirms liveness without advancing sync state.
	SyncEventHeartbeat SyncEventType = "heartbeat"

	// SyncEventDriftMeasurement records a client-reported time sample and the
	// server-computed drift.
	SyncEventDriftMeasurement SyncEventType = "drift_measurement"
)

// SyncSession represents one client's relationship with the time authority.
//
// Exactly one row exists per client_id; every connect, tick, and drift report
// upserts the same row. The row is flipped inactive on disconnect and never
// deleted, so LastSyncAt and DriftMs always describe the client's most recent
// known state regardless of which transport produced it.
//
// Key fields:
//   - ClientID: Unique client identifier (device or browser instance)
//   - SubjectID: The subject the client is acting for, when known
//   - Protocol: Transport that last touched the row ("push" or "poll")
//   - DriftMs: Most recent signed drift (serverTimestamp - clientTimestamp)
//   - LastSyncAt: Monotonic non-decreasing across writes for one client
type SyncSession struct {
	ClientID    string            `json:"client_id"`
	SubjectID   *string           `json:"subject_id,omitempty"`
	Protocol    SyncProtocol      `json:"protocol"`
	Status      SyncSessionStatus `json:"status"`
	LastSyncAt  time.Time         `json:"last_sync_at"`
	DriftMs     int64             `json:"drift_ms"`
	ConnectedAt time.Time         `json:"connected_at"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// SyncEvent is one entry in the append-only sync audit log. Rows are
// write-once; ClientTime and DriftMs are populated only for
// drift_measurement events.
type SyncEvent struct {
	ID         uuid.UUID      `json:"id"`
	ClientID   string         `json:"client_id"`
	EventType  SyncEventType  `json:"event_type"`
	ServerTime time.Time      `json:"server_time"`
	ClientTime *time.Time     `json:"client_time,omitempty"`
	DriftMs    *int64         `json:"drift_ms,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// SyncAccuracy is the coarse quality tier of a reconciled timestamp,
// a pure function of absolute drift: <100ms high, <500ms medium, else low.
type SyncAccuracy string

const (
	SyncAccuracyHigh   SyncAccuracy = "high"
	SyncAccuracyMedium SyncAccuracy = "medium"
	SyncAccuracyLow    SyncAccuracy = "low"
)

// SyncStats aggregates a client's recent drift history over a trailing
// window (default 5 minutes). Served alongside the server time snapshot so
// clients can judge the quality of their own corrections.
type SyncStats struct {
	RecentEventCount int     `json:"recent_event_count"`
	AverageDriftMs   float64 `json:"average_drift_ms"`
	MaxAbsDriftMs    int64   `json:"max_abs_drift_ms"`
}
