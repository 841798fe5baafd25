// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rollcall-attendance/rollcall/internal/logging"
	"github.com/rollcall-attendance/rollcall/internal/metrics"
	"github.com/rollcall-attendance/rollcall/internal/models"
	"github.com/rollcall-attendance/rollcall/internal/timesync"
)

// Message types on the wire. The first three are audited sync events; ping
// and pong are connection chatter and never reach the event log.
const (
	MessageTypeConnection = "connection"
	MessageTypeTimeSync   = "time_sync"
	MessageTypeHeartbeat  = "heartbeat"
	MessageTypePing       = "ping"
	MessageTypePong       = "pong"
	MessageTypeClientTime = "client_time"
)

// Transport labels for metrics and audit metadata.
const (
	transportPush = "push"
	transportPoll = "poll"
)

// SyncEventMessage is the single event shape both transports deliver.
// ServerTime carries the full-precision RFC3339Nano rendering; Timestamp is
// the same instant in unix milliseconds for clients that avoid parsing.
type SyncEventMessage struct {
	Type       string `json:"type"`
	Timestamp  int64  `json:"timestamp"`
	ServerTime string `json:"server_time"`
	ClientID   string `json:"client_id"`
}

// TimeSource serves authoritative time snapshots.
type TimeSource interface {
	ServerTime(ctx context.Context, clientID string) (*timesync.ServerTimeSnapshot, error)
}

// AuditSink durably records emitted events. Implementations must swallow
// their own failures; the producer treats Record as infallible.
type AuditSink interface {
	Record(ctx context.Context, event *models.SyncEvent)
}

// Producer builds sync event messages from authority snapshots and records
// each emission in the audit log. Both transports emit through it so the
// wire shape and the audit trail cannot drift apart.
type Producer struct {
	source TimeSource
	audit  AuditSink
	mirror AuditSink
	log    zerolog.Logger
}

// NewProducer creates a producer over the given time source and audit sink.
// The sink may be nil when durable event logging is disabled; emissions then
// reach only the metrics counters and any configured mirror.
func NewProducer(source TimeSource, audit AuditSink) *Producer {
	return &Producer{
		source: source,
		audit:  audit,
		log:    logging.WithComponent("transport"),
	}
}

// SetMirror attaches a second sink that receives a copy of every emitted
// event after the audit write. Mirrors share the AuditSink contract, so a
// failing mirror cannot slow or fail a tick. Set during startup wiring,
// before the transports begin emitting.
func (p *Producer) SetMirror(mirror AuditSink) {
	p.mirror = mirror
}

// Emit builds one sync event message stamped with fresh server time,
// records it as a sync_events row, and counts it. The snapshot is taken
// anonymously: per-tick emissions must not pay for session and stats
// lookups. Returns an error only when the context is done.
func (p *Producer) Emit(ctx context.Context, eventType models.SyncEventType, clientID, transport string) (*SyncEventMessage, error) {
	snap, err := p.source.ServerTime(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to take time snapshot: %w", err)
	}

	msg := &SyncEventMessage{
		Type:       string(eventType),
		Timestamp:  snap.Timestamp,
		ServerTime: snap.ServerTime.Format(time.RFC3339Nano),
		ClientID:   clientID,
	}

	event := &models.SyncEvent{
		ClientID:   clientID,
		EventType:  eventType,
		ServerTime: snap.ServerTime,
		Metadata:   map[string]any{"transport": transport},
	}
	if p.audit != nil {
		p.audit.Record(ctx, event)
	}
	if p.mirror != nil {
		p.mirror.Record(ctx, event)
	}
	metrics.RecordSyncEvent(string(eventType), transport)

	return msg, nil
}
