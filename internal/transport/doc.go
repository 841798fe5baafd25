// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

// Package transport delivers server time to clients over two transports
// that share one event shape and one durable audit trail.
//
// Push is a WebSocket stream: a client connects once and receives a
// connection event, then time_sync events every SyncInterval and heartbeat
// events every HeartbeatInterval until either side disconnects. Poll is the
// fallback for clients that cannot hold a socket: each request waits until
// the client is due for a sync (bounded by the request timeout) and returns
// exactly one event: time_sync when due, heartbeat when the wait expires.
// A poll timeout is a success, never an error.
//
// Both transports write the same sync_sessions row per client, so a client
// may switch transports mid-session without losing drift continuity. Every
// emitted event is recorded through the audit writer's circuit breaker;
// audit failures are counted and logged but never reach the delivery path.
//
// The Registry tracks live push clients and is supervised: its Serve loop
// handles register/unregister traffic and closes every client exactly once
// on shutdown.
package transport
