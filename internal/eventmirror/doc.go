// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

// Package eventmirror publishes a copy of every sync event to NATS
// JetStream so downstream consumers (dashboards, long-term archives,
// compliance exporters) can follow the attendance event log without
// querying the DuckDB system of record.
//
// DuckDB remains authoritative: the tick path writes there first and the
// mirror publishes best-effort afterwards. A broker outage degrades the
// mirror, never the time authority. Publish failures are logged and
// counted in Prometheus but never surfaced to the emitting transport.
//
// # Architecture
//
//	Transports (push/poll)        Time Authority (drift reports)
//	        │                               │
//	        ▼                               ▼
//	  audit writer (DuckDB)          sync_events table
//	        │                               │
//	        └───────────────┬───────────────┘
//	                        ▼
//	                 Mirror.Record
//	                        │
//	                        ▼
//	            NATS JetStream  SYNC_EVENTS
//	         subjects: <prefix>.<event_type>
//	      e.g. rollcall.sync.time_sync
//	           rollcall.sync.drift_measurement
//
// Events are published to one subject per event type under a configurable
// prefix. The stream is provisioned at startup (create or update, so
// retention changes apply across restarts) with file storage, limits-based
// retention, and a two-minute deduplication window keyed on the event UUID.
//
// # Deployment
//
// The package supports an embedded NATS server for single-instance
// deployments (nothing extra to run) or an external broker via URL. NATS
// support is compiled behind the `nats` build tag; without it every
// exported type is a stub and New returns nil, which callers treat as
// "mirroring off".
//
// # Usage
//
//	mirror, err := eventmirror.New(eventmirror.FromConfig(cfg.NATS))
//	if err != nil {
//	    return err
//	}
//	if mirror != nil {
//	    producer.SetMirror(mirror)
//	    authority.SetMirror(mirror)
//	    defer mirror.Close()
//	}
package eventmirror
