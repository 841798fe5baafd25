// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

/*
Package services provides suture.Service wrappers for Rollcall components.

This package adapts application components to the suture v4 supervision
model, translating various lifecycle patterns (Start/Close, Run,
ListenAndServe) into suture's context-aware Serve pattern.

# Overview

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

The wrappers handle:
  - Lifecycle translation (Start/Close to Serve pattern)
  - Graceful shutdown via context cancellation
  - Error propagation for supervisor restart decisions
  - Service identification via fmt.Stringer

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts ListenAndServe pattern to Serve
  - Configurable shutdown timeout for draining connections

Push Registry (PushRegistryService):
  - Wraps the WebSocket push registry run loop
  - Closes all connected clients on shutdown
  - The registry's Serve already follows the suture pattern; the
    wrapper only contributes the service name

Backup Scheduler (BackupSchedulerService):
  - Wraps the periodic snapshot scheduler
  - Runs EXPORT DATABASE on the configured interval
  - Prunes old snapshots per the retention policy

Event Mirror (EventMirrorService):
  - Holds the NATS JetStream mirror open for the process lifetime
  - Closes publisher, connection, and embedded server on shutdown
  - The mirror publishes from request goroutines, so Serve only
    waits for cancellation and then tears the mirror down

# Error Handling

Return values determine supervisor behavior:

	nil         -> Service stopped cleanly, will not restart
	error       -> Service crashed, supervisor will restart
	ctx.Err()   -> Shutdown requested, normal termination

# Service Identification

All services implement fmt.Stringer for logging. Suture uses this for
log messages:

	INFO http-server: starting
	INFO push-registry: stopped
	ERROR backup-scheduler: restarting after failure

# See Also

  - internal/supervisor: SupervisorTree that manages these services
  - github.com/thejerf/suture/v4: Underlying supervision library
  - internal/transport: Push registry implementation
  - internal/backup: Snapshot manager implementation
*/
package services
