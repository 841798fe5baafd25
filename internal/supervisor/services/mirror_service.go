// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package services

import (
	"context"
	"fmt"
	"time"
)

// MirrorCloser matches *eventmirror.Mirror's teardown method.
//
// The mirror publishes from request goroutines rather than running its
// own loop, so supervision only needs to hold it open for the process
// lifetime and tear it down on shutdown (publisher, connection, and
// embedded broker in order).
type MirrorCloser interface {
	Close() error
}

// EventMirrorService holds the NATS JetStream event mirror open as a
// supervised service.
//
// Example usage:
//
//	mirror, err := eventmirror.New(eventmirror.FromConfig(cfg.NATS))
//	if mirror != nil {
//	    tree.AddMessagingService(services.NewEventMirrorService(mirror, 10*time.Second))
//	}
type EventMirrorService struct {
	mirror       MirrorCloser
	closeTimeout time.Duration
	name         string
}

// NewEventMirrorService creates a new event mirror service wrapper.
func NewEventMirrorService(mirror MirrorCloser, closeTimeout time.Duration) *EventMirrorService {
	if closeTimeout <= 0 {
		closeTimeout = 10 * time.Second
	}
	return &EventMirrorService{
		mirror:       mirror,
		closeTimeout: closeTimeout,
		name:         "event-mirror",
	}
}

// Serve implements suture.Service.
//
// It blocks until the context is canceled, then closes the mirror.
// Close is bounded by closeTimeout so a hung broker cannot stall the
// supervisor's shutdown sequence.
func (e *EventMirrorService) Serve(ctx context.Context) error {
	<-ctx.Done()

	done := make(chan error, 1)
	go func() {
		done <- e.mirror.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("event mirror close failed: %w", err)
		}
	case <-time.After(e.closeTimeout):
		return fmt.Errorf("event mirror close timed out after %s", e.closeTimeout)
	}

	return ctx.Err()
}

// String implements fmt.Stringer for logging.
func (e *EventMirrorService) String() string {
	return e.name
}
