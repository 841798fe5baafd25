// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package audit

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rollcall-attendance/rollcall/internal/logging"
	"github.com/rollcall-attendance/rollcall/internal/metrics"
	"github.com/rollcall-attendance/rollcall/internal/models"
)

// Store is the slice of the database layer the writer appends through.
type Store interface {
	InsertSyncEvent(ctx context.Context, event *models.SyncEvent) error
}

// Writer appends sync events through a gobreaker circuit breaker. The
// transports call Record on every emitted event; a broken or slow store
// trips the breaker and later writes are rejected cheaply instead of
// hammering the database. Failures are logged and counted, never returned:
// the live tick path must not stall because an audit row could not land.
//
// The breaker uses real time for its recovery window. Tests exercise the
// closed and open paths; recovery timing is gobreaker's contract, not ours.
type Writer struct {
	store Store
	cb    *gobreaker.CircuitBreaker[any]
	log   zerolog.Logger
}

// Breaker tuning: open after 5 consecutive write failures, probe again
// after 30 seconds with up to 3 trial writes.
const (
	breakerName             = "audit-writer"
	breakerFailureThreshold = 5
	breakerMaxRequests      = 3
	breakerInterval         = time.Minute
	breakerTimeout          = 30 * time.Second
)

// WriterSettings tunes the write breaker. Zero values keep the package
// defaults.
type WriterSettings struct {
	// FailureThreshold is the number of consecutive write failures that
	// opens the breaker.
	FailureThreshold uint32

	// Cooldown is how long the breaker stays open before trial writes.
	Cooldown time.Duration
}

// NewWriter creates an audit writer over the given store with the default
// breaker tuning.
func NewWriter(store Store) *Writer {
	return NewWriterWith(store, WriterSettings{})
}

// NewWriterWith creates an audit writer with explicit breaker settings.
func NewWriterWith(store Store, settings WriterSettings) *Writer {
	log := logging.WithComponent("audit")

	threshold := settings.FailureThreshold
	if threshold == 0 {
		threshold = breakerFailureThreshold
	}
	cooldown := settings.Cooldown
	if cooldown <= 0 {
		cooldown = breakerTimeout
	}

	metrics.SetAuditBreakerState(stateToFloat(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: breakerMaxRequests,
		Interval:    breakerInterval,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("audit breaker state changed")
			metrics.SetAuditBreakerState(stateToFloat(to))
		},
	})

	return &Writer{store: store, cb: cb, log: log}
}

// Record appends one sync event. It never returns an error: failures and
// breaker rejections are logged and counted so operators see them in
// metrics, while the caller's tick proceeds untouched.
func (w *Writer) Record(ctx context.Context, event *models.SyncEvent) {
	_, err := w.cb.Execute(func() (any, error) {
		return nil, w.store.InsertSyncEvent(ctx, event)
	})
	if err == nil {
		metrics.RecordAuditWrite("success")
		return
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.RecordAuditWrite("rejected")
		w.log.Debug().
			Str("event_type", string(event.EventType)).
			Str("client_id", event.ClientID).
			Msg("audit write rejected, breaker open")
		return
	}

	metrics.RecordAuditWrite("failure")
	w.log.Warn().Err(err).
		Str("event_type", string(event.EventType)).
		Str("client_id", event.ClientID).
		Msg("audit write failed")
}

// State reports the breaker state for health reporting.
func (w *Writer) State() string {
	return stateToString(w.cb.State())
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
