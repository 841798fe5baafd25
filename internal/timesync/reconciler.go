// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package timesync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rollcall-attendance/rollcall/internal/logging"
	"github.com/rollcall-attendance/rollcall/internal/models"
)

// RecordStore is the slice of the database layer the reconciler writes
// through.
type RecordStore interface {
	RecordClockInSync(ctx context.Context, sessionID uuid.UUID, syncedAt time.Time, driftMs int64, accuracy models.SyncAccuracy) error
	RecordClockOutSync(ctx context.Context, sessionID uuid.UUID, syncedAt time.Time, driftMs int64, accuracy models.SyncAccuracy) error
}

// Reconciler folds clock-in and clock-out legs into a session's
// synchronized record. The legs are independent: each may arrive over a
// different transport and in either order, and the record flips to
// verified only once both are present.
type Reconciler struct {
	store RecordStore
	log   zerolog.Logger
}

// NewReconciler creates a reconciler writing through the given store.
func NewReconciler(store RecordStore) *Reconciler {
	return &Reconciler{
		store: store,
		log:   logging.WithComponent("timesync"),
	}
}

// ReconcileClockIn records the clock-in leg for a session.
func (r *Reconciler) ReconcileClockIn(ctx context.Context, sessionID uuid.UUID, syncedAt time.Time, driftMs int64) error {
	accuracy := AccuracyForDrift(driftMs)
	if err := r.store.RecordClockInSync(ctx, sessionID, syncedAt, driftMs, accuracy); err != nil {
		return fmt.Errorf("failed to reconcile clock-in for session %s: %w", sessionID, err)
	}

	r.log.Debug().
		Str("session_id", sessionID.String()).
		Int64("drift_ms", driftMs).
		Str("accuracy", string(accuracy)).
		Msg("clock-in leg reconciled")
	return nil
}

// ReconcileClockOut records the clock-out leg for a session.
func (r *Reconciler) ReconcileClockOut(ctx context.Context, sessionID uuid.UUID, syncedAt time.Time, driftMs int64) error {
	accuracy := AccuracyForDrift(driftMs)
	if err := r.store.RecordClockOutSync(ctx, sessionID, syncedAt, driftMs, accuracy); err != nil {
		return fmt.Errorf("failed to reconcile clock-out for session %s: %w", sessionID, err)
	}

	r.log.Debug().
		Str("session_id", sessionID.String()).
		Int64("drift_ms", driftMs).
		Str("accuracy", string(accuracy)).
		Msg("clock-out leg reconciled")
	return nil
}
