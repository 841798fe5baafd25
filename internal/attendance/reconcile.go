// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rollcall-attendance/rollcall/internal/timesync"
)

type legKind string

const (
	legClockIn  legKind = "clock_in"
	legClockOut legKind = "clock_out"
)

// reconcileLeg computes the leg's drift and hands it to the timesync
// reconciler. Server-measured drift (now minus the raw client clock) wins;
// the client sync engine's own estimate is the fallback when no raw
// timestamp came with the request. Returns nil when neither is available.
//
// Reconciliation failures are logged and swallowed: the clock session is
// already committed, and failing the request here would strand the client
// in a retry loop against ALREADY_CLOCKED_IN. The measured drift still
// rides back in the response.
func (s *Service) reconcileLeg(ctx context.Context, leg legKind, sessionID uuid.UUID, syncedAt time.Time, clientTimestamp int64, fallbackDrift *int64) *SyncData {
	var driftMs int64
	switch {
	case clientTimestamp > 0:
		driftMs = s.timeFunc().UnixMilli() - clientTimestamp
	case fallbackDrift != nil:
		driftMs = *fallbackDrift
	default:
		return nil
	}

	var err error
	if leg == legClockIn {
		err = s.reconciler.ReconcileClockIn(ctx, sessionID, syncedAt, driftMs)
	} else {
		err = s.reconciler.ReconcileClockOut(ctx, sessionID, syncedAt, driftMs)
	}
	if err != nil {
		s.log.Warn().Err(err).
			Str("session_id", sessionID.String()).
			Str("leg", string(leg)).
			Int64("drift_ms", driftMs).
			Msg("Failed to reconcile drift for committed session")
	}

	return &SyncData{
		DriftMs:  driftMs,
		Accuracy: timesync.AccuracyForDrift(driftMs),
	}
}
