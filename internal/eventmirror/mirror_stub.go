// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

//go:build !nats

package eventmirror

import (
	"context"

	"github.com/rollcall-attendance/rollcall/internal/logging"
	"github.com/rollcall-attendance/rollcall/internal/models"
)

// Mirror is a stub when NATS support is not compiled in.
// Build with -tags=nats to enable sync event mirroring.
type Mirror struct{}

// New is a no-op stub for non-NATS builds. It returns a nil mirror so
// callers skip wiring, and warns when configuration asked for mirroring
// the build cannot provide.
func New(cfg Config) (*Mirror, error) {
	if cfg.Enabled {
		logging.Warn().Msg("NATS_ENABLED=true but NATS support not compiled (build with -tags nats)")
	}
	return nil, nil
}

// Record is a no-op stub.
func (m *Mirror) Record(_ context.Context, _ *models.SyncEvent) {}

// ClientURL returns an empty string for the stub.
func (m *Mirror) ClientURL() string {
	return ""
}

// Close is a no-op stub.
func (m *Mirror) Close() error {
	return nil
}
