// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package services

import (
	"context"
)

// SnapshotScheduler interface matches *backup.Manager's Serve method.
type SnapshotScheduler interface {
	Serve(ctx context.Context) error
}

// BackupSchedulerService wraps the periodic snapshot scheduler as a
// supervised service.
//
// The scheduler exports the database on its configured interval and
// prunes old snapshots. A failed export returns from Serve so the
// supervisor restarts the scheduler with backoff rather than silently
// skipping snapshots forever.
//
// Example usage:
//
//	manager := backup.NewManager(cfg, db, trail)
//	svc := services.NewBackupSchedulerService(manager)
//	tree.AddMaintenanceService(svc)
type BackupSchedulerService struct {
	scheduler SnapshotScheduler
	name      string
}

// NewBackupSchedulerService creates a new backup scheduler service wrapper.
func NewBackupSchedulerService(scheduler SnapshotScheduler) *BackupSchedulerService {
	return &BackupSchedulerService{
		scheduler: scheduler,
		name:      "backup-scheduler",
	}
}

// Serve implements suture.Service by delegating to the scheduler loop.
func (b *BackupSchedulerService) Serve(ctx context.Context) error {
	return b.scheduler.Serve(ctx)
}

// String implements fmt.Stringer for logging.
func (b *BackupSchedulerService) String() string {
	return b.name
}
