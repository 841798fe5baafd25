// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

/*
database_utils.go - Database Utility Functions

Context Management:
  - ensureContext(): Creates a context with 30-second timeout if none
    provided, so no database operation can hang indefinitely.

Backup Support:
  - Checkpoint(): Forces a WAL checkpoint for consistent backup state
  - GetDatabasePath(): Returns the database file path for backup operations
  - GetRecordCounts(): Returns row counts for backup verification
  - ExportTo(): Runs EXPORT DATABASE into a snapshot directory (parquet)

Retry Support:
  - withConflictRetry(): Bounded retry loop for DuckDB transaction
    conflicts with exponential backoff (1ms, 2ms, 4ms). INTERNAL errors
    and connection errors are never retried.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ensureContext creates a context with 30-second timeout if none provided.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 30*time.Second)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, 30*time.Second)
	}

	return ctx, func() {}
}

// withConflictRetry runs op, retrying on DuckDB transaction conflicts with
// exponential backoff. The caller must already hold the relevant per-row
// lock; retries here absorb cross-row conflicts only.
func (db *DB) withConflictRetry(ctx context.Context, op func(context.Context) error) error {
	const maxRetries = 3
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return fmt.Errorf("operation timed out or canceled: %w", ctx.Err())
		}

		if isInternalError(err) {
			// INTERNAL errors are DuckDB bugs - fail immediately.
			return fmt.Errorf("FATAL: DuckDB internal error (this should not happen with per-row locking): %w", err)
		}

		if isConnectionError(err) {
			return err
		}

		if isTransactionConflict(err) {
			if attempt < maxRetries-1 {
				backoff := time.Millisecond * time.Duration(1<<uint(attempt)) // 1ms, 2ms, 4ms
				select {
				case <-time.After(backoff):
					continue
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			continue
		}

		// Other errors - don't retry.
		return err
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// Checkpoint forces a WAL checkpoint.
func (db *DB) Checkpoint(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, "CHECKPOINT")
	if err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// GetDatabasePath returns the path to the database file.
func (db *DB) GetDatabasePath() string {
	return db.cfg.Path
}

// GetRecordCounts returns the count of records in the main tables.
func (db *DB) GetRecordCounts(ctx context.Context) (clockSessions int64, syncEvents int64, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	err = db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM clock_sessions").Scan(&clockSessions)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count clock sessions: %w", err)
	}

	err = db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM sync_events").Scan(&syncEvents)
	if err != nil {
		return clockSessions, 0, fmt.Errorf("failed to count sync events: %w", err)
	}

	return clockSessions, syncEvents, nil
}

// ExportTo writes the full database (schema plus data) into dir as parquet
// files via EXPORT DATABASE. EXPORT DATABASE is a utility statement, so the
// target path cannot be bound as a parameter; single quotes are doubled to
// keep the literal well-formed.
func (db *DB) ExportTo(ctx context.Context, dir string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	escaped := strings.ReplaceAll(dir, "'", "''")
	stmt := fmt.Sprintf("EXPORT DATABASE '%s' (FORMAT parquet)", escaped)

	if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("export database to %s failed: %w", dir, err)
	}
	return nil
}
