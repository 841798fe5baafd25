// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

/*
database_cache.go - Prepared Statements and Per-Row Write Locks

Prepared Statement Cache:
  - Caches compiled SQL statements for reuse
  - Uses double-checked locking for thread-safe access
  - Statements are closed when DB.Close() is called

Per-Row Locking:
DuckDB uses optimistic concurrency: two transactions updating the same row
abort one of them. Serializing writers of the same logical row up front is
cheaper than aborting and retrying, so:
  - acquireClientLock serializes sync_sessions upserts per client_id
  - acquireSubjectLock serializes clock-in check-and-insert per subject_id

Locks live in sync.Maps so writers of different rows never contend.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// getOrPrepareStmt returns a cached prepared statement, compiling it on
// first use. Double-checked locking keeps the common path on the read lock.
func (db *DB) getOrPrepareStmt(ctx context.Context, query string) (*sql.Stmt, error) {
	db.stmtCacheMu.RLock()
	stmt, ok := db.stmtCache[query]
	db.stmtCacheMu.RUnlock()
	if ok {
		return stmt, nil
	}

	db.stmtCacheMu.Lock()
	defer db.stmtCacheMu.Unlock()

	if stmt, ok := db.stmtCache[query]; ok {
		return stmt, nil
	}

	stmt, err := db.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	db.stmtCache[query] = stmt
	return stmt, nil
}

// acquireClientLock acquires the per-client mutex for sync session writes.
func (db *DB) acquireClientLock(clientID string) *sync.Mutex {
	muInterface, _ := db.clientLocks.LoadOrStore(clientID, &sync.Mutex{})
	mu, ok := muInterface.(*sync.Mutex)
	if !ok {
		mu = &sync.Mutex{}
		db.clientLocks.Store(clientID, mu)
	}
	mu.Lock()
	return mu
}

// releaseClientLock releases the per-client mutex.
func (db *DB) releaseClientLock(_ string, mu *sync.Mutex) {
	mu.Unlock()
}

// acquireSubjectLock acquires the per-subject mutex for clock session writes.
func (db *DB) acquireSubjectLock(subjectID string) *sync.Mutex {
	muInterface, _ := db.subjectLocks.LoadOrStore(subjectID, &sync.Mutex{})
	mu, ok := muInterface.(*sync.Mutex)
	if !ok {
		mu = &sync.Mutex{}
		db.subjectLocks.Store(subjectID, mu)
	}
	mu.Lock()
	return mu
}

// releaseSubjectLock releases the per-subject mutex.
func (db *DB) releaseSubjectLock(_ string, mu *sync.Mutex) {
	mu.Unlock()
}
