// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package database

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rollcall-attendance/rollcall/internal/config"
)

// testDBSemaphore limits concurrent database creation to prevent resource
// exhaustion in CI. Concurrent DuckDB CGO calls from parallel tests can hang
// under resource pressure, so database access is fully serialized: the
// semaphore is held for the ENTIRE test lifecycle (released via t.Cleanup),
// not just during creation.
var testDBSemaphore = make(chan struct{}, 1)

// testDBMutex serializes the New() call itself.
var testDBMutex sync.Mutex

// setupTestDB creates an in-memory test database with timeout protection.
// Creation runs in a goroutine so a hung CGO call fails the test after 120s
// instead of stalling the whole package run.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	return setupTestDBWithConfig(t, &config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "1GB",
	})
}

// setupConcurrentTestDB creates a test database sized for tests that run
// many goroutines against it. Index creation is skipped for fast setup.
func setupConcurrentTestDB(t *testing.T) *DB {
	t.Helper()
	return setupTestDBWithConfig(t, &config.DatabaseConfig{
		Path:        ":memory:",
		MaxMemory:   "2GB",
		SkipIndexes: true,
	})
}

func setupTestDBWithConfig(t *testing.T, cfg *config.DatabaseConfig) *DB {
	t.Helper()

	// Acquire semaphore; released when the test COMPLETES so only one test
	// has an active DuckDB connection at any time.
	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	type result struct {
		db  *DB
		err error
	}

	resultCh := make(chan result, 1)
	go func() {
		testDBMutex.Lock()
		db, err := New(cfg)
		testDBMutex.Unlock()
		resultCh <- result{db: db, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			t.Fatalf("Failed to create test database: %v", res.err)
		}
		return res.db
	case <-time.After(120 * time.Second):
		t.Fatalf("Timeout: database creation took longer than 120s (DuckDB may be under resource pressure)")
		return nil
	}
}

func TestNew_InMemory(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if db.Conn() == nil {
		t.Fatal("expected live connection")
	}
	checkNoError(t, db.Ping(context.Background()))
}

func TestNew_FileDatabase(t *testing.T) {
	// File-backed databases create parent directories and persist to disk.
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "rollcall.db")

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	testDBMutex.Lock()
	db, err := New(&config.DatabaseConfig{Path: path, MaxMemory: "1GB"})
	testDBMutex.Unlock()
	checkNoError(t, err)
	defer db.Close()

	checkStringEqual(t, "database path", db.GetDatabasePath(), path)
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected database file at %s: %v", path, err)
	}
}

func TestGetRecordCounts_EmptyDatabase(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	clockSessions, syncEvents, err := db.GetRecordCounts(context.Background())
	checkNoError(t, err)
	checkInt64Equal(t, "clock session count", clockSessions, 0)
	checkInt64Equal(t, "sync event count", syncEvents, 0)
}

func TestCheckpoint(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	checkNoError(t, db.Checkpoint(context.Background()))
}

func TestSchemaVersion_FreshDatabase(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	version, err := db.GetCurrentSchemaVersion()
	checkNoError(t, err)
	checkIntEqual(t, "schema version", version, 0)

	history, err := db.GetMigrationHistory()
	checkNoError(t, err)
	checkSliceLen(t, "migration history", len(history), 0)
}

func TestCreateIndexes_Deferred(t *testing.T) {
	db := setupConcurrentTestDB(t)
	defer db.Close()

	// SkipIndexes deferred creation; explicit CreateIndexes must succeed
	// and be idempotent.
	checkNoError(t, db.CreateIndexes())
	checkNoError(t, db.CreateIndexes())
}

func TestSeedDemoData_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	checkNoError(t, db.SeedDemoData(ctx))

	sites, err := db.ListSites(ctx)
	checkNoError(t, err)
	firstCount := len(sites)
	if firstCount == 0 {
		t.Fatal("expected seeded sites")
	}

	// Re-seeding must refresh rows, not duplicate them.
	checkNoError(t, db.SeedDemoData(ctx))
	sites, err = db.ListSites(ctx)
	checkNoError(t, err)
	checkSliceLen(t, "sites after reseed", len(sites), firstCount)
}
