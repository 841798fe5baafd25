// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rollcall-attendance/rollcall/internal/config"
)

// fakeDB simulates the database layer. ExportTo writes a placeholder
// parquet file so snapshots have measurable content.
type fakeDB struct {
	mu            sync.Mutex
	checkpoints   int
	exports       int
	exportErr     error
	checkpointErr error
}

func (f *fakeDB) Checkpoint(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkpoints++
	return f.checkpointErr
}

func (f *fakeDB) ExportTo(_ context.Context, dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exports++
	if f.exportErr != nil {
		return f.exportErr
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "clock_sessions.parquet"), []byte("PAR1 fake contents"), 0o640)
}

func (f *fakeDB) GetRecordCounts(_ context.Context) (int64, int64, error) {
	return 42, 137, nil
}

func (f *fakeDB) exportCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exports
}

// fakeTrail records LogBackup invocations.
type fakeTrail struct {
	mu       sync.Mutex
	outcomes []error
	dests    []string
}

func (f *fakeTrail) LogBackup(_ context.Context, destination string, _ int64, backupErr error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, backupErr)
	f.dests = append(f.dests, destination)
}

func (f *fakeTrail) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.outcomes)
}

func newTestManager(t *testing.T, db *fakeDB, trail Trail, retention int) *Manager {
	t.Helper()
	cfg := &config.BackupConfig{
		Enabled:   true,
		Dir:       t.TempDir(),
		Interval:  time.Hour,
		Retention: retention,
	}
	return NewManager(cfg, db, trail)
}

func TestManagerRun(t *testing.T) {
	t.Run("creates snapshot with metadata", func(t *testing.T) {
		db := &fakeDB{}
		trail := &fakeTrail{}
		m := newTestManager(t, db, trail, 7)

		snap, err := m.Run(context.Background())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		if snap.SizeBytes <= 0 {
			t.Errorf("expected positive snapshot size, got %d", snap.SizeBytes)
		}

		meta, err := readMetadata(filepath.Join(snap.Path, metadataFile))
		if err != nil {
			t.Fatalf("metadata not written: %v", err)
		}
		if meta.Format != "parquet" {
			t.Errorf("expected parquet format, got %s", meta.Format)
		}
		if meta.ClockSessions != 42 || meta.SyncEvents != 137 {
			t.Errorf("record counts not captured: %+v", meta)
		}

		if db.checkpoints != 1 {
			t.Errorf("expected 1 checkpoint before export, got %d", db.checkpoints)
		}
		if trail.count() != 1 || trail.outcomes[0] != nil {
			t.Errorf("expected one successful trail entry, got %+v", trail.outcomes)
		}
	})

	t.Run("removes incomplete snapshot on export failure", func(t *testing.T) {
		db := &fakeDB{exportErr: errors.New("disk full")}
		trail := &fakeTrail{}
		m := newTestManager(t, db, trail, 7)

		if _, err := m.Run(context.Background()); err == nil {
			t.Fatal("expected error, got nil")
		}

		snaps, err := m.List()
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(snaps) != 0 {
			t.Errorf("incomplete snapshot left behind: %+v", snaps)
		}

		if trail.count() != 1 || trail.outcomes[0] == nil {
			t.Errorf("failure not recorded in trail: %+v", trail.outcomes)
		}
	})

	t.Run("checkpoint failure aborts before export", func(t *testing.T) {
		db := &fakeDB{checkpointErr: errors.New("checkpoint blocked")}
		m := newTestManager(t, db, nil, 7)

		if _, err := m.Run(context.Background()); err == nil {
			t.Fatal("expected error, got nil")
		}
		if db.exportCount() != 0 {
			t.Errorf("export ran despite failed checkpoint")
		}
	})

	t.Run("works without a trail", func(t *testing.T) {
		m := newTestManager(t, &fakeDB{}, nil, 7)
		if _, err := m.Run(context.Background()); err != nil {
			t.Fatalf("Run failed with nil trail: %v", err)
		}
	})
}

func TestManagerRetention(t *testing.T) {
	db := &fakeDB{}
	m := newTestManager(t, db, nil, 2)

	// Take snapshots at distinct timestamps so directory names differ.
	base := time.Date(2026, 1, 10, 3, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		offset := time.Duration(i) * time.Hour
		m.now = func() time.Time { return base.Add(offset) }
		if _, err := m.Run(context.Background()); err != nil {
			t.Fatalf("snapshot %d failed: %v", i, err)
		}
	}

	snaps, err := m.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected retention to keep 2 snapshots, got %d", len(snaps))
	}

	// Newest first: 06:00 then 05:00.
	want0 := snapshotPrefix + base.Add(3*time.Hour).Format(timestampFmt)
	if filepath.Base(snaps[0].Path) != want0 {
		t.Errorf("expected newest snapshot %s first, got %s", want0, filepath.Base(snaps[0].Path))
	}
}

func TestManagerList(t *testing.T) {
	t.Run("empty directory", func(t *testing.T) {
		m := newTestManager(t, &fakeDB{}, nil, 7)
		snaps, err := m.List()
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(snaps) != 0 {
			t.Errorf("expected no snapshots, got %d", len(snaps))
		}
	})

	t.Run("missing backup dir is not an error", func(t *testing.T) {
		m := NewManager(&config.BackupConfig{Dir: "/nonexistent/backups"}, &fakeDB{}, nil)
		snaps, err := m.List()
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(snaps) != 0 {
			t.Errorf("expected no snapshots, got %d", len(snaps))
		}
	})

	t.Run("tolerates snapshot without metadata", func(t *testing.T) {
		m := newTestManager(t, &fakeDB{}, nil, 7)

		dir := filepath.Join(m.cfg.Dir, snapshotPrefix+"20260110T030000Z")
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatal(err)
		}

		snaps, err := m.List()
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(snaps) != 1 {
			t.Fatalf("expected 1 snapshot, got %d", len(snaps))
		}
		if snaps[0].CreatedAt.IsZero() {
			t.Error("timestamp not recovered from directory name")
		}
	})
}

func TestManagerServe(t *testing.T) {
	t.Run("snapshots on interval until canceled", func(t *testing.T) {
		db := &fakeDB{}
		trail := &fakeTrail{}
		m := newTestManager(t, db, trail, 7)
		m.cfg.Interval = 20 * time.Millisecond

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- m.Serve(ctx) }()

		var ticked bool
		for i := 0; i < 50; i++ {
			time.Sleep(10 * time.Millisecond)
			if trail.count() >= 1 {
				ticked = true
				break
			}
		}
		cancel()

		if !ticked {
			t.Error("scheduler never took a snapshot")
		}

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not stop after cancellation")
		}
	})

	t.Run("export failure stops the loop for supervised restart", func(t *testing.T) {
		db := &fakeDB{exportErr: errors.New("disk full")}
		m := newTestManager(t, db, nil, 7)
		m.cfg.Interval = 10 * time.Millisecond

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		err := m.Serve(ctx)
		if err == nil || errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected export failure to propagate, got %v", err)
		}
	})
}
