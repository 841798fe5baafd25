// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package backup

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/rollcall-attendance/rollcall/internal/config"
	"github.com/rollcall-attendance/rollcall/internal/logging"
	"github.com/rollcall-attendance/rollcall/internal/metrics"
)

const (
	// snapshotPrefix names snapshot directories. The timestamp format
	// sorts lexicographically, which prune and List rely on.
	snapshotPrefix = "snapshot-"
	timestampFmt   = "20060102T150405Z"

	metadataFile = "metadata.json"
)

// Database is the slice of the database layer the manager needs.
// Satisfied by *database.DB.
type Database interface {
	Checkpoint(ctx context.Context) error
	ExportTo(ctx context.Context, dir string) error
	GetRecordCounts(ctx context.Context) (clockSessions, syncEvents int64, err error)
}

// Trail receives snapshot outcomes for the audit trail.
// Satisfied by *audit.Trail. May be nil.
type Trail interface {
	LogBackup(ctx context.Context, destination string, sizeBytes int64, backupErr error)
}

// Metadata is written alongside each snapshot as metadata.json.
type Metadata struct {
	CreatedAt     time.Time `json:"created_at"`
	Format        string    `json:"format"`
	ClockSessions int64     `json:"clock_sessions"`
	SyncEvents    int64     `json:"sync_events"`
	SizeBytes     int64     `json:"size_bytes"`
	DurationMs    int64     `json:"duration_ms"`
}

// Snapshot describes one completed snapshot directory.
type Snapshot struct {
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	SizeBytes int64     `json:"size_bytes"`
}

// Manager takes database snapshots on a schedule and on demand.
//
// Snapshots are serialized by a mutex: a manual trigger that lands
// during a scheduled export waits rather than producing two competing
// EXPORT DATABASE statements.
type Manager struct {
	cfg   *config.BackupConfig
	db    Database
	trail Trail

	mu  sync.Mutex
	now func() time.Time // test seam for directory naming
}

// NewManager creates a snapshot manager. trail may be nil.
func NewManager(cfg *config.BackupConfig, db Database, trail Trail) *Manager {
	return &Manager{
		cfg:   cfg,
		db:    db,
		trail: trail,
		now:   time.Now,
	}
}

// Run takes a single snapshot: checkpoint, export, metadata, prune.
// The outcome is recorded in the audit trail either way.
func (m *Manager) Run(ctx context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := m.now().UTC()
	dir := filepath.Join(m.cfg.Dir, snapshotPrefix+start.Format(timestampFmt))

	snap, err := m.export(ctx, dir, start)
	if err != nil {
		metrics.RecordBackup(time.Since(start), 0, err)
		if m.trail != nil {
			m.trail.LogBackup(ctx, dir, 0, err)
		}
		// A half-written directory must not count toward retention or
		// be mistaken for a restorable snapshot.
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			logging.Warn().Err(rmErr).Str("dir", dir).Msg("Failed to remove incomplete snapshot")
		}
		return nil, err
	}

	metrics.RecordBackup(time.Since(start), snap.SizeBytes, nil)
	if m.trail != nil {
		m.trail.LogBackup(ctx, snap.Path, snap.SizeBytes, nil)
	}

	if pruned, err := m.prune(); err != nil {
		logging.Warn().Err(err).Msg("Snapshot retention pruning failed")
	} else if pruned > 0 {
		logging.Info().Int("pruned", pruned).Int("retention", m.cfg.Retention).Msg("Pruned old snapshots")
	}

	return snap, nil
}

func (m *Manager) export(ctx context.Context, dir string, start time.Time) (*Snapshot, error) {
	if err := os.MkdirAll(m.cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create backup dir: %w", err)
	}

	// Fold the WAL into the main file so the export sees settled state.
	if err := m.db.Checkpoint(ctx); err != nil {
		return nil, err
	}

	clockSessions, syncEvents, err := m.db.GetRecordCounts(ctx)
	if err != nil {
		return nil, err
	}

	if err := m.db.ExportTo(ctx, dir); err != nil {
		return nil, err
	}

	size, err := dirSize(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to measure snapshot: %w", err)
	}

	meta := Metadata{
		CreatedAt:     start,
		Format:        "parquet",
		ClockSessions: clockSessions,
		SyncEvents:    syncEvents,
		SizeBytes:     size,
		DurationMs:    time.Since(start).Milliseconds(),
	}
	if err := writeMetadata(filepath.Join(dir, metadataFile), meta); err != nil {
		return nil, err
	}

	logging.Info().
		Str("dir", dir).
		Int64("size_bytes", size).
		Int64("clock_sessions", clockSessions).
		Int64("sync_events", syncEvents).
		Int64("duration_ms", meta.DurationMs).
		Msg("Database snapshot complete")

	return &Snapshot{Path: dir, CreatedAt: start, SizeBytes: size}, nil
}

// Serve implements suture.Service. It snapshots on the configured
// interval until the context is canceled. Export failures propagate so
// the supervisor restarts the scheduler with backoff.
func (m *Manager) Serve(ctx context.Context) error {
	interval := m.cfg.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	logging.Info().
		Dur("interval", interval).
		Int("retention", m.cfg.Retention).
		Str("dir", m.cfg.Dir).
		Msg("Backup scheduler started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Backup scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := m.Run(ctx); err != nil {
				return fmt.Errorf("scheduled snapshot failed: %w", err)
			}
		}
	}
}

// List returns completed snapshots, newest first.
func (m *Manager) List() ([]Snapshot, error) {
	entries, err := snapshotDirs(m.cfg.Dir)
	if err != nil {
		return nil, err
	}

	snaps := make([]Snapshot, 0, len(entries))
	for _, name := range entries {
		dir := filepath.Join(m.cfg.Dir, name)

		var snap Snapshot
		snap.Path = dir

		meta, err := readMetadata(filepath.Join(dir, metadataFile))
		if err != nil {
			// Directory without readable metadata: report it with what
			// the name encodes so operators can see and clean it up.
			if ts, perr := time.Parse(timestampFmt, strings.TrimPrefix(name, snapshotPrefix)); perr == nil {
				snap.CreatedAt = ts
			}
			snaps = append(snaps, snap)
			continue
		}

		snap.CreatedAt = meta.CreatedAt
		snap.SizeBytes = meta.SizeBytes
		snaps = append(snaps, snap)
	}

	// Newest first; names embed UTC timestamps so reverse-lexicographic
	// order is reverse-chronological.
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Path > snaps[j].Path })
	return snaps, nil
}

// prune removes snapshots beyond the retention count, oldest first.
// Retention <= 0 keeps everything.
func (m *Manager) prune() (int, error) {
	if m.cfg.Retention <= 0 {
		return 0, nil
	}

	names, err := snapshotDirs(m.cfg.Dir)
	if err != nil {
		return 0, err
	}
	if len(names) <= m.cfg.Retention {
		return 0, nil
	}

	// Ascending sort puts the oldest snapshots first.
	sort.Strings(names)

	pruned := 0
	for _, name := range names[:len(names)-m.cfg.Retention] {
		dir := filepath.Join(m.cfg.Dir, name)
		if err := os.RemoveAll(dir); err != nil {
			return pruned, fmt.Errorf("failed to prune %s: %w", dir, err)
		}
		pruned++
	}
	return pruned, nil
}

// snapshotDirs lists snapshot directory names (not full paths) in dir.
func snapshotDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), snapshotPrefix) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func dirSize(dir string) (int64, error) {
	var size int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size += info.Size()
		return nil
	})
	return size, err
}

func writeMetadata(path string, meta Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("failed to write snapshot metadata: %w", err)
	}
	return nil
}

func readMetadata(path string) (Metadata, error) {
	var meta Metadata
	data, err := os.ReadFile(path)
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("failed to parse snapshot metadata: %w", err)
	}
	return meta, nil
}
