// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package roster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rollcall-attendance/rollcall/internal/audit"
	"github.com/rollcall-attendance/rollcall/internal/cache"
	"github.com/rollcall-attendance/rollcall/internal/config"
	"github.com/rollcall-attendance/rollcall/internal/logging"
	"github.com/rollcall-attendance/rollcall/internal/metrics"
	"github.com/rollcall-attendance/rollcall/internal/models"
)

// RosterStore is the database slice the importer writes through.
// Satisfied by *database.DB.
type RosterStore interface {
	UpsertSite(ctx context.Context, s *models.Site) error
	UpsertRotation(ctx context.Context, r *models.Rotation) error
	UpsertSiteAssignment(ctx context.Context, a *models.SiteAssignment) error
}

// Trail receives completed imports for the audit trail.
// Satisfied by *audit.Trail. May be nil.
type Trail interface {
	LogImport(ctx context.Context, actor audit.Actor, source audit.Source, path string, rows map[string]int)
}

// ExportSource is the reader interface, abstracted so importer tests can
// run without a SQLite fixture.
type ExportSource interface {
	Counts(ctx context.Context) (TableCounts, error)
	ReadSites(ctx context.Context, offset, limit int) ([]SiteRecord, error)
	ReadRotations(ctx context.Context, offset, limit int) ([]RotationRecord, error)
	ReadAssignments(ctx context.Context, offset, limit int) ([]AssignmentRecord, error)
	Close() error
}

// Importer mirrors a roster export into the database.
type Importer struct {
	cfg    *config.ImportConfig
	store  RosterStore
	cache  cache.Store
	trail  Trail
	mapper *Mapper

	// open is a constructor seam so tests can substitute a fake source.
	open func(path string) (ExportSource, error)

	mu       sync.RWMutex
	running  bool
	stats    *Stats
	stopChan chan struct{}
}

// NewImporter creates a roster importer. cacheStore and trail may be nil.
func NewImporter(cfg *config.ImportConfig, store RosterStore, cacheStore cache.Store, trail Trail) *Importer {
	return &Importer{
		cfg:    cfg,
		store:  store,
		cache:  cacheStore,
		trail:  trail,
		mapper: NewMapper(),
		open: func(path string) (ExportSource, error) {
			return NewExportReader(path)
		},
		stopChan: make(chan struct{}),
	}
}

// Run imports the configured export as the system actor. Use RunAs when
// the import is triggered by an authenticated administrator.
func (i *Importer) Run(ctx context.Context) (*Stats, error) {
	return i.RunAs(ctx, audit.SystemActor(), audit.Source{})
}

// RunAs performs the import, attributing it to the given actor in the
// audit trail. Tables are processed in dependency order: sites, then
// rotations, then assignments.
func (i *Importer) RunAs(ctx context.Context, actor audit.Actor, source audit.Source) (*Stats, error) {
	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return nil, fmt.Errorf("import already in progress")
	}
	i.running = true
	i.stats = &Stats{
		StartTime: time.Now(),
		DryRun:    i.cfg.DryRun,
	}
	i.mu.Unlock()

	defer func() {
		i.mu.Lock()
		i.running = false
		i.stats.EndTime = time.Now()
		i.mu.Unlock()
	}()

	src, err := i.open(i.cfg.Path)
	if err != nil {
		return i.GetStats(), fmt.Errorf("open export: %w", err)
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Error closing roster export reader")
		}
	}()

	counts, err := src.Counts(ctx)
	if err != nil {
		return i.GetStats(), fmt.Errorf("count rows: %w", err)
	}

	i.mu.Lock()
	i.stats.TotalRows = counts.Total()
	i.mu.Unlock()

	logging.Info().
		Str("path", i.cfg.Path).
		Int64("sites", counts.Sites).
		Int64("rotations", counts.Rotations).
		Int64("assignments", counts.Assignments).
		Bool("dry_run", i.cfg.DryRun).
		Msg("Starting roster import")

	batch := i.cfg.BatchSize
	if batch <= 0 {
		batch = 500
	}

	// Tags to invalidate after import. Deduplicated since a subject
	// typically appears in both rotations and assignments.
	tags := make(map[string]struct{})

	if err := i.importSites(ctx, src, batch, tags); err != nil {
		return i.GetStats(), err
	}
	if err := i.importRotations(ctx, src, batch, tags); err != nil {
		return i.GetStats(), err
	}
	if err := i.importAssignments(ctx, src, batch, tags); err != nil {
		return i.GetStats(), err
	}

	if !i.cfg.DryRun && i.cache != nil {
		for tag := range tags {
			i.cache.DeleteByTag(tag)
		}
		logging.Info().Int("tags", len(tags)).Msg("Invalidated cached attendance state for imported entities")
	}

	stats := i.GetStats()

	// Dry runs change nothing, so they don't belong in the audit trail.
	if !i.cfg.DryRun && i.trail != nil {
		i.trail.LogImport(ctx, actor, source, i.cfg.Path, stats.RowCounts())
	}

	logging.Info().
		Int64("imported", stats.Imported()).
		Int64("skipped", stats.Skipped).
		Int64("errors", stats.Errors).
		Dur("duration", stats.Duration()).
		Msg("Roster import completed")

	return stats, nil
}

func (i *Importer) importSites(ctx context.Context, src ExportSource, batch int, tags map[string]struct{}) error {
	offset := 0
	for {
		if err := i.interrupted(ctx); err != nil {
			return err
		}

		records, err := src.ReadSites(ctx, offset, batch)
		if err != nil {
			return fmt.Errorf("read sites: %w", err)
		}
		if len(records) == 0 {
			return nil
		}

		for _, rec := range records {
			site, err := i.mapper.Site(rec)
			if err != nil {
				i.skip("sites", err)
				continue
			}
			if !i.cfg.DryRun {
				if err := i.store.UpsertSite(ctx, site); err != nil {
					i.fail("sites", site.ID, err)
					continue
				}
			}
			i.imported("sites", func(s *Stats) { s.Sites++ })
			tags["site:"+site.ID] = struct{}{}
		}
		offset += len(records)
	}
}

func (i *Importer) importRotations(ctx context.Context, src ExportSource, batch int, tags map[string]struct{}) error {
	offset := 0
	for {
		if err := i.interrupted(ctx); err != nil {
			return err
		}

		records, err := src.ReadRotations(ctx, offset, batch)
		if err != nil {
			return fmt.Errorf("read rotations: %w", err)
		}
		if len(records) == 0 {
			return nil
		}

		for _, rec := range records {
			rotation, err := i.mapper.Rotation(rec)
			if err != nil {
				i.skip("rotations", err)
				continue
			}
			if !i.cfg.DryRun {
				if err := i.store.UpsertRotation(ctx, rotation); err != nil {
					i.fail("rotations", rotation.ID, err)
					continue
				}
			}
			i.imported("rotations", func(s *Stats) { s.Rotations++ })
			tags["subject:"+rotation.SubjectID] = struct{}{}
		}
		offset += len(records)
	}
}

func (i *Importer) importAssignments(ctx context.Context, src ExportSource, batch int, tags map[string]struct{}) error {
	offset := 0
	for {
		if err := i.interrupted(ctx); err != nil {
			return err
		}

		records, err := src.ReadAssignments(ctx, offset, batch)
		if err != nil {
			return fmt.Errorf("read site_assignments: %w", err)
		}
		if len(records) == 0 {
			return nil
		}

		for _, rec := range records {
			assignment, err := i.mapper.Assignment(rec)
			if err != nil {
				i.skip("site_assignments", err)
				continue
			}
			if !i.cfg.DryRun {
				if err := i.store.UpsertSiteAssignment(ctx, assignment); err != nil {
					i.fail("site_assignments", assignment.ID, err)
					continue
				}
			}
			i.imported("site_assignments", func(s *Stats) { s.Assignments++ })
			tags["subject:"+assignment.SubjectID] = struct{}{}
		}
		offset += len(records)
	}
}

// interrupted reports context cancellation or an explicit Stop.
func (i *Importer) interrupted(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-i.stopChan:
		return fmt.Errorf("import canceled")
	default:
		return nil
	}
}

func (i *Importer) bump(fn func(*Stats)) {
	i.mu.Lock()
	fn(i.stats)
	i.mu.Unlock()
}

func (i *Importer) imported(table string, fn func(*Stats)) {
	i.bump(fn)
	metrics.RecordImport(table, "imported")
}

func (i *Importer) skip(table string, err error) {
	i.bump(func(s *Stats) { s.Skipped++ })
	metrics.RecordImport(table, "skipped")
	logging.Warn().Err(err).Str("table", table).Msg("Skipping invalid roster row")
}

func (i *Importer) fail(table, id string, err error) {
	i.bump(func(s *Stats) { s.Errors++ })
	metrics.RecordImport(table, "failed")
	logging.Error().Err(err).Str("table", table).Str("id", id).Msg("Failed to upsert roster row")
}

// Stop cancels a running import.
func (i *Importer) Stop() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.running {
		return fmt.Errorf("no import in progress")
	}

	close(i.stopChan)
	i.stopChan = make(chan struct{}) // Reset for next import

	return nil
}

// GetStats returns a copy of the current import statistics.
func (i *Importer) GetStats() *Stats {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.stats == nil {
		return &Stats{}
	}

	stats := *i.stats
	return &stats
}

// IsRunning reports whether an import is currently in progress.
func (i *Importer) IsRunning() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.running
}
