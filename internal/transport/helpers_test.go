// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rollcall-attendance/rollcall/internal/config"
	"github.com/rollcall-attendance/rollcall/internal/models"
	"github.com/rollcall-attendance/rollcall/internal/timesync"
)

// fakeTimeSource serves snapshots from the real clock with a local
// monotonic counter, standing in for the time authority.
type fakeTimeSource struct {
	monotonic atomic.Uint64
}

func (f *fakeTimeSource) ServerTime(ctx context.Context, _ string) (*timesync.ServerTimeSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := time.Now()
	zone, offset := now.Zone()
	return &timesync.ServerTimeSnapshot{
		ServerTime:       now,
		Timestamp:        now.UnixMilli(),
		Monotonic:        f.monotonic.Add(1),
		Timezone:         zone,
		UTCOffsetSeconds: offset,
	}, nil
}

// captureAudit collects recorded events; safe for pump goroutines.
type captureAudit struct {
	mu     sync.Mutex
	events []*models.SyncEvent
}

func (c *captureAudit) Record(_ context.Context, event *models.SyncEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureAudit) byType(eventType models.SyncEventType) []*models.SyncEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*models.SyncEvent
	for _, e := range c.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// fakeSessions implements SessionStore and PollStore over an in-memory row.
type fakeSessions struct {
	mu        sync.Mutex
	session   *models.SyncSession
	getErr    error
	upserts   int
	touches   int
	refreshes int
	inactives int
}

func (f *fakeSessions) GetSyncSession(_ context.Context, _ string) (*models.SyncSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.session, nil
}

func (f *fakeSessions) UpsertSyncSession(_ context.Context, session *models.SyncSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	f.session = session
	return nil
}

func (f *fakeSessions) TouchSyncSession(_ context.Context, _ string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touches++
	if f.session != nil && at.After(f.session.LastSyncAt) {
		f.session.LastSyncAt = at
	}
	return nil
}

func (f *fakeSessions) RefreshSyncSessionStatus(_ context.Context, clientID string, protocol models.SyncProtocol) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.session == nil {
		f.session = &models.SyncSession{ClientID: clientID, Protocol: protocol, Status: models.SyncStatusActive}
	} else {
		f.session.Status = models.SyncStatusActive
	}
	return nil
}

func (f *fakeSessions) MarkSyncSessionInactive(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inactives++
	if f.session != nil {
		f.session.Status = models.SyncStatusInactive
	}
	return nil
}

func (f *fakeSessions) counts() (upserts, touches, refreshes, inactives int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts, f.touches, f.refreshes, f.inactives
}

func (f *fakeSessions) sessionSnapshot() *models.SyncSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return nil
	}
	copied := *f.session
	return &copied
}

// fakeReporter records drift samples arriving over the stream.
type fakeReporter struct {
	mu      sync.Mutex
	samples []int64
}

func (f *fakeReporter) ReportClientTime(_ context.Context, _ string, _ time.Time, clientTimestamp int64) (*timesync.DriftReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = append(f.samples, clientTimestamp)
	now := time.Now()
	return &timesync.DriftReport{
		ServerTime:      now,
		ServerTimestamp: now.UnixMilli(),
		DriftMs:         now.UnixMilli() - clientTimestamp,
		Accuracy:        models.SyncAccuracyHigh,
	}, nil
}

func (f *fakeReporter) sampleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.samples)
}

// testConfig returns a config tuned for fast tests.
func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.TimeSync.SyncInterval = 25 * time.Millisecond
	cfg.TimeSync.HeartbeatInterval = 60 * time.Millisecond
	cfg.TimeSync.MinSyncInterval = 50 * time.Millisecond
	cfg.TimeSync.StatsWindow = time.Minute
	cfg.Transport.Push.WriteWait = time.Second
	cfg.Transport.Push.PongWait = 2 * time.Second
	cfg.Transport.Push.MaxMessageSize = 1024
	cfg.Transport.Push.InboundPerSecond = 100
	cfg.Transport.Push.InboundBurst = 100
	cfg.Transport.Poll.MaxWait = time.Second
	return cfg
}

// waitFor polls a condition until it holds or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}
