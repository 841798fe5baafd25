// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package audit

import (
	"context"
	"errors"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rollcall-attendance/rollcall/internal/models"
)

type fakeEventStore struct {
	err    error
	events []*models.SyncEvent
	calls  int
}

func (f *fakeEventStore) InsertSyncEvent(_ context.Context, event *models.SyncEvent) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func testEvent(eventType models.SyncEventType) *models.SyncEvent {
	return &models.SyncEvent{ClientID: "client-1", EventType: eventType}
}

func TestRecord_PersistsEvent(t *testing.T) {
	store := &fakeEventStore{}
	w := NewWriter(store)

	w.Record(context.Background(), testEvent(models.SyncEventTimeSync))

	if len(store.events) != 1 {
		t.Fatalf("stored %d events, want 1", len(store.events))
	}
	if store.events[0].EventType != models.SyncEventTimeSync {
		t.Errorf("event type = %q, want time_sync", store.events[0].EventType)
	}
	if w.State() != "closed" {
		t.Errorf("breaker state = %q, want closed", w.State())
	}
}

func TestRecord_FailureIsSwallowed(t *testing.T) {
	store := &fakeEventStore{err: errors.New("disk full")}
	w := NewWriter(store)

	// Must not panic or propagate; the tick path depends on that.
	w.Record(context.Background(), testEvent(models.SyncEventHeartbeat))

	if store.calls != 1 {
		t.Fatalf("store called %d times, want 1", store.calls)
	}

	// A recovered store keeps working while the breaker is still closed.
	store.err = nil
	w.Record(context.Background(), testEvent(models.SyncEventHeartbeat))
	if len(store.events) != 1 {
		t.Errorf("stored %d events after recovery, want 1", len(store.events))
	}
}

func TestRecord_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	store := &fakeEventStore{err: errors.New("db locked")}
	w := NewWriter(store)

	for i := 0; i < breakerFailureThreshold; i++ {
		w.Record(context.Background(), testEvent(models.SyncEventTimeSync))
	}

	if w.State() != "open" {
		t.Fatalf("breaker state = %q after %d failures, want open", w.State(), breakerFailureThreshold)
	}

	// Open breaker rejects without touching the store.
	before := store.calls
	w.Record(context.Background(), testEvent(models.SyncEventTimeSync))
	if store.calls != before {
		t.Errorf("store called %d times after open, want %d", store.calls, before)
	}
}

func TestRecord_CustomFailureThreshold(t *testing.T) {
	store := &fakeEventStore{err: errors.New("db locked")}
	w := NewWriterWith(store, WriterSettings{FailureThreshold: 2})

	w.Record(context.Background(), testEvent(models.SyncEventTimeSync))
	if w.State() != "closed" {
		t.Fatalf("breaker state = %q after 1 failure, want closed", w.State())
	}

	w.Record(context.Background(), testEvent(models.SyncEventTimeSync))
	if w.State() != "open" {
		t.Fatalf("breaker state = %q after 2 failures, want open", w.State())
	}
}

func TestStateHelpers(t *testing.T) {
	tests := []struct {
		state     gobreaker.State
		wantFloat float64
		wantStr   string
	}{
		{gobreaker.StateClosed, 0, "closed"},
		{gobreaker.StateHalfOpen, 1, "half-open"},
		{gobreaker.StateOpen, 2, "open"},
	}

	for _, tt := range tests {
		if got := stateToFloat(tt.state); got != tt.wantFloat {
			t.Errorf("stateToFloat(%v) = %v, want %v", tt.state, got, tt.wantFloat)
		}
		if got := stateToString(tt.state); got != tt.wantStr {
			t.Errorf("stateToString(%v) = %q, want %q", tt.state, got, tt.wantStr)
		}
	}
}
