// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

//go:build nats

package eventmirror

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// mockJetStream implements jetStreamManager without a broker. ensureStream
// never touches the returned stream handle, so the mock hands back nil ones.
type mockJetStream struct {
	existing    map[string]bool
	streamErr   error
	createErr   error
	updateErr   error
	createCalls int
	updateCalls int
	lastConfig  jetstream.StreamConfig
}

func newMockJetStream() *mockJetStream {
	return &mockJetStream{existing: make(map[string]bool)}
}

func (m *mockJetStream) Stream(_ context.Context, name string) (jetstream.Stream, error) {
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	if m.existing[name] {
		return nil, nil
	}
	return nil, jetstream.ErrStreamNotFound
}

func (m *mockJetStream) CreateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	m.createCalls++
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.existing[cfg.Name] = true
	m.lastConfig = cfg
	return nil, nil
}

func (m *mockJetStream) UpdateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	m.updateCalls++
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	m.lastConfig = cfg
	return nil, nil
}

func testStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            "SYNC_EVENTS",
		Subjects:        []string{"rollcall.sync.>"},
		MaxAge:          7 * 24 * time.Hour,
		MaxBytes:        2 << 30,
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

func TestEnsureStreamCreatesNew(t *testing.T) {
	js := newMockJetStream()
	cfg := testStreamConfig()

	if err := ensureStream(context.Background(), js, cfg); err != nil {
		t.Fatalf("ensureStream() error = %v", err)
	}

	if js.createCalls != 1 {
		t.Errorf("CreateStream calls = %d, want 1", js.createCalls)
	}
	if js.updateCalls != 0 {
		t.Errorf("UpdateStream calls = %d, want 0", js.updateCalls)
	}

	got := js.lastConfig
	if got.Name != cfg.Name {
		t.Errorf("Name = %q, want %q", got.Name, cfg.Name)
	}
	if len(got.Subjects) != 1 || got.Subjects[0] != "rollcall.sync.>" {
		t.Errorf("Subjects = %v, want [rollcall.sync.>]", got.Subjects)
	}
	if got.Retention != jetstream.LimitsPolicy {
		t.Errorf("Retention = %v, want LimitsPolicy", got.Retention)
	}
	if got.Storage != jetstream.FileStorage {
		t.Errorf("Storage = %v, want FileStorage", got.Storage)
	}
	if got.Discard != jetstream.DiscardOld {
		t.Errorf("Discard = %v, want DiscardOld", got.Discard)
	}
	if !got.AllowDirect {
		t.Error("AllowDirect = false, want true")
	}
	if got.MaxAge != cfg.MaxAge {
		t.Errorf("MaxAge = %v, want %v", got.MaxAge, cfg.MaxAge)
	}
	if got.Duplicates != cfg.DuplicateWindow {
		t.Errorf("Duplicates = %v, want %v", got.Duplicates, cfg.DuplicateWindow)
	}
	if got.MaxBytes != cfg.MaxBytes {
		t.Errorf("MaxBytes = %d, want %d", got.MaxBytes, cfg.MaxBytes)
	}
}

func TestEnsureStreamUpdatesExisting(t *testing.T) {
	js := newMockJetStream()
	cfg := testStreamConfig()
	js.existing[cfg.Name] = true

	if err := ensureStream(context.Background(), js, cfg); err != nil {
		t.Fatalf("ensureStream() error = %v", err)
	}

	if js.createCalls != 0 {
		t.Errorf("CreateStream calls = %d, want 0", js.createCalls)
	}
	if js.updateCalls != 1 {
		t.Errorf("UpdateStream calls = %d, want 1", js.updateCalls)
	}
}

func TestEnsureStreamIdempotent(t *testing.T) {
	js := newMockJetStream()
	cfg := testStreamConfig()

	for i := 0; i < 3; i++ {
		if err := ensureStream(context.Background(), js, cfg); err != nil {
			t.Fatalf("ensureStream() call %d error = %v", i+1, err)
		}
	}

	if js.createCalls != 1 {
		t.Errorf("CreateStream calls = %d, want 1", js.createCalls)
	}
	if js.updateCalls != 2 {
		t.Errorf("UpdateStream calls = %d, want 2", js.updateCalls)
	}
}

func TestEnsureStreamCreateError(t *testing.T) {
	js := newMockJetStream()
	js.createErr = errors.New("insufficient storage")

	err := ensureStream(context.Background(), js, testStreamConfig())
	if err == nil {
		t.Fatal("ensureStream() expected error on create failure")
	}
	if !errors.Is(err, js.createErr) {
		t.Errorf("error should wrap create error, got %v", err)
	}
}

func TestEnsureStreamUpdateError(t *testing.T) {
	js := newMockJetStream()
	cfg := testStreamConfig()
	js.existing[cfg.Name] = true
	js.updateErr = errors.New("update not allowed")

	err := ensureStream(context.Background(), js, cfg)
	if err == nil {
		t.Fatal("ensureStream() expected error on update failure")
	}
	if !errors.Is(err, js.updateErr) {
		t.Errorf("error should wrap update error, got %v", err)
	}
}

func TestEnsureStreamCheckError(t *testing.T) {
	// An error other than ErrStreamNotFound while checking existence must
	// surface rather than triggering a create against a broken broker.
	js := newMockJetStream()
	js.streamErr = errors.New("connection lost")

	err := ensureStream(context.Background(), js, testStreamConfig())
	if err == nil {
		t.Fatal("ensureStream() expected error on check failure")
	}
	if !strings.Contains(err.Error(), "check stream") {
		t.Errorf("error = %v, want check stream wrap", err)
	}
	if js.createCalls != 0 || js.updateCalls != 0 {
		t.Errorf("calls = create %d update %d, want none", js.createCalls, js.updateCalls)
	}
}
