// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package eventmirror

import (
	"testing"
	"time"

	"github.com/rollcall-attendance/rollcall/internal/config"
)

func TestFromConfig(t *testing.T) {
	nc := config.NATSConfig{
		Enabled:             true,
		URL:                 "nats://broker.internal:4222",
		EmbeddedServer:      false,
		StoreDir:            "/data/nats/jetstream",
		MaxMemory:           256 << 20,
		MaxStore:            2 << 30,
		StreamRetentionDays: 14,
		SubjectPrefix:       "rollcall.sync",
	}

	cfg := FromConfig(nc)

	if !cfg.Enabled {
		t.Error("Enabled = false, want true")
	}
	if cfg.URL != nc.URL {
		t.Errorf("URL = %q, want %q", cfg.URL, nc.URL)
	}
	if cfg.EmbeddedServer {
		t.Error("EmbeddedServer = true, want false")
	}
	if cfg.SubjectPrefix != "rollcall.sync" {
		t.Errorf("SubjectPrefix = %q, want %q", cfg.SubjectPrefix, "rollcall.sync")
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 4222 {
		t.Errorf("Server.Port = %d, want 4222", cfg.Server.Port)
	}
	if cfg.Server.StoreDir != nc.StoreDir {
		t.Errorf("Server.StoreDir = %q, want %q", cfg.Server.StoreDir, nc.StoreDir)
	}
	if cfg.Server.MaxMemory != nc.MaxMemory {
		t.Errorf("Server.MaxMemory = %d, want %d", cfg.Server.MaxMemory, nc.MaxMemory)
	}
	if cfg.Server.MaxStore != nc.MaxStore {
		t.Errorf("Server.MaxStore = %d, want %d", cfg.Server.MaxStore, nc.MaxStore)
	}

	if cfg.Stream.Name != "SYNC_EVENTS" {
		t.Errorf("Stream.Name = %q, want SYNC_EVENTS", cfg.Stream.Name)
	}
	if len(cfg.Stream.Subjects) != 1 || cfg.Stream.Subjects[0] != "rollcall.sync.>" {
		t.Errorf("Stream.Subjects = %v, want [rollcall.sync.>]", cfg.Stream.Subjects)
	}
	if want := 14 * 24 * time.Hour; cfg.Stream.MaxAge != want {
		t.Errorf("Stream.MaxAge = %v, want %v", cfg.Stream.MaxAge, want)
	}
	if cfg.Stream.MaxBytes != nc.MaxStore {
		t.Errorf("Stream.MaxBytes = %d, want %d", cfg.Stream.MaxBytes, nc.MaxStore)
	}
	if cfg.Stream.MaxMsgs != -1 {
		t.Errorf("Stream.MaxMsgs = %d, want -1", cfg.Stream.MaxMsgs)
	}
	if cfg.Stream.DuplicateWindow != 2*time.Minute {
		t.Errorf("Stream.DuplicateWindow = %v, want 2m", cfg.Stream.DuplicateWindow)
	}
	if cfg.Stream.Replicas != 1 {
		t.Errorf("Stream.Replicas = %d, want 1", cfg.Stream.Replicas)
	}
}

func TestFromConfigDefaults(t *testing.T) {
	// A zero-value NATSConfig still yields a publishable configuration:
	// the prefix and retention fall back so a hand-built config without
	// them cannot produce an empty subject or an unbounded stream.
	cfg := FromConfig(config.NATSConfig{})

	if cfg.Enabled {
		t.Error("Enabled = true, want false for zero config")
	}
	if cfg.SubjectPrefix != "rollcall.sync" {
		t.Errorf("SubjectPrefix = %q, want default rollcall.sync", cfg.SubjectPrefix)
	}
	if len(cfg.Stream.Subjects) != 1 || cfg.Stream.Subjects[0] != "rollcall.sync.>" {
		t.Errorf("Stream.Subjects = %v, want [rollcall.sync.>]", cfg.Stream.Subjects)
	}
	if want := 7 * 24 * time.Hour; cfg.Stream.MaxAge != want {
		t.Errorf("Stream.MaxAge = %v, want default %v", cfg.Stream.MaxAge, want)
	}
}

func TestFromConfigNegativeRetention(t *testing.T) {
	cfg := FromConfig(config.NATSConfig{StreamRetentionDays: -3})

	if want := 7 * 24 * time.Hour; cfg.Stream.MaxAge != want {
		t.Errorf("Stream.MaxAge = %v, want default %v", cfg.Stream.MaxAge, want)
	}
}
