// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package eventmirror

import (
	"time"

	"github.com/rollcall-attendance/rollcall/internal/config"
)

// Config holds everything the mirror needs to start: whether it is on at
// all, where the broker lives (or how to run one), and how the stream is
// shaped. Build it with FromConfig for production; tests construct it
// directly to get a random port and a throwaway store directory.
type Config struct {
	// Enabled turns mirroring on. When false, New returns a nil mirror.
	Enabled bool

	// URL is the external NATS server address. Ignored when
	// EmbeddedServer is true (the embedded server's client URL wins).
	URL string

	// EmbeddedServer runs an in-process NATS JetStream server instead of
	// connecting to an external broker.
	EmbeddedServer bool

	// SubjectPrefix is prepended to the event type when publishing,
	// e.g. "rollcall.sync" yields "rollcall.sync.time_sync".
	SubjectPrefix string

	Server ServerConfig
	Stream StreamConfig
}

// ServerConfig holds embedded NATS server settings.
type ServerConfig struct {
	Host      string
	Port      int
	StoreDir  string
	MaxMemory int64
	MaxStore  int64
}

// StreamConfig shapes the JetStream stream the mirror publishes into.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

const (
	// streamName is the JetStream stream holding mirrored sync events.
	streamName = "SYNC_EVENTS"

	// defaultSubjectPrefix matches the config package default so a
	// hand-built Config without a prefix still publishes somewhere sane.
	defaultSubjectPrefix = "rollcall.sync"

	// defaultRetentionDays bounds stream age when the config carries a
	// zero or negative retention.
	defaultRetentionDays = 7

	// duplicateWindow is how long JetStream remembers event UUIDs for
	// deduplication. Redelivered Records inside this window store once.
	duplicateWindow = 2 * time.Minute
)

// FromConfig maps the application NATS configuration onto a mirror Config.
//
// The embedded server binds loopback on the standard NATS port; clients on
// other hosts should run an external broker and set the URL instead. The
// stream's byte limit reuses the JetStream store limit since a single
// stream owns the store.
func FromConfig(nc config.NATSConfig) Config {
	prefix := nc.SubjectPrefix
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}

	retention := nc.StreamRetentionDays
	if retention <= 0 {
		retention = defaultRetentionDays
	}

	return Config{
		Enabled:        nc.Enabled,
		URL:            nc.URL,
		EmbeddedServer: nc.EmbeddedServer,
		SubjectPrefix:  prefix,
		Server: ServerConfig{
			Host:      "127.0.0.1",
			Port:      4222,
			StoreDir:  nc.StoreDir,
			MaxMemory: nc.MaxMemory,
			MaxStore:  nc.MaxStore,
		},
		Stream: StreamConfig{
			Name:            streamName,
			Subjects:        []string{prefix + ".>"},
			MaxAge:          time.Duration(retention) * 24 * time.Hour,
			MaxBytes:        nc.MaxStore,
			MaxMsgs:         -1,
			DuplicateWindow: duplicateWindow,
			Replicas:        1,
		},
	}
}
