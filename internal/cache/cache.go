// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package cache

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Backend identifies a cache backend implementation.
type Backend string

const (
	// BackendMemory is an in-process TTL map (default).
	BackendMemory Backend = "memory"

	// BackendBadger is a BadgerDB-backed cache that persists across restarts.
	BackendBadger Backend = "badger"
)

// Config holds cache construction settings.
type Config struct {
	// Backend selects the implementation: memory or badger.
	Backend Backend

	// Path is the BadgerDB directory. Required for the badger backend.
	Path string

	// TTL is the default entry lifetime.
	TTL time.Duration

	// CleanupInterval is the expired-entry sweep cadence (memory backend).
	CleanupInterval time.Duration
}

// Store is the interface both cache backends implement.
//
// Set accepts optional tags; DeleteByTag later removes every entry stored
// under that tag. Values pass through the badger backend as JSON, so
// callers sharing a Store across backends should stick to JSON-safe types.
type Store interface {
	// Get retrieves a value. Returns the value and true when present and
	// not expired.
	Get(key string) (interface{}, bool)

	// Set stores a value with the default TTL, indexed under the given tags.
	Set(key string, value interface{}, tags ...string)

	// SetWithTTL stores a value with a custom TTL.
	SetWithTTL(key string, value interface{}, ttl time.Duration, tags ...string)

	// Delete removes a single entry.
	Delete(key string)

	// DeleteByTag removes every entry stored under the tag.
	DeleteByTag(tag string)

	// Clear removes all entries.
	Clear()

	// Stats returns a snapshot of hit/miss/eviction counters.
	Stats() Stats

	// Close releases backend resources. The Store must not be used after.
	Close() error
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// HitRate returns the hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}
	return float64(s.Hits) / float64(total) * 100.0
}

// New creates a Store for the configured backend. The name labels the
// cache in exported metrics ("roster", "authz").
func New(name string, cfg Config) (Store, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 10 * time.Minute
	}

	switch cfg.Backend {
	case BackendBadger:
		if cfg.Path == "" {
			return nil, fmt.Errorf("cache: badger backend requires a path")
		}
		return newBadgerStore(name, cfg)
	case BackendMemory, "":
		return newMemoryStore(name, cfg), nil
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", cfg.Backend)
	}
}

// Decode copies a cached value into dst. The badger backend returns
// json.RawMessage; the memory backend returns the stored value, which is
// re-marshaled here so both backends yield the same concrete type.
// Callers on the hot path should try a direct type assertion first and
// fall back to Decode only when it fails.
func Decode(v interface{}, dst interface{}) error {
	switch val := v.(type) {
	case json.RawMessage:
		return json.Unmarshal(val, dst)
	case []byte:
		return json.Unmarshal(val, dst)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Errorf("cache: encode cached value: %w", err)
		}
		return json.Unmarshal(data, dst)
	}
}

// GenerateKey creates a cache key from a method name and its parameters.
// Parameters are JSON-serialized and hashed for a compact, stable key.
func GenerateKey(method string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		// Fallback to a simple string key
		return fmt.Sprintf("%s:%v", method, params)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", method, hash[:16])
}
