// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package cache

import (
	"sync"
	"time"

	"github.com/rollcall-attendance/rollcall/internal/metrics"
)

// entry is a cached item with its expiration and the tags it was stored under.
type entry struct {
	data      interface{}
	expiresAt time.Time
	tags      []string
}

// memoryStore is a thread-safe in-memory cache with TTL support and a
// tag index for group invalidation.
type memoryStore struct {
	name string
	mu   sync.RWMutex
	// entries and tagged are guarded together by mu: every mutation of one
	// updates the other.
	entries map[string]entry
	tagged  map[string]map[string]struct{}
	ttl     time.Duration

	statsMu sync.RWMutex
	stats   Stats

	stopOnce sync.Once
	stop     chan struct{}
}

var _ Store = (*memoryStore)(nil)

func newMemoryStore(name string, cfg Config) *memoryStore {
	s := &memoryStore{
		name:    name,
		entries: make(map[string]entry),
		tagged:  make(map[string]map[string]struct{}),
		ttl:     cfg.TTL,
		stats:   Stats{LastCleanup: time.Now()},
		stop:    make(chan struct{}),
	}

	go s.cleanupLoop(cfg.CleanupInterval)

	return s
}

func (s *memoryStore) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	e, exists := s.entries[key]
	s.mu.RUnlock()

	if !exists {
		s.recordMiss()
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		s.mu.Lock()
		s.removeLocked(key)
		s.mu.Unlock()
		s.recordMiss()
		s.recordEvictions(1)
		return nil, false
	}

	s.recordHit()
	return e.data, true
}

func (s *memoryStore) Set(key string, value interface{}, tags ...string) {
	s.SetWithTTL(key, value, s.ttl, tags...)
}

func (s *memoryStore) SetWithTTL(key string, value interface{}, ttl time.Duration, tags ...string) {
	s.mu.Lock()
	// Drop old tag index entries when a key is overwritten with new tags.
	if old, exists := s.entries[key]; exists {
		s.untagLocked(key, old.tags)
	}
	s.entries[key] = entry{
		data:      value,
		expiresAt: time.Now().Add(ttl),
		tags:      tags,
	}
	for _, tag := range tags {
		keys, ok := s.tagged[tag]
		if !ok {
			keys = make(map[string]struct{})
			s.tagged[tag] = keys
		}
		keys[key] = struct{}{}
	}
	total := int64(len(s.entries))
	s.mu.Unlock()

	s.setTotalKeys(total)
}

func (s *memoryStore) Delete(key string) {
	s.mu.Lock()
	s.removeLocked(key)
	total := int64(len(s.entries))
	s.mu.Unlock()

	s.recordEvictions(1)
	s.setTotalKeys(total)
}

func (s *memoryStore) DeleteByTag(tag string) {
	s.mu.Lock()
	keys := s.tagged[tag]
	evicted := int64(len(keys))
	for key := range keys {
		s.removeLocked(key)
	}
	total := int64(len(s.entries))
	s.mu.Unlock()

	if evicted > 0 {
		s.recordEvictions(evicted)
	}
	s.setTotalKeys(total)
}

func (s *memoryStore) Clear() {
	s.mu.Lock()
	evictions := int64(len(s.entries))
	s.entries = make(map[string]entry)
	s.tagged = make(map[string]map[string]struct{})
	s.mu.Unlock()

	s.recordEvictions(evictions)
	s.setTotalKeys(0)
}

func (s *memoryStore) Stats() Stats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return s.stats
}

func (s *memoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

// removeLocked deletes a key and its tag index entries. Caller holds mu.
func (s *memoryStore) removeLocked(key string) {
	e, exists := s.entries[key]
	if !exists {
		return
	}
	delete(s.entries, key)
	s.untagLocked(key, e.tags)
}

// untagLocked removes a key from the tag index. Caller holds mu.
func (s *memoryStore) untagLocked(key string, tags []string) {
	for _, tag := range tags {
		keys := s.tagged[tag]
		delete(keys, key)
		if len(keys) == 0 {
			delete(s.tagged, tag)
		}
	}
}

// cleanupLoop periodically removes expired entries until Close.
func (s *memoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stop:
			return
		}
	}
}

// cleanup removes all expired entries.
func (s *memoryStore) cleanup() {
	now := time.Now()
	s.mu.Lock()
	evictions := int64(0)
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			s.removeLocked(key)
			evictions++
		}
	}
	total := int64(len(s.entries))
	s.mu.Unlock()

	s.recordEvictions(evictions)
	s.setTotalKeys(total)

	s.statsMu.Lock()
	s.stats.LastCleanup = now
	s.statsMu.Unlock()
}

func (s *memoryStore) recordHit() {
	s.statsMu.Lock()
	s.stats.Hits++
	s.statsMu.Unlock()
	metrics.CacheHits.WithLabelValues(s.name).Inc()
}

func (s *memoryStore) recordMiss() {
	s.statsMu.Lock()
	s.stats.Misses++
	s.statsMu.Unlock()
	metrics.CacheMisses.WithLabelValues(s.name).Inc()
}

func (s *memoryStore) recordEvictions(n int64) {
	if n <= 0 {
		return
	}
	s.statsMu.Lock()
	s.stats.Evictions += n
	s.statsMu.Unlock()
	metrics.CacheEvictions.WithLabelValues(s.name).Add(float64(n))
}

func (s *memoryStore) setTotalKeys(n int64) {
	s.statsMu.Lock()
	s.stats.TotalKeys = n
	s.statsMu.Unlock()
	metrics.CacheSize.WithLabelValues(s.name).Set(float64(n))
}
