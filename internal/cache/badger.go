// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/rollcall-attendance/rollcall/internal/metrics"
)

// Key prefixes for BadgerDB storage. Tag index keys embed the tag and the
// value key so a prefix scan over "t:<tag>:" yields every tagged key.
const (
	badgerValuePrefix = "v:"
	badgerTagPrefix   = "t:"
)

// badgerStore is a BadgerDB-backed cache. Values are stored as JSON and
// expire through Badger's native entry TTLs; Get returns json.RawMessage,
// which Decode turns back into a concrete type.
type badgerStore struct {
	name string
	db   *badger.DB
	ttl  time.Duration

	statsMu sync.RWMutex
	stats   Stats
}

var _ Store = (*badgerStore)(nil)

func newBadgerStore(name string, cfg Config) (*badgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path)
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache at %s: %w", cfg.Path, err)
	}

	return &badgerStore{
		name:  name,
		db:    db,
		ttl:   cfg.TTL,
		stats: Stats{LastCleanup: time.Now()},
	}, nil
}

func (s *badgerStore) Get(key string) (interface{}, bool) {
	var data []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerValuePrefix + key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		// Expired entries surface as ErrKeyNotFound; both count as a miss.
		s.recordMiss()
		return nil, false
	}

	s.recordHit()
	return json.RawMessage(data), true
}

func (s *badgerStore) Set(key string, value interface{}, tags ...string) {
	s.SetWithTTL(key, value, s.ttl, tags...)
}

func (s *badgerStore) SetWithTTL(key string, value interface{}, ttl time.Duration, tags ...string) {
	data, err := json.Marshal(value)
	if err != nil {
		// Unmarshalable values are silently skipped; the caller falls
		// through to the authoritative read on the next Get.
		return
	}

	_ = s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(badgerValuePrefix+key), data).WithTTL(ttl)
		if err := txn.SetEntry(e); err != nil {
			return err
		}
		for _, tag := range tags {
			te := badger.NewEntry(tagKey(tag, key), []byte(key)).WithTTL(ttl)
			if err := txn.SetEntry(te); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *badgerStore) Delete(key string) {
	_ = s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(badgerValuePrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	s.recordEvictions(1)
}

func (s *badgerStore) DeleteByTag(tag string) {
	// Collect tagged keys first; deleting while iterating the same
	// transaction invalidates the iterator.
	var keys []string

	_ = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(badgerTagPrefix + tag + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				keys = append(keys, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	evicted := int64(0)
	_ = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete([]byte(badgerValuePrefix + key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Delete(tagKey(tag, key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			evicted++
		}
		return nil
	})

	s.recordEvictions(evicted)
}

func (s *badgerStore) Clear() {
	_ = s.db.DropAll()
	s.setTotalKeys(0)
}

func (s *badgerStore) Stats() Stats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()

	stats := s.stats
	stats.TotalKeys = s.countKeys()
	return stats
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}

// countKeys scans the value keyspace. Badger has no O(1) count, so this is
// only called from Stats, never on the hot path.
func (s *badgerStore) countKeys() int64 {
	count := int64(0)
	_ = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(badgerValuePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count
}

func tagKey(tag, key string) []byte {
	return []byte(badgerTagPrefix + tag + ":" + key)
}

func (s *badgerStore) recordHit() {
	s.statsMu.Lock()
	s.stats.Hits++
	s.statsMu.Unlock()
	metrics.CacheHits.WithLabelValues(s.name).Inc()
}

func (s *badgerStore) recordMiss() {
	s.statsMu.Lock()
	s.stats.Misses++
	s.statsMu.Unlock()
	metrics.CacheMisses.WithLabelValues(s.name).Inc()
}

func (s *badgerStore) recordEvictions(n int64) {
	if n <= 0 {
		return
	}
	s.statsMu.Lock()
	s.stats.Evictions += n
	s.statsMu.Unlock()
	metrics.CacheEvictions.WithLabelValues(s.name).Add(float64(n))
}

func (s *badgerStore) setTotalKeys(n int64) {
	s.statsMu.Lock()
	s.stats.TotalKeys = n
	s.statsMu.Unlock()
	metrics.CacheSize.WithLabelValues(s.name).Set(float64(n))
}
