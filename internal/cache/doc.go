// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

/*
Package cache provides a cache-aside read layer for roster data.

Site, rotation, and assignment rows change rarely but are read on every
clock-in, so the attendance service keeps them behind a TTL cache instead
of hitting DuckDB per request.

# Backends

Two interchangeable backends implement the Store interface:

  - memory: sync.RWMutex map with a background expiry sweep. Default.
  - badger: BadgerDB with native entry TTLs, survives restarts. Useful
    when a deployment fronts a slow network filesystem and wants warm
    caches across restarts.

# Tag Invalidation

Entries may carry tags ("site:abc", "subject:s-1"). DeleteByTag removes
every entry that was stored under the tag, letting the roster importer
invalidate exactly the sites it rewrote without flushing the whole cache.

# Usage

	store, err := cache.New("roster", cache.Config{
	    Backend: cache.BackendMemory,
	    TTL:     5 * time.Minute,
	})
	if err != nil {
	    return err
	}
	defer store.Close()

	store.Set("site:abc", site, "site:abc")
	if v, ok := store.Get("site:abc"); ok {
	    site := v.(*models.Site)
	    _ = site
	}

Hit, miss, and eviction counts are exported per cache name through the
metrics package.
*/
package cache
