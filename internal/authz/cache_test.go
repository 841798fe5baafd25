// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package authz

import (
	"testing"
	"time"
)

func TestEnforcementCache_SetGet(t *testing.T) {
	c := newEnforcementCache(time.Minute)
	t.Cleanup(c.stop)

	if _, ok := c.get("stu-1", "/api/v1/time", "read"); ok {
		t.Fatal("empty cache returned a hit")
	}

	c.set("stu-1", "/api/v1/time", "read", true)
	c.set("stu-1", "/api/v1/roster/import", "write", false)

	allowed, ok := c.get("stu-1", "/api/v1/time", "read")
	if !ok || !allowed {
		t.Errorf("get() = (%v, %v), want (true, true)", allowed, ok)
	}

	allowed, ok = c.get("stu-1", "/api/v1/roster/import", "write")
	if !ok || allowed {
		t.Errorf("get() = (%v, %v), want (false, true)", allowed, ok)
	}
}

func TestEnforcementCache_Expiry(t *testing.T) {
	c := newEnforcementCache(10 * time.Millisecond)
	t.Cleanup(c.stop)

	c.set("stu-1", "/api/v1/time", "read", true)
	time.Sleep(25 * time.Millisecond)

	if _, ok := c.get("stu-1", "/api/v1/time", "read"); ok {
		t.Error("expired entry returned as a hit")
	}
}

func TestEnforcementCache_InvalidateSubject(t *testing.T) {
	c := newEnforcementCache(time.Minute)
	t.Cleanup(c.stop)

	c.set("stu-1", "/api/v1/time", "read", true)
	c.set("stu-1", "/api/v1/sync/poll", "read", true)
	c.set("stu-2", "/api/v1/time", "read", true)

	c.invalidateSubject("stu-1")

	if _, ok := c.get("stu-1", "/api/v1/time", "read"); ok {
		t.Error("invalidated subject still cached")
	}
	if _, ok := c.get("stu-1", "/api/v1/sync/poll", "read"); ok {
		t.Error("invalidated subject still cached")
	}
	if _, ok := c.get("stu-2", "/api/v1/time", "read"); !ok {
		t.Error("other subject's entry was dropped")
	}
}

func TestEnforcementCache_Clear(t *testing.T) {
	c := newEnforcementCache(time.Minute)
	t.Cleanup(c.stop)

	c.set("stu-1", "/api/v1/time", "read", true)
	c.set("coordinator", "/api/v1/roster/import", "write", true)

	c.clear()

	if _, ok := c.get("stu-1", "/api/v1/time", "read"); ok {
		t.Error("cleared cache returned a hit")
	}
	if _, ok := c.get("coordinator", "/api/v1/roster/import", "write"); ok {
		t.Error("cleared cache returned a hit")
	}
}

func TestEnforcementCache_ZeroTTLUsesDefault(t *testing.T) {
	c := newEnforcementCache(0)
	t.Cleanup(c.stop)

	if c.ttl != 5*time.Minute {
		t.Errorf("ttl = %v, want 5m default", c.ttl)
	}
}

func TestEnforcementCache_StopIsIdempotent(t *testing.T) {
	c := newEnforcementCache(time.Minute)
	c.stop()
	c.stop()
}
