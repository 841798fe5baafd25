// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package authz

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthzDecisionsTotal counts authorization decisions by role, resource
	// pattern, action, and outcome.
	AuthzDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_authz_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"role", "resource_pattern", "action", "decision"},
	)

	// AuthzDecisionDuration tracks decision latency. Buckets cover cached
	// lookups (microseconds) through matcher evaluation (milliseconds).
	AuthzDecisionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rollcall_authz_decision_duration_seconds",
			Help:    "Duration of authorization decisions in seconds",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
		[]string{"role"},
	)

	// AuthzDeniedTotal tracks denials separately for alerting.
	AuthzDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_authz_denied_total",
			Help: "Total number of authorization denials",
		},
		[]string{"role", "resource_pattern", "action"},
	)

	// AuthzCacheHitsTotal counts decision cache hits.
	AuthzCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rollcall_authz_cache_hits_total",
			Help: "Total number of authorization cache hits",
		},
	)

	// AuthzCacheMissesTotal counts decision cache misses.
	AuthzCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rollcall_authz_cache_misses_total",
			Help: "Total number of authorization cache misses",
		},
	)

	// AuthzCacheEntries tracks the current cache size.
	AuthzCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rollcall_authz_cache_entries",
			Help: "Current number of entries in the authorization cache",
		},
	)

	// AuthzCacheEvictionsTotal counts TTL evictions.
	AuthzCacheEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rollcall_authz_cache_evictions_total",
			Help: "Total number of authorization cache evictions",
		},
	)

	// AuthzPolicyReloadsTotal counts policy reloads by result.
	AuthzPolicyReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_authz_policy_reloads_total",
			Help: "Total number of policy reloads",
		},
		[]string{"result"},
	)
)

// RecordAuthzDecision records one authorization decision.
func RecordAuthzDecision(role, resource, action string, allowed bool, duration time.Duration) {
	decision := "denied"
	if allowed {
		decision = "allowed"
	}

	pattern := normalizeResourcePattern(resource)
	AuthzDecisionsTotal.WithLabelValues(role, pattern, action, decision).Inc()
	AuthzDecisionDuration.WithLabelValues(role).Observe(duration.Seconds())
	if !allowed {
		AuthzDeniedTotal.WithLabelValues(role, pattern, action).Inc()
	}
}

// normalizeResourcePattern collapses numeric path segments so per-entity
// paths do not explode label cardinality. "/api/v1/attendance/stu-1042"
// becomes "/api/v*/attendance/stu-*".
func normalizeResourcePattern(resource string) string {
	result := make([]byte, 0, len(resource))
	inNumeric := false
	for i := 0; i < len(resource); i++ {
		c := resource[i]
		if c >= '0' && c <= '9' {
			if !inNumeric {
				result = append(result, '*')
				inNumeric = true
			}
			continue
		}
		inNumeric = false
		result = append(result, c)
	}
	return string(result)
}

// RecordAuthzCacheHit records a decision cache hit.
func RecordAuthzCacheHit() {
	AuthzCacheHitsTotal.Inc()
}

// RecordAuthzCacheMiss records a decision cache miss.
func RecordAuthzCacheMiss() {
	AuthzCacheMissesTotal.Inc()
}

// RecordAuthzCacheEviction records a TTL eviction.
func RecordAuthzCacheEviction() {
	AuthzCacheEvictionsTotal.Inc()
}

// UpdateAuthzCacheSize sets the current cache size gauge.
func UpdateAuthzCacheSize(size int) {
	AuthzCacheEntries.Set(float64(size))
}

// RecordPolicyReload records a policy reload outcome.
func RecordPolicyReload(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	AuthzPolicyReloadsTotal.WithLabelValues(result).Inc()
}
