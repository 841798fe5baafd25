// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides comprehensive instrumentation for:
// - Sync transport activity (push stream, long-poll)
// - Clock drift distribution and accuracy tiers
// - Clock session state machine outcomes
// - Geofence verification outcomes
// - Database query performance (DuckDB)
// - API endpoint latency and throughput
// - Audit writer circuit breaker state
// - Cache efficiency

var (
	// Sync Transport Metrics
	SyncEventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_events_emitted_total",
			Help: "Total number of sync events emitted to clients",
		},
		[]string{"event_type", "transport"}, // event_type: connection, time_sync, heartbeat; transport: push, poll
	)

	SyncStreamConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_stream_connections",
			Help: "Current number of active push stream connections",
		},
	)

	SyncStreamMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_stream_messages_sent_total",
			Help: "Total number of frames written to push streams",
		},
	)

	SyncStreamMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_stream_messages_received_total",
			Help: "Total number of frames received from push stream clients",
		},
	)

	SyncStreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_stream_errors_total",
			Help: "Total number of push stream errors",
		},
		[]string{"error_type"}, // "write", "read", "upgrade", "rate_limit"
	)

	PollWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_poll_wait_seconds",
			Help:    "Time a long-poll request waited before returning an event",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 45, 60},
		},
	)

	PollResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_poll_results_total",
			Help: "Total number of long-poll completions by delivered event type",
		},
		[]string{"result"}, // "time_sync", "heartbeat"
	)

	// Drift / Time Authority Metrics
	DriftMagnitude = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "time_drift_abs_ms",
			Help:    "Absolute client clock drift in milliseconds at report time",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
	)

	DriftReports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "time_drift_reports_total",
			Help: "Total number of client time reports by resulting accuracy tier",
		},
		[]string{"accuracy"}, // "high", "medium", "low"
	)

	// Clock Session Metrics
	ClockSessionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clock_sessions_open",
			Help: "Current number of open clock sessions (clocked-in subjects)",
		},
	)

	ClockOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clock_operations_total",
			Help: "Total number of clock-in/clock-out attempts by outcome",
		},
		[]string{"operation", "outcome"}, // operation: "clock_in", "clock_out"; outcome: "success", "rejected", "error"
	)

	SessionHours = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clock_session_hours",
			Help:    "Completed clock session duration in hours",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 6, 8, 10, 12, 16, 24},
		},
	)

	// Geofence Metrics
	GeofenceChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geofence_checks_total",
			Help: "Total number of location verifications by outcome",
		},
		[]string{"outcome"}, // "within", "outside", "skipped", "failed"
	)

	GeofenceDistance = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "geofence_distance_meters",
			Help:    "Computed distance between reported fix and site coordinates",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 5000, 25000},
		},
	)

	// Audit Writer Metrics
	AuditWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_audit_writes_total",
			Help: "Total number of durable sync event writes by result",
		},
		[]string{"result"}, // "success", "failure", "rejected"
	)

	AuditBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_audit_breaker_state",
			Help: "Audit writer circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Security Trail Metrics
	SecurityEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "security_events_total",
			Help: "Total number of security trail events by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	SecurityEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "security_events_dropped_total",
			Help: "Total number of security trail events dropped on a full buffer",
		},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets, // 0.005s .. 10s
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"}, // "roster", "authz"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cached entries",
		},
		[]string{"cache_type"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache evictions (TTL expiry)",
		},
		[]string{"cache_type"},
	)

	// Event Mirror Metrics (NATS JetStream, build tag "nats")
	MirrorMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mirror_messages_published_total",
			Help: "Total number of sync events mirrored to NATS JetStream",
		},
	)

	MirrorPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mirror_publish_errors_total",
			Help: "Total number of failed mirror publishes",
		},
	)

	// Roster Import Metrics
	ImportRecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_records_processed_total",
			Help: "Total number of roster records processed by entity and result",
		},
		[]string{"table", "result"}, // table: "sites", "rotations", "site_assignments"; result: "imported", "skipped", "failed"
	)

	// Backup Metrics
	BackupRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_runs_total",
			Help: "Total number of scheduled database exports by result",
		},
		[]string{"result"}, // "success", "failure"
	)

	BackupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backup_duration_seconds",
			Help:    "Duration of database export runs in seconds",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	BackupLastSnapshotSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backup_last_snapshot_size_bytes",
			Help: "Size in bytes of the most recent successful snapshot",
		},
	)

	// BackupLastSnapshotTimestamp exists so operators can alert on
	// stale backups without parsing snapshot directories.
	BackupLastSnapshotTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backup_last_snapshot_timestamp_seconds",
			Help: "Unix timestamp of the most recent successful snapshot",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordSyncEvent records one emitted sync event.
func RecordSyncEvent(eventType, transport string) {
	SyncEventsEmitted.WithLabelValues(eventType, transport).Inc()
}

// RecordPollResult records a completed long-poll and the time it waited.
func RecordPollResult(result string, waited time.Duration) {
	PollResults.WithLabelValues(result).Inc()
	PollWaitDuration.Observe(waited.Seconds())
}

// RecordDriftReport records a client time report: the absolute drift
// magnitude and the accuracy tier it mapped to.
func RecordDriftReport(driftMs int64, accuracy string) {
	if driftMs < 0 {
		driftMs = -driftMs
	}
	DriftMagnitude.Observe(float64(driftMs))
	DriftReports.WithLabelValues(accuracy).Inc()
}

// RecordClockOperation records a clock-in or clock-out attempt outcome.
func RecordClockOperation(operation, outcome string) {
	ClockOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordSessionHours records the duration of a completed session.
func RecordSessionHours(hours float64) {
	SessionHours.Observe(hours)
}

// RecordGeofenceCheck records a location verification outcome; distance is
// observed only when a distance was actually computed (outcome within/outside).
func RecordGeofenceCheck(outcome string, distanceM float64) {
	GeofenceChecks.WithLabelValues(outcome).Inc()
	if outcome == "within" || outcome == "outside" {
		GeofenceDistance.Observe(distanceM)
	}
}

// RecordAuditWrite records a durable sync event write attempt.
// result: "success", "failure" (write failed), "rejected" (breaker open).
func RecordAuditWrite(result string) {
	AuditWrites.WithLabelValues(result).Inc()
}

// SetAuditBreakerState publishes the audit breaker state as a gauge:
// 0=closed, 1=half-open, 2=open.
func SetAuditBreakerState(state float64) {
	AuditBreakerState.Set(state)
}

// RecordSecurityEvent records one security trail event.
func RecordSecurityEvent(eventType, outcome string) {
	SecurityEvents.WithLabelValues(eventType, outcome).Inc()
}

// RecordSecurityEventDropped counts a trail event dropped on a full buffer.
func RecordSecurityEventDropped() {
	SecurityEventsDropped.Inc()
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		// Truncate long error messages
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordMirrorPublish records a mirror publish attempt.
func RecordMirrorPublish(err error) {
	if err != nil {
		MirrorPublishErrors.Inc()
		return
	}
	MirrorMessagesPublished.Inc()
}

// RecordImport records a processed roster record.
func RecordImport(table, result string) {
	ImportRecordsProcessed.WithLabelValues(table, result).Inc()
}

// RecordBackup records a backup run: its duration, outcome, and on
// success the snapshot size and completion time.
func RecordBackup(duration time.Duration, sizeBytes int64, err error) {
	BackupDuration.Observe(duration.Seconds())
	if err != nil {
		BackupRuns.WithLabelValues("failure").Inc()
		return
	}
	BackupRuns.WithLabelValues("success").Inc()
	BackupLastSnapshotSize.Set(float64(sizeBytes))
	BackupLastSnapshotTimestamp.SetToCurrentTime()
}
