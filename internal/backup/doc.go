// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

/*
Package backup provides scheduled and on-demand database snapshots.

Each snapshot is a timestamped directory containing the full database
exported as parquet (DuckDB EXPORT DATABASE) plus a metadata.json with
record counts and timings. Parquet snapshots restore with IMPORT DATABASE
and stay readable by any parquet tooling, which matters more for an
attendance system of record than a raw file copy would.

# Layout

	/data/backups/
	├── snapshot-20260114T030000Z/
	│   ├── schema.sql
	│   ├── load.sql
	│   ├── clock_sessions.parquet
	│   ├── sync_events.parquet
	│   ├── ...
	│   └── metadata.json
	└── snapshot-20260115T030000Z/
	    └── ...

# Scheduling

The Manager implements suture.Service via Serve: it snapshots on the
configured interval and prunes old snapshots past the retention count.
A failed export returns from Serve so the supervisor restarts the
scheduler with backoff instead of skipping snapshots silently.

Run takes a single snapshot and is also exposed through the admin API
for manual triggers before maintenance windows.

# Consistency

A CHECKPOINT is forced before each export so the WAL is folded into the
main file and the export sees a consistent database state. Every outcome,
success or failure, lands in the audit trail.
*/
package backup
