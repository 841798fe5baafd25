// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

/*
Package roster imports sites, rotations, and site assignments from a
SQLite export of an upstream student information system.

The upstream system is the source of truth for who is placed where and
when; Rollcall only verifies presence against that roster. Registrars
hand over a SQLite file, and the importer mirrors its three tables into
Rollcall's DuckDB schema.

# Reading SQLite via DuckDB

Rather than linking a second database driver, the ExportReader uses
DuckDB's sqlite extension to attach the export file and query it with
plain SQL. The extension is installed and loaded on first use, the file
is attached with sqlite_attach, and table presence is verified through
information_schema before any rows are read.

# Import semantics

Imports are idempotent: every row is upserted by its upstream ID, so
re-running an import converges on the export's state instead of
duplicating rows. Tables are processed in dependency order (sites,
then rotations, then assignments) in batches of IMPORT_BATCH_SIZE.

Rows that fail validation (missing IDs, malformed coordinates, unknown
rotation status, bad dates) are skipped and counted; one bad row never
aborts the import. A dry run (IMPORT_DRY_RUN) validates and counts
without writing.

After a successful import the attendance cache entries for every
touched site and subject are invalidated, and the import lands in the
audit trail with per-table row counts.

# Triggering

Imports run automatically at startup when IMPORT_AUTO_START is set, and
on demand through POST /api/v1/admin/import. Only one import runs at a
time; a second trigger while one is running returns an error.
*/
package roster
