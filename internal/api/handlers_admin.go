// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rollcall-attendance/rollcall/internal/apperrors"
	"github.com/rollcall-attendance/rollcall/internal/audit"
	"github.com/rollcall-attendance/rollcall/internal/auth"
	"github.com/rollcall-attendance/rollcall/internal/backup"
	"github.com/rollcall-attendance/rollcall/internal/logging"
	"github.com/rollcall-attendance/rollcall/internal/roster"
)

// BackupManager is the slice of the backup manager the admin endpoints use.
// Satisfied by *backup.Manager.
type BackupManager interface {
	Run(ctx context.Context) (*backup.Snapshot, error)
	List() ([]backup.Snapshot, error)
}

// RosterImporter is the slice of the roster importer the admin endpoints
// use. Satisfied by *roster.Importer.
type RosterImporter interface {
	RunAs(ctx context.Context, actor audit.Actor, source audit.Source) (*roster.Stats, error)
	GetStats() *roster.Stats
	IsRunning() bool
}

// SetMaintenance wires the backup manager and roster importer into the
// admin endpoints. Called during startup for the features the configuration
// enables; endpoints whose collaborator is nil answer 403.
func (h *Handler) SetMaintenance(backups BackupManager, importer RosterImporter) {
	h.backups = backups
	h.importer = importer
}

// BackupListResponse is the payload of the backup listing endpoint.
type BackupListResponse struct {
	Backups []backup.Snapshot `json:"backups"`
	Count   int               `json:"count"`
}

// ImportTriggerResponse acknowledges an import started in the background.
type ImportTriggerResponse struct {
	Started bool `json:"started"`
}

// ImportStatusResponse reports the importer's current state.
type ImportStatusResponse struct {
	Running bool          `json:"running"`
	Stats   *roster.Stats `json:"stats"`
}

// TriggerBackup takes a database snapshot now
//
// @Summary Trigger a backup
// @Description Takes a database snapshot immediately, outside the schedule. The snapshot runs synchronously; the response carries its path and size. Serialized with scheduled runs, so a trigger during a scheduled export waits for it.
// @Tags Admin
// @Produce json
// @Success 200 {object} models.APIResponse{data=backup.Snapshot} "Snapshot complete"
// @Failure 403 {object} models.APIResponse "Backups not enabled"
// @Failure 503 {object} models.APIResponse "Snapshot failed"
// @Security BearerAuth
// @Router /admin/backup [post]
func (h *Handler) TriggerBackup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.backups == nil {
		respondAppError(w, r, apperrors.Authorization(apperrors.CodeForbidden, "Backups are not enabled"))
		return
	}

	snap, err := h.backups.Run(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	// The manager records the backup itself; this records who asked for it.
	if h.trail != nil {
		h.trail.LogAdminAction(r.Context(),
			audit.ActorFromSubject(auth.GetAuthSubject(r.Context())),
			audit.SourceFromRequest(r),
			"backup.trigger", "Manual backup triggered",
			map[string]interface{}{"path": snap.Path, "size_bytes": snap.SizeBytes})
	}

	respondData(w, http.StatusOK, snap, start)
}

// ListBackups lists completed snapshots
//
// @Summary List backups
// @Description Lists completed snapshots, newest first, with creation time and on-disk size.
// @Tags Admin
// @Produce json
// @Success 200 {object} models.APIResponse{data=api.BackupListResponse} "Snapshots on disk"
// @Failure 403 {object} models.APIResponse "Backups not enabled"
// @Security BearerAuth
// @Router /admin/backups [get]
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.backups == nil {
		respondAppError(w, r, apperrors.Authorization(apperrors.CodeForbidden, "Backups are not enabled"))
		return
	}

	snaps, err := h.backups.List()
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, BackupListResponse{Backups: snaps, Count: len(snaps)}, start)
}

// TriggerImport starts a roster import in the background
//
// @Summary Trigger a roster import
// @Description Starts an import of the configured roster export. The import runs in the background; poll /admin/import/status for progress. The audit trail attributes the run to the caller.
// @Tags Admin
// @Produce json
// @Success 202 {object} models.APIResponse{data=api.ImportTriggerResponse} "Import started"
// @Failure 403 {object} models.APIResponse "Import not configured"
// @Failure 409 {object} models.APIResponse "Import already running"
// @Security BearerAuth
// @Router /admin/import [post]
func (h *Handler) TriggerImport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.importer == nil {
		respondAppError(w, r, apperrors.Authorization(apperrors.CodeForbidden, "Roster import is not configured"))
		return
	}
	if h.importer.IsRunning() {
		respondAppError(w, r, apperrors.Business(apperrors.CodeImportInProgress, "A roster import is already running"))
		return
	}

	// Attribution is captured before the request context dies with the
	// response.
	actor := audit.ActorFromSubject(auth.GetAuthSubject(r.Context()))
	source := audit.SourceFromRequest(r)

	// The import outlives this request, so it runs detached. The importer
	// itself serializes runs; a concurrent trigger that slips past the
	// IsRunning check fails inside RunAs and lands in the logs only.
	go func() {
		if _, err := h.importer.RunAs(context.Background(), actor, source); err != nil {
			logging.Error().Err(err).Str("actor", actor.ID).Msg("Admin-triggered roster import failed")
		}
	}()

	respondData(w, http.StatusAccepted, ImportTriggerResponse{Started: true}, start)
}

// ImportStatus reports the importer's progress
//
// @Summary Get import status
// @Description Reports whether an import is running and the statistics of the current or most recent run: per-table row counts, skipped rows, and errors.
// @Tags Admin
// @Produce json
// @Success 200 {object} models.APIResponse{data=api.ImportStatusResponse} "Importer state"
// @Failure 403 {object} models.APIResponse "Import not configured"
// @Security BearerAuth
// @Router /admin/import/status [get]
func (h *Handler) ImportStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.importer == nil {
		respondAppError(w, r, apperrors.Authorization(apperrors.CodeForbidden, "Roster import is not configured"))
		return
	}

	respondData(w, http.StatusOK, ImportStatusResponse{
		Running: h.importer.IsRunning(),
		Stats:   h.importer.GetStats(),
	}, start)
}
