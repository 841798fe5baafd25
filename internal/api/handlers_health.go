// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package api

import (
	"net/http"
	"time"

	"github.com/rollcall-attendance/rollcall/internal/models"
)

// Health reports full system health
//
// @Summary Get system health
// @Description Returns overall status, database connectivity, and the number of connected push clients. The server answers "degraded" rather than failing when the database is unreachable, since time service continues without it.
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.HealthStatus} "Health status"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil

	status := "healthy"
	if !dbConnected {
		status = "degraded"
	}

	pushClients := 0
	if h.registry != nil {
		pushClients = h.registry.ClientCount()
	}

	authMode := ""
	if h.cfg != nil {
		authMode = h.cfg.Security.AuthMode
	}

	respondData(w, http.StatusOK, models.HealthStatus{
		Status:            status,
		Version:           Version,
		AuthMode:          authMode,
		DatabaseConnected: dbConnected,
		PushClients:       pushClients,
		UptimeSeconds:     time.Since(h.startTime).Seconds(),
	}, start)
}

// HealthLive is the liveness probe
//
// @Summary Kubernetes liveness probe
// @Description Returns 200 whenever the process is alive, regardless of dependencies.
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse "Service is alive"
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	respondData(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, start)
}

// HealthReady is the readiness probe
//
// @Summary Kubernetes readiness probe
// @Description Returns 200 when the database answers a ping and 503 otherwise, so orchestrators hold traffic until persistence is available.
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse "Ready to serve"
// @Failure 503 {object} models.APIResponse "Not ready"
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil

	payload := map[string]interface{}{
		"ready_to_serve":     dbConnected,
		"database_connected": dbConnected,
		"uptime":             time.Since(h.startTime).Seconds(),
	}

	if !dbConnected {
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Success: false,
			Data:    payload,
			Metadata: models.Metadata{
				Timestamp:   time.Now().UTC(),
				QueryTimeMS: time.Since(start).Milliseconds(),
			},
		})
		return
	}

	respondData(w, http.StatusOK, payload, start)
}
