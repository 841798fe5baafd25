// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/rollcall-attendance/rollcall/internal/apperrors"
	"github.com/rollcall-attendance/rollcall/internal/validation"
)

// timeParams carries the validated query parameters of a time request.
type timeParams struct {
	ClientID string `validate:"omitempty,client_id"`
}

// driftReportBody is one client clock sample. ClientTime is RFC3339Nano;
// when absent or unparsable the epoch timestamp stands in for it, matching
// the stream transport's client_time frames.
type driftReportBody struct {
	ClientID        string `json:"client_id" validate:"required,client_id"`
	ClientTime      string `json:"client_time,omitempty"`
	ClientTimestamp int64  `json:"client_timestamp" validate:"required,gt=0"`
}

// ServerTime returns the authoritative server clock
//
// @Summary Get authoritative server time
// @Description Returns the server clock with a monotonic sequence number. With a client_id, the response also carries the client's sync session and trailing drift statistics.
// @Tags Time
// @Accept json
// @Produce json
// @Param client_id query string false "Sync client identifier"
// @Success 200 {object} models.APIResponse{data=timesync.ServerTimeSnapshot} "Server time snapshot"
// @Failure 400 {object} models.APIResponse "Invalid client_id"
// @Security BearerAuth
// @Router /time [get]
func (h *Handler) ServerTime(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	params := timeParams{ClientID: r.URL.Query().Get("client_id")}
	if verr := validation.ValidateStruct(&params); verr != nil {
		respondAppError(w, r, verr.ToAppError())
		return
	}

	snapshot, err := h.authority.ServerTime(r.Context(), params.ClientID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, snapshot, start)
}

// ReportDrift ingests a client clock sample and returns the measured drift
//
// @Summary Report client time
// @Description Submits one client clock sample. The server computes signed drift against its own clock, persists the measurement, and returns the drift with its accuracy tier.
// @Tags Time
// @Accept json
// @Produce json
// @Param sample body driftReportBody true "Client clock sample"
// @Success 200 {object} models.APIResponse{data=timesync.DriftReport} "Measured drift"
// @Failure 400 {object} models.APIResponse "Invalid sample"
// @Failure 503 {object} models.APIResponse "Measurement could not be persisted"
// @Security BearerAuth
// @Router /time/drift [post]
func (h *Handler) ReportDrift(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body driftReportBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondAppError(w, r, apperrors.Validation(apperrors.CodeValidationError, "Invalid request body"))
		return
	}
	if verr := validation.ValidateStruct(&body); verr != nil {
		respondAppError(w, r, verr.ToAppError())
		return
	}

	clientTime, err := time.Parse(time.RFC3339Nano, body.ClientTime)
	if err != nil {
		clientTime = time.UnixMilli(body.ClientTimestamp).UTC()
	}

	report, err := h.authority.ReportClientTime(r.Context(), body.ClientID, clientTime, body.ClientTimestamp)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, report, start)
}
