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
	"github.com/rollcall-attendance/rollcall/internal/logging"
	"github.com/rollcall-attendance/rollcall/internal/models"
)

// respondJSON writes an envelope with the given status code.
func respondJSON(w http.ResponseWriter, status int, resp *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error().Err(err).Msg("Failed to encode API response")
	}
}

// respondData writes a success envelope around data. start is the handler
// entry time; the elapsed milliseconds land in metadata.query_time_ms.
func respondData(w http.ResponseWriter, status int, data interface{}, start time.Time) {
	respondJSON(w, status, &models.APIResponse{
		Success: true,
		Data:    data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// respondAppError writes a failure envelope with the error's HTTP status.
func respondAppError(w http.ResponseWriter, r *http.Request, appErr *apperrors.Error) {
	respondJSON(w, appErr.HTTPStatus(), &models.APIResponse{
		Success:  false,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    sanitize(r, appErr),
	})
}

// respondError classifies an arbitrary error and writes it.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	respondAppError(w, r, apperrors.From(err))
}

// sanitize replaces the message of system and database errors with a
// generic one. Their text tends to carry driver, file system, or hostname
// detail that belongs in the logs, not on the wire. Other error types pass
// through untouched; their messages are written for clients.
func sanitize(r *http.Request, appErr *apperrors.Error) *apperrors.Error {
	switch appErr.Type {
	case apperrors.TypeSystem, apperrors.TypeDatabase:
		logging.Error().
			Str("request_id", logging.RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Str("code", appErr.Code).
			Str("detail", appErr.Message).
			Msg("Internal error")

		clone := *appErr
		clone.Message = "An internal error occurred"
		clone.Fields = nil
		return &clone
	default:
		return appErr
	}
}
