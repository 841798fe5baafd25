// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rollcall-attendance/rollcall/internal/apperrors"
	"github.com/rollcall-attendance/rollcall/internal/transport"
	"github.com/rollcall-attendance/rollcall/internal/validation"
)

// pollParams carries the validated query parameters of a poll request.
type pollParams struct {
	ClientID string `validate:"required,client_id"`
}

// SyncStream upgrades the request into a websocket push stream
//
// @Summary Open a push sync stream
// @Description Upgrades the connection to a websocket carrying time_sync and heartbeat events on the server's cadence. The first frame is a connection event.
// @Tags Sync
// @Produce json
// @Param client_id query string true "Sync client identifier"
// @Success 101 {string} string "Switching Protocols"
// @Failure 400 {object} models.APIResponse "Invalid client_id"
// @Failure 503 {object} models.APIResponse "Push transport unavailable"
// @Security BearerAuth
// @Router /sync/ws [get]
func (h *Handler) SyncStream(w http.ResponseWriter, r *http.Request) {
	if h.push == nil {
		respondAppError(w, r, apperrors.System(apperrors.CodeSystemError, "Push transport unavailable", nil))
		return
	}
	h.push.HandleStream(w, r)
}

// SyncPoll holds the request open until a sync event is due
//
// @Summary Long-poll for one sync event
// @Description Waits until the client is due a time_sync event and returns it. When the bounded wait expires first, a heartbeat event is returned instead, so every poll round ends with exactly one event.
// @Tags Sync
// @Accept json
// @Produce json
// @Param client_id query string true "Sync client identifier"
// @Param timeout query string false "Maximum wait, a duration like 25s or bare seconds (server clamps)"
// @Param last_event_time query string false "RFC3339 time of the last event the client holds"
// @Success 200 {object} models.APIResponse{data=transport.SyncEventMessage} "One sync event"
// @Failure 400 {object} models.APIResponse "Invalid parameters"
// @Security BearerAuth
// @Router /sync/poll [get]
func (h *Handler) SyncPoll(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	params := pollParams{ClientID: r.URL.Query().Get("client_id")}
	if verr := validation.ValidateStruct(&params); verr != nil {
		respondAppError(w, r, verr.ToAppError())
		return
	}

	timeout, appErr := parsePollTimeout(r.URL.Query().Get("timeout"))
	if appErr != nil {
		respondAppError(w, r, appErr)
		return
	}

	lastEvent, appErr := parseEventTime(r.URL.Query().Get("last_event_time"))
	if appErr != nil {
		respondAppError(w, r, appErr)
		return
	}

	msg, err := h.poller.Poll(r.Context(), transport.PollRequest{
		ClientID:      params.ClientID,
		Timeout:       timeout,
		LastEventTime: lastEvent,
	})
	if err != nil {
		// The client hung up mid-wait; there is nobody to answer.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		respondError(w, r, err)
		return
	}

	respondData(w, http.StatusOK, msg, start)
}

// parsePollTimeout reads the poll timeout parameter: a Go duration string
// or a bare number of seconds. Empty means the server default; the poller
// clamps the result to its configured maximum either way.
func parsePollTimeout(raw string) (time.Duration, *apperrors.Error) {
	if raw == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		if d < 0 {
			return 0, apperrors.Validation(apperrors.CodeValidationError, "timeout must not be negative")
		}
		return d, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, apperrors.Validation(apperrors.CodeValidationError, "timeout must be a duration like 25s")
}

// parseEventTime reads the client's last-event cursor.
func parseEventTime(raw string) (time.Time, *apperrors.Error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, apperrors.Validation(apperrors.CodeValidationError, "last_event_time must be RFC3339")
	}
	return t, nil
}
