// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package transport

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rollcall-attendance/rollcall/internal/apperrors"
	"github.com/rollcall-attendance/rollcall/internal/config"
	"github.com/rollcall-attendance/rollcall/internal/logging"
	"github.com/rollcall-attendance/rollcall/internal/models"
	"github.com/rollcall-attendance/rollcall/internal/validation"
)

const handshakeTimeout = 10 * time.Second

// streamParams carries the validated query parameters of a stream request.
type streamParams struct {
	ClientID string `validate:"required,client_id"`
}

// Push upgrades HTTP requests into supervised time sync streams.
type Push struct {
	cfg      *config.Config
	sessions SessionStore
	producer *Producer
	reporter DriftReporter
	registry *Registry
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewPush creates the push transport handler.
func NewPush(cfg *config.Config, sessions SessionStore, producer *Producer, reporter DriftReporter, registry *Registry) *Push {
	p := &Push{
		cfg:      cfg,
		sessions: sessions,
		producer: producer,
		reporter: reporter,
		registry: registry,
		log:      logging.WithComponent("push"),
	}
	p.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: handshakeTimeout,
		CheckOrigin:      p.checkOrigin,
	}
	return p
}

// checkOrigin validates browser connections against the CORS allowlist.
// Requests without an Origin header are non-browser clients (kiosks, mobile
// apps, scripts) and pass; the browser same-origin machinery they bypass
// never protected them anyway.
func (p *Push) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if p.cfg == nil {
		return true
	}
	for _, allowed := range p.cfg.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	p.log.Warn().Str("origin", origin).Msg("stream rejected from unauthorized origin")
	return false
}

// HandleStream upgrades GET /api/v1/sync/ws?client_id=… into a push stream:
// the sync session row flips to push/active, the client joins the registry,
// and a connection event is queued before the tickers take over.
func (p *Push) HandleStream(w http.ResponseWriter, r *http.Request) {
	params := streamParams{ClientID: r.URL.Query().Get("client_id")}
	if verr := validation.ValidateStruct(&params); verr != nil {
		p.respondError(w, verr.ToAppError())
		return
	}
	clientID := params.ClientID

	now := time.Now()
	session := &models.SyncSession{
		ClientID:    clientID,
		Protocol:    models.ProtocolPush,
		Status:      models.SyncStatusActive,
		LastSyncAt:  now,
		ConnectedAt: now,
	}
	if err := p.sessions.UpsertSyncSession(r.Context(), session); err != nil {
		p.log.Error().Err(err).Str("client_id", clientID).Msg("failed to open sync session")
		p.respondError(w, apperrors.From(err))
		return
	}

	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote its error response.
		p.log.Warn().Err(err).Str("client_id", clientID).Msg("websocket upgrade failed")
		return
	}

	client := NewStreamClient(conn, clientID, p.registry, p.producer, p.reporter, p.sessions, settingsFromConfig(p.cfg))
	select {
	case p.registry.Register <- client:
	case <-p.registry.Done():
		p.log.Warn().Str("client_id", clientID).Msg("registry stopped, refusing stream")
		_ = conn.Close()
		return
	}

	client.Start()

	// The contract promises a connection event before the first tick.
	if msg, err := p.producer.Emit(r.Context(), models.SyncEventConnection, clientID, transportPush); err == nil {
		client.Enqueue(msg)
	}
}

// respondError writes the standard envelope for pre-upgrade failures.
func (p *Push) respondError(w http.ResponseWriter, appErr *apperrors.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.HTTPStatus())
	resp := models.APIResponse{
		Success:  false,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    appErr,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		p.log.Error().Err(err).Msg("failed to encode error response")
	}
}
