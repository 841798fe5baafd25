// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package transport

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rollcall-attendance/rollcall/internal/apperrors"
	"github.com/rollcall-attendance/rollcall/internal/config"
	"github.com/rollcall-attendance/rollcall/internal/logging"
	"github.com/rollcall-attendance/rollcall/internal/metrics"
	"github.com/rollcall-attendance/rollcall/internal/models"
)

// Poll wait bounds and the not-yet-due backoff ramp.
const (
	defaultPollWait = 30 * time.Second
	maxPollWait     = 60 * time.Second

	backoffBase = 1000 * time.Millisecond
	backoffStep = 200 * time.Millisecond
	backoffCap  = 5000 * time.Millisecond
)

// PollRequest is one long-poll attempt. LastEventTime is the client's
// cursor: the server time of the last event it processed, zero for a first
// poll. Timeout is the client's requested wait; zero takes the default and
// anything above the configured maximum is clamped.
type PollRequest struct {
	ClientID      string
	Timeout       time.Duration
	LastEventTime time.Time
}

// PollStore is the slice of the database layer the poll transport uses.
type PollStore interface {
	GetSyncSession(ctx context.Context, clientID string) (*models.SyncSession, error)
	UpsertSyncSession(ctx context.Context, session *models.SyncSession) error
	RefreshSyncSessionStatus(ctx context.Context, clientID string, protocol models.SyncProtocol) error
}

// Poller serves the bounded long-poll transport. Each call returns exactly
// one event: time_sync once the client is due, heartbeat when the wait
// expires first. Expiry is a success: a client on a flaky network still
// gets a liveness answer it can set its retry timer by.
type Poller struct {
	cfg      *config.Config
	store    PollStore
	producer *Producer
	log      zerolog.Logger
}

// NewPoller creates the poll transport.
func NewPoller(cfg *config.Config, store PollStore, producer *Producer) *Poller {
	return &Poller{
		cfg:      cfg,
		store:    store,
		producer: producer,
		log:      logging.WithComponent("poll"),
	}
}

// Poll waits until the client is due for a time_sync or the wait expires,
// whichever comes first. Due means at least MinSyncInterval has passed
// since the later of the client's cursor and the session's last_sync_at,
// so a client ticking on the push stream cannot double-dip via poll. The
// wait sleeps on a ramping backoff, clamped so it never sleeps past the
// due point or the deadline. Context cancellation is the only error path.
func (p *Poller) Poll(ctx context.Context, req PollRequest) (*SyncEventMessage, error) {
	if req.ClientID == "" {
		return nil, apperrors.Validation("CLIENT_ID_REQUIRED", "client_id is required for polling")
	}

	start := time.Now()
	deadline := start.Add(p.clampWait(req.Timeout))

	for attempt := 0; ; attempt++ {
		untilDue := p.untilDue(ctx, req)
		if untilDue <= 0 {
			return p.deliverTimeSync(ctx, req.ClientID, start)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return p.deliverHeartbeat(ctx, req.ClientID, start)
		}

		sleep := backoffFor(attempt)
		if sleep > untilDue {
			sleep = untilDue
		}
		if sleep > remaining {
			sleep = remaining
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// untilDue computes how long until the client deserves a time_sync. A
// session read failure falls back to the client-supplied cursor: delivery
// must not break because the session row was briefly unreadable.
func (p *Poller) untilDue(ctx context.Context, req PollRequest) time.Duration {
	base := req.LastEventTime

	session, err := p.store.GetSyncSession(ctx, req.ClientID)
	if err != nil {
		p.log.Warn().Err(err).Str("client_id", req.ClientID).
			Msg("sync session read failed, using client cursor")
	} else if session != nil && session.LastSyncAt.After(base) {
		base = session.LastSyncAt
	}

	if base.IsZero() {
		return 0
	}
	return p.minSyncInterval() - time.Since(base)
}

func (p *Poller) deliverTimeSync(ctx context.Context, clientID string, start time.Time) (*SyncEventMessage, error) {
	now := time.Now()
	session := &models.SyncSession{
		ClientID:    clientID,
		Protocol:    models.ProtocolPoll,
		Status:      models.SyncStatusActive,
		LastSyncAt:  now,
		ConnectedAt: now,
	}
	if err := p.store.UpsertSyncSession(ctx, session); err != nil {
		// Delivery wins; the audit row still lands via the producer.
		p.log.Warn().Err(err).Str("client_id", clientID).Msg("failed to advance poll session")
	}

	msg, err := p.producer.Emit(ctx, models.SyncEventTimeSync, clientID, transportPoll)
	if err != nil {
		return nil, err
	}
	metrics.RecordPollResult("time_sync", time.Since(start))
	return msg, nil
}

func (p *Poller) deliverHeartbeat(ctx context.Context, clientID string, start time.Time) (*SyncEventMessage, error) {
	if err := p.store.RefreshSyncSessionStatus(ctx, clientID, models.ProtocolPoll); err != nil {
		p.log.Warn().Err(err).Str("client_id", clientID).Msg("failed to refresh poll session")
	}

	msg, err := p.producer.Emit(ctx, models.SyncEventHeartbeat, clientID, transportPoll)
	if err != nil {
		return nil, err
	}
	metrics.RecordPollResult("heartbeat", time.Since(start))
	return msg, nil
}

func (p *Poller) clampWait(timeout time.Duration) time.Duration {
	max := maxPollWait
	if p.cfg != nil && p.cfg.Transport.Poll.MaxWait > 0 {
		max = p.cfg.Transport.Poll.MaxWait
	}
	if timeout <= 0 {
		timeout = defaultPollWait
	}
	if timeout > max {
		timeout = max
	}
	return timeout
}

func (p *Poller) minSyncInterval() time.Duration {
	if p.cfg != nil && p.cfg.TimeSync.MinSyncInterval > 0 {
		return p.cfg.TimeSync.MinSyncInterval
	}
	return 5 * time.Second
}

// backoffFor ramps the retry sleep: 1000ms base plus 200ms per attempt,
// capped at 5000ms.
func backoffFor(attempt int) time.Duration {
	backoff := backoffBase + time.Duration(attempt)*backoffStep
	if backoff > backoffCap {
		backoff = backoffCap
	}
	return backoff
}
