// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rollcall-attendance/rollcall/internal/config"
	"github.com/rollcall-attendance/rollcall/internal/logging"
	"github.com/rollcall-attendance/rollcall/internal/models"
	"github.com/rollcall-attendance/rollcall/internal/timesync"
)

// Fallbacks for unset transport tuning. Normal deployments take these from
// config; tests construct clients directly.
const (
	defaultWriteWait        = 10 * time.Second
	defaultPongWait         = 60 * time.Second
	defaultMaxMessageSize   = 1024
	defaultInboundPerSecond = 5
	defaultInboundBurst     = 10
	teardownTimeout         = 5 * time.Second
)

// clientIDCounter hands out registry ordering IDs. Clients are closed in
// ID order on shutdown so teardown is reproducible.
var clientIDCounter atomic.Uint64

// DriftReporter ingests client time samples arriving over the stream.
type DriftReporter interface {
	ReportClientTime(ctx context.Context, clientID string, clientTime time.Time, clientTimestamp int64) (*timesync.DriftReport, error)
}

// SessionStore is the slice of the database layer the push transport
// maintains its session rows through.
type SessionStore interface {
	UpsertSyncSession(ctx context.Context, session *models.SyncSession) error
	TouchSyncSession(ctx context.Context, clientID string, at time.Time) error
	MarkSyncSessionInactive(ctx context.Context, clientID string) error
}

// inboundMessage is a frame sent by the client: a ping expecting a pong, or
// a client_time sample feeding drift measurement.
type inboundMessage struct {
	Type       string `json:"type"`
	Timestamp  int64  `json:"timestamp,omitempty"`
	ClientTime string `json:"client_time,omitempty"`
}

// streamSettings carries the per-connection tuning knobs.
type streamSettings struct {
	writeWait         time.Duration
	pongWait          time.Duration
	maxMessageSize    int64
	syncInterval      time.Duration
	heartbeatInterval time.Duration
	inboundPerSecond  float64
	inboundBurst      int
}

// settingsFromConfig extracts stream tuning from config, falling back to
// defaults for anything unset.
func settingsFromConfig(cfg *config.Config) streamSettings {
	s := streamSettings{
		writeWait:         defaultWriteWait,
		pongWait:          defaultPongWait,
		maxMessageSize:    defaultMaxMessageSize,
		syncInterval:      5 * time.Second,
		heartbeatInterval: 30 * time.Second,
		inboundPerSecond:  defaultInboundPerSecond,
		inboundBurst:      defaultInboundBurst,
	}
	if cfg == nil {
		return s
	}
	if cfg.Transport.Push.WriteWait > 0 {
		s.writeWait = cfg.Transport.Push.WriteWait
	}
	if cfg.Transport.Push.PongWait > 0 {
		s.pongWait = cfg.Transport.Push.PongWait
	}
	if cfg.Transport.Push.MaxMessageSize > 0 {
		s.maxMessageSize = cfg.Transport.Push.MaxMessageSize
	}
	if cfg.Transport.Push.InboundPerSecond > 0 {
		s.inboundPerSecond = cfg.Transport.Push.InboundPerSecond
	}
	if cfg.Transport.Push.InboundBurst > 0 {
		s.inboundBurst = cfg.Transport.Push.InboundBurst
	}
	if cfg.TimeSync.SyncInterval > 0 {
		s.syncInterval = cfg.TimeSync.SyncInterval
	}
	if cfg.TimeSync.HeartbeatInterval > 0 {
		s.heartbeatInterval = cfg.TimeSync.HeartbeatInterval
	}
	return s
}

// StreamClient is one push connection. The write pump drives the time_sync
// and heartbeat tickers; the read pump consumes client frames under a rate
// limit. Either pump's exit tears the whole connection down exactly once.
type StreamClient struct {
	id       uint64
	clientID string

	conn     *websocket.Conn
	registry *Registry
	producer *Producer
	reporter DriftReporter
	sessions SessionStore
	settings streamSettings
	limiter  *rate.Limiter

	send chan *SyncEventMessage

	done         chan struct{}
	stopOnce     sync.Once
	teardownOnce sync.Once

	log zerolog.Logger
}

// NewStreamClient creates a stream client for an upgraded connection.
func NewStreamClient(conn *websocket.Conn, clientID string, registry *Registry, producer *Producer, reporter DriftReporter, sessions SessionStore, settings streamSettings) *StreamClient {
	return &StreamClient{
		id:       clientIDCounter.Add(1),
		clientID: clientID,
		conn:     conn,
		registry: registry,
		producer: producer,
		reporter: reporter,
		sessions: sessions,
		settings: settings,
		limiter:  rate.NewLimiter(rate.Limit(settings.inboundPerSecond), settings.inboundBurst),
		send:     make(chan *SyncEventMessage, 256),
		done:     make(chan struct{}),
		log:      logging.WithComponent("push_stream").With().Str("client_id", clientID).Logger(),
	}
}

// Start launches the read and write pumps.
func (c *StreamClient) Start() {
	go c.writePump()
	go c.readPump()
}

// Enqueue hands a message to the write pump without blocking. A full send
// buffer drops the message; the periodic tickers make up for it.
func (c *StreamClient) Enqueue(msg *SyncEventMessage) {
	select {
	case c.send <- msg:
	default:
		c.log.Warn().Str("type", msg.Type).Msg("send buffer full, dropping message")
	}
}

// stop signals both pumps to exit. Safe to call from any goroutine, any
// number of times.
func (c *StreamClient) stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// teardown runs the once-only connection cleanup: unregister, flip the
// sync session inactive, close the socket. Both pumps call it on exit;
// whichever arrives first wins and closing the connection unblocks the
// other.
func (c *StreamClient) teardown() {
	c.teardownOnce.Do(func() {
		c.stop()

		select {
		case c.registry.Unregister <- c:
		case <-c.registry.Done():
			// Registry already shut down and emptied its map.
		}

		// Parent contexts are gone by now; bound the final write ourselves.
		ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		defer cancel()
		if err := c.sessions.MarkSyncSessionInactive(ctx, c.clientID); err != nil {
			c.log.Warn().Err(err).Msg("failed to mark sync session inactive")
		}

		_ = c.conn.Close()
	})
}

// writePump owns all writes to the connection: enqueued messages, the
// time_sync ticker, and the heartbeat ticker. Heartbeats ride with a
// protocol ping so an otherwise silent client keeps answering pongs and
// the read deadline stays fed.
func (c *StreamClient) writePump() {
	syncTicker := time.NewTicker(c.settings.syncInterval)
	heartbeatTicker := time.NewTicker(c.settings.heartbeatInterval)
	defer func() {
		syncTicker.Stop()
		heartbeatTicker.Stop()
		c.teardown()
	}()

	ctx := context.Background()
	for {
		select {
		case <-c.done:
			c.writeCloseFrame()
			return

		case msg := <-c.send:
			if err := c.writeMessage(msg); err != nil {
				return
			}

		case <-syncTicker.C:
			msg, err := c.producer.Emit(ctx, models.SyncEventTimeSync, c.clientID, transportPush)
			if err != nil {
				return
			}
			if err := c.writeMessage(msg); err != nil {
				return
			}
			if err := c.sessions.TouchSyncSession(ctx, c.clientID, time.Now()); err != nil {
				c.log.Warn().Err(err).Msg("failed to advance sync watermark")
			}

		case <-heartbeatTicker.C:
			msg, err := c.producer.Emit(ctx, models.SyncEventHeartbeat, c.clientID, transportPush)
			if err != nil {
				return
			}
			if err := c.writeMessage(msg); err != nil {
				return
			}
			if err := c.writePing(); err != nil {
				return
			}
		}
	}
}

func (c *StreamClient) writeMessage(msg *SyncEventMessage) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.settings.writeWait)); err != nil {
		c.log.Error().Err(err).Msg("failed to set write deadline")
		return err
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		c.log.Debug().Err(err).Str("type", msg.Type).Msg("write failed, closing stream")
		return err
	}
	return nil
}

func (c *StreamClient) writePing() error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.settings.writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

func (c *StreamClient) writeCloseFrame() {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.settings.writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down"))
}

// readPump consumes client frames until the connection drops. Frames
// beyond the rate limit are dropped, not fatal: a chatty client loses
// samples, not its stream.
func (c *StreamClient) readPump() {
	defer c.teardown()

	c.conn.SetReadLimit(c.settings.maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.settings.pongWait)); err != nil {
		c.log.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.settings.pongWait))
	})

	ctx := context.Background()
	for {
		var msg inboundMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("unexpected stream close")
			}
			return
		}
		// Any well-formed frame proves liveness.
		_ = c.conn.SetReadDeadline(time.Now().Add(c.settings.pongWait))

		if !c.limiter.Allow() {
			c.log.Debug().Str("type", msg.Type).Msg("inbound frame over rate limit, dropped")
			continue
		}

		switch msg.Type {
		case MessageTypePing:
			now := time.Now()
			c.Enqueue(&SyncEventMessage{
				Type:       MessageTypePong,
				Timestamp:  now.UnixMilli(),
				ServerTime: now.Format(time.RFC3339Nano),
				ClientID:   c.clientID,
			})

		case MessageTypeClientTime:
			c.handleClientTime(ctx, msg)

		default:
			c.log.Debug().Str("type", msg.Type).Msg("ignoring unknown inbound frame")
		}
	}
}

// handleClientTime feeds an inbound clock sample to the drift reporter.
func (c *StreamClient) handleClientTime(ctx context.Context, msg inboundMessage) {
	if msg.Timestamp == 0 {
		c.log.Debug().Msg("client_time frame without timestamp, ignored")
		return
	}

	clientTime, err := time.Parse(time.RFC3339Nano, msg.ClientTime)
	if err != nil {
		clientTime = time.UnixMilli(msg.Timestamp).UTC()
	}

	report, err := c.reporter.ReportClientTime(ctx, c.clientID, clientTime, msg.Timestamp)
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to record client time sample")
		return
	}
	c.log.Debug().
		Int64("drift_ms", report.DriftMs).
		Str("accuracy", string(report.Accuracy)).
		Msg("drift measured over stream")
}
