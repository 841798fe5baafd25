// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

//go:build nats

package eventmirror

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/rollcall-attendance/rollcall/internal/logging"
	"github.com/rollcall-attendance/rollcall/internal/metrics"
	"github.com/rollcall-attendance/rollcall/internal/models"
)

const (
	// provisionTimeout bounds stream creation at startup.
	provisionTimeout = 30 * time.Second

	// shutdownTimeout bounds embedded server shutdown during teardown.
	shutdownTimeout = 10 * time.Second
)

// Mirror publishes sync events to a NATS JetStream stream. It holds an
// optional embedded server, a management connection used for stream
// provisioning, and a watermill publisher that owns its own connection
// with unlimited reconnects.
//
// Record never returns an error; the mirror is strictly best-effort and
// the DuckDB write path does not depend on it.
type Mirror struct {
	cfg       Config
	url       string
	server    *EmbeddedServer
	conn      *natsgo.Conn
	publisher message.Publisher
	events    *logging.EventLogger

	mu     sync.RWMutex
	closed bool
}

// New starts the mirror: the embedded server when configured, the broker
// connection, stream provisioning, and the publisher. It returns
// (nil, nil) when mirroring is disabled so callers can skip wiring with a
// plain nil check on the concrete pointer.
func New(cfg Config) (*Mirror, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	log := logging.WithComponent("eventmirror")
	m := &Mirror{cfg: cfg, events: logging.NewEventLogger()}

	m.url = cfg.URL
	if cfg.EmbeddedServer {
		srv, err := NewEmbeddedServer(cfg.Server)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		m.server = srv
		m.url = srv.ClientURL()
		log.Info().
			Str("url", m.url).
			Str("store_dir", cfg.Server.StoreDir).
			Msg("embedded NATS server started")
	}

	conn, err := natsgo.Connect(m.url,
		natsgo.Name("rollcall-eventmirror"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		m.teardown()
		return nil, fmt.Errorf("connect to NATS at %s: %w", m.url, err)
	}
	m.conn = conn

	js, err := jetstream.New(conn)
	if err != nil {
		m.teardown()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), provisionTimeout)
	defer cancel()
	if err := ensureStream(ctx, js, cfg.Stream); err != nil {
		m.teardown()
		return nil, err
	}

	pub, err := newPublisher(m.url, newWatermillLogger(log))
	if err != nil {
		m.teardown()
		return nil, err
	}
	m.publisher = pub

	m.events.LogMirrorStarted(cfg.SubjectPrefix)
	return m, nil
}

// newPublisher builds the watermill NATS publisher. The stream is
// pre-provisioned by ensureStream, so auto-provisioning stays off;
// TrackMsgId makes JetStream deduplicate on the Nats-Msg-Id header within
// the stream's duplicate window.
func newPublisher(url string, logger watermill.LoggerAdapter) (message.Publisher, error) {
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	return pub, nil
}

// Record publishes one sync event to <prefix>.<event_type>. It satisfies
// the sink contracts of the transport producer and the time authority:
// failures are logged and counted, never returned, so a broker outage
// cannot stall a tick or fail a drift report that already landed in the
// database.
func (m *Mirror) Record(ctx context.Context, event *models.SyncEvent) {
	if event == nil {
		return
	}

	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return
	}

	id := event.ID.String()
	if event.ID == uuid.Nil {
		// The database layer assigns IDs on insert; if the audit write
		// was rejected the event arrives without one, so mint a key for
		// deduplication rather than dropping the mirror copy too.
		id = uuid.NewString()
	}

	data, err := json.Marshal(event)
	if err != nil {
		metrics.RecordMirrorPublish(err)
		m.events.LogPublishFailed(ctx, id, err)
		return
	}

	msg := message.NewMessage(id, data)
	msg.SetContext(ctx)
	msg.Metadata.Set(natsgo.MsgIdHdr, id)
	msg.Metadata.Set("client_id", event.ClientID)
	msg.Metadata.Set("event_type", string(event.EventType))

	topic := m.cfg.SubjectPrefix + "." + string(event.EventType)
	if err := m.publisher.Publish(topic, msg); err != nil {
		metrics.RecordMirrorPublish(err)
		m.events.LogPublishFailed(ctx, id, err)
		return
	}

	metrics.RecordMirrorPublish(nil)
	m.events.LogEventPublished(ctx, id, topic)
}

// ClientURL returns the broker URL the mirror publishes to. For an
// embedded server this is the concrete listen address.
func (m *Mirror) ClientURL() string {
	return m.url
}

// Close tears the mirror down in dependency order: publisher first, then
// the management connection, then the embedded server so nothing is still
// talking to it. Close is idempotent.
func (m *Mirror) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	var firstErr error
	if m.publisher != nil {
		if err := m.publisher.Close(); err != nil {
			firstErr = fmt.Errorf("close publisher: %w", err)
		}
	}
	m.teardown()

	m.events.LogMirrorStopped(m.cfg.SubjectPrefix)
	return firstErr
}

// teardown releases the management connection and the embedded server.
// Used by Close and by New's failure paths, where later resources were
// never constructed.
func (m *Mirror) teardown() {
	if m.conn != nil {
		m.conn.Close()
	}
	if m.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := m.server.Shutdown(ctx); err != nil {
			logging.Warn().Err(err).Msg("embedded NATS server shutdown failed")
		}
	}
}
