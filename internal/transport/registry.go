// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package transport

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rollcall-attendance/rollcall/internal/logging"
)

// Registry maintains the set of live push stream clients. It runs as a
// supervised service: Serve owns the clients map, and on shutdown every
// client is stopped exactly once before Serve returns.
type Registry struct {
	clients map[*StreamClient]bool

	Register   chan *StreamClient
	Unregister chan *StreamClient

	mu       sync.RWMutex
	done     chan struct{}
	doneOnce sync.Once
	log      zerolog.Logger
}

// NewRegistry creates an empty client registry.
func NewRegistry() *Registry {
	return &Registry{
		clients:    make(map[*StreamClient]bool),
		Register:   make(chan *StreamClient),
		Unregister: make(chan *StreamClient),
		done:       make(chan struct{}),
		log:        logging.WithComponent("push_registry"),
	}
}

// Serve runs the registry loop until the context is cancelled, then closes
// all clients and returns the context error. Designed for suture
// supervision: a supervisor restart gets a clean loop with whatever clients
// reconnect.
//
// Shutdown checks take priority over lifecycle traffic so a cancelled
// registry never accepts new clients while tearing down.
func (r *Registry) Serve(ctx context.Context) error {
	defer r.doneOnce.Do(func() { close(r.done) })

	for {
		// Shutdown first, non-blocking.
		select {
		case <-ctx.Done():
			r.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			r.shutdown(ctx)
			return ctx.Err()

		case client := <-r.Register:
			r.mu.Lock()
			r.clients[client] = true
			total := len(r.clients)
			r.mu.Unlock()
			r.log.Info().
				Str("client_id", client.clientID).
				Int("total_clients", total).
				Msg("stream client connected")

		case client := <-r.Unregister:
			r.mu.Lock()
			delete(r.clients, client)
			total := len(r.clients)
			r.mu.Unlock()
			r.log.Info().
				Str("client_id", client.clientID).
				Int("total_clients", total).
				Msg("stream client disconnected")
		}
	}
}

// Done is closed once Serve has exited. Client teardown selects on it so an
// unregister attempt cannot block against a stopped registry.
func (r *Registry) Done() <-chan struct{} {
	return r.done
}

// ClientCount returns the number of registered stream clients.
func (r *Registry) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// shutdown stops every client in ID order. Stopping only signals; each
// client's pumps run their own teardown, which finds Done() closed and
// skips the unregister roundtrip.
func (r *Registry) shutdown(ctx context.Context) {
	r.mu.Lock()
	clients := make([]*StreamClient, 0, len(r.clients))
	for client := range r.clients {
		clients = append(clients, client)
	}
	for client := range r.clients {
		delete(r.clients, client)
	}
	r.mu.Unlock()

	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	for _, client := range clients {
		client.stop()
	}

	reason := "context_canceled"
	if ctx.Err() == context.DeadlineExceeded {
		reason = "context_deadline"
	}
	r.log.Info().
		Str("reason", reason).
		Int("clients_closed", len(clients)).
		Msg("push registry stopped")
}
