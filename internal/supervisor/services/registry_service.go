// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package services

import (
	"context"
)

// ContextRegistry interface matches *transport.Registry's Serve method.
//
// This interface allows the PushRegistryService to work with the registry
// without importing the transport package, avoiding circular dependencies.
type ContextRegistry interface {
	Serve(ctx context.Context) error
}

// PushRegistryService wraps the WebSocket push registry as a supervised
// service.
//
// The registry's Serve method already implements the suture.Service
// pattern, so this wrapper simply delegates to it and provides a name
// for logging.
//
// Example usage:
//
//	registry := transport.NewRegistry()
//	svc := services.NewPushRegistryService(registry)
//	tree.AddMessagingService(svc)
type PushRegistryService struct {
	registry ContextRegistry
	name     string
}

// NewPushRegistryService creates a new push registry service wrapper.
func NewPushRegistryService(registry ContextRegistry) *PushRegistryService {
	return &PushRegistryService{
		registry: registry,
		name:     "push-registry",
	}
}

// Serve implements suture.Service.
//
// This method delegates to the registry's run loop which:
//  1. Processes client registration/unregistration and broadcasts
//  2. Returns when the context is canceled
//  3. Gracefully closes all clients on shutdown
//
// The method returns ctx.Err() on normal shutdown.
func (p *PushRegistryService) Serve(ctx context.Context) error {
	return p.registry.Serve(ctx)
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (p *PushRegistryService) String() string {
	return p.name
}
