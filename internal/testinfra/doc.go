// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

// Package testinfra provides container-backed infrastructure for
// integration tests.
//
// The package uses testcontainers-go to manage Docker containers so
// integration tests run against real services instead of mocks. Every
// helper is behind the `integration` build tag; tests that use them
// should call SkipIfNoDocker first so suites degrade gracefully on
// machines without a Docker daemon.
//
// # NATS Container
//
// NATSContainer runs a real NATS server with JetStream for exercising the
// event mirror's external-broker path (the embedded-server path needs no
// container):
//
//	func TestMirrorAgainstExternalBroker(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//
//	    ctx := context.Background()
//	    broker, err := testinfra.NewNATSContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, broker.Container)
//
//	    cfg := eventmirror.FromConfig(config.NATSConfig{Enabled: true, URL: broker.URL})
//	    cfg.EmbeddedServer = false
//	    mirror, err := eventmirror.New(cfg)
//	    // ...
//	}
//
// Running a real broker validates the actual wire contract: stream
// provisioning against a fresh JetStream domain, reconnect options, and
// the deduplication window behave exactly as they will in production.
package testinfra
