// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/rollcall-attendance/rollcall/docs" // Import generated swagger docs
	"github.com/rollcall-attendance/rollcall/internal/api"
	"github.com/rollcall-attendance/rollcall/internal/attendance"
	"github.com/rollcall-attendance/rollcall/internal/audit"
	"github.com/rollcall-attendance/rollcall/internal/auth"
	"github.com/rollcall-attendance/rollcall/internal/authz"
	"github.com/rollcall-attendance/rollcall/internal/backup"
	"github.com/rollcall-attendance/rollcall/internal/cache"
	"github.com/rollcall-attendance/rollcall/internal/config"
	"github.com/rollcall-attendance/rollcall/internal/database"
	"github.com/rollcall-attendance/rollcall/internal/eventmirror"
	"github.com/rollcall-attendance/rollcall/internal/geofence"
	"github.com/rollcall-attendance/rollcall/internal/logging"
	"github.com/rollcall-attendance/rollcall/internal/roster"
	"github.com/rollcall-attendance/rollcall/internal/supervisor"
	"github.com/rollcall-attendance/rollcall/internal/supervisor/services"
	"github.com/rollcall-attendance/rollcall/internal/timesync"
	"github.com/rollcall-attendance/rollcall/internal/transport"
)

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Rollcall with supervisor tree")

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Str("environment", cfg.Server.Environment).
		Dur("sync_interval", cfg.TimeSync.SyncInterval).
		Dur("heartbeat_interval", cfg.TimeSync.HeartbeatInterval).
		Msg("Configuration loaded")

	// Initialize DuckDB. Demo subjects, sites, and rotations are seeded here
	// when SEED_DEMO_DATA=true.
	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	// Roster cache shared by the attendance service (reads) and the roster
	// importer (tag invalidation after rewrites).
	cacheStore, err := cache.New("rollcall", cache.Config{
		Backend:         cache.Backend(cfg.Cache.Store),
		Path:            cfg.Cache.Path,
		TTL:             cfg.Cache.TTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize cache")
	}
	defer func() {
		if err := cacheStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing cache")
		}
	}()
	logging.Info().Str("backend", cfg.Cache.Store).Msg("Cache initialized")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create structured logger for supervisor using our slog adapter
	// This bridges zerolog to slog for sutureslog compatibility
	slogLogger := logging.NewSlogLogger()

	// Create supervisor tree
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// Durable sync event log. The writer sits behind a circuit breaker so a
	// struggling database never stalls the live tick path.
	var eventSink transport.AuditSink
	if cfg.Audit.Enabled {
		eventSink = audit.NewWriterWith(db, audit.WriterSettings{
			FailureThreshold: cfg.Audit.BreakerThreshold,
			Cooldown:         cfg.Audit.BreakerCooldown,
		})
		logging.Info().
			Uint32("breaker_threshold", cfg.Audit.BreakerThreshold).
			Msg("Sync event audit log enabled")
	} else {
		logging.Info().Msg("Sync event audit log disabled (AUDIT_ENABLED=false)")
	}

	// Security trail: auth outcomes, authorization denials, and admin
	// actions, persisted in the security_events table.
	var trail *audit.Trail
	securityStore := audit.NewDuckDBStore(db.Conn())
	if err := securityStore.CreateTable(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to create security events table - security trail disabled")
	} else {
		trail = audit.NewTrail(securityStore, nil)
		defer func() {
			if err := trail.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing security trail")
			}
		}()
		trail.StartCleanupRoutine(ctx)
		logging.Info().Msg("Security trail initialized with DuckDB persistence")
	}

	// Domain layer: the time authority, drift reconciliation, and location
	// verification that clock session decisions are built on.
	authority := timesync.New(&cfg.TimeSync, db)
	reconciler := timesync.NewReconciler(db)
	verifier := geofence.New(&cfg.Geofence, db)

	// Delivery layer: one producer feeds both transports so the wire shape
	// and the audit trail cannot drift apart.
	producer := transport.NewProducer(authority, eventSink)
	registry := transport.NewRegistry()
	push := transport.NewPush(cfg, db, producer, authority, registry)
	poller := transport.NewPoller(cfg, db, producer)

	service := attendance.New(&cfg.Attendance, db, verifier, reconciler, cacheStore)

	switch cfg.Security.AuthMode {
	case "jwt":
		logging.Info().Msg("JWT authentication enabled")
	case "basic":
		logging.Info().Msg("Basic authentication enabled")
		logging.Warn().Msg("Basic Auth transmits credentials with each request. Use HTTPS in production!")
	case "oidc":
		logging.Info().Str("issuer", cfg.Security.OIDC.IssuerURL).Msg("OIDC authentication enabled")
	case "none":
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: Authentication is DISABLED (AUTH_MODE=none)")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  All endpoints are publicly accessible without authentication!")
		logging.Warn().Msg("  This mode should ONLY be used for:")
		logging.Warn().Msg("    - Local development")
		logging.Warn().Msg("    - Completely isolated private networks")
		logging.Warn().Msg("    - CI/CD testing environments")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  NEVER use AUTH_MODE=none in production or on public networks!")
		logging.Warn().Msg("============================================================")
	}

	sessions, err := auth.NewSessionStore(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize session store")
	}
	defer func() {
		if err := sessions.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing session store")
		}
	}()

	authMW, err := auth.NewMiddleware(ctx, &cfg.Security, sessions)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authentication")
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
		logging.Warn().Msg("This should only be used for load testing!")
	}

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: CORS is configured with wildcard origin (CORS_ORIGINS=*)")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  This allows ANY website to make cross-origin requests to your API.")
		logging.Warn().Msg("  With authentication enabled, this creates a security vulnerability:")
		logging.Warn().Msg("  attackers can steal credentials via malicious websites.")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  RECOMMENDED: Set specific origins in production:")
		logging.Warn().Msg("    CORS_ORIGINS=https://attendance.yourdomain.com")
		logging.Warn().Msg("============================================================")
	}

	if cfg.Security.SessionStore == "memory" && !cfg.IsDevelopment() {
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  NOTICE: Session store is set to 'memory' (SESSION_STORE=memory)")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  Sessions will be lost when the server restarts!")
		logging.Warn().Msg("  This is fine for development, but for production consider:")
		logging.Warn().Msg("    SESSION_STORE=badger")
		logging.Warn().Msg("    SESSION_STORE_PATH=/data/sessions")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  This provides persistent sessions across restarts.")
		logging.Warn().Msg("============================================================")
	}

	enforcer, err := authz.NewEnforcer(ctx, &cfg.Security.Casbin)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization")
	}
	authzMW := authz.NewMiddleware(enforcer)
	if trail != nil {
		authzMW.SetAuditor(trail)
	}

	handler := api.NewHandler(cfg, db, authority, service, push, poller, registry)
	if trail != nil {
		handler.SetTrail(trail)
	}

	// Password login needs the operator account and a JWT signing secret.
	// Outside jwt mode the endpoint still works when both are configured,
	// which lets oidc deployments keep a local break-glass account.
	if cfg.Security.JWTSecret != "" && cfg.Security.AdminUsername != "" && cfg.Security.AdminPassword != "" {
		jwtManager, err := auth.NewJWTManager(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
		basicManager, err := auth.NewBasicAuthManager(cfg.Security.AdminUsername, cfg.Security.AdminPassword)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize operator account")
		}
		handler.SetLoginBackend(jwtManager, basicManager, sessions)
		logging.Info().Msg("Password login enabled for the operator account")
	}

	// Sync event mirroring to NATS JetStream (optional - requires build with
	// -tags nats). New returns a nil mirror when mirroring is disabled; the
	// nil check must happen on the concrete pointer, before any interface
	// assignment.
	mirror, err := eventmirror.New(eventmirror.FromConfig(cfg.NATS))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize event mirror")
	}
	if mirror != nil {
		producer.SetMirror(mirror)
		authority.SetMirror(mirror)
		tree.AddMessagingService(services.NewEventMirrorService(mirror, 10*time.Second))
		logging.Info().Str("url", mirror.ClientURL()).Msg("Sync event mirroring enabled")
	}

	// Snapshot backups. The manager serves both the admin trigger endpoint
	// and, under the supervisor, the interval scheduler.
	var backups api.BackupManager
	if cfg.Backup.Enabled {
		var backupTrail backup.Trail
		if trail != nil {
			backupTrail = trail
		}
		manager := backup.NewManager(&cfg.Backup, db, backupTrail)
		backups = manager
		tree.AddMaintenanceService(services.NewBackupSchedulerService(manager))
		logging.Info().
			Str("dir", cfg.Backup.Dir).
			Dur("interval", cfg.Backup.Interval).
			Int("retention", cfg.Backup.Retention).
			Msg("Backup manager initialized")
	} else {
		logging.Info().Msg("Backup functionality disabled (BACKUP_ENABLED=false)")
	}

	// Roster import from a SQLite export. AutoStart runs one import in the
	// background at startup; later runs go through the admin endpoint.
	var importer api.RosterImporter
	if cfg.Import.Enabled {
		var importTrail roster.Trail
		if trail != nil {
			importTrail = trail
		}
		imp := roster.NewImporter(&cfg.Import, db, cacheStore, importTrail)
		importer = imp
		logging.Info().
			Str("path", cfg.Import.Path).
			Bool("dry_run", cfg.Import.DryRun).
			Bool("auto_start", cfg.Import.AutoStart).
			Msg("Roster import enabled")

		if cfg.Import.AutoStart {
			go func() {
				if _, err := imp.Run(ctx); err != nil {
					logging.Error().Err(err).Msg("Startup roster import failed")
				}
			}()
		}
	}
	handler.SetMaintenance(backups, importer)

	router := api.NewRouter(&cfg.Security, handler, authMW, authzMW)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	// Messaging layer services
	tree.AddMessagingService(services.NewPushRegistryService(registry))
	logging.Info().Msg("Push registry added to supervisor tree")

	// API layer services
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Rollcall stopped gracefully")
}
