// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package config

import (
	"time"
)

// Config holds all application configuration loaded from environment variables and config files.
// Provides centralized configuration management for all application components including
// the time authority, sync transports, clock session handling, geofencing, database,
// server, API, security, and logging.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting via environment variables
//
// Configuration Categories:
//
//  1. Core Domain:
//     - TimeSync: Server time authority and sync cadence (push/poll intervals)
//     - Transport: WebSocket push and long-poll tuning
//     - Geofence: Location verification radii, accuracy tiers, strict mode
//     - Attendance: Clock session rules
//
//  2. Infrastructure:
//     - Database: DuckDB configuration (path, memory, demo data)
//     - Cache: Site/rotation read cache (memory or BadgerDB)
//     - NATS: Sync event mirroring with Watermill/NATS JetStream (optional)
//     - Backup: Scheduled database exports
//     - Import: Roster import from a SQLite export
//
//  3. API & Security:
//     - Server: HTTP server configuration (port, host, timeout, environment)
//     - API: Pagination and response limits
//     - Security: Authentication, rate limiting, session management
//
//  4. Observability:
//     - Logging: Log levels and output formats
//     - Audit: Durable sync event logging and its circuit breaker
//
// Example - Load configuration from environment:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	// cfg.TimeSync.SyncInterval, cfg.Database.Path, etc. are now populated
//
// Example - Access configuration values:
//
//	db, err := database.New(cfg.Database)
//	authority := timesync.NewAuthority(db, cfg.TimeSync)
//	server := http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)}
//
// Validation:
// The Load() function validates all required fields and returns an error if:
//   - Values are malformed (invalid URL format, negative durations)
//   - Authentication is enabled but credentials are incomplete
//   - Production mode is combined with insecure settings (wildcard CORS, no auth)
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access from multiple goroutines.
type Config struct {
	Database   DatabaseConfig   `koanf:"database"`
	Server     ServerConfig     `koanf:"server"`
	API        APIConfig        `koanf:"api"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
	TimeSync   TimeSyncConfig   `koanf:"time_sync"`
	Transport  TransportConfig  `koanf:"transport"`
	Geofence   GeofenceConfig   `koanf:"geofence"`
	Attendance AttendanceConfig `koanf:"attendance"`
	Cache      CacheConfig      `koanf:"cache"`
	Audit      AuditConfig      `koanf:"audit"`
	NATS       NATSConfig       `koanf:"nats"`   // Optional: Sync event mirroring with Watermill/NATS JetStream (build tag "nats")
	Backup     BackupConfig     `koanf:"backup"` // Optional: Scheduled DuckDB exports with retention
	Import     ImportConfig     `koanf:"import"` // Optional: Roster import from SQLite export (sites, rotations, assignments)
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"`                  // Number of DuckDB threads (0 = use NumCPU)
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"` // Whether to preserve insertion order (default true)
	SeedDemoData           bool   `koanf:"seed_demo_data"`           // Seed demo subjects, sites, and rotations for dev/tests
	SkipIndexes            bool   `koanf:"skip_indexes"`             // Skip index creation (for fast test setup)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // Environment mode: "development", "staging", "production" (default: "development")
}

// APIConfig holds API pagination and response settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SecurityConfig holds authentication and authorization settings.
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"`
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	AdminUsername     string        `koanf:"admin_username"`
	AdminPassword     string        `koanf:"admin_password"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	TrustedProxies    []string      `koanf:"trusted_proxies"`

	// BasicAuthDefaultRole is the default role for Basic Auth users (default: student).
	// The configured admin user (ADMIN_USERNAME) is automatically assigned admin role.
	BasicAuthDefaultRole string `koanf:"basic_auth_default_role"`

	// SessionStore specifies the session storage backend: "memory" or "badger" (default).
	SessionStore string `koanf:"session_store"`
	// SessionStorePath is the path for BadgerDB storage (required when session_store=badger).
	SessionStorePath string `koanf:"session_store_path"`

	OIDC   OIDCConfig   `koanf:"oidc"`   // OIDC bearer token introspection
	Casbin CasbinConfig `koanf:"casbin"` // Casbin RBAC authorization
}

// OIDCConfig holds OIDC bearer token introspection settings.
// Rollcall acts as an OAuth 2.0 resource server: clients present access tokens
// issued by an external provider, and Rollcall validates them via the
// provider's introspection endpoint.
//
// Environment Variables:
//   - OIDC_ISSUER_URL: OIDC provider issuer URL (required for oidc auth mode)
//   - OIDC_CLIENT_ID: OAuth 2.0 client ID (required for oidc auth mode)
//   - OIDC_CLIENT_SECRET: OAuth 2.0 client secret (required for oidc auth mode)
//   - OIDC_ROLES_CLAIM: Token claim containing user roles (default: roles)
//   - OIDC_DEFAULT_ROLES: Default roles for users without the claim (default: student)
//   - OIDC_USERNAME_CLAIMS: Claims to use for username (default: preferred_username,name,email)
type OIDCConfig struct {
	IssuerURL      string   `koanf:"issuer_url"`
	ClientID       string   `koanf:"client_id"`
	ClientSecret   string   `koanf:"client_secret"`
	RolesClaim     string   `koanf:"roles_claim"`
	DefaultRoles   []string `koanf:"default_roles"`
	UsernameClaims []string `koanf:"username_claims"`
}

// CasbinConfig holds Casbin RBAC authorization settings.
//
// Environment Variables:
//   - CASBIN_MODEL_PATH: Path to Casbin model file (default: embedded)
//   - CASBIN_POLICY_PATH: Path to Casbin policy file (default: embedded)
//   - CASBIN_DEFAULT_ROLE: Default role for users without explicit role (default: student)
//   - CASBIN_AUTO_RELOAD: Enable automatic policy reload (default: true)
//   - CASBIN_RELOAD_INTERVAL: Policy reload interval (default: 30s)
//   - CASBIN_CACHE_ENABLED: Enable authorization decision caching (default: true)
//   - CASBIN_CACHE_TTL: Authorization cache TTL (default: 5m)
type CasbinConfig struct {
	ModelPath      string        `koanf:"model_path"`
	PolicyPath     string        `koanf:"policy_path"`
	DefaultRole    string        `koanf:"default_role"`
	AutoReload     bool          `koanf:"auto_reload"`
	ReloadInterval time.Duration `koanf:"reload_interval"`
	CacheEnabled   bool          `koanf:"cache_enabled"`
	CacheTTL       time.Duration `koanf:"cache_ttl"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// JSON is recommended for production (structured, machine-parseable).
	// Console is human-readable for development.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Adds slight performance overhead.
	// Default: false
	Caller bool `koanf:"caller"`
}

// TimeSyncConfig holds the time authority and sync cadence settings.
// These intervals drive both transports: the push stream emits on tickers,
// and the poll endpoint gates delivery on MinSyncInterval.
//
// Environment Variables:
//   - SYNC_INTERVAL: Push stream time_sync cadence (default: 5s)
//   - HEARTBEAT_INTERVAL: Push stream heartbeat cadence (default: 30s)
//   - MIN_SYNC_INTERVAL: Minimum gap between time_sync events per client (default: 5s)
//   - SYNC_STATS_WINDOW: Trailing window for per-client drift statistics (default: 5m)
type TimeSyncConfig struct {
	// SyncInterval is how often the push stream emits time_sync events.
	SyncInterval time.Duration `koanf:"sync_interval"`

	// HeartbeatInterval is how often the push stream emits heartbeat events.
	// Heartbeats confirm liveness without updating sync state.
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval"`

	// MinSyncInterval is the minimum time between time_sync deliveries to a
	// single client, across transports. The poll endpoint withholds events
	// until this much time has passed since the client's last sync.
	MinSyncInterval time.Duration `koanf:"min_sync_interval"`

	// StatsWindow is the trailing window used to aggregate per-client drift
	// statistics (event count, average drift, max absolute drift).
	StatsWindow time.Duration `koanf:"stats_window"`
}

// TransportConfig holds per-transport tuning for the sync delivery layer.
type TransportConfig struct {
	Push PushConfig `koanf:"push"`
	Poll PollConfig `koanf:"poll"`
}

// PushConfig holds WebSocket push stream settings.
//
// Environment Variables:
//   - PUSH_WRITE_WAIT: Write deadline for outbound frames (default: 10s)
//   - PUSH_PONG_WAIT: Pong response deadline; ping period is 9/10 of this (default: 60s)
//   - PUSH_MAX_MESSAGE_SIZE: Maximum inbound frame size in bytes (default: 1024)
//   - PUSH_INBOUND_PER_SECOND: Inbound frame rate limit per connection (default: 5)
//   - PUSH_INBOUND_BURST: Inbound frame burst allowance (default: 10)
type PushConfig struct {
	WriteWait        time.Duration `koanf:"write_wait"`
	PongWait         time.Duration `koanf:"pong_wait"`
	MaxMessageSize   int64         `koanf:"max_message_size"`
	InboundPerSecond float64       `koanf:"inbound_per_second"`
	InboundBurst     int           `koanf:"inbound_burst"`
}

// PollConfig holds long-poll settings.
//
// Environment Variables:
//   - POLL_MAX_WAIT: Upper bound on a single poll's wait, regardless of the
//     client-requested timeout (default: 60s)
type PollConfig struct {
	MaxWait time.Duration `koanf:"max_wait"`
}

// GeofenceConfig holds location verification settings.
//
// Accuracy tiers classify the reported GPS accuracy radius: readings within
// HighAccuracyM are "high", within MediumAccuracyM "medium", within
// MaxAccuracyM "low" but acceptable, and beyond MaxAccuracyM unacceptable.
//
// Environment Variables:
//   - GEOFENCE_STRICT: Promote geofence/accuracy warnings to hard failures (default: false)
//   - GEOFENCE_MIN_RADIUS_M: Floor for per-site allowed radius (default: 100)
//   - GEOFENCE_HIGH_ACCURACY_M: High accuracy tier threshold (default: 10)
//   - GEOFENCE_MEDIUM_ACCURACY_M: Medium accuracy tier threshold (default: 50)
//   - GEOFENCE_MAX_ACCURACY_M: Maximum acceptable GPS accuracy (default: 100)
//   - GEOFENCE_MAX_SPEED_KMH: Impossible travel threshold between successive
//     verifications (default: 800, roughly commercial flight speed)
type GeofenceConfig struct {
	// StrictMode promotes geofence and accuracy warnings to hard errors for
	// the whole deployment. Individual sites can override via their
	// enforce_geofence column.
	StrictMode bool `koanf:"strict_mode"`

	// MinRadiusM is the minimum effective geofence radius in meters. Sites
	// with a smaller configured radius are verified against this floor.
	MinRadiusM float64 `koanf:"min_radius_m"`

	HighAccuracyM   float64 `koanf:"high_accuracy_m"`
	MediumAccuracyM float64 `koanf:"medium_accuracy_m"`
	MaxAccuracyM    float64 `koanf:"max_accuracy_m"`

	// MaxSpeedKmh flags physically impossible movement between a subject's
	// successive location verifications. 0 disables the check.
	MaxSpeedKmh float64 `koanf:"max_speed_kmh"`
}

// AttendanceConfig holds clock session rules.
type AttendanceConfig struct {
	// MinSessionDuration rejects clock-outs before this much time has
	// elapsed since clock-in. Equality is allowed. Default: 0 (disabled).
	MinSessionDuration time.Duration `koanf:"min_session_duration"`
}

// CacheConfig holds read-cache settings for site, rotation, and assignment
// lookups on the clock-in path.
//
// Environment Variables:
//   - CACHE_STORE: Backend: "memory" (default) or "badger"
//   - CACHE_PATH: BadgerDB directory (required when cache_store=badger)
//   - CACHE_TTL: Entry lifetime (default: 5m)
//   - CACHE_CLEANUP_INTERVAL: Expired entry sweep cadence (default: 10m)
type CacheConfig struct {
	Store           string        `koanf:"store"`
	Path            string        `koanf:"path"`
	TTL             time.Duration `koanf:"ttl"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// AuditConfig holds durable sync event logging settings.
// Every emitted sync event is recorded as a sync_events row; failures are
// isolated from the live tick path by a circuit breaker so a struggling
// database never stalls connected clients.
//
// Environment Variables:
//   - AUDIT_ENABLED: Record sync events durably (default: true)
//   - AUDIT_BREAKER_THRESHOLD: Consecutive write failures before the breaker opens (default: 5)
//   - AUDIT_BREAKER_COOLDOWN: Open state duration before retrying writes (default: 30s)
type AuditConfig struct {
	Enabled          bool          `koanf:"enabled"`
	BreakerThreshold uint32        `koanf:"breaker_threshold"`
	BreakerCooldown  time.Duration `koanf:"breaker_cooldown"`
}

// NATSConfig holds sync event mirroring settings. When enabled (and the
// binary is built with the "nats" tag), every sync event is published to
// NATS JetStream for external consumers alongside the DuckDB audit trail.
//
// Environment Variables:
//   - NATS_ENABLED: Enable event mirroring (default: false)
//   - NATS_URL: NATS server connection URL (default: nats://127.0.0.1:4222)
//   - NATS_EMBEDDED: Run an embedded NATS server (default: true)
//   - NATS_STORE_DIR: JetStream storage directory (default: /data/nats/jetstream)
//   - NATS_MAX_MEMORY: JetStream memory cap in bytes (default: 256MB)
//   - NATS_MAX_STORE: JetStream disk cap in bytes (default: 2GB)
//   - NATS_RETENTION_DAYS: Event retention (default: 7)
//   - NATS_SUBJECT_PREFIX: Subject prefix for published events (default: rollcall.sync)
type NATSConfig struct {
	// Enabled controls whether event mirroring is active.
	Enabled bool `koanf:"enabled"`

	// URL is the NATS server connection URL.
	URL string `koanf:"url"`

	// EmbeddedServer enables an embedded NATS server.
	// If false, expects an external NATS server at URL.
	EmbeddedServer bool `koanf:"embedded_server"`

	// StoreDir is the JetStream storage directory.
	StoreDir string `koanf:"store_dir"`

	// MaxMemory is the maximum memory for JetStream in bytes.
	MaxMemory int64 `koanf:"max_memory"`

	// MaxStore is the maximum disk storage for JetStream in bytes.
	MaxStore int64 `koanf:"max_store"`

	// StreamRetentionDays is how long to keep mirrored events.
	StreamRetentionDays int `koanf:"stream_retention_days"`

	// SubjectPrefix is prepended to the event type when publishing,
	// e.g. "rollcall.sync" yields "rollcall.sync.time_sync".
	SubjectPrefix string `koanf:"subject_prefix"`
}

// BackupConfig holds scheduled database export settings.
//
// Environment Variables:
//   - BACKUP_ENABLED: Enable scheduled exports (default: false)
//   - BACKUP_DIR: Export destination directory (default: /data/backups)
//   - BACKUP_INTERVAL: Time between exports (default: 24h)
//   - BACKUP_RETENTION: Number of exports to keep (default: 7)
type BackupConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Dir       string        `koanf:"dir"`
	Interval  time.Duration `koanf:"interval"`
	Retention int           `koanf:"retention"`
}

// ImportConfig holds roster import settings. The importer loads sites,
// rotations, and site assignments from a SQLite export of an upstream
// student information system, read through DuckDB's sqlite extension.
//
// Environment Variables:
//   - IMPORT_ENABLED: Enable import functionality (default: false)
//   - IMPORT_PATH: Path to the roster SQLite export file
//   - IMPORT_BATCH_SIZE: Records per batch (default: 500)
//   - IMPORT_DRY_RUN: Validate without importing (default: false)
//   - IMPORT_AUTO_START: Start import automatically on startup (default: false)
type ImportConfig struct {
	// Enabled controls whether import functionality is active.
	Enabled bool `koanf:"enabled"`

	// Path is the roster SQLite export file to import.
	Path string `koanf:"path"`

	// BatchSize is the number of records to process per batch.
	// Higher values improve throughput but use more memory.
	// Default: 500
	BatchSize int `koanf:"batch_size"`

	// DryRun validates the import without writing to the database.
	DryRun bool `koanf:"dry_run"`

	// AutoStart triggers import automatically on application startup.
	AutoStart bool `koanf:"auto_start"`
}

// Load reads configuration using layered loading:
//  1. Built-in defaults
//  2. Config file (config.yaml if exists, or path specified in CONFIG_PATH env var)
//  3. Environment variables
//
// This function uses Koanf v2 for flexible, layered configuration management.
//
// See LoadWithKoanf() for the underlying implementation.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
