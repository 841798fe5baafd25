// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/rollcall/config.yaml",
	"/etc/rollcall/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:                   "/data/rollcall.duckdb",
			MaxMemory:              "1GB",
			Threads:                0,    // 0 = use runtime.NumCPU()
			PreserveInsertionOrder: true, // DuckDB default
			SeedDemoData:           false,
			SkipIndexes:            false,
		},
		Server: ServerConfig{
			Port:        8417,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development", // Set ENVIRONMENT=production for production checks
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Security: SecurityConfig{
			AuthMode:             "jwt",
			JWTSecret:            "",
			SessionTimeout:       24 * time.Hour,
			AdminUsername:        "",
			AdminPassword:        "",
			RateLimitReqs:        100,
			RateLimitWindow:      1 * time.Minute,
			RateLimitDisabled:    false,
			CORSOrigins:          []string{"*"},
			TrustedProxies:       []string{},
			BasicAuthDefaultRole: "student",

			// Default to persistent storage so sessions survive restarts
			SessionStore:     "badger",
			SessionStorePath: "/data/sessions",

			OIDC: OIDCConfig{
				IssuerURL:      "",
				ClientID:       "",
				ClientSecret:   "",
				RolesClaim:     "roles",
				DefaultRoles:   []string{"student"},
				UsernameClaims: []string{"preferred_username", "name", "email"},
			},
			Casbin: CasbinConfig{
				ModelPath:      "",
				PolicyPath:     "",
				DefaultRole:    "student",
				AutoReload:     true,
				ReloadInterval: 30 * time.Second,
				CacheEnabled:   true,
				CacheTTL:       5 * time.Minute,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		TimeSync: TimeSyncConfig{
			SyncInterval:      5 * time.Second,
			HeartbeatInterval: 30 * time.Second,
			MinSyncInterval:   5 * time.Second,
			StatsWindow:       5 * time.Minute,
		},
		Transport: TransportConfig{
			Push: PushConfig{
				WriteWait:        10 * time.Second,
				PongWait:         60 * time.Second,
				MaxMessageSize:   1024,
				InboundPerSecond: 5,
				InboundBurst:     10,
			},
			Poll: PollConfig{
				MaxWait: 60 * time.Second,
			},
		},
		Geofence: GeofenceConfig{
			StrictMode:      false,
			MinRadiusM:      100,
			HighAccuracyM:   10,
			MediumAccuracyM: 50,
			MaxAccuracyM:    100,
			MaxSpeedKmh:     800,
		},
		Attendance: AttendanceConfig{
			MinSessionDuration: 0,
		},
		Cache: CacheConfig{
			Store:           "memory",
			Path:            "/data/cache",
			TTL:             5 * time.Minute,
			CleanupInterval: 10 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:          true,
			BreakerThreshold: 5,
			BreakerCooldown:  30 * time.Second,
		},
		NATS: NATSConfig{
			Enabled:             false,
			URL:                 "nats://127.0.0.1:4222",
			EmbeddedServer:      true,
			StoreDir:            "/data/nats/jetstream",
			MaxMemory:           256 << 20, // 256MB
			MaxStore:            2 << 30,   // 2GB
			StreamRetentionDays: 7,
			SubjectPrefix:       "rollcall.sync",
		},
		Backup: BackupConfig{
			Enabled:   false,
			Dir:       "/data/backups",
			Interval:  24 * time.Hour,
			Retention: 7,
		},
		Import: ImportConfig{
			Enabled:   false,
			Path:      "",
			BatchSize: 500,
			DryRun:    false,
			AutoStart: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// This function is the preferred way to load configuration and provides:
//   - Type-safe configuration unmarshaling
//   - Clear precedence: ENV > File > Defaults
//   - Support for nested configuration via koanf struct tags
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// Transform environment variable names to koanf paths:
	// SYNC_INTERVAL -> time_sync.sync_interval
	// DUCKDB_PATH -> database.path
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	// Unmarshal into Config struct
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	// Check environment variable first
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	// Search default paths
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.trusted_proxies",
	"security.oidc.default_roles",
	"security.oidc.username_claims",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// This is necessary because env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// If it's already a slice (from YAML file), skip
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		// If it's a string, split by comma
		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Only explicitly mapped variables are honored.
//
// Examples:
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
//   - SYNC_INTERVAL -> time_sync.sync_interval
//   - GEOFENCE_STRICT -> geofence.strict_mode
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Database mappings
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",
		"seed_demo_data":    "database.seed_demo_data",

		// Server mappings
		"http_port":    "server.port",
		"http_host":    "server.host",
		"http_timeout": "server.timeout",
		"environment":  "server.environment",

		// API mappings
		"api_default_page_size": "api.default_page_size",
		"api_max_page_size":     "api.max_page_size",

		// Security mappings
		"auth_mode":               "security.auth_mode",
		"jwt_secret":              "security.jwt_secret",
		"session_timeout":         "security.session_timeout",
		"admin_username":          "security.admin_username",
		"admin_password":          "security.admin_password",
		"rate_limit_requests":     "security.rate_limit_reqs",
		"rate_limit_window":       "security.rate_limit_window",
		"disable_rate_limit":      "security.rate_limit_disabled",
		"cors_origins":            "security.cors_origins",
		"trusted_proxies":         "security.trusted_proxies",
		"basic_auth_default_role": "security.basic_auth_default_role",

		// Session store mappings
		"session_store":      "security.session_store",
		"session_store_path": "security.session_store_path",

		// OIDC mappings
		"oidc_issuer_url":      "security.oidc.issuer_url",
		"oidc_client_id":       "security.oidc.client_id",
		"oidc_client_secret":   "security.oidc.client_secret",
		"oidc_roles_claim":     "security.oidc.roles_claim",
		"oidc_default_roles":   "security.oidc.default_roles",
		"oidc_username_claims": "security.oidc.username_claims",

		// Casbin mappings
		"casbin_model_path":      "security.casbin.model_path",
		"casbin_policy_path":     "security.casbin.policy_path",
		"casbin_default_role":    "security.casbin.default_role",
		"casbin_auto_reload":     "security.casbin.auto_reload",
		"casbin_reload_interval": "security.casbin.reload_interval",
		"casbin_cache_enabled":   "security.casbin.cache_enabled",
		"casbin_cache_ttl":       "security.casbin.cache_ttl",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		// Time sync mappings
		"sync_interval":      "time_sync.sync_interval",
		"heartbeat_interval": "time_sync.heartbeat_interval",
		"min_sync_interval":  "time_sync.min_sync_interval",
		"sync_stats_window":  "time_sync.stats_window",

		// Transport mappings
		"push_write_wait":         "transport.push.write_wait",
		"push_pong_wait":          "transport.push.pong_wait",
		"push_max_message_size":   "transport.push.max_message_size",
		"push_inbound_per_second": "transport.push.inbound_per_second",
		"push_inbound_burst":      "transport.push.inbound_burst",
		"poll_max_wait":           "transport.poll.max_wait",

		// Geofence mappings
		"geofence_strict":            "geofence.strict_mode",
		"geofence_min_radius_m":      "geofence.min_radius_m",
		"geofence_high_accuracy_m":   "geofence.high_accuracy_m",
		"geofence_medium_accuracy_m": "geofence.medium_accuracy_m",
		"geofence_max_accuracy_m":    "geofence.max_accuracy_m",
		"geofence_max_speed_kmh":     "geofence.max_speed_kmh",

		// Attendance mappings
		"min_session_duration": "attendance.min_session_duration",

		// Cache mappings
		"cache_store":            "cache.store",
		"cache_path":             "cache.path",
		"cache_ttl":              "cache.ttl",
		"cache_cleanup_interval": "cache.cleanup_interval",

		// Audit mappings
		"audit_enabled":           "audit.enabled",
		"audit_breaker_threshold": "audit.breaker_threshold",
		"audit_breaker_cooldown":  "audit.breaker_cooldown",

		// NATS mappings
		"nats_enabled":        "nats.enabled",
		"nats_url":            "nats.url",
		"nats_embedded":       "nats.embedded_server",
		"nats_store_dir":      "nats.store_dir",
		"nats_max_memory":     "nats.max_memory",
		"nats_max_store":      "nats.max_store",
		"nats_retention_days": "nats.stream_retention_days",
		"nats_subject_prefix": "nats.subject_prefix",

		// Backup mappings
		"backup_enabled":   "backup.enabled",
		"backup_dir":       "backup.dir",
		"backup_interval":  "backup.interval",
		"backup_retention": "backup.retention",

		// Import mappings
		"import_enabled":    "import.enabled",
		"import_path":       "import.path",
		"import_batch_size": "import.batch_size",
		"import_dry_run":    "import.dry_run",
		"import_auto_start": "import.auto_start",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	// This prevents random environment variables from polluting config
	return ""
}

// GetKoanfInstance returns a new Koanf instance for advanced usage.
// This is useful for:
//   - Hot-reload scenarios (with proper mutex protection)
//   - Custom configuration sources
//   - Testing with mock configurations
func GetKoanfInstance() *koanf.Koanf {
	return koanf.New(".")
}

// WatchConfigFile sets up a file watcher for hot-reload capability.
// Note: The caller is responsible for mutex protection when accessing
// configuration during reloads.
//
// Example usage:
//
//	var cfgMu sync.RWMutex
//	var cfg *Config
//
//	err := WatchConfigFile(configPath, func() {
//	    cfgMu.Lock()
//	    defer cfgMu.Unlock()
//	    newCfg, err := LoadWithKoanf()
//	    if err != nil {
//	        log.Printf("Config reload failed: %v", err)
//	        return
//	    }
//	    cfg = newCfg
//	})
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)

	// Start watching the file for changes
	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
