// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	// Database defaults
	if cfg.Database.Path != "/data/rollcall.duckdb" {
		t.Errorf("Database.Path = %q, want /data/rollcall.duckdb", cfg.Database.Path)
	}
	if cfg.Database.MaxMemory != "1GB" {
		t.Errorf("Database.MaxMemory = %q, want 1GB", cfg.Database.MaxMemory)
	}
	if cfg.Database.SeedDemoData {
		t.Error("Database.SeedDemoData should be false by default")
	}

	// Server defaults
	if cfg.Server.Port != 8417 {
		t.Errorf("Server.Port = %d, want 8417", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Environment != "development" {
		t.Errorf("Server.Environment = %q, want development", cfg.Server.Environment)
	}

	// API defaults
	if cfg.API.DefaultPageSize != 20 {
		t.Errorf("API.DefaultPageSize = %d, want 20", cfg.API.DefaultPageSize)
	}
	if cfg.API.MaxPageSize != 100 {
		t.Errorf("API.MaxPageSize = %d, want 100", cfg.API.MaxPageSize)
	}

	// Security defaults
	if cfg.Security.AuthMode != "jwt" {
		t.Errorf("Security.AuthMode = %q, want jwt", cfg.Security.AuthMode)
	}
	if cfg.Security.RateLimitReqs != 100 {
		t.Errorf("Security.RateLimitReqs = %d, want 100", cfg.Security.RateLimitReqs)
	}
	if len(cfg.Security.CORSOrigins) != 1 || cfg.Security.CORSOrigins[0] != "*" {
		t.Errorf("Security.CORSOrigins = %v, want [*]", cfg.Security.CORSOrigins)
	}
	if cfg.Security.SessionStore != "badger" {
		t.Errorf("Security.SessionStore = %q, want badger", cfg.Security.SessionStore)
	}
	if cfg.Security.BasicAuthDefaultRole != "student" {
		t.Errorf("Security.BasicAuthDefaultRole = %q, want student", cfg.Security.BasicAuthDefaultRole)
	}
	if cfg.Security.Casbin.DefaultRole != "student" {
		t.Errorf("Security.Casbin.DefaultRole = %q, want student", cfg.Security.Casbin.DefaultRole)
	}

	// Time sync defaults
	if cfg.TimeSync.SyncInterval != 5*time.Second {
		t.Errorf("TimeSync.SyncInterval = %v, want 5s", cfg.TimeSync.SyncInterval)
	}
	if cfg.TimeSync.HeartbeatInterval != 30*time.Second {
		t.Errorf("TimeSync.HeartbeatInterval = %v, want 30s", cfg.TimeSync.HeartbeatInterval)
	}
	if cfg.TimeSync.MinSyncInterval != 5*time.Second {
		t.Errorf("TimeSync.MinSyncInterval = %v, want 5s", cfg.TimeSync.MinSyncInterval)
	}
	if cfg.TimeSync.StatsWindow != 5*time.Minute {
		t.Errorf("TimeSync.StatsWindow = %v, want 5m", cfg.TimeSync.StatsWindow)
	}

	// Transport defaults
	if cfg.Transport.Push.PongWait != 60*time.Second {
		t.Errorf("Transport.Push.PongWait = %v, want 60s", cfg.Transport.Push.PongWait)
	}
	if cfg.Transport.Poll.MaxWait != 60*time.Second {
		t.Errorf("Transport.Poll.MaxWait = %v, want 60s", cfg.Transport.Poll.MaxWait)
	}

	// Geofence defaults
	if cfg.Geofence.StrictMode {
		t.Error("Geofence.StrictMode should be false by default")
	}
	if cfg.Geofence.MinRadiusM != 100 {
		t.Errorf("Geofence.MinRadiusM = %v, want 100", cfg.Geofence.MinRadiusM)
	}
	if cfg.Geofence.HighAccuracyM != 10 || cfg.Geofence.MediumAccuracyM != 50 || cfg.Geofence.MaxAccuracyM != 100 {
		t.Errorf("Geofence accuracy tiers = %v/%v/%v, want 10/50/100",
			cfg.Geofence.HighAccuracyM, cfg.Geofence.MediumAccuracyM, cfg.Geofence.MaxAccuracyM)
	}

	// Cache defaults
	if cfg.Cache.Store != "memory" {
		t.Errorf("Cache.Store = %q, want memory", cfg.Cache.Store)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Cache.TTL = %v, want 5m", cfg.Cache.TTL)
	}

	// Audit defaults
	if !cfg.Audit.Enabled {
		t.Error("Audit.Enabled should be true by default")
	}
	if cfg.Audit.BreakerThreshold != 5 {
		t.Errorf("Audit.BreakerThreshold = %d, want 5", cfg.Audit.BreakerThreshold)
	}

	// NATS defaults (disabled)
	if cfg.NATS.Enabled {
		t.Error("NATS.Enabled should be false by default")
	}
	if cfg.NATS.URL != "nats://127.0.0.1:4222" {
		t.Errorf("NATS.URL = %q, want nats://127.0.0.1:4222", cfg.NATS.URL)
	}
	if cfg.NATS.SubjectPrefix != "rollcall.sync" {
		t.Errorf("NATS.SubjectPrefix = %q, want rollcall.sync", cfg.NATS.SubjectPrefix)
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

// TestEnvTransformFunc verifies environment variable name transformations
func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// Database
		{"DUCKDB_PATH", "database.path"},
		{"DUCKDB_MAX_MEMORY", "database.max_memory"},
		{"SEED_DEMO_DATA", "database.seed_demo_data"},

		// Server
		{"HTTP_PORT", "server.port"},
		{"HTTP_HOST", "server.host"},
		{"HTTP_TIMEOUT", "server.timeout"},
		{"ENVIRONMENT", "server.environment"},

		// Security
		{"AUTH_MODE", "security.auth_mode"},
		{"JWT_SECRET", "security.jwt_secret"},
		{"ADMIN_USERNAME", "security.admin_username"},
		{"RATE_LIMIT_REQUESTS", "security.rate_limit_reqs"},
		{"DISABLE_RATE_LIMIT", "security.rate_limit_disabled"},
		{"SESSION_STORE", "security.session_store"},

		// OIDC
		{"OIDC_ISSUER_URL", "security.oidc.issuer_url"},
		{"OIDC_CLIENT_SECRET", "security.oidc.client_secret"},

		// Casbin
		{"CASBIN_DEFAULT_ROLE", "security.casbin.default_role"},

		// Time sync
		{"SYNC_INTERVAL", "time_sync.sync_interval"},
		{"HEARTBEAT_INTERVAL", "time_sync.heartbeat_interval"},
		{"MIN_SYNC_INTERVAL", "time_sync.min_sync_interval"},
		{"SYNC_STATS_WINDOW", "time_sync.stats_window"},

		// Transport
		{"POLL_MAX_WAIT", "transport.poll.max_wait"},
		{"PUSH_PONG_WAIT", "transport.push.pong_wait"},

		// Geofence
		{"GEOFENCE_STRICT", "geofence.strict_mode"},
		{"GEOFENCE_MIN_RADIUS_M", "geofence.min_radius_m"},
		{"GEOFENCE_MAX_SPEED_KMH", "geofence.max_speed_kmh"},

		// Attendance
		{"MIN_SESSION_DURATION", "attendance.min_session_duration"},

		// Cache
		{"CACHE_STORE", "cache.store"},
		{"CACHE_TTL", "cache.ttl"},

		// Audit
		{"AUDIT_ENABLED", "audit.enabled"},

		// NATS
		{"NATS_ENABLED", "nats.enabled"},
		{"NATS_URL", "nats.url"},
		{"NATS_EMBEDDED", "nats.embedded_server"},
		{"NATS_RETENTION_DAYS", "nats.stream_retention_days"},

		// Backup and import
		{"BACKUP_ENABLED", "backup.enabled"},
		{"IMPORT_PATH", "import.path"},

		// Logging
		{"LOG_LEVEL", "logging.level"},

		// Unknown (should return empty)
		{"RANDOM_VAR", ""},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := envTransformFunc(tt.input)
			if result != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

// TestFindConfigFile verifies config file discovery
func TestFindConfigFile(t *testing.T) {
	// Create a temporary directory for test files
	tmpDir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	// Save original working directory
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	defer func() {
		if err := os.Chdir(origDir); err != nil {
			t.Errorf("Failed to restore working directory: %v", err)
		}
	}()

	// Change to temp directory
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	t.Run("no config file exists", func(t *testing.T) {
		os.Unsetenv(ConfigPathEnvVar)
		result := findConfigFile()
		if result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})

	t.Run("config.yaml exists", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("test: true"), 0644); err != nil {
			t.Fatalf("Failed to create config file: %v", err)
		}
		defer os.Remove(configPath)

		os.Unsetenv(ConfigPathEnvVar)
		result := findConfigFile()
		if result != "config.yaml" {
			t.Errorf("findConfigFile() = %q, want config.yaml", result)
		}
	})

	t.Run("CONFIG_PATH env var takes precedence", func(t *testing.T) {
		// Create a custom config file
		customPath := filepath.Join(tmpDir, "custom_config.yaml")
		if err := os.WriteFile(customPath, []byte("test: true"), 0644); err != nil {
			t.Fatalf("Failed to create custom config file: %v", err)
		}
		defer os.Remove(customPath)

		os.Setenv(ConfigPathEnvVar, customPath)
		defer os.Unsetenv(ConfigPathEnvVar)

		result := findConfigFile()
		if result != customPath {
			t.Errorf("findConfigFile() = %q, want %q", result, customPath)
		}
	})

	t.Run("CONFIG_PATH env var with non-existent file", func(t *testing.T) {
		os.Setenv(ConfigPathEnvVar, "/non/existent/config.yaml")
		defer os.Unsetenv(ConfigPathEnvVar)

		result := findConfigFile()
		// Should fall back to default paths (which don't exist in temp dir)
		if result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})
}

// TestLoadWithKoanfEnvVars tests loading configuration from environment variables
func TestLoadWithKoanfEnvVars(t *testing.T) {
	// Clear all environment variables
	os.Clearenv()

	os.Setenv("AUTH_MODE", "none")

	// Set some custom values to override defaults
	os.Setenv("HTTP_PORT", "9000")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("SYNC_INTERVAL", "2s")
	os.Setenv("GEOFENCE_STRICT", "true")
	os.Setenv("CACHE_STORE", "memory")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	// Verify custom overrides
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.TimeSync.SyncInterval != 2*time.Second {
		t.Errorf("TimeSync.SyncInterval = %v, want 2s", cfg.TimeSync.SyncInterval)
	}
	if !cfg.Geofence.StrictMode {
		t.Error("Geofence.StrictMode = false, want true")
	}

	// Verify defaults are still applied for unset values
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0 (default)", cfg.Server.Host)
	}
	if cfg.Database.MaxMemory != "1GB" {
		t.Errorf("Database.MaxMemory = %q, want 1GB (default)", cfg.Database.MaxMemory)
	}
	if cfg.TimeSync.HeartbeatInterval != 30*time.Second {
		t.Errorf("TimeSync.HeartbeatInterval = %v, want 30s (default)", cfg.TimeSync.HeartbeatInterval)
	}
}

// TestLoadWithKoanfConfigFile tests loading configuration from a YAML file
func TestLoadWithKoanfConfigFile(t *testing.T) {
	// Create a temporary directory
	tmpDir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	// Create a test config file
	configContent := `
server:
  port: 8888
  host: "127.0.0.1"

time_sync:
  sync_interval: "3s"

geofence:
  min_radius_m: 150

security:
  auth_mode: "none"

logging:
  level: "warn"
`
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	// Clear environment and set CONFIG_PATH
	os.Clearenv()
	os.Setenv(ConfigPathEnvVar, configPath)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	// Verify values from config file
	if cfg.Server.Port != 8888 {
		t.Errorf("Server.Port = %d, want 8888", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.TimeSync.SyncInterval != 3*time.Second {
		t.Errorf("TimeSync.SyncInterval = %v, want 3s", cfg.TimeSync.SyncInterval)
	}
	if cfg.Geofence.MinRadiusM != 150 {
		t.Errorf("Geofence.MinRadiusM = %v, want 150", cfg.Geofence.MinRadiusM)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}

	// Verify defaults are still applied for unset values
	if cfg.Database.Path != "/data/rollcall.duckdb" {
		t.Errorf("Database.Path = %q, want /data/rollcall.duckdb (default)", cfg.Database.Path)
	}
}

// TestLoadWithKoanfEnvOverridesFile tests that env vars override config file
func TestLoadWithKoanfEnvOverridesFile(t *testing.T) {
	// Create a temporary directory
	tmpDir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	// Create a test config file with some values
	configContent := `
server:
  port: 8888
  host: "10.0.0.1"

security:
  auth_mode: "none"

logging:
  level: "warn"
`
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	// Clear environment and set CONFIG_PATH + override values
	os.Clearenv()
	os.Setenv(ConfigPathEnvVar, configPath)
	os.Setenv("HTTP_PORT", "9999")                // Override port from config file
	os.Setenv("LOG_LEVEL", "error")               // Override log level from config file
	os.Setenv("DUCKDB_PATH", "/custom/db.duckdb") // Override a default value

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	// Verify values from config file (not overridden by env)
	if cfg.Server.Host != "10.0.0.1" {
		t.Errorf("Server.Host = %q, want 10.0.0.1 (from file)", cfg.Server.Host)
	}

	// Verify env vars override config file
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999 (env override)", cfg.Server.Port)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, want error (env override)", cfg.Logging.Level)
	}

	// Verify env vars override defaults
	if cfg.Database.Path != "/custom/db.duckdb" {
		t.Errorf("Database.Path = %q, want /custom/db.duckdb (env override)", cfg.Database.Path)
	}
}

// TestLoadWithKoanfValidation tests that validation still works
func TestLoadWithKoanfValidation(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		errMsg  string
	}{
		{
			name: "JWT mode requires JWT_SECRET",
			envVars: map[string]string{
				"AUTH_MODE": "jwt",
			},
			wantErr: true,
			errMsg:  "JWT_SECRET is required",
		},
		{
			name: "invalid auth mode rejected",
			envVars: map[string]string{
				"AUTH_MODE": "kerberos",
			},
			wantErr: true,
			errMsg:  "AUTH_MODE must be one of",
		},
		{
			name: "auth none in production rejected",
			envVars: map[string]string{
				"AUTH_MODE":   "none",
				"ENVIRONMENT": "production",
			},
			wantErr: true,
			errMsg:  "AUTH_MODE=none is not allowed",
		},
		{
			name: "sync interval out of bounds",
			envVars: map[string]string{
				"AUTH_MODE":     "none",
				"SYNC_INTERVAL": "100ms",
			},
			wantErr: true,
			errMsg:  "SYNC_INTERVAL must be between",
		},
		{
			name: "invalid cache store",
			envVars: map[string]string{
				"AUTH_MODE":   "none",
				"CACHE_STORE": "redis",
			},
			wantErr: true,
			errMsg:  "CACHE_STORE must be one of",
		},
		{
			name: "valid configuration",
			envVars: map[string]string{
				"AUTH_MODE": "none",
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			_, err := LoadWithKoanf()

			if tt.wantErr {
				if err == nil {
					t.Errorf("LoadWithKoanf() expected error containing %q, got nil", tt.errMsg)
				}
			} else {
				if err != nil {
					t.Errorf("LoadWithKoanf() unexpected error = %v", err)
				}
			}
		})
	}
}

// TestLoadFullEnvironment loads a complete configuration from env vars
func TestLoadFullEnvironment(t *testing.T) {
	os.Clearenv()

	envVars := map[string]string{
		"AUTH_MODE":               "none",
		"DUCKDB_PATH":             "/var/lib/rollcall/db.duckdb",
		"DUCKDB_MAX_MEMORY":       "4GB",
		"SYNC_INTERVAL":           "10s",
		"HEARTBEAT_INTERVAL":      "1m",
		"MIN_SYNC_INTERVAL":       "10s",
		"POLL_MAX_WAIT":           "30s",
		"HTTP_PORT":               "8080",
		"HTTP_HOST":               "192.168.1.1",
		"API_DEFAULT_PAGE_SIZE":   "50",
		"LOG_LEVEL":               "debug",
		"RATE_LIMIT_REQUESTS":     "200",
		"DISABLE_RATE_LIMIT":      "true",
		"GEOFENCE_STRICT":         "true",
		"GEOFENCE_MAX_SPEED_KMH":  "500",
		"CACHE_STORE":             "badger",
		"CACHE_PATH":              "/var/cache/rollcall",
		"AUDIT_BREAKER_THRESHOLD": "10",
		"NATS_ENABLED":            "false",
	}

	for k, v := range envVars {
		os.Setenv(k, v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/var/lib/rollcall/db.duckdb" {
		t.Errorf("Database.Path = %q, want /var/lib/rollcall/db.duckdb", cfg.Database.Path)
	}
	if cfg.Database.MaxMemory != "4GB" {
		t.Errorf("Database.MaxMemory = %q, want 4GB", cfg.Database.MaxMemory)
	}
	if cfg.TimeSync.SyncInterval != 10*time.Second {
		t.Errorf("TimeSync.SyncInterval = %v, want 10s", cfg.TimeSync.SyncInterval)
	}
	if cfg.TimeSync.HeartbeatInterval != time.Minute {
		t.Errorf("TimeSync.HeartbeatInterval = %v, want 1m", cfg.TimeSync.HeartbeatInterval)
	}
	if cfg.Transport.Poll.MaxWait != 30*time.Second {
		t.Errorf("Transport.Poll.MaxWait = %v, want 30s", cfg.Transport.Poll.MaxWait)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Host != "192.168.1.1" {
		t.Errorf("Server.Host = %q, want 192.168.1.1", cfg.Server.Host)
	}
	if cfg.API.DefaultPageSize != 50 {
		t.Errorf("API.DefaultPageSize = %d, want 50", cfg.API.DefaultPageSize)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Security.RateLimitReqs != 200 {
		t.Errorf("Security.RateLimitReqs = %d, want 200", cfg.Security.RateLimitReqs)
	}
	if !cfg.Security.RateLimitDisabled {
		t.Error("Security.RateLimitDisabled = false, want true")
	}
	if !cfg.Geofence.StrictMode {
		t.Error("Geofence.StrictMode = false, want true")
	}
	if cfg.Geofence.MaxSpeedKmh != 500 {
		t.Errorf("Geofence.MaxSpeedKmh = %v, want 500", cfg.Geofence.MaxSpeedKmh)
	}
	if cfg.Cache.Store != "badger" {
		t.Errorf("Cache.Store = %q, want badger", cfg.Cache.Store)
	}
	if cfg.Audit.BreakerThreshold != 10 {
		t.Errorf("Audit.BreakerThreshold = %d, want 10", cfg.Audit.BreakerThreshold)
	}
	if cfg.NATS.Enabled {
		t.Error("NATS.Enabled = true, want false")
	}
}

// TestGetKoanfInstance verifies we can get a Koanf instance for custom use
func TestGetKoanfInstance(t *testing.T) {
	k := GetKoanfInstance()
	if k == nil {
		t.Error("GetKoanfInstance() returned nil")
	}
}
