// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	if err := c.validateTimeSync(); err != nil {
		return err
	}

	if err := c.validateTransport(); err != nil {
		return err
	}

	if err := c.validateGeofence(); err != nil {
		return err
	}

	if err := c.validateCache(); err != nil {
		return err
	}

	if err := c.validateAudit(); err != nil {
		return err
	}

	if err := c.validateNATS(); err != nil {
		return err
	}

	if err := c.validateBackup(); err != nil {
		return err
	}

	if err := c.validateImport(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout < time.Second {
		return fmt.Errorf("HTTP_TIMEOUT must be at least 1s")
	}
	return nil
}

// validateSecurity validates security configuration
func (c *Config) validateSecurity() error {
	if err := c.validateAuthMode(); err != nil {
		return err
	}

	// Wildcard CORS with authentication is rejected in production
	if err := c.validateCORS(); err != nil {
		return err
	}

	if err := c.validateRateLimits(); err != nil {
		return err
	}

	if err := c.validateSessionStore(); err != nil {
		return err
	}

	return c.validateAuthModeConfig()
}

// validateAuthModeConfig validates configuration for the selected auth mode
func (c *Config) validateAuthModeConfig() error {
	validators := map[string]func() error{
		"jwt":   c.validateJWTAuth,
		"basic": c.validateBasicAuth,
		"oidc":  c.validateOIDCAuth,
	}

	validator, exists := validators[c.Security.AuthMode]
	if !exists {
		return nil // "none" mode has no additional validation
	}

	return validator()
}

// validateCORS validates CORS configuration for security best practices.
// In production mode with authentication enabled, wildcard CORS is rejected
// as it creates a security vulnerability where any origin can access
// protected resources using stolen credentials.
func (c *Config) validateCORS() error {
	if c.Security.AuthMode != "none" && c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production with authentication enabled. " +
			"This creates a security vulnerability where attackers can steal credentials via malicious websites. " +
			"Either set specific origins: CORS_ORIGINS=https://yourdomain.com,https://app.yourdomain.com " +
			"or use ENVIRONMENT=development for testing purposes")
	}

	// Non-wildcard origins must be well-formed scheme://host values
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			continue
		}
		if err := validateHTTPURL(origin, "CORS_ORIGINS"); err != nil {
			return err
		}
	}
	return nil
}

// hasWildcardCORS checks if CORS is configured with wildcard origins
func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if CORS configuration has security concerns
// that should be logged at startup
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Security.AuthMode != "none" && c.hasWildcardCORS()
}

// Rate limit constants
const (
	minRateLimitRequests = 1           // Minimum 1 request allowed
	maxRateLimitRequests = 100000      // Maximum 100K requests per window
	minRateLimitWindow   = time.Second // Minimum 1 second window
	maxRateLimitWindow   = time.Hour   // Maximum 1 hour window
)

// validateRateLimits validates rate limiting configuration bounds.
// Ensures rate limit values are within sensible ranges to prevent
// misconfiguration that could lead to DoS or ineffective protection.
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}

	if err := c.validateRateLimitRequests(); err != nil {
		return err
	}
	return c.validateRateLimitWindow()
}

// validateRateLimitRequests validates the rate limit requests value
func (c *Config) validateRateLimitRequests() error {
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	return nil
}

// validateRateLimitWindow validates the rate limit window value
func (c *Config) validateRateLimitWindow() error {
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// validSessionStores defines the allowed session storage backends
var validSessionStores = map[string]bool{
	"memory": true,
	"badger": true,
}

// validateSessionStore validates the session storage backend configuration
func (c *Config) validateSessionStore() error {
	if !validSessionStores[c.Security.SessionStore] {
		return fmt.Errorf("SESSION_STORE must be one of: memory, badger")
	}
	if c.Security.SessionStore == "badger" && c.Security.SessionStorePath == "" {
		return fmt.Errorf("SESSION_STORE_PATH is required when SESSION_STORE=badger")
	}
	return nil
}

// validAuthModes defines the allowed authentication modes
var validAuthModes = map[string]bool{
	"none":  true,
	"jwt":   true,
	"basic": true,
	"oidc":  true,
}

// validateAuthMode checks if auth mode is valid
func (c *Config) validateAuthMode() error {
	if !validAuthModes[c.Security.AuthMode] {
		return fmt.Errorf("AUTH_MODE must be one of: none, jwt, basic, oidc")
	}

	return c.validateAuthModeForEnvironment()
}

// validateAuthModeForEnvironment ensures AUTH_MODE is appropriate for the environment
func (c *Config) validateAuthModeForEnvironment() error {
	// Refuse to start with AUTH_MODE=none in production. Attendance records
	// are personal data; an unauthenticated production deployment is always
	// a misconfiguration.
	if c.Security.AuthMode == "none" && c.IsProduction() {
		return fmt.Errorf("AUTH_MODE=none is not allowed when ENVIRONMENT=production. " +
			"Either set AUTH_MODE to a secure option (jwt, basic, oidc) " +
			"or use ENVIRONMENT=development for testing purposes")
	}

	return nil
}

// IsProduction returns true if the application is running in production mode.
// Production mode is determined by the ENVIRONMENT environment variable.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment returns true if the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}

// validateJWTAuth validates JWT authentication configuration
func (c *Config) validateJWTAuth() error {
	if err := c.validateJWTSecret(); err != nil {
		return err
	}
	return c.validateAdminCredentials("jwt")
}

// validateJWTSecret validates the JWT secret configuration
func (c *Config) validateJWTSecret() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_MODE is jwt")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters for security")
	}
	if containsPlaceholder(c.Security.JWTSecret) {
		return fmt.Errorf("JWT_SECRET contains a placeholder value - generate a secure secret with: openssl rand -base64 32")
	}
	return nil
}

// validateBasicAuth validates Basic authentication configuration
func (c *Config) validateBasicAuth() error {
	return c.validateAdminCredentials("basic")
}

// validateAdminCredentials validates admin username and password
func (c *Config) validateAdminCredentials(authMode string) error {
	if err := c.validateAdminUsername(authMode); err != nil {
		return err
	}
	return c.validateAdminPassword(authMode)
}

// validateAdminUsername validates the admin username configuration
func (c *Config) validateAdminUsername(authMode string) error {
	if c.Security.AdminUsername == "" {
		return fmt.Errorf("ADMIN_USERNAME is required when AUTH_MODE is %s", authMode)
	}
	return nil
}

// validateAdminPassword validates the admin password configuration
func (c *Config) validateAdminPassword(authMode string) error {
	if c.Security.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required when AUTH_MODE is %s", authMode)
	}
	if containsPlaceholder(c.Security.AdminPassword) {
		return fmt.Errorf("ADMIN_PASSWORD contains a placeholder value - set a secure password")
	}
	if err := c.validatePasswordPolicy(c.Security.AdminPassword, c.Security.AdminUsername); err != nil {
		return fmt.Errorf("ADMIN_PASSWORD: %w", err)
	}
	return nil
}

// validatePasswordPolicy validates a password against the configured password policy.
func (c *Config) validatePasswordPolicy(password, username string) error {
	policy := DefaultPasswordPolicy()
	return policy.ValidateWithError(password, username)
}

// validateOIDCAuth validates OIDC introspection configuration
func (c *Config) validateOIDCAuth() error {
	if err := c.validateOIDCIssuer(); err != nil {
		return err
	}
	if err := c.validateOIDCClientID(); err != nil {
		return err
	}
	return c.validateOIDCClientSecret()
}

// validateOIDCIssuer validates the OIDC issuer URL
func (c *Config) validateOIDCIssuer() error {
	if c.Security.OIDC.IssuerURL == "" {
		return fmt.Errorf("OIDC_ISSUER_URL is required when AUTH_MODE is oidc")
	}
	if err := validateOIDCIssuerURL(c.Security.OIDC.IssuerURL); err != nil {
		return fmt.Errorf("OIDC_ISSUER_URL is invalid: %w", err)
	}
	return nil
}

// validateOIDCClientID validates the OIDC client ID
func (c *Config) validateOIDCClientID() error {
	if c.Security.OIDC.ClientID == "" {
		return fmt.Errorf("OIDC_CLIENT_ID is required when AUTH_MODE is oidc")
	}
	return nil
}

// validateOIDCClientSecret validates the OIDC client secret.
// Token introspection is an authenticated endpoint, so a confidential
// client credential is required.
func (c *Config) validateOIDCClientSecret() error {
	if c.Security.OIDC.ClientSecret == "" {
		return fmt.Errorf("OIDC_CLIENT_SECRET is required when AUTH_MODE is oidc")
	}
	return nil
}

// validateTimeSync validates time authority cadence configuration
func (c *Config) validateTimeSync() error {
	validators := []func() error{
		c.validateSyncInterval,
		c.validateHeartbeatInterval,
		c.validateMinSyncInterval,
		c.validateStatsWindow,
	}

	for _, validator := range validators {
		if err := validator(); err != nil {
			return err
		}
	}
	return nil
}

// Time sync cadence bounds. Sub-second sync intervals hammer the database
// for no accuracy gain; beyond 5 minutes the drift data is too stale to act on.
const (
	minSyncCadence = time.Second
	maxSyncCadence = 5 * time.Minute
)

// validateSyncInterval validates the push time_sync cadence
func (c *Config) validateSyncInterval() error {
	if c.TimeSync.SyncInterval < minSyncCadence || c.TimeSync.SyncInterval > maxSyncCadence {
		return fmt.Errorf("SYNC_INTERVAL must be between 1s and 5m")
	}
	return nil
}

// validateHeartbeatInterval validates the push heartbeat cadence
func (c *Config) validateHeartbeatInterval() error {
	if c.TimeSync.HeartbeatInterval < minSyncCadence || c.TimeSync.HeartbeatInterval > time.Hour {
		return fmt.Errorf("HEARTBEAT_INTERVAL must be between 1s and 1h")
	}
	if c.TimeSync.HeartbeatInterval < c.TimeSync.SyncInterval {
		return fmt.Errorf("HEARTBEAT_INTERVAL must not be shorter than SYNC_INTERVAL")
	}
	return nil
}

// validateMinSyncInterval validates the per-client sync gate
func (c *Config) validateMinSyncInterval() error {
	if c.TimeSync.MinSyncInterval < minSyncCadence || c.TimeSync.MinSyncInterval > maxSyncCadence {
		return fmt.Errorf("MIN_SYNC_INTERVAL must be between 1s and 5m")
	}
	return nil
}

// validateStatsWindow validates the drift statistics window
func (c *Config) validateStatsWindow() error {
	if c.TimeSync.StatsWindow < time.Minute || c.TimeSync.StatsWindow > 24*time.Hour {
		return fmt.Errorf("SYNC_STATS_WINDOW must be between 1m and 24h")
	}
	return nil
}

// validateTransport validates transport tuning configuration
func (c *Config) validateTransport() error {
	if err := c.validatePushTransport(); err != nil {
		return err
	}
	return c.validatePollTransport()
}

// validatePushTransport validates WebSocket push settings
func (c *Config) validatePushTransport() error {
	if c.Transport.Push.WriteWait < time.Second {
		return fmt.Errorf("PUSH_WRITE_WAIT must be at least 1s")
	}
	if c.Transport.Push.PongWait < 5*time.Second {
		return fmt.Errorf("PUSH_PONG_WAIT must be at least 5s")
	}
	if c.Transport.Push.MaxMessageSize < 256 {
		return fmt.Errorf("PUSH_MAX_MESSAGE_SIZE must be at least 256 bytes")
	}
	if c.Transport.Push.InboundPerSecond <= 0 {
		return fmt.Errorf("PUSH_INBOUND_PER_SECOND must be positive")
	}
	if c.Transport.Push.InboundBurst < 1 {
		return fmt.Errorf("PUSH_INBOUND_BURST must be at least 1")
	}
	return nil
}

// validatePollTransport validates long-poll settings
func (c *Config) validatePollTransport() error {
	if c.Transport.Poll.MaxWait < time.Second || c.Transport.Poll.MaxWait > 5*time.Minute {
		return fmt.Errorf("POLL_MAX_WAIT must be between 1s and 5m")
	}
	return nil
}

// validateGeofence validates geofence configuration
func (c *Config) validateGeofence() error {
	if c.Geofence.MinRadiusM < 0 {
		return fmt.Errorf("GEOFENCE_MIN_RADIUS_M must be non-negative")
	}
	if c.Geofence.MaxSpeedKmh < 0 {
		return fmt.Errorf("GEOFENCE_MAX_SPEED_KMH must be non-negative")
	}
	return c.validateAccuracyTiers()
}

// validateAccuracyTiers ensures the accuracy thresholds are strictly ordered
func (c *Config) validateAccuracyTiers() error {
	if c.Geofence.HighAccuracyM <= 0 {
		return fmt.Errorf("GEOFENCE_HIGH_ACCURACY_M must be positive")
	}
	if c.Geofence.MediumAccuracyM <= c.Geofence.HighAccuracyM {
		return fmt.Errorf("GEOFENCE_MEDIUM_ACCURACY_M must be greater than GEOFENCE_HIGH_ACCURACY_M")
	}
	if c.Geofence.MaxAccuracyM <= c.Geofence.MediumAccuracyM {
		return fmt.Errorf("GEOFENCE_MAX_ACCURACY_M must be greater than GEOFENCE_MEDIUM_ACCURACY_M")
	}
	return nil
}

// validCacheStores defines the allowed cache backends
var validCacheStores = map[string]bool{
	"memory": true,
	"badger": true,
}

// validateCache validates cache configuration
func (c *Config) validateCache() error {
	if !validCacheStores[c.Cache.Store] {
		return fmt.Errorf("CACHE_STORE must be one of: memory, badger")
	}
	if c.Cache.Store == "badger" && c.Cache.Path == "" {
		return fmt.Errorf("CACHE_PATH is required when CACHE_STORE=badger")
	}
	if c.Cache.TTL < time.Second {
		return fmt.Errorf("CACHE_TTL must be at least 1s")
	}
	if c.Cache.CleanupInterval < time.Second {
		return fmt.Errorf("CACHE_CLEANUP_INTERVAL must be at least 1s")
	}
	return nil
}

// validateAudit validates audit configuration
func (c *Config) validateAudit() error {
	if !c.Audit.Enabled {
		return nil
	}
	if c.Audit.BreakerThreshold < 1 {
		return fmt.Errorf("AUDIT_BREAKER_THRESHOLD must be at least 1")
	}
	if c.Audit.BreakerCooldown < time.Second {
		return fmt.Errorf("AUDIT_BREAKER_COOLDOWN must be at least 1s")
	}
	return nil
}

// NATS limit constants
const (
	natsMinMemory    = 64 * 1024 * 1024  // 64MB
	natsMinStore     = 100 * 1024 * 1024 // 100MB
	natsMaxRetention = 365
	natsMinRetention = 1
)

// validateNATS validates NATS configuration (only if enabled)
func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}

	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}

	return c.validateNATSLimits()
}

// validateNATSLimits validates NATS storage limits
func (c *Config) validateNATSLimits() error {
	if c.NATS.MaxMemory < natsMinMemory {
		return fmt.Errorf("NATS_MAX_MEMORY must be at least 64MB (67108864 bytes)")
	}
	if c.NATS.MaxStore < natsMinStore {
		return fmt.Errorf("NATS_MAX_STORE must be at least 100MB (104857600 bytes)")
	}
	if c.NATS.StreamRetentionDays < natsMinRetention || c.NATS.StreamRetentionDays > natsMaxRetention {
		return fmt.Errorf("NATS_RETENTION_DAYS must be between 1 and 365")
	}
	if c.NATS.SubjectPrefix == "" {
		return fmt.Errorf("NATS_SUBJECT_PREFIX must not be empty")
	}
	return nil
}

// validateBackup validates backup configuration (only if enabled)
func (c *Config) validateBackup() error {
	if !c.Backup.Enabled {
		return nil
	}
	if c.Backup.Dir == "" {
		return fmt.Errorf("BACKUP_DIR is required when BACKUP_ENABLED=true")
	}
	if c.Backup.Interval < time.Minute {
		return fmt.Errorf("BACKUP_INTERVAL must be at least 1m")
	}
	if c.Backup.Retention < 1 {
		return fmt.Errorf("BACKUP_RETENTION must be at least 1")
	}
	return nil
}

// validateImport validates import configuration (only if enabled)
func (c *Config) validateImport() error {
	if !c.Import.Enabled {
		return nil
	}

	if c.Import.Path == "" {
		return fmt.Errorf("IMPORT_PATH is required when IMPORT_ENABLED=true")
	}
	if c.Import.BatchSize < 1 || c.Import.BatchSize > 10000 {
		return fmt.Errorf("IMPORT_BATCH_SIZE must be between 1 and 10000")
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if err := c.validateLogLevel(); err != nil {
		return err
	}
	return c.validateLogFormat()
}

// validateLogLevel validates the log level configuration
func (c *Config) validateLogLevel() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	return nil
}

// validateLogFormat validates the log format configuration
func (c *Config) validateLogFormat() error {
	if c.Logging.Format == "" {
		return nil
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// placeholderPatterns defines common placeholder patterns that indicate
// the user forgot to set a real value. This prevents accidental deployment
// with insecure default credentials.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"YOUR_PASSWORD",
	"PLACEHOLDER",
	"TODO",
	"FIXME",
	"XXX",
	"EXAMPLE",
}

// containsPlaceholder checks if a value contains common placeholder patterns
// that indicate the user forgot to set a real value. This prevents accidental
// deployment with insecure default credentials.
func containsPlaceholder(value string) bool {
	upperValue := strings.ToUpper(value)
	return containsAnyPattern(upperValue, placeholderPatterns)
}

// containsAnyPattern checks if a string contains any of the provided patterns
func containsAnyPattern(s string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(s, pattern) {
			return true
		}
	}
	return false
}
