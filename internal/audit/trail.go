// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package audit

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/rollcall-attendance/rollcall/internal/auth"
	"github.com/rollcall-attendance/rollcall/internal/logging"
	"github.com/rollcall-attendance/rollcall/internal/metrics"
)

// Config controls the security event trail.
type Config struct {
	// Enabled turns the trail on. When false, Log is a no-op.
	Enabled bool

	// MinSeverity is the lowest severity recorded. Events below it are
	// silently discarded.
	MinSeverity Severity

	// RetentionDays bounds how long events are kept. Zero disables the
	// cleanup routine.
	RetentionDays int

	// CleanupInterval is how often the retention cutoff is applied.
	CleanupInterval time.Duration

	// BufferSize is the capacity of the async write buffer. Events are
	// dropped, not blocked on, when the buffer is full.
	BufferSize int
}

// DefaultConfig returns the trail defaults.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		MinSeverity:     SeverityInfo,
		RetentionDays:   90,
		CleanupInterval: 24 * time.Hour,
		BufferSize:      1000,
	}
}

// Trail records security events through a buffered async writer. Callers
// never block on persistence: a full buffer drops the event and increments
// a counter instead.
type Trail struct {
	config    *Config
	store     SecurityStore
	eventChan chan *Event
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewTrail creates a trail writing to store and starts its writer goroutine.
func NewTrail(store SecurityStore, config *Config) *Trail {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}

	t := &Trail{
		config:    config,
		store:     store,
		eventChan: make(chan *Event, config.BufferSize),
		stopChan:  make(chan struct{}),
	}

	t.wg.Add(1)
	go t.drain()

	return t
}

// drain moves events from the buffer to the store until Close.
func (t *Trail) drain() {
	defer t.wg.Done()

	for {
		select {
		case <-t.stopChan:
			// Flush whatever is still buffered before returning.
			for {
				select {
				case event := <-t.eventChan:
					t.write(event)
				default:
					return
				}
			}
		case event := <-t.eventChan:
			t.write(event)
		}
	}
}

// write persists one event. Failures are logged, never surfaced.
func (t *Trail) write(event *Event) {
	if t.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := t.store.Save(ctx, event); err != nil {
		logging.Error().Err(err).
			Str("event_type", string(event.Type)).
			Msg("Failed to save security event")
	}
}

// Log records a security event. It fills in ID and timestamp when unset,
// applies the severity floor, and never blocks the caller.
func (t *Trail) Log(event *Event) {
	if !t.config.Enabled {
		return
	}
	if severityRank(event.Severity) < severityRank(t.config.MinSeverity) {
		return
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case t.eventChan <- event:
		metrics.RecordSecurityEvent(string(event.Type), string(event.Outcome))
	default:
		metrics.RecordSecurityEventDropped()
		logging.Warn().
			Str("event_type", string(event.Type)).
			Msg("Security event buffer full, dropping event")
	}
}

// Close stops the writer after flushing buffered events.
func (t *Trail) Close() error {
	t.stopOnce.Do(func() {
		close(t.stopChan)
	})
	t.wg.Wait()
	return nil
}

// StartCleanupRoutine applies the retention cutoff every CleanupInterval
// until ctx is cancelled. No-op when retention is unbounded.
func (t *Trail) StartCleanupRoutine(ctx context.Context) {
	if t.config.RetentionDays <= 0 || t.store == nil {
		return
	}

	interval := t.config.CleanupInterval
	if interval <= 0 {
		interval = DefaultConfig().CleanupInterval
	}
	retention := t.config.RetentionDays

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().AddDate(0, 0, -retention)
				count, err := t.store.Delete(ctx, cutoff)
				if err != nil {
					logging.Error().Err(err).Msg("Security trail cleanup error")
				} else if count > 0 {
					logging.Info().Int64("count", count).Msg("Pruned expired security events")
				}
			}
		}
	}()
}

// Query retrieves events matching the filter.
func (t *Trail) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return t.store.Query(ctx, filter)
}

// Count returns the number of events matching the filter.
func (t *Trail) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return t.store.Count(ctx, filter)
}

// ActorFromSubject builds a trail actor from an authenticated subject.
func ActorFromSubject(subject *auth.AuthSubject) Actor {
	if subject == nil {
		return Actor{Type: "user"}
	}
	id := subject.ID
	if id == "" {
		id = subject.Username
	}
	return Actor{
		ID:         id,
		Type:       "user",
		Name:       subject.Username,
		Roles:      subject.Roles,
		AuthMethod: string(subject.AuthMethod),
	}
}

// LogAuthSuccess records a successful authentication.
//
//nolint:gocritic // hugeParam: Actor passed by value for API simplicity
func (t *Trail) LogAuthSuccess(ctx context.Context, actor Actor, source Source) {
	t.Log(&Event{
		Type:        EventTypeAuthSuccess,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		Actor:       actor,
		Source:      source,
		Action:      "authenticate",
		Description: "Subject authenticated successfully",
		Metadata:    mustJSON(map[string]string{"method": actor.AuthMethod}),
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

// LogAuthFailure records a failed authentication attempt. Only the claimed
// username is known at this point.
func (t *Trail) LogAuthFailure(ctx context.Context, username string, source Source, reason string) {
	t.Log(&Event{
		Type:     EventTypeAuthFailure,
		Severity: SeverityWarning,
		Outcome:  OutcomeFailure,
		Actor: Actor{
			ID:   username,
			Type: "user",
			Name: username,
		},
		Source:      source,
		Action:      "authenticate",
		Description: "Authentication failed: " + reason,
		Metadata:    mustJSON(map[string]string{"reason": reason}),
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

// LogLogout records a logout.
//
//nolint:gocritic // hugeParam: Actor passed by value for API simplicity
func (t *Trail) LogLogout(ctx context.Context, actor Actor, source Source, sessionID string) {
	event := &Event{
		Type:        EventTypeLogout,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		Actor:       actor,
		Source:      source,
		Action:      "logout",
		Description: "Subject logged out",
		RequestID:   logging.RequestIDFromContext(ctx),
	}
	if sessionID != "" {
		event.Target = &Target{ID: sessionID, Type: "session"}
	}
	t.Log(event)
}

// RecordAuthzDenial records an authorization denial. It satisfies the authz
// middleware's DenialAuditor.
func (t *Trail) RecordAuthzDenial(ctx context.Context, subject *auth.AuthSubject, object, action string) {
	t.Log(&Event{
		Type:     EventTypeAuthzDenied,
		Severity: SeverityWarning,
		Outcome:  OutcomeFailure,
		Actor:    ActorFromSubject(subject),
		Action:   "authorize",
		Target: &Target{
			ID:   object,
			Type: "resource",
		},
		Description: "Authorization denied for " + action + " on " + object,
		Metadata: mustJSON(map[string]string{
			"resource":         object,
			"requested_action": action,
		}),
		RequestID: logging.RequestIDFromContext(ctx),
	})
}

// LogImport records a roster import with per-table row counts.
//
//nolint:gocritic // hugeParam: Actor passed by value for API simplicity
func (t *Trail) LogImport(ctx context.Context, actor Actor, source Source, path string, rows map[string]int) {
	t.Log(&Event{
		Type:     EventTypeDataImport,
		Severity: SeverityInfo,
		Outcome:  OutcomeSuccess,
		Actor:    actor,
		Source:   source,
		Action:   "import",
		Target: &Target{
			ID:   path,
			Type: "roster",
		},
		Description: "Roster imported",
		Metadata: mustJSON(map[string]interface{}{
			"source": path,
			"rows":   rows,
		}),
		RequestID: logging.RequestIDFromContext(ctx),
	})
}

// LogBackup records a backup run. Failures are recorded at error severity.
func (t *Trail) LogBackup(ctx context.Context, destination string, sizeBytes int64, backupErr error) {
	event := &Event{
		Type:   EventTypeDataBackup,
		Actor:  SystemActor(),
		Action: "backup",
		Target: &Target{
			ID:   destination,
			Type: "backup",
		},
		RequestID: logging.RequestIDFromContext(ctx),
	}

	if backupErr != nil {
		event.Severity = SeverityError
		event.Outcome = OutcomeFailure
		event.Description = "Backup failed: " + backupErr.Error()
		event.Metadata = mustJSON(map[string]string{"error": backupErr.Error()})
	} else {
		event.Severity = SeverityInfo
		event.Outcome = OutcomeSuccess
		event.Description = "Backup completed"
		event.Metadata = mustJSON(map[string]interface{}{
			"destination": destination,
			"size_bytes":  sizeBytes,
		})
	}

	t.Log(event)
}

// LogAdminAction records an administrative action.
//
//nolint:gocritic // hugeParam: Actor passed by value for API simplicity
func (t *Trail) LogAdminAction(ctx context.Context, actor Actor, source Source, action, description string, metadata map[string]interface{}) {
	t.Log(&Event{
		Type:        EventTypeAdminAction,
		Severity:    SeverityWarning,
		Outcome:     OutcomeSuccess,
		Actor:       actor,
		Source:      source,
		Action:      action,
		Description: description,
		Metadata:    mustJSON(metadata),
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

// mustJSON marshals v, returning an empty object on error.
func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}
