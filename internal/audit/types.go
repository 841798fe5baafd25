// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// EventType categorizes security trail events.
type EventType string

const (
	EventTypeAuthSuccess EventType = "auth.success"
	EventTypeAuthFailure EventType = "auth.failure"
	EventTypeLogout      EventType = "auth.logout"
	EventTypeAuthzDenied EventType = "authz.denied"
	EventTypeDataImport  EventType = "data.import"
	EventTypeDataBackup  EventType = "data.backup"
	EventTypeAdminAction EventType = "admin.action"
)

// Severity indicates the severity level of a trail event.
type Severity string

const (
	SeverityDebug    Severity = "debug"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// severityRank orders severities for minimum-level filtering.
func severityRank(s Severity) int {
	switch s {
	case SeverityDebug:
		return 0
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityError:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 1
	}
}

// Outcome indicates whether the audited action succeeded.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is one security trail record.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Severity  Severity  `json:"severity"`
	Outcome   Outcome   `json:"outcome"`

	Actor  Actor   `json:"actor"`
	Target *Target `json:"target,omitempty"`
	Source Source  `json:"source"`

	// Action is the verb ("authenticate", "authorize", "import").
	Action string `json:"action"`

	// Description is the human-readable summary.
	Description string `json:"description"`

	// Metadata carries event-specific details as raw JSON.
	Metadata json.RawMessage `json:"metadata,omitempty"`

	// RequestID links the event to the originating HTTP request.
	RequestID string `json:"request_id,omitempty"`
}

// Actor is who performed the audited action.
type Actor struct {
	// ID is the subject identifier, or a well-known system name.
	ID string `json:"id"`

	// Type is "user" or "system".
	Type string `json:"type"`

	Name       string   `json:"name,omitempty"`
	Roles      []string `json:"roles,omitempty"`
	AuthMethod string   `json:"auth_method,omitempty"`
}

// Target is the object of the audited action.
type Target struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Source is where the request originated.
type Source struct {
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// SourceFromRequest builds a Source from an HTTP request, honoring proxy
// headers the same way the rest of the stack does.
func SourceFromRequest(r *http.Request) Source {
	ip := r.RemoteAddr
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip = xff
	} else if xri := r.Header.Get("X-Real-IP"); xri != "" {
		ip = xri
	}
	return Source{
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	}
}

// SystemActor is the actor for events raised by Rollcall itself, such as
// scheduled backups.
func SystemActor() Actor {
	return Actor{
		ID:   "system",
		Type: "system",
		Name: "Rollcall",
	}
}

// SecurityStore persists trail events.
type SecurityStore interface {
	// Save persists one event.
	Save(ctx context.Context, event *Event) error

	// Query retrieves events matching the filter, newest first by default.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Count returns the number of events matching the filter.
	Count(ctx context.Context, filter QueryFilter) (int64, error)

	// Delete removes events older than the cutoff and reports how many.
	Delete(ctx context.Context, olderThan time.Time) (int64, error)
}

// QueryFilter selects trail events. Zero values mean "no constraint".
type QueryFilter struct {
	Types      []EventType `json:"types,omitempty"`
	Severities []Severity  `json:"severities,omitempty"`
	Outcomes   []Outcome   `json:"outcomes,omitempty"`
	ActorID    string      `json:"actor_id,omitempty"`
	RequestID  string      `json:"request_id,omitempty"`
	StartTime  *time.Time  `json:"start_time,omitempty"`
	EndTime    *time.Time  `json:"end_time,omitempty"`
	Limit      int         `json:"limit,omitempty"`
	Offset     int         `json:"offset,omitempty"`
}

// DefaultQueryFilter returns the filter used when a query names no limits.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{Limit: 100}
}
