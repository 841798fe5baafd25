// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/rollcall-attendance/rollcall/internal/logging"
)

// DuckDBStore persists trail events in the security_events table. It shares
// the application's DuckDB handle; the table is owned by this package and
// created by CreateTable during bootstrap.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore creates a DuckDB-backed security store.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// CreateTable creates the security_events table and its indexes.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS security_events (
			id TEXT PRIMARY KEY,
			event_time TIMESTAMP NOT NULL,
			event_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			outcome TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			actor_type TEXT NOT NULL,
			actor_name TEXT,
			actor_roles TEXT,
			auth_method TEXT,
			target_id TEXT,
			target_type TEXT,
			source_ip TEXT,
			user_agent TEXT,
			action TEXT NOT NULL,
			description TEXT NOT NULL,
			metadata JSON,
			request_id TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_security_events_time ON security_events(event_time DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_security_events_type ON security_events(event_type);`,
		`CREATE INDEX IF NOT EXISTS idx_security_events_actor ON security_events(actor_id);`,
		`CREATE INDEX IF NOT EXISTS idx_security_events_request ON security_events(request_id);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create security_events schema: %w", err)
		}
	}
	logging.Debug().Msg("security_events table verified")
	return nil
}

// Save persists one trail event.
func (s *DuckDBStore) Save(ctx context.Context, event *Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	roles := "[]"
	if len(event.Actor.Roles) > 0 {
		if data, err := json.Marshal(event.Actor.Roles); err == nil {
			roles = string(data)
		}
	}

	var targetID, targetType *string
	if event.Target != nil {
		targetID, targetType = &event.Target.ID, &event.Target.Type
	}

	var metadata *string
	if len(event.Metadata) > 0 {
		m := string(event.Metadata)
		metadata = &m
	}

	query := `INSERT INTO security_events (
		id, event_time, event_type, severity, outcome,
		actor_id, actor_type, actor_name, actor_roles, auth_method,
		target_id, target_type, source_ip, user_agent,
		action, description, metadata, request_id, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		event.ID, event.Timestamp, string(event.Type), string(event.Severity), string(event.Outcome),
		event.Actor.ID, event.Actor.Type, event.Actor.Name, roles, event.Actor.AuthMethod,
		targetID, targetType, event.Source.IPAddress, event.Source.UserAgent,
		event.Action, event.Description, metadata, event.RequestID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save security event: %w", err)
	}
	return nil
}

// Query retrieves matching events newest first.
func (s *DuckDBStore) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	where, args := buildFilter(&filter)

	query := `SELECT id, event_time, event_type, severity, outcome,
		actor_id, actor_type, actor_name, actor_roles, auth_method,
		target_id, target_type, source_ip, user_agent,
		action, description, metadata, request_id
	FROM security_events` + where + " ORDER BY event_time DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultQueryFilter().Limit
	}
	query += " LIMIT ?"
	args = append(args, limit)
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query security events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating security events: %w", err)
	}
	return events, nil
}

// Count returns the number of matching events.
func (s *DuckDBStore) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	where, args := buildFilter(&filter)

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM security_events"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count security events: %w", err)
	}
	return count, nil
}

// Delete removes events older than the cutoff.
func (s *DuckDBStore) Delete(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM security_events WHERE event_time < ?", olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete security events: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, nil //nolint:nilerr // the delete ran; the count is best effort
	}
	return removed, nil
}

// buildFilter renders the WHERE clause for a filter.
func buildFilter(filter *QueryFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if cond := inCondition("event_type", filter.Types, &args); cond != "" {
		conditions = append(conditions, cond)
	}
	if cond := inCondition("severity", filter.Severities, &args); cond != "" {
		conditions = append(conditions, cond)
	}
	if cond := inCondition("outcome", filter.Outcomes, &args); cond != "" {
		conditions = append(conditions, cond)
	}
	if filter.ActorID != "" {
		conditions = append(conditions, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if filter.RequestID != "" {
		conditions = append(conditions, "request_id = ?")
		args = append(args, filter.RequestID)
	}
	if filter.StartTime != nil {
		conditions = append(conditions, "event_time >= ?")
		args = append(args, *filter.StartTime)
	}
	if filter.EndTime != nil {
		conditions = append(conditions, "event_time <= ?")
		args = append(args, *filter.EndTime)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// inCondition renders "col IN (?, ...)" for a slice of string-like values.
func inCondition[T ~string](column string, values []T, args *[]interface{}) string {
	if len(values) == 0 {
		return ""
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		*args = append(*args, string(v))
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ","))
}

func scanEvent(rows *sql.Rows) (*Event, error) {
	var event Event
	var eventType, severity, outcome string
	var actorName, roles, authMethod sql.NullString
	var targetID, targetType sql.NullString
	var sourceIP, userAgent sql.NullString
	var metadata, requestID sql.NullString

	err := rows.Scan(
		&event.ID, &event.Timestamp, &eventType, &severity, &outcome,
		&event.Actor.ID, &event.Actor.Type, &actorName, &roles, &authMethod,
		&targetID, &targetType, &sourceIP, &userAgent,
		&event.Action, &event.Description, &metadata, &requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan security event: %w", err)
	}

	event.Type = EventType(eventType)
	event.Severity = Severity(severity)
	event.Outcome = Outcome(outcome)
	event.Actor.Name = actorName.String
	event.Actor.AuthMethod = authMethod.String
	event.Source.IPAddress = sourceIP.String
	event.Source.UserAgent = userAgent.String
	event.RequestID = requestID.String

	if roles.Valid && roles.String != "" && roles.String != "[]" {
		if err := json.Unmarshal([]byte(roles.String), &event.Actor.Roles); err != nil {
			return nil, fmt.Errorf("failed to decode actor roles: %w", err)
		}
	}
	if targetID.Valid {
		event.Target = &Target{ID: targetID.String, Type: targetType.String}
	}
	if metadata.Valid && metadata.String != "" {
		event.Metadata = json.RawMessage(metadata.String)
	}
	return &event, nil
}
