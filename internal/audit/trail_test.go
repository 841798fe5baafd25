// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package audit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"

	"github.com/rollcall-attendance/rollcall/internal/auth"
	"github.com/rollcall-attendance/rollcall/internal/authz"
	"github.com/rollcall-attendance/rollcall/internal/logging"
	"github.com/rollcall-attendance/rollcall/internal/metrics"
)

// The trail is what the authz middleware audits denials through.
var _ authz.DenialAuditor = (*Trail)(nil)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m io_prometheus_client.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("failed to read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func trailEvent(severity Severity) *Event {
	return &Event{
		Type:     EventTypeAuthSuccess,
		Severity: severity,
		Outcome:  OutcomeSuccess,
		Actor:    Actor{ID: "stu-1001", Type: "user"},
		Action:   "test",
	}
}

func trailConfig(bufferSize int) *Config {
	return &Config{
		Enabled:     true,
		MinSeverity: SeverityDebug,
		BufferSize:  bufferSize,
	}
}

func TestTrail_CloseFlushesBuffer(t *testing.T) {
	store := NewMemoryStore(0)
	trail := NewTrail(store, trailConfig(16))

	before := counterValue(t, metrics.SecurityEvents.WithLabelValues(string(EventTypeAuthSuccess), string(OutcomeSuccess)))
	for i := 0; i < 5; i++ {
		trail.Log(trailEvent(SeverityInfo))
	}
	if err := trail.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if store.Len() != 5 {
		t.Fatalf("stored %d events, want 5", store.Len())
	}
	after := counterValue(t, metrics.SecurityEvents.WithLabelValues(string(EventTypeAuthSuccess), string(OutcomeSuccess)))
	if delta := after - before; delta != 5 {
		t.Errorf("security_events_total delta = %v, want 5", delta)
	}

	events, err := store.Query(context.Background(), QueryFilter{Limit: 1})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if events[0].ID == "" {
		t.Error("event ID not filled in")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("event timestamp not filled in")
	}
}

func TestTrail_SeverityFloor(t *testing.T) {
	store := NewMemoryStore(0)
	cfg := trailConfig(16)
	cfg.MinSeverity = SeverityWarning
	trail := NewTrail(store, cfg)

	for _, sev := range []Severity{SeverityDebug, SeverityInfo, SeverityWarning, SeverityError, SeverityCritical} {
		trail.Log(trailEvent(sev))
	}
	trail.Close()

	if store.Len() != 3 {
		t.Errorf("stored %d events with warning floor, want 3", store.Len())
	}
}

func TestTrail_DisabledLogsNothing(t *testing.T) {
	store := NewMemoryStore(0)
	cfg := trailConfig(16)
	cfg.Enabled = false
	trail := NewTrail(store, cfg)

	trail.Log(trailEvent(SeverityCritical))
	trail.Close()

	if store.Len() != 0 {
		t.Errorf("disabled trail stored %d events, want 0", store.Len())
	}
}

type blockingSecurityStore struct {
	mu      sync.Mutex
	saved   []Event
	started chan struct{}
	release chan struct{}
}

func (s *blockingSecurityStore) Save(_ context.Context, event *Event) error {
	s.started <- struct{}{}
	<-s.release
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, *event)
	return nil
}

func (s *blockingSecurityStore) Query(_ context.Context, _ QueryFilter) ([]Event, error) {
	return nil, errors.New("not implemented")
}

func (s *blockingSecurityStore) Count(_ context.Context, _ QueryFilter) (int64, error) {
	return 0, errors.New("not implemented")
}

func (s *blockingSecurityStore) Delete(_ context.Context, _ time.Time) (int64, error) {
	return 0, errors.New("not implemented")
}

func (s *blockingSecurityStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func TestTrail_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	store := &blockingSecurityStore{
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
	trail := NewTrail(store, trailConfig(1))

	// First event is taken by the writer and parks inside Save.
	trail.Log(trailEvent(SeverityInfo))
	<-store.started

	// Second event occupies the single buffer slot.
	trail.Log(trailEvent(SeverityInfo))

	before := counterValue(t, metrics.SecurityEventsDropped)
	trail.Log(trailEvent(SeverityInfo))
	after := counterValue(t, metrics.SecurityEventsDropped)
	if delta := after - before; delta != 1 {
		t.Errorf("security_events_dropped_total delta = %v, want 1", delta)
	}

	close(store.release)
	trail.Close()

	if got := store.count(); got != 2 {
		t.Errorf("stored %d events, want 2 (third dropped)", got)
	}
}

func TestTrail_CleanupPrunesExpiredEvents(t *testing.T) {
	store := NewMemoryStore(0)
	old := trailEvent(SeverityInfo)
	old.ID = "old"
	old.Timestamp = time.Now().AddDate(0, 0, -100)
	recent := trailEvent(SeverityInfo)
	recent.ID = "recent"
	recent.Timestamp = time.Now()
	for _, ev := range []*Event{old, recent} {
		if err := store.Save(context.Background(), ev); err != nil {
			t.Fatalf("seed Save failed: %v", err)
		}
	}

	cfg := trailConfig(4)
	cfg.RetentionDays = 30
	cfg.CleanupInterval = 20 * time.Millisecond
	trail := NewTrail(store, cfg)
	defer trail.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	trail.StartCleanupRoutine(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for store.Len() > 1 {
		if time.Now().After(deadline) {
			t.Fatalf("cleanup did not prune expired event, %d remain", store.Len())
		}
		time.Sleep(10 * time.Millisecond)
	}

	events, err := store.Query(context.Background(), QueryFilter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 || events[0].ID != "recent" {
		t.Errorf("surviving events = %v, want [recent]", events)
	}
}

func TestTrail_RequestIDRidesContext(t *testing.T) {
	store := NewMemoryStore(0)
	trail := NewTrail(store, trailConfig(4))

	ctx := logging.ContextWithRequestID(context.Background(), "req-9")
	trail.LogAuthSuccess(ctx, Actor{ID: "stu-1001", Type: "user", AuthMethod: "jwt"}, Source{})
	trail.Close()

	events, _ := store.Query(context.Background(), QueryFilter{})
	if len(events) != 1 {
		t.Fatalf("stored %d events, want 1", len(events))
	}
	if events[0].RequestID != "req-9" {
		t.Errorf("request id = %q, want req-9", events[0].RequestID)
	}
}

func TestTrail_HelperEvents(t *testing.T) {
	store := NewMemoryStore(0)
	trail := NewTrail(store, trailConfig(32))
	ctx := context.Background()
	source := Source{IPAddress: "10.0.0.7", UserAgent: "rollcall-kiosk/2.1"}
	actor := Actor{ID: "stu-1001", Type: "user", Name: "amara", Roles: []string{"student"}, AuthMethod: "jwt"}

	trail.LogAuthSuccess(ctx, actor, source)
	trail.LogAuthFailure(ctx, "amara", source, "invalid credentials")
	trail.LogLogout(ctx, actor, source, "sess-5")
	trail.RecordAuthzDenial(ctx, &auth.AuthSubject{ID: "stu-1001", Username: "amara", Roles: []string{"student"}}, "/api/v1/roster/import", "write")
	trail.LogImport(ctx, actor, source, "/data/roster.db", map[string]int{"sites": 3, "rotations": 12})
	trail.LogBackup(ctx, "/backups/2026-03-10", 4096, nil)
	trail.LogBackup(ctx, "/backups/2026-03-11", 0, errors.New("disk full"))
	trail.LogAdminAction(ctx, actor, source, "policy.reload", "Authorization policy reloaded", map[string]interface{}{"rules": 14})
	trail.Close()

	query := func(types ...EventType) []Event {
		events, err := store.Query(ctx, QueryFilter{Types: types})
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		return events
	}

	t.Run("auth success", func(t *testing.T) {
		events := query(EventTypeAuthSuccess)
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1", len(events))
		}
		ev := events[0]
		if ev.Severity != SeverityInfo || ev.Outcome != OutcomeSuccess || ev.Action != "authenticate" {
			t.Errorf("unexpected event shape: %+v", ev)
		}
		var meta map[string]string
		if err := json.Unmarshal(ev.Metadata, &meta); err != nil || meta["method"] != "jwt" {
			t.Errorf("metadata = %s, want method=jwt", ev.Metadata)
		}
	})

	t.Run("auth failure", func(t *testing.T) {
		events := query(EventTypeAuthFailure)
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1", len(events))
		}
		ev := events[0]
		if ev.Severity != SeverityWarning || ev.Outcome != OutcomeFailure {
			t.Errorf("severity/outcome = %s/%s", ev.Severity, ev.Outcome)
		}
		if ev.Actor.ID != "amara" {
			t.Errorf("actor = %+v, want claimed username", ev.Actor)
		}
		if !strings.Contains(ev.Description, "invalid credentials") {
			t.Errorf("description = %q", ev.Description)
		}
	})

	t.Run("logout targets session", func(t *testing.T) {
		events := query(EventTypeLogout)
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1", len(events))
		}
		if events[0].Target == nil || events[0].Target.ID != "sess-5" || events[0].Target.Type != "session" {
			t.Errorf("target = %+v", events[0].Target)
		}
	})

	t.Run("authz denial", func(t *testing.T) {
		events := query(EventTypeAuthzDenied)
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1", len(events))
		}
		ev := events[0]
		if ev.Actor.ID != "stu-1001" || ev.Actor.Name != "amara" {
			t.Errorf("actor = %+v", ev.Actor)
		}
		if ev.Target == nil || ev.Target.ID != "/api/v1/roster/import" {
			t.Errorf("target = %+v", ev.Target)
		}
		if !strings.Contains(ev.Description, "write on /api/v1/roster/import") {
			t.Errorf("description = %q", ev.Description)
		}
	})

	t.Run("import counts", func(t *testing.T) {
		events := query(EventTypeDataImport)
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1", len(events))
		}
		var meta struct {
			Source string         `json:"source"`
			Rows   map[string]int `json:"rows"`
		}
		if err := json.Unmarshal(events[0].Metadata, &meta); err != nil {
			t.Fatalf("metadata unmarshal failed: %v", err)
		}
		if meta.Source != "/data/roster.db" || meta.Rows["sites"] != 3 || meta.Rows["rotations"] != 12 {
			t.Errorf("metadata = %+v", meta)
		}
	})

	t.Run("backup outcomes", func(t *testing.T) {
		events := query(EventTypeDataBackup)
		if len(events) != 2 {
			t.Fatalf("got %d events, want 2", len(events))
		}
		for _, ev := range events {
			switch ev.Outcome {
			case OutcomeSuccess:
				if ev.Severity != SeverityInfo || ev.Target.ID != "/backups/2026-03-10" {
					t.Errorf("success backup = %+v", ev)
				}
			case OutcomeFailure:
				if ev.Severity != SeverityError || !strings.Contains(ev.Description, "disk full") {
					t.Errorf("failed backup = %+v", ev)
				}
			}
		}
		if events[0].Actor.Type != "system" {
			t.Errorf("backup actor = %+v, want system actor", events[0].Actor)
		}
	})

	t.Run("admin action", func(t *testing.T) {
		events := query(EventTypeAdminAction)
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1", len(events))
		}
		ev := events[0]
		if ev.Severity != SeverityWarning || ev.Action != "policy.reload" {
			t.Errorf("event = %+v", ev)
		}
	})
}

func TestActorFromSubject(t *testing.T) {
	tests := []struct {
		name    string
		subject *auth.AuthSubject
		wantID  string
	}{
		{"nil subject", nil, ""},
		{"full subject", &auth.AuthSubject{ID: "stu-1001", Username: "amara", Roles: []string{"student"}, AuthMethod: auth.AuthModeJWT}, "stu-1001"},
		{"id falls back to username", &auth.AuthSubject{Username: "kiosk-3"}, "kiosk-3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor := ActorFromSubject(tt.subject)
			if actor.ID != tt.wantID {
				t.Errorf("actor.ID = %q, want %q", actor.ID, tt.wantID)
			}
			if actor.Type != "user" {
				t.Errorf("actor.Type = %q, want user", actor.Type)
			}
		})
	}

	full := ActorFromSubject(&auth.AuthSubject{ID: "stu-1001", Username: "amara", Roles: []string{"student"}, AuthMethod: auth.AuthModeJWT})
	if full.Name != "amara" || len(full.Roles) != 1 || full.AuthMethod != string(auth.AuthModeJWT) {
		t.Errorf("actor = %+v", full)
	}
}
