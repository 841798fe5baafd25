// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

// Session store errors.
var (
	// ErrSessionNotFound is returned when a session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when a session exists but has expired.
	ErrSessionExpired = errors.New("session expired")
)

// Session is the server-side record behind a revocable login token.
// Deleting the session invalidates every token that references it.
type Session struct {
	// ID is the opaque session identifier embedded in the token's sid claim.
	ID string `json:"id"`

	// UserID is the authenticated user this session belongs to.
	UserID string `json:"user_id"`

	// Username is the login name, kept for audit trails.
	Username string `json:"username"`

	// Roles captured at login time.
	Roles []string `json:"roles,omitempty"`

	// Provider records which auth mode created the session.
	Provider string `json:"provider,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the session has passed its expiry.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// NewSession creates a session for a subject with the given lifetime.
func NewSession(subject *AuthSubject, duration time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        generateSessionID(),
		UserID:    subject.ID,
		Username:  subject.Username,
		Roles:     append([]string(nil), subject.Roles...),
		Provider:  string(subject.AuthMethod),
		CreatedAt: now,
		ExpiresAt: now.Add(duration),
	}
}

// generateSessionID returns a 256-bit random hex identifier.
func generateSessionID() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		// crypto/rand failing means the platform entropy source is broken;
		// a time-derived ID keeps logins working but is visibly inferior.
		return hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(bytes)
}

// SessionStore persists login sessions. Implementations: MemorySessionStore
// for development, BadgerSessionStore for durable production storage.
type SessionStore interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// Get retrieves a session by ID. Returns ErrSessionNotFound when absent
	// and ErrSessionExpired when present but past its expiry.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteByUserID removes every session for a user and returns the count.
	// Used to force re-login after a credential compromise.
	DeleteByUserID(ctx context.Context, userID string) (int, error)

	// CleanupExpired removes expired sessions and returns the count.
	CleanupExpired(ctx context.Context) (int, error)

	// Close releases the store's resources.
	Close() error
}

// MemorySessionStore keeps sessions in process memory. Sessions do not
// survive a restart, which is acceptable for development: clients just log
// in again.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*Session)}
}

// Create stores a copy of the session.
func (s *MemorySessionStore) Create(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = copySession(session)
	return nil
}

// Get retrieves a session by ID.
func (s *MemorySessionStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.IsExpired() {
		return nil, ErrSessionExpired
	}
	return copySession(session), nil
}

// Delete removes a session by ID.
func (s *MemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// DeleteByUserID removes all sessions for a user.
func (s *MemorySessionStore) DeleteByUserID(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, id)
			count++
		}
	}
	return count, nil
}

// CleanupExpired removes expired sessions.
func (s *MemorySessionStore) CleanupExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, session := range s.sessions {
		if session.IsExpired() {
			delete(s.sessions, id)
			count++
		}
	}
	return count, nil
}

// Close is a no-op for the memory store.
func (s *MemorySessionStore) Close() error {
	return nil
}

// copySession returns a deep copy so callers cannot mutate stored state.
func copySession(session *Session) *Session {
	clone := *session
	clone.Roles = append([]string(nil), session.Roles...)
	return &clone
}
