// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package auth

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
)

// MultiAuthenticator tries a set of authenticators in priority order until
// one succeeds. It exists for deployments where two credential kinds are in
// circulation at once, e.g. IdP-issued OIDC tokens from the coordinator
// dashboard next to locally minted JWTs on kiosk devices.
//
// Chain semantics: ErrNoCredentials and ErrAuthenticatorUnavailable mean
// "not mine, ask the next one". ErrInvalidCredentials and
// ErrExpiredCredentials are fatal: the caller presented credentials this
// authenticator owns and they failed, so falling through would let an
// attacker downgrade to a weaker mechanism.
type MultiAuthenticator struct {
	authenticators []Authenticator
}

// NewMultiAuthenticator creates a chain from the given authenticators,
// ordered by Priority (lowest first). The set is fixed at construction.
func NewMultiAuthenticator(authenticators ...Authenticator) *MultiAuthenticator {
	sorted := make([]Authenticator, len(authenticators))
	copy(sorted, authenticators)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	return &MultiAuthenticator{authenticators: sorted}
}

// Authenticate runs the chain. Returns the first successful subject, the
// first fatal error, or the last error seen when every authenticator
// declined.
func (m *MultiAuthenticator) Authenticate(ctx context.Context, r *http.Request) (*AuthSubject, error) {
	if len(m.authenticators) == 0 {
		return nil, ErrAuthenticatorUnavailable
	}

	var lastErr error
	for _, a := range m.authenticators {
		subject, err := a.Authenticate(ctx, r)
		if err == nil {
			return subject, nil
		}

		lastErr = err
		if !shouldTryNext(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

// shouldTryNext reports whether the chain may continue after err.
func shouldTryNext(err error) bool {
	return errors.Is(err, ErrNoCredentials) || errors.Is(err, ErrAuthenticatorUnavailable)
}

// Name returns the joined names of the chained authenticators.
func (m *MultiAuthenticator) Name() string {
	names := make([]string, len(m.authenticators))
	for i, a := range m.authenticators {
		names[i] = a.Name()
	}
	return "multi(" + strings.Join(names, ",") + ")"
}

// Priority returns 0; a chain always runs as the sole top-level
// authenticator.
func (m *MultiAuthenticator) Priority() int {
	return 0
}
