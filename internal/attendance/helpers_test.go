// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package attendance

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rollcall-attendance/rollcall/internal/config"
	"github.com/rollcall-attendance/rollcall/internal/database"
	"github.com/rollcall-attendance/rollcall/internal/geofence"
	"github.com/rollcall-attendance/rollcall/internal/models"
)

var fixedNow = time.Date(2026, 4, 2, 14, 30, 0, 0, time.UTC)

// fakeStore is an in-memory Store. Reads return copies, matching the real
// layer's row scans, so callers mutating a session do not reach back into
// the fixture.
type fakeStore struct {
	mu sync.Mutex

	sites       map[string]*models.Site
	rotations   []models.Rotation
	assignments []models.SiteAssignment

	sessions map[uuid.UUID]*models.ClockSession

	createErr error
	closeErr  error
	getErr    error

	siteReads   int
	listReads   int
	createCalls int
	closeCalls  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sites:    make(map[string]*models.Site),
		sessions: make(map[uuid.UUID]*models.ClockSession),
	}
}

func (f *fakeStore) CreateClockSession(_ context.Context, session *models.ClockSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	for _, s := range f.sessions {
		if s.SubjectID == session.SubjectID && s.ClockOut == nil {
			return database.ErrSessionAlreadyOpen
		}
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	stored := *session
	f.sessions[session.ID] = &stored
	return nil
}

func (f *fakeStore) CloseClockSession(_ context.Context, session *models.ClockSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	if f.closeErr != nil {
		return f.closeErr
	}
	stored, ok := f.sessions[session.ID]
	if !ok || stored.ClockOut != nil {
		return database.ErrSessionClosed
	}
	updated := *session
	updated.Status = models.ClockStatusCompleted
	f.sessions[session.ID] = &updated
	session.Status = models.ClockStatusCompleted
	return nil
}

func (f *fakeStore) GetClockSession(_ context.Context, id uuid.UUID) (*models.ClockSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	stored, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeStore) GetOpenClockSession(_ context.Context, subjectID string) (*models.ClockSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, s := range f.sessions {
		if s.SubjectID == subjectID && s.ClockOut == nil {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetSite(_ context.Context, id string) (*models.Site, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.siteReads++
	site, ok := f.sites[id]
	if !ok {
		return nil, nil
	}
	copied := *site
	return &copied, nil
}

func (f *fakeStore) GetRotation(_ context.Context, id string) (*models.Rotation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rotations {
		if f.rotations[i].ID == id {
			copied := f.rotations[i]
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListRotationsForSubject(_ context.Context, subjectID, siteID string) ([]models.Rotation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listReads++
	var out []models.Rotation
	for _, r := range f.rotations {
		if r.SubjectID != subjectID {
			continue
		}
		if siteID != "" && r.SiteID != siteID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) GetActiveSiteAssignment(_ context.Context, subjectID, siteID string) (*models.SiteAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assignments {
		if !a.Active || a.SubjectID != subjectID {
			continue
		}
		if siteID != "" && a.SiteID != siteID {
			continue
		}
		copied := a
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeStore) storedSession(id uuid.UUID) *models.ClockSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.sessions[id]
	if !ok {
		return nil
	}
	copied := *stored
	return &copied
}

type recordedVerification struct {
	in        geofence.VerifyInput
	res       *geofence.Result
	sessionID *uuid.UUID
}

// fakeVerifier returns a canned result and captures Verify/Record calls.
// A nil result means "valid, no findings".
type fakeVerifier struct {
	result *geofence.Result

	verified []geofence.VerifyInput
	recorded []recordedVerification
}

func (f *fakeVerifier) Verify(_ context.Context, in geofence.VerifyInput) *geofence.Result {
	f.verified = append(f.verified, in)
	if f.result != nil {
		return f.result
	}
	return &geofence.Result{
		IsValid:        true,
		DistanceM:      12,
		WithinGeofence: true,
		Status:         models.LocationVerified,
	}
}

func (f *fakeVerifier) Record(_ context.Context, in geofence.VerifyInput, res *geofence.Result, sessionID *uuid.UUID) {
	f.recorded = append(f.recorded, recordedVerification{in: in, res: res, sessionID: sessionID})
}

type reconciledLeg struct {
	sessionID uuid.UUID
	syncedAt  time.Time
	driftMs   int64
}

type fakeReconciler struct {
	inLegs  []reconciledLeg
	outLegs []reconciledLeg
	inErr   error
	outErr  error
}

func (f *fakeReconciler) ReconcileClockIn(_ context.Context, sessionID uuid.UUID, syncedAt time.Time, driftMs int64) error {
	if f.inErr != nil {
		return f.inErr
	}
	f.inLegs = append(f.inLegs, reconciledLeg{sessionID: sessionID, syncedAt: syncedAt, driftMs: driftMs})
	return nil
}

func (f *fakeReconciler) ReconcileClockOut(_ context.Context, sessionID uuid.UUID, syncedAt time.Time, driftMs int64) error {
	if f.outErr != nil {
		return f.outErr
	}
	f.outLegs = append(f.outLegs, reconciledLeg{sessionID: sessionID, syncedAt: syncedAt, driftMs: driftMs})
	return nil
}

type serviceFixture struct {
	service    *Service
	store      *fakeStore
	verifier   *fakeVerifier
	reconciler *fakeReconciler
}

func newServiceFixture() *serviceFixture {
	store := newFakeStore()
	verifier := &fakeVerifier{}
	reconciler := &fakeReconciler{}

	svc := New(&config.AttendanceConfig{}, store, verifier, reconciler, nil)
	svc.timeFunc = func() time.Time { return fixedNow }

	return &serviceFixture{
		service:    svc,
		store:      store,
		verifier:   verifier,
		reconciler: reconciler,
	}
}

// seedRotation registers a rotation valid around fixedNow unless the window
// is overridden by the caller.
func (f *serviceFixture) seedRotation(id, subjectID, siteID string, status models.RotationStatus) *models.Rotation {
	end := fixedNow.Add(7 * 24 * time.Hour)
	r := models.Rotation{
		ID:        id,
		SubjectID: subjectID,
		SiteID:    siteID,
		Status:    status,
		StartDate: fixedNow.Add(-7 * 24 * time.Hour),
		EndDate:   &end,
	}
	f.store.rotations = append(f.store.rotations, r)
	return &f.store.rotations[len(f.store.rotations)-1]
}

func (f *serviceFixture) seedSite(id, name string) *models.Site {
	lat, lon := 40.7128, -74.0060
	site := &models.Site{
		ID:             id,
		Name:           name,
		Latitude:       &lat,
		Longitude:      &lon,
		AllowedRadiusM: 150,
		Active:         true,
	}
	f.store.sites[id] = site
	return site
}

// seedOpenSession plants an open clock session for the subject.
func (f *serviceFixture) seedOpenSession(subjectID, siteID string, clockIn time.Time) *models.ClockSession {
	session := &models.ClockSession{
		ID:         uuid.New(),
		SubjectID:  subjectID,
		RotationID: "rot-seeded",
		SiteID:     siteID,
		ClockIn:    clockIn,
		Status:     models.ClockStatusActive,
	}
	f.store.sessions[session.ID] = session
	return session
}
