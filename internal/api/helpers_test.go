// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/rollcall-attendance/rollcall/internal/attendance"
	"github.com/rollcall-attendance/rollcall/internal/auth"
	"github.com/rollcall-attendance/rollcall/internal/config"
	"github.com/rollcall-attendance/rollcall/internal/models"
	"github.com/rollcall-attendance/rollcall/internal/timesync"
	"github.com/rollcall-attendance/rollcall/internal/transport"
)

// fakeAuthority implements TimeAuthority with canned responses, recording
// the last call.
type fakeAuthority struct {
	mu             sync.Mutex
	snapshot       *timesync.ServerTimeSnapshot
	snapshotErr    error
	report         *timesync.DriftReport
	reportErr      error
	lastClientID   string
	lastClientTime time.Time
	lastTimestamp  int64
}

func (f *fakeAuthority) ServerTime(_ context.Context, clientID string) (*timesync.ServerTimeSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastClientID = clientID
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	if f.snapshot != nil {
		return f.snapshot, nil
	}
	now := time.Now()
	return &timesync.ServerTimeSnapshot{
		ServerTime: now,
		Timestamp:  now.UnixMilli(),
		Monotonic:  1,
		Timezone:   "UTC",
		ClientID:   clientID,
	}, nil
}

func (f *fakeAuthority) ReportClientTime(_ context.Context, clientID string, clientTime time.Time, clientTimestamp int64) (*timesync.DriftReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastClientID = clientID
	f.lastClientTime = clientTime
	f.lastTimestamp = clientTimestamp
	if f.reportErr != nil {
		return nil, f.reportErr
	}
	if f.report != nil {
		return f.report, nil
	}
	return &timesync.DriftReport{
		ServerTime:      time.Now(),
		ServerTimestamp: time.Now().UnixMilli(),
		DriftMs:         250,
		Accuracy:        models.SyncAccuracyHigh,
	}, nil
}

// fakeAttendance implements AttendanceService, recording the requests the
// handlers pass through.
type fakeAttendance struct {
	mu             sync.Mutex
	clockInResult  *attendance.ClockInResult
	clockInErr     error
	clockOutResult *attendance.ClockOutResult
	clockOutErr    error
	statusResult   *attendance.StatusResult
	statusErr      error
	lastClockIn    *attendance.ClockInRequest
	lastClockOut   *attendance.ClockOutRequest
	lastStatusID   string
	calls          int
}

func (f *fakeAttendance) ClockIn(_ context.Context, req *attendance.ClockInRequest) (*attendance.ClockInResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastClockIn = req
	return f.clockInResult, f.clockInErr
}

func (f *fakeAttendance) ClockOut(_ context.Context, req *attendance.ClockOutRequest) (*attendance.ClockOutResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastClockOut = req
	return f.clockOutResult, f.clockOutErr
}

func (f *fakeAttendance) Status(_ context.Context, subjectID string) (*attendance.StatusResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastStatusID = subjectID
	return f.statusResult, f.statusErr
}

// fakePoller implements EventPoller.
type fakePoller struct {
	mu      sync.Mutex
	msg     *transport.SyncEventMessage
	err     error
	lastReq transport.PollRequest
}

func (f *fakePoller) Poll(_ context.Context, req transport.PollRequest) (*transport.SyncEventMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	if f.msg != nil {
		return f.msg, nil
	}
	return &transport.SyncEventMessage{
		Type:       "heartbeat",
		Timestamp:  time.Now().UnixMilli(),
		ServerTime: time.Now().UTC().Format(time.RFC3339Nano),
		ClientID:   req.ClientID,
	}, nil
}

// fakeStream implements StreamUpgrader by recording the call.
type fakeStream struct {
	mu     sync.Mutex
	called bool
}

func (f *fakeStream) HandleStream(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	f.called = true
	f.mu.Unlock()
	w.WriteHeader(http.StatusSwitchingProtocols)
}

// fakePinger implements DatabasePinger.
type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error {
	return f.err
}

// testDeps bundles the fakes behind a test handler.
type testDeps struct {
	authority  *fakeAuthority
	attendance *fakeAttendance
	poller     *fakePoller
	stream     *fakeStream
}

func newTestHandler(t *testing.T) (*Handler, *testDeps) {
	t.Helper()
	deps := &testDeps{
		authority:  &fakeAuthority{},
		attendance: &fakeAttendance{},
		poller:     &fakePoller{},
		stream:     &fakeStream{},
	}
	cfg := &config.Config{}
	cfg.Security.AuthMode = "jwt"
	h := NewHandler(cfg, nil, deps.authority, deps.attendance, deps.stream, deps.poller, nil)
	return h, deps
}

func studentSubject() *auth.AuthSubject {
	return &auth.AuthSubject{
		ID:         "stu-1001",
		Username:   "amara",
		Roles:      []string{models.RoleStudent},
		AuthMethod: auth.AuthModeJWT,
	}
}

func coordinatorSubject() *auth.AuthSubject {
	return &auth.AuthSubject{
		ID:         "coord-7",
		Username:   "osei",
		Roles:      []string{models.RoleCoordinator},
		AuthMethod: auth.AuthModeJWT,
	}
}

// authedRequest builds a request carrying the subject, as the middleware
// would after authentication.
func authedRequest(method, target string, body string, subject *auth.AuthSubject) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	if subject != nil {
		r = r.WithContext(auth.ContextWithSubject(r.Context(), subject))
	}
	return r
}

// envelope mirrors models.APIResponse with raw data for per-test decoding.
type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Metadata models.Metadata `json:"metadata"`
	Error    *struct {
		Type      string `json:"type"`
		Code      string `json:"code"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return env
}

// decodeData unmarshals the envelope's data into out, failing the test on
// error envelopes.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("expected success envelope, got error %+v", env.Error)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
}

// wantError asserts an error envelope with the given status and code.
func wantError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %q)", rec.Code, status, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Success {
		t.Fatal("expected error envelope, got success")
	}
	if env.Error == nil {
		t.Fatal("error envelope missing error")
	}
	if env.Error.Code != code {
		t.Fatalf("error code = %q, want %q", env.Error.Code, code)
	}
}
