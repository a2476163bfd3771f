// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Health_NoCheckers(t *testing.T) {
	m := NewManager("v1.0.0")

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.GreaterOrEqual(t, resp.Uptime, int64(0))
	assert.Nil(t, resp.Checks)
}

func TestManager_Health_WithCheckers(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "healthy", status: StatusHealthy})
	m.RegisterChecker(&mockChecker{name: "degraded", status: StatusDegraded})

	// Non-verbose: no checks included
	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Nil(t, resp.Checks)

	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
	assert.Equal(t, StatusHealthy, resp.Checks["healthy"].Status)
	assert.Equal(t, StatusDegraded, resp.Checks["degraded"].Status)
}

func TestManager_Ready_UnhealthyWinsOverDegraded(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "a", status: StatusUnhealthy})
	m.RegisterChecker(&mockChecker{name: "b", status: StatusDegraded})

	resp := m.Ready(context.Background())
	assert.False(t, resp.Ready)
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestManager_ServeHealth(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "test", status: StatusUnhealthy})

	req := httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil)
	w := httptest.NewRecorder()
	m.ServeHealth(w, req)

	// liveness stays 200 even with a failing component
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Len(t, resp.Checks, 1)
}

func TestManager_ServeReady(t *testing.T) {
	tests := []struct {
		name           string
		checker        Checker
		expectedStatus int
		expectedReady  bool
	}{
		{
			name:           "healthy",
			checker:        &mockChecker{name: "test", status: StatusHealthy},
			expectedStatus: http.StatusOK,
			expectedReady:  true,
		},
		{
			name:           "degraded",
			checker:        &mockChecker{name: "test", status: StatusDegraded},
			expectedStatus: http.StatusOK,
			expectedReady:  true,
		},
		{
			name:           "unhealthy",
			checker:        &mockChecker{name: "test", status: StatusUnhealthy},
			expectedStatus: http.StatusServiceUnavailable,
			expectedReady:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("v1.0.0")
			m.RegisterChecker(tt.checker)

			req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
			w := httptest.NewRecorder()
			m.ServeReady(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var resp ReadinessResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.expectedReady, resp.Ready)
		})
	}
}

func TestManager_ServeEncodingError(t *testing.T) {
	m := NewManager("v1.0.0")

	// Should not panic even if encoding fails
	m.ServeHealth(&brokenWriter{header: make(http.Header)}, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	m.ServeReady(&brokenWriter{header: make(http.Header)}, httptest.NewRequest(http.MethodGet, "/readyz", nil))
}

func TestPingChecker(t *testing.T) {
	ok := NewPingChecker("sessions", func(context.Context) error { return nil }, 0)
	assert.Equal(t, "sessions", ok.Name())
	assert.Equal(t, StatusHealthy, ok.Check(context.Background()).Status)

	bad := NewPingChecker("records", func(context.Context) error { return errors.New("database is locked") }, 0)
	res := bad.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Equal(t, "database is locked", res.Error)

	slow := NewPingChecker("redis", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, 10*time.Millisecond)
	res = slow.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Contains(t, res.Error, "deadline")
}

type fakeLoad struct{ running, waiting int }

func (f fakeLoad) Load() (int, int) { return f.running, f.waiting }

func TestQueueChecker(t *testing.T) {
	tests := []struct {
		name string
		load fakeLoad
		want Status
	}{
		{"idle", fakeLoad{0, 0}, StatusHealthy},
		{"workers busy, queue has room", fakeLoad{2, 3}, StatusHealthy},
		{"saturated", fakeLoad{2, 4}, StatusDegraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewQueueChecker(tt.load, 2, 4)
			assert.Equal(t, "job_queue", c.Name())
			assert.Equal(t, tt.want, c.Check(context.Background()).Status)
		})
	}
}

func TestFileChecker(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name           string
		setup          func() string
		expectedStatus Status
		expectedError  string
	}{
		{
			name: "file exists",
			setup: func() string {
				path := filepath.Join(tempDir, "font.ttf")
				require.NoError(t, os.WriteFile(path, []byte("content"), 0600))
				return path
			},
			expectedStatus: StatusHealthy,
		},
		{
			name: "empty file",
			setup: func() string {
				path := filepath.Join(tempDir, "empty.ttf")
				require.NoError(t, os.WriteFile(path, []byte{}, 0600))
				return path
			},
			expectedStatus: StatusDegraded,
		},
		{
			name: "file not found",
			setup: func() string {
				return filepath.Join(tempDir, "nonexistent.ttf")
			},
			expectedStatus: StatusUnhealthy,
			expectedError:  "file not found",
		},
		{
			name: "is directory",
			setup: func() string {
				path := filepath.Join(tempDir, "dir")
				require.NoError(t, os.Mkdir(path, 0750))
				return path
			},
			expectedStatus: StatusUnhealthy,
			expectedError:  "expected file, got directory",
		},
		{
			name:           "not configured",
			setup:          func() string { return "" },
			expectedStatus: StatusHealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewFileChecker("font_file", tt.setup())

			result := checker.Check(context.Background())
			assert.Equal(t, tt.expectedStatus, result.Status)
			if tt.expectedError != "" {
				assert.Contains(t, result.Error, tt.expectedError)
			}
		})
	}
}

type mockChecker struct {
	name    string
	status  Status
	message string
	err     string
}

func (m *mockChecker) Name() string {
	return m.name
}

func (m *mockChecker) Check(_ context.Context) CheckResult {
	return CheckResult{
		Status:  m.status,
		Message: m.message,
		Error:   m.err,
	}
}

// brokenWriter is a mock ResponseWriter that always fails to write
type brokenWriter struct {
	header http.Header
}

func (w *brokenWriter) Header() http.Header {
	return w.header
}

func (w *brokenWriter) Write([]byte) (int, error) {
	return 0, assert.AnError
}

func (w *brokenWriter) WriteHeader(int) {}
