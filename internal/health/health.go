// SPDX-License-Identifier: MIT

// Package health provides liveness and readiness checks for the ops server.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ManuGH/vidmark/internal/log"
)

// Status represents the overall health/readiness status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// DefaultCheckTimeout bounds a single checker.
const DefaultCheckTimeout = 2 * time.Second

// CheckResult represents the result of a component health check
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse represents the full health check response
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Uptime    int64                  `json:"uptime_seconds"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker defines the interface for health checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager manages health and readiness checks
type Manager struct {
	version  string
	started  time.Time
	checkers []Checker
}

// NewManager creates a new health check manager
func NewManager(version string) *Manager {
	return &Manager{
		version:  version,
		started:  time.Now(),
		checkers: make([]Checker, 0),
	}
}

// RegisterChecker adds a health checker to the manager
func (m *Manager) RegisterChecker(checker Checker) {
	m.checkers = append(m.checkers, checker)
}

// run executes every checker and folds the results into one status.
func (m *Manager) run(ctx context.Context) (map[string]CheckResult, Status) {
	checks := make(map[string]CheckResult, len(m.checkers))
	overall := StatusHealthy
	for _, checker := range m.checkers {
		result := checker.Check(ctx)
		checks[checker.Name()] = result
		switch result.Status {
		case StatusUnhealthy:
			overall = StatusUnhealthy
		case StatusDegraded:
			if overall == StatusHealthy {
				overall = StatusDegraded
			}
		}
	}
	return checks, overall
}

// Health performs a liveness check. The process is alive as long as it can
// answer; component checks only run in verbose mode.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Uptime:    int64(time.Since(m.started).Seconds()),
		Timestamp: time.Now(),
	}
	if verbose && len(m.checkers) > 0 {
		resp.Checks, resp.Status = m.run(ctx)
	}
	return resp
}

// Ready reports whether the bot can take work. Any unhealthy component
// makes it not ready; degraded components do not.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	resp := ReadinessResponse{
		Ready:     true,
		Status:    StatusHealthy,
		Timestamp: time.Now(),
	}
	if len(m.checkers) == 0 {
		return resp
	}
	resp.Checks, resp.Status = m.run(ctx)
	resp.Ready = resp.Status != StatusUnhealthy
	return resp
}

// ServeHealth handles HTTP health check requests
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "health")
	verbose := r.URL.Query().Get("verbose") == "true"

	resp := m.Health(r.Context(), verbose)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK) // Always 200 for liveness

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "health.encode_error").Msg("failed to encode health response")
	}

	logger.Debug().
		Str("event", "health.checked").
		Str("status", string(resp.Status)).
		Bool("verbose", verbose).
		Msg("health check performed")
}

// ServeReady handles HTTP readiness check requests
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "readiness")

	resp := m.Ready(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if resp.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "readiness.encode_error").Msg("failed to encode readiness response")
	}

	logger.Debug().
		Str("event", "readiness.checked").
		Str("status", string(resp.Status)).
		Bool("ready", resp.Ready).
		Msg("readiness check performed")
}

// PingChecker turns a Ping method (session store, records database) into
// a Checker. A failing ping is unhealthy.
type PingChecker struct {
	name    string
	ping    func(ctx context.Context) error
	timeout time.Duration
}

// NewPingChecker wraps ping. A zero timeout means DefaultCheckTimeout.
func NewPingChecker(name string, ping func(ctx context.Context) error, timeout time.Duration) *PingChecker {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	return &PingChecker{name: name, ping: ping, timeout: timeout}
}

func (c *PingChecker) Name() string {
	return c.name
}

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// LoadReporter exposes job pool occupancy.
type LoadReporter interface {
	Load() (running, waiting int)
}

// QueueChecker reports degraded when every worker is busy and the queue is
// full, so operators see saturation before users get busy replies.
type QueueChecker struct {
	pool      LoadReporter
	workers   int
	queueSize int
}

// NewQueueChecker creates a checker over the job pool.
func NewQueueChecker(pool LoadReporter, workers, queueSize int) *QueueChecker {
	return &QueueChecker{pool: pool, workers: workers, queueSize: queueSize}
}

func (c *QueueChecker) Name() string {
	return "job_queue"
}

func (c *QueueChecker) Check(context.Context) CheckResult {
	running, waiting := c.pool.Load()
	msg := fmt.Sprintf("%d running, %d waiting", running, waiting)
	if running >= c.workers && waiting >= c.queueSize {
		return CheckResult{Status: StatusDegraded, Message: "queue full: " + msg}
	}
	return CheckResult{Status: StatusHealthy, Message: msg}
}

// FileChecker checks if a file exists and is readable
type FileChecker struct {
	name string
	path string
}

// NewFileChecker creates a checker for file existence
func NewFileChecker(name, path string) *FileChecker {
	return &FileChecker{
		name: name,
		path: path,
	}
}

func (c *FileChecker) Name() string {
	return c.name
}

func (c *FileChecker) Check(ctx context.Context) CheckResult {
	if c.path == "" {
		return CheckResult{
			Status:  StatusHealthy,
			Message: "not configured (optional)",
		}
	}

	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusUnhealthy,
				Error:   "file not found",
				Message: c.path,
			}
		}
		return CheckResult{
			Status: StatusUnhealthy,
			Error:  err.Error(),
		}
	}

	if info.IsDir() {
		return CheckResult{
			Status: StatusUnhealthy,
			Error:  "expected file, got directory",
		}
	}

	if info.Size() == 0 {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "file is empty",
		}
	}

	return CheckResult{
		Status:  StatusHealthy,
		Message: "file exists and readable",
	}
}
