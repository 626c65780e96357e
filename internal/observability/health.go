package observability

import (
	"sync"
	"time"
)

// Status is the service-level health status.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
)

// Health tracks service liveness and the outcome of the most recent
// analysis run. It backs the /healthz endpoint.
type Health struct {
	mu        sync.RWMutex
	startTime time.Time
	lastRunID string
	lastRunAt time.Time
	lastError string
}

// NewHealth creates a tracker with the uptime clock started now.
func NewHealth() *Health {
	return &Health{startTime: time.Now()}
}

// RecordRun notes a successful analysis run.
func (h *Health) RecordRun(runID string) {
	h.mu.Lock()
	h.lastRunID = runID
	h.lastRunAt = time.Now()
	h.lastError = ""
	h.mu.Unlock()
}

// RecordFailure notes a failed analysis run.
func (h *Health) RecordFailure(err error) {
	h.mu.Lock()
	h.lastRunAt = time.Now()
	h.lastError = err.Error()
	h.mu.Unlock()
}

// Snapshot is the JSON body served by /healthz.
type Snapshot struct {
	Status        Status    `json:"status"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	LastRunID     string    `json:"last_run_id,omitempty"`
	LastRunAt     time.Time `json:"last_run_at"`
	LastError     string    `json:"last_error,omitempty"`
}

// Check returns the current health snapshot. The service reports degraded
// when the most recent run failed; it never reports unhealthy while it can
// still answer requests.
func (h *Health) Check() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := StatusHealthy
	if h.lastError != "" {
		status = StatusDegraded
	}
	return Snapshot{
		Status:        status,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		LastRunID:     h.lastRunID,
		LastRunAt:     h.lastRunAt,
		LastError:     h.lastError,
	}
}
