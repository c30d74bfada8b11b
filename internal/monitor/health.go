package monitor

import (
	"sync"
	"time"
)

// HealthStatus summarizes how reliably the provider has been answering.
type HealthStatus string

const (
	StatusHealthy  HealthStatus = "healthy"
	StatusDegraded HealthStatus = "degraded"
	StatusFailed   HealthStatus = "failed"
)

// Health is a point-in-time copy of provider health.
type Health struct {
	Provider            string       `json:"provider"`
	Status              HealthStatus `json:"status"`
	ConsecutiveFailures int          `json:"consecutiveFailures"`
	TotalFailures       int64        `json:"totalFailures"`
	LastError           string       `json:"lastError,omitempty"`
	LastFailure         time.Time    `json:"lastFailure,omitempty"`
}

// providerHealth tracks consecutive query failures for a provider. Fields
// are protected by mu because the detector writes them while the HTTP
// server reads them.
type providerHealth struct {
	mu                  sync.Mutex
	threshold           int
	consecutiveFailures int
	totalFailures       int64
	lastErr             string
	lastFail            time.Time
	lastEmittedStatus   HealthStatus
}

func newProviderHealth(threshold int) *providerHealth {
	if threshold < 1 {
		threshold = 1
	}
	return &providerHealth{
		threshold:         threshold,
		lastEmittedStatus: StatusHealthy,
	}
}

func (h *providerHealth) recordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutiveFailures = 0
}

func (h *providerHealth) recordFailure(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutiveFailures++
	h.totalFailures++
	h.lastErr = err.Error()
	h.lastFail = time.Now()
}

func (h *providerHealth) setThreshold(threshold int) {
	if threshold < 1 {
		threshold = 1
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.threshold = threshold
}

// statusLocked computes health status. Caller must hold h.mu.
func (h *providerHealth) statusLocked() HealthStatus {
	switch {
	case h.consecutiveFailures >= h.threshold:
		return StatusFailed
	case h.consecutiveFailures > 0:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

func (h *providerHealth) status() HealthStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.statusLocked()
}

// transition reports the current status and whether it differs from the
// last reported one, updating the reported status when it does.
func (h *providerHealth) transition() (HealthStatus, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	status := h.statusLocked()
	changed := status != h.lastEmittedStatus
	h.lastEmittedStatus = status
	return status, changed
}

func (h *providerHealth) snapshot(provider string) Health {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Health{
		Provider:            provider,
		Status:              h.statusLocked(),
		ConsecutiveFailures: h.consecutiveFailures,
		TotalFailures:       h.totalFailures,
		LastError:           h.lastErr,
		LastFailure:         h.lastFail,
	}
}
