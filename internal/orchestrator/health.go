package orchestrator

import (
	"sync"

	"github.com/your-org/skycam/internal/observability"
)

// Health tracks consecutive edge call failures. It is observational:
// crossing the threshold flips the healthy flag and is surfaced, but
// captures keep being attempted. Missed captures cannot be made up
// later.
type Health struct {
	mu        sync.Mutex
	threshold int
	failures  int
	healthy   bool
}

func NewHealth(threshold int) *Health {
	if threshold <= 0 {
		threshold = 3
	}
	observability.EdgeHealthy.Set(1)
	return &Health{threshold: threshold, healthy: true}
}

// RecordFailure bumps the counter and reports whether this failure
// flipped the edge to unhealthy.
func (h *Health) RecordFailure() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures++
	if h.healthy && h.failures >= h.threshold {
		h.healthy = false
		observability.EdgeHealthy.Set(0)
		return true
	}
	return false
}

// RecordSuccess resets the streak and reports whether the edge
// recovered.
func (h *Health) RecordSuccess() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = 0
	if !h.healthy {
		h.healthy = true
		observability.EdgeHealthy.Set(1)
		return true
	}
	return false
}

func (h *Health) Healthy() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.healthy
}

func (h *Health) ConsecutiveFailures() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.failures
}
