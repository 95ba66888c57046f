package healthprobe

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Probe is one named component status surfaced by the readiness
// endpoint.
type Probe struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// HealthChecker provides health and readiness checks plus named
// component probes (ws-connected, breaker-state, last-scan-age).
type HealthChecker struct {
	startTime time.Time
	ready     atomic.Bool

	mu     sync.RWMutex
	probes map[string]Probe
}

// New creates a new HealthChecker.
func New() *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		probes:    make(map[string]Probe),
	}
}

// SetReady marks the application as ready to serve traffic.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// SetProbe records a named component status. Probes are informational;
// readiness is governed by SetReady alone.
func (h *HealthChecker) SetProbe(name string, ok bool, detail string) {
	h.mu.Lock()
	h.probes[name] = Probe{OK: ok, Detail: detail}
	h.mu.Unlock()
}

// Probes returns a copy of the current probe set.
func (h *HealthChecker) Probes() map[string]Probe {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]Probe, len(h.probes))
	for name, probe := range h.probes {
		out[name] = probe
	}
	return out
}

// Degraded returns the names of probes currently reporting not-OK,
// sorted for stable output.
func (h *HealthChecker) Degraded() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var names []string
	for name, probe := range h.probes {
		if !probe.OK {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string           `json:"status"`
	Uptime  string           `json:"uptime"`
	Message string           `json:"message,omitempty"`
	Probes  map[string]Probe `json:"probes,omitempty"`
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the application is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status: "healthy",
			Uptime: time.Since(h.startTime).String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK if ready, 503 Service Unavailable if not. Probe
// statuses ride along either way.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.ready.Load() {
			resp := HealthResponse{
				Status:  "not_ready",
				Message: "application is starting",
				Probes:  h.Probes(),
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(resp)
			return
		}

		resp := HealthResponse{
			Status: "ready",
			Uptime: time.Since(h.startTime).String(),
			Probes: h.Probes(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
