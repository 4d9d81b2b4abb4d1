package http

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/tiback/tiback-client/internal/core/store"
)

// HealthChecker defines the interface for health check dependencies
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// StateReader exposes the current client state.
type StateReader interface {
	State() *store.State
}

// HealthHandler handles health check requests
type HealthHandler struct {
	backend   HealthChecker
	state     StateReader
	startTime time.Time
	version   string
}

// NewHealthHandler creates a new health handler. backend may be nil, in which
// case the backend check is skipped.
func NewHealthHandler(backend HealthChecker, state StateReader, version string) *HealthHandler {
	return &HealthHandler{
		backend:   backend,
		state:     state,
		startTime: time.Now(),
		version:   version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Version   string           `json:"version,omitempty"`
	Uptime    string           `json:"uptime,omitempty"`
	Checks    map[string]Check `json:"checks,omitempty"`
}

// Check represents an individual health check result
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// HandleLiveness answers 200 while the process is running.
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness answers 200 only while a session is established.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := map[string]Check{
		"session":   h.checkSession(),
		"websocket": h.checkWebSocket(),
	}

	overallStatus := "healthy"
	statusCode := http.StatusOK
	if checks["session"].Status != "healthy" {
		overallStatus = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	WriteJSON(w, statusCode, HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    checks,
	})
}

// HandleHealth reports every check plus runtime stats. A disconnected
// WebSocket only degrades the daemon since polling takes over.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]Check{
		"session":   h.checkSession(),
		"websocket": h.checkWebSocket(),
	}
	if h.backend != nil {
		checks["backend"] = h.checkBackend(ctx)
	}

	overallStatus := "healthy"
	for _, c := range checks {
		if c.Status != "healthy" {
			overallStatus = "degraded"
		}
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response := struct {
		HealthResponse
		Memory struct {
			Alloc uint64 `json:"alloc_bytes"`
			Sys   uint64 `json:"sys_bytes"`
			NumGC uint32 `json:"num_gc"`
		} `json:"memory"`
		Goroutines int `json:"goroutines"`
	}{
		HealthResponse: HealthResponse{
			Status:    overallStatus,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   h.version,
			Uptime:    time.Since(h.startTime).Round(time.Second).String(),
			Checks:    checks,
		},
		Goroutines: runtime.NumGoroutine(),
	}
	response.Memory.Alloc = memStats.Alloc
	response.Memory.Sys = memStats.Sys
	response.Memory.NumGC = memStats.NumGC

	WriteJSON(w, http.StatusOK, response)
}

func (h *HealthHandler) checkSession() Check {
	if !h.state.State().Auth.IsAuthenticated {
		return Check{Status: "unhealthy", Message: "not logged in"}
	}
	return Check{Status: "healthy"}
}

func (h *HealthHandler) checkWebSocket() Check {
	if !h.state.State().WebSocket.Connected {
		return Check{Status: "unhealthy", Message: "disconnected; polling"}
	}
	return Check{Status: "healthy"}
}

func (h *HealthHandler) checkBackend(ctx context.Context) Check {
	start := time.Now()
	err := h.backend.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return Check{
			Status:  "unhealthy",
			Message: err.Error(),
			Latency: latency.String(),
		}
	}
	return Check{Status: "healthy", Latency: latency.String()}
}
