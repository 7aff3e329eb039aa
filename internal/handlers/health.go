package handlers

import (
	"net/http"
	"runtime"

	"charchive/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status            string `json:"status"`
	Ready             bool   `json:"ready"`
	Version           string `json:"version"`
	Uptime            string `json:"uptime"`
	Rebuilding        bool   `json:"rebuilding"`
	LastChecked       string `json:"lastChecked,omitempty"`
	LastRebuilt       string `json:"lastRebuilt,omitempty"`
	InitialCheckError string `json:"initialCheckError,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	// Stats summary
	TotalCards    int `json:"totalCards,omitempty"`
	IndexedTopics int `json:"indexedTopics,omitempty"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	healthStatus := h.maintainer.GetHealthStatus()
	stats := h.store.GetStats()

	response := HealthResponse{
		Ready:        healthStatus.Ready,
		Version:      startup.Version,
		Uptime:       healthStatus.Uptime,
		Rebuilding:   healthStatus.Rebuilding,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if healthStatus.Ready {
		response.Status = statusHealthy
	} else {
		response.Status = statusStarting
	}

	if !healthStatus.LastChecked.IsZero() {
		response.LastChecked = healthStatus.LastChecked.Format("2006-01-02T15:04:05Z07:00")
	}
	if !healthStatus.LastRebuilt.IsZero() {
		response.LastRebuilt = healthStatus.LastRebuilt.Format("2006-01-02T15:04:05Z07:00")
	}

	if healthStatus.InitialCheckError != "" {
		response.InitialCheckError = healthStatus.InitialCheckError
		response.Status = statusDegraded
	}

	if stats.TotalCards > 0 {
		response.TotalCards = stats.TotalCards
		response.IndexedTopics = stats.IndexedTopics
	}

	w.Header().Set("Content-Type", "application/json")

	if !healthStatus.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the service is ready to accept traffic
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.maintainer.IsReady() {
		w.WriteHeader(http.StatusOK)
		writeJSON(w, map[string]string{
			"status": "ready",
		})
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{
			"status": "not_ready",
		})
	}
}

// GetStats returns the cached archive statistics
func (h *Handlers) GetStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.store.GetStats())
}
