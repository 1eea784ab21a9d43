package handlers

import (
	"net/http"
	"runtime"
	"time"

	"spc-catalog/internal/startup"
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
	Indexing          bool   `json:"indexing"`
	LastIndexed       string `json:"lastIndexed,omitempty"`
	InitialIndexError string `json:"initialIndexError,omitempty"`
	AssetsIndexed     int    `json:"assetsIndexed"`
	Database          bool   `json:"database"`

	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	TotalProducts    int `json:"totalProducts,omitempty"`
	TotalCollections int `json:"totalCollections,omitempty"`

	ThumbnailQueue    int  `json:"thumbnailQueue"`
	ThumbnailDraining bool `json:"thumbnailDraining"`
	ThumbnailsCached  int  `json:"thumbnailsCached"`
}

// HealthCheck returns the health status of the service. The service is
// degraded, not down, while it serves the fallback catalog.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	hs := h.health.GetHealthStatus()

	response := HealthResponse{
		Status:            statusHealthy,
		Ready:             hs.Ready,
		Version:           startup.Version,
		Uptime:            hs.Uptime,
		Indexing:          hs.Indexing,
		InitialIndexError: hs.InitialIndexError,
		AssetsIndexed:     hs.AssetsIndexed,
		Database:          h.stats != nil,
		GoVersion:         runtime.Version(),
		NumCPU:            runtime.NumCPU(),
		NumGoroutine:      runtime.NumGoroutine(),
	}

	if !hs.LastIndexed.IsZero() {
		response.LastIndexed = hs.LastIndexed.Format(time.RFC3339)
	}

	if h.stats != nil {
		stats := h.stats.GetStats()
		response.TotalProducts = stats.TotalProducts
		response.TotalCollections = stats.TotalCollections
	}

	if p, ok := h.thumbs.(thumbnailStats); ok {
		s := p.Stats()
		response.ThumbnailQueue = s.Queued
		response.ThumbnailDraining = s.Draining
		response.ThumbnailsCached = p.Cache().Len()
	}

	switch {
	case !hs.Ready:
		response.Status = statusStarting
	case hs.InitialIndexError != "" || h.stats == nil:
		response.Status = statusDegraded
	}

	code := http.StatusOK
	if !hs.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSONStatusCode(w, code, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 once the first asset index has completed
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.health.IsReady() {
		writeJSONStatus(w, "ready")
		return
	}
	writeJSONStatusCode(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}
