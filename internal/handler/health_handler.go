package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"compdash/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler handles health check requests
type HealthHandler struct {
	checks  map[string]HealthCheck
	version string
	logger  *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(checks map[string]HealthCheck, version string, logger *logger.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, version: version, logger: logger}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Service   string            `json:"service"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	h.write(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
		Service:   "compdash",
	})
}

// Ready handles GET /health/ready by probing every dependency in parallel
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	results := make(map[string]string, len(h.checks))

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	// every probe runs to completion so the response names each failure
	var g errgroup.Group
	for _, name := range names {
		check := h.checks[name]
		g.Go(func() error {
			err := check(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[name] = "unhealthy: " + err.Error()
				return err
			}
			results[name] = "ok"
			return nil
		})
	}

	status, code := "ready", http.StatusOK
	if err := g.Wait(); err != nil {
		h.logger.WithError(err).Warn("Readiness check failed")
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	h.write(w, code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Version:   h.version,
		Service:   "compdash",
		Checks:    results,
	})
}

func (h *HealthHandler) write(w http.ResponseWriter, code int, response HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.WithError(err).Error("Failed to encode health check response")
	}
}
