package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// ErrNotConfigured marks an optional dependency that is switched off.
var ErrNotConfigured = errors.New("not configured")

// HealthCheck checks one dependency. A nil error is healthy; ErrNotConfigured
// is reported but does not degrade the service.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
}

type HealthHandler struct {
	version   string
	startTime time.Time
	checks    []HealthCheck
}

func NewHealthHandler(version string, startTime time.Time, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: startTime,
		checks:    checks,
	}
}

// ServeHTTP always answers 200 while the process can serve captions; failing
// checks only affect speech transcription and mark the service degraded.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checks))
	status := "healthy"

	for _, c := range h.checks {
		err := c.Check(r.Context())
		switch {
		case err == nil:
			checks[c.Name] = "ok"
		case errors.Is(err, ErrNotConfigured):
			checks[c.Name] = "not_configured"
		default:
			checks[c.Name] = "unavailable"
			status = "degraded"
		}
	}

	resp := HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}
