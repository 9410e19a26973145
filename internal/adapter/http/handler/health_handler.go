package handler

import (
	"context"
	"net/http"
	"time"
)

// Checker probes one backend.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	checkers []Checker
	timeout  time.Duration
}

// NewHealthHandler creates a new HealthHandler. Readiness runs every checker.
func NewHealthHandler(checkers ...Checker) *HealthHandler {
	return &HealthHandler{
		checkers: checkers,
		timeout:  5 * time.Second,
	}
}

// Liveness returns 200 if the service is alive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness returns 200 if every configured backend answers.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	body := map[string]string{"status": "ready"}
	status := http.StatusOK

	for _, c := range h.checkers {
		if err := c.Check(ctx); err != nil {
			body[c.Name] = err.Error()
			body["status"] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		body[c.Name] = "ok"
	}

	writeJSON(w, status, body)
}
