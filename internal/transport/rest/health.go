package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type dbPinger interface {
	Ping(ctx context.Context) error
}

type queueReporter interface {
	QueueDepth() (queued, capacity int)
}

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	db      dbPinger
	queue   queueReporter
	version string
}

// NewHealthHandler creates a HealthHandler. queue may be nil when the
// process runs no workers.
func NewHealthHandler(db dbPinger, queue queueReporter, version string) *HealthHandler {
	return &HealthHandler{db: db, queue: queue, version: version}
}

// HealthResponse is the JSON response for /health and /ready.
type HealthResponse struct {
	Status     string                `json:"status"`
	Version    string                `json:"version,omitempty"`
	Components map[string]CompStatus `json:"components,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
}

// CompStatus is the status of an individual component.
type CompStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Live is the liveness probe. Always returns 200.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	})
}

// Ready is the readiness probe. Pings DB: 200 if OK, 503 if not.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "down",
			Timestamp: time.Now(),
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	})
}

// Health is the full health check. Pings DB with latency measurement,
// reports job queue saturation and includes version. A full queue degrades
// the status but keeps 200, since submitted work still drains.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	components := make(map[string]CompStatus)
	overallStatus := "ok"

	start := time.Now()
	err := h.db.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		components["database"] = CompStatus{Status: "down"}
		overallStatus = "down"
	} else {
		components["database"] = CompStatus{
			Status:  "ok",
			Latency: latency.String(),
		}
	}

	if h.queue != nil {
		queued, capacity := h.queue.QueueDepth()
		qs := CompStatus{Status: "ok", Detail: fmt.Sprintf("%d/%d queued", queued, capacity)}
		if capacity > 0 && queued >= capacity {
			qs.Status = "saturated"
			if overallStatus == "ok" {
				overallStatus = "degraded"
			}
		}
		components["jobs"] = qs
	}

	status := http.StatusOK
	if overallStatus == "down" {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, HealthResponse{
		Status:     overallStatus,
		Version:    h.version,
		Components: components,
		Timestamp:  time.Now(),
	})
}
