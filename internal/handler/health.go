// Copyright (c) 2025-2026 Cross Point Baptist Church
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"runtime"
	"time"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	db        *sql.DB
	startTime time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{
		db:        db,
		startTime: time.Now(),
	}
}

// HealthStatusPublic is the minimal health response for unauthenticated callers.
type HealthStatusPublic struct {
	Status string `json:"status"`
}

// HealthStatus is the detailed health response.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Checks    map[string]Check `json:"checks"`
	System    *SystemInfo      `json:"system,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo contains system-level information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutines"`
	NumCPU       int    `json:"num_cpus"`
}

// Health handles GET /health. Unauthenticated callers get a bare status;
// check details are reserved for admin-mounted routes.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	dbCheck := h.checkDatabase()

	overallStatus := "healthy"
	statusCode := http.StatusOK
	if dbCheck.Status != "healthy" {
		overallStatus = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(HealthStatusPublic{Status: overallStatus})
}

// HealthDetailed handles GET /api/admin/health, returning check details and
// system info for authenticated admins.
func (h *HealthHandler) HealthDetailed(w http.ResponseWriter, r *http.Request) {
	dbCheck := h.checkDatabase()

	overallStatus := "healthy"
	statusCode := http.StatusOK
	if dbCheck.Status != "healthy" {
		overallStatus = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	status := HealthStatus{
		Status:    overallStatus,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks: map[string]Check{
			"database": dbCheck,
		},
	}

	if r.URL.Query().Get("verbose") == "true" {
		status.System = &SystemInfo{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			NumCPU:       runtime.NumCPU(),
		}
	}

	WriteJSON(w, statusCode, status)
}

// Liveness handles GET /health/live.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness handles GET /health/ready. The service is ready once the
// database responds.
func (h *HealthHandler) Readiness(w http.ResponseWriter, _ *http.Request) {
	dbCheck := h.checkDatabase()

	if dbCheck.Status == "healthy" {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}

// checkDatabase verifies database connectivity.
func (h *HealthHandler) checkDatabase() Check {
	start := time.Now()

	err := h.db.Ping()
	latency := time.Since(start)

	if err != nil {
		return Check{
			Status:  "unhealthy",
			Message: err.Error(),
			Latency: latency.String(),
		}
	}

	return Check{
		Status:  "healthy",
		Message: "Connected",
		Latency: latency.String(),
	}
}
