// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package api

import (
	"net/http"
	"time"
)

var startTime = time.Now()

// handleHealth is GET /health: overall status plus component detail.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	dbStatus := "ok"
	status := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		dbStatus = "unavailable"
		status = http.StatusServiceUnavailable
	}

	legacyStatus := "disabled"
	if h.store.LegacyAvailable() {
		legacyStatus = "ok"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "degraded"
	}
	body := map[string]interface{}{
		"status":         overall,
		"uptime_seconds": int64(time.Since(startTime).Seconds()),
		"components": map[string]string{
			"database":        dbStatus,
			"legacy_database": legacyStatus,
		},
		"sse_clients": h.hub.ClientCount(),
	}
	if status == http.StatusOK {
		rw.Success(body)
		return
	}
	rw.writeJSON(status, APIResponse{Success: false, Data: body, Meta: rw.meta()})
}

// handleLiveness is GET /health/live: process is up.
func (h *Handler) handleLiveness(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// handleReadiness is GET /health/ready: 503 until the database answers.
func (h *Handler) handleReadiness(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if err := h.store.Ping(r.Context()); err != nil {
		rw.ServiceUnavailable("database not ready")
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}
