// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package api

import (
	"net/http"
	"strconv"
	"time"
)

// handleGetStats is GET /stats. The optional days parameter limits the
// window; omitted means all time.
func (h *Handler) handleGetStats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var since time.Time
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 || days > 3650 {
			rw.BadRequest("days must be an integer between 1 and 3650")
			return
		}
		since = time.Now().UTC().AddDate(0, 0, -days)
	}

	stats, err := h.store.GetStats(r.Context(), since)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(stats)
}

// handleGetDailyStats is GET /stats/daily?days=30.
func (h *Handler) handleGetDailyStats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 365 {
			rw.BadRequest("days must be an integer between 1 and 365")
			return
		}
		days = v
	}

	counts, err := h.store.GetDailyCounts(r.Context(), days)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(counts)
}
