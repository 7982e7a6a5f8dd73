// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package api

import (
	"net/http"

	"github.com/sai-platform/sai-dashboard/internal/logging"
)

// handleEvents is GET /events: a Server-Sent Events stream of execution
// and dataset job updates. Event types: execution_created,
// execution_updated, execution_deleted, job_started, job_completed,
// job_failed.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		NewResponseWriter(w, r).InternalError("streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	client := h.hub.Subscribe()
	defer h.hub.Unsubscribe(client)

	// Initial comment so the client sees the stream open immediately.
	if _, err := w.Write([]byte(": connected\n\n")); err != nil {
		return
	}
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, open := <-client.Ch:
			if !open {
				return
			}
			if _, err := w.Write(frame); err != nil {
				logging.Ctx(ctx).Debug().Err(err).Msg("SSE write failed, closing stream")
				return
			}
			flusher.Flush()
		}
	}
}
