// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package api

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/sai-platform/sai-dashboard/internal/auth"
	"github.com/sai-platform/sai-dashboard/internal/database"
	"github.com/sai-platform/sai-dashboard/internal/logging"
	"github.com/sai-platform/sai-dashboard/internal/models"
)

// handleListExecutions is GET /executions.
//
// Query parameters: camera_id, status, risk_level (comma-separated),
// has_fire, has_smoke, verified, min_confidence, since, until (RFC 3339),
// limit, offset.
func (h *Handler) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	filter, err := h.parseExecutionFilter(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	records, total, err := h.store.ListExecutions(r.Context(), filter)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.SuccessWithPagination(records, &PaginationMeta{
		Total:   total,
		Count:   len(records),
		Offset:  filter.Offset,
		Limit:   filter.Limit,
		HasMore: filter.Offset+len(records) < total,
	})
}

func (h *Handler) parseExecutionFilter(r *http.Request) (database.ExecutionFilter, error) {
	q := r.URL.Query()
	filter := database.ExecutionFilter{
		CameraID: q.Get("camera_id"),
		Status:   q.Get("status"),
		Limit:    h.cfg.DefaultPageSize,
	}

	if raw := q.Get("risk_level"); raw != "" {
		for _, level := range strings.Split(raw, ",") {
			level = strings.TrimSpace(level)
			if !models.ValidRiskLevel(level) {
				return filter, errors.New("invalid risk_level: " + level)
			}
			filter.RiskLevels = append(filter.RiskLevels, level)
		}
	}

	var err error
	if filter.HasFire, err = parseBoolParam(q.Get("has_fire")); err != nil {
		return filter, errors.New("invalid has_fire")
	}
	if filter.HasSmoke, err = parseBoolParam(q.Get("has_smoke")); err != nil {
		return filter, errors.New("invalid has_smoke")
	}
	if filter.Verified, err = parseBoolParam(q.Get("verified")); err != nil {
		return filter, errors.New("invalid verified")
	}

	if raw := q.Get("min_confidence"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 1 {
			return filter, errors.New("min_confidence must be a number in [0, 1]")
		}
		filter.MinConfidence = v
	}

	if filter.Since, err = parseTimeParam(q.Get("since")); err != nil {
		return filter, errors.New("since must be RFC 3339")
	}
	if filter.Until, err = parseTimeParam(q.Get("until")); err != nil {
		return filter, errors.New("until must be RFC 3339")
	}

	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return filter, errors.New("limit must be a positive integer")
		}
		if v > h.cfg.MaxPageSize {
			v = h.cfg.MaxPageSize
		}
		filter.Limit = v
	}
	if raw := q.Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return filter, errors.New("offset must be a non-negative integer")
		}
		filter.Offset = v
	}

	return filter, nil
}

func parseBoolParam(raw string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseTimeParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// executionID reads the {id} route parameter.
func executionID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// handleGetExecution is GET /executions/{id}.
func (h *Handler) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, err := executionID(r)
	if err != nil {
		rw.BadRequest("invalid execution id")
		return
	}

	record, err := h.store.GetExecution(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("execution not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.Success(record)
}

// handleGetExecutionImage is GET /executions/{id}/image. The stored frame
// is served straight off disk; content addressing makes it immutable, so
// clients may cache it forever.
func (h *Handler) handleGetExecutionImage(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, err := executionID(r)
	if err != nil {
		rw.BadRequest("invalid execution id")
		return
	}

	img, err := h.store.GetExecutionImage(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("execution has no image")
			return
		}
		rw.DatabaseError(err)
		return
	}
	if img.ImageHash != "" {
		path, err := h.images.Path(img.ImageHash, ".jpg")
		if err != nil {
			rw.InternalError("invalid image reference")
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		http.ServeFile(w, r, path)
		return
	}

	// Rows ingested before content addressing carry only the pipeline's
	// original path. Served without the immutable cache hint; relative or
	// unclean paths are refused.
	if img.OriginalPath == "" || !filepath.IsAbs(img.OriginalPath) ||
		img.OriginalPath != filepath.Clean(img.OriginalPath) {
		rw.NotFound("execution image not stored")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	http.ServeFile(w, r, img.OriginalPath)
}

// handleGetExecutionWorkflow is GET /executions/{id}/workflow: the raw
// provenance row from the legacy workflow database.
func (h *Handler) handleGetExecutionWorkflow(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, err := executionID(r)
	if err != nil {
		rw.BadRequest("invalid execution id")
		return
	}

	legacy, err := h.store.GetLegacyExecution(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrLegacyUnavailable):
			rw.ServiceUnavailable("legacy workflow database not configured")
		case errors.Is(err, database.ErrNotFound):
			rw.NotFound("workflow execution not found")
		default:
			rw.DatabaseError(err)
		}
		return
	}
	rw.Success(legacy)
}

// handleUpdateVerification is PATCH /executions/{id}/verification.
// Requires the expert role (enforced at the router).
func (h *Handler) handleUpdateVerification(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, err := executionID(r)
	if err != nil {
		rw.BadRequest("invalid execution id")
		return
	}

	var body struct {
		Verified *bool `json:"verified"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if body.Verified == nil {
		rw.ValidationError("verified is required")
		return
	}

	update := models.VerificationUpdate{Verified: *body.Verified}
	if subject, ok := auth.SubjectFromContext(r.Context()); ok {
		update.VerifiedBy = subject.Username
	}

	record, err := h.store.UpdateVerification(r.Context(), id, update)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("execution has no analysis to verify")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.Success(record)
}

// handleDeleteExecution is DELETE /executions/{id}. Requires admin. The
// stored frame is removed once the row is gone.
func (h *Handler) handleDeleteExecution(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, err := executionID(r)
	if err != nil {
		rw.BadRequest("invalid execution id")
		return
	}

	hash, err := h.store.DeleteExecution(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("execution not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	if hash != "" {
		if err := h.images.Delete(hash, ".jpg"); err != nil {
			// The row is gone; an orphaned image is only a warning.
			logging.Ctx(r.Context()).Warn().Err(err).Str("hash", hash).Msg("Failed to delete stored image")
		}
	}
	rw.NoContent()
}
