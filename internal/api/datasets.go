// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/sai-platform/sai-dashboard/internal/database"
	"github.com/sai-platform/sai-dashboard/internal/dataset"
	"github.com/sai-platform/sai-dashboard/internal/models"
	"github.com/sai-platform/sai-dashboard/internal/validation"
)

// handleListDatasets is GET /datasets.
func (h *Handler) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	infos, err := h.datasets.List()
	if err != nil {
		rw.InternalError("failed to scan datasets")
		return
	}
	rw.Success(infos)
}

// handleGetDataset is GET /datasets/{name}.
func (h *Handler) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	name := chi.URLParam(r, "name")
	info, err := h.datasets.Get(name)
	if err != nil {
		if errors.Is(err, dataset.ErrDatasetNotFound) {
			rw.NotFound("dataset not found")
			return
		}
		rw.InternalError("failed to scan dataset")
		return
	}
	rw.Success(info)
}

// createJobRequest is the POST /datasets/jobs body.
type createJobRequest struct {
	Name   string                  `json:"name" validate:"required,min=1,max=128"`
	Params models.DatasetJobParams `json:"params"`
}

// handleCreateDatasetJob is POST /datasets/jobs. Requires the expert
// role. The job runs asynchronously; poll GET /datasets/jobs/{id} or
// subscribe to the event stream for completion.
func (h *Handler) handleCreateDatasetJob(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(req); err != nil {
		rw.ValidationError(err.Error())
		return
	}

	job, err := h.store.CreateDatasetJob(r.Context(), req.Name, req.Params)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Created(job)
}

// handleListDatasetJobs is GET /datasets/jobs.
func (h *Handler) handleListDatasetJobs(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > h.cfg.MaxPageSize {
			rw.BadRequest("invalid limit")
			return
		}
		limit = v
	}

	jobs, err := h.store.ListDatasetJobs(r.Context(), limit)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if jobs == nil {
		jobs = []models.DatasetJob{}
	}
	rw.Success(jobs)
}

// handleGetDatasetJob is GET /datasets/jobs/{id}.
func (h *Handler) handleGetDatasetJob(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	job, err := h.store.GetDatasetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("dataset job not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.Success(job)
}
