// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sai-platform/sai-dashboard/internal/auth"
	"github.com/sai-platform/sai-dashboard/internal/config"
	"github.com/sai-platform/sai-dashboard/internal/database"
	"github.com/sai-platform/sai-dashboard/internal/events"
	"github.com/sai-platform/sai-dashboard/internal/models"
)

// fakeStore implements Store in memory.
type fakeStore struct {
	records    map[int64]models.ExecutionRecord
	jobs       map[string]models.DatasetJob
	lastFilter database.ExecutionFilter
	pingErr    error
	legacy     bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: map[int64]models.ExecutionRecord{},
		jobs:    map[string]models.DatasetJob{},
	}
}

func (f *fakeStore) ListExecutions(_ context.Context, filter database.ExecutionFilter) ([]models.ExecutionRecord, int, error) {
	f.lastFilter = filter
	out := make([]models.ExecutionRecord, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, rec)
	}
	return out, len(out), nil
}

func (f *fakeStore) GetExecution(_ context.Context, id int64) (models.ExecutionRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return rec, database.ErrNotFound
	}
	return rec, nil
}

func (f *fakeStore) UpdateVerification(_ context.Context, id int64, update models.VerificationUpdate) (models.ExecutionRecord, error) {
	rec, ok := f.records[id]
	if !ok || rec.Analysis == nil {
		return models.ExecutionRecord{}, database.ErrNotFound
	}
	verified := update.Verified
	rec.Analysis.Verified = &verified
	rec.Analysis.VerifiedBy = update.VerifiedBy
	f.records[id] = rec
	return rec, nil
}

func (f *fakeStore) DeleteExecution(_ context.Context, id int64) (string, error) {
	rec, ok := f.records[id]
	if !ok {
		return "", database.ErrNotFound
	}
	delete(f.records, id)
	if rec.Image != nil {
		return rec.Image.ImageHash, nil
	}
	return "", nil
}

func (f *fakeStore) GetExecutionImage(_ context.Context, id int64) (models.ExecutionImage, error) {
	rec, ok := f.records[id]
	if !ok || rec.Image == nil {
		return models.ExecutionImage{}, database.ErrNotFound
	}
	return *rec.Image, nil
}

func (f *fakeStore) GetLegacyExecution(_ context.Context, id int64) (models.LegacyExecution, error) {
	if !f.legacy {
		return models.LegacyExecution{}, database.ErrLegacyUnavailable
	}
	if _, ok := f.records[id]; !ok {
		return models.LegacyExecution{}, database.ErrNotFound
	}
	return models.LegacyExecution{ID: id, WorkflowID: "wf-1", Finished: true}, nil
}

func (f *fakeStore) LegacyAvailable() bool { return f.legacy }

func (f *fakeStore) GetStats(context.Context, time.Time) (models.DashboardStats, error) {
	return models.DashboardStats{TotalExecutions: int64(len(f.records))}, nil
}

func (f *fakeStore) GetDailyCounts(context.Context, int) ([]models.DailyCount, error) {
	return []models.DailyCount{}, nil
}

func (f *fakeStore) CreateDatasetJob(_ context.Context, name string, params models.DatasetJobParams) (models.DatasetJob, error) {
	job := models.DatasetJob{
		ID:        "11111111-2222-3333-4444-555555555555",
		Name:      name,
		Status:    models.DatasetJobPending,
		Params:    params,
		CreatedAt: time.Now().UTC(),
	}
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeStore) GetDatasetJob(_ context.Context, id string) (models.DatasetJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return job, database.ErrNotFound
	}
	return job, nil
}

func (f *fakeStore) ListDatasetJobs(_ context.Context, _ int) ([]models.DatasetJob, error) {
	out := make([]models.DatasetJob, 0, len(f.jobs))
	for _, job := range f.jobs {
		out = append(out, job)
	}
	return out, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

type fakeImages struct {
	deleted []string
}

func (f *fakeImages) Path(hash, ext string) (string, error) { return "/tmp/" + hash + ext, nil }
func (f *fakeImages) Delete(hash, _ string) error {
	f.deleted = append(f.deleted, hash)
	return nil
}

type fakeScanner struct{}

func (fakeScanner) List() ([]models.DatasetInfo, error) { return []models.DatasetInfo{}, nil }
func (fakeScanner) Get(name string) (models.DatasetInfo, error) {
	return models.DatasetInfo{Name: name}, nil
}

func testRecord(id int64) models.ExecutionRecord {
	now := time.Now().UTC()
	return models.ExecutionRecord{
		Execution: models.Execution{ID: id, CameraID: "cam-01", Status: "success", StartedAt: now},
		Analysis: &models.ExecutionAnalysis{
			ExecutionID: id,
			HasFire:     true,
			RiskLevel:   models.RiskLevelHigh,
			UpdatedAt:   now,
		},
		Image: &models.ExecutionImage{ExecutionID: id, ImageHash: strings.Repeat("ab", 32), Width: 640, Height: 480},
	}
}

// newTestRouter builds the router with auth mode none (every request is
// admin) unless a middleware is passed in.
func newTestRouter(t *testing.T, store *fakeStore) (http.Handler, *fakeImages) {
	t.Helper()
	images := &fakeImages{}
	cfg := &config.Config{
		Server:   config.ServerConfig{BasePath: "/dashboard"},
		API:      config.APIConfig{DefaultPageSize: 20, MaxPageSize: 200},
		Security: config.SecurityConfig{CORSOrigins: []string{"*"}, RateLimitDisabled: true},
	}
	h := NewHandler(store, images, fakeScanner{}, events.NewHub(), nil, nil, cfg.API)
	return NewRouter(h, auth.NewMiddleware(auth.NoneAuthenticator{}), cfg), images
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestListExecutions(t *testing.T) {
	store := newFakeStore()
	store.records[1] = testRecord(1)
	store.records[2] = testRecord(2)
	router, _ := newTestRouter(t, store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/api/executions?risk_level=high,critical&has_fire=true&limit=10", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Meta.Pagination.Total)

	assert.Equal(t, []string{"high", "critical"}, store.lastFilter.RiskLevels)
	require.NotNil(t, store.lastFilter.HasFire)
	assert.True(t, *store.lastFilter.HasFire)
	assert.Equal(t, 10, store.lastFilter.Limit)
}

func TestListExecutionsRejectsBadParams(t *testing.T) {
	router, _ := newTestRouter(t, newFakeStore())

	for _, url := range []string{
		"/dashboard/api/executions?risk_level=severe",
		"/dashboard/api/executions?has_fire=maybe",
		"/dashboard/api/executions?min_confidence=2",
		"/dashboard/api/executions?since=yesterday",
		"/dashboard/api/executions?limit=-1",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, url)
	}
}

func TestGetExecution(t *testing.T) {
	store := newFakeStore()
	store.records[42] = testRecord(42)
	router, _ := newTestRouter(t, store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/api/executions/42", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/api/executions/99", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/api/executions/notanumber", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateVerification(t *testing.T) {
	store := newFakeStore()
	store.records[7] = testRecord(7)
	router, _ := newTestRouter(t, store)

	body := strings.NewReader(`{"verified": true}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/dashboard/api/executions/7/verification", body))
	require.Equal(t, http.StatusOK, rec.Code)

	stored := store.records[7]
	require.NotNil(t, stored.Analysis.Verified)
	assert.True(t, *stored.Analysis.Verified)
	assert.Equal(t, "anonymous", stored.Analysis.VerifiedBy)

	// Missing field is a validation error.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/dashboard/api/executions/7/verification", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteExecutionCleansUpImage(t *testing.T) {
	store := newFakeStore()
	rec42 := testRecord(42)
	store.records[42] = rec42
	router, images := newTestRouter(t, store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/dashboard/api/executions/42", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{rec42.Image.ImageHash}, images.deleted)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/dashboard/api/executions/42", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWorkflowProvenance(t *testing.T) {
	store := newFakeStore()
	store.records[5] = testRecord(5)
	router, _ := newTestRouter(t, store)

	// Legacy pool not configured: 503.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/api/executions/5/workflow", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	store.legacy = true
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/api/executions/5/workflow", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateDatasetJob(t *testing.T) {
	store := newFakeStore()
	router, _ := newTestRouter(t, store)

	body := strings.NewReader(`{"name": "wildfire-v1", "params": {"risk_levels": ["high"], "verified_only": true}}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/dashboard/api/datasets/jobs", body))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.jobs, 1)

	// Invalid risk level fails validation.
	body = strings.NewReader(`{"name": "bad", "params": {"risk_levels": ["severe"]}}`)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/dashboard/api/datasets/jobs", body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Missing name fails validation.
	body = strings.NewReader(`{"params": {}}`)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/dashboard/api/datasets/jobs", body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDatasetJob(t *testing.T) {
	store := newFakeStore()
	job, err := store.CreateDatasetJob(context.Background(), "set", models.DatasetJobParams{})
	require.NoError(t, err)
	router, _ := newTestRouter(t, store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/api/datasets/jobs/"+job.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/api/datasets/jobs/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	store := newFakeStore()
	router, _ := newTestRouter(t, store)

	for _, url := range []string{
		"/dashboard/api/health",
		"/dashboard/api/health/live",
		"/dashboard/api/health/ready",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		assert.Equal(t, http.StatusOK, rec.Code, url)
	}

	store.pingErr = errors.New("connection refused")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/api/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUserInfo(t *testing.T) {
	router, _ := newTestRouter(t, newFakeStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/api/auth/userinfo", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeEnvelope(t, rec)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "admin", data["role"])
}

func TestAdminUsersUnconfigured(t *testing.T) {
	router, _ := newTestRouter(t, newFakeStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/api/admin/users", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRoleEnforcement(t *testing.T) {
	store := newFakeStore()
	store.records[1] = testRecord(1)
	images := &fakeImages{}
	cfg := &config.Config{
		Server:   config.ServerConfig{BasePath: "/dashboard"},
		API:      config.APIConfig{DefaultPageSize: 20, MaxPageSize: 200},
		Security: config.SecurityConfig{CORSOrigins: []string{"*"}, RateLimitDisabled: true},
	}
	h := NewHandler(store, images, fakeScanner{}, events.NewHub(), nil, nil, cfg.API)
	router := NewRouter(h, auth.NewMiddleware(viewerAuthenticator{}), cfg)

	// Viewer can read.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/api/executions", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Viewer cannot verify or delete.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/dashboard/api/executions/1/verification", strings.NewReader(`{"verified":true}`)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/dashboard/api/executions/1", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

type viewerAuthenticator struct{}

func (viewerAuthenticator) Authenticate(context.Context, *http.Request) (auth.Subject, error) {
	return auth.Subject{ID: "v1", Username: "viewer", Role: models.RoleViewer, Method: "test"}, nil
}
func (viewerAuthenticator) Name() string { return "test" }
