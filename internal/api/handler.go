// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package api

import (
	"context"
	"time"

	"github.com/sai-platform/sai-dashboard/internal/auth"
	"github.com/sai-platform/sai-dashboard/internal/config"
	"github.com/sai-platform/sai-dashboard/internal/database"
	"github.com/sai-platform/sai-dashboard/internal/dataset"
	"github.com/sai-platform/sai-dashboard/internal/events"
	"github.com/sai-platform/sai-dashboard/internal/models"
)

// Store is the database surface the handlers depend on. *database.DB
// implements it; tests substitute a fake.
type Store interface {
	ListExecutions(ctx context.Context, filter database.ExecutionFilter) ([]models.ExecutionRecord, int, error)
	GetExecution(ctx context.Context, id int64) (models.ExecutionRecord, error)
	UpdateVerification(ctx context.Context, id int64, update models.VerificationUpdate) (models.ExecutionRecord, error)
	DeleteExecution(ctx context.Context, id int64) (string, error)
	GetExecutionImage(ctx context.Context, id int64) (models.ExecutionImage, error)
	GetLegacyExecution(ctx context.Context, id int64) (models.LegacyExecution, error)
	LegacyAvailable() bool

	GetStats(ctx context.Context, since time.Time) (models.DashboardStats, error)
	GetDailyCounts(ctx context.Context, days int) ([]models.DailyCount, error)

	CreateDatasetJob(ctx context.Context, name string, params models.DatasetJobParams) (models.DatasetJob, error)
	GetDatasetJob(ctx context.Context, id string) (models.DatasetJob, error)
	ListDatasetJobs(ctx context.Context, limit int) ([]models.DatasetJob, error)

	Ping(ctx context.Context) error
}

// ImageStore resolves content hashes to servable file paths.
type ImageStore interface {
	Path(hash, ext string) (string, error)
	Delete(hash, ext string) error
}

// DatasetScanner lists datasets on disk.
type DatasetScanner interface {
	List() ([]models.DatasetInfo, error)
	Get(name string) (models.DatasetInfo, error)
}

// UserDirectory lists users from the identity provider. May be nil when
// no management credentials are configured.
type UserDirectory interface {
	ListUsers(ctx context.Context) ([]auth.ManagementUser, error)
}

// Handler carries the dependencies shared by all endpoint handlers.
type Handler struct {
	store    Store
	images   ImageStore
	datasets DatasetScanner
	hub      *events.Hub
	users    UserDirectory
	jwtAuth  *auth.JWTAuthenticator // nil outside jwt mode
	cfg      config.APIConfig
}

// NewHandler wires the endpoint handlers.
func NewHandler(store Store, images ImageStore, datasets DatasetScanner, hub *events.Hub, users UserDirectory, jwtAuth *auth.JWTAuthenticator, cfg config.APIConfig) *Handler {
	return &Handler{
		store:    store,
		images:   images,
		datasets: datasets,
		hub:      hub,
		users:    users,
		jwtAuth:  jwtAuth,
		cfg:      cfg,
	}
}

var _ Store = (*database.DB)(nil)

// ensure dataset.Scanner satisfies the handler-facing interface.
var _ DatasetScanner = (*dataset.Scanner)(nil)
