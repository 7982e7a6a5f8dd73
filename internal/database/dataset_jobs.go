// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/sai-platform/sai-dashboard/internal/logging"
	"github.com/sai-platform/sai-dashboard/internal/metrics"
	"github.com/sai-platform/sai-dashboard/internal/models"
)

const datasetJobColumns = `
	id, name, status, params, total_images, processed_images,
	errors, output_path, created_at, started_at, finished_at`

func scanDatasetJob(row pgx.Row) (models.DatasetJob, error) {
	var job models.DatasetJob
	var params, errList []byte
	err := row.Scan(&job.ID, &job.Name, &job.Status, &params,
		&job.TotalImages, &job.ProcessedImages, &errList,
		&job.OutputPath, &job.CreatedAt, &job.StartedAt, &job.FinishedAt)
	if err != nil {
		return job, err
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &job.Params); err != nil {
			return job, fmt.Errorf("failed to decode job params: %w", err)
		}
	}
	if len(errList) > 0 {
		if err := json.Unmarshal(errList, &job.Errors); err != nil {
			return job, fmt.Errorf("failed to decode job errors: %w", err)
		}
	}
	return job, nil
}

// CreateDatasetJob enqueues a new export job in pending state.
func (db *DB) CreateDatasetJob(ctx context.Context, name string, params models.DatasetJobParams) (models.DatasetJob, error) {
	defer metrics.ObserveDBQuery("create_dataset_job", time.Now())

	rawParams, err := json.Marshal(params)
	if err != nil {
		return models.DatasetJob{}, fmt.Errorf("failed to encode job params: %w", err)
	}

	id := uuid.NewString()
	row := db.Primary.QueryRow(ctx,
		`INSERT INTO dataset_jobs (id, name, status, params)
		 VALUES ($1, $2, 'pending', $3)
		 RETURNING `+datasetJobColumns,
		id, name, rawParams)

	job, err := scanDatasetJob(row)
	if err != nil {
		return job, fmt.Errorf("failed to create dataset job: %w", err)
	}

	logging.Info().Str("job_id", job.ID).Str("name", job.Name).Msg("Dataset job enqueued")
	metrics.DatasetJobsEnqueued.Inc()
	return job, nil
}

// GetDatasetJob returns one job by ID, or ErrNotFound.
func (db *DB) GetDatasetJob(ctx context.Context, id string) (models.DatasetJob, error) {
	defer metrics.ObserveDBQuery("get_dataset_job", time.Now())

	job, err := scanDatasetJob(db.Primary.QueryRow(ctx,
		`SELECT `+datasetJobColumns+` FROM dataset_jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return job, ErrNotFound
		}
		return job, fmt.Errorf("failed to get dataset job %s: %w", id, err)
	}
	return job, nil
}

// ListDatasetJobs returns the most recent jobs, newest first.
func (db *DB) ListDatasetJobs(ctx context.Context, limit int) ([]models.DatasetJob, error) {
	defer metrics.ObserveDBQuery("list_dataset_jobs", time.Now())

	if limit < 1 {
		limit = 50
	}
	rows, err := db.Primary.Query(ctx,
		`SELECT `+datasetJobColumns+` FROM dataset_jobs ORDER BY created_at DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list dataset jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.DatasetJob
	for rows.Next() {
		job, err := scanDatasetJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ClaimNextDatasetJob atomically moves the oldest pending job to processing
// and returns it. SKIP LOCKED lets multiple workers claim concurrently
// without ever handing the same job to two of them. Returns
// ErrNoPendingJobs when the queue is empty.
func (db *DB) ClaimNextDatasetJob(ctx context.Context) (models.DatasetJob, error) {
	defer metrics.ObserveDBQuery("claim_dataset_job", time.Now())

	row := db.Primary.QueryRow(ctx, `
		UPDATE dataset_jobs
		SET status = 'processing', started_at = now()
		WHERE id = (
			SELECT id FROM dataset_jobs
			WHERE status = 'pending'
			ORDER BY created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING `+datasetJobColumns)

	job, err := scanDatasetJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return job, ErrNoPendingJobs
		}
		return job, fmt.Errorf("failed to claim dataset job: %w", err)
	}

	logging.Info().Str("job_id", job.ID).Msg("Dataset job claimed")
	return job, nil
}

// UpdateDatasetJobProgress records counters while an export runs.
func (db *DB) UpdateDatasetJobProgress(ctx context.Context, id string, total, processed int) error {
	defer metrics.ObserveDBQuery("update_dataset_job_progress", time.Now())

	_, err := db.Primary.Exec(ctx,
		`UPDATE dataset_jobs SET total_images = $2, processed_images = $3 WHERE id = $1`,
		id, total, processed)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// CompleteDatasetJob marks a job finished. Per-image errors that did not
// abort the export are recorded alongside the result.
func (db *DB) CompleteDatasetJob(ctx context.Context, id, outputPath string, total, processed int, imageErrors []string) error {
	defer metrics.ObserveDBQuery("complete_dataset_job", time.Now())

	rawErrors, err := json.Marshal(nonNil(imageErrors))
	if err != nil {
		return fmt.Errorf("failed to encode job errors: %w", err)
	}
	_, err = db.Primary.Exec(ctx, `
		UPDATE dataset_jobs
		SET status = 'completed', output_path = $2, total_images = $3,
			processed_images = $4, errors = $5, finished_at = now()
		WHERE id = $1`,
		id, outputPath, total, processed, rawErrors)
	if err != nil {
		return fmt.Errorf("failed to complete dataset job: %w", err)
	}
	metrics.DatasetJobsCompleted.WithLabelValues("completed").Inc()
	return nil
}

// FailDatasetJob marks a job failed with the errors collected so far.
func (db *DB) FailDatasetJob(ctx context.Context, id string, jobErrors []string) error {
	defer metrics.ObserveDBQuery("fail_dataset_job", time.Now())

	rawErrors, err := json.Marshal(nonNil(jobErrors))
	if err != nil {
		return fmt.Errorf("failed to encode job errors: %w", err)
	}
	_, err = db.Primary.Exec(ctx, `
		UPDATE dataset_jobs
		SET status = 'failed', errors = $2, finished_at = now()
		WHERE id = $1`,
		id, rawErrors)
	if err != nil {
		return fmt.Errorf("failed to fail dataset job: %w", err)
	}
	metrics.DatasetJobsCompleted.WithLabelValues("failed").Inc()
	return nil
}

// nonNil keeps JSONB errors as [] rather than null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
