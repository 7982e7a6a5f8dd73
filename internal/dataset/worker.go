// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package dataset

import (
	"context"
	"errors"
	"time"

	"github.com/sai-platform/sai-dashboard/internal/database"
	"github.com/sai-platform/sai-dashboard/internal/logging"
	"github.com/sai-platform/sai-dashboard/internal/models"
)

// JobStore is the job queue surface the worker needs. Implemented by
// *database.DB.
type JobStore interface {
	ClaimNextDatasetJob(ctx context.Context) (models.DatasetJob, error)
	UpdateDatasetJobProgress(ctx context.Context, id string, total, processed int) error
	CompleteDatasetJob(ctx context.Context, id, outputPath string, total, processed int, imageErrors []string) error
	FailDatasetJob(ctx context.Context, id string, jobErrors []string) error
}

// JobEventFunc receives job lifecycle updates for the event stream.
type JobEventFunc func(event string, job models.DatasetJob)

// Worker is a suture service that drains the dataset job queue. Claiming
// goes through an atomic row update, so running several workers (or
// several dashboard replicas) is safe.
type Worker struct {
	jobs         JobStore
	exporter     *Exporter
	scanner      *Scanner
	pollInterval time.Duration
	publish      JobEventFunc
}

// NewWorker creates a worker polling at the given interval. publish may be
// nil when no event stream is wired.
func NewWorker(jobs JobStore, exporter *Exporter, scanner *Scanner, pollInterval time.Duration, publish JobEventFunc) *Worker {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Worker{
		jobs:         jobs,
		exporter:     exporter,
		scanner:      scanner,
		pollInterval: pollInterval,
		publish:      publish,
	}
}

// String implements fmt.Stringer for supervisor logs.
func (w *Worker) String() string {
	return "dataset-worker"
}

// Serve polls for pending jobs until the context is canceled. A claimed
// job is run to completion before the next poll; a panic or error during
// one job does not take the queue down.
func (w *Worker) Serve(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		// Drain everything pending before going back to sleep.
		for {
			job, err := w.jobs.ClaimNextDatasetJob(ctx)
			if err != nil {
				if errors.Is(err, database.ErrNoPendingJobs) {
					break
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logging.Error().Err(err).Msg("Failed to claim dataset job")
				break
			}
			w.runJob(ctx, job)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Worker) runJob(ctx context.Context, job models.DatasetJob) {
	logging.Info().Str("job_id", job.ID).Str("name", job.Name).Msg("Running dataset export")
	w.emit("job_started", job)

	progress := func(total, processed int) {
		if err := w.jobs.UpdateDatasetJobProgress(ctx, job.ID, total, processed); err != nil {
			logging.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to record job progress")
		}
	}

	res, err := w.exporter.Export(ctx, job, progress)
	if err != nil {
		logging.Error().Err(err).Str("job_id", job.ID).Msg("Dataset export failed")
		allErrors := append(res.Errors, err.Error())
		if failErr := w.jobs.FailDatasetJob(ctx, job.ID, allErrors); failErr != nil {
			logging.Error().Err(failErr).Str("job_id", job.ID).Msg("Failed to mark job failed")
		}
		job.Status = models.DatasetJobFailed
		job.Errors = allErrors
		w.emit("job_failed", job)
		return
	}

	if err := w.jobs.CompleteDatasetJob(ctx, job.ID, res.OutputPath, res.Total, res.Processed, res.Errors); err != nil {
		logging.Error().Err(err).Str("job_id", job.ID).Msg("Failed to mark job completed")
		return
	}
	if w.scanner != nil {
		w.scanner.Invalidate()
	}

	job.Status = models.DatasetJobCompleted
	job.OutputPath = res.OutputPath
	job.TotalImages = res.Total
	job.ProcessedImages = res.Processed
	job.Errors = res.Errors
	w.emit("job_completed", job)
}

func (w *Worker) emit(event string, job models.DatasetJob) {
	if w.publish != nil {
		w.publish(event, job)
	}
}
