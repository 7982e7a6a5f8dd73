// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package models

import "time"

// DatasetJobStatus is the lifecycle state of a dataset export job.
//
// Transitions: pending -> processing -> completed | failed.
// A job is claimed by exactly one worker via an atomic UPDATE on the
// pending row; there is no retry once a job reaches a terminal state.
type DatasetJobStatus string

const (
	DatasetJobPending    DatasetJobStatus = "pending"
	DatasetJobProcessing DatasetJobStatus = "processing"
	DatasetJobCompleted  DatasetJobStatus = "completed"
	DatasetJobFailed     DatasetJobStatus = "failed"
)

// DatasetJobParams selects which executions go into an export and how the
// train/val split is made. Zero values mean "no constraint".
type DatasetJobParams struct {
	CameraID      string     `json:"camera_id,omitempty"`
	RiskLevels    []string   `json:"risk_levels,omitempty" validate:"omitempty,dive,risklevel"`
	HasFire       *bool      `json:"has_fire,omitempty"`
	HasSmoke      *bool      `json:"has_smoke,omitempty"`
	VerifiedOnly  bool       `json:"verified_only,omitempty"`
	MinConfidence float64    `json:"min_confidence,omitempty" validate:"min=0,max=1"`
	Since         *time.Time `json:"since,omitempty"`
	Until         *time.Time `json:"until,omitempty"`
	TrainSplit    float64    `json:"train_split,omitempty" validate:"omitempty,gt=0,lt=1"`
	MaxImages     int        `json:"max_images,omitempty" validate:"min=0"`
}

// DatasetJob is one asynchronous export task.
type DatasetJob struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Status          DatasetJobStatus `json:"status"`
	Params          DatasetJobParams `json:"params"`
	TotalImages     int              `json:"total_images"`
	ProcessedImages int              `json:"processed_images"`
	Errors          []string         `json:"errors,omitempty"`
	OutputPath      string           `json:"output_path,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	StartedAt       *time.Time       `json:"started_at,omitempty"`
	FinishedAt      *time.Time       `json:"finished_at,omitempty"`
}

// DatasetManifest is the dataset.json sidecar written next to every
// exported dataset and read back by the scanner.
type DatasetManifest struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Classes     []string          `json:"classes"`
	CreatedAt   time.Time         `json:"created_at"`
	Source      string            `json:"source,omitempty"`
	JobID       string            `json:"job_id,omitempty"`
	Params      *DatasetJobParams `json:"params,omitempty"`
}

// DatasetInfo is a scanned dataset directory as returned by the API.
type DatasetInfo struct {
	Name        string          `json:"name"`
	Path        string          `json:"path"`
	Manifest    DatasetManifest `json:"manifest"`
	TrainImages int             `json:"train_images"`
	TrainLabels int             `json:"train_labels"`
	ValImages   int             `json:"val_images"`
	ValLabels   int             `json:"val_labels"`
	SizeBytes   int64           `json:"size_bytes"`
	ModifiedAt  time.Time       `json:"modified_at"`
}
