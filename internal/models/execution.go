// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

// Package models defines the data structures shared between the database
// layer and the API layer: executions and their joined analysis, image, and
// notification rows, dataset jobs, and dashboard statistics.
package models

import (
	"time"
)

// RiskLevel classifies the severity of a detection result.
type RiskLevel string

const (
	RiskLevelNone     RiskLevel = "none"
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// ValidRiskLevel reports whether s is a known risk level.
func ValidRiskLevel(s string) bool {
	switch RiskLevel(s) {
	case RiskLevelNone, RiskLevelLow, RiskLevelMedium, RiskLevelHigh, RiskLevelCritical:
		return true
	}
	return false
}

// DeriveRiskLevel maps the dominant confidence score to a risk level.
// Fire detections escalate one level over smoke-only detections at the
// same confidence.
func DeriveRiskLevel(hasFire, hasSmoke bool, confidence float64) RiskLevel {
	if !hasFire && !hasSmoke {
		return RiskLevelNone
	}
	var level RiskLevel
	switch {
	case confidence >= 0.8:
		level = RiskLevelHigh
	case confidence >= 0.5:
		level = RiskLevelMedium
	default:
		level = RiskLevelLow
	}
	if hasFire && level == RiskLevelHigh {
		return RiskLevelCritical
	}
	return level
}

// BoundingBox is a pixel-space detection box (top-left origin).
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is a single object detection within an execution image.
// Stored as elements of the detections JSONB column on execution_analysis.
type Detection struct {
	Class       string      `json:"class"`
	Confidence  float64     `json:"confidence"`
	BoundingBox BoundingBox `json:"bounding_box"`
}

// Execution is one completed run of the upstream detection workflow.
type Execution struct {
	ID         int64     `json:"id"`
	WorkflowID string    `json:"workflow_id,omitempty"`
	CameraID   string    `json:"camera_id"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// ExecutionAnalysis holds the detection results for an execution.
type ExecutionAnalysis struct {
	ExecutionID     int64       `json:"execution_id"`
	Detections      []Detection `json:"detections"`
	DetectionCount  int         `json:"detection_count"`
	HasFire         bool        `json:"has_fire"`
	HasSmoke        bool        `json:"has_smoke"`
	ConfidenceFire  *float64    `json:"confidence_fire,omitempty"`
	ConfidenceSmoke *float64    `json:"confidence_smoke,omitempty"`
	ConfidenceScore *float64    `json:"confidence_score,omitempty"`
	RiskLevel       RiskLevel   `json:"risk_level"`
	Verified        *bool       `json:"verified,omitempty"`
	VerifiedBy      string      `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time  `json:"verified_at,omitempty"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// ExecutionImage records where the captured frame for an execution lives.
// ImageHash is the SHA256 content address in the image store; OriginalPath
// is the upstream pipeline's on-disk path. Either may be empty.
type ExecutionImage struct {
	ExecutionID  int64  `json:"execution_id"`
	OriginalPath string `json:"original_path,omitempty"`
	ImageHash    string `json:"image_hash,omitempty"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	SizeBytes    int64  `json:"size_bytes"`
}

// ExecutionNotification records delivery of an alert for an execution.
type ExecutionNotification struct {
	ExecutionID int64      `json:"execution_id"`
	Channel     string     `json:"channel"`
	Status      string     `json:"status"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// ExecutionRecord is the joined view the dashboard renders: one execution
// with its analysis, image, and notifications. Analysis and Image are nil
// when the upstream pipeline has not produced them yet.
type ExecutionRecord struct {
	Execution     Execution               `json:"execution"`
	Analysis      *ExecutionAnalysis      `json:"analysis,omitempty"`
	Image         *ExecutionImage         `json:"image,omitempty"`
	Notifications []ExecutionNotification `json:"notifications,omitempty"`
}

// VerificationUpdate is the payload for marking an analysis as a true or
// false positive.
type VerificationUpdate struct {
	Verified   bool   `json:"verified" validate:"required"`
	VerifiedBy string `json:"-"`
}

// LegacyExecution is a raw workflow execution row from the legacy n8n
// database, exposed read-only for provenance lookups.
type LegacyExecution struct {
	ID         int64      `json:"id"`
	WorkflowID string     `json:"workflow_id"`
	Finished   bool       `json:"finished"`
	Mode       string     `json:"mode"`
	StartedAt  time.Time  `json:"started_at"`
	StoppedAt  *time.Time `json:"stopped_at,omitempty"`
	Status     string     `json:"status"`
}
