// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package models

import "time"

// DashboardStats is the aggregate view behind GET /dashboard/api/stats.
type DashboardStats struct {
	TotalExecutions    int64               `json:"total_executions"`
	FireDetections     int64               `json:"fire_detections"`
	SmokeDetections    int64               `json:"smoke_detections"`
	VerifiedPositives  int64               `json:"verified_positives"`
	VerifiedNegatives  int64               `json:"verified_negatives"`
	ByRiskLevel        map[string]int64    `json:"by_risk_level"`
	CameraActivity     []CameraActivity    `json:"camera_activity"`
	Notifications      NotificationStats   `json:"notifications"`
	LastExecutionAt    *time.Time          `json:"last_execution_at,omitempty"`
	AvgConfidenceScore *float64            `json:"avg_confidence_score,omitempty"`
}

// DailyCount is one bucket of the per-day execution histogram.
type DailyCount struct {
	Day        time.Time `json:"day"`
	Executions int64     `json:"executions"`
	Fire       int64     `json:"fire"`
	Smoke      int64     `json:"smoke"`
}

// CameraActivity summarizes detections per camera.
type CameraActivity struct {
	CameraID   string     `json:"camera_id"`
	Executions int64      `json:"executions"`
	Fire       int64      `json:"fire"`
	Smoke      int64      `json:"smoke"`
	LastSeen   *time.Time `json:"last_seen,omitempty"`
}

// NotificationStats summarizes alert delivery success.
type NotificationStats struct {
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
	Pending int64 `json:"pending"`
}
