// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sai-platform/sai-dashboard/internal/metrics"
	"github.com/sai-platform/sai-dashboard/internal/models"
)

// GetStats computes the dashboard summary over the given window. A zero
// since means all time.
func (db *DB) GetStats(ctx context.Context, since time.Time) (models.DashboardStats, error) {
	defer metrics.ObserveDBQuery("get_stats", time.Now())

	stats := models.DashboardStats{
		ByRiskLevel: map[string]int64{},
	}

	err := db.Primary.QueryRow(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE a.has_fire),
			count(*) FILTER (WHERE a.has_smoke),
			count(*) FILTER (WHERE a.verified),
			count(*) FILTER (WHERE a.verified = FALSE),
			max(e.started_at),
			avg(a.confidence_score)
		FROM executions e
		LEFT JOIN execution_analysis a ON a.execution_id = e.id
		WHERE ($1::timestamptz IS NULL OR e.started_at >= $1)`,
		nullableTime(since)).
		Scan(&stats.TotalExecutions, &stats.FireDetections, &stats.SmokeDetections,
			&stats.VerifiedPositives, &stats.VerifiedNegatives,
			&stats.LastExecutionAt, &stats.AvgConfidenceScore)
	if err != nil {
		return stats, fmt.Errorf("failed to compute summary stats: %w", err)
	}

	rows, err := db.Primary.Query(ctx, `
		SELECT a.risk_level, count(*)
		FROM executions e
		JOIN execution_analysis a ON a.execution_id = e.id
		WHERE ($1::timestamptz IS NULL OR e.started_at >= $1)
		GROUP BY a.risk_level`,
		nullableTime(since))
	if err != nil {
		return stats, fmt.Errorf("failed to compute risk level stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var level string
		var count int64
		if err := rows.Scan(&level, &count); err != nil {
			return stats, err
		}
		stats.ByRiskLevel[level] = count
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	cameras, err := db.cameraActivity(ctx, since)
	if err != nil {
		return stats, err
	}
	stats.CameraActivity = cameras

	notif, err := db.notificationStats(ctx, since)
	if err != nil {
		return stats, err
	}
	stats.Notifications = notif

	return stats, nil
}

func (db *DB) cameraActivity(ctx context.Context, since time.Time) ([]models.CameraActivity, error) {
	rows, err := db.Primary.Query(ctx, `
		SELECT e.camera_id, count(*),
			count(*) FILTER (WHERE a.has_fire),
			count(*) FILTER (WHERE a.has_smoke),
			max(e.started_at)
		FROM executions e
		LEFT JOIN execution_analysis a ON a.execution_id = e.id
		WHERE e.camera_id <> ''
		  AND ($1::timestamptz IS NULL OR e.started_at >= $1)
		GROUP BY e.camera_id
		ORDER BY count(*) DESC`,
		nullableTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to compute camera activity: %w", err)
	}
	defer rows.Close()

	var out []models.CameraActivity
	for rows.Next() {
		var c models.CameraActivity
		if err := rows.Scan(&c.CameraID, &c.Executions, &c.Fire, &c.Smoke, &c.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (db *DB) notificationStats(ctx context.Context, since time.Time) (models.NotificationStats, error) {
	var n models.NotificationStats
	err := db.Primary.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE n.status = 'sent'),
			count(*) FILTER (WHERE n.status = 'failed'),
			count(*) FILTER (WHERE n.status = 'pending')
		FROM execution_notifications n
		JOIN executions e ON e.id = n.execution_id
		WHERE ($1::timestamptz IS NULL OR e.started_at >= $1)`,
		nullableTime(since)).
		Scan(&n.Sent, &n.Failed, &n.Pending)
	if err != nil {
		return n, fmt.Errorf("failed to compute notification stats: %w", err)
	}
	return n, nil
}

// GetDailyCounts returns per-day execution and detection counts for the
// last n days, oldest first. Days without executions are omitted.
func (db *DB) GetDailyCounts(ctx context.Context, days int) ([]models.DailyCount, error) {
	defer metrics.ObserveDBQuery("get_daily_counts", time.Now())

	if days < 1 {
		days = 30
	}
	rows, err := db.Primary.Query(ctx, `
		SELECT
			date_trunc('day', e.started_at)::date AS day,
			count(*),
			count(*) FILTER (WHERE a.has_fire),
			count(*) FILTER (WHERE a.has_smoke)
		FROM executions e
		LEFT JOIN execution_analysis a ON a.execution_id = e.id
		WHERE e.started_at >= now() - ($1 || ' days')::interval
		GROUP BY day
		ORDER BY day`,
		fmt.Sprintf("%d", days))
	if err != nil {
		return nil, fmt.Errorf("failed to compute daily counts: %w", err)
	}
	defer rows.Close()

	var out []models.DailyCount
	for rows.Next() {
		var d models.DailyCount
		if err := rows.Scan(&d.Day, &d.Executions, &d.Fire, &d.Smoke); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// nullableTime maps the zero time to SQL NULL.
func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
