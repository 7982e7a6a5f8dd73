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
	"github.com/jackc/pgx/v4"

	"github.com/sai-platform/sai-dashboard/internal/logging"
	"github.com/sai-platform/sai-dashboard/internal/metrics"
	"github.com/sai-platform/sai-dashboard/internal/models"
)

// executionColumns is the joined select list shared by List and Get.
// execution_analysis and execution_images are LEFT JOINed: rows without
// analysis yet still appear in listings.
const executionColumns = `
	e.id, e.workflow_id, e.camera_id, e.status, e.started_at, e.finished_at, e.created_at,
	a.execution_id, a.detections, a.detection_count, a.has_fire, a.has_smoke,
	a.confidence_fire, a.confidence_smoke, a.confidence_score, a.risk_level,
	a.verified, a.verified_by, a.verified_at, a.updated_at,
	i.execution_id, i.original_path, i.image_hash, i.width, i.height, i.size_bytes`

const executionFrom = `
	FROM executions e
	LEFT JOIN execution_analysis a ON a.execution_id = e.id
	LEFT JOIN execution_images i ON i.execution_id = e.id`

// scanExecutionRecord scans one joined row. Nullable analysis/image columns
// arrive as pointers; a nil analysis execution_id means no analysis row.
func scanExecutionRecord(row pgx.Row) (models.ExecutionRecord, error) {
	var rec models.ExecutionRecord
	var (
		aID        *int64
		detections []byte
		count      *int
		hasFire    *bool
		hasSmoke   *bool
		confFire   *float64
		confSmoke  *float64
		confScore  *float64
		risk       *string
		verified   *bool
		verifiedBy *string
		verifiedAt *time.Time
		updatedAt  *time.Time

		iID       *int64
		origPath  *string
		imageHash *string
		width     *int
		height    *int
		sizeBytes *int64
	)

	err := row.Scan(
		&rec.Execution.ID, &rec.Execution.WorkflowID, &rec.Execution.CameraID,
		&rec.Execution.Status, &rec.Execution.StartedAt, &rec.Execution.FinishedAt,
		&rec.Execution.CreatedAt,
		&aID, &detections, &count, &hasFire, &hasSmoke,
		&confFire, &confSmoke, &confScore, &risk,
		&verified, &verifiedBy, &verifiedAt, &updatedAt,
		&iID, &origPath, &imageHash, &width, &height, &sizeBytes,
	)
	if err != nil {
		return rec, err
	}

	if aID != nil {
		analysis := &models.ExecutionAnalysis{
			ExecutionID:     *aID,
			DetectionCount:  *count,
			HasFire:         *hasFire,
			HasSmoke:        *hasSmoke,
			ConfidenceFire:  confFire,
			ConfidenceSmoke: confSmoke,
			ConfidenceScore: confScore,
			RiskLevel:       models.RiskLevel(*risk),
			Verified:        verified,
			VerifiedAt:      verifiedAt,
			UpdatedAt:       *updatedAt,
		}
		if verifiedBy != nil {
			analysis.VerifiedBy = *verifiedBy
		}
		if len(detections) > 0 {
			if err := json.Unmarshal(detections, &analysis.Detections); err != nil {
				return rec, fmt.Errorf("failed to decode detections for execution %d: %w", *aID, err)
			}
		}
		fillRiskLevel(analysis)
		rec.Analysis = analysis
	}

	if iID != nil {
		rec.Image = &models.ExecutionImage{
			ExecutionID: *iID,
			Width:       *width,
			Height:      *height,
			SizeBytes:   *sizeBytes,
		}
		if origPath != nil {
			rec.Image.OriginalPath = *origPath
		}
		if imageHash != nil {
			rec.Image.ImageHash = *imageHash
		}
	}

	return rec, nil
}

// fillRiskLevel classifies analysis rows the pipeline left unclassified.
// Rows written before server-side risk classification carry an empty
// risk_level.
func fillRiskLevel(a *models.ExecutionAnalysis) {
	if a.RiskLevel != "" {
		return
	}
	var confidence float64
	if a.ConfidenceScore != nil {
		confidence = *a.ConfidenceScore
	}
	a.RiskLevel = models.DeriveRiskLevel(a.HasFire, a.HasSmoke, confidence)
}

// ListExecutions returns a filtered page of executions (newest first) and
// the total count matching the filter.
func (db *DB) ListExecutions(ctx context.Context, filter ExecutionFilter) ([]models.ExecutionRecord, int, error) {
	defer metrics.ObserveDBQuery("list_executions", time.Now())

	where, whereArgs := filter.whereClause(1)

	var total int
	countSQL := "SELECT count(*)" + executionFrom + where
	if err := db.Primary.QueryRow(ctx, countSQL, whereArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count executions: %w", err)
	}

	page, pageArgs := filter.pageClause(len(whereArgs) + 1)
	listSQL := "SELECT" + executionColumns + executionFrom + where +
		" ORDER BY e.started_at DESC, e.id DESC" + page

	rows, err := db.Primary.Query(ctx, listSQL, append(whereArgs, pageArgs...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list executions: %w", err)
	}
	defer rows.Close()

	records := make([]models.ExecutionRecord, 0, filter.Limit)
	for rows.Next() {
		rec, err := scanExecutionRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read executions: %w", err)
	}
	return records, total, nil
}

// GetExecution returns one execution with its analysis, image, and
// notifications, or ErrNotFound.
func (db *DB) GetExecution(ctx context.Context, id int64) (models.ExecutionRecord, error) {
	defer metrics.ObserveDBQuery("get_execution", time.Now())

	sql := "SELECT" + executionColumns + executionFrom + " WHERE e.id = $1"
	rec, err := scanExecutionRecord(db.Primary.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rec, ErrNotFound
		}
		return rec, fmt.Errorf("failed to get execution %d: %w", id, err)
	}

	notifications, err := db.listNotifications(ctx, id)
	if err != nil {
		return rec, err
	}
	rec.Notifications = notifications
	return rec, nil
}

func (db *DB) listNotifications(ctx context.Context, executionID int64) ([]models.ExecutionNotification, error) {
	rows, err := db.Primary.Query(ctx,
		`SELECT execution_id, channel, status, sent_at, error
		 FROM execution_notifications WHERE execution_id = $1 ORDER BY id`,
		executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []models.ExecutionNotification
	for rows.Next() {
		var n models.ExecutionNotification
		if err := rows.Scan(&n.ExecutionID, &n.Channel, &n.Status, &n.SentAt, &n.Error); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// UpdateVerification marks an execution's analysis as a confirmed true or
// false positive. Returns ErrNotFound when no analysis row exists.
func (db *DB) UpdateVerification(ctx context.Context, id int64, update models.VerificationUpdate) (models.ExecutionRecord, error) {
	defer metrics.ObserveDBQuery("update_verification", time.Now())

	tag, err := db.Primary.Exec(ctx,
		`UPDATE execution_analysis
		 SET verified = $2, verified_by = $3, verified_at = now(), updated_at = now()
		 WHERE execution_id = $1`,
		id, update.Verified, update.VerifiedBy)
	if err != nil {
		return models.ExecutionRecord{}, fmt.Errorf("failed to update verification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ExecutionRecord{}, ErrNotFound
	}

	logging.Info().
		Int64("execution_id", id).
		Bool("verified", update.Verified).
		Str("verified_by", update.VerifiedBy).
		Msg("Execution verification updated")

	return db.GetExecution(ctx, id)
}

// DeleteExecution removes an execution and returns the image hash of its
// stored frame (empty when none) so the caller can clean up the image
// store. Related rows cascade.
func (db *DB) DeleteExecution(ctx context.Context, id int64) (string, error) {
	defer metrics.ObserveDBQuery("delete_execution", time.Now())

	var hash string
	err := db.Primary.QueryRow(ctx,
		`SELECT coalesce(image_hash, '') FROM execution_images WHERE execution_id = $1`,
		id).Scan(&hash)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("failed to look up execution image: %w", err)
	}

	tag, err := db.Primary.Exec(ctx, `DELETE FROM executions WHERE id = $1`, id)
	if err != nil {
		return "", fmt.Errorf("failed to delete execution %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return "", ErrNotFound
	}

	logging.Info().Int64("execution_id", id).Msg("Execution deleted")
	return hash, nil
}

// GetExecutionImage returns the image row for an execution, or ErrNotFound.
func (db *DB) GetExecutionImage(ctx context.Context, id int64) (models.ExecutionImage, error) {
	defer metrics.ObserveDBQuery("get_execution_image", time.Now())

	var img models.ExecutionImage
	err := db.Primary.QueryRow(ctx,
		`SELECT execution_id, original_path, image_hash, width, height, size_bytes
		 FROM execution_images WHERE execution_id = $1`, id).
		Scan(&img.ExecutionID, &img.OriginalPath, &img.ImageHash,
			&img.Width, &img.Height, &img.SizeBytes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return img, ErrNotFound
		}
		return img, fmt.Errorf("failed to get execution image: %w", err)
	}
	return img, nil
}
