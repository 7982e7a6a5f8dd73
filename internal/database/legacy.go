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

	"github.com/jackc/pgx/v4"

	"github.com/sai-platform/sai-dashboard/internal/metrics"
	"github.com/sai-platform/sai-dashboard/internal/models"
)

// GetLegacyExecution looks up the raw workflow execution row in the legacy
// n8n database. This is strictly read-only provenance: the dashboard never
// writes to the legacy pool.
func (db *DB) GetLegacyExecution(ctx context.Context, id int64) (models.LegacyExecution, error) {
	defer metrics.ObserveDBQuery("get_legacy_execution", time.Now())

	var exec models.LegacyExecution
	if db.Legacy == nil {
		return exec, ErrLegacyUnavailable
	}

	// n8n stores executions in execution_entity with a camelCase schema.
	err := db.Legacy.QueryRow(ctx, `
		SELECT id, "workflowId", finished, mode, "startedAt", "stoppedAt",
			coalesce(status, '')
		FROM execution_entity WHERE id = $1`, id).
		Scan(&exec.ID, &exec.WorkflowID, &exec.Finished, &exec.Mode,
			&exec.StartedAt, &exec.StoppedAt, &exec.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return exec, ErrNotFound
		}
		return exec, fmt.Errorf("failed to get legacy execution %d: %w", id, err)
	}
	return exec, nil
}
