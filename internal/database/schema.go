// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
)

// NotifyChannel is the PostgreSQL channel executions changes are published
// on. The payload is "<event>:<execution_id>".
const NotifyChannel = "sai_executions"

// schemaStatements creates the dashboard schema. Statements are idempotent
// so bootstrap can run on every start.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS executions (
		id          BIGINT PRIMARY KEY,
		workflow_id TEXT NOT NULL DEFAULT '',
		camera_id   TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL DEFAULT 'success',
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_executions_camera ON executions (camera_id)`,
	`CREATE INDEX IF NOT EXISTS idx_executions_started ON executions (started_at DESC)`,

	`CREATE TABLE IF NOT EXISTS execution_analysis (
		execution_id     BIGINT PRIMARY KEY REFERENCES executions (id) ON DELETE CASCADE,
		detections       JSONB NOT NULL DEFAULT '[]'::jsonb,
		detection_count  INTEGER NOT NULL DEFAULT 0,
		has_fire         BOOLEAN NOT NULL DEFAULT FALSE,
		has_smoke        BOOLEAN NOT NULL DEFAULT FALSE,
		confidence_fire  DOUBLE PRECISION,
		confidence_smoke DOUBLE PRECISION,
		confidence_score DOUBLE PRECISION,
		risk_level       TEXT NOT NULL DEFAULT 'none',
		verified         BOOLEAN,
		verified_by      TEXT NOT NULL DEFAULT '',
		verified_at      TIMESTAMPTZ,
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_analysis_risk ON execution_analysis (risk_level)`,
	`CREATE INDEX IF NOT EXISTS idx_analysis_fire ON execution_analysis (has_fire) WHERE has_fire`,

	`CREATE TABLE IF NOT EXISTS execution_images (
		execution_id  BIGINT PRIMARY KEY REFERENCES executions (id) ON DELETE CASCADE,
		original_path TEXT NOT NULL DEFAULT '',
		image_hash    TEXT NOT NULL DEFAULT '',
		width         INTEGER NOT NULL DEFAULT 0,
		height        INTEGER NOT NULL DEFAULT 0,
		size_bytes    BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_images_hash ON execution_images (image_hash)`,

	`CREATE TABLE IF NOT EXISTS execution_notifications (
		id           BIGSERIAL PRIMARY KEY,
		execution_id BIGINT NOT NULL REFERENCES executions (id) ON DELETE CASCADE,
		channel      TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'pending',
		sent_at      TIMESTAMPTZ,
		error        TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_execution ON execution_notifications (execution_id)`,

	`CREATE TABLE IF NOT EXISTS dataset_jobs (
		id               UUID PRIMARY KEY,
		name             TEXT NOT NULL,
		status           TEXT NOT NULL DEFAULT 'pending',
		params           JSONB NOT NULL DEFAULT '{}'::jsonb,
		total_images     INTEGER NOT NULL DEFAULT 0,
		processed_images INTEGER NOT NULL DEFAULT 0,
		errors           JSONB NOT NULL DEFAULT '[]'::jsonb,
		output_path      TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		started_at       TIMESTAMPTZ,
		finished_at      TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_dataset_jobs_status ON dataset_jobs (status, created_at)`,

	// Row changes on executions fan out to SSE subscribers via
	// LISTEN/NOTIFY. The payload stays tiny; listeners refetch the row.
	`CREATE OR REPLACE FUNCTION notify_execution_change() RETURNS trigger AS $$
	BEGIN
		IF TG_OP = 'DELETE' THEN
			PERFORM pg_notify('` + NotifyChannel + `', 'deleted:' || OLD.id);
			RETURN OLD;
		ELSIF TG_OP = 'INSERT' THEN
			PERFORM pg_notify('` + NotifyChannel + `', 'created:' || NEW.id);
		ELSE
			PERFORM pg_notify('` + NotifyChannel + `', 'updated:' || NEW.id);
		END IF;
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS trg_executions_notify ON executions`,
	`CREATE TRIGGER trg_executions_notify
		AFTER INSERT OR UPDATE OR DELETE ON executions
		FOR EACH ROW EXECUTE FUNCTION notify_execution_change()`,
	`CREATE OR REPLACE FUNCTION notify_analysis_change() RETURNS trigger AS $$
	BEGIN
		PERFORM pg_notify('` + NotifyChannel + `', 'updated:' || NEW.execution_id);
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS trg_analysis_notify ON execution_analysis`,
	`CREATE TRIGGER trg_analysis_notify
		AFTER INSERT OR UPDATE ON execution_analysis
		FOR EACH ROW EXECUTE FUNCTION notify_analysis_change()`,
}

// bootstrap applies the schema to the primary database. Two replicas
// starting at once can race past IF NOT EXISTS, so duplicate errors are
// treated as another replica having won.
func (db *DB) bootstrap(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Primary.Exec(ctx, stmt); err != nil && !isDuplicate(err) {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

func isDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgerrcode.DuplicateTable, pgerrcode.DuplicateObject, pgerrcode.UniqueViolation:
		return true
	}
	return false
}
