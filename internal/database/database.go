// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

// Package database provides PostgreSQL access for the dashboard.
//
// Two pools are managed: the primary sai_dashboard database (read/write,
// owns the schema) and an optional legacy n8n database opened read-only for
// raw workflow execution provenance. The legacy pool may be nil; callers
// get ErrLegacyUnavailable instead of a nil dereference.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/sai-platform/sai-dashboard/internal/config"
	"github.com/sai-platform/sai-dashboard/internal/logging"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("database: not found")

	// ErrNoPendingJobs is returned by ClaimNextJob when the queue is empty.
	ErrNoPendingJobs = errors.New("database: no pending jobs")

	// ErrLegacyUnavailable is returned by legacy lookups when no legacy
	// DSN is configured.
	ErrLegacyUnavailable = errors.New("database: legacy database not configured")
)

// DB wraps the primary and optional legacy connection pools.
type DB struct {
	Primary *pgxpool.Pool
	Legacy  *pgxpool.Pool // nil when no legacy DSN is configured

	cfg config.DatabaseConfig
}

// New connects both pools and bootstraps the schema on the primary.
func New(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	primary, err := newPool(ctx, cfg.PrimaryDSN, cfg.PrimaryPoolSize, cfg.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect primary database: %w", err)
	}

	db := &DB{Primary: primary, cfg: cfg}

	if err := db.bootstrap(ctx); err != nil {
		primary.Close()
		return nil, fmt.Errorf("failed to bootstrap schema: %w", err)
	}

	if cfg.LegacyDSN != "" {
		legacy, err := newPool(ctx, cfg.LegacyDSN, cfg.LegacyPoolSize, cfg.ConnectTimeout)
		if err != nil {
			// The legacy database is best-effort provenance; the dashboard
			// stays up without it.
			logging.Warn().Err(err).Msg("Legacy database unavailable, provenance lookups disabled")
		} else {
			db.Legacy = legacy
			logging.Info().Msg("Connected to legacy workflow database (read-only)")
		}
	}

	logging.Info().Msg("Database initialized")
	return db, nil
}

func newPool(ctx context.Context, dsn string, size int32, connectTimeout time.Duration) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid DSN: %w", err)
	}
	poolCfg.MaxConns = size
	poolCfg.ConnConfig.ConnectTimeout = connectTimeout

	connCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.ConnectConfig(connCtx, poolCfg)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// Close releases both pools.
func (db *DB) Close() {
	if db.Legacy != nil {
		db.Legacy.Close()
	}
	db.Primary.Close()
}

// Ping checks primary connectivity. Used by the readiness probe.
func (db *DB) Ping(ctx context.Context) error {
	return db.Primary.Ping(ctx)
}

// LegacyAvailable reports whether the legacy pool is connected.
func (db *DB) LegacyAvailable() bool {
	return db.Legacy != nil
}
