// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

// Command server runs the SAI dashboard: the REST API, the SSE event
// stream, and the dataset export worker, all under one supervision tree.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sai-platform/sai-dashboard/internal/api"
	"github.com/sai-platform/sai-dashboard/internal/auth"
	"github.com/sai-platform/sai-dashboard/internal/config"
	"github.com/sai-platform/sai-dashboard/internal/database"
	"github.com/sai-platform/sai-dashboard/internal/dataset"
	"github.com/sai-platform/sai-dashboard/internal/events"
	"github.com/sai-platform/sai-dashboard/internal/imagestore"
	"github.com/sai-platform/sai-dashboard/internal/logging"
	"github.com/sai-platform/sai-dashboard/internal/models"
	"github.com/sai-platform/sai-dashboard/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Str("base_path", cfg.Server.BasePath).Msg("Starting SAI dashboard")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	images, err := imagestore.New(cfg.Storage.ImagePath, cfg.Storage.ShardDepth, cfg.Storage.ShardWidth)
	if err != nil {
		return err
	}

	hub := events.NewHub()
	scanner := dataset.NewScanner(cfg.Datasets.Root, cfg.Datasets.ScanCacheTTL)
	exporter := dataset.NewExporter(dataset.ExporterConfig{
		Root:              cfg.Datasets.Root,
		DefaultTrainSplit: cfg.Datasets.DefaultTrainSplit,
		ProgressEvery:     cfg.Datasets.ProgressEvery,
	}, db, images)
	worker := dataset.NewWorker(db, exporter, scanner, cfg.Datasets.WorkerPollInterval,
		func(event string, job models.DatasetJob) {
			hub.Publish(event, job)
		})

	// The handler refetches the row, so it runs off the LISTEN loop.
	listener := database.NewListener(db, func(change database.ChangeEvent) {
		go publishExecutionChange(db, hub, change)
	})

	authenticator, jwtAuth, err := buildAuthenticator(ctx, cfg)
	if err != nil {
		return err
	}
	logging.Info().Str("mode", authenticator.Name()).Msg("Authentication configured")

	var users api.UserDirectory
	if mgmt := auth.NewManagementClient(cfg.Auth.OIDC); mgmt != nil {
		users = mgmt
	}

	handler := api.NewHandler(db, images, scanner, hub, users, jwtAuth, cfg.API)
	router := api.NewRouter(handler, auth.NewMiddleware(authenticator), cfg)

	tree := supervisor.NewTree(
		slog.New(slog.NewJSONHandler(os.Stderr, nil)),
		supervisor.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout},
	)
	tree.AddEventService(hub)
	tree.AddEventService(listener)
	tree.AddEventService(worker)
	tree.AddAPIService(supervisor.NewHTTPService(cfg.Server, router))

	err = tree.Serve(ctx)
	if err != nil && err != context.Canceled {
		return err
	}
	logging.Info().Msg("Shutdown complete")
	return nil
}

// publishExecutionChange turns a LISTEN payload into an SSE event. For
// creates and updates the full joined record rides along so clients need
// no follow-up fetch.
func publishExecutionChange(db *database.DB, hub *events.Hub, change database.ChangeEvent) {
	event := "execution_" + change.Event
	if change.Event == "deleted" {
		hub.Publish(event, map[string]int64{"execution_id": change.ExecutionID})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	record, err := db.GetExecution(ctx, change.ExecutionID)
	if err != nil {
		logging.Warn().Err(err).Int64("execution_id", change.ExecutionID).Msg("Failed to load changed execution")
		hub.Publish(event, map[string]int64{"execution_id": change.ExecutionID})
		return
	}
	hub.Publish(event, record)
}

// buildAuthenticator selects the auth mode. The JWT authenticator is
// returned separately so the login endpoint can be mounted in jwt mode.
func buildAuthenticator(ctx context.Context, cfg *config.Config) (auth.Authenticator, *auth.JWTAuthenticator, error) {
	switch cfg.Auth.Mode {
	case "oidc":
		authenticator, err := auth.NewOIDCAuthenticator(ctx, cfg.Auth.OIDC)
		if err != nil {
			return nil, nil, err
		}
		return authenticator, nil, nil
	case "jwt":
		jwtAuth, err := auth.NewJWTAuthenticator(cfg.Auth.JWT)
		if err != nil {
			return nil, nil, err
		}
		return jwtAuth, jwtAuth, nil
	default:
		logging.Warn().Msg("Authentication disabled, all requests are anonymous admins")
		return auth.NoneAuthenticator{}, nil, nil
	}
}
