// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sai-platform/sai-dashboard/internal/auth"
	"github.com/sai-platform/sai-dashboard/internal/config"
	"github.com/sai-platform/sai-dashboard/internal/middleware"
	"github.com/sai-platform/sai-dashboard/internal/models"
)

// NewRouter builds the full route tree. API routes live under
// BasePath + "/api"; the SPA (when a static dir is configured) is served
// under BasePath with a history-API fallback to index.html.
func NewRouter(h *Handler, authMW *auth.Middleware, cfg *config.Config) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Prometheus)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if !cfg.Security.RateLimitDisabled {
		r.Use(httprate.LimitByIP(cfg.Security.RateLimitReqs, cfg.Security.RateLimitWindow))
	}
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Handle("/metrics", promhttp.Handler())

	apiPath := strings.TrimSuffix(cfg.Server.BasePath, "/") + "/api"
	r.Route(apiPath, func(r chi.Router) {
		// Unauthenticated: probes and (in jwt mode) login.
		r.Get("/health", h.handleHealth)
		r.Get("/health/live", h.handleLiveness)
		r.Get("/health/ready", h.handleReadiness)
		if h.jwtAuth != nil {
			r.Post("/auth/login", h.handleLogin)
		}

		// Everything else requires authentication.
		r.Group(func(r chi.Router) {
			r.Use(authMW.Authenticate)

			r.Get("/auth/userinfo", h.handleUserInfo)
			r.Get("/events", h.handleEvents)

			r.Get("/executions", h.handleListExecutions)
			r.Get("/executions/{id}", h.handleGetExecution)
			r.Get("/executions/{id}/image", h.handleGetExecutionImage)
			r.Get("/executions/{id}/workflow", h.handleGetExecutionWorkflow)

			r.Get("/stats", h.handleGetStats)
			r.Get("/stats/daily", h.handleGetDailyStats)

			r.Get("/datasets", h.handleListDatasets)
			r.Get("/datasets/jobs", h.handleListDatasetJobs)
			r.Get("/datasets/jobs/{id}", h.handleGetDatasetJob)
			r.Get("/datasets/{name}", h.handleGetDataset)

			// Expert: verification and dataset exports.
			r.Group(func(r chi.Router) {
				r.Use(authMW.RequireRole(models.RoleExpert))
				r.Patch("/executions/{id}/verification", h.handleUpdateVerification)
				r.Post("/datasets/jobs", h.handleCreateDatasetJob)
			})

			// Admin: destructive operations and user management.
			r.Group(func(r chi.Router) {
				r.Use(authMW.RequireRole(models.RoleAdmin))
				r.Delete("/executions/{id}", h.handleDeleteExecution)
				r.Get("/admin/users", h.handleListUsers)
			})
		})
	})

	if cfg.Server.StaticDir != "" {
		mountSPA(r, cfg.Server.BasePath, cfg.Server.StaticDir)
	}

	return r
}

// mountSPA serves the built frontend with a fallback to index.html so
// client-side routes survive a refresh.
func mountSPA(r chi.Router, basePath, staticDir string) {
	index := filepath.Join(staticDir, "index.html")
	fileServer := http.StripPrefix(basePath, http.FileServer(http.Dir(staticDir)))

	r.Get(basePath+"/*", func(w http.ResponseWriter, req *http.Request) {
		rel := strings.TrimPrefix(req.URL.Path, basePath)
		candidate := filepath.Join(staticDir, filepath.Clean("/"+rel))
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, req)
			return
		}
		http.ServeFile(w, req, index)
	})
	r.Get(basePath, func(w http.ResponseWriter, req *http.Request) {
		http.ServeFile(w, req, index)
	})
}
