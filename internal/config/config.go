// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

// Package config loads and validates the dashboard configuration.
//
// Configuration is layered via Koanf v2 (highest priority wins):
//  1. Built-in defaults
//  2. Optional YAML config file (config.yaml, CONFIG_PATH override)
//  3. Environment variables
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration for the dashboard server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Storage  StorageConfig  `koanf:"storage"`
	Datasets DatasetsConfig `koanf:"datasets"`
	API      APIConfig      `koanf:"api"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// BasePath is the URL prefix the SPA is served under. All API routes
	// are mounted at BasePath + "/api".
	BasePath string `koanf:"base_path"`

	// ReadTimeout bounds request reads. There is no write timeout; SSE
	// streams stay open indefinitely.
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// StaticDir is the directory holding the built SPA assets. Empty
	// disables static serving (API-only mode).
	StaticDir string `koanf:"static_dir"`
}

// DatabaseConfig holds settings for both PostgreSQL pools.
type DatabaseConfig struct {
	// PrimaryDSN is the sai_dashboard database.
	PrimaryDSN      string `koanf:"primary_dsn"`
	PrimaryPoolSize int32  `koanf:"primary_pool_size"`

	// LegacyDSN is the read-only n8n workflow database used for raw
	// execution provenance. Empty disables the legacy pool.
	LegacyDSN      string `koanf:"legacy_dsn"`
	LegacyPoolSize int32  `koanf:"legacy_pool_size"`

	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// AuthConfig selects the authentication mode and its settings.
type AuthConfig struct {
	// Mode is one of "none", "jwt", "oidc".
	Mode string `koanf:"mode"`

	JWT  JWTConfig  `koanf:"jwt"`
	OIDC OIDCConfig `koanf:"oidc"`
}

// JWTConfig is the local HS256 development auth mode.
type JWTConfig struct {
	Secret        string        `koanf:"secret"`
	AdminUsername string        `koanf:"admin_username"`
	AdminPassword string        `koanf:"admin_password"`
	TokenTTL      time.Duration `koanf:"token_ttl"`
}

// OIDCConfig is the Zitadel OIDC resource-server configuration.
type OIDCConfig struct {
	IssuerURL    string `koanf:"issuer_url"`
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`

	// RolesClaim is the token claim carrying project role grants.
	// Zitadel emits roles under urn:zitadel:iam:org:project:roles.
	RolesClaim string `koanf:"roles_claim"`

	// ManagementPAT is a service-account personal access token used by
	// the admin user listing. Empty disables the management client.
	ManagementPAT string        `koanf:"management_pat"`
	Timeout       time.Duration `koanf:"timeout"`
}

// StorageConfig configures the content-addressed image store.
type StorageConfig struct {
	ImagePath  string `koanf:"image_path"`
	ShardDepth int    `koanf:"shard_depth"`
	ShardWidth int    `koanf:"shard_width"`
}

// DatasetsConfig configures dataset scanning and export jobs.
type DatasetsConfig struct {
	// Root is the directory containing dataset subdirectories.
	Root string `koanf:"root"`

	// ScanCacheTTL is how long a directory scan result is served from
	// memory before rescanning.
	ScanCacheTTL time.Duration `koanf:"scan_cache_ttl"`

	// WorkerPollInterval is how often the export worker looks for a
	// pending job when idle.
	WorkerPollInterval time.Duration `koanf:"worker_poll_interval"`

	// DefaultTrainSplit is the train fraction used when a job does not
	// specify one.
	DefaultTrainSplit float64 `koanf:"default_train_split"`

	// ProgressEvery is how many images are processed between progress
	// row updates.
	ProgressEvery int `koanf:"progress_every"`
}

// APIConfig holds pagination defaults.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SecurityConfig holds CORS and rate limiting settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied. Defaults are
// loaded first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8790,
			BasePath:        "/dashboard",
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			StaticDir:       "",
		},
		Database: DatabaseConfig{
			PrimaryDSN:      "",
			PrimaryPoolSize: 10,
			LegacyDSN:       "",
			LegacyPoolSize:  2,
			ConnectTimeout:  10 * time.Second,
		},
		Auth: AuthConfig{
			Mode: "oidc",
			JWT: JWTConfig{
				TokenTTL: 24 * time.Hour,
			},
			OIDC: OIDCConfig{
				RolesClaim: "urn:zitadel:iam:org:project:roles",
				Timeout:    30 * time.Second,
			},
		},
		Storage: StorageConfig{
			ImagePath:  "/data/sai-images",
			ShardDepth: 2,
			ShardWidth: 2,
		},
		Datasets: DatasetsConfig{
			Root:               "/data/datasets",
			ScanCacheTTL:       30 * time.Second,
			WorkerPollInterval: 5 * time.Second,
			DefaultTrainSplit:  0.8,
			ProgressEvery:      25,
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     200,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		errs = append(errs, "server.base_path must start with /")
	}

	if c.Database.PrimaryDSN == "" {
		errs = append(errs, "database.primary_dsn is required (DB_PRIMARY_DSN)")
	}
	if c.Database.PrimaryPoolSize < 1 {
		errs = append(errs, "database.primary_pool_size must be at least 1")
	}
	if c.Database.LegacyDSN != "" && c.Database.LegacyPoolSize < 1 {
		errs = append(errs, "database.legacy_pool_size must be at least 1")
	}

	switch c.Auth.Mode {
	case "none":
		// Explicitly allowed for development.
	case "jwt":
		if len(c.Auth.JWT.Secret) < 32 {
			errs = append(errs, "auth.jwt.secret must be at least 32 characters in jwt mode")
		}
		if c.Auth.JWT.AdminUsername == "" || c.Auth.JWT.AdminPassword == "" {
			errs = append(errs, "auth.jwt.admin_username and admin_password are required in jwt mode")
		}
	case "oidc":
		if c.Auth.OIDC.IssuerURL == "" {
			errs = append(errs, "auth.oidc.issuer_url is required in oidc mode")
		}
		if c.Auth.OIDC.ClientID == "" {
			errs = append(errs, "auth.oidc.client_id is required in oidc mode")
		}
	default:
		errs = append(errs, fmt.Sprintf("auth.mode must be none, jwt, or oidc, got %q", c.Auth.Mode))
	}

	if c.Datasets.DefaultTrainSplit <= 0 || c.Datasets.DefaultTrainSplit >= 1 {
		errs = append(errs, "datasets.default_train_split must be in (0, 1)")
	}
	if c.Datasets.ScanCacheTTL < 0 {
		errs = append(errs, "datasets.scan_cache_ttl must not be negative")
	}

	if c.API.DefaultPageSize < 1 || c.API.DefaultPageSize > c.API.MaxPageSize {
		errs = append(errs, "api.default_page_size must be between 1 and api.max_page_size")
	}

	if len(errs) > 0 {
		return errors.New("invalid configuration: " + strings.Join(errs, "; "))
	}
	return nil
}
