// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/sai-dashboard/config.yaml",
	"/etc/sai-dashboard/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load loads configuration with layered sources: defaults, then an optional
// YAML file, then environment variables (highest priority). The result is
// validated before being returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Env vars arrive as strings; convert known slice fields.
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices
// when they come from environment variables.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated strings to slices for known
// slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			// Already a slice (from YAML) or empty.
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unknown variables are dropped so unrelated environment noise does not
// leak into the configuration.
//
// Examples:
//   - DB_PRIMARY_DSN   -> database.primary_dsn
//   - ZITADEL_ISSUER   -> auth.oidc.issuer_url
//   - DATASETS_ROOT    -> datasets.root
func envTransformFunc(key string) string {
	mappings := map[string]string{
		"HTTP_HOST":             "server.host",
		"HTTP_PORT":             "server.port",
		"BASE_PATH":             "server.base_path",
		"STATIC_DIR":            "server.static_dir",
		"SHUTDOWN_TIMEOUT":      "server.shutdown_timeout",
		"DB_PRIMARY_DSN":        "database.primary_dsn",
		"DB_PRIMARY_POOL_SIZE":  "database.primary_pool_size",
		"DB_LEGACY_DSN":         "database.legacy_dsn",
		"DB_LEGACY_POOL_SIZE":   "database.legacy_pool_size",
		"AUTH_MODE":             "auth.mode",
		"JWT_SECRET":            "auth.jwt.secret",
		"ADMIN_USERNAME":        "auth.jwt.admin_username",
		"ADMIN_PASSWORD":        "auth.jwt.admin_password",
		"ZITADEL_ISSUER":        "auth.oidc.issuer_url",
		"ZITADEL_CLIENT_ID":     "auth.oidc.client_id",
		"ZITADEL_CLIENT_SECRET": "auth.oidc.client_secret",
		"ZITADEL_ROLES_CLAIM":   "auth.oidc.roles_claim",
		"ZITADEL_PAT":           "auth.oidc.management_pat",
		"IMAGE_STORE_PATH":      "storage.image_path",
		"DATASETS_ROOT":         "datasets.root",
		"DATASETS_CACHE_TTL":    "datasets.scan_cache_ttl",
		"DATASETS_TRAIN_SPLIT":  "datasets.default_train_split",
		"CORS_ORIGINS":          "security.cors_origins",
		"RATE_LIMIT_REQS":       "security.rate_limit_reqs",
		"RATE_LIMIT_WINDOW":     "security.rate_limit_window",
		"RATE_LIMIT_DISABLED":   "security.rate_limit_disabled",
		"LOG_LEVEL":             "logging.level",
		"LOG_FORMAT":            "logging.format",
		"LOG_CALLER":            "logging.caller",
	}
	if path, ok := mappings[strings.ToUpper(key)]; ok {
		return path
	}
	return "" // drop unknown env vars
}
