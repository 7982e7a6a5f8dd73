// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package auth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/sai-platform/sai-dashboard/internal/config"
	"github.com/sai-platform/sai-dashboard/internal/logging"
)

// ManagementUser is one user record from the Zitadel management API, as
// exposed by the admin user listing.
type ManagementUser struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	State       string `json:"state"`
}

// ManagementClient lists dashboard users through the Zitadel management
// API using a service-account PAT. Calls go through a circuit breaker so a
// slow or down IdP cannot pile up admin requests.
type ManagementClient struct {
	baseURL    string
	pat        string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]ManagementUser]
}

// NewManagementClient creates a management client. Returns nil when no PAT
// is configured; callers treat a nil client as "feature disabled".
func NewManagementClient(cfg config.OIDCConfig) *ManagementClient {
	if cfg.ManagementPAT == "" {
		return nil
	}

	settings := gobreaker.Settings{
		Name:    "zitadel-management",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	}

	return &ManagementClient{
		baseURL:    strings.TrimSuffix(cfg.IssuerURL, "/"),
		pat:        cfg.ManagementPAT,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    gobreaker.NewCircuitBreaker[[]ManagementUser](settings),
	}
}

// zitadelUserResult mirrors the management API v2 user search response.
type zitadelUserResult struct {
	Result []struct {
		UserID   string `json:"userId"`
		State    string `json:"state"`
		Username string `json:"username"`
		Human    *struct {
			Profile struct {
				DisplayName string `json:"displayName"`
			} `json:"profile"`
			Email struct {
				Email string `json:"email"`
			} `json:"email"`
		} `json:"human"`
	} `json:"result"`
}

// ListUsers returns all users visible to the service account.
func (c *ManagementClient) ListUsers(ctx context.Context) ([]ManagementUser, error) {
	return c.breaker.Execute(func() ([]ManagementUser, error) {
		return c.listUsers(ctx)
	})
}

func (c *ManagementClient) listUsers(ctx context.Context) ([]ManagementUser, error) {
	body := bytes.NewBufferString(`{"query":{"limit":200}}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/users", body)
	if err != nil {
		return nil, fmt.Errorf("failed to build user search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.pat)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("user search returned %d: %s", resp.StatusCode, string(raw))
	}

	var result zitadelUserResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode user search response: %w", err)
	}

	users := make([]ManagementUser, 0, len(result.Result))
	for _, u := range result.Result {
		user := ManagementUser{
			ID:       u.UserID,
			Username: u.Username,
			State:    u.State,
		}
		if u.Human != nil {
			user.DisplayName = u.Human.Profile.DisplayName
			user.Email = u.Human.Email.Email
		}
		users = append(users, user)
	}
	return users, nil
}
