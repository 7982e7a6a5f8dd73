// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package api

import (
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/sai-platform/sai-dashboard/internal/auth"
	"github.com/sai-platform/sai-dashboard/internal/logging"
)

// handleUserInfo is GET /auth/userinfo: the authenticated subject as the
// SPA sees it.
func (h *Handler) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		rw.Error(http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	rw.Success(map[string]interface{}{
		"id":       subject.ID,
		"username": subject.Username,
		"email":    subject.Email,
		"role":     subject.Role.String(),
		"method":   subject.Method,
	})
}

// handleLogin is POST /auth/login. Only mounted in jwt mode; OIDC clients
// obtain tokens from the issuer directly.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		rw.ValidationError("username and password are required")
		return
	}

	token, err := h.jwtAuth.Login(req.Username, req.Password)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Str("username", req.Username).Msg("Login failed")
		rw.Error(http.StatusUnauthorized, ErrCodeUnauthorized, "invalid username or password")
		return
	}
	rw.Success(map[string]string{"token": token})
}

// handleListUsers is GET /admin/users. Requires admin; proxied to the
// identity provider's management API.
func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.users == nil {
		rw.ServiceUnavailable("user management not configured")
		return
	}

	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("User listing failed")
		rw.Error(http.StatusBadGateway, "EXTERNAL_SERVICE_FAILED", "identity provider unavailable")
		return
	}
	rw.Success(users)
}
