// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package auth

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/sai-platform/sai-dashboard/internal/logging"
	"github.com/sai-platform/sai-dashboard/internal/models"
)

// Middleware wires an Authenticator into the router.
type Middleware struct {
	authenticator Authenticator
}

// NewMiddleware creates auth middleware around an authenticator.
func NewMiddleware(authenticator Authenticator) *Middleware {
	return &Middleware{authenticator: authenticator}
}

// Authenticate validates credentials on every request and stores the
// subject in the request context. Missing or bad credentials end the
// request with 401.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := m.authenticator.Authenticate(r.Context(), r)
		if err != nil {
			status := http.StatusUnauthorized
			code := "UNAUTHORIZED"
			switch {
			case errors.Is(err, ErrNoCredentials):
				code = "NO_CREDENTIALS"
			case errors.Is(err, ErrExpiredCredentials):
				code = "TOKEN_EXPIRED"
			}
			logging.Ctx(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("Authentication failed")
			writeAuthError(w, status, code, "authentication required")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), subject)))
	})
}

// RequireRole gates a route on a minimum role. Must run after
// Authenticate. An authenticated caller below the required role gets 403.
func (m *Middleware) RequireRole(required models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, ok := SubjectFromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}
			if !subject.Role.AtLeast(required) {
				logging.Ctx(r.Context()).Warn().
					Str("user", subject.Username).
					Str("role", subject.Role.String()).
					Str("required", required.String()).
					Str("path", r.URL.Path).
					Msg("Insufficient role")
				writeAuthError(w, http.StatusForbidden, "FORBIDDEN", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeAuthError emits the same envelope shape as the API response
// helpers without importing them.
func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
