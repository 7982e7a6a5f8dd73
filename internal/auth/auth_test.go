// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sai-platform/sai-dashboard/internal/config"
	"github.com/sai-platform/sai-dashboard/internal/models"
)

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, BearerToken(r))

	r.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", BearerToken(r))

	r.Header.Set("Authorization", "bearer abc123")
	assert.Equal(t, "abc123", BearerToken(r), "scheme is case-insensitive")

	r.Header.Set("Authorization", "Basic abc123")
	assert.Empty(t, BearerToken(r))

	// EventSource clients pass the token as a query parameter.
	r = httptest.NewRequest(http.MethodGet, "/events?access_token=xyz", nil)
	assert.Equal(t, "xyz", BearerToken(r))
}

func TestExtractRoles(t *testing.T) {
	// Zitadel project roles claim: object keyed by role name.
	claims := map[string]interface{}{
		"urn:zitadel:iam:org:project:roles": map[string]interface{}{
			"admin":  map[string]interface{}{"123": "org.example.com"},
			"viewer": map[string]interface{}{"123": "org.example.com"},
		},
	}
	roles := extractRoles(claims, "urn:zitadel:iam:org:project:roles")
	assert.ElementsMatch(t, []string{"admin", "viewer"}, roles)

	// Plain array and single string forms.
	assert.Equal(t, []string{"expert"}, extractRoles(map[string]interface{}{"roles": []interface{}{"expert"}}, "roles"))
	assert.Equal(t, []string{"expert"}, extractRoles(map[string]interface{}{"roles": "expert"}, "roles"))

	assert.Nil(t, extractRoles(nil, "roles"))
	assert.Nil(t, extractRoles(map[string]interface{}{}, "roles"))
}

func newJWTAuth(t *testing.T) *JWTAuthenticator {
	t.Helper()
	a, err := NewJWTAuthenticator(config.JWTConfig{
		Secret:        "0123456789abcdef0123456789abcdef",
		AdminUsername: "admin",
		AdminPassword: "hunter2hunter2",
		TokenTTL:      time.Hour,
	})
	require.NoError(t, err)
	return a
}

func TestJWTLoginAndAuthenticate(t *testing.T) {
	a := newJWTAuth(t)

	token, err := a.Login("admin", "hunter2hunter2")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	subject, err := a.Authenticate(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "admin", subject.Username)
	assert.Equal(t, models.RoleAdmin, subject.Role)
	assert.Equal(t, "jwt", subject.Method)
}

func TestJWTLoginRejectsBadCredentials(t *testing.T) {
	a := newJWTAuth(t)

	_, err := a.Login("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = a.Login("root", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestJWTPasswordStoredHashed(t *testing.T) {
	a := newJWTAuth(t)

	// The plaintext never survives construction; login verifies against
	// the bcrypt hash.
	assert.NotContains(t, string(a.passwordHash), "hunter2hunter2")
	require.NoError(t, bcrypt.CompareHashAndPassword(a.passwordHash, []byte("hunter2hunter2")))

	_, err := a.Login("admin", "hunter2hunter2 ")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "near-miss password must fail hash verification")
}

func TestJWTAuthenticateRejectsTampering(t *testing.T) {
	a := newJWTAuth(t)
	other, err := NewJWTAuthenticator(config.JWTConfig{
		Secret:        "ffffffffffffffffffffffffffffffff",
		AdminUsername: "admin",
		AdminPassword: "hunter2hunter2",
		TokenTTL:      time.Hour,
	})
	require.NoError(t, err)

	token, err := other.Login("admin", "hunter2hunter2")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	_, err = a.Authenticate(context.Background(), r)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestJWTAuthenticateNoToken(t *testing.T) {
	a := newJWTAuth(t)
	_, err := a.Authenticate(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestMiddlewareAuthenticate(t *testing.T) {
	m := NewMiddleware(NoneAuthenticator{})

	var got Subject
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RoleAdmin, got.Role)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	m := NewMiddleware(newJWTAuth(t))
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "NO_CREDENTIALS")
}

func TestMiddlewareRequireRole(t *testing.T) {
	m := NewMiddleware(NoneAuthenticator{})
	viewer := Subject{ID: "u1", Username: "viewer", Role: models.RoleViewer}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	gate := m.RequireRole(models.RoleExpert)(next)

	// Viewer below the gate gets 403.
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPatch, "/executions/1/verification", nil)
	gate.ServeHTTP(rec, r.WithContext(ContextWithSubject(r.Context(), viewer)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Expert passes.
	expert := viewer
	expert.Role = models.RoleExpert
	rec = httptest.NewRecorder()
	gate.ServeHTTP(rec, r.WithContext(ContextWithSubject(r.Context(), expert)))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Unauthenticated request gets 401.
	rec = httptest.NewRecorder()
	gate.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
