// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/sai-platform/sai-dashboard/internal/config"
	"github.com/sai-platform/sai-dashboard/internal/models"
)

// jwtIssuer is the iss claim on locally issued tokens.
const jwtIssuer = "sai-dashboard"

// JWTAuthenticator is the local development auth mode: a single admin
// account configured by env, HS256-signed tokens issued by the login
// endpoint.
type JWTAuthenticator struct {
	secret        []byte
	adminUsername string
	passwordHash  []byte // bcrypt hash of the configured admin password
	tokenTTL      time.Duration
}

// NewJWTAuthenticator creates the local JWT authenticator. The configured
// password is hashed once here so login only pays for verification.
func NewJWTAuthenticator(cfg config.JWTConfig) (*JWTAuthenticator, error) {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), 12)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}

	return &JWTAuthenticator{
		secret:        []byte(cfg.Secret),
		adminUsername: cfg.AdminUsername,
		passwordHash:  hash,
		tokenTTL:      ttl,
	}, nil
}

// Name implements Authenticator.
func (a *JWTAuthenticator) Name() string { return "jwt" }

type localClaims struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// Login checks the configured credentials and returns a signed token.
// Both comparisons always run so a rejected username leaks no timing
// difference.
func (a *JWTAuthenticator) Login(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.adminUsername)) == 1
	passOK := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil
	if !userOK || !passOK {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	claims := localClaims{
		Username: username,
		Roles:    []string{"admin"},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jwtIssuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Authenticate implements Authenticator.
func (a *JWTAuthenticator) Authenticate(_ context.Context, r *http.Request) (Subject, error) {
	tokenStr := BearerToken(r)
	if tokenStr == "" {
		return Subject{}, ErrNoCredentials
	}

	claims := &localClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithIssuer(jwtIssuer), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Subject{}, ErrExpiredCredentials
		}
		return Subject{}, fmt.Errorf("%w: %s", ErrInvalidCredentials, err.Error())
	}
	if !token.Valid {
		return Subject{}, ErrInvalidCredentials
	}

	return Subject{
		ID:       claims.Subject,
		Username: claims.Username,
		Role:     models.RoleFromClaims(claims.Roles),
		RawRoles: claims.Roles,
		Method:   "jwt",
	}, nil
}
