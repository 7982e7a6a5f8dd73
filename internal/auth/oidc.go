// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/zitadel/oidc/v3/pkg/client/rp"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/sai-platform/sai-dashboard/internal/config"
	"github.com/sai-platform/sai-dashboard/internal/logging"
	"github.com/sai-platform/sai-dashboard/internal/models"
)

// OIDCAuthenticator validates bearer tokens against a Zitadel issuer using
// the certified zitadel/oidc verifier: signature via JWKS, issuer,
// audience, and expiry are all checked by the library.
type OIDCAuthenticator struct {
	relyingParty rp.RelyingParty
	rolesClaim   string
}

// NewOIDCAuthenticator performs OIDC discovery against the issuer and
// returns a ready authenticator.
func NewOIDCAuthenticator(ctx context.Context, cfg config.OIDCConfig) (*OIDCAuthenticator, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	relyingParty, err := rp.NewRelyingPartyOIDC(ctx,
		cfg.IssuerURL,
		cfg.ClientID,
		cfg.ClientSecret,
		"", // no redirect URL: the dashboard only verifies bearer tokens
		[]string{"openid", "profile", "email"},
		rp.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC client: %w", err)
	}

	logging.Info().Str("issuer", cfg.IssuerURL).Msg("OIDC authenticator initialized")
	return &OIDCAuthenticator{
		relyingParty: relyingParty,
		rolesClaim:   cfg.RolesClaim,
	}, nil
}

// Name implements Authenticator.
func (a *OIDCAuthenticator) Name() string { return "oidc" }

// Authenticate implements Authenticator.
func (a *OIDCAuthenticator) Authenticate(ctx context.Context, r *http.Request) (Subject, error) {
	token := BearerToken(r)
	if token == "" {
		return Subject{}, ErrNoCredentials
	}

	claims, err := rp.VerifyIDToken[*oidc.IDTokenClaims](ctx, token, a.relyingParty.IDTokenVerifier())
	if err != nil {
		return Subject{}, mapVerificationError(err)
	}

	subject := subjectFromClaims(claims, a.rolesClaim)
	logging.Debug().
		Str("user", subject.Username).
		Str("role", subject.Role.String()).
		Msg("OIDC authentication successful")
	return subject, nil
}

// subjectFromClaims maps verified token claims onto a Subject. Username
// priority: preferred_username, name, email, then the subject ID.
func subjectFromClaims(claims *oidc.IDTokenClaims, rolesClaim string) Subject {
	subject := Subject{
		ID:     claims.Subject,
		Email:  claims.Email,
		Method: "oidc",
	}

	switch {
	case claims.PreferredUsername != "":
		subject.Username = claims.PreferredUsername
	case claims.Name != "":
		subject.Username = claims.Name
	case claims.Email != "":
		subject.Username = claims.Email
	default:
		subject.Username = claims.Subject
	}

	subject.RawRoles = extractRoles(claims.Claims, rolesClaim)
	subject.Role = models.RoleFromClaims(subject.RawRoles)
	return subject
}

// extractRoles reads the roles claim. Zitadel's project roles claim is an
// object keyed by role name ({"admin": {"org-id": "domain"}}); plain
// string arrays and single strings are also accepted.
func extractRoles(claims map[string]interface{}, claimName string) []string {
	if claims == nil || claimName == "" {
		return nil
	}
	val, ok := claims[claimName]
	if !ok {
		return nil
	}

	switch v := val.(type) {
	case map[string]interface{}:
		roles := make([]string, 0, len(v))
		for role := range v {
			roles = append(roles, role)
		}
		return roles
	case []interface{}:
		roles := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				roles = append(roles, s)
			}
		}
		return roles
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case string:
		return []string{v}
	}
	return nil
}

// mapVerificationError normalizes zitadel/oidc verification failures onto
// the package error values.
func mapVerificationError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "expired") {
		return ErrExpiredCredentials
	}
	logging.Debug().Err(err).Msg("Token verification failed")
	return fmt.Errorf("%w: %s", ErrInvalidCredentials, msg)
}
