// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package models

// Role is the fixed authorization enum. Token role claims are mapped onto
// it; unknown claims fall back to RoleViewer.
//
// Ordering matters: a higher value implies every capability of the lower
// ones (admin > expert > viewer).
type Role int

const (
	RoleViewer Role = iota
	RoleExpert
	RoleAdmin
)

// roleNames maps claim values to roles. Claim values are the strings
// configured in the IdP project ("admin", "expert", "viewer").
var roleNames = map[string]Role{
	"viewer": RoleViewer,
	"expert": RoleExpert,
	"admin":  RoleAdmin,
}

// String returns the claim name of the role.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleExpert:
		return "expert"
	default:
		return "viewer"
	}
}

// AtLeast reports whether r grants the capabilities of required.
func (r Role) AtLeast(required Role) bool {
	return r >= required
}

// RoleFromClaims maps a set of role claim values to the single effective
// role, taking the highest recognized one. An empty or unrecognized set
// maps to RoleViewer.
func RoleFromClaims(claims []string) Role {
	effective := RoleViewer
	for _, c := range claims {
		if r, ok := roleNames[c]; ok && r > effective {
			effective = r
		}
	}
	return effective
}
