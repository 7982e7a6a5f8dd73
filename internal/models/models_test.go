// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package models

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveRiskLevel(t *testing.T) {
	tests := []struct {
		name       string
		hasFire    bool
		hasSmoke   bool
		confidence float64
		want       RiskLevel
	}{
		{"no detections", false, false, 0.9, RiskLevelNone},
		{"low confidence smoke", false, true, 0.3, RiskLevelLow},
		{"medium confidence smoke", false, true, 0.6, RiskLevelMedium},
		{"high confidence smoke", false, true, 0.85, RiskLevelHigh},
		{"low confidence fire", true, false, 0.3, RiskLevelLow},
		{"high confidence fire escalates", true, false, 0.9, RiskLevelCritical},
		{"fire and smoke high", true, true, 0.8, RiskLevelCritical},
		{"boundary 0.5 is medium", false, true, 0.5, RiskLevelMedium},
		{"boundary 0.8 is high", false, true, 0.8, RiskLevelHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveRiskLevel(tt.hasFire, tt.hasSmoke, tt.confidence)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidRiskLevel(t *testing.T) {
	for _, s := range []string{"none", "low", "medium", "high", "critical"} {
		assert.True(t, ValidRiskLevel(s), s)
	}
	assert.False(t, ValidRiskLevel("severe"))
	assert.False(t, ValidRiskLevel(""))
}

func TestRoleFromClaims(t *testing.T) {
	assert.Equal(t, RoleViewer, RoleFromClaims(nil))
	assert.Equal(t, RoleViewer, RoleFromClaims([]string{"unknown"}))
	assert.Equal(t, RoleExpert, RoleFromClaims([]string{"expert"}))
	// Highest recognized role wins regardless of order.
	assert.Equal(t, RoleAdmin, RoleFromClaims([]string{"viewer", "admin", "expert"}))
}

func TestRoleAtLeast(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleExpert))
	assert.True(t, RoleExpert.AtLeast(RoleExpert))
	assert.False(t, RoleViewer.AtLeast(RoleExpert))
}

func TestDetectionJSONShape(t *testing.T) {
	// The detections JSONB column uses the upstream pipeline's wire shape;
	// this pins the field names the SPA and the exporter both rely on.
	d := Detection{
		Class:      "smoke",
		Confidence: 0.72,
		BoundingBox: BoundingBox{
			X: 100, Y: 50, Width: 40, Height: 30,
		},
	}

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"class":"smoke","confidence":0.72,"bounding_box":{"x":100,"y":50,"width":40,"height":30}}`,
		string(raw))
}
