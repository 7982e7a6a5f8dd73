// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sai-platform/sai-dashboard/internal/models"
)

func TestFillRiskLevelDerivesWhenUnclassified(t *testing.T) {
	conf := 0.9

	cases := []struct {
		name     string
		analysis models.ExecutionAnalysis
		want     models.RiskLevel
	}{
		{
			name:     "fire at high confidence escalates to critical",
			analysis: models.ExecutionAnalysis{HasFire: true, ConfidenceScore: &conf},
			want:     models.RiskLevelCritical,
		},
		{
			name:     "smoke only stays at high",
			analysis: models.ExecutionAnalysis{HasSmoke: true, ConfidenceScore: &conf},
			want:     models.RiskLevelHigh,
		},
		{
			name:     "no detections means none",
			analysis: models.ExecutionAnalysis{},
			want:     models.RiskLevelNone,
		},
		{
			name:     "missing confidence score treated as zero",
			analysis: models.ExecutionAnalysis{HasSmoke: true},
			want:     models.RiskLevelLow,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fillRiskLevel(&tc.analysis)
			assert.Equal(t, tc.want, tc.analysis.RiskLevel)
		})
	}
}

func TestFillRiskLevelKeepsPipelineClassification(t *testing.T) {
	conf := 0.95
	analysis := models.ExecutionAnalysis{
		HasFire:         true,
		ConfidenceScore: &conf,
		RiskLevel:       models.RiskLevelMedium,
	}
	fillRiskLevel(&analysis)
	assert.Equal(t, models.RiskLevelMedium, analysis.RiskLevel, "pipeline value must win over derivation")
}
