// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool { return &b }

func TestFilterWhereClauseEmpty(t *testing.T) {
	where, args := ExecutionFilter{}.whereClause(1)
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestFilterWhereClauseSingle(t *testing.T) {
	where, args := ExecutionFilter{CameraID: "cam-01"}.whereClause(1)
	assert.Equal(t, " WHERE e.camera_id = $1", where)
	assert.Equal(t, []interface{}{"cam-01"}, args)
}

func TestFilterWhereClauseComposition(t *testing.T) {
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f := ExecutionFilter{
		CameraID:      "cam-01",
		RiskLevels:    []string{"high", "critical"},
		HasFire:       boolPtr(true),
		Verified:      boolPtr(false),
		MinConfidence: 0.5,
		Since:         &since,
	}
	where, args := f.whereClause(1)

	assert.Equal(t,
		" WHERE e.camera_id = $1 AND a.risk_level = ANY($2) AND a.has_fire = $3"+
			" AND a.verified = $4 AND a.confidence_score >= $5 AND e.started_at >= $6",
		where)
	assert.Len(t, args, 6)
	assert.Equal(t, "cam-01", args[0])
	assert.Equal(t, []string{"high", "critical"}, args[1])
	assert.Equal(t, true, args[2])
	assert.Equal(t, false, args[3])
}

func TestFilterWhereClauseStartArg(t *testing.T) {
	// The count query and the paged query share one filter but number
	// their placeholders independently.
	where, _ := ExecutionFilter{Status: "success"}.whereClause(3)
	assert.Equal(t, " WHERE e.status = $3", where)
}

func TestFilterPageClause(t *testing.T) {
	page, args := ExecutionFilter{Limit: 20, Offset: 40}.pageClause(2)
	assert.Equal(t, " LIMIT $2 OFFSET $3", page)
	assert.Equal(t, []interface{}{20, 40}, args)

	page, args = ExecutionFilter{}.pageClause(1)
	assert.Empty(t, page)
	assert.Empty(t, args)
}

func TestParseChangePayload(t *testing.T) {
	tests := []struct {
		payload string
		want    ChangeEvent
		ok      bool
	}{
		{"created:42", ChangeEvent{Event: "created", ExecutionID: 42}, true},
		{"updated:7", ChangeEvent{Event: "updated", ExecutionID: 7}, true},
		{"deleted:1001", ChangeEvent{Event: "deleted", ExecutionID: 1001}, true},
		{"created:", ChangeEvent{}, false},
		{"created:abc", ChangeEvent{}, false},
		{"truncated:42", ChangeEvent{}, false},
		{"noseparator", ChangeEvent{}, false},
	}
	for _, tt := range tests {
		got, ok := parseChangePayload(tt.payload)
		assert.Equal(t, tt.ok, ok, tt.payload)
		assert.Equal(t, tt.want, got, tt.payload)
	}
}
