// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package database

import (
	"fmt"
	"strings"
	"time"
)

// ExecutionFilter narrows execution listings and dataset exports. Zero
// values mean "no constraint". Column references assume the executions
// table is aliased e and execution_analysis a.
type ExecutionFilter struct {
	CameraID      string
	Status        string
	RiskLevels    []string
	HasFire       *bool
	HasSmoke      *bool
	Verified      *bool
	MinConfidence float64
	Since         *time.Time
	Until         *time.Time

	Limit  int
	Offset int
}

// whereClause builds the WHERE fragment and its positional args. startArg
// is the first $n placeholder index to use.
func (f ExecutionFilter) whereClause(startArg int) (string, []interface{}) {
	var conds []string
	var args []interface{}

	next := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", startArg+len(args)-1)
	}

	if f.CameraID != "" {
		conds = append(conds, "e.camera_id = "+next(f.CameraID))
	}
	if f.Status != "" {
		conds = append(conds, "e.status = "+next(f.Status))
	}
	if len(f.RiskLevels) > 0 {
		conds = append(conds, "a.risk_level = ANY("+next(f.RiskLevels)+")")
	}
	if f.HasFire != nil {
		conds = append(conds, "a.has_fire = "+next(*f.HasFire))
	}
	if f.HasSmoke != nil {
		conds = append(conds, "a.has_smoke = "+next(*f.HasSmoke))
	}
	if f.Verified != nil {
		conds = append(conds, "a.verified = "+next(*f.Verified))
	}
	if f.MinConfidence > 0 {
		conds = append(conds, "a.confidence_score >= "+next(f.MinConfidence))
	}
	if f.Since != nil {
		conds = append(conds, "e.started_at >= "+next(*f.Since))
	}
	if f.Until != nil {
		conds = append(conds, "e.started_at < "+next(*f.Until))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// pageClause appends LIMIT/OFFSET, continuing the placeholder numbering
// after the WHERE args.
func (f ExecutionFilter) pageClause(startArg int) (string, []interface{}) {
	var sb strings.Builder
	var args []interface{}
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", startArg+len(args)-1)
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", startArg+len(args)-1)
	}
	return sb.String(), args
}
