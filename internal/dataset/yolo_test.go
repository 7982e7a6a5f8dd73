// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sai-platform/sai-dashboard/internal/models"
)

func det(class string, x, y, w, h float64) models.Detection {
	return models.Detection{
		Class:      class,
		Confidence: 0.9,
		BoundingBox: models.BoundingBox{
			X: x, Y: y, Width: w, Height: h,
		},
	}
}

func TestYOLOLabel(t *testing.T) {
	// 100x100 box centered at (200, 150) in a 640x480 frame.
	line, err := YOLOLabel(det("fire", 150, 100, 100, 100), 640, 480)
	require.NoError(t, err)
	assert.Equal(t, "1 0.312500 0.312500 0.156250 0.208333", line)

	line, err = YOLOLabel(det("smoke", 0, 0, 640, 480), 640, 480)
	require.NoError(t, err)
	assert.Equal(t, "0 0.500000 0.500000 1.000000 1.000000", line)
}

func TestYOLOLabelClampsOutOfFrame(t *testing.T) {
	// Box hanging off the right edge clamps to the frame.
	line, err := YOLOLabel(det("fire", 600, 400, 200, 200), 640, 480)
	require.NoError(t, err)
	assert.Equal(t, "1 1.000000 1.000000 0.312500 0.416667", line)
}

func TestYOLOLabelRejectsZeroArea(t *testing.T) {
	_, err := YOLOLabel(det("fire", 10, 10, 0, 5), 640, 480)
	assert.ErrorContains(t, err, "zero-area")

	_, err = YOLOLabel(det("smoke", 10, 10, 5, 0), 640, 480)
	assert.ErrorContains(t, err, "zero-area")
}

func TestYOLOLabelRejectsUnknownClass(t *testing.T) {
	_, err := YOLOLabel(det("person", 10, 10, 5, 5), 640, 480)
	assert.ErrorContains(t, err, "unknown detection class")
}

func TestYOLOLabelCaseInsensitiveClass(t *testing.T) {
	line, err := YOLOLabel(det("Fire", 10, 10, 20, 20), 640, 480)
	require.NoError(t, err)
	assert.Equal(t, byte('1'), line[0])
}

func TestYOLOLabelsCollectsErrors(t *testing.T) {
	lines, errs := YOLOLabels([]models.Detection{
		det("smoke", 10, 10, 30, 30),
		det("bird", 0, 0, 5, 5),
		det("fire", 100, 100, 0, 0),
	}, 640, 480)

	assert.Len(t, lines, 1)
	assert.Len(t, errs, 2)
}

func TestAssignTrainDeterministic(t *testing.T) {
	for _, id := range []int64{1, 42, 9999, 123456789} {
		first := assignTrain(id, 0.8)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, assignTrain(id, 0.8))
		}
	}
}

func TestAssignTrainRoughSplit(t *testing.T) {
	train := 0
	const n = 10000
	for id := int64(0); id < n; id++ {
		if assignTrain(id, 0.8) {
			train++
		}
	}
	frac := float64(train) / n
	assert.InDelta(t, 0.8, frac, 0.05)
}
