// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

// Package dataset turns verified detections into YOLO training datasets and
// serves metadata about datasets already on disk.
package dataset

import (
	"fmt"
	"strings"

	"github.com/sai-platform/sai-dashboard/internal/models"
)

// Classes lists the YOLO class names in index order. The index in this
// slice is the class ID written to label files.
var Classes = []string{"smoke", "fire"}

// classIndex maps detection class names to YOLO class IDs.
var classIndex = map[string]int{
	"smoke": 0,
	"fire":  1,
}

// YOLOLabel formats one detection as a YOLO label line: class ID followed
// by the box center and size, all normalized to [0, 1] by the image
// dimensions. Out-of-frame boxes are clamped; zero-area boxes and unknown
// classes are rejected.
func YOLOLabel(d models.Detection, imgWidth, imgHeight int) (string, error) {
	classID, ok := classIndex[strings.ToLower(d.Class)]
	if !ok {
		return "", fmt.Errorf("unknown detection class %q", d.Class)
	}
	if imgWidth <= 0 || imgHeight <= 0 {
		return "", fmt.Errorf("invalid image dimensions %dx%d", imgWidth, imgHeight)
	}
	if d.BoundingBox.Width <= 0 || d.BoundingBox.Height <= 0 {
		return "", fmt.Errorf("zero-area bounding box for class %q", d.Class)
	}

	w := float64(imgWidth)
	h := float64(imgHeight)

	centerX := clamp01((d.BoundingBox.X + d.BoundingBox.Width/2) / w)
	centerY := clamp01((d.BoundingBox.Y + d.BoundingBox.Height/2) / h)
	normW := clamp01(d.BoundingBox.Width / w)
	normH := clamp01(d.BoundingBox.Height / h)

	return fmt.Sprintf("%d %.6f %.6f %.6f %.6f", classID, centerX, centerY, normW, normH), nil
}

// YOLOLabels converts all detections of one image. Detections that cannot
// be converted are returned as error strings rather than aborting the
// whole image.
func YOLOLabels(detections []models.Detection, imgWidth, imgHeight int) (lines []string, errs []string) {
	for _, d := range detections {
		line, err := YOLOLabel(d, imgWidth, imgHeight)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		lines = append(lines, line)
	}
	return lines, errs
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
