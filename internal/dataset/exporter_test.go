// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sai-platform/sai-dashboard/internal/database"
	"github.com/sai-platform/sai-dashboard/internal/models"
)

type fakeExecutionSource struct {
	records    []models.ExecutionRecord
	lastFilter database.ExecutionFilter
}

func (f *fakeExecutionSource) ListExecutions(_ context.Context, filter database.ExecutionFilter) ([]models.ExecutionRecord, int, error) {
	f.lastFilter = filter
	return f.records, len(f.records), nil
}

type fakeImageSource struct {
	images map[string][]byte
}

func (f *fakeImageSource) Fetch(hash, _ string) ([]byte, error) {
	data, ok := f.images[hash]
	if !ok {
		return nil, fmt.Errorf("image %s not found", hash)
	}
	return data, nil
}

func record(id int64, detections []models.Detection, imageData []byte, images map[string][]byte) models.ExecutionRecord {
	sum := sha256.Sum256(imageData)
	hash := hex.EncodeToString(sum[:])
	images[hash] = imageData
	now := time.Now().UTC()
	return models.ExecutionRecord{
		Execution: models.Execution{ID: id, CameraID: "cam-01", Status: "success", StartedAt: now},
		Analysis: &models.ExecutionAnalysis{
			ExecutionID: id,
			Detections:  detections,
			HasFire:     true,
			RiskLevel:   models.RiskLevelHigh,
		},
		Image: &models.ExecutionImage{
			ExecutionID: id,
			ImageHash:   hash,
			Width:       640,
			Height:      480,
		},
	}
}

func TestExportWritesYOLOLayout(t *testing.T) {
	images := map[string][]byte{}
	src := &fakeExecutionSource{}
	for i := int64(1); i <= 5; i++ {
		src.records = append(src.records, record(i,
			[]models.Detection{det("fire", 100, 100, 50, 50)},
			[]byte(fmt.Sprintf("frame-%d", i)), images))
	}

	root := t.TempDir()
	exp := NewExporter(ExporterConfig{Root: root, DefaultTrainSplit: 0.8, ProgressEvery: 2}, src, &fakeImageSource{images: images})

	var progressCalls int
	job := models.DatasetJob{ID: "11111111-2222-3333-4444-555555555555", Name: "wildfire set"}
	res, err := exp.Export(context.Background(), job, func(total, processed int) { progressCalls++ })
	require.NoError(t, err)

	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 5, res.Processed)
	assert.Empty(t, res.Errors)
	assert.Positive(t, progressCalls)
	assert.Equal(t, filepath.Join(root, "wildfire-set"), res.OutputPath)

	// Every exported image has a matching label in the same split.
	var images2, labels int
	for _, subset := range []string{"train", "val"} {
		imgs, err := os.ReadDir(filepath.Join(res.OutputPath, "images", subset))
		require.NoError(t, err)
		for _, e := range imgs {
			images2++
			base := e.Name()[:len(e.Name())-len(filepath.Ext(e.Name()))]
			_, err := os.Stat(filepath.Join(res.OutputPath, "labels", subset, base+".txt"))
			assert.NoError(t, err, "label missing for %s/%s", subset, e.Name())
		}
		lbls, err := os.ReadDir(filepath.Join(res.OutputPath, "labels", subset))
		require.NoError(t, err)
		labels += len(lbls)
	}
	assert.Equal(t, 5, images2)
	assert.Equal(t, 5, labels)

	// Manifest sidecar is present and scannable.
	scanner := NewScanner(root, time.Minute)
	info, err := scanner.Get("wildfire-set")
	require.NoError(t, err)
	assert.Equal(t, Classes, info.Manifest.Classes)
	assert.Equal(t, job.ID, info.Manifest.JobID)
	assert.Equal(t, 5, info.TrainImages+info.ValImages)
}

func TestExportSkipsRecordsWithoutImages(t *testing.T) {
	images := map[string][]byte{}
	src := &fakeExecutionSource{
		records: []models.ExecutionRecord{
			record(1, []models.Detection{det("smoke", 10, 10, 50, 50)}, []byte("frame-1"), images),
			{Execution: models.Execution{ID: 2}}, // no analysis, no image
		},
	}

	exp := NewExporter(ExporterConfig{Root: t.TempDir()}, src, &fakeImageSource{images: images})
	res, err := exp.Export(context.Background(), models.DatasetJob{ID: "job-2", Name: "partial"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Processed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "execution 2")
}

func TestExportBackgroundImageGetsEmptyLabelFile(t *testing.T) {
	images := map[string][]byte{}
	src := &fakeExecutionSource{
		records: []models.ExecutionRecord{
			record(7, nil, []byte("quiet-frame"), images),
		},
	}

	exp := NewExporter(ExporterConfig{Root: t.TempDir()}, src, &fakeImageSource{images: images})
	res, err := exp.Export(context.Background(), models.DatasetJob{ID: "job-bg", Name: "background"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Processed)
	assert.Empty(t, res.Errors)

	// Negative samples carry an empty label file, not a blank line.
	found := false
	for _, subset := range []string{"train", "val"} {
		raw, err := os.ReadFile(filepath.Join(res.OutputPath, "labels", subset, "7.txt"))
		if err == nil {
			found = true
			assert.Empty(t, raw)
		}
	}
	assert.True(t, found, "label file for execution 7 not written")
}

func TestExportVerifiedOnlyFilter(t *testing.T) {
	src := &fakeExecutionSource{}
	exp := NewExporter(ExporterConfig{Root: t.TempDir()}, src, &fakeImageSource{})

	_, err := exp.Export(context.Background(), models.DatasetJob{
		ID:   "job-3",
		Name: "verified",
		Params: models.DatasetJobParams{
			VerifiedOnly: true,
			MaxImages:    100,
		},
	}, nil)
	require.NoError(t, err)

	require.NotNil(t, src.lastFilter.Verified)
	assert.True(t, *src.lastFilter.Verified)
	assert.Equal(t, 100, src.lastFilter.Limit)
}

func TestScannerListAndCache(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"alpha", "beta"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, name, "images", "train"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, name, "images", "train", "1.jpg"), []byte("x"), 0o644))
	}

	scanner := NewScanner(root, time.Minute)
	infos, err := scanner.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "alpha", infos[0].Name)
	assert.Equal(t, 1, infos[0].TrainImages)

	// New dataset appears only after invalidation while the TTL holds.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "gamma"), 0o755))
	infos, err = scanner.List()
	require.NoError(t, err)
	assert.Len(t, infos, 2)

	scanner.Invalidate()
	infos, err = scanner.List()
	require.NoError(t, err)
	assert.Len(t, infos, 3)
}

func TestScannerGetRejectsTraversal(t *testing.T) {
	scanner := NewScanner(t.TempDir(), time.Minute)
	for _, name := range []string{"..", "a/b", `a\b`, ""} {
		_, err := scanner.Get(name)
		assert.ErrorIs(t, err, ErrDatasetNotFound, name)
	}
}
