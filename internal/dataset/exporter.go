// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package dataset

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/sai-platform/sai-dashboard/internal/database"
	"github.com/sai-platform/sai-dashboard/internal/logging"
	"github.com/sai-platform/sai-dashboard/internal/metrics"
	"github.com/sai-platform/sai-dashboard/internal/models"
)

// ExecutionSource lists export candidates. Implemented by *database.DB.
type ExecutionSource interface {
	ListExecutions(ctx context.Context, filter database.ExecutionFilter) ([]models.ExecutionRecord, int, error)
}

// ImageSource fetches stored frames by content hash. Implemented by
// *imagestore.Store.
type ImageSource interface {
	Fetch(hash, ext string) ([]byte, error)
}

// ExporterConfig tunes export behavior.
type ExporterConfig struct {
	Root              string
	DefaultTrainSplit float64
	ProgressEvery     int
}

// Progress is called as an export advances so job rows stay current.
type Progress func(total, processed int)

// Exporter materializes YOLO datasets from filtered executions.
type Exporter struct {
	cfg    ExporterConfig
	db     ExecutionSource
	images ImageSource
}

// NewExporter creates an exporter writing under cfg.Root.
func NewExporter(cfg ExporterConfig, db ExecutionSource, images ImageSource) *Exporter {
	if cfg.DefaultTrainSplit <= 0 || cfg.DefaultTrainSplit >= 1 {
		cfg.DefaultTrainSplit = 0.8
	}
	if cfg.ProgressEvery < 1 {
		cfg.ProgressEvery = 25
	}
	return &Exporter{cfg: cfg, db: db, images: images}
}

// Result summarizes a finished export.
type Result struct {
	OutputPath string
	Total      int
	Processed  int
	Errors     []string
}

// maxExportCandidates caps an unbounded export.
const maxExportCandidates = 10000

// Export runs one job to completion, writing the YOLO directory layout:
//
//	<root>/<name>/images/{train,val}/<id>.jpg
//	<root>/<name>/labels/{train,val}/<id>.txt
//	<root>/<name>/dataset.json
//
// Executions without a stored image or analysis are recorded as errors and
// skipped. The export only fails outright on filesystem or database
// errors.
func (e *Exporter) Export(ctx context.Context, job models.DatasetJob, progress Progress) (Result, error) {
	var res Result

	filter := filterFromParams(job.Params)
	records, _, err := e.db.ListExecutions(ctx, filter)
	if err != nil {
		return res, fmt.Errorf("failed to select executions: %w", err)
	}
	res.Total = len(records)

	outDir, err := e.prepareOutputDir(job)
	if err != nil {
		return res, err
	}
	res.OutputPath = outDir

	split := job.Params.TrainSplit
	if split <= 0 || split >= 1 {
		split = e.cfg.DefaultTrainSplit
	}

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if err := e.exportOne(outDir, rec, split); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("execution %d: %v", rec.Execution.ID, err))
		} else {
			res.Processed++
			metrics.DatasetImagesExported.Inc()
		}

		if progress != nil && (i+1)%e.cfg.ProgressEvery == 0 {
			progress(res.Total, res.Processed)
		}
	}

	if err := e.writeManifest(outDir, job); err != nil {
		return res, err
	}

	logging.Info().
		Str("job_id", job.ID).
		Str("output", outDir).
		Int("total", res.Total).
		Int("processed", res.Processed).
		Int("errors", len(res.Errors)).
		Msg("Dataset export finished")
	return res, nil
}

// exportOne writes the image and label file for one execution.
func (e *Exporter) exportOne(outDir string, rec models.ExecutionRecord, split float64) error {
	if rec.Image == nil {
		return fmt.Errorf("no stored image")
	}
	if rec.Analysis == nil {
		return fmt.Errorf("no analysis")
	}
	if rec.Image.Width <= 0 || rec.Image.Height <= 0 {
		return fmt.Errorf("missing image dimensions")
	}

	data, err := e.readImage(rec.Image)
	if err != nil {
		return err
	}

	lines, labelErrs := YOLOLabels(rec.Analysis.Detections, rec.Image.Width, rec.Image.Height)
	if len(lines) == 0 && len(labelErrs) > 0 {
		return fmt.Errorf("no usable detections: %s", strings.Join(labelErrs, "; "))
	}

	subset := "val"
	if assignTrain(rec.Execution.ID, split) {
		subset = "train"
	}

	base := fmt.Sprintf("%d", rec.Execution.ID)
	imgPath := filepath.Join(outDir, "images", subset, base+".jpg")
	labelPath := filepath.Join(outDir, "labels", subset, base+".txt")

	if err := os.WriteFile(imgPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	// Background images (no detections) get an empty label file, the YOLO
	// convention for negative samples.
	var labelContent string
	if len(lines) > 0 {
		labelContent = strings.Join(lines, "\n") + "\n"
	}
	if err := os.WriteFile(labelPath, []byte(labelContent), 0o644); err != nil {
		return fmt.Errorf("failed to write labels: %w", err)
	}
	return nil
}

// readImage loads the frame from the content store, falling back to the
// pipeline's original path for rows ingested before content addressing.
func (e *Exporter) readImage(img *models.ExecutionImage) ([]byte, error) {
	if img.ImageHash != "" {
		data, err := e.images.Fetch(img.ImageHash, ".jpg")
		if err != nil {
			return nil, fmt.Errorf("failed to fetch image: %w", err)
		}
		return data, nil
	}
	if img.OriginalPath == "" || !filepath.IsAbs(img.OriginalPath) ||
		img.OriginalPath != filepath.Clean(img.OriginalPath) {
		return nil, fmt.Errorf("no stored image")
	}
	data, err := os.ReadFile(img.OriginalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read original image: %w", err)
	}
	return data, nil
}

// assignTrain deterministically assigns an execution to the train split.
// Hashing the ID keeps assignments stable across re-exports, so an image
// never migrates between train and val.
func assignTrain(executionID int64, split float64) bool {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d", executionID)
	// Map the hash to [0, 1) and compare against the split fraction.
	frac := float64(h.Sum64()%100000) / 100000
	return frac < split
}

func (e *Exporter) prepareOutputDir(job models.DatasetJob) (string, error) {
	name := sanitizeName(job.Name)
	if name == "" {
		name = "dataset"
	}
	dir := filepath.Join(e.cfg.Root, name)
	if _, err := os.Stat(dir); err == nil {
		// Name taken; disambiguate with the job ID prefix.
		dir = filepath.Join(e.cfg.Root, name+"-"+shortID(job.ID))
	}

	for _, sub := range []string{
		filepath.Join("images", "train"),
		filepath.Join("images", "val"),
		filepath.Join("labels", "train"),
		filepath.Join("labels", "val"),
	} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return "", fmt.Errorf("failed to create dataset directory: %w", err)
		}
	}
	return dir, nil
}

func (e *Exporter) writeManifest(outDir string, job models.DatasetJob) error {
	params := job.Params
	manifest := models.DatasetManifest{
		Name:      filepath.Base(outDir),
		Classes:   Classes,
		CreatedAt: time.Now().UTC(),
		Source:    "sai-dashboard",
		JobID:     job.ID,
		Params:    &params,
	}
	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, ManifestFile), raw, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// filterFromParams maps job selection parameters onto the shared listing
// filter.
func filterFromParams(p models.DatasetJobParams) database.ExecutionFilter {
	f := database.ExecutionFilter{
		CameraID:      p.CameraID,
		RiskLevels:    p.RiskLevels,
		HasFire:       p.HasFire,
		HasSmoke:      p.HasSmoke,
		MinConfidence: p.MinConfidence,
		Since:         p.Since,
		Until:         p.Until,
		Limit:         p.MaxImages,
	}
	if p.VerifiedOnly {
		verified := true
		f.Verified = &verified
	}
	if f.Limit <= 0 || f.Limit > maxExportCandidates {
		f.Limit = maxExportCandidates
	}
	return f
}

var nameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

func sanitizeName(name string) string {
	return strings.Trim(nameSanitizer.ReplaceAllString(name, "-"), "-")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
