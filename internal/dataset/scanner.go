// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gocache "github.com/patrickmn/go-cache"

	"github.com/sai-platform/sai-dashboard/internal/logging"
	"github.com/sai-platform/sai-dashboard/internal/models"
)

// ErrDatasetNotFound is returned when a named dataset directory does not
// exist under the root.
var ErrDatasetNotFound = errors.New("dataset: not found")

// ManifestFile is the sidecar written next to every exported dataset.
const ManifestFile = "dataset.json"

const scanCacheKey = "scan"

// Scanner lists datasets under a root directory. Scans walk the whole
// tree counting images and labels, so results are cached briefly.
type Scanner struct {
	root  string
	cache *gocache.Cache
}

// NewScanner creates a scanner over root with the given cache TTL.
func NewScanner(root string, cacheTTL time.Duration) *Scanner {
	return &Scanner{
		root:  root,
		cache: gocache.New(cacheTTL, 2*cacheTTL),
	}
}

// Invalidate drops the scan cache. Called after an export completes so
// the new dataset shows up immediately.
func (s *Scanner) Invalidate() {
	s.cache.Flush()
}

// List returns all datasets under the root, sorted by name.
func (s *Scanner) List() ([]models.DatasetInfo, error) {
	if cached, found := s.cache.Get(scanCacheKey); found {
		return cached.([]models.DatasetInfo), nil
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.DatasetInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read datasets root: %w", err)
	}

	infos := make([]models.DatasetInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := s.scanDataset(entry.Name())
		if err != nil {
			logging.Warn().Err(err).Str("dataset", entry.Name()).Msg("Skipping unreadable dataset directory")
			continue
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	s.cache.Set(scanCacheKey, infos, gocache.DefaultExpiration)
	return infos, nil
}

// Get returns one dataset by name, or ErrDatasetNotFound.
func (s *Scanner) Get(name string) (models.DatasetInfo, error) {
	if !validDatasetName(name) {
		return models.DatasetInfo{}, ErrDatasetNotFound
	}
	info, err := s.scanDataset(name)
	if err != nil {
		if os.IsNotExist(err) {
			return models.DatasetInfo{}, ErrDatasetNotFound
		}
		return models.DatasetInfo{}, err
	}
	return info, nil
}

// scanDataset walks one dataset directory counting files per split.
func (s *Scanner) scanDataset(name string) (models.DatasetInfo, error) {
	dir := filepath.Join(s.root, name)
	stat, err := os.Stat(dir)
	if err != nil {
		return models.DatasetInfo{}, err
	}
	if !stat.IsDir() {
		return models.DatasetInfo{}, os.ErrNotExist
	}

	info := models.DatasetInfo{
		Name:       name,
		Path:       dir,
		ModifiedAt: stat.ModTime().UTC(),
	}

	if manifest, err := readManifest(dir); err == nil {
		info.Manifest = manifest
	} else {
		// Datasets dropped in by hand may have no sidecar.
		info.Manifest = models.DatasetManifest{Name: name, Classes: Classes}
	}

	var size int64
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		size += fi.Size()

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		switch {
		case strings.HasPrefix(rel, filepath.Join("images", "train")+string(filepath.Separator)):
			if isImageFile(rel) {
				info.TrainImages++
			}
		case strings.HasPrefix(rel, filepath.Join("images", "val")+string(filepath.Separator)):
			if isImageFile(rel) {
				info.ValImages++
			}
		case strings.HasPrefix(rel, filepath.Join("labels", "train")+string(filepath.Separator)):
			if strings.HasSuffix(rel, ".txt") {
				info.TrainLabels++
			}
		case strings.HasPrefix(rel, filepath.Join("labels", "val")+string(filepath.Separator)):
			if strings.HasSuffix(rel, ".txt") {
				info.ValLabels++
			}
		}
		return nil
	})
	if err != nil {
		return models.DatasetInfo{}, fmt.Errorf("failed to scan dataset %s: %w", name, err)
	}
	info.SizeBytes = size
	return info, nil
}

func readManifest(dir string) (models.DatasetManifest, error) {
	var m models.DatasetManifest
	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("invalid %s: %w", ManifestFile, err)
	}
	return m, nil
}

func isImageFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// validDatasetName rejects names that could escape the datasets root.
func validDatasetName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\")
}
