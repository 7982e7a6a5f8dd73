// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

// Package imagestore implements content-addressed storage for raw inference
// images.
//
// Layout (shard depth 2, width 2):
//
//	<base>/ab/cd/abcd1234....jpg
//
// Files are addressed by the SHA256 hex digest of their content, so storing
// the same frame twice is a no-op. Writes go through a temp file and rename
// so readers never observe partial content.
package imagestore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/sai-platform/sai-dashboard/internal/logging"
)

// ErrNotFound is returned by Fetch and Delete when no image exists for the
// given hash.
var ErrNotFound = errors.New("imagestore: image not found")

// hashPattern matches a full SHA256 hex digest. Anything else is rejected
// before it can reach the filesystem.
var hashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// StoreResult describes the outcome of storing an image.
type StoreResult struct {
	Hash        string    `json:"hash"`
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	IsDuplicate bool      `json:"is_duplicate"`
	StoredAt    time.Time `json:"stored_at"`
}

// Store is a content-addressed image store rooted at a base directory.
type Store struct {
	basePath   string
	shardDepth int
	shardWidth int
}

// New creates a store rooted at basePath. Shard depth and width control the
// directory fan-out; depth 2 / width 2 gives 65536 leaf directories.
func New(basePath string, shardDepth, shardWidth int) (*Store, error) {
	if basePath == "" {
		return nil, errors.New("imagestore: base path is required")
	}
	if shardDepth < 1 {
		shardDepth = 2
	}
	if shardWidth < 1 {
		shardWidth = 2
	}
	if shardDepth*shardWidth > sha256.Size*2 {
		return nil, fmt.Errorf("imagestore: shard depth %d x width %d exceeds hash length", shardDepth, shardWidth)
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("imagestore: failed to create base directory: %w", err)
	}
	return &Store{
		basePath:   basePath,
		shardDepth: shardDepth,
		shardWidth: shardWidth,
	}, nil
}

// shardDir returns the sharded directory for a hash, e.g. base/ab/cd.
func (s *Store) shardDir(hash string) string {
	parts := make([]string, 0, s.shardDepth+1)
	parts = append(parts, s.basePath)
	for i := 0; i < s.shardDepth; i++ {
		start := i * s.shardWidth
		parts = append(parts, hash[start:start+s.shardWidth])
	}
	return filepath.Join(parts...)
}

// filePath returns the full path for a hash.
func (s *Store) filePath(hash, ext string) string {
	return filepath.Join(s.shardDir(hash), hash+ext)
}

// Put stores image data under its content hash. Storing existing content
// returns the prior path with IsDuplicate set.
func (s *Store) Put(data []byte, ext string) (StoreResult, error) {
	if ext == "" {
		ext = ".jpg"
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	path := s.filePath(hash, ext)

	if _, err := os.Stat(path); err == nil {
		logging.Debug().Str("hash", hash).Msg("Image already stored, deduplicated")
		return StoreResult{
			Hash:        hash,
			Path:        path,
			Size:        int64(len(data)),
			IsDuplicate: true,
			StoredAt:    time.Now().UTC(),
		}, nil
	}

	if err := os.MkdirAll(s.shardDir(hash), 0o755); err != nil {
		return StoreResult{}, fmt.Errorf("imagestore: failed to create shard directory: %w", err)
	}

	// Write to a temp file in the same directory, then rename. Rename is
	// atomic within a filesystem, so a crash never leaves a partial image
	// at the content address.
	tmp, err := os.CreateTemp(s.shardDir(hash), hash+".tmp*")
	if err != nil {
		return StoreResult{}, fmt.Errorf("imagestore: failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return StoreResult{}, fmt.Errorf("imagestore: failed to write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return StoreResult{}, fmt.Errorf("imagestore: failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return StoreResult{}, fmt.Errorf("imagestore: failed to rename temp file: %w", err)
	}

	logging.Debug().Str("hash", hash).Int("bytes", len(data)).Msg("Stored image")
	return StoreResult{
		Hash:     hash,
		Path:     path,
		Size:     int64(len(data)),
		StoredAt: time.Now().UTC(),
	}, nil
}

// Fetch returns the image bytes for a hash, or ErrNotFound.
func (s *Store) Fetch(hash, ext string) ([]byte, error) {
	path, err := s.Path(hash, ext)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("imagestore: failed to read image: %w", err)
	}
	return data, nil
}

// Exists reports whether an image with the given hash is stored.
func (s *Store) Exists(hash, ext string) bool {
	path, err := s.Path(hash, ext)
	if err != nil {
		return false
	}
	_, statErr := os.Stat(path)
	return statErr == nil
}

// Path returns the filesystem path for a hash without checking existence.
// The hash is validated so callers can safely serve the path over HTTP.
func (s *Store) Path(hash, ext string) (string, error) {
	if !hashPattern.MatchString(hash) {
		return "", fmt.Errorf("imagestore: invalid hash %q", hash)
	}
	if ext == "" {
		ext = ".jpg"
	}
	return s.filePath(hash, ext), nil
}

// Delete removes an image. Returns ErrNotFound if it was not stored.
// Empty shard directories are left in place to avoid racing with
// concurrent writers.
func (s *Store) Delete(hash, ext string) error {
	path, err := s.Path(hash, ext)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("imagestore: failed to delete image: %w", err)
	}
	logging.Debug().Str("hash", hash).Msg("Deleted image")
	return nil
}
