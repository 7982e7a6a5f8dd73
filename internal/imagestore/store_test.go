// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

package imagestore

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), 2, 2)
	require.NoError(t, err)
	return s
}

func TestPutAndFetch(t *testing.T) {
	s := newTestStore(t)
	data := []byte("fake jpeg bytes")

	res, err := s.Put(data, ".jpg")
	require.NoError(t, err)
	assert.False(t, res.IsDuplicate)
	assert.Equal(t, int64(len(data)), res.Size)

	sum := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), res.Hash)

	got, err := s.Fetch(res.Hash, ".jpg")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestPutDeduplicates(t *testing.T) {
	s := newTestStore(t)
	data := []byte("same frame twice")

	first, err := s.Put(data, ".jpg")
	require.NoError(t, err)
	second, err := s.Put(data, ".jpg")
	require.NoError(t, err)

	assert.False(t, first.IsDuplicate)
	assert.True(t, second.IsDuplicate)
	assert.Equal(t, first.Path, second.Path)
}

func TestShardLayout(t *testing.T) {
	s := newTestStore(t)
	res, err := s.Put([]byte("payload"), ".jpg")
	require.NoError(t, err)

	rel, err := filepath.Rel(s.basePath, res.Path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(res.Hash[0:2], res.Hash[2:4], res.Hash+".jpg"), rel)
}

func TestNoTempFilesLeftBehind(t *testing.T) {
	s := newTestStore(t)
	res, err := s.Put([]byte("payload"), ".jpg")
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Dir(res.Path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, res.Hash+".jpg", entries[0].Name())
}

func TestFetchMissing(t *testing.T) {
	s := newTestStore(t)
	missing := "0000000000000000000000000000000000000000000000000000000000000000"
	_, err := s.Fetch(missing, ".jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPathRejectsInvalidHash(t *testing.T) {
	s := newTestStore(t)
	for _, h := range []string{"", "abcd", "../../etc/passwd", "ZZ" + make62()} {
		_, err := s.Path(h, ".jpg")
		assert.Error(t, err, h)
	}
}

func make62() string {
	b := make([]byte, 62)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	res, err := s.Put([]byte("to be removed"), ".jpg")
	require.NoError(t, err)

	require.NoError(t, s.Delete(res.Hash, ".jpg"))
	assert.False(t, s.Exists(res.Hash, ".jpg"))
	assert.ErrorIs(t, s.Delete(res.Hash, ".jpg"), ErrNotFound)
}
