package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleDoc struct {
	Name  string         `json:"name"`
	Count map[string]int `json:"count"`
}

func TestWriteAndReadJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.json")
	doc := sampleDoc{Name: "dataset", Count: map[string]int{"cats": 3}}

	require.NoError(t, WriteJSONFile(path, doc))

	var got sampleDoc
	require.NoError(t, ReadJSONFile(path, &got))
	assert.Equal(t, doc, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be renamed away")
}

func TestReadJSONFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	var got sampleDoc
	err := ReadJSONFile(path, &got)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.json")
}

func TestCopyFilePreservesModTime(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.mp4")
	require.NoError(t, os.WriteFile(src, []byte("video-bytes"), 0o644))
	mtime := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	dst := filepath.Join(dir, "train", "cats", "a.mp4")
	require.NoError(t, CopyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mtime))
	assert.True(t, FileExists(dst))
	assert.True(t, DirExists(filepath.Dir(dst)))
	assert.False(t, FileExists(filepath.Dir(dst)))
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyFile(filepath.Join(dir, "missing.mp4"), filepath.Join(dir, "out.mp4"))
	assert.True(t, os.IsNotExist(err))
}
