package service

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidset/internal/appdirs"
)

func useOutputDir(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	originalResolver := appDirsResolver
	t.Cleanup(func() {
		appDirsResolver = originalResolver
	})

	outputDir := filepath.Join(tempDir, "output-root")
	appDirsResolver = func() (appdirs.Paths, error) {
		return appdirs.Paths{OutputDir: outputDir, CacheDir: filepath.Join(tempDir, "cache-root")}, nil
	}
	return outputDir
}

func TestResolveJobDirUsesOutputDir(t *testing.T) {
	outputDir := useOutputDir(t)

	got, err := resolveJobDir("job-001")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outputDir, "jobs", "job-001"), got)

	_, err = resolveJobDir("  ")
	assert.Error(t, err)
}

func TestResolveArtifactPath(t *testing.T) {
	outputDir := useOutputDir(t)

	got, err := resolveArtifactPath(filepath.Join(outputDir, "jobs", "job-001", "quality.json"))
	require.NoError(t, err)
	assert.Equal(t, "jobs/job-001/quality.json", got)
}

func TestResolveArtifactPathRejectsOutsideJobRoot(t *testing.T) {
	useOutputDir(t)

	_, err := resolveArtifactPath(filepath.Join(t.TempDir(), "elsewhere", "quality.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside job root")
}
