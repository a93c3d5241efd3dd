package appdirs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntimePaths(t *testing.T) {
	paths := Paths{
		OutputDir: filepath.Join("var", "vidset", "output"),
		CacheDir:  filepath.Join("var", "vidset", "cache"),
	}

	assert.Equal(t, filepath.Join("var", "vidset", "output", "jobs"), paths.JobRoot())
	assert.Equal(t, filepath.Join("var", "vidset", "output", "jobs", "job_123"), paths.JobDir("job_123"))
	assert.Equal(t, filepath.Join("var", "vidset", "output", "reports"), paths.ReportRoot())
	assert.Equal(t, filepath.Join("var", "vidset", "cache", "vidset.db"), paths.DBPath())
}

func TestRuntimePathsFallbacks(t *testing.T) {
	paths := Paths{OutputDir: "  ", CacheDir: ""}

	assert.Equal(t, "jobs", paths.JobRoot())
	assert.Equal(t, "reports", paths.ReportRoot())
	assert.Equal(t, filepath.Join("cache", "vidset.db"), paths.DBPath())
}

func TestResolveReportRootUsesHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)

	got, err := ResolveReportRoot()
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "output", "reports"), got)
}
