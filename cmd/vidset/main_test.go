package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidset/config"
	"vidset/internal/appdirs"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(appdirs.HomeEnv, t.TempDir())
	var out bytes.Buffer
	err := newApp(&out).Run(context.Background(), append([]string{"vidset"}, args...))
	return out.String(), err
}

func writeVideos(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("video"), 0o644))
	}
}

func TestPrintDiagnoseShowsRuntimePaths(t *testing.T) {
	t.Setenv(appdirs.HomeEnv, t.TempDir())
	var out bytes.Buffer
	cfg := config.Default()
	cfg.Queue.RedisAddr = ""
	printDiagnose(context.Background(), &out, cfg)

	output := out.String()
	assert.Contains(t, output, "path.log_file:")
	assert.Contains(t, output, "path.effective_config:")
	assert.Contains(t, output, "path.database:")
	assert.Contains(t, output, "依赖检查 Dependency status")
}

func TestCommandsRegistered(t *testing.T) {
	var names []string
	for _, cmd := range newApp(&bytes.Buffer{}).Commands {
		names = append(names, cmd.Name)
	}
	for _, want := range []string{
		"organize", "add", "extract-frames", "process", "info", "keyframes", "fingerprint",
		"duplicates", "quality", "balance", "split", "thumbnail", "summary", "montage",
		"metadata", "stats", "labels", "report", "enqueue", "worker", "diagnose",
	} {
		assert.Contains(t, names, want)
	}
}

func TestMissingPathsExitNonZero(t *testing.T) {
	testCases := [][]string{
		{"info"},
		{"info", "--input", "/definitely/missing.mp4"},
		{"keyframes", "--input", "/definitely/missing.mp4", "--at", "1.5", "--at", "3"},
		{"organize", "--input", "/definitely/missing"},
		{"duplicates"},
		{"stats", "--dataset-dir", "/definitely/missing"},
	}
	for _, args := range testCases {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			_, err := runApp(t, args...)
			require.Error(t, err)
			assert.Equal(t, 1, exitCode(err))
		})
	}
}

func TestInvalidConfigFileExitCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[frame_extraction]\nfps = -1\n"), 0o644))

	_, err := runApp(t, "--config", path, "diagnose")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestStatsAndLabels(t *testing.T) {
	root := t.TempDir()
	writeVideos(t, root, "run/a.mp4", "run/b.MP4", "jump/c.avi", "jump/notes.txt")

	out, err := runApp(t, "stats", "--dataset-dir", root)
	require.NoError(t, err)
	assert.Contains(t, out, "categories: 2\nvideos: 3\n")
	assert.Contains(t, out, "  run: 2\n")

	out, err = runApp(t, "labels", "--dataset-dir", root)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jump":0,"run":1}`, out)
}

func TestParseJobArgs(t *testing.T) {
	args, err := parseJobArgs([]string{"segment_duration=5", "analysis=false", "method=best"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"segment_duration": 5.0, "analysis": false, "method": "best"}, args)

	_, err = parseJobArgs([]string{"novalue"})
	assert.Error(t, err)
}
