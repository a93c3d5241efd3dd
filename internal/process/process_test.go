package process

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidset/internal/batch"
	"vidset/internal/media"
	"vidset/internal/media/mediatest"
	apperrors "vidset/pkg/errors"
)

type recordingTranscoder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recordingTranscoder) Transcode(_ context.Context, args []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, args)
	return nil
}

func newProcessor(lib *mediatest.Library) (*Processor, *recordingTranscoder) {
	tr := &recordingTranscoder{}
	return NewProcessor(media.NewAccessor(lib, time.Second), tr), tr
}

func TestValidate(t *testing.T) {
	lib := mediatest.NewLibrary()
	lib.Add("/short.mp4", mediatest.Still(10, 50, 4, 4, 1))
	lib.Add("/long.mp4", mediatest.Still(10, 500, 4, 4, 1))
	p, _ := newProcessor(lib)

	testCases := []struct {
		path    string
		max     float64
		valid   bool
		message string
	}{
		{"/short.mp4", 10, true, "Valid"},
		{"/long.mp4", 10, false, "Video duration 50.00s exceeds max 10s"},
		{"/long.mp4", 0, true, "Valid"},
		{"/missing.mp4", 10, false, "Could not open video"},
	}
	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			v := p.Validate(context.Background(), tc.path, tc.max)
			assert.Equal(t, tc.valid, v.Valid)
			assert.Equal(t, tc.message, v.Message)
		})
	}
}

func TestArgs(t *testing.T) {
	resize := strings.Join(ResizeArgs("in.mov", "out.mp4", 224, 160, 0), " ")
	assert.Contains(t, resize, "scale=224:160")
	assert.Contains(t, resize, "-r 30")
	assert.Contains(t, resize, "-c:v mpeg4")
	assert.Contains(t, resize, "out.mp4")
	assert.Contains(t, resize, "-y")

	convert := ConvertArgs("in.mov", "out.mp4")
	assert.Subset(t, convert, []string{"-i", "in.mov", "-c:v", "libx264", "-c:a", "aac", "out.mp4", "-y"})
}

func TestProcess(t *testing.T) {
	lib := mediatest.NewLibrary()
	lib.Add("/in.mp4", mediatest.Still(25, 25, 4, 4, 1))
	lib.Add("/long.mp4", mediatest.Still(25, 2500, 4, 4, 1))
	p, tr := newProcessor(lib)
	out := filepath.Join(t.TempDir(), "nested", "out.mp4")

	require.NoError(t, p.Process(context.Background(), "/in.mp4", out, Options{Mode: ModeResize, Width: 8, Height: 8}))
	require.Len(t, tr.calls, 1)
	assert.Contains(t, strings.Join(tr.calls[0], " "), "-r 25")
	assert.DirExists(t, filepath.Dir(out))

	require.NoError(t, p.Process(context.Background(), "/in.mp4", out, Options{Mode: ModeConvert}))
	assert.Contains(t, tr.calls[1], "libx264")

	err := p.Process(context.Background(), "/in.mp4", out, Options{Mode: ModeResize})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidParams))

	err = p.Process(context.Background(), "/long.mp4", out, Options{MaxDuration: 60})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidParams))

	err = p.Process(context.Background(), "/missing.mp4", out, Options{})
	assert.True(t, apperrors.Is(err, apperrors.CodeVideoUnavailable))
}

func TestProcessDirectory(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()
	lib := mediatest.NewLibrary()
	for _, rel := range []string{"a/one.MOV", "a/b/two.mp4", "bad.mp4"} {
		path := filepath.Join(input, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(rel), 0o644))
		if rel != "bad.mp4" {
			lib.Add(path, mediatest.Still(25, 25, 4, 4, 1))
		}
	}
	p, tr := newProcessor(lib)

	outcomes, err := p.ProcessDirectory(context.Background(), input, output, []string{"mp4", "mov"},
		Options{Mode: ModeCopy}, batch.Options{Workers: 2})
	assert.True(t, apperrors.Is(err, apperrors.CodePartialBatchFailure))
	require.Len(t, outcomes, 3)
	assert.Empty(t, tr.calls)

	copied, err := os.ReadFile(filepath.Join(output, "a", "one.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "a/one.MOV", string(copied))
	assert.FileExists(t, filepath.Join(output, "a", "b", "two.mp4"))
	assert.NoFileExists(t, filepath.Join(output, "bad.mp4"))
}

func TestOutputPath(t *testing.T) {
	got, err := OutputPath("/data/in", "/data/out", "/data/in/cat/clip.avi")
	require.NoError(t, err)
	assert.Equal(t, "/data/out/cat/clip.mp4", got)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Convert")
	require.NoError(t, err)
	assert.Equal(t, ModeConvert, m)
	assert.Equal(t, "convert", m.String())
	_, err = ParseMode("shrink")
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidParams))
}
