package extract

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidset/internal/batch"
	"vidset/internal/media"
	"vidset/internal/media/mediatest"
	apperrors "vidset/pkg/errors"
)

// levels encodes each frame index in the blue channel as 10*(i+1).
func levels(fps float64, n, w, h int) mediatest.Video {
	return mediatest.Clip(fps, n, func(i int) media.Frame { return mediatest.Solid(w, h, uint8(10*(i+1)), 0, 0) })
}

func newExtractor(lib *mediatest.Library) *Extractor {
	return NewExtractor(media.NewAccessor(lib, time.Second), lib)
}

func readPNG(t *testing.T, path string) media.Frame {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return media.FromImage(img)
}

func blue(f media.Frame, x, y int) uint8 {
	b, _, _ := f.BGR(x, y)
	return b
}

func TestFrameInterval(t *testing.T) {
	testCases := []struct {
		name     string
		videoFPS float64
		fps      float64
		want     int
	}{
		{name: "one per second", videoFPS: 30, fps: 1, want: 30},
		{name: "ntsc truncates", videoFPS: 29.97, fps: 1, want: 29},
		{name: "faster than source", videoFPS: 25, fps: 60, want: 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FrameInterval(tc.videoFPS, tc.fps)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := FrameInterval(30, 0)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidParams))
	_, err = FrameInterval(0, 1)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidParams))
}

func TestFrameName(t *testing.T) {
	assert.Equal(t, "clip_frame_000012.png", FrameName("clip", 12, "png"))
}

func TestFrames(t *testing.T) {
	lib := mediatest.NewLibrary()
	lib.Add("/videos/clip.mp4", levels(10, 10, 4, 4))
	out := t.TempDir()

	saved, err := newExtractor(lib).Frames(context.Background(), "/videos/clip.mp4", out, FrameOptions{FPS: 5, Format: "png"})
	require.NoError(t, err)

	require.Len(t, saved, 5)
	assert.Equal(t, filepath.Join(out, "clip_frame_000000.png"), saved[0])
	assert.Equal(t, filepath.Join(out, "clip_frame_000004.png"), saved[4])
	// every second frame: source frames 0, 2, 4, 6, 8
	assert.Equal(t, uint8(10), blue(readPNG(t, saved[0]), 0, 0))
	assert.Equal(t, uint8(50), blue(readPNG(t, saved[2]), 1, 1))
	assert.Zero(t, lib.OpenStreams())
}

func TestFramesErrors(t *testing.T) {
	lib := mediatest.NewLibrary()
	lib.Add("/videos/clip.mp4", levels(10, 3, 4, 4))
	e := newExtractor(lib)

	_, err := e.Frames(context.Background(), "/videos/missing.mp4", t.TempDir(), FrameOptions{FPS: 1})
	assert.True(t, apperrors.Is(err, apperrors.CodeVideoUnavailable))

	_, err = e.Frames(context.Background(), "/videos/clip.mp4", t.TempDir(), FrameOptions{FPS: 1, Format: "gif"})
	assert.True(t, apperrors.Is(err, apperrors.CodeUnsupportedFormat))

	_, err = e.Frames(context.Background(), "/videos/clip.mp4", t.TempDir(), FrameOptions{FPS: 0})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidParams))
}

func TestFramesDirectory(t *testing.T) {
	input := t.TempDir()
	out := t.TempDir()
	lib := mediatest.NewLibrary()
	for _, rel := range []string{"cats/a.mp4", "dogs/b.mp4", "dogs/broken.mp4"} {
		p := filepath.Join(input, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o644))
		if rel != "dogs/broken.mp4" {
			lib.Add(p, levels(2, 4, 4, 4))
		}
	}

	var progress []int
	outcomes, err := newExtractor(lib).FramesDirectory(context.Background(), input, out, []string{"mp4"},
		FrameOptions{FPS: 1, Format: "jpg"}, batch.Options{Workers: 1, OnProgress: func(done, _ int) { progress = append(progress, done) }})

	assert.True(t, apperrors.Is(err, apperrors.CodePartialBatchFailure))
	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].OK())
	assert.Len(t, outcomes[0].Value, 2)
	assert.FileExists(t, filepath.Join(out, "cats", "a", "a_frame_000000.jpg"))
	assert.FileExists(t, filepath.Join(out, "dogs", "b", "b_frame_000001.jpg"))
	assert.False(t, outcomes[2].OK())
	assert.Equal(t, []int{1, 2, 3}, progress)

	_, err = newExtractor(lib).FramesDirectory(context.Background(), t.TempDir(), out, []string{"mp4"}, FrameOptions{FPS: 1}, batch.Options{})
	assert.True(t, apperrors.Is(err, apperrors.CodeNoVideos))
}

func TestThumbnail(t *testing.T) {
	clip := levels(25, 9, 8, 8)
	clip.Frames[5] = mediatest.Checkerboard(8, 8, 1)
	lib := mediatest.NewLibrary()
	lib.Add("/v.mp4", clip)
	e := newExtractor(lib)
	dir := t.TempDir()

	testCases := []struct {
		method ThumbnailMethod
		check  func(t *testing.T, f media.Frame)
	}{
		{ThumbnailMiddle, func(t *testing.T, f media.Frame) { assert.Equal(t, uint8(50), blue(f, 0, 0)) }},
		{ThumbnailFirst, func(t *testing.T, f media.Frame) { assert.Equal(t, uint8(10), blue(f, 0, 0)) }},
		{ThumbnailBest, func(t *testing.T, f media.Frame) {
			assert.NotEqual(t, blue(f, 0, 0), blue(f, 1, 0), "sharpest frame is the checkerboard")
		}},
	}
	for _, tc := range testCases {
		out := filepath.Join(dir, "thumb", "v.png")
		require.NoError(t, e.Thumbnail(context.Background(), "/v.mp4", out, tc.method))
		tc.check(t, readPNG(t, out))
	}

	err := e.Thumbnail(context.Background(), "/v.mp4", filepath.Join(dir, "v.bmp"), ThumbnailFirst)
	assert.True(t, apperrors.Is(err, apperrors.CodeUnsupportedFormat))
}

func TestParseThumbnailMethod(t *testing.T) {
	m, err := ParseThumbnailMethod("Best")
	require.NoError(t, err)
	assert.Equal(t, ThumbnailBest, m)
	m, err = ParseThumbnailMethod("")
	require.NoError(t, err)
	assert.Equal(t, ThumbnailMiddle, m)
	_, err = ParseThumbnailMethod("random")
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidParams))
}

func TestSummary(t *testing.T) {
	lib := mediatest.NewLibrary()
	lib.Add("/v.mp4", levels(24, 100, 4, 4))
	lib.Add("/still.mp4", mediatest.Still(0, 5, 4, 4, 9))
	e := newExtractor(lib)

	require.NoError(t, e.Summary(context.Background(), "/v.mp4", "/out/summary.mp4", 4))
	summary, ok := lib.Video("/out/summary.mp4")
	require.True(t, ok)
	assert.Len(t, summary.Frames, 4)
	assert.Equal(t, 24.0, summary.FPS)
	assert.Equal(t, uint8(10), blue(summary.Frames[0], 0, 0))

	err := e.Summary(context.Background(), "/still.mp4", "/out/still.mp4", 4)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidParams))
}

func TestMontage(t *testing.T) {
	lib := mediatest.NewLibrary()
	lib.Add("/a.mp4", levels(2, 5, 4, 2))
	lib.Add("/b.mp4", levels(30, 50, 2, 2))
	e := newExtractor(lib)

	err := e.Montage(context.Background(), []string{"/a.mp4", "/missing.mp4", "/b.mp4", "/extra.mp4"}, "/grid.mp4",
		MontageOptions{Rows: 1, Cols: 3, FrameDuration: 1})
	require.NoError(t, err)

	grid, ok := lib.Video("/grid.mp4")
	require.True(t, ok)
	require.Len(t, grid.Frames, 20)
	assert.Equal(t, 12, grid.Frames[0].Width)
	assert.Equal(t, 2, grid.Frames[0].Height)
	assert.Equal(t, uint8(50), blue(grid.Frames[4], 0, 0))
	assert.Equal(t, uint8(10), blue(grid.Frames[5], 0, 0), "exhausted tile restarts")
	assert.Equal(t, uint8(0), blue(grid.Frames[0], 8, 0), "unused cell stays black")
	assert.Zero(t, lib.OpenStreams())
}

func TestMontageErrors(t *testing.T) {
	e := newExtractor(mediatest.NewLibrary())

	err := e.Montage(context.Background(), []string{"/missing.mp4"}, "/grid.mp4", MontageOptions{Rows: 2, Cols: 2})
	assert.True(t, apperrors.Is(err, apperrors.CodeNoVideos))

	err = e.Montage(context.Background(), nil, "/grid.mp4", MontageOptions{Rows: 0, Cols: 2})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidParams))
}
