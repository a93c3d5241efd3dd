package media_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidset/internal/media"
	"vidset/internal/media/mediatest"
	apperrors "vidset/pkg/errors"
)

func newAccessor(t *testing.T) (*media.Accessor, *mediatest.Library) {
	t.Helper()
	lib := mediatest.NewLibrary()
	clip := mediatest.Clip(10, 30, func(i int) media.Frame { return mediatest.Solid(4, 4, uint8(i), 0, 0) })
	clip.Broken = map[int]bool{5: true}
	lib.Add("clip.mp4", clip)
	return media.NewAccessor(lib, time.Second), lib
}

func TestAccessorOpenMissing(t *testing.T) {
	acc, _ := newAccessor(t)

	_, err := acc.Open(context.Background(), "missing.mp4")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeVideoUnavailable))
	assert.Equal(t, "missing.mp4", apperrors.GetDetail(err))
}

func TestHandleReadFrame(t *testing.T) {
	acc, _ := newAccessor(t)
	ctx := context.Background()

	h, err := acc.Open(ctx, "clip.mp4")
	require.NoError(t, err)
	defer h.Close()

	info := h.Info()
	assert.Equal(t, 30, info.FrameCount)
	assert.Equal(t, 3.0, info.Duration)

	frame, ok := h.ReadFrame(ctx, 7)
	require.True(t, ok)
	b, _, _ := frame.BGR(0, 0)
	assert.Equal(t, uint8(7), b)

	_, ok = h.ReadFrame(ctx, 30)
	assert.False(t, ok, "index == frame_count")
	_, ok = h.ReadFrame(ctx, -1)
	assert.False(t, ok)
	_, ok = h.ReadFrame(ctx, 5)
	assert.False(t, ok, "broken frame")
}

func TestHandleReadFramesAtTimestamps(t *testing.T) {
	acc, _ := newAccessor(t)
	ctx := context.Background()

	h, err := acc.Open(ctx, "clip.mp4")
	require.NoError(t, err)
	defer h.Close()

	// 0.55s -> frame 5 is broken and skipped, 9s is past the end
	frames := h.ReadFramesAtTimestamps(ctx, []float64{2.0, 0.55, 0.19, 9})
	require.Len(t, frames, 2)
	b0, _, _ := frames[0].BGR(0, 0)
	b1, _, _ := frames[1].BGR(0, 0)
	assert.Equal(t, []uint8{20, 1}, []uint8{b0, b1})
}

func TestHandleReadFramesAtTimestampsUnknownRate(t *testing.T) {
	lib := mediatest.NewLibrary()
	lib.Add("norate.mp4", mediatest.Still(0, 10, 2, 2, 50))
	acc := media.NewAccessor(lib, 0)

	err := acc.With(context.Background(), "norate.mp4", func(h *media.Handle) error {
		assert.Empty(t, h.ReadFramesAtTimestamps(context.Background(), []float64{0, 0.5}))
		return nil
	})
	require.NoError(t, err)
}

func TestHandleCloseReleasesStreams(t *testing.T) {
	acc, lib := newAccessor(t)
	ctx := context.Background()

	h, err := acc.Open(ctx, "clip.mp4")
	require.NoError(t, err)

	s1, err := h.Stream(ctx, 0)
	require.NoError(t, err)
	_, err = h.Stream(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, lib.OpenStreams())

	require.NoError(t, s1.Close())
	require.NoError(t, s1.Close())
	assert.Equal(t, 1, lib.OpenStreams())

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	assert.Equal(t, 0, lib.OpenStreams())

	_, ok := h.ReadFrame(ctx, 0)
	assert.False(t, ok, "closed handle")
	_, err = h.Stream(ctx, 0)
	assert.True(t, apperrors.Is(err, apperrors.CodeVideoUnavailable))
}

func TestHandleStreamOrder(t *testing.T) {
	acc, _ := newAccessor(t)
	ctx := context.Background()

	err := acc.With(ctx, "clip.mp4", func(h *media.Handle) error {
		s, err := h.Stream(ctx, 27)
		if err != nil {
			return err
		}
		var got []uint8
		for {
			f, err := s.Next()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			b, _, _ := f.BGR(0, 0)
			got = append(got, b)
		}
		assert.Equal(t, []uint8{27, 28, 29}, got)
		return nil
	})
	require.NoError(t, err)
}

func TestAccessorWithReleasesOnError(t *testing.T) {
	acc, lib := newAccessor(t)
	ctx := context.Background()

	err := acc.With(ctx, "clip.mp4", func(h *media.Handle) error {
		if _, err := h.Stream(ctx, 0); err != nil {
			return err
		}
		return apperrors.ErrDecodeFailed
	})
	assert.ErrorIs(t, err, apperrors.ErrDecodeFailed)
	assert.Equal(t, 0, lib.OpenStreams())
}

func TestAccessorInfo(t *testing.T) {
	acc, _ := newAccessor(t)
	info, err := acc.Info(context.Background(), "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, 10.0, info.FPS)
	assert.Equal(t, 4, info.Width)
}
