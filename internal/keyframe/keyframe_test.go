package keyframe

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidset/internal/media"
	"vidset/internal/media/mediatest"
	apperrors "vidset/pkg/errors"
)

// levelClip encodes each frame index in the blue channel.
func levelClip(n int) mediatest.Video {
	return mediatest.Clip(25, n, func(i int) media.Frame { return mediatest.Solid(4, 4, uint8(i), 0, 0) })
}

func newSelector(t *testing.T, videos map[string]mediatest.Video) *Selector {
	t.Helper()
	lib := mediatest.NewLibrary()
	for path, v := range videos {
		lib.Add(path, v)
	}
	return NewSelector(media.NewAccessor(lib, time.Second))
}

func TestUniformIndices(t *testing.T) {
	testCases := []struct {
		name  string
		total int
		n     int
		want  []int
	}{
		{name: "endpoints included", total: 100, n: 5, want: []int{0, 25, 50, 74, 99}},
		{name: "single", total: 100, n: 1, want: []int{0}},
		{name: "n equals total", total: 4, n: 4, want: []int{0, 1, 2, 3}},
		{name: "duplicates when n exceeds total", total: 2, n: 4, want: []int{0, 0, 1, 1}},
		{name: "empty video", total: 0, n: 3, want: []int{}},
		{name: "zero count", total: 10, n: 0, want: []int{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, UniformIndices(tc.total, tc.n))
		})
	}
}

func TestRandomIndices(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	got := RandomIndices(rng, 50, 10)
	require.Len(t, got, 10)
	assert.IsIncreasing(t, got)

	again := RandomIndices(rand.New(rand.NewPCG(42, 42)), 50, 10)
	assert.Equal(t, got, again)

	assert.Empty(t, RandomIndices(rng, 5, 6))
}

func TestParseStrategy(t *testing.T) {
	for _, s := range Strategies() {
		parsed, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	parsed, err := ParseStrategy("Scene-Change")
	require.NoError(t, err)
	assert.Equal(t, SceneChange, parsed)

	_, err = ParseStrategy("zigzag")
	assert.True(t, apperrors.Is(err, apperrors.CodeUnknownStrategy))
	assert.Equal(t, "unknown", Strategy(99).String())
}

func TestSelectUniformDeterministicAndOrdered(t *testing.T) {
	sel := newSelector(t, map[string]mediatest.Video{"v.mp4": levelClip(100)})
	ctx := context.Background()

	first, err := sel.Select(ctx, "v.mp4", Options{Strategy: Uniform, Count: 10})
	require.NoError(t, err)
	require.Len(t, first, 10)
	assert.IsNonDecreasing(t, Indices(first))

	second, err := sel.Select(ctx, "v.mp4", Options{Strategy: Uniform, Count: 10})
	require.NoError(t, err)
	assert.Equal(t, Indices(first), Indices(second))

	for _, kf := range first {
		b, _, _ := kf.Frame.BGR(0, 0)
		assert.Equal(t, uint8(kf.Index), b)
	}
}

func TestSelectRandom(t *testing.T) {
	sel := newSelector(t, map[string]mediatest.Video{"v.mp4": levelClip(40)})
	ctx := context.Background()

	_, err := sel.Select(ctx, "v.mp4", Options{Strategy: Random, Count: 5})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidParams), "generator is required")

	got, err := sel.Select(ctx, "v.mp4", Options{Strategy: Random, Count: 5, Rand: rand.New(rand.NewPCG(1, 2))})
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.IsIncreasing(t, Indices(got))

	tooMany, err := sel.Select(ctx, "v.mp4", Options{Strategy: Random, Count: 41, Rand: rand.New(rand.NewPCG(1, 2))})
	require.NoError(t, err)
	assert.Empty(t, tooMany)
}

func TestSelectSceneChange(t *testing.T) {
	// three scenes: 0-9 dark, 10-19 bright, 20-29 dark, 30-39 bright
	clip := mediatest.Clip(25, 40, func(i int) media.Frame {
		if (i/10)%2 == 0 {
			return mediatest.Solid(4, 4, 10, 10, 10)
		}
		return mediatest.Solid(4, 4, 200, 200, 200)
	})
	sel := newSelector(t, map[string]mediatest.Video{"v.mp4": clip})
	ctx := context.Background()

	got, err := sel.Select(ctx, "v.mp4", Options{Strategy: SceneChange, Count: 10})
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 30}, Indices(got))

	capped, err := sel.Select(ctx, "v.mp4", Options{Strategy: SceneChange, Count: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20}, Indices(capped))

	none, err := sel.Select(ctx, "v.mp4", Options{Strategy: SceneChange, Count: 5, Threshold: 250})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSceneChangeComparesRawChannels(t *testing.T) {
	// only blue moves by 90: the BGR mean difference is 30, a luma difference would be ~10
	clip := mediatest.Clip(25, 6, func(i int) media.Frame {
		if i >= 3 {
			return mediatest.Solid(4, 4, 90, 0, 0)
		}
		return mediatest.Solid(4, 4, 0, 0, 0)
	})
	sel := newSelector(t, map[string]mediatest.Video{"v.mp4": clip})

	got, err := sel.Select(context.Background(), "v.mp4", Options{Strategy: SceneChange, Count: 5, Threshold: 25})
	require.NoError(t, err)
	assert.Equal(t, []int{3}, Indices(got), "frame 0 has no predecessor and is never emitted")
}

func TestSelectBestSharpness(t *testing.T) {
	// frame 3 and frame 17 are sharp, the rest are flat
	clip := mediatest.Clip(25, 20, func(i int) media.Frame {
		if i == 3 || i == 17 {
			return mediatest.Checkerboard(8, 8, 1)
		}
		return mediatest.Solid(8, 8, uint8(i), uint8(i), uint8(i))
	})
	sel := newSelector(t, map[string]mediatest.Video{"v.mp4": clip})

	got, err := sel.Select(context.Background(), "v.mp4", Options{Strategy: BestSharpness, Count: 2, Candidates: 10})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 17}, Indices(got))
}

func TestSelectUnavailableVideo(t *testing.T) {
	sel := newSelector(t, nil)
	for _, s := range Strategies() {
		got, err := sel.Select(context.Background(), "missing.mp4", Options{Strategy: s, Count: 3, Rand: rand.New(rand.NewPCG(1, 1))})
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestSelectUnknownStrategy(t *testing.T) {
	sel := newSelector(t, map[string]mediatest.Video{"v.mp4": levelClip(10)})
	_, err := sel.Select(context.Background(), "v.mp4", Options{Strategy: Strategy(42), Count: 3})
	assert.True(t, apperrors.Is(err, apperrors.CodeUnknownStrategy))
}

func TestSelectSkipsBrokenFrames(t *testing.T) {
	clip := levelClip(10)
	clip.Broken = map[int]bool{0: true}
	sel := newSelector(t, map[string]mediatest.Video{"v.mp4": clip})

	got, err := sel.Select(context.Background(), "v.mp4", Options{Strategy: Uniform, Count: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{9}, Indices(got))
}
