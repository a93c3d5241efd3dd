// Package keyframe picks representative frames from a video.
package keyframe

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"vidset/internal/imaging"
	"vidset/internal/media"
	"vidset/log"
	apperrors "vidset/pkg/errors"
)

const (
	DefaultSceneThreshold = 30.0
	DefaultCandidates     = 10
)

type Options struct {
	Strategy Strategy
	Count    int
	// Threshold is the mean absolute frame difference that marks a scene change.
	Threshold float64
	// Candidates is how many uniformly spaced candidates BestSharpness inspects per key frame.
	Candidates int
	// Rand drives the Random strategy and must be set for it.
	Rand *rand.Rand
}

type KeyFrame struct {
	Index int
	Frame media.Frame
}

type selectFunc func(ctx context.Context, h *media.Handle, opts Options) []KeyFrame

var dispatch = map[Strategy]selectFunc{
	Uniform:       selectUniform,
	Random:        selectRandom,
	SceneChange:   selectSceneChange,
	BestSharpness: selectBestSharpness,
}

// Select runs a strategy on an open handle. Short or empty results are not errors;
// only an unknown strategy or a Random request without a generator is rejected.
func Select(ctx context.Context, h *media.Handle, opts Options) ([]KeyFrame, error) {
	fn, ok := dispatch[opts.Strategy]
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeUnknownStrategy, "未知的关键帧策略 unknown key-frame strategy %d", int(opts.Strategy))
	}
	if opts.Strategy == Random && opts.Rand == nil {
		return nil, apperrors.New(apperrors.CodeInvalidParams, "随机策略需要随机数生成器 random strategy needs a generator")
	}
	if opts.Count <= 0 {
		return []KeyFrame{}, nil
	}
	return fn(ctx, h, opts), nil
}

// Selector opens the video itself and returns no frames when it cannot be opened.
type Selector struct {
	accessor *media.Accessor
}

func NewSelector(accessor *media.Accessor) *Selector {
	return &Selector{accessor: accessor}
}

func (s *Selector) Select(ctx context.Context, path string, opts Options) ([]KeyFrame, error) {
	var frames []KeyFrame
	err := s.accessor.With(ctx, path, func(h *media.Handle) error {
		var err error
		frames, err = Select(ctx, h, opts)
		return err
	})
	if apperrors.Is(err, apperrors.CodeVideoUnavailable) {
		log.GetLogger().Warn("key frames: video unavailable", zap.String("path", path), zap.Error(err))
		return []KeyFrame{}, nil
	}
	if err != nil {
		return nil, err
	}
	log.GetLogger().Debug("key frames selected", zap.String("path", path),
		zap.Stringer("strategy", opts.Strategy), zap.Int("count", len(frames)))
	return frames, nil
}

func Frames(kfs []KeyFrame) []media.Frame {
	return lo.Map(kfs, func(k KeyFrame, _ int) media.Frame { return k.Frame })
}

func Indices(kfs []KeyFrame) []int {
	return lo.Map(kfs, func(k KeyFrame, _ int) int { return k.Index })
}

// UniformIndices spreads n indices over [0, total-1], rounding to the nearest frame.
// Indices repeat when n exceeds total.
func UniformIndices(total, n int) []int {
	if total <= 0 || n <= 0 {
		return []int{}
	}
	if n == 1 {
		return []int{0}
	}
	indices := make([]int, n)
	step := float64(total-1) / float64(n-1)
	for i := range indices {
		indices[i] = int(math.Round(float64(i) * step))
	}
	return indices
}

// RandomIndices draws n distinct indices in ascending order; empty when n > total.
func RandomIndices(rng *rand.Rand, total, n int) []int {
	if n <= 0 || n > total {
		return []int{}
	}
	indices := rng.Perm(total)[:n]
	slices.Sort(indices)
	return indices
}

func readIndices(ctx context.Context, h *media.Handle, indices []int) []KeyFrame {
	frames := make([]KeyFrame, 0, len(indices))
	for _, idx := range indices {
		if ctx.Err() != nil {
			break
		}
		if frame, ok := h.ReadFrame(ctx, idx); ok {
			frames = append(frames, KeyFrame{Index: idx, Frame: frame})
		}
	}
	return frames
}

func selectUniform(ctx context.Context, h *media.Handle, opts Options) []KeyFrame {
	return readIndices(ctx, h, UniformIndices(h.Info().FrameCount, opts.Count))
}

func selectRandom(ctx context.Context, h *media.Handle, opts Options) []KeyFrame {
	return readIndices(ctx, h, RandomIndices(opts.Rand, h.Info().FrameCount, opts.Count))
}

func selectSceneChange(ctx context.Context, h *media.Handle, opts Options) []KeyFrame {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultSceneThreshold
	}
	total := h.Info().FrameCount

	stream, err := h.Stream(ctx, 0)
	if err != nil {
		log.GetLogger().Warn("scene change: stream failed", zap.String("path", h.Path()), zap.Error(err))
		return []KeyFrame{}
	}
	defer stream.Close()

	frames := make([]KeyFrame, 0, opts.Count)
	var prev media.Frame
	for idx := 0; len(frames) < opts.Count && (total <= 0 || idx < total); idx++ {
		frame, err := stream.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.GetLogger().Warn("scene change: decode stopped", zap.String("path", h.Path()), zap.Int("index", idx), zap.Error(err))
			}
			break
		}
		if idx > 0 && imaging.MeanAbsDiff(frame, prev) > threshold {
			frames = append(frames, KeyFrame{Index: idx, Frame: frame})
		}
		prev = frame
	}
	return frames
}

// selectBestSharpness splits a uniform candidate set into Count consecutive groups
// and keeps the sharpest frame of each.
func selectBestSharpness(ctx context.Context, h *media.Handle, opts Options) []KeyFrame {
	perFrame := opts.Candidates
	if perFrame <= 0 {
		perFrame = DefaultCandidates
	}
	total := h.Info().FrameCount
	candidates := readIndices(ctx, h, UniformIndices(total, min(total, opts.Count*perFrame)))
	if len(candidates) == 0 {
		return []KeyFrame{}
	}

	scores := lo.Map(candidates, func(k KeyFrame, _ int) float64 { return imaging.Sharpness(k.Frame) })

	groups := min(opts.Count, len(candidates))
	best := make([]KeyFrame, 0, groups)
	for g := 0; g < groups; g++ {
		start, end := g*len(candidates)/groups, (g+1)*len(candidates)/groups
		pick := start
		for i := start + 1; i < end; i++ {
			if scores[i] > scores[pick] {
				pick = i
			}
		}
		best = append(best, candidates[pick])
	}
	return best
}
