package analysis

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"vidset/internal/batch"
	"vidset/internal/imaging"
	"vidset/internal/keyframe"
	"vidset/internal/media"
	"vidset/log"
	apperrors "vidset/pkg/errors"
)

const DefaultQualitySamples = 10

type QualityReport struct {
	Path          string  `json:"path"`
	FPS           float64 `json:"fps"`
	Resolution    string  `json:"resolution"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	TotalFrames   int     `json:"total_frames"`
	Duration      float64 `json:"duration"`
	Sharpness     float64 `json:"sharpness"`
	Brightness    float64 `json:"brightness"`
	QualityScore  float64 `json:"quality_score"`
	SampledFrames int     `json:"sampled_frames"`
}

// QualityScore combines sharpness and brightness into an uncalibrated heuristic:
// (sharpness/100) * (brightness/255) * 100.
func QualityScore(sharpness, brightness float64) float64 {
	return (sharpness / 100) * (brightness / 255) * 100
}

type QualityKey struct {
	Path    string
	Size    int64
	ModTime time.Time
	Samples int
}

type QualityCache interface {
	GetQuality(ctx context.Context, key QualityKey) (QualityReport, bool, error)
	PutQuality(ctx context.Context, key QualityKey, report QualityReport) error
}

type QualityAnalyzer struct {
	accessor *media.Accessor
	samples  int
	cache    QualityCache
}

// NewQualityAnalyzer accepts a nil cache.
func NewQualityAnalyzer(accessor *media.Accessor, samples int, cache QualityCache) *QualityAnalyzer {
	if samples <= 0 {
		samples = DefaultQualitySamples
	}
	return &QualityAnalyzer{accessor: accessor, samples: samples, cache: cache}
}

// Analyze samples up to the configured number of frames uniformly. It fails with
// VideoUnavailable when the video cannot be opened and DecodeFailed when no sample decodes.
func (q *QualityAnalyzer) Analyze(ctx context.Context, path string) (QualityReport, error) {
	key, keyErr := q.key(path)
	if keyErr == nil && q.cache != nil {
		if report, ok, err := q.cache.GetQuality(ctx, key); err == nil && ok {
			return report, nil
		}
	}

	var report QualityReport
	err := q.accessor.With(ctx, path, func(h *media.Handle) error {
		info := h.Info()
		report = QualityReport{
			Path:        path,
			FPS:         info.FPS,
			Resolution:  info.Resolution(),
			Width:       info.Width,
			Height:      info.Height,
			TotalFrames: info.FrameCount,
			Duration:    info.Duration,
		}

		frames, err := keyframe.Select(ctx, h, keyframe.Options{
			Strategy: keyframe.Uniform,
			Count:    min(q.samples, info.FrameCount),
		})
		if err != nil {
			return err
		}
		if len(frames) == 0 {
			return apperrors.WrapWithDetail(apperrors.CodeDecodeFailed, "没有可解码的帧 no decodable frames", path, media.ErrFrameUnavailable)
		}

		var sharpness, brightness float64
		for _, kf := range frames {
			sharpness += imaging.Sharpness(kf.Frame)
			brightness += imaging.MeanIntensity(kf.Frame)
		}
		n := float64(len(frames))
		report.Sharpness = sharpness / n
		report.Brightness = brightness / n
		report.QualityScore = QualityScore(report.Sharpness, report.Brightness)
		report.SampledFrames = len(frames)
		return nil
	})
	if err != nil {
		return QualityReport{}, err
	}

	if keyErr == nil && q.cache != nil {
		if err = q.cache.PutQuality(ctx, key, report); err != nil {
			log.GetLogger().Warn("quality cache write failed", zap.String("path", path), zap.Error(err))
		}
	}
	return report, nil
}

// AnalyzeBatch analyses every path; failures are kept per item.
func (q *QualityAnalyzer) AnalyzeBatch(ctx context.Context, paths []string, opts batch.Options) []batch.Outcome[QualityReport] {
	if opts.Operation == "" {
		opts.Operation = "quality"
	}
	return batch.Run(ctx, paths, opts, q.Analyze)
}

func (q *QualityAnalyzer) key(path string) (QualityKey, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return QualityKey{}, err
	}
	return QualityKey{Path: path, Size: stat.Size(), ModTime: stat.ModTime().UTC(), Samples: q.samples}, nil
}
