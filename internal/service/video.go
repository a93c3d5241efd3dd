package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"vidset/internal/analysis"
	"vidset/internal/batch"
	"vidset/internal/dataset"
	"vidset/internal/extract"
	"vidset/internal/fingerprint"
	"vidset/internal/imaging"
	"vidset/internal/keyframe"
	"vidset/internal/media"
	"vidset/internal/metrics"
	"vidset/internal/process"
	"vidset/log"
	apperrors "vidset/pkg/errors"
	"vidset/pkg/util"
)

// Progress reports finished items of a batch; it may be called from several goroutines.
type Progress func(done, total int)

func (s *Service) batchOptions(operation string, progress Progress) batch.Options {
	return batch.Options{Workers: s.Config.App.Workers, OnProgress: progress, Operation: operation}
}

// collectVideos expands directories into the videos they contain and keeps plain files as given.
func (s *Service) collectVideos(inputs []string) ([]string, error) {
	var videos []string
	for _, input := range inputs {
		if util.DirExists(input) {
			found, err := dataset.FindVideos(input, s.Config.Video.Formats)
			if err != nil {
				return nil, err
			}
			videos = append(videos, found...)
			continue
		}
		abs, err := filepath.Abs(input)
		if err != nil {
			return nil, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "参数错误 Invalid path", input, err)
		}
		videos = append(videos, abs)
	}
	videos = lo.Uniq(videos)
	if len(videos) == 0 {
		return nil, apperrors.WrapWithDetail(apperrors.CodeNoVideos, "未找到视频 No videos found", strings.Join(inputs, ", "), nil)
	}
	return videos, nil
}

func (s *Service) VideoInfo(ctx context.Context, path string) (info media.VideoInfo, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("info", start, err) }(time.Now())
	return s.Accessor.Info(ctx, path)
}

type KeyFramesRequest struct {
	Path     string
	Strategy string
	Count    int
	// OutDir, when set, receives one image per key frame.
	OutDir string
	Format string
	// Augment names an imaging augmentation applied before saving.
	Augment string
}

type KeyFrameFile struct {
	Index int    `json:"index"`
	Path  string `json:"path,omitempty"`
}

// KeyFrameName carries the selection ordinal so repeated indices get distinct files.
func KeyFrameName(stem string, ordinal, index int, ext string) string {
	return fmt.Sprintf("%s_keyframe_%03d_frame_%06d.%s", stem, ordinal, index, ext)
}

func TimestampFrameName(stem string, ordinal int, ext string) string {
	return fmt.Sprintf("%s_at_%03d.%s", stem, ordinal, ext)
}

func (s *Service) KeyFrames(ctx context.Context, req KeyFramesRequest) (files []KeyFrameFile, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("keyframes", start, err) }(time.Now())

	strategy, err := keyframe.ParseStrategy(req.Strategy)
	if err != nil {
		return nil, err
	}
	var augmentation imaging.Augmentation
	augment := req.Augment != ""
	if augment {
		var ok bool
		if augmentation, ok = imaging.ParseAugmentation(strings.ToLower(req.Augment)); !ok {
			return nil, apperrors.Newf(apperrors.CodeInvalidParams, "未知的增强方式 unknown augmentation %q", req.Augment)
		}
	}
	ext, err := media.ImageExt(lo.Ternary(req.Format == "", s.Config.FrameExtraction.Format, req.Format))
	if err != nil {
		return nil, err
	}

	rng := dataset.NewRand(s.Config.Dataset.Seed)
	kfs, err := s.Selector.Select(ctx, req.Path, keyframe.Options{
		Strategy:  strategy,
		Count:     req.Count,
		Threshold: s.Config.Analysis.SceneThreshold,
		Rand:      rng,
	})
	if err != nil {
		return nil, err
	}

	augmenter := imaging.NewAugmenter(rng)
	stem := strings.TrimSuffix(filepath.Base(req.Path), filepath.Ext(req.Path))
	files = make([]KeyFrameFile, 0, len(kfs))
	for i, kf := range kfs {
		file := KeyFrameFile{Index: kf.Index}
		if req.OutDir != "" {
			frame := kf.Frame
			if augment {
				frame = augmenter.Apply(frame, augmentation)
			}
			file.Path = filepath.Join(req.OutDir, KeyFrameName(stem, i, kf.Index, ext))
			if err = media.SaveImage(file.Path, frame, ext, s.Config.FrameExtraction.Quality); err != nil {
				return files, err
			}
		}
		files = append(files, file)
	}
	log.GetLogger().Info("key frames selected", zap.String("path", req.Path),
		zap.String("strategy", strategy.String()), zap.Int("count", len(files)))
	return files, nil
}

// FramesAt saves the frames shown at the given timestamps (seconds) into outDir,
// in timestamp order. Timestamps that cannot be decoded are skipped.
func (s *Service) FramesAt(ctx context.Context, path string, timestamps []float64, outDir, format string) (files []string, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("frames_at", start, err) }(time.Now())

	if outDir == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParams, "需要输出目录 output directory required")
	}
	ext, err := media.ImageExt(lo.Ternary(format == "", s.Config.FrameExtraction.Format, format))
	if err != nil {
		return nil, err
	}
	var frames []media.Frame
	if err = s.Accessor.With(ctx, path, func(h *media.Handle) error {
		frames = h.ReadFramesAtTimestamps(ctx, timestamps)
		return nil
	}); err != nil {
		return nil, err
	}
	if err = os.MkdirAll(outDir, 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeFileWriteError, "创建输出目录失败 create output dir", err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	files = make([]string, 0, len(frames))
	for i, frame := range frames {
		out := filepath.Join(outDir, TimestampFrameName(stem, i, ext))
		if err = media.SaveImage(out, frame, ext, s.Config.FrameExtraction.Quality); err != nil {
			return files, err
		}
		files = append(files, out)
	}
	if len(files) < len(timestamps) {
		log.GetLogger().Warn("some timestamps could not be read", zap.String("path", path),
			zap.Int("requested", len(timestamps)), zap.Int("saved", len(files)))
	}
	return files, nil
}

// Fingerprint fails with VideoUnavailable when no sampled frame could be hashed.
func (s *Service) Fingerprint(ctx context.Context, path string) (fp string, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("fingerprint", start, err) }(time.Now())
	fp = s.Hasher.Fingerprint(ctx, path)
	if fp == "" {
		return "", apperrors.WrapWithDetail(apperrors.CodeVideoUnavailable, "无法计算视频指纹 fingerprint unavailable", path, nil)
	}
	return fp, nil
}

func (s *Service) Similarity(a, b string) float64 {
	return fingerprint.Similarity(a, b)
}

type DuplicateReport struct {
	Threshold   float64             `json:"threshold"`
	Method      string              `json:"method"`
	TotalVideos int                 `json:"total_videos"`
	Duplicates  map[string][]string `json:"duplicates"`
}

// Duplicates compares every video found in inputs; threshold 0 uses the configured one.
func (s *Service) Duplicates(ctx context.Context, inputs []string, threshold float64, progress Progress) (report DuplicateReport, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("duplicates", start, err) }(time.Now())

	if threshold == 0 {
		threshold = s.Config.Analysis.DuplicateThreshold
	}
	videos, err := s.collectVideos(inputs)
	if err != nil {
		return DuplicateReport{}, err
	}
	dups, err := s.Detector.DetectDuplicates(ctx, videos, threshold, progress)
	if err != nil {
		return DuplicateReport{}, err
	}
	return DuplicateReport{
		Threshold:   threshold,
		Method:      s.Hasher.Method().String(),
		TotalVideos: len(videos),
		Duplicates:  dups,
	}, nil
}

// QualityReports analyses every video found in inputs. The returned error is a
// PartialBatchFailure when some videos could not be analysed; the outcomes are complete either way.
func (s *Service) QualityReports(ctx context.Context, inputs []string, progress Progress) (outcomes []batch.Outcome[analysis.QualityReport], err error) {
	defer func(start time.Time) { metrics.ObserveOperation("quality", start, err) }(time.Now())

	videos, err := s.collectVideos(inputs)
	if err != nil {
		return nil, err
	}
	outcomes = s.Quality.AnalyzeBatch(ctx, videos, s.batchOptions("quality", progress))
	failed := len(batch.Failed(outcomes))
	metrics.ObserveVideos("quality", len(outcomes)-failed, failed)
	return outcomes, batch.Err(outcomes)
}

func (s *Service) Balance(root string) (analysis.BalanceReport, error) {
	byCategory, err := dataset.VideosByCategory(root, s.Config.Video.Formats)
	if err != nil {
		return analysis.BalanceReport{}, err
	}
	return analysis.AnalyzeDatasetBalance(dataset.CategoryCounts(byCategory)), nil
}

func (s *Service) Segment(ctx context.Context, path, outDir string, segmentDuration, overlap float64) (files []string, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("segment", start, err) }(time.Now())
	return s.Splitter.Split(ctx, path, outDir, segmentDuration, overlap)
}

func (s *Service) Thumbnail(ctx context.Context, path, outPath, method string) (err error) {
	defer func(start time.Time) { metrics.ObserveOperation("thumbnail", start, err) }(time.Now())
	m, err := extract.ParseThumbnailMethod(method)
	if err != nil {
		return err
	}
	return s.Extractor.Thumbnail(ctx, path, outPath, m)
}

func (s *Service) Summary(ctx context.Context, path, outPath string, numFrames int) (err error) {
	defer func(start time.Time) { metrics.ObserveOperation("summary", start, err) }(time.Now())
	return s.Extractor.Summary(ctx, path, outPath, numFrames)
}

func (s *Service) Montage(ctx context.Context, inputs []string, outPath string, opts extract.MontageOptions) (err error) {
	defer func(start time.Time) { metrics.ObserveOperation("montage", start, err) }(time.Now())
	videos, err := s.collectVideos(inputs)
	if err != nil {
		return err
	}
	return s.Extractor.Montage(ctx, videos, outPath, opts)
}

func (s *Service) frameOptions(fps float64, format string) extract.FrameOptions {
	return extract.FrameOptions{
		FPS:     lo.Ternary(fps > 0, fps, s.Config.FrameExtraction.Fps),
		Format:  lo.Ternary(format != "", format, s.Config.FrameExtraction.Format),
		Quality: s.Config.FrameExtraction.Quality,
	}
}

// ExtractFrames handles a single video or, for a directory, every video below it.
// It returns the number of images written.
func (s *Service) ExtractFrames(ctx context.Context, input, outDir string, fps float64, format string, progress Progress) (written int, err error) {
	defer func(start time.Time) {
		metrics.ObserveOperation("extract_frames", start, err)
		metrics.FramesExtractedTotal.Add(float64(written))
	}(time.Now())

	opts := s.frameOptions(fps, format)
	if !util.DirExists(input) {
		files, err := s.Extractor.Frames(ctx, input, outDir, opts)
		return len(files), err
	}
	outcomes, err := s.Extractor.FramesDirectory(ctx, input, outDir, s.Config.Video.Formats, opts,
		s.batchOptions("extract_frames", progress))
	for _, o := range outcomes {
		written += len(o.Value)
	}
	failed := len(batch.Failed(outcomes))
	metrics.ObserveVideos("extract_frames", len(outcomes)-failed, failed)
	return written, err
}

type ProcessSummary struct {
	Processed int      `json:"processed"`
	Failed    []string `json:"failed,omitempty"`
}

// Process validates and normalises one video or every video below a directory.
func (s *Service) Process(ctx context.Context, input, output, mode string, progress Progress) (summary ProcessSummary, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("process", start, err) }(time.Now())

	m, err := process.ParseMode(mode)
	if err != nil {
		return ProcessSummary{}, err
	}
	res := s.Config.Video.Processing.Resolution
	opts := process.Options{Mode: m, MaxDuration: s.Config.Video.Processing.MaxDuration}
	if len(res) == 2 {
		opts.Width, opts.Height = res[0], res[1]
	}

	if !util.DirExists(input) {
		if err = s.Processor.Process(ctx, input, output, opts); err != nil {
			return ProcessSummary{Failed: []string{input}}, err
		}
		return ProcessSummary{Processed: 1}, nil
	}
	outcomes, err := s.Processor.ProcessDirectory(ctx, input, output, s.Config.Video.Formats, opts,
		s.batchOptions("process", progress))
	failed := lo.Map(batch.Failed(outcomes), func(o batch.Outcome[string], _ int) string { return o.Item })
	metrics.ObserveVideos("process", len(outcomes)-len(failed), len(failed))
	return ProcessSummary{Processed: len(outcomes) - len(failed), Failed: failed}, err
}
