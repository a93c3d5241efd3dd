// Package extract turns videos into still images and derived clips: sampled frames,
// thumbnails, key-frame summaries and grid montages.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"vidset/internal/keyframe"
	"vidset/internal/media"
	"vidset/log"
	apperrors "vidset/pkg/errors"
)

const (
	DefaultSummaryFrames = 16
	thumbnailCandidates  = 20
	DefaultImageQuality  = 95
)

type Extractor struct {
	accessor *media.Accessor
	encoder  media.Encoder
}

func NewExtractor(accessor *media.Accessor, encoder media.Encoder) *Extractor {
	return &Extractor{accessor: accessor, encoder: encoder}
}

type FrameOptions struct {
	// FPS is how many frames per second of video to keep.
	FPS     float64
	Format  string
	Quality int
}

// FrameInterval keeps every int(videoFPS/fps)-th frame, at least every frame.
func FrameInterval(videoFPS, fps float64) (int, error) {
	if fps <= 0 || videoFPS <= 0 {
		return 0, apperrors.Newf(apperrors.CodeInvalidParams, "帧率无效 invalid fps (video_fps=%g, extract_fps=%g)", videoFPS, fps)
	}
	return max(int(videoFPS/fps), 1), nil
}

func FrameName(stem string, n int, ext string) string {
	return fmt.Sprintf("%s_frame_%06d.%s", stem, n, ext)
}

func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Frames writes every N-th frame of path into outDir and returns the written files.
func (e *Extractor) Frames(ctx context.Context, path, outDir string, opts FrameOptions) ([]string, error) {
	ext, err := media.ImageExt(opts.Format)
	if err != nil {
		return nil, err
	}
	if opts.Quality <= 0 {
		opts.Quality = DefaultImageQuality
	}

	var saved []string
	err = e.accessor.With(ctx, path, func(h *media.Handle) error {
		interval, err := FrameInterval(h.Info().FPS, opts.FPS)
		if err != nil {
			return err
		}
		if err = os.MkdirAll(outDir, 0o755); err != nil {
			return apperrors.Wrap(apperrors.CodeFileWriteError, "创建输出目录失败 create output dir", err)
		}

		stream, err := h.Stream(ctx, 0)
		if err != nil {
			return err
		}
		defer stream.Close()

		stem := stemOf(path)
		for index := 0; ; index++ {
			if err = ctx.Err(); err != nil {
				return err
			}
			frame, err := stream.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				log.GetLogger().Warn("frame extraction stopped early", zap.String("path", path), zap.Int("index", index), zap.Error(err))
				break
			}
			if index%interval != 0 {
				continue
			}
			target := filepath.Join(outDir, FrameName(stem, len(saved), ext))
			if err = media.SaveImage(target, frame, ext, opts.Quality); err != nil {
				return err
			}
			saved = append(saved, target)
		}
		return nil
	})
	if err != nil {
		return saved, err
	}
	log.GetLogger().Info("frames extracted", zap.String("path", path), zap.Int("count", len(saved)))
	return saved, nil
}

type ThumbnailMethod int

const (
	ThumbnailMiddle ThumbnailMethod = iota
	ThumbnailFirst
	ThumbnailBest
)

func ParseThumbnailMethod(name string) (ThumbnailMethod, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "middle":
		return ThumbnailMiddle, nil
	case "first":
		return ThumbnailFirst, nil
	case "best":
		return ThumbnailBest, nil
	}
	return 0, apperrors.Newf(apperrors.CodeInvalidParams, "未知的缩略图方式 unknown thumbnail method %q", name)
}

// Thumbnail saves one representative frame; the image format follows outPath's extension.
func (e *Extractor) Thumbnail(ctx context.Context, path, outPath string, method ThumbnailMethod) error {
	ext, err := media.ImageExt(filepath.Ext(outPath))
	if err != nil {
		return err
	}

	return e.accessor.With(ctx, path, func(h *media.Handle) error {
		var (
			frame media.Frame
			ok    bool
		)
		total := h.Info().FrameCount
		switch method {
		case ThumbnailFirst:
			frame, ok = h.ReadFrame(ctx, 0)
		case ThumbnailBest:
			kfs, err := keyframe.Select(ctx, h, keyframe.Options{
				Strategy:   keyframe.BestSharpness,
				Count:      1,
				Candidates: thumbnailCandidates,
			})
			if err != nil {
				return err
			}
			if len(kfs) > 0 {
				frame, ok = kfs[0].Frame, true
			}
		default:
			frame, ok = h.ReadFrame(ctx, total/2)
		}
		if !ok {
			return apperrors.WrapWithDetail(apperrors.CodeDecodeFailed, "缩略图帧解码失败 thumbnail frame unavailable", path, media.ErrFrameUnavailable)
		}
		return media.SaveImage(outPath, frame, ext, DefaultImageQuality)
	})
}

// Summary encodes numFrames uniformly sampled key frames at the source frame rate.
func (e *Extractor) Summary(ctx context.Context, path, outPath string, numFrames int) error {
	if numFrames <= 0 {
		numFrames = DefaultSummaryFrames
	}

	return e.accessor.With(ctx, path, func(h *media.Handle) error {
		fps := h.Info().FPS
		if fps <= 0 {
			return apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "未知帧率 unknown frame rate", path, nil)
		}
		kfs, err := keyframe.Select(ctx, h, keyframe.Options{Strategy: keyframe.Uniform, Count: numFrames})
		if err != nil {
			return err
		}
		if len(kfs) == 0 {
			return apperrors.WrapWithDetail(apperrors.CodeDecodeFailed, "没有可解码的帧 no decodable frames", path, media.ErrFrameUnavailable)
		}

		first := kfs[0].Frame
		writer, err := e.encoder.Create(ctx, outPath, first.Width, first.Height, fps)
		if err != nil {
			return err
		}
		for _, kf := range kfs {
			if err = writer.WriteFrame(kf.Frame); err != nil {
				_ = writer.Close()
				return err
			}
		}
		return writer.Close()
	})
}
