package extract

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"vidset/internal/batch"
	"vidset/internal/dataset"
	"vidset/log"
	apperrors "vidset/pkg/errors"
)

// FrameDir is where directory mode writes the frames of video: the video's directory
// relative to inputDir, then a folder named after the video.
func FrameDir(inputDir, outDir, video string) (string, error) {
	rel, err := filepath.Rel(inputDir, video)
	if err != nil {
		return "", err
	}
	return filepath.Join(outDir, filepath.Dir(rel), stemOf(video)), nil
}

// FramesDirectory extracts frames from every video under inputDir, mirroring its layout
// under outDir. A failed video is reported in its outcome and does not stop the others.
func (e *Extractor) FramesDirectory(ctx context.Context, inputDir, outDir string, formats []string,
	opts FrameOptions, bopts batch.Options) ([]batch.Outcome[[]string], error) {
	absInput, err := filepath.Abs(inputDir)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidParams, "参数错误 Invalid input directory", err)
	}
	videos, err := dataset.FindVideos(absInput, formats)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, apperrors.WrapWithDetail(apperrors.CodeNoVideos, "未找到视频 No videos found", inputDir, nil)
	}
	log.GetLogger().Info("extracting frames from directory", zap.String("input", inputDir), zap.Int("videos", len(videos)))

	if bopts.Operation == "" {
		bopts.Operation = "extract_frames"
	}
	outcomes := batch.Run(ctx, videos, bopts, func(ctx context.Context, video string) ([]string, error) {
		target, err := FrameDir(absInput, outDir, video)
		if err != nil {
			return nil, err
		}
		return e.Frames(ctx, video, target, opts)
	})
	return outcomes, batch.Err(outcomes)
}
