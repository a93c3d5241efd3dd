// Package segment cuts long videos into fixed-length, optionally overlapping clips.
package segment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"vidset/internal/media"
	"vidset/log"
	apperrors "vidset/pkg/errors"
)

// Range is the half-open frame interval [Start, End) of one segment.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r Range) Len() int {
	return r.End - r.Start
}

// SegmentName is the file name of segment n of a video with the given stem.
func SegmentName(stem string, n int) string {
	return fmt.Sprintf("%s_segment_%03d.mp4", stem, n)
}

// FrameCounts converts durations to frame counts with floor(seconds*fps). A zero
// per-segment count means there is nothing to split. The overlap must be shorter
// than a segment, otherwise splitting could never advance.
func FrameCounts(fps, segmentDuration, overlap float64) (perSegment, overlapFrames int, err error) {
	if overlap < 0 {
		return 0, 0, apperrors.Newf(apperrors.CodeInvalidParams, "重叠时长不能为负 overlap %.3fs must not be negative", overlap)
	}
	if fps <= 0 || segmentDuration <= 0 {
		return 0, 0, nil
	}
	perSegment = int(math.Floor(segmentDuration * fps))
	overlapFrames = int(math.Floor(overlap * fps))
	if perSegment > 0 && overlapFrames >= perSegment {
		return 0, 0, apperrors.WrapWithDetail(apperrors.CodeSegmentInvalidOverlap,
			apperrors.ErrSegmentInvalidOverlap.Message,
			fmt.Sprintf("overlap %d frames >= segment %d frames", overlapFrames, perSegment), nil)
	}
	return perSegment, overlapFrames, nil
}

// Plan lists the segments a video of frameCount frames is cut into. The tail
// segments are kept even when they hold fewer than perSegment frames.
func Plan(frameCount, perSegment, overlapFrames int) []Range {
	if frameCount <= 0 || perSegment <= 0 || overlapFrames >= perSegment {
		return []Range{}
	}
	var ranges []Range
	for start := 0; start < frameCount; start += perSegment - overlapFrames {
		ranges = append(ranges, Range{Start: start, End: min(start+perSegment, frameCount)})
	}
	return ranges
}

type Splitter struct {
	accessor *media.Accessor
	encoder  media.Encoder
}

func NewSplitter(accessor *media.Accessor, encoder media.Encoder) *Splitter {
	return &Splitter{accessor: accessor, encoder: encoder}
}

// Split writes consecutive segments of segmentDuration seconds into outDir. Each
// segment starts overlap seconds before the previous one ended. Splitting stops when a
// segment would hold no frames or its start reaches the end of the video, so short tail
// segments are kept. A write failure aborts and returns the segments finished so far.
func (s *Splitter) Split(ctx context.Context, path, outDir string, segmentDuration, overlap float64) ([]string, error) {
	outputs := []string{}
	err := s.accessor.With(ctx, path, func(h *media.Handle) error {
		info := h.Info()
		perSegment, overlapFrames, err := FrameCounts(info.FPS, segmentDuration, overlap)
		if err != nil {
			return err
		}
		if perSegment == 0 {
			log.GetLogger().Warn("split skipped: segment shorter than one frame or unknown fps",
				zap.String("path", path), zap.Float64("fps", info.FPS), zap.Float64("segment_duration", segmentDuration))
			return nil
		}
		if err = os.MkdirAll(outDir, 0o755); err != nil {
			return apperrors.Wrap(apperrors.CodeFileWriteError, "创建输出目录失败 create output dir", err)
		}

		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		// emit reports false once the source had no frame left at r.Start.
		emit := func(n int, r Range) (bool, error) {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			outPath := filepath.Join(outDir, SegmentName(stem, n))
			written, err := s.writeSegment(ctx, h, outPath, r.Start, r.Len())
			if err != nil || written == 0 {
				return false, err
			}
			outputs = append(outputs, outPath)
			log.GetLogger().Debug("segment written", zap.String("path", outPath), zap.Int("start", r.Start), zap.Int("frames", written))
			return true, nil
		}

		if info.FrameCount > 0 {
			for n, r := range Plan(info.FrameCount, perSegment, overlapFrames) {
				if more, err := emit(n, r); err != nil || !more {
					return err
				}
			}
			return nil
		}
		// Unknown length: keep reading until a segment comes back empty.
		for n, start := 0, 0; ; n, start = n+1, start+perSegment-overlapFrames {
			if more, err := emit(n, Range{Start: start, End: start + perSegment}); err != nil || !more {
				return err
			}
		}
	})
	if err != nil {
		return outputs, err
	}
	log.GetLogger().Info("video split", zap.String("path", path), zap.Int("segments", len(outputs)))
	return outputs, nil
}

// writeSegment copies up to count frames from start into outPath. The output file
// is only created once the first frame has been decoded.
func (s *Splitter) writeSegment(ctx context.Context, h *media.Handle, outPath string, start, count int) (int, error) {
	stream, err := h.Stream(ctx, start)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	var writer media.FrameWriter
	written := 0
	for written < count {
		frame, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.GetLogger().Warn("segment decode stopped", zap.String("path", h.Path()), zap.Int("index", start+written), zap.Error(err))
			break
		}
		if writer == nil {
			writer, err = s.encoder.Create(ctx, outPath, frame.Width, frame.Height, h.Info().FPS)
			if err != nil {
				return 0, segmentWriteError(outPath, err)
			}
		}
		if err = writer.WriteFrame(frame); err != nil {
			_ = writer.Close()
			return written, segmentWriteError(outPath, err)
		}
		written++
	}

	if writer != nil {
		if err = writer.Close(); err != nil {
			return written, segmentWriteError(outPath, err)
		}
	}
	return written, nil
}

func segmentWriteError(path string, err error) error {
	return apperrors.WrapWithDetail(apperrors.CodeSegmentWriteFailed, "片段写入失败 segment write failed", path, err)
}
