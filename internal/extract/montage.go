package extract

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"vidset/internal/imaging"
	"vidset/internal/media"
	"vidset/log"
	apperrors "vidset/pkg/errors"
)

const montageSeconds = 10

type MontageOptions struct {
	Rows int
	Cols int
	// FrameDuration scales the montage length: fps*FrameDuration*10 frames.
	FrameDuration float64
}

// tile loops one source video inside a montage cell.
type tile struct {
	handle *media.Handle
	stream media.FrameReader
}

func (t *tile) next(ctx context.Context) (media.Frame, bool) {
	for attempt := 0; attempt < 2; attempt++ {
		if t.stream == nil {
			stream, err := t.handle.Stream(ctx, 0)
			if err != nil {
				return media.Frame{}, false
			}
			t.stream = stream
		}
		frame, err := t.stream.Next()
		if err == nil {
			return frame, true
		}
		_ = t.stream.Close()
		t.stream = nil
		if !errors.Is(err, io.EOF) {
			return media.Frame{}, false
		}
	}
	return media.Frame{}, false
}

// Montage tiles up to Rows*Cols videos into one grid video. Cells take the first
// video's size and frame rate; a video that ends starts over from its first frame.
func (e *Extractor) Montage(ctx context.Context, paths []string, outPath string, opts MontageOptions) error {
	if opts.Rows <= 0 || opts.Cols <= 0 {
		return apperrors.Newf(apperrors.CodeInvalidParams, "网格尺寸无效 invalid grid %dx%d", opts.Rows, opts.Cols)
	}
	if opts.FrameDuration <= 0 {
		opts.FrameDuration = 1
	}
	if len(paths) > opts.Rows*opts.Cols {
		paths = paths[:opts.Rows*opts.Cols]
	}

	var tiles []*tile
	defer func() {
		for _, t := range tiles {
			_ = t.handle.Close()
		}
	}()
	for _, path := range paths {
		h, err := e.accessor.Open(ctx, path)
		if err != nil {
			log.GetLogger().Warn("montage: skipping video", zap.String("path", path), zap.Error(err))
			continue
		}
		tiles = append(tiles, &tile{handle: h})
	}
	if len(tiles) == 0 {
		return apperrors.New(apperrors.CodeNoVideos, "没有可用的视频 no readable videos for montage")
	}

	info := tiles[0].handle.Info()
	if info.FPS <= 0 || info.Width <= 0 || info.Height <= 0 {
		return apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "首个视频参数无效 first video has no usable geometry", tiles[0].handle.Path(), nil)
	}
	cellW, cellH := info.Width, info.Height
	totalFrames := int(info.FPS*opts.FrameDuration) * montageSeconds

	writer, err := e.encoder.Create(ctx, outPath, cellW*opts.Cols, cellH*opts.Rows, info.FPS)
	if err != nil {
		return err
	}
	for n := 0; n < totalFrames; n++ {
		if err = ctx.Err(); err != nil {
			_ = writer.Close()
			return err
		}
		canvas := media.NewFrame(cellW*opts.Cols, cellH*opts.Rows)
		for i, t := range tiles {
			frame, ok := t.next(ctx)
			if !ok {
				continue
			}
			if frame.Width != cellW || frame.Height != cellH {
				frame = imaging.Resize(frame, cellW, cellH)
			}
			blit(canvas, frame, (i%opts.Cols)*cellW, (i/opts.Cols)*cellH)
		}
		if err = writer.WriteFrame(canvas); err != nil {
			_ = writer.Close()
			return err
		}
	}
	if err = writer.Close(); err != nil {
		return err
	}
	log.GetLogger().Info("montage written", zap.String("path", outPath), zap.Int("videos", len(tiles)), zap.Int("frames", totalFrames))
	return nil
}

func blit(dst, src media.Frame, x0, y0 int) {
	rowBytes := src.Width * 3
	for y := 0; y < src.Height; y++ {
		d := (y0+y)*dst.Stride() + x0*3
		s := y * src.Stride()
		copy(dst.Data[d:d+rowBytes], src.Data[s:s+rowBytes])
	}
}
