// Package process validates source videos and normalises them for training: scaling to
// a fixed resolution or re-encoding to H.264/AAC mp4.
package process

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"

	"vidset/internal/batch"
	"vidset/internal/dataset"
	"vidset/internal/media"
	"vidset/log"
	apperrors "vidset/pkg/errors"
	"vidset/pkg/util"
)

// fallbackFPS is used for resize output when the source reports no frame rate.
const fallbackFPS = 30

type Mode int

const (
	ModeResize Mode = iota
	ModeConvert
	ModeCopy
)

func (m Mode) String() string {
	switch m {
	case ModeResize:
		return "resize"
	case ModeConvert:
		return "convert"
	case ModeCopy:
		return "copy"
	}
	return "unknown"
}

func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "resize":
		return ModeResize, nil
	case "convert":
		return ModeConvert, nil
	case "copy", "none":
		return ModeCopy, nil
	}
	return 0, apperrors.Newf(apperrors.CodeInvalidParams, "未知的处理方式 unknown processing mode %q", name)
}

// Transcoder runs a full ffmpeg argument list; *media.FFmpeg implements it.
type Transcoder interface {
	Transcode(ctx context.Context, args []string) error
}

type Options struct {
	Mode   Mode
	Width  int
	Height int
	// MaxDuration rejects longer videos; zero disables the check.
	MaxDuration float64
}

type Validation struct {
	Path    string          `json:"path"`
	Valid   bool            `json:"valid"`
	Message string          `json:"message"`
	Info    media.VideoInfo `json:"info"`
}

type Processor struct {
	accessor   *media.Accessor
	transcoder Transcoder
}

func NewProcessor(accessor *media.Accessor, transcoder Transcoder) *Processor {
	return &Processor{accessor: accessor, transcoder: transcoder}
}

// Validate checks that path opens and is not longer than maxDuration.
func (p *Processor) Validate(ctx context.Context, path string, maxDuration float64) Validation {
	info, err := p.accessor.Info(ctx, path)
	if err != nil {
		return Validation{Path: path, Message: "Could not open video"}
	}
	if maxDuration > 0 && info.Duration > maxDuration {
		return Validation{Path: path, Info: info,
			Message: fmt.Sprintf("Video duration %.2fs exceeds max %gs", info.Duration, maxDuration)}
	}
	return Validation{Path: path, Valid: true, Message: "Valid", Info: info}
}

// Process validates in and writes the processed video to out.
func (p *Processor) Process(ctx context.Context, in, out string, opts Options) error {
	v := p.Validate(ctx, in, opts.MaxDuration)
	if !v.Valid {
		code := apperrors.CodeInvalidParams
		if v.Info == (media.VideoInfo{}) {
			code = apperrors.CodeVideoUnavailable
		}
		return apperrors.WrapWithDetail(code, "视频校验失败 "+v.Message, in, nil)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return apperrors.WrapWithDetail(apperrors.CodeFileWriteError, "创建目录失败 create directory", out, err)
	}

	switch opts.Mode {
	case ModeResize:
		if opts.Width <= 0 || opts.Height <= 0 {
			return apperrors.Newf(apperrors.CodeInvalidParams, "目标分辨率无效 invalid resolution %dx%d", opts.Width, opts.Height)
		}
		return p.transcoder.Transcode(ctx, ResizeArgs(in, out, opts.Width, opts.Height, v.Info.FPS))
	case ModeConvert:
		return p.transcoder.Transcode(ctx, ConvertArgs(in, out))
	default:
		if err := util.CopyFile(in, out); err != nil {
			return apperrors.WrapWithDetail(apperrors.CodeCopyFailed, "复制失败 copy failed", in, err)
		}
		return nil
	}
}

// OutputPath mirrors video's position under inputDir into outputDir with an .mp4 extension.
func OutputPath(inputDir, outputDir, video string) (string, error) {
	rel, err := filepath.Rel(inputDir, video)
	if err != nil {
		return "", err
	}
	return filepath.Join(outputDir, strings.TrimSuffix(rel, filepath.Ext(rel))+".mp4"), nil
}

func (p *Processor) ProcessDirectory(ctx context.Context, inputDir, outputDir string, formats []string,
	opts Options, bopts batch.Options) ([]batch.Outcome[string], error) {
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
	log.GetLogger().Info("processing videos", zap.String("input", inputDir), zap.Int("videos", len(videos)),
		zap.Stringer("mode", opts.Mode))

	if bopts.Operation == "" {
		bopts.Operation = "process"
	}
	outcomes := batch.Run(ctx, videos, bopts, func(ctx context.Context, video string) (string, error) {
		out, err := OutputPath(absInput, outputDir, video)
		if err != nil {
			return "", err
		}
		return out, p.Process(ctx, video, out, opts)
	})
	return outcomes, batch.Err(outcomes)
}

// ResizeArgs scales every frame to width x height and re-encodes with MPEG-4. Audio is dropped.
func ResizeArgs(in, out string, width, height int, fps float64) []string {
	if fps <= 0 {
		fps = fallbackFPS
	}
	return ffmpeg.Input(in).
		Filter("scale", ffmpeg.Args{strconv.Itoa(width), strconv.Itoa(height)}).
		Output(out, ffmpeg.KwArgs{
			"c:v":      "mpeg4",
			"q:v":      "2",
			"r":        strconv.FormatFloat(fps, 'f', -1, 64),
			"loglevel": "error",
		}).
		OverWriteOutput().
		GetArgs()
}

// ConvertArgs re-encodes to H.264 video and AAC audio.
func ConvertArgs(in, out string) []string {
	return ffmpeg.Input(in).
		Output(out, ffmpeg.KwArgs{
			"c:v":      "libx264",
			"c:a":      "aac",
			"loglevel": "error",
		}).
		OverWriteOutput().
		GetArgs()
}
