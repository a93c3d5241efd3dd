package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"

	"vidset/log"
	apperrors "vidset/pkg/errors"
)

// FFmpeg decodes and encodes through the ffmpeg/ffprobe binaries, exchanging raw
// bgr24 frames over pipes.
type FFmpeg struct {
	FFmpegPath  string
	FFprobePath string
	// ReadTimeout bounds each frame read of a streaming decode. Zero disables it.
	ReadTimeout time.Duration
}

func NewFFmpeg(ffmpegPath, ffprobePath string, readTimeout time.Duration) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath, ReadTimeout: readTimeout}
}

func (f *FFmpeg) Probe(ctx context.Context, path string) (VideoInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return VideoInfo{}, err
	}

	cmd := exec.CommandContext(ctx, f.FFprobePath, ProbeArgs(path)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return VideoInfo{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	info, err := parseProbe(output)
	if err != nil {
		return VideoInfo{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return info, nil
}

func (f *FFmpeg) DecodeFrame(ctx context.Context, path string, info VideoInfo, index int) (Frame, error) {
	if info.FPS <= 0 {
		return Frame{}, ErrFrameUnavailable
	}
	frameSize := info.Width * info.Height * 3

	cmd := exec.CommandContext(ctx, f.FFmpegPath, DecodeFrameArgs(path, info.TimestampOf(index))...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Frame{}, fmt.Errorf("%w: %v: %s", ErrFrameUnavailable, err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() < frameSize {
		return Frame{}, ErrFrameUnavailable
	}
	data := make([]byte, frameSize)
	copy(data, stdout.Bytes())
	return Frame{Width: info.Width, Height: info.Height, Data: data}, nil
}

func (f *FFmpeg) DecodeFrom(ctx context.Context, path string, info VideoInfo, start int) (FrameReader, error) {
	if info.Width <= 0 || info.Height <= 0 {
		return nil, ErrFrameUnavailable
	}

	cmd := exec.CommandContext(ctx, f.FFmpegPath, DecodeStreamArgs(path, info.TimestampOf(start))...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	if err = cmd.Start(); err != nil {
		return nil, err
	}

	return &ffmpegReader{
		cmd:     cmd,
		stdout:  stdout,
		stderr:  stderr,
		path:    path,
		width:   info.Width,
		height:  info.Height,
		timeout: f.ReadTimeout,
	}, nil
}

func (f *FFmpeg) Create(ctx context.Context, path string, width, height int, fps float64) (FrameWriter, error) {
	if width <= 0 || height <= 0 || fps <= 0 {
		return nil, apperrors.Newf(apperrors.CodeInvalidParams, "invalid encoder geometry %dx%d@%g", width, height, fps)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeFileWriteError, "创建输出目录失败 create output dir", err)
	}

	cmd := exec.CommandContext(ctx, f.FFmpegPath, EncodeArgs(path, width, height, fps)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	if err = cmd.Start(); err != nil {
		return nil, apperrors.WrapWithDetail(apperrors.CodeEncodeFailed, "视频编码失败 Encode failed", path, err)
	}
	return &ffmpegWriter{cmd: cmd, stdin: stdin, stderr: stderr, path: path, width: width, height: height}, nil
}

// Transcode runs one complete ffmpeg command line, such as a scale or codec conversion
// built by the caller. The output is reported in the error when ffmpeg fails.
func (f *FFmpeg) Transcode(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, f.FFmpegPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return apperrors.WrapWithDetail(apperrors.CodeEncodeFailed, "视频转码失败 Transcode failed",
			strings.TrimSpace(string(output)), err)
	}
	return nil
}

// ProbeArgs builds the ffprobe arguments for the first video stream as JSON.
func ProbeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,avg_frame_rate,nb_frames,duration:format=duration",
		"-of", "json",
		path,
	}
}

func DecodeFrameArgs(path string, ts float64) []string {
	return ffmpeg.Input(path, ffmpeg.KwArgs{"ss": formatSeconds(ts)}).
		Output("pipe:", ffmpeg.KwArgs{
			"frames:v": "1",
			"format":   "rawvideo",
			"pix_fmt":  "bgr24",
			"loglevel": "error",
		}).
		GetArgs()
}

func DecodeStreamArgs(path string, ts float64) []string {
	inputArgs := ffmpeg.KwArgs{}
	if ts > 0 {
		inputArgs["ss"] = formatSeconds(ts)
	}
	return ffmpeg.Input(path, inputArgs).
		Output("pipe:", ffmpeg.KwArgs{
			"format":   "rawvideo",
			"pix_fmt":  "bgr24",
			"vsync":    "passthrough",
			"loglevel": "error",
		}).
		GetArgs()
}

func EncodeArgs(path string, width, height int, fps float64) []string {
	return ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"format":  "rawvideo",
		"pix_fmt": "bgr24",
		"s":       fmt.Sprintf("%dx%d", width, height),
		"r":       strconv.FormatFloat(fps, 'f', -1, 64),
	}).
		Output(path, ffmpeg.KwArgs{
			"c:v":      "mpeg4",
			"q:v":      "2",
			"pix_fmt":  "yuv420p",
			"loglevel": "error",
		}).
		OverWriteOutput().
		GetArgs()
}

func formatSeconds(ts float64) string {
	return strconv.FormatFloat(ts, 'f', 6, 64)
}

type ffmpegReader struct {
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	stderr  *bytes.Buffer
	path    string
	width   int
	height  int
	timeout time.Duration

	timedOut  atomic.Bool
	closeOnce sync.Once
}

func (r *ffmpegReader) Next() (Frame, error) {
	data := make([]byte, r.width*r.height*3)

	var watchdog *time.Timer
	if r.timeout > 0 {
		watchdog = time.AfterFunc(r.timeout, func() {
			r.timedOut.Store(true)
			_ = r.cmd.Process.Kill()
		})
	}
	_, err := io.ReadFull(r.stdout, data)
	if watchdog != nil {
		watchdog.Stop()
	}

	if r.timedOut.Load() {
		return Frame{}, apperrors.WrapWithDetail(apperrors.CodeDecodeTimeout, "视频解码超时 Decode timeout", r.path, err)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return Frame{}, io.EOF
	}
	if err != nil {
		return Frame{}, err
	}
	return Frame{Width: r.width, Height: r.height, Data: data}, nil
}

func (r *ffmpegReader) Close() error {
	r.closeOnce.Do(func() {
		_ = r.stdout.Close()
		if r.cmd.ProcessState == nil {
			_ = r.cmd.Process.Kill()
		}
		// the process is usually killed here because the caller stopped early
		if err := r.cmd.Wait(); err != nil && !r.timedOut.Load() {
			log.GetLogger().Debug("ffmpeg decode exited", zap.String("path", r.path), zap.Error(err),
				zap.String("stderr", strings.TrimSpace(r.stderr.String())))
		}
	})
	return nil
}

type ffmpegWriter struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	path   string
	width  int
	height int
	closed bool
}

func (w *ffmpegWriter) WriteFrame(frame Frame) error {
	if w.closed {
		return apperrors.WrapWithDetail(apperrors.CodeEncodeFailed, "编码器已关闭 Encoder closed", w.path, io.ErrClosedPipe)
	}
	if frame.Width != w.width || frame.Height != w.height {
		return apperrors.Newf(apperrors.CodeInvalidParams, "frame %dx%d does not match encoder %dx%d",
			frame.Width, frame.Height, w.width, w.height)
	}
	if _, err := w.stdin.Write(frame.Data[:w.width*w.height*3]); err != nil {
		return apperrors.WrapWithDetail(apperrors.CodeEncodeFailed, "视频编码失败 Encode failed", w.path, err)
	}
	return nil
}

func (w *ffmpegWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	_ = w.stdin.Close()
	if err := w.cmd.Wait(); err != nil {
		return apperrors.WrapWithDetail(apperrors.CodeEncodeFailed, "视频编码失败 Encode failed",
			w.path+": "+strings.TrimSpace(w.stderr.String()), err)
	}
	return nil
}
