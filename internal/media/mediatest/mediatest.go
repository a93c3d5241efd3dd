// Package mediatest provides an in-memory video backend for tests that must run without ffmpeg.
package mediatest

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"vidset/internal/media"
)

var ErrNoSuchVideo = errors.New("mediatest: no such video")

// Video is a synthetic clip. Broken frame indexes fail to decode individually.
type Video struct {
	FPS    float64
	Frames []media.Frame
	Broken map[int]bool
}

func (v Video) Info() media.VideoInfo {
	if len(v.Frames) == 0 {
		return media.NewVideoInfo(v.FPS, 0, 0, 0)
	}
	return media.NewVideoInfo(v.FPS, v.Frames[0].Width, v.Frames[0].Height, len(v.Frames))
}

// Library implements media.Decoder and media.Encoder. Encoded files become readable
// videos, so an output can be decoded again in the same test.
type Library struct {
	mu        sync.Mutex
	videos    map[string]Video
	FailWrite bool

	openStreams atomic.Int64
	decodeCalls atomic.Int64
}

func NewLibrary() *Library {
	return &Library{videos: make(map[string]Video)}
}

func (l *Library) Add(path string, v Video) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.videos[path] = v
}

func (l *Library) Video(path string) (Video, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.videos[path]
	return v, ok
}

// OpenStreams counts readers that were started but not closed.
func (l *Library) OpenStreams() int {
	return int(l.openStreams.Load())
}

func (l *Library) DecodeCalls() int {
	return int(l.decodeCalls.Load())
}

func (l *Library) Probe(ctx context.Context, path string) (media.VideoInfo, error) {
	if err := ctx.Err(); err != nil {
		return media.VideoInfo{}, err
	}
	v, ok := l.Video(path)
	if !ok {
		return media.VideoInfo{}, &os.PathError{Op: "probe", Path: path, Err: ErrNoSuchVideo}
	}
	return v.Info(), nil
}

func (l *Library) DecodeFrame(ctx context.Context, path string, info media.VideoInfo, index int) (media.Frame, error) {
	l.decodeCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return media.Frame{}, err
	}
	v, ok := l.Video(path)
	if !ok {
		return media.Frame{}, ErrNoSuchVideo
	}
	if index < 0 || index >= len(v.Frames) || v.Broken[index] {
		return media.Frame{}, media.ErrFrameUnavailable
	}
	return v.Frames[index].Clone(), nil
}

func (l *Library) DecodeFrom(ctx context.Context, path string, info media.VideoInfo, start int) (media.FrameReader, error) {
	v, ok := l.Video(path)
	if !ok {
		return nil, ErrNoSuchVideo
	}
	l.openStreams.Add(1)
	return &reader{ctx: ctx, lib: l, frames: v.Frames, pos: start}, nil
}

func (l *Library) Create(ctx context.Context, path string, width, height int, fps float64) (media.FrameWriter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &writer{lib: l, path: path, width: width, height: height, fps: fps}, nil
}

type reader struct {
	ctx    context.Context
	lib    *Library
	frames []media.Frame
	pos    int
	closed bool
}

func (r *reader) Next() (media.Frame, error) {
	if r.closed {
		return media.Frame{}, io.ErrClosedPipe
	}
	if err := r.ctx.Err(); err != nil {
		return media.Frame{}, err
	}
	if r.pos >= len(r.frames) {
		return media.Frame{}, io.EOF
	}
	frame := r.frames[r.pos].Clone()
	r.pos++
	return frame, nil
}

func (r *reader) Close() error {
	if !r.closed {
		r.closed = true
		r.lib.openStreams.Add(-1)
	}
	return nil
}

var errDiskFull = errors.New("mediatest: no space left on device")

type writer struct {
	lib    *Library
	path   string
	width  int
	height int
	fps    float64
	frames []media.Frame
	closed bool
}

func (w *writer) WriteFrame(frame media.Frame) error {
	if w.closed {
		return io.ErrClosedPipe
	}
	if w.lib.FailWrite {
		return errDiskFull
	}
	if frame.Width != w.width || frame.Height != w.height {
		return errors.New("mediatest: frame size mismatch")
	}
	w.frames = append(w.frames, frame.Clone())
	return nil
}

func (w *writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.lib.Add(w.path, Video{FPS: w.fps, Frames: w.frames})
	return nil
}
