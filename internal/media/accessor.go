package media

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"vidset/log"
	apperrors "vidset/pkg/errors"
)

// Accessor opens decode sessions on top of a Decoder backend.
type Accessor struct {
	decoder Decoder
	timeout time.Duration
}

// NewAccessor bounds every probe and single-frame decode by timeout; zero disables the bound.
func NewAccessor(decoder Decoder, timeout time.Duration) *Accessor {
	return &Accessor{decoder: decoder, timeout: timeout}
}

// Open probes path and returns a session owned by the caller, who must Close it.
func (a *Accessor) Open(ctx context.Context, path string) (*Handle, error) {
	probeCtx, cancel := a.bound(ctx)
	defer cancel()

	info, err := a.decoder.Probe(probeCtx, path)
	if err != nil {
		log.GetLogger().Debug("open video failed", zap.String("path", path), zap.Error(err))
		return nil, apperrors.WrapWithDetail(apperrors.CodeVideoUnavailable, "视频无法打开 Video unavailable", path, err)
	}
	return &Handle{accessor: a, path: path, info: info, streams: make(map[*handleStream]struct{})}, nil
}

// With runs fn on a freshly opened handle and always releases it afterwards.
func (a *Accessor) With(ctx context.Context, path string, fn func(h *Handle) error) error {
	h, err := a.Open(ctx, path)
	if err != nil {
		return err
	}
	defer h.Close()
	return fn(h)
}

// Info probes path without keeping a session.
func (a *Accessor) Info(ctx context.Context, path string) (VideoInfo, error) {
	var info VideoInfo
	err := a.With(ctx, path, func(h *Handle) error {
		info = h.Info()
		return nil
	})
	return info, err
}

func (a *Accessor) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

// Handle is one open decode session. It is not meant to be shared between
// concurrent operations; decode calls on the same handle are serialised.
type Handle struct {
	accessor *Accessor
	path     string
	info     VideoInfo

	mu      sync.Mutex
	closed  bool
	streams map[*handleStream]struct{}
}

func (h *Handle) Path() string {
	return h.path
}

func (h *Handle) Info() VideoInfo {
	return h.info
}

// ReadFrame decodes the frame at index. Out-of-range indexes, a closed handle and
// decoder failures all report ok=false.
func (h *Handle) ReadFrame(ctx context.Context, index int) (Frame, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || !h.info.Contains(index) {
		return Frame{}, false
	}

	decodeCtx, cancel := h.accessor.bound(ctx)
	defer cancel()

	frame, err := h.accessor.decoder.DecodeFrame(decodeCtx, h.path, h.info, index)
	if err != nil {
		fields := []zap.Field{zap.String("path", h.path), zap.Int("index", index), zap.Error(err)}
		if errors.Is(decodeCtx.Err(), context.DeadlineExceeded) {
			log.GetLogger().Warn("decode frame timed out", fields...)
		} else {
			log.GetLogger().Debug("decode frame failed", fields...)
		}
		return Frame{}, false
	}
	if frame.Empty() {
		return Frame{}, false
	}
	return frame, true
}

// ReadFramesAtTimestamps reads floor(ts*fps) for every timestamp, keeping input
// order and skipping the ones that fail. It returns nothing when the rate is unknown.
func (h *Handle) ReadFramesAtTimestamps(ctx context.Context, timestamps []float64) []Frame {
	if h.info.FPS <= 0 {
		return []Frame{}
	}
	frames := make([]Frame, 0, len(timestamps))
	for _, ts := range timestamps {
		index, _ := h.info.FrameAt(ts)
		if frame, ok := h.ReadFrame(ctx, index); ok {
			frames = append(frames, frame)
		}
	}
	return frames
}

// Stream starts a sequential read at frame start. The stream is closed together
// with the handle if the caller does not close it first.
func (h *Handle) Stream(ctx context.Context, start int) (FrameReader, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, apperrors.WrapWithDetail(apperrors.CodeVideoUnavailable, "视频会话已关闭 Video handle closed", h.path, io.ErrClosedPipe)
	}
	if start < 0 {
		start = 0
	}

	reader, err := h.accessor.decoder.DecodeFrom(ctx, h.path, h.info, start)
	if err != nil {
		return nil, apperrors.WrapWithDetail(apperrors.CodeDecodeFailed, "视频解码失败 Decode failed", h.path, err)
	}
	s := &handleStream{FrameReader: reader, owner: h}
	h.streams[s] = struct{}{}
	return s, nil
}

// Close releases the session and any stream still open on it. It is safe to call more than once.
func (h *Handle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	streams := make([]*handleStream, 0, len(h.streams))
	for s := range h.streams {
		streams = append(streams, s)
	}
	h.streams = map[*handleStream]struct{}{}
	h.mu.Unlock()

	var errs []error
	for _, s := range streams {
		errs = append(errs, s.closeReader())
	}
	return errors.Join(errs...)
}

type handleStream struct {
	FrameReader
	owner *Handle
	once  sync.Once
	err   error
}

func (s *handleStream) Close() error {
	s.owner.mu.Lock()
	delete(s.owner.streams, s)
	s.owner.mu.Unlock()
	return s.closeReader()
}

func (s *handleStream) closeReader() error {
	s.once.Do(func() {
		s.err = s.FrameReader.Close()
	})
	return s.err
}
