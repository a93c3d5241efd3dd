package media

import (
	"context"
	"errors"
)

// ErrFrameUnavailable is returned by decoders when a frame cannot be produced.
var ErrFrameUnavailable = errors.New("frame unavailable")

// Decoder is a video backend. Every call opens and releases its own decode resources.
type Decoder interface {
	Probe(ctx context.Context, path string) (VideoInfo, error)
	DecodeFrame(ctx context.Context, path string, info VideoInfo, index int) (Frame, error)
	// DecodeFrom starts a sequential decode at frame start. The reader yields io.EOF at end of stream.
	DecodeFrom(ctx context.Context, path string, info VideoInfo, start int) (FrameReader, error)
}

type FrameReader interface {
	Next() (Frame, error)
	Close() error
}

type Encoder interface {
	Create(ctx context.Context, path string, width, height int, fps float64) (FrameWriter, error)
}

type FrameWriter interface {
	WriteFrame(frame Frame) error
	Close() error
}
