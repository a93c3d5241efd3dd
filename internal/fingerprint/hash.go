package fingerprint

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/corona10/goimagehash"
	"go.uber.org/zap"

	"vidset/internal/imaging"
	"vidset/internal/keyframe"
	"vidset/internal/media"
	"vidset/log"
	apperrors "vidset/pkg/errors"
)

// Method selects how a sampled frame is reduced to a hash string.
type Method int

const (
	// Digest hashes the raw bytes of an 8x8 grayscale reduction with MD5 (32 hex chars per frame).
	Digest Method = iota
	// Perceptual uses a DCT perception hash (16 hex chars per frame).
	Perceptual
)

const (
	DefaultSampleCount = 10
	ReducedSize        = 8
)

var methodNames = map[Method]string{
	Digest:     "digest",
	Perceptual: "perceptual",
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return "unknown"
}

func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "digest", "md5":
		return Digest, nil
	case "perceptual", "phash":
		return Perceptual, nil
	}
	return 0, apperrors.Newf(apperrors.CodeInvalidParams, "未知的指纹算法 unknown fingerprint method %q", name)
}

// FrameHash reduces one frame to its hash string.
func FrameHash(frame media.Frame, method Method) (string, error) {
	if frame.Empty() {
		return "", media.ErrFrameUnavailable
	}
	switch method {
	case Digest:
		small := imaging.Gray(imaging.Resize(frame, ReducedSize, ReducedSize))
		sum := md5.Sum(small.Pix)
		return hex.EncodeToString(sum[:]), nil
	case Perceptual:
		h, err := goimagehash.PerceptionHash(frame)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%016x", h.GetHash()), nil
	}
	return "", apperrors.Newf(apperrors.CodeInvalidParams, "unknown fingerprint method %d", int(method))
}

// Hasher fingerprints videos from uniformly sampled frames.
type Hasher struct {
	selector    *keyframe.Selector
	method      Method
	sampleCount int
}

func NewHasher(selector *keyframe.Selector, method Method, sampleCount int) *Hasher {
	if sampleCount <= 0 {
		sampleCount = DefaultSampleCount
	}
	return &Hasher{selector: selector, method: method, sampleCount: sampleCount}
}

func (h *Hasher) Method() Method {
	return h.method
}

func (h *Hasher) SampleCount() int {
	return h.sampleCount
}

// Fingerprint concatenates the per-frame hashes in frame order. An unreadable
// video yields an empty fingerprint.
func (h *Hasher) Fingerprint(ctx context.Context, path string) string {
	frames, err := h.selector.Select(ctx, path, keyframe.Options{Strategy: keyframe.Uniform, Count: h.sampleCount})
	if err != nil {
		log.GetLogger().Warn("fingerprint: sampling failed", zap.String("path", path), zap.Error(err))
		return ""
	}

	var sb strings.Builder
	for _, kf := range frames {
		sum, err := FrameHash(kf.Frame, h.method)
		if err != nil {
			log.GetLogger().Debug("fingerprint: frame skipped", zap.String("path", path), zap.Int("index", kf.Index), zap.Error(err))
			continue
		}
		sb.WriteString(sum)
	}
	return sb.String()
}

// Comparable reports whether two fingerprints can be compared at all.
func Comparable(a, b string) bool {
	return a != "" && b != "" && len(a) == len(b)
}

// Similarity is the fraction of positions holding the same character. Fingerprints
// that are not Comparable score 0.
func Similarity(a, b string) float64 {
	if !Comparable(a, b) {
		return 0
	}
	same := 0
	for i := 0; i < len(a); i++ {
		if a[i] == b[i] {
			same++
		}
	}
	return float64(same) / float64(len(a))
}
