package imaging

import (
	"image"
	"math"
	"math/rand/v2"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"vidset/internal/media"
)

// Augmentation is one random training-time transform.
type Augmentation int

const (
	AugmentFlip Augmentation = iota
	AugmentRotate
	AugmentBrightness
	AugmentContrast
	AugmentAll
)

var augmentationNames = map[string]Augmentation{
	"flip":       AugmentFlip,
	"rotate":     AugmentRotate,
	"brightness": AugmentBrightness,
	"contrast":   AugmentContrast,
	"all":        AugmentAll,
}

func ParseAugmentation(name string) (Augmentation, bool) {
	a, ok := augmentationNames[name]
	return a, ok
}

// Augmenter draws its random parameters from an explicit generator.
type Augmenter struct {
	rng *rand.Rand
}

func NewAugmenter(rng *rand.Rand) *Augmenter {
	return &Augmenter{rng: rng}
}

func (a *Augmenter) Apply(f media.Frame, kind Augmentation) media.Frame {
	switch kind {
	case AugmentFlip:
		if a.rng.Float64() > 0.5 {
			return FlipHorizontal(f)
		}
		return f
	case AugmentRotate:
		return Rotate(f, a.uniform(-15, 15))
	case AugmentBrightness:
		return AdjustLinear(f, 1, (a.uniform(0.7, 1.3)-1)*50)
	case AugmentContrast:
		return AdjustLinear(f, a.uniform(0.8, 1.2), 0)
	case AugmentAll:
		out := f
		for _, k := range []Augmentation{AugmentFlip, AugmentRotate, AugmentBrightness, AugmentContrast} {
			out = a.Apply(out, k)
		}
		return out
	}
	return f
}

func (a *Augmenter) uniform(lo, hi float64) float64 {
	return lo + a.rng.Float64()*(hi-lo)
}

func FlipHorizontal(f media.Frame) media.Frame {
	out := media.NewFrame(f.Width, f.Height)
	stride := f.Stride()
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			src := y*stride + x*3
			dst := y*stride + (f.Width-1-x)*3
			copy(out.Data[dst:dst+3], f.Data[src:src+3])
		}
	}
	return out
}

// Rotate turns the frame by angle degrees (counter-clockwise) around its centre,
// keeping the original size and filling uncovered pixels with black.
func Rotate(f media.Frame, angle float64) media.Frame {
	if f.Empty() {
		return f
	}
	rad := angle * math.Pi / 180
	alpha, beta := math.Cos(rad), math.Sin(rad)
	cx, cy := float64(f.Width)/2, float64(f.Height)/2

	// source to destination transform
	s2d := f64.Aff3{
		alpha, beta, (1-alpha)*cx - beta*cy,
		-beta, alpha, beta*cx + (1-alpha)*cy,
	}
	dst := image.NewRGBA(f.Bounds())
	draw.BiLinear.Transform(dst, s2d, f.RGBA(), f.Bounds(), draw.Src, nil)

	return media.FromImage(dst)
}

// AdjustLinear maps every byte to saturate(|alpha*v + beta|).
func AdjustLinear(f media.Frame, alpha, beta float64) media.Frame {
	if f.Empty() {
		return f
	}
	out := media.NewFrame(f.Width, f.Height)
	for i, v := range f.Data[:len(out.Data)] {
		out.Data[i] = saturate(math.Abs(alpha*float64(v) + beta))
	}
	return out
}

func saturate(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
