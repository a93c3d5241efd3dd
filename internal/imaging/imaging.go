// Package imaging holds the pixel math shared by key-frame selection, fingerprinting
// and quality analysis. All functions take BGR24 frames.
package imaging

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"vidset/internal/media"
)

// Gray converts with BT.601 luma weights 0.299R + 0.587G + 0.114B.
func Gray(f media.Frame) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
	if f.Empty() {
		return g
	}
	for y := 0; y < f.Height; y++ {
		src := f.Data[y*f.Stride() : (y+1)*f.Stride()]
		dst := g.Pix[y*g.Stride : y*g.Stride+f.Width]
		for x := range dst {
			b, gr, r := float64(src[x*3]), float64(src[x*3+1]), float64(src[x*3+2])
			dst[x] = uint8(math.Round(0.299*r + 0.587*gr + 0.114*b))
		}
	}
	return g
}

// Resize scales with bilinear interpolation.
func Resize(f media.Frame, width, height int) media.Frame {
	if f.Width == width && f.Height == height {
		return f
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if !f.Empty() {
		draw.BiLinear.Scale(dst, dst.Bounds(), f.RGBA(), f.Bounds(), draw.Src, nil)
	}
	return media.FromImage(dst)
}

// LaplacianVariance is the variance of the 3x3 Laplacian response
// [0 1 0; 1 -4 1; 0 1 0] with mirrored (reflect-101) borders. Higher means sharper.
func LaplacianVariance(g *image.Gray) float64 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if w == 0 || h == 0 {
		return 0
	}
	at := func(x, y int) float64 {
		return float64(g.Pix[reflect101(y, h)*g.Stride+reflect101(x, w)])
	}

	var sum, sumSq float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := at(x, y-1) + at(x-1, y) - 4*at(x, y) + at(x+1, y) + at(x, y+1)
			sum += v
			sumSq += v * v
		}
	}
	n := float64(w * h)
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		return 0
	}
	return variance
}

func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// Sharpness is LaplacianVariance of the grayscale frame.
func Sharpness(f media.Frame) float64 {
	return LaplacianVariance(Gray(f))
}

// MeanIntensity averages every channel byte of the frame.
func MeanIntensity(f media.Frame) float64 {
	if f.Empty() {
		return 0
	}
	data := f.Data[:f.Width*f.Height*3]
	var sum uint64
	for _, v := range data {
		sum += uint64(v)
	}
	return float64(sum) / float64(len(data))
}

// MeanAbsDiff is the mean absolute per-byte difference of two equally sized frames.
// Frames of different geometry are treated as maximally different.
func MeanAbsDiff(a, b media.Frame) float64 {
	if a.Width != b.Width || a.Height != b.Height || a.Empty() || b.Empty() {
		return 255
	}
	n := a.Width * a.Height * 3
	var sum uint64
	for i := 0; i < n; i++ {
		d := int(a.Data[i]) - int(b.Data[i])
		if d < 0 {
			d = -d
		}
		sum += uint64(d)
	}
	return float64(sum) / float64(n)
}
