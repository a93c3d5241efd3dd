package imaging

import (
	"image"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidset/internal/media"
	"vidset/internal/media/mediatest"
)

func TestGray(t *testing.T) {
	// pure red, green, blue
	f := media.NewFrame(3, 1)
	copy(f.Data, []byte{0, 0, 255, 0, 255, 0, 255, 0, 0})

	g := Gray(f)
	assert.Equal(t, []uint8{76, 150, 29}, g.Pix)
}

func TestResize(t *testing.T) {
	f := mediatest.Solid(32, 16, 10, 20, 30)
	small := Resize(f, 8, 8)
	require.Equal(t, 8, small.Width)
	require.Equal(t, 8, small.Height)
	b, g, r := small.BGR(4, 4)
	assert.Equal(t, []uint8{10, 20, 30}, []uint8{b, g, r})

	same := Resize(f, 32, 16)
	assert.Equal(t, f.Data, same.Data)
}

func TestLaplacianVariance(t *testing.T) {
	flat := Gray(mediatest.Solid(16, 16, 90, 90, 90))
	assert.Equal(t, 0.0, LaplacianVariance(flat))

	sharp := Sharpness(mediatest.Checkerboard(16, 16, 1))
	blurry := Sharpness(mediatest.Checkerboard(16, 16, 4))
	assert.Greater(t, sharp, blurry)
	assert.Greater(t, blurry, 0.0)

	assert.Equal(t, 0.0, LaplacianVariance(image.NewGray(image.Rect(0, 0, 0, 0))))
}

func TestLaplacianVarianceSinglePixelImpulse(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 3, 3))
	g.Pix[4] = 10
	// centre -40; edge midpoints see the impulse twice through the mirrored border (+20); corners 0
	// mean = 40/9, E[v^2] = 3200/9
	assert.InDelta(t, 27200.0/81.0, LaplacianVariance(g), 1e-9)
}

func TestReflect101(t *testing.T) {
	assert.Equal(t, 1, reflect101(-1, 5))
	assert.Equal(t, 3, reflect101(5, 5))
	assert.Equal(t, 2, reflect101(2, 5))
	assert.Equal(t, 0, reflect101(-1, 1))
}

func TestMeanIntensityAndDiff(t *testing.T) {
	f := media.NewFrame(2, 1)
	copy(f.Data, []byte{0, 30, 60, 90, 120, 150})
	assert.Equal(t, 75.0, MeanIntensity(f))
	assert.Equal(t, 0.0, MeanIntensity(media.Frame{}))

	a := mediatest.Solid(4, 4, 10, 10, 10)
	b := mediatest.Solid(4, 4, 50, 50, 50)
	assert.Equal(t, 40.0, MeanAbsDiff(a, b))
	assert.Equal(t, 40.0, MeanAbsDiff(b, a))
	assert.Equal(t, 255.0, MeanAbsDiff(a, mediatest.Solid(2, 2, 10, 10, 10)))
}

func TestFlipHorizontal(t *testing.T) {
	f := media.NewFrame(2, 1)
	copy(f.Data, []byte{1, 2, 3, 4, 5, 6})
	assert.Equal(t, []byte{4, 5, 6, 1, 2, 3}, FlipHorizontal(f).Data)
}

func TestRotateKeepsSize(t *testing.T) {
	f := mediatest.Solid(20, 10, 200, 200, 200)
	r := Rotate(f, 10)
	assert.Equal(t, 20, r.Width)
	assert.Equal(t, 10, r.Height)
	b, _, _ := r.BGR(10, 5)
	assert.Equal(t, uint8(200), b)

	zero := Rotate(f, 0)
	assert.Equal(t, f.Data, zero.Data)
}

func TestAdjustLinear(t *testing.T) {
	f := media.NewFrame(1, 1)
	copy(f.Data, []byte{100, 200, 10})

	assert.Equal(t, []byte{150, 250, 60}, AdjustLinear(f, 1, 50).Data)
	assert.Equal(t, []byte{120, 240, 12}, AdjustLinear(f, 1.2, 0).Data)
	assert.Equal(t, []byte{255, 255, 255}, AdjustLinear(f, 3, 0).Data)
	// absolute value, as with a saturating |alpha*v + beta| cast
	assert.Equal(t, []byte{80, 180, 10}, AdjustLinear(f, 1, -20).Data)
}

func TestAugmenterDeterministic(t *testing.T) {
	f := mediatest.Pattern(16, 16, 3)
	run := func() media.Frame {
		a := NewAugmenter(rand.New(rand.NewPCG(7, 7)))
		return a.Apply(f, AugmentAll)
	}
	assert.Equal(t, run().Data, run().Data)

	kind, ok := ParseAugmentation("brightness")
	assert.True(t, ok)
	assert.Equal(t, AugmentBrightness, kind)
	_, ok = ParseAugmentation("blur")
	assert.False(t, ok)
}
