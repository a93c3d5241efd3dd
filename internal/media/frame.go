package media

import (
	"image"
	"image/color"
	"image/draw"
)

// Frame is a decoded picture stored as packed BGR24: three bytes per pixel in
// blue, green, red order, rows top to bottom with a stride of 3*Width. The same
// layout is used by decoding, encoding, hashing and augmentation, so fingerprints
// depend on it. Frames are not modified after they are produced.
type Frame struct {
	Width  int
	Height int
	Data   []byte
}

// NewFrame allocates a black frame.
func NewFrame(width, height int) Frame {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return Frame{Width: width, Height: height, Data: make([]byte, width*height*3)}
}

func (f Frame) Empty() bool {
	return f.Width <= 0 || f.Height <= 0 || len(f.Data) < f.Width*f.Height*3
}

func (f Frame) Stride() int {
	return f.Width * 3
}

// BGR returns the channel values of the pixel at (x, y).
func (f Frame) BGR(x, y int) (b, g, r uint8) {
	i := y*f.Stride() + x*3
	return f.Data[i], f.Data[i+1], f.Data[i+2]
}

func (f Frame) Clone() Frame {
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	return Frame{Width: f.Width, Height: f.Height, Data: data}
}

func (f Frame) ColorModel() color.Model {
	return color.RGBAModel
}

func (f Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

func (f Frame) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(f.Bounds())) {
		return color.RGBA{}
	}
	b, g, r := f.BGR(x, y)
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// RGBA copies the frame into an *image.RGBA.
func (f Frame) RGBA() *image.RGBA {
	dst := image.NewRGBA(f.Bounds())
	for y := 0; y < f.Height; y++ {
		src := f.Data[y*f.Stride() : (y+1)*f.Stride()]
		row := dst.Pix[y*dst.Stride : y*dst.Stride+f.Width*4]
		for x := 0; x < f.Width; x++ {
			row[x*4] = src[x*3+2]
			row[x*4+1] = src[x*3+1]
			row[x*4+2] = src[x*3]
			row[x*4+3] = 0xff
		}
	}
	return dst
}

// FromImage converts any image into a BGR24 frame anchored at the origin.
func FromImage(img image.Image) Frame {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	frame := NewFrame(bounds.Dx(), bounds.Dy())
	for y := 0; y < frame.Height; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+frame.Width*4]
		dst := frame.Data[y*frame.Stride() : (y+1)*frame.Stride()]
		for x := 0; x < frame.Width; x++ {
			dst[x*3] = row[x*4+2]
			dst[x*3+1] = row[x*4+1]
			dst[x*3+2] = row[x*4]
		}
	}
	return frame
}
