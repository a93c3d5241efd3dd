package mediatest

import (
	"vidset/internal/media"
)

// Solid returns a frame filled with one BGR colour.
func Solid(width, height int, b, g, r uint8) media.Frame {
	f := media.NewFrame(width, height)
	for i := 0; i < len(f.Data); i += 3 {
		f.Data[i], f.Data[i+1], f.Data[i+2] = b, g, r
	}
	return f
}

// Checkerboard alternates black and white cells; it is the sharpest pattern at a given cell size.
func Checkerboard(width, height, cell int) media.Frame {
	if cell <= 0 {
		cell = 1
	}
	f := media.NewFrame(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if (x/cell+y/cell)%2 == 0 {
				continue
			}
			i := y*f.Stride() + x*3
			f.Data[i], f.Data[i+1], f.Data[i+2] = 255, 255, 255
		}
	}
	return f
}

// Pattern is a deterministic texture that differs for every seed.
func Pattern(width, height, seed int) media.Frame {
	f := media.NewFrame(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*f.Stride() + x*3
			f.Data[i] = uint8((x*7 + y*3 + seed*31) % 256)
			f.Data[i+1] = uint8((x*x + y*5 + seed*17) % 256)
			f.Data[i+2] = uint8((x*y + seed*53) % 256)
		}
	}
	return f
}

// Clip builds a video of n frames from gen.
func Clip(fps float64, n int, gen func(i int) media.Frame) Video {
	frames := make([]media.Frame, n)
	for i := range frames {
		frames[i] = gen(i)
	}
	return Video{FPS: fps, Frames: frames}
}

// Still repeats the same solid frame n times.
func Still(fps float64, n, width, height int, level uint8) Video {
	return Clip(fps, n, func(int) media.Frame { return Solid(width, height, level, level, level) })
}
