package images

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// FrameGenerator creates deterministic BGR frames for tests and synthetic sources.
//
// @example
// gen := NewFrameGenerator(640, 480)
// frame := gen.Solid(color.RGBA{40, 40, 40, 0})
// defer frame.Close()
type FrameGenerator struct {
	width  int
	height int
}

// NewFrameGenerator creates a new frame generator with specified dimensions.
//
// Arguments:
//   - width: Frame width in pixels.
//   - height: Frame height in pixels.
//
// Returns:
//   - A configured FrameGenerator instance.
func NewFrameGenerator(width, height int) *FrameGenerator {
	return &FrameGenerator{width: width, height: height}
}

// Size returns the frame dimensions produced by the generator.
func (g *FrameGenerator) Size() image.Point {
	return image.Pt(g.width, g.height)
}

// Solid creates a frame filled with a single colour.
func (g *FrameGenerator) Solid(c color.RGBA) gocv.Mat {
	frame := gocv.NewMatWithSize(g.height, g.width, gocv.MatTypeCV8UC3)
	frame.SetTo(gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0))
	return frame
}

// Sequence creates n frames whose grey level differs per index, so that every
// frame of a synthetic video has a distinct checksum.
func (g *FrameGenerator) Sequence(n int) []gocv.Mat {
	frames := make([]gocv.Mat, 0, n)
	for i := 0; i < n; i++ {
		level := uint8(16 + (i*37)%200)
		frames = append(frames, g.Solid(color.RGBA{level, level, level, 0}))
	}
	return frames
}
