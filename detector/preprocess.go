package detector

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// fillTensor writes img into dst as planar RGB float32 in [0, 1], resized to
// input with Lanczos3 resampling.
//
// Arguments:
//   - img: The image to prepare.
//   - input: The model input size.
//   - dst: The destination tensor data (3 * input.X * input.Y floats).
//
// Returns:
//   - error: If dst is too small.
func fillTensor(img image.Image, input image.Point, dst []float32) error {
	channelSize := input.X * input.Y
	if len(dst) < channelSize*3 {
		return errors.Errorf("destination tensor only holds %d floats, needs %d", len(dst), channelSize*3)
	}
	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]

	resized := resize.Resize(uint(input.X), uint(input.Y), img, resize.Lanczos3)
	bounds := resized.Bounds()

	i := 0
	for y := 0; y < input.Y; y++ {
		for x := 0; x < input.X; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
			i++
		}
	}
	return nil
}
