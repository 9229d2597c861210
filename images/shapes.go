// Package images - Image and geometry helpers shared by the detectors and the annotator.
package images

import "image"

// IoU returns the Intersection over Union of two rectangles, a value in [0, 1].
//
// Rectangles that merely touch, or that have no area, score 0.
//
// Arguments:
//   - a: The first rectangle.
//   - b: The second rectangle.
//
// Returns:
//   - The overlap ratio between a and b.
func IoU(a, b image.Rectangle) float32 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	interArea := Area(inter)
	union := Area(a) + Area(b) - interArea
	if union <= 0 {
		return 0
	}
	return float32(interArea) / float32(union)
}

// Area returns the area of r in pixels, zero for empty rectangles.
func Area(r image.Rectangle) int {
	if r.Empty() {
		return 0
	}
	size := r.Size()
	return size.X * size.Y
}

// Clamp limits r to the frame bounds of width x height.
func Clamp(r image.Rectangle, width, height int) image.Rectangle {
	return r.Canon().Intersect(image.Rect(0, 0, width, height))
}
