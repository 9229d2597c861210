package annotator

import (
	"fmt"
	"image"
	"image/color"

	"github.com/nvr-ai/go-annotate/detector"
	"gocv.io/x/gocv"
)

// labelMargin is the gap between a box edge and its label baseline.
const labelMargin = 10

// Style controls how detections are drawn.
type Style struct {
	Color     color.RGBA
	Thickness int
	Font      gocv.HersheyFont
	FontScale float64
}

// DefaultStyle draws green 1 px boxes with Hershey simplex labels at scale 0.5.
func DefaultStyle() Style {
	return Style{
		Color:     color.RGBA{R: 0, G: 255, B: 0, A: 0},
		Thickness: 1,
		Font:      gocv.FontHersheySimplex,
		FontScale: 0.5,
	}
}

// LabelText returns the caption drawn next to a person box.
//
// @example
// LabelText(0.8734) // "Person 0.87"
func LabelText(confidence float32) string {
	return fmt.Sprintf("Person %.2f", confidence)
}

// LabelAnchor returns the bottom-left origin of a label for box.
//
// The label sits 10 px above the box. When the box is within 10 px of the
// top edge it moves below the box top by the text height plus 10 px, so it
// stays inside the frame.
//
// Arguments:
//   - box: The detection box.
//   - textHeight: Height of the rendered label text in pixels.
//
// Returns:
//   - The point to pass to gocv.PutText.
func LabelAnchor(box image.Rectangle, textHeight int) image.Point {
	if box.Min.Y > labelMargin {
		return image.Pt(box.Min.X, box.Min.Y-labelMargin)
	}
	return image.Pt(box.Min.X, box.Min.Y+textHeight+labelMargin)
}

// TextSize measures text in this style.
func (s Style) TextSize(text string) image.Point {
	return gocv.GetTextSize(text, s.Font, s.FontScale, s.Thickness)
}

// Draw renders the box outline and confidence label of d onto frame.
func (s Style) Draw(frame *gocv.Mat, d detector.Detection) {
	gocv.Rectangle(frame, d.Box, s.Color, s.Thickness)

	text := LabelText(d.Confidence)
	anchor := LabelAnchor(d.Box, s.TextSize(text).Y)
	gocv.PutText(frame, text, anchor, s.Font, s.FontScale, s.Color, s.Thickness)
}
