package detector

import (
	"image"
	"sort"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-annotate/images"
	"github.com/pkg/errors"
)

// yoloStrides are the feature map strides of the YOLOv8 detection head.
var yoloStrides = []int{8, 16, 32}

// anchorCount returns the number of candidate boxes a YOLOv8 head emits for an input shape.
//
// @example
// anchorCount(image.Pt(640, 640)) // 8400
func anchorCount(input image.Point) int {
	n := 0
	for _, s := range yoloStrides {
		n += (input.X / s) * (input.Y / s)
	}
	return n
}

// decodeParams carries what decodeYOLOv8 needs to turn raw output into frame boxes.
type decodeParams struct {
	numClasses     int
	input          image.Point
	frame          image.Point
	scoreThreshold float32
}

// decodeYOLOv8 converts a channel-major [4+C, N] YOLOv8 output into detections.
//
// Rows 0-3 hold cx, cy, w, h in model input pixels; rows 4.. hold class
// scores. For every anchor the best class is kept if it clears the score
// threshold. Boxes are scaled to frame pixels and clamped to the frame.
//
// Arguments:
//   - output: The flattened output tensor.
//   - p: Class count, model input size, frame size and score threshold.
//
// Returns:
//   - []Detection: Candidates in anchor order, before NMS.
//   - error: If the output length does not match the class count.
func decodeYOLOv8(output []float32, p decodeParams) ([]Detection, error) {
	rows := 4 + p.numClasses
	if len(output) == 0 || len(output)%rows != 0 {
		return nil, errors.Errorf("output length %d is not a multiple of %d rows", len(output), rows)
	}
	n := len(output) / rows

	sx := float32(p.frame.X) / float32(p.input.X)
	sy := float32(p.frame.Y) / float32(p.input.Y)

	var detections []Detection
	for idx := 0; idx < n; idx++ {
		classID := -1
		best := float32(-1)
		for c := 0; c < p.numClasses; c++ {
			score := output[(4+c)*n+idx]
			if score > best {
				best = score
				classID = c
			}
		}
		if best < p.scoreThreshold {
			continue
		}

		cx, cy := output[idx], output[n+idx]
		w, h := output[2*n+idx], output[3*n+idx]
		x1 := int(math32.Round((cx - w/2) * sx))
		y1 := int(math32.Round((cy - h/2) * sy))
		x2 := int(math32.Round((cx + w/2) * sx))
		y2 := int(math32.Round((cy + h/2) * sy))

		box := images.Clamp(image.Rect(x1, y1, x2, y2), p.frame.X, p.frame.Y)
		if box.Empty() {
			continue
		}
		detections = append(detections, Detection{
			ClassID:    classID,
			Confidence: math32.Min(1, math32.Max(0, best)),
			Box:        box,
		})
	}
	return detections, nil
}

// applyNMS performs greedy, class-aware Non-Maximum Suppression.
//
// Detections are ordered by descending confidence; a detection is dropped
// when its IoU with an already kept detection of the same class exceeds
// iouThreshold.
//
// Arguments:
//   - detections: Candidate detections; the slice is reordered in place.
//   - iouThreshold: IoU threshold above which overlapping boxes are suppressed.
//
// Returns:
//   - The kept detections, highest confidence first.
func applyNMS(detections []Detection, iouThreshold float32) []Detection {
	n := len(detections)
	if n == 0 {
		return nil
	}

	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Confidence > detections[j].Confidence
	})

	kept := make([]Detection, 0, n)
	used := make([]bool, n)
	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}
		anchor := detections[i]
		kept = append(kept, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] || detections[j].ClassID != anchor.ClassID {
				continue
			}
			if images.IoU(anchor.Box, detections[j].Box) > iouThreshold {
				used[j] = true
			}
		}
	}
	return kept
}
