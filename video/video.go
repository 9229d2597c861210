// Package video - Sequential frame decode/encode against video files.
//
// The annotator talks to video through the IO interface so that the gocv
// backed FileIO can be swapped for the in-memory MemoryIO in tests.
package video

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// DefaultCodec is the FourCC used for annotated output (MPEG-4 in an .mp4 container).
const DefaultCodec = "mp4v"

// Metadata describes the geometry and timing of a video. It is read once when
// the source is opened and reused unchanged for the sink.
type Metadata struct {
	Width  int     `json:"width" yaml:"width"`
	Height int     `json:"height" yaml:"height"`
	FPS    float64 `json:"fps" yaml:"fps"`
}

// Validate reports whether the metadata describes a decodable video.
func (m Metadata) Validate() error {
	if m.Width <= 0 || m.Height <= 0 {
		return errors.Errorf("invalid frame size %dx%d", m.Width, m.Height)
	}
	if math.IsNaN(m.FPS) || math.IsInf(m.FPS, 0) || m.FPS <= 0 {
		return errors.Errorf("invalid frame rate %v", m.FPS)
	}
	return nil
}

// String formats the metadata as 1920x1080@25.00, followed by the resolution
// name when the size is a known standard.
func (m Metadata) String() string {
	s := fmt.Sprintf("%dx%d@%.2f", m.Width, m.Height, m.FPS)
	if r, ok := LookupResolution(m.Width, m.Height); ok {
		s += " (" + r.Name + ")"
	}
	return s
}

// Source yields decoded frames in presentation order.
type Source interface {
	// Metadata returns the geometry and frame rate of the video.
	Metadata() Metadata
	// Read decodes the next frame into dst. It returns false once the
	// source is exhausted.
	Read(dst *gocv.Mat) bool
	// Close releases the decoder.
	Close() error
}

// Sink accepts frames in presentation order.
type Sink interface {
	Write(frame gocv.Mat) error
	Close() error
}

// IO opens sources and creates sinks.
type IO interface {
	OpenSource(path string) (Source, error)
	CreateSink(path string, codec string, meta Metadata) (Sink, error)
}
