package video

import (
	"os"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// FileIO is the gocv (OpenCV videoio) implementation of IO.
type FileIO struct{}

// OpenSource opens a video file for sequential decoding.
//
// Arguments:
//   - path: Path to a video file in any container OpenCV can decode.
//
// Returns:
//   - Source: The opened source.
//   - error: If the file is missing, cannot be decoded, or has no usable metadata.
func (FileIO) OpenSource(path string) (Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "stat %s", path)
	}

	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, errors.Errorf("open %s: capture not opened", path)
	}

	meta := Metadata{
		Width:  int(capture.Get(gocv.VideoCaptureFrameWidth)),
		Height: int(capture.Get(gocv.VideoCaptureFrameHeight)),
		FPS:    capture.Get(gocv.VideoCaptureFPS),
	}
	if err := meta.Validate(); err != nil {
		capture.Close()
		return nil, errors.Wrapf(err, "metadata of %s", path)
	}

	return &fileSource{capture: capture, meta: meta}, nil
}

// CreateSink creates (or truncates) a video file for encoding.
//
// Arguments:
//   - path: Output file path.
//   - codec: Four character codec code, e.g. "mp4v" or "avc1".
//   - meta: Geometry and frame rate of the frames that will be written.
//
// Returns:
//   - Sink: The opened sink.
//   - error: If the encoder cannot be created.
func (FileIO) CreateSink(path string, codec string, meta Metadata) (Sink, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if len(codec) != 4 {
		return nil, errors.Errorf("codec %q is not a FourCC", codec)
	}

	writer, err := gocv.VideoWriterFile(path, codec, meta.FPS, meta.Width, meta.Height, true)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, errors.Errorf("create %s: writer not opened", path)
	}

	return &fileSink{writer: writer, path: path}, nil
}

type fileSource struct {
	capture *gocv.VideoCapture
	meta    Metadata
}

func (s *fileSource) Metadata() Metadata { return s.meta }

func (s *fileSource) Read(dst *gocv.Mat) bool {
	if ok := s.capture.Read(dst); !ok {
		return false
	}
	return !dst.Empty()
}

func (s *fileSource) Close() error {
	return s.capture.Close()
}

type fileSink struct {
	writer *gocv.VideoWriter
	path   string
}

func (s *fileSink) Write(frame gocv.Mat) error {
	if err := s.writer.Write(frame); err != nil {
		return errors.Wrapf(err, "write %s", s.path)
	}
	return nil
}

func (s *fileSink) Close() error {
	return s.writer.Close()
}
