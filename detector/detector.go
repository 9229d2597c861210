// Package detector - Object detection over decoded video frames.
//
// A Detector is loaded once by the caller and then invoked synchronously for
// every frame. Two ONNX backends are provided: OpenCV DNN (NetDetector) and
// ONNX Runtime (ORTDetector). Both expect YOLOv8-style exports with a single
// [1, 4+C, N] output.
package detector

import (
	"fmt"
	"image"

	"github.com/cyclopcam/logs"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Detection is one object found by the model in a frame.
type Detection struct {
	// ClassID is the index into the model's class list.
	ClassID int `json:"class_id"`
	// Confidence is the class score in [0, 1].
	Confidence float32 `json:"confidence"`
	// Box is the object's bounds in frame pixels (Min = x1,y1; Max = x2,y2).
	Box image.Rectangle `json:"box"`
}

func (d Detection) String() string {
	return fmt.Sprintf("%s (%.2f) %v", ClassName(d.ClassID), d.Confidence, d.Box)
}

// Detector finds objects in a single frame.
type Detector interface {
	// Detect runs inference on frame and returns the detections in model
	// order. The frame is not modified.
	Detect(frame gocv.Mat) ([]Detection, error)
}

// Model is a Detector that owns native resources.
type Model interface {
	Detector
	Close() error
}

// Backend selects the inference library.
type Backend string

const (
	// BackendOpenCV runs the model through OpenCV's DNN module.
	BackendOpenCV Backend = "opencv"
	// BackendONNXRuntime runs the model through ONNX Runtime.
	BackendONNXRuntime Backend = "onnxruntime"
)

// Provider selects the ONNX Runtime execution provider.
type Provider string

const (
	ProviderCPU      Provider = "cpu"
	ProviderCUDA     Provider = "cuda"
	ProviderCoreML   Provider = "coreml"
	ProviderOpenVINO Provider = "openvino"
)

// Config represents the configuration of a detector.
type Config struct {
	// Backend is the inference library to use.
	Backend Backend
	// ModelPath is the path to the ONNX model file.
	ModelPath string
	// InputShape is the model input size (width, height).
	InputShape image.Point
	// ScoreThreshold drops candidates below this class score before NMS.
	ScoreThreshold float32
	// NMSThreshold is the IoU above which overlapping boxes of the same class are suppressed.
	NMSThreshold float32
	// Classes lists the model's class names in output order.
	Classes []string

	// Provider is the ONNX Runtime execution provider.
	Provider Provider
	// LibraryPath is the path to the ONNX Runtime shared library.
	LibraryPath string
	// InputName and OutputName are the graph tensor names.
	InputName  string
	OutputName string
	// IntraOpThreads and InterOpThreads size ONNX Runtime's thread pools (0 = library default).
	IntraOpThreads int
	InterOpThreads int
}

// DefaultConfig returns the configuration for a stock YOLOv8 COCO export.
//
// Returns:
//   - Config: Configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendOpenCV,
		ModelPath:      "yolov8n.onnx",
		InputShape:     image.Point{X: 640, Y: 640},
		ScoreThreshold: 0.25,
		NMSThreshold:   0.45,
		Classes:        COCOClasses,
		Provider:       ProviderCPU,
		LibraryPath:    SharedLibPath(),
		InputName:      "images",
		OutputName:     "output0",
	}
}

// ClassID returns the index of name in the configured class list, or -1.
//
// @example
// cfg.ClassID("person") // 0 for COCO exports
func (c Config) ClassID(name string) int {
	for i, n := range c.Classes {
		if n == name {
			return i
		}
	}
	return -1
}

// Validate checks that the configuration can be used to load a model.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model path is required")
	}
	if c.InputShape.X <= 0 || c.InputShape.Y <= 0 {
		return errors.Errorf("invalid input shape %v", c.InputShape)
	}
	if c.InputShape.X%32 != 0 || c.InputShape.Y%32 != 0 {
		return errors.Errorf("input shape %v must be a multiple of 32", c.InputShape)
	}
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 1 {
		return errors.Errorf("score threshold %v out of range [0,1]", c.ScoreThreshold)
	}
	if c.NMSThreshold < 0 || c.NMSThreshold > 1 {
		return errors.Errorf("nms threshold %v out of range [0,1]", c.NMSThreshold)
	}
	if len(c.Classes) == 0 {
		return errors.New("class list is empty")
	}
	switch c.Backend {
	case BackendOpenCV, BackendONNXRuntime:
	default:
		return errors.Errorf("unknown backend %q", c.Backend)
	}
	switch c.Provider {
	case ProviderCPU, ProviderCUDA, ProviderCoreML, ProviderOpenVINO:
	default:
		return errors.Errorf("unknown execution provider %q", c.Provider)
	}
	return nil
}

// New loads the model described by cfg with the configured backend.
//
// Arguments:
//   - cfg: The detector configuration.
//   - log: Logger for model initialisation messages.
//
// Returns:
//   - Model: The loaded detector. The caller must Close it.
//   - error: If the configuration is invalid or the model cannot be loaded.
func New(cfg Config, log logs.Log) (Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "detector config")
	}
	switch cfg.Backend {
	case BackendONNXRuntime:
		return NewORTDetector(cfg, log)
	default:
		return NewNetDetector(cfg, log)
	}
}
