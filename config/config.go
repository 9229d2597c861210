// Package config - YAML configuration for the annotate command.
package config

import (
	"image"
	"os"

	"github.com/nvr-ai/go-annotate/detector"
	"github.com/nvr-ai/go-annotate/video"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// PersonClass is the class name the annotator draws.
const PersonClass = "person"

// Config is the complete annotate configuration.
type Config struct {
	Model    ModelConfig    `yaml:"model"`
	Annotate AnnotateConfig `yaml:"annotate"`
}

// ModelConfig describes the detector to load.
type ModelConfig struct {
	Path           string   `yaml:"path"`
	Backend        string   `yaml:"backend"`         // opencv, onnxruntime
	Provider       string   `yaml:"provider"`        // cpu, cuda, coreml, openvino
	LibraryPath    string   `yaml:"library_path"`    // onnxruntime shared library
	InputWidth     int      `yaml:"input_width"`
	InputHeight    int      `yaml:"input_height"`
	ScoreThreshold float32  `yaml:"score_threshold"` // candidate score before NMS
	NMSThreshold   float32  `yaml:"nms_threshold"`
	// Classes lists the model's class names in output order; empty means COCO.
	Classes        []string `yaml:"classes"`
	IntraOpThreads int      `yaml:"intra_op_threads"`
	InterOpThreads int      `yaml:"inter_op_threads"`
}

// AnnotateConfig controls the annotation run.
type AnnotateConfig struct {
	Threshold float32 `yaml:"threshold"` // a person is drawn when confidence > threshold
	Codec     string  `yaml:"codec"`     // FourCC of the output video
	OutputDir string  `yaml:"output_dir"`
	Pipeline  bool    `yaml:"pipeline"`
	QueueSize int     `yaml:"queue_size"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	d := detector.DefaultConfig()
	return &Config{
		Model: ModelConfig{
			Path:           d.ModelPath,
			Backend:        string(d.Backend),
			Provider:       string(d.Provider),
			LibraryPath:    d.LibraryPath,
			InputWidth:     d.InputShape.X,
			InputHeight:    d.InputShape.Y,
			ScoreThreshold: d.ScoreThreshold,
			NMSThreshold:   d.NMSThreshold,
		},
		Annotate: AnnotateConfig{
			Threshold: 0.5,
			Codec:     video.DefaultCodec,
			QueueSize: 4,
		},
	}
}

// Load reads a YAML file on top of the defaults and validates the result.
// Keys missing from the file keep their default values.
//
// Arguments:
//   - path: The YAML file to read.
//
// Returns:
//   - *Config: The merged configuration.
//   - error: If the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// Validate checks both sections.
func (c *Config) Validate() error {
	if err := c.Detector().Validate(); err != nil {
		return errors.Wrap(err, "model")
	}
	if c.Detector().ClassID(PersonClass) < 0 {
		return errors.Errorf("model: class list has no %q class", PersonClass)
	}
	a := c.Annotate
	if a.Threshold < 0 || a.Threshold > 1 {
		return errors.Errorf("annotate: threshold %v out of range [0,1]", a.Threshold)
	}
	if len(a.Codec) != 4 {
		return errors.Errorf("annotate: codec %q is not a FourCC", a.Codec)
	}
	if a.Pipeline && a.QueueSize <= 0 {
		return errors.Errorf("annotate: queue size %d must be positive", a.QueueSize)
	}
	return nil
}

// Detector converts the model section into a detector configuration.
func (c *Config) Detector() detector.Config {
	d := detector.DefaultConfig()
	d.ModelPath = c.Model.Path
	d.Backend = detector.Backend(c.Model.Backend)
	d.Provider = detector.Provider(c.Model.Provider)
	d.LibraryPath = c.Model.LibraryPath
	d.InputShape = image.Pt(c.Model.InputWidth, c.Model.InputHeight)
	d.ScoreThreshold = c.Model.ScoreThreshold
	d.NMSThreshold = c.Model.NMSThreshold
	if len(c.Model.Classes) > 0 {
		d.Classes = c.Model.Classes
	}
	d.IntraOpThreads = c.Model.IntraOpThreads
	d.InterOpThreads = c.Model.InterOpThreads
	return d
}
