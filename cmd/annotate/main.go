// Command annotate draws boxes around the people in a video file.
//
// The annotated file's path is the only thing printed to stdout; logs go to stderr.
//
// @example
// annotate -i crowd.mp4 -m yolov8n.onnx -t 0.6
// annotate -i crowd.mp4 -c annotate.yaml --pipeline
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/nvr-ai/go-annotate/annotator"
	"github.com/nvr-ai/go-annotate/config"
	"github.com/nvr-ai/go-annotate/detector"
	"github.com/nvr-ai/go-annotate/profiler"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

func main() {
	os.Exit(execute(os.Args, os.Stdout, os.Stderr))
}

// execute runs the command with args and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	parser := argparse.NewParser("annotate", "Mark people in a video and write <name>_detected.mp4")
	input := parser.String("i", "input", &argparse.Options{Help: "Input video file", Required: true})
	configPath := parser.String("c", "config", &argparse.Options{Help: "YAML configuration file"})
	model := parser.String("m", "model", &argparse.Options{Help: "ONNX model file"})
	threshold := parser.Float("t", "threshold", &argparse.Options{Help: "Draw people with confidence above this value", Default: -1.0})
	outputDir := parser.String("o", "output-dir", &argparse.Options{Help: "Directory for the annotated video"})
	backend := parser.Selector("b", "backend", []string{"opencv", "onnxruntime"}, &argparse.Options{Help: "Inference backend"})
	codec := parser.String("", "codec", &argparse.Options{Help: "FourCC of the output video"})
	pipeline := parser.Flag("", "pipeline", &argparse.Options{Help: "Decode, detect and encode on separate goroutines", Default: false})
	if err := parser.Parse(args); err != nil {
		fmt.Fprint(stderr, parser.Usage(err))
		return 1
	}

	logger := newLogger(stderr)
	defer logger.Close()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			logger.Errorf("%v", err)
			return 1
		}
	}
	if *model != "" {
		cfg.Model.Path = *model
	}
	if *backend != "" {
		cfg.Model.Backend = *backend
	}
	if *threshold >= 0 {
		cfg.Annotate.Threshold = float32(*threshold)
	}
	if *outputDir != "" {
		cfg.Annotate.OutputDir = *outputDir
	}
	if *codec != "" {
		cfg.Annotate.Codec = *codec
	}
	if *pipeline {
		cfg.Annotate.Pipeline = true
	}

	outputPath, err := run(logger, cfg, *input, detector.New)
	if err != nil {
		logger.Errorf("%v", err)
		return 1
	}
	fmt.Fprintf(stdout, "Annotated video written to %s\n", outputPath)
	return 0
}

// newLogger returns a cyclopcam logger that writes to w.
func newLogger(w io.Writer) logs.Log {
	return &logs.Logger{Output: w}
}

// loadFunc loads the detector described by a configuration.
type loadFunc func(cfg detector.Config, log logs.Log) (detector.Model, error)

func run(logger logs.Log, cfg *config.Config, input string, load loadFunc) (outputPath string, err error) {
	if err := cfg.Validate(); err != nil {
		return "", errors.Wrap(err, "invalid configuration")
	}

	if cfg.Annotate.OutputDir != "" {
		if err := os.MkdirAll(cfg.Annotate.OutputDir, 0o755); err != nil {
			return "", errors.Wrap(err, "failed to create output directory")
		}
	}

	dcfg := cfg.Detector()
	det, err := load(dcfg, logger)
	if err != nil {
		return "", err
	}
	defer func() {
		multierr.AppendInto(&err, errors.Wrap(det.Close(), "close detector"))
	}()

	opts := []annotator.Option{
		annotator.WithThreshold(cfg.Annotate.Threshold),
		annotator.WithPersonClass(dcfg.ClassID(config.PersonClass)),
		annotator.WithCodec(cfg.Annotate.Codec),
		annotator.WithOutputDir(cfg.Annotate.OutputDir),
		annotator.WithLogger(logger),
		annotator.WithProfiler(profiler.New()),
	}
	if cfg.Annotate.Pipeline {
		opts = append(opts, annotator.WithPipeline(cfg.Annotate.QueueSize))
	}

	return annotator.New(det, opts...).Annotate(input)
}
