package detector

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/cyclopcam/logs"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"
)

// ORTDetector runs an ONNX model through ONNX Runtime with preallocated tensors.
type ORTDetector struct {
	cfg     Config
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// NewORTDetector creates an ONNX Runtime session for the model at cfg.ModelPath.
//
// The ONNX Runtime environment is initialised on first use and shared by all
// detectors of the process.
//
// Arguments:
//   - cfg: The detector configuration.
//   - log: Logger for initialisation messages.
//
// Returns:
//   - *ORTDetector: The loaded detector.
//   - error: If the runtime library or the model cannot be loaded.
func NewORTDetector(cfg Config, log logs.Log) (*ORTDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrap(err, "model file")
	}
	if err := initEnvironment(cfg.LibraryPath); err != nil {
		return nil, err
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(cfg.InputShape.Y), int64(cfg.InputShape.X)))
	if err != nil {
		return nil, errors.Wrap(err, "create input tensor")
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+len(cfg.Classes)), int64(anchorCount(cfg.InputShape))))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "create output tensor")
	}

	options, err := sessionOptions(cfg)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.Value{input},
		[]ort.Value{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "create ORT session")
	}

	log.Infof("ONNX Runtime detector loaded model %s (input %dx%d, provider %s)",
		cfg.ModelPath, cfg.InputShape.X, cfg.InputShape.Y, cfg.Provider)

	return &ORTDetector{cfg: cfg, session: session, input: input, output: output}, nil
}

var envOnce struct {
	sync.Mutex
	done bool
}

func initEnvironment(libPath string) error {
	envOnce.Lock()
	defer envOnce.Unlock()
	if envOnce.done || ort.IsInitialized() {
		envOnce.done = true
		return nil
	}
	if libPath != "" {
		if _, err := os.Stat(libPath); err != nil {
			return errors.Wrapf(err, "ONNX Runtime library not found at %s", libPath)
		}
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "initialize ORT environment")
	}
	envOnce.done = true
	return nil
}

func sessionOptions(cfg Config) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "create ORT session options")
	}
	fail := func(err error, what string) (*ort.SessionOptions, error) {
		options.Destroy()
		return nil, errors.Wrap(err, what)
	}

	if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
		return fail(err, "set intra-op threads")
	}
	if err := options.SetInterOpNumThreads(cfg.InterOpThreads); err != nil {
		return fail(err, "set inter-op threads")
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		return fail(err, "set graph optimization level")
	}

	switch cfg.Provider {
	case ProviderCoreML:
		if err := options.AppendExecutionProviderCoreML(0); err != nil {
			return fail(err, "enable CoreML")
		}
	case ProviderOpenVINO:
		err := options.AppendExecutionProviderOpenVINO(map[string]string{
			"device_type":    "CPU",
			"precision":      "FP32",
			"num_of_threads": fmt.Sprintf("%d", cfg.IntraOpThreads),
		})
		if err != nil {
			return fail(err, "enable OpenVINO")
		}
	case ProviderCUDA:
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return fail(err, "create CUDA options")
		}
		defer cuda.Destroy()
		if err := cuda.Update(map[string]string{"device_id": "0"}); err != nil {
			return fail(err, "configure CUDA")
		}
		if err := options.AppendExecutionProviderCUDA(cuda); err != nil {
			return fail(err, "enable CUDA")
		}
	}
	return options, nil
}

// Detect implements Detector.
func (d *ORTDetector) Detect(frame gocv.Mat) ([]Detection, error) {
	if frame.Empty() {
		return nil, errors.New("empty frame")
	}
	img, err := frame.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "convert frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return nil, errors.New("detector closed")
	}

	if err := fillTensor(img, d.cfg.InputShape, d.input.GetData()); err != nil {
		return nil, err
	}
	if err := d.session.Run(); err != nil {
		return nil, errors.Wrap(err, "run inference")
	}

	candidates, err := decodeYOLOv8(d.output.GetData(), decodeParams{
		numClasses:     len(d.cfg.Classes),
		input:          d.cfg.InputShape,
		frame:          image.Pt(frame.Cols(), frame.Rows()),
		scoreThreshold: d.cfg.ScoreThreshold,
	})
	if err != nil {
		return nil, err
	}
	return applyNMS(candidates, d.cfg.NMSThreshold), nil
}

// Close releases the session and its tensors.
func (d *ORTDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return nil
	}
	err := d.session.Destroy()
	d.input.Destroy()
	d.output.Destroy()
	d.session, d.input, d.output = nil, nil, nil
	return err
}
