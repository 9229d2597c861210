package detector

import (
	"image"
	"os"
	"sync"

	"github.com/cyclopcam/logs"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// NetDetector runs an ONNX model through OpenCV's DNN module (gocv.ReadNet).
type NetDetector struct {
	cfg Config
	mu  sync.Mutex
	net gocv.Net
}

// NewNetDetector loads the model at cfg.ModelPath with OpenCV DNN.
//
// Arguments:
//   - cfg: The detector configuration.
//   - log: Logger for initialisation messages.
//
// Returns:
//   - *NetDetector: The loaded detector.
//   - error: If the model file is missing or cannot be parsed.
func NewNetDetector(cfg Config, log logs.Log) (*NetDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrap(err, "model file")
	}

	net := gocv.ReadNet(cfg.ModelPath, "")
	if net.Empty() {
		return nil, errors.Errorf("failed to load ONNX model: %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendOpenCV)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	log.Infof("OpenCV DNN detector loaded model %s (input %dx%d, %d classes)",
		cfg.ModelPath, cfg.InputShape.X, cfg.InputShape.Y, len(cfg.Classes))

	return &NetDetector{cfg: cfg, net: net}, nil
}

// Detect implements Detector.
func (d *NetDetector) Detect(frame gocv.Mat) ([]Detection, error) {
	if frame.Empty() {
		return nil, errors.New("empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	blob := gocv.BlobFromImage(frame, 1.0/255.0, d.cfg.InputShape, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "read network output")
	}

	candidates, err := decodeYOLOv8(data, decodeParams{
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

// Close releases the network.
func (d *NetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.net.Empty() {
		return nil
	}
	return d.net.Close()
}
