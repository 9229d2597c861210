// Package annotator - Marks people in a video and writes an annotated copy.
//
// An Annotator decodes a source video frame by frame, runs the injected
// detector on every frame, draws a box and a confidence label around each
// person above the threshold, and encodes every frame, marked or not, to
// {stem}_detected.mp4 with the source's size and frame rate.
package annotator

import (
	"github.com/nvr-ai/go-annotate/detector"
	"github.com/nvr-ai/go-annotate/profiler"
	"github.com/nvr-ai/go-annotate/video"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

// DefaultConfidenceThreshold is the exclusive lower bound on a person's confidence.
const DefaultConfidenceThreshold = 0.5

// Profiler operation names.
const (
	OpDecode = "decode"
	OpDetect = "detect"
	OpDraw   = "draw"
	OpEncode = "encode"
)

// Logger is the logging surface the annotator uses. github.com/cyclopcam/logs.Log satisfies it.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// Report describes a completed annotation run.
type Report struct {
	// OutputPath is where the annotated video was written.
	OutputPath string
	// Metadata is shared by the source and the output.
	Metadata video.Metadata
	// Frames is the number of frames read, and written.
	Frames int
	// MarkedFrames is the number of frames with at least one person drawn.
	MarkedFrames int
	// Marks is the total number of person boxes drawn.
	Marks int
}

// Annotator runs the decode, detect, draw, encode loop. An Annotator may be
// reused for several videos but Run calls must not overlap.
type Annotator struct {
	detector    detector.Detector
	io          video.IO
	threshold   float32
	personClass int
	codec       string
	outputDir   string
	style       Style
	log         Logger
	prof        *profiler.Profiler
	pipelined   bool
	queueSize   int
}

// Option configures an Annotator.
type Option func(*Annotator)

// WithThreshold sets the exclusive confidence threshold.
func WithThreshold(t float32) Option {
	return func(a *Annotator) { a.threshold = t }
}

// WithPersonClass sets the class ID the detector uses for people. The
// default is the COCO person index.
func WithPersonClass(id int) Option {
	return func(a *Annotator) { a.personClass = id }
}

// WithIO replaces the gocv file IO.
func WithIO(io video.IO) Option {
	return func(a *Annotator) { a.io = io }
}

// WithOutputDir writes the annotated video into dir instead of the working directory.
func WithOutputDir(dir string) Option {
	return func(a *Annotator) { a.outputDir = dir }
}

// WithCodec sets the output FourCC.
func WithCodec(codec string) Option {
	return func(a *Annotator) { a.codec = codec }
}

// WithStyle changes box and label rendering.
func WithStyle(s Style) Option {
	return func(a *Annotator) { a.style = s }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l Logger) Option {
	return func(a *Annotator) { a.log = l }
}

// WithProfiler records per-stage timings into p.
func WithProfiler(p *profiler.Profiler) Option {
	return func(a *Annotator) { a.prof = p }
}

// WithPipeline overlaps decode, detect+draw and encode in separate goroutines
// connected by queues of queueSize frames. Frame order is preserved.
func WithPipeline(queueSize int) Option {
	return func(a *Annotator) {
		a.pipelined = true
		a.queueSize = max(1, queueSize)
	}
}

// New creates an Annotator around a loaded detector.
func New(det detector.Detector, opts ...Option) *Annotator {
	a := &Annotator{
		detector:    det,
		io:          video.FileIO{},
		threshold:   DefaultConfidenceThreshold,
		personClass: detector.ClassPerson,
		codec:       video.DefaultCodec,
		style:       DefaultStyle(),
		log:         nopLogger{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.prof == nil {
		a.prof = profiler.New()
	}
	return a
}

// Annotate marks people in the video at sourcePath using det and the given
// threshold, writing the result next to the working directory.
//
// Arguments:
//   - sourcePath: Path to the input video.
//   - det: A loaded detector.
//   - threshold: Detections with confidence <= threshold are ignored.
//
// Returns:
//   - string: The path of the annotated video.
//   - error: ErrSourceUnavailable, ErrSinkUnavailable, or the detector's own error.
func Annotate(sourcePath string, det detector.Detector, threshold float32) (string, error) {
	return New(det, WithThreshold(threshold)).Annotate(sourcePath)
}

// Annotate runs the annotator on sourcePath and returns the output path.
func (a *Annotator) Annotate(sourcePath string) (string, error) {
	report, err := a.Run(sourcePath)
	if err != nil {
		return "", err
	}
	return report.OutputPath, nil
}

// Run annotates sourcePath and reports what was written.
//
// Source and sink are closed on every return path; a partially written
// output is left on disk when the run fails.
func (a *Annotator) Run(sourcePath string) (report *Report, err error) {
	src, err := a.io.OpenSource(sourcePath)
	if err != nil {
		return nil, sourceError(sourcePath, err)
	}
	defer func() {
		multierr.AppendInto(&err, src.Close())
	}()

	meta := src.Metadata()
	if verr := meta.Validate(); verr != nil {
		return nil, sourceError(sourcePath, verr)
	}

	outputPath := OutputPath(sourcePath, a.outputDir)
	sink, err := a.io.CreateSink(outputPath, a.codec, meta)
	if err != nil {
		return nil, sinkError(outputPath, err)
	}
	defer func() {
		multierr.AppendInto(&err, sink.Close())
	}()

	a.log.Infof("Annotating %s (%v) into %s", sourcePath, meta, outputPath)

	report = &Report{OutputPath: outputPath, Metadata: meta}
	if a.pipelined {
		err = a.runPipelined(src, sink, report)
	} else {
		err = a.runSequential(src, sink, report)
	}
	if err != nil {
		a.log.Errorf("Annotation of %s stopped after %d frames: %v", sourcePath, report.Frames, err)
		return nil, err
	}

	a.log.Infof("Annotated %d frames of %s, %d with people (%d boxes)",
		report.Frames, sourcePath, report.MarkedFrames, report.Marks)
	a.prof.Report(a.log)
	return report, nil
}

func (a *Annotator) runSequential(src video.Source, sink video.Sink, report *Report) error {
	frame := gocv.NewMat()
	defer frame.Close()

	for {
		stop := a.prof.StartOperation(OpDecode)
		ok := src.Read(&frame)
		stop()
		if !ok {
			return nil
		}

		marks, err := a.annotateFrame(&frame)
		if err != nil {
			return err
		}

		if err := a.writeFrame(sink, frame, report.OutputPath); err != nil {
			return err
		}
		report.add(marks)
	}
}

// annotateFrame runs the detector on frame and draws every person above the
// threshold, in detector order. Detector errors are returned unchanged.
func (a *Annotator) annotateFrame(frame *gocv.Mat) (int, error) {
	stop := a.prof.StartOperation(OpDetect)
	detections, err := a.detector.Detect(*frame)
	stop()
	if err != nil {
		return 0, err
	}

	stop = a.prof.StartOperation(OpDraw)
	defer stop()
	marks := 0
	for _, d := range detections {
		if !a.keep(d) {
			continue
		}
		a.style.Draw(frame, d)
		marks++
	}
	return marks, nil
}

func (a *Annotator) keep(d detector.Detection) bool {
	return d.ClassID == a.personClass && d.Confidence > a.threshold
}

func (a *Annotator) writeFrame(sink video.Sink, frame gocv.Mat, outputPath string) error {
	stop := a.prof.StartOperation(OpEncode)
	defer stop()
	if err := sink.Write(frame); err != nil {
		return sinkError(outputPath, err)
	}
	return nil
}

func (r *Report) add(marks int) {
	r.Frames++
	if marks > 0 {
		r.MarkedFrames++
		r.Marks += marks
	}
}
