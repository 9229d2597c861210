package annotator

import (
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/nvr-ai/go-annotate/detector"
	"github.com/nvr-ai/go-annotate/images"
	"github.com/nvr-ai/go-annotate/profiler"
	"github.com/nvr-ai/go-annotate/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

const (
	testWidth  = 128
	testHeight = 96
	testSource = "/videos/crowd.mp4"
	testOutput = "crowd_detected.mp4"
)

var testMeta = video.Metadata{Width: testWidth, Height: testHeight, FPS: 25}

// scriptedDetector returns pre-set detections per call index.
type scriptedDetector struct {
	mu      sync.Mutex
	calls   int
	results map[int][]detector.Detection
	failAt  int
	err     error
}

func (d *scriptedDetector) Detect(frame gocv.Mat) ([]detector.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.calls
	d.calls++
	if d.err != nil && i == d.failAt {
		return nil, d.err
	}
	return d.results[i], nil
}

func person(conf float32, box image.Rectangle) detector.Detection {
	return detector.Detection{ClassID: detector.ClassPerson, Confidence: conf, Box: box}
}

// newSource registers n distinct frames at testSource and returns their checksums.
func newSource(t *testing.T, n int) (*video.MemoryIO, []string) {
	t.Helper()
	io := video.NewMemoryIO()
	t.Cleanup(io.Close)

	frames := images.NewFrameGenerator(testWidth, testHeight).Sequence(n)
	sums := make([]string, len(frames))
	for i, f := range frames {
		sums[i] = images.MatChecksum(f)
	}
	io.AddSource(testSource, &video.Clip{Meta: testMeta, Frames: frames})
	return io, sums
}

func outputSums(t *testing.T, io *video.MemoryIO, path string) []string {
	t.Helper()
	clip, ok := io.Output(path)
	require.True(t, ok, "no sink created at %s", path)
	sums := make([]string, len(clip.Frames))
	for i, f := range clip.Frames {
		sums[i] = images.MatChecksum(f)
	}
	return sums
}

func modes() map[string][]Option {
	return map[string][]Option{
		"sequential": nil,
		"pipelined":  {WithPipeline(2)},
	}
}

func TestAnnotateMarksOnlyFramesWithPeople(t *testing.T) {
	for name, extra := range modes() {
		t.Run(name, func(t *testing.T) {
			io, in := newSource(t, 3)
			box := image.Rect(20, 30, 70, 80)
			det := &scriptedDetector{results: map[int][]detector.Detection{
				1: {person(0.9, box)},
			}}

			opts := append([]Option{WithIO(io), WithThreshold(0.5), WithLogger(logs.NewTestingLog(t))}, extra...)
			report, err := New(det, opts...).Run(testSource)
			require.NoError(t, err)

			assert.Equal(t, testOutput, report.OutputPath)
			assert.Equal(t, 3, report.Frames)
			assert.Equal(t, 1, report.MarkedFrames)
			assert.Equal(t, 1, report.Marks)
			assert.Equal(t, 3, det.calls)

			out := outputSums(t, io, testOutput)
			require.Len(t, out, 3)
			assert.Equal(t, in[0], out[0])
			assert.NotEqual(t, in[1], out[1])
			assert.Equal(t, in[2], out[2])

			clip, _ := io.Output(testOutput)
			px := clip.Frames[1].GetVecbAt(50, box.Min.X)
			assert.Equal(t, gocv.Vecb{0, 255, 0}, px, "left edge of the box is green")
			inside := clip.Frames[1].GetVecbAt(50, 45)
			assert.Equal(t, gocv.Vecb{inside[0], inside[0], inside[0]}, inside, "box is an outline")
		})
	}
}

func TestAnnotatePreservesFrameOrderAndCount(t *testing.T) {
	for name, extra := range modes() {
		t.Run(name, func(t *testing.T) {
			io, in := newSource(t, 12)
			det := &scriptedDetector{}

			report, err := New(det, append([]Option{WithIO(io)}, extra...)...).Run(testSource)
			require.NoError(t, err)
			assert.Equal(t, 12, report.Frames)
			assert.Equal(t, 0, report.MarkedFrames)
			assert.Equal(t, in, outputSums(t, io, testOutput))
		})
	}
}

func TestAnnotateSinkMetadataMatchesSource(t *testing.T) {
	io, _ := newSource(t, 1)
	report, err := New(&scriptedDetector{}, WithIO(io)).Run(testSource)
	require.NoError(t, err)

	clip, ok := io.Output(testOutput)
	require.True(t, ok)
	assert.Equal(t, testMeta, clip.Meta)
	assert.Equal(t, testMeta, report.Metadata)
}

func TestAnnotateFiltersByClassAndThreshold(t *testing.T) {
	box := image.Rect(10, 20, 60, 70)
	tests := []struct {
		name   string
		dets   []detector.Detection
		marked bool
	}{
		{name: "above threshold", dets: []detector.Detection{person(0.51, box)}, marked: true},
		{name: "equal to threshold", dets: []detector.Detection{person(0.5, box)}},
		{name: "below threshold", dets: []detector.Detection{person(0.2, box)}},
		{name: "not a person", dets: []detector.Detection{{ClassID: detector.ClassIndex("car"), Confidence: 0.99, Box: box}}},
		{name: "no detections"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			io, in := newSource(t, 1)
			det := &scriptedDetector{results: map[int][]detector.Detection{0: tt.dets}}

			_, err := New(det, WithIO(io), WithThreshold(0.5)).Annotate(testSource)
			require.NoError(t, err)

			out := outputSums(t, io, testOutput)
			require.Len(t, out, 1)
			if tt.marked {
				assert.NotEqual(t, in[0], out[0])
			} else {
				assert.Equal(t, in[0], out[0])
			}
		})
	}
}

func TestAnnotateDrawsEveryKeptDetection(t *testing.T) {
	io, in := newSource(t, 1)
	first := image.Rect(20, 30, 70, 80)
	second := image.Rect(50, 50, 100, 90)
	det := &scriptedDetector{results: map[int][]detector.Detection{
		0: {person(0.9, first), person(0.7, second)},
	}}

	report, err := New(det, WithIO(io)).Run(testSource)
	require.NoError(t, err)
	assert.Equal(t, 1, report.MarkedFrames)
	assert.Equal(t, 2, report.Marks)

	clip, ok := io.Output(testOutput)
	require.True(t, ok)
	frame := clip.Frames[0]
	assert.NotEqual(t, in[0], images.MatChecksum(frame))

	green := gocv.Vecb{0, 255, 0}
	assert.Equal(t, green, frame.GetVecbAt(40, first.Min.X), "left edge of the first box")
	assert.Equal(t, green, frame.GetVecbAt(first.Min.Y, 30), "top edge of the first box")
	assert.Equal(t, green, frame.GetVecbAt(60, second.Min.X), "left edge of the second box, inside the first")
	assert.Equal(t, green, frame.GetVecbAt(second.Min.Y, 80), "top edge of the second box")

	overlap := frame.GetVecbAt(65, 60)
	assert.Equal(t, gocv.Vecb{overlap[0], overlap[0], overlap[0]}, overlap, "overlap interior is untouched")
}

func TestAnnotateCustomPersonClass(t *testing.T) {
	box := image.Rect(10, 20, 60, 70)
	io, in := newSource(t, 2)
	det := &scriptedDetector{results: map[int][]detector.Detection{
		0: {{ClassID: detector.ClassPerson, Confidence: 0.9, Box: box}},
		1: {{ClassID: 3, Confidence: 0.9, Box: box}},
	}}

	report, err := New(det, WithIO(io), WithPersonClass(3)).Run(testSource)
	require.NoError(t, err)
	assert.Equal(t, 1, report.MarkedFrames)

	out := outputSums(t, io, testOutput)
	require.Len(t, out, 2)
	assert.Equal(t, in[0], out[0], "COCO person index is not a person for this model")
	assert.NotEqual(t, in[1], out[1])
}

func TestAnnotateMissingSource(t *testing.T) {
	io := video.NewMemoryIO()
	defer io.Close()

	_, err := New(&scriptedDetector{}, WithIO(io)).Annotate("/videos/missing.mp4")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.NotErrorIs(t, err, ErrSinkUnavailable)
	assert.Equal(t, 0, io.SinkCount())
}

func TestAnnotateInvalidMetadata(t *testing.T) {
	io := video.NewMemoryIO()
	defer io.Close()
	io.AddSource(testSource, &video.Clip{Meta: video.Metadata{Width: testWidth, Height: testHeight}})

	_, err := New(&scriptedDetector{}, WithIO(io)).Annotate(testSource)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Equal(t, 0, io.SinkCount())
}

func TestAnnotateSinkCreateFailure(t *testing.T) {
	io, _ := newSource(t, 2)
	io.FailCreate = true
	det := &scriptedDetector{}

	_, err := New(det, WithIO(io)).Annotate(testSource)
	assert.ErrorIs(t, err, ErrSinkUnavailable)
	assert.Equal(t, 0, det.calls)
	assert.True(t, io.SourceClosed(testSource))
}

func TestAnnotateWriteFailure(t *testing.T) {
	for name, extra := range modes() {
		t.Run(name, func(t *testing.T) {
			io, _ := newSource(t, 5)
			io.FailWriteAt = 2

			_, err := New(&scriptedDetector{}, append([]Option{WithIO(io)}, extra...)...).Annotate(testSource)
			assert.ErrorIs(t, err, ErrSinkUnavailable)
			assert.ErrorIs(t, err, video.ErrWriteRejected)
			assert.True(t, io.SourceClosed(testSource))
			assert.True(t, io.SinkClosed(testOutput))

			clip, ok := io.Output(testOutput)
			require.True(t, ok)
			assert.Len(t, clip.Frames, 2, "partial output is kept")
		})
	}
}

func TestAnnotateDetectorErrorPropagatesUnchanged(t *testing.T) {
	boom := errors.New("inference failed")
	for name, extra := range modes() {
		t.Run(name, func(t *testing.T) {
			io, _ := newSource(t, 4)
			det := &scriptedDetector{failAt: 1, err: boom}

			_, err := New(det, append([]Option{WithIO(io)}, extra...)...).Annotate(testSource)
			assert.Same(t, boom, err)
			assert.True(t, io.SourceClosed(testSource))
			assert.True(t, io.SinkClosed(testOutput))

			clip, ok := io.Output(testOutput)
			require.True(t, ok)
			if extra == nil {
				assert.Len(t, clip.Frames, 1)
			} else {
				assert.LessOrEqual(t, len(clip.Frames), 1, "frames after the failure are never written")
			}
		})
	}
}

func TestAnnotateOutputDir(t *testing.T) {
	io, _ := newSource(t, 1)
	path, err := New(&scriptedDetector{}, WithIO(io), WithOutputDir("out")).Annotate(testSource)
	require.NoError(t, err)
	assert.Equal(t, "out/"+testOutput, path)
	_, ok := io.Output(path)
	assert.True(t, ok)
}

func TestAnnotateRecordsStageTimings(t *testing.T) {
	io, _ := newSource(t, 3)
	prof := profiler.New()

	_, err := New(&scriptedDetector{}, WithIO(io), WithProfiler(prof)).Annotate(testSource)
	require.NoError(t, err)

	counts := map[string]int64{}
	for _, s := range prof.Summary() {
		counts[s.Name] = s.Count
	}
	assert.Equal(t, int64(4), counts[OpDecode], "three frames plus the end-of-stream read")
	assert.Equal(t, int64(3), counts[OpDetect])
	assert.Equal(t, int64(3), counts[OpDraw])
	assert.Equal(t, int64(3), counts[OpEncode])
}

func TestPackageAnnotate(t *testing.T) {
	_, err := Annotate("/definitely/not/here.mp4", &scriptedDetector{}, 0.5)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}
