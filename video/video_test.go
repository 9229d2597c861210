package video

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-annotate/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestMetadataValidate(t *testing.T) {
	tests := []struct {
		name  string
		meta  Metadata
		valid bool
	}{
		{"ok", Metadata{Width: 640, Height: 480, FPS: 25}, true},
		{"fractional fps", Metadata{Width: 1920, Height: 1080, FPS: 29.97}, true},
		{"zero width", Metadata{Width: 0, Height: 480, FPS: 25}, false},
		{"negative height", Metadata{Width: 640, Height: -1, FPS: 25}, false},
		{"zero fps", Metadata{Width: 640, Height: 480, FPS: 0}, false},
		{"nan fps", Metadata{Width: 640, Height: 480, FPS: math.NaN()}, false},
		{"inf fps", Metadata{Width: 640, Height: 480, FPS: math.Inf(1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.meta.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestMemoryIO(t *testing.T) {
	mio := NewMemoryIO()
	defer mio.Close()

	meta := Metadata{Width: 32, Height: 24, FPS: 10}
	mio.AddSource("in.mp4", &Clip{Meta: meta, Frames: images.NewFrameGenerator(32, 24).Sequence(3)})

	_, err := mio.OpenSource("missing.mp4")
	require.ErrorIs(t, err, os.ErrNotExist)

	src, err := mio.OpenSource("in.mp4")
	require.NoError(t, err)
	assert.Equal(t, meta, src.Metadata())

	sink, err := mio.CreateSink("out.mp4", DefaultCodec, src.Metadata())
	require.NoError(t, err)

	frame := gocv.NewMat()
	defer frame.Close()
	n := 0
	for src.Read(&frame) {
		require.NoError(t, sink.Write(frame))
		n++
	}
	require.NoError(t, src.Close())
	require.NoError(t, sink.Close())

	assert.Equal(t, 3, n)
	assert.True(t, mio.SourceClosed("in.mp4"))
	assert.True(t, mio.SinkClosed("out.mp4"))

	out, ok := mio.Output("out.mp4")
	require.True(t, ok)
	assert.Equal(t, meta, out.Meta)
	require.Len(t, out.Frames, 3)
}

func TestMemoryIOFailures(t *testing.T) {
	mio := NewMemoryIO()
	defer mio.Close()
	meta := Metadata{Width: 8, Height: 8, FPS: 1}

	mio.FailCreate = true
	_, err := mio.CreateSink("a.mp4", DefaultCodec, meta)
	require.ErrorIs(t, err, os.ErrPermission)

	mio.FailCreate = false
	mio.FailWriteAt = 1
	sink, err := mio.CreateSink("b.mp4", DefaultCodec, meta)
	require.NoError(t, err)
	frame := images.NewFrameGenerator(8, 8).Sequence(1)[0]
	defer frame.Close()
	require.NoError(t, sink.Write(frame))
	require.ErrorIs(t, sink.Write(frame), ErrWriteRejected)
}

func TestFileIOMissingSource(t *testing.T) {
	_, err := FileIO{}.OpenSource(filepath.Join(t.TempDir(), "nope.mp4"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileIORejectsBadCodec(t *testing.T) {
	_, err := FileIO{}.CreateSink(filepath.Join(t.TempDir(), "x.mp4"), "h264x", Metadata{Width: 8, Height: 8, FPS: 1})
	require.Error(t, err)
}

func TestFileIORoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.avi")
	meta := Metadata{Width: 64, Height: 48, FPS: 12}

	sink, err := FileIO{}.CreateSink(path, "MJPG", meta)
	if err != nil {
		t.Skipf("MJPG encoder unavailable: %v", err)
	}
	frames := images.NewFrameGenerator(64, 48).Sequence(4)
	for i := range frames {
		require.NoError(t, sink.Write(frames[i]))
		frames[i].Close()
	}
	require.NoError(t, sink.Close())

	src, err := FileIO{}.OpenSource(path)
	require.NoError(t, err)
	defer src.Close()

	got := src.Metadata()
	assert.Equal(t, meta.Width, got.Width)
	assert.Equal(t, meta.Height, got.Height)
	assert.InDelta(t, meta.FPS, got.FPS, 0.01)

	frame := gocv.NewMat()
	defer frame.Close()
	n := 0
	for src.Read(&frame) {
		n++
	}
	assert.Equal(t, 4, n)
}

func TestLookupResolution(t *testing.T) {
	r, ok := LookupResolution(1920, 1080)
	require.True(t, ok)
	assert.Equal(t, "Full HD 1080p", r.Name)
	assert.Equal(t, 2.07, r.MegaPixels())
	assert.Equal(t, "Full HD 1080p (1920x1080, 2.07MP)", r.String())

	_, ok = LookupResolution(1921, 1080)
	assert.False(t, ok)
}

func TestMetadataString(t *testing.T) {
	assert.Equal(t, "1280x720@29.97 (HD 720p)", Metadata{Width: 1280, Height: 720, FPS: 29.97}.String())
	assert.Equal(t, "128x96@25.00", Metadata{Width: 128, Height: 96, FPS: 25}.String())
}
