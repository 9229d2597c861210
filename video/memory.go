package video

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrWriteRejected is returned by a memory sink configured to fail.
var ErrWriteRejected = errors.New("memory sink rejected frame")

// Clip is an in-memory video: metadata plus frames in order.
type Clip struct {
	Meta   Metadata
	Frames []gocv.Mat
}

// Close releases every frame of the clip.
func (c *Clip) Close() {
	for i := range c.Frames {
		c.Frames[i].Close()
	}
	c.Frames = nil
}

// MemoryIO is an IO backed by clips held in memory. Sources hand out clones of
// the registered frames; sinks keep clones of what is written.
type MemoryIO struct {
	// FailWriteAt makes sinks fail on the given zero-based frame index; negative disables it.
	FailWriteAt int
	// FailCreate makes CreateSink fail.
	FailCreate bool

	mu      sync.Mutex
	sources map[string]*Clip
	sinks   map[string]*Clip
	closed  map[string]bool
}

// NewMemoryIO creates an empty MemoryIO.
func NewMemoryIO() *MemoryIO {
	return &MemoryIO{
		FailWriteAt: -1,
		sources:     make(map[string]*Clip),
		sinks:       make(map[string]*Clip),
		closed:      make(map[string]bool),
	}
}

// AddSource registers a clip under path. The MemoryIO takes ownership of the frames.
func (m *MemoryIO) AddSource(path string, clip *Clip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[path] = clip
}

// Output returns the clip written to path, if a sink was ever created there.
func (m *MemoryIO) Output(path string) (*Clip, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clip, ok := m.sinks[path]
	return clip, ok
}

// SinkCount returns how many sinks have been created.
func (m *MemoryIO) SinkCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sinks)
}

// SourceClosed reports whether the source opened for path has been closed.
func (m *MemoryIO) SourceClosed(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed[path]
}

// SinkClosed reports whether the sink created for path has been closed.
func (m *MemoryIO) SinkClosed(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed[sinkKey(path)]
}

func sinkKey(path string) string {
	return "sink:" + path
}

// Close releases every registered and written frame.
func (m *MemoryIO) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.sources {
		c.Close()
	}
	for _, c := range m.sinks {
		c.Close()
	}
}

// OpenSource implements IO.
func (m *MemoryIO) OpenSource(path string) (Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clip, ok := m.sources[path]
	if !ok {
		return nil, errors.Wrapf(os.ErrNotExist, "open %s", path)
	}
	if err := clip.Meta.Validate(); err != nil {
		return nil, errors.Wrapf(err, "metadata of %s", path)
	}
	return &memorySource{io: m, path: path, clip: clip}, nil
}

// CreateSink implements IO.
func (m *MemoryIO) CreateSink(path string, codec string, meta Metadata) (Sink, error) {
	if m.FailCreate {
		return nil, errors.Wrapf(os.ErrPermission, "create %s", path)
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clip := &Clip{Meta: meta}
	m.sinks[path] = clip
	return &memorySink{io: m, path: sinkKey(path), clip: clip, failAt: m.FailWriteAt}, nil
}

func (m *MemoryIO) markClosed(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed[path] = true
}

type memorySource struct {
	io   *MemoryIO
	path string
	clip *Clip
	next int
}

func (s *memorySource) Metadata() Metadata { return s.clip.Meta }

func (s *memorySource) Read(dst *gocv.Mat) bool {
	if s.next >= len(s.clip.Frames) {
		return false
	}
	s.clip.Frames[s.next].CopyTo(dst)
	s.next++
	return true
}

func (s *memorySource) Close() error {
	s.io.markClosed(s.path)
	return nil
}

type memorySink struct {
	io     *MemoryIO
	path   string
	clip   *Clip
	failAt int
}

func (s *memorySink) Write(frame gocv.Mat) error {
	if s.failAt >= 0 && len(s.clip.Frames) == s.failAt {
		return ErrWriteRejected
	}
	s.clip.Frames = append(s.clip.Frames, frame.Clone())
	return nil
}

func (s *memorySink) Close() error {
	s.io.markClosed(s.path)
	return nil
}
