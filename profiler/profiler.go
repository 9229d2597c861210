// Package profiler - Timing of the stages of a frame pipeline.
package profiler

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"
)

// Logger is the subset of a logger the report needs.
type Logger interface {
	Infof(format string, args ...any)
}

// OperationStats summarises the recorded durations of one named operation.
type OperationStats struct {
	Name  string
	Count int64
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
}

// Average returns the mean duration, or zero when nothing was recorded.
func (s OperationStats) Average() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

func (s OperationStats) String() string {
	return fmt.Sprintf("%s: avg=%v, min=%v, max=%v, count=%d",
		s.Name,
		s.Average().Truncate(time.Microsecond),
		s.Min.Truncate(time.Microsecond),
		s.Max.Truncate(time.Microsecond),
		s.Count)
}

// Profiler tracks operation timings. It is safe for concurrent use, so the
// stages of a pipelined run can share one instance.
type Profiler struct {
	mu        sync.Mutex
	startTime time.Time
	ops       map[string]*OperationStats
}

// New creates an empty profiler whose uptime starts now.
func New() *Profiler {
	return &Profiler{
		startTime: time.Now(),
		ops:       make(map[string]*OperationStats),
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
//   - name: The name of the operation to track.
//
// Returns:
//   - A function to call when the operation completes.
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		p.Record(name, time.Since(start))
	}
}

// Record adds one duration sample for name.
func (p *Profiler) Record(name string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.ops[name]
	if !ok {
		s = &OperationStats{Name: name, Min: d, Max: d}
		p.ops[name] = s
	}
	s.Count++
	s.Total += d
	if d < s.Min {
		s.Min = d
	}
	if d > s.Max {
		s.Max = d
	}
}

// Summary returns a snapshot of every operation, sorted by name.
func (p *Profiler) Summary() []OperationStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]OperationStats, 0, len(p.ops))
	for _, s := range p.ops {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Report logs uptime, heap usage and every operation summary.
func (p *Profiler) Report(log Logger) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	log.Infof("Profile: uptime %v, heap %s, goroutines %d",
		time.Since(p.startTime).Truncate(time.Millisecond), formatBytes(m.HeapAlloc), runtime.NumGoroutine())
	for _, s := range p.Summary() {
		log.Infof("Profile: %v", s)
	}
}

// formatBytes formats byte counts in human-readable format.
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
