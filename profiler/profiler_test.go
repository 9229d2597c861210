package profiler

import (
	"sync"
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndSummary(t *testing.T) {
	p := New()
	p.Record("infer", 30*time.Millisecond)
	p.Record("infer", 10*time.Millisecond)
	p.Record("decode", 2*time.Millisecond)

	sum := p.Summary()
	require.Len(t, sum, 2)
	assert.Equal(t, "decode", sum[0].Name)

	infer := sum[1]
	assert.Equal(t, int64(2), infer.Count)
	assert.Equal(t, 10*time.Millisecond, infer.Min)
	assert.Equal(t, 30*time.Millisecond, infer.Max)
	assert.Equal(t, 20*time.Millisecond, infer.Average())
	assert.Contains(t, infer.String(), "count=2")

	assert.Equal(t, time.Duration(0), OperationStats{}.Average())
}

func TestStartOperationConcurrent(t *testing.T) {
	p := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stop := p.StartOperation("encode")
			stop()
		}()
	}
	wg.Wait()

	sum := p.Summary()
	require.Len(t, sum, 1)
	assert.Equal(t, int64(8), sum[0].Count)

	p.Report(logs.NewTestingLog(t))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2*1024*1024))
}
