package sink

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingWriter holds every Write until released, simulating a stuck
// worker.
type blockingWriter struct {
	release chan struct{}
	mu      sync.Mutex
	lines   []string
}

func newBlockingWriter() *blockingWriter {
	return &blockingWriter{release: make(chan struct{})}
}

func (b *blockingWriter) Write(p []byte) (int, error) {
	<-b.release
	b.mu.Lock()
	b.lines = append(b.lines, string(p))
	b.mu.Unlock()
	return len(p), nil
}

func (b *blockingWriter) Sync() error  { return nil }
func (b *blockingWriter) Close() error { return nil }

func TestAsyncWriter_SingleProducerOrdering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	w, err := NewAsyncWriter(path, AsyncOptions{QueueSize: 100})
	require.NoError(t, err)

	const n = 50
	for i := 0; i < n; i++ {
		_, err := w.Write([]byte(fmt.Sprintf(`{"seq":%d}`, i)))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, n)
	for i, line := range lines {
		assert.Equal(t, fmt.Sprintf(`{"seq":%d}`, i), line)
	}
}

func TestAsyncWriter_BackpressureDropsWithoutBlocking(t *testing.T) {
	blocked := newBlockingWriter()
	var diag bytes.Buffer
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	w, err := NewAsyncWriter("unused", AsyncOptions{
		QueueSize:    1,
		Diagnostics:  &diag,
		Metrics:      metrics,
		Name:         "test",
		JoinTimeout:  100 * time.Millisecond,
		DrainTimeout: 100 * time.Millisecond,
		openFile:     func() (Writer, error) { return blocked, nil },
	})
	require.NoError(t, err)

	// Let the worker pick up the first record and block inside Write.
	_, _ = w.Write([]byte("r1"))
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	for i := 2; i <= 5; i++ {
		_, _ = w.Write([]byte(fmt.Sprintf("r%d", i)))
	}
	elapsed := time.Since(start)

	// Producer returned promptly: never blocked on the stuck worker.
	assert.Less(t, elapsed, 500*time.Millisecond)

	// r1 in flight, one queued, at least 3 dropped.
	assert.GreaterOrEqual(t,
		testutil.ToFloat64(metrics.dropped.WithLabelValues("test")), 3.0)
	assert.Contains(t, diag.String(), "queue full")

	close(blocked.release)
	require.NoError(t, w.Close())
}

func TestAsyncWriter_WriteAfterCloseIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	w, err := NewAsyncWriter(path, AsyncOptions{})
	require.NoError(t, err)

	_, _ = w.Write([]byte("before"))
	require.NoError(t, w.Close())
	_, err = w.Write([]byte("after"))
	require.NoError(t, err)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "before")
	assert.NotContains(t, string(data), "after")
}

func TestAsyncWriter_CloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	w, err := NewAsyncWriter(path, AsyncOptions{})
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Equal(t, stateStopped, w.State())
}

func TestAsyncWriter_DrainsQueueOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	w, err := NewAsyncWriter(path, AsyncOptions{QueueSize: 500})
	require.NoError(t, err)

	const n = 200
	for i := 0; i < n; i++ {
		_, _ = w.Write([]byte(fmt.Sprintf("line-%d", i)))
	}
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, n)
}

func TestAsyncWriter_LazyOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lazy", "app.log")
	w, err := NewAsyncWriter(path, AsyncOptions{LazyOpen: true})
	require.NoError(t, err)

	// Nothing written yet: file must not exist.
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	_, _ = w.Write([]byte("first"))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "first")
}

func TestAsyncWriter_EagerOpenFailure(t *testing.T) {
	dir := t.TempDir()
	// Target path is a directory: opening must fail at construction.
	w, err := NewAsyncWriter(dir, AsyncOptions{})
	assert.Error(t, err)
	assert.Nil(t, w)
}

func TestAsyncWriter_ConcurrentProducers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	w, err := NewAsyncWriter(path, AsyncOptions{QueueSize: 5000})
	require.NoError(t, err)

	const producers, perProducer = 8, 100
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_, _ = w.Write([]byte(fmt.Sprintf("p%d-%d", p, i)))
			}
		}(p)
	}
	wg.Wait()
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, producers*perProducer)

	// Per-producer order survives interleaving.
	lastSeen := make(map[string]int)
	for _, line := range lines {
		var p, i int
		_, scanErr := fmt.Sscanf(line, "p%d-%d", &p, &i)
		require.NoError(t, scanErr)
		key := fmt.Sprintf("p%d", p)
		if prev, ok := lastSeen[key]; ok {
			assert.Greater(t, i, prev, "producer %d out of order", p)
		}
		lastSeen[key] = i
	}
}
