package sink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// Worker lifecycle states.
const (
	stateStopped int32 = iota
	stateRunning
	stateDraining
)

// Defaults applied by NewAsyncWriter.
const (
	defaultQueueSize    = 1000
	defaultDrainTimeout = 5 * time.Second
	defaultJoinTimeout  = 2 * time.Second
)

// AsyncOptions configures an AsyncWriter.
type AsyncOptions struct {
	// QueueSize bounds the number of records buffered between producers
	// and the worker. Defaults to 1000.
	QueueSize int

	// LazyOpen defers opening the file until the first record arrives.
	LazyOpen bool

	// DrainTimeout bounds how long Close waits for the queue to empty.
	DrainTimeout time.Duration

	// JoinTimeout bounds how long Close waits for the worker to exit.
	JoinTimeout time.Duration

	// Diagnostics receives queue-full and write-error notices. Never
	// the sink itself, to avoid recursion. Defaults to os.Stderr.
	Diagnostics io.Writer

	// Metrics counts outcomes; nil disables counting.
	Metrics *Metrics

	// Name labels metrics and diagnostics. Defaults to the file base
	// name.
	Name string

	// openFile overrides file opening, for tests.
	openFile func() (Writer, error)
}

type queueItem struct {
	data     []byte
	sentinel bool
}

// AsyncWriter decouples producers from file I/O with a bounded queue
// and one worker goroutine. Producers never block: when the queue is
// full the record is dropped and a diagnostic goes to the error
// stream. All file access happens on the worker, so writes to the
// target are single-threaded and emission order from any one producer
// is preserved.
type AsyncWriter struct {
	name     string
	queue    chan queueItem
	stopc    chan struct{}
	done     chan struct{}
	closed   atomic.Bool
	state    atomic.Int32
	openFile func() (Writer, error)

	drainTimeout time.Duration
	joinTimeout  time.Duration
	diag         io.Writer
	metrics      *Metrics

	// mu guards file, which only the worker writes through; Sync may
	// touch it from other goroutines.
	mu   sync.Mutex
	file Writer
}

// NewAsyncWriter starts the worker for path. Unless LazyOpen is set
// the file is opened before the writer is returned, so construction
// failures surface immediately and the caller can fall back to another
// sink.
func NewAsyncWriter(path string, opts AsyncOptions) (*AsyncWriter, error) {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = defaultDrainTimeout
	}
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = defaultJoinTimeout
	}
	if opts.Diagnostics == nil {
		opts.Diagnostics = os.Stderr
	}
	if opts.Name == "" {
		opts.Name = filepath.Base(path)
	}
	if opts.openFile == nil {
		opts.openFile = func() (Writer, error) {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("create log directory: %w", err)
			}
			f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", path, err)
			}
			return f, nil
		}
	}

	w := &AsyncWriter{
		name:         opts.Name,
		queue:        make(chan queueItem, opts.QueueSize),
		stopc:        make(chan struct{}),
		done:         make(chan struct{}),
		openFile:     opts.openFile,
		drainTimeout: opts.DrainTimeout,
		joinTimeout:  opts.JoinTimeout,
		diag:         opts.Diagnostics,
		metrics:      opts.Metrics,
	}

	if !opts.LazyOpen {
		f, err := w.openFile()
		if err != nil {
			return nil, err
		}
		w.file = f
	}

	w.state.Store(stateRunning)
	go w.worker()
	return w, nil
}

// Write enqueues one encoded record without blocking. Records arriving
// after Close, or while the queue is full, are dropped. Always reports
// success to the caller: data loss here is surfaced through
// diagnostics and metrics, never as an error into application code.
func (w *AsyncWriter) Write(p []byte) (int, error) {
	if w.closed.Load() {
		return len(p), nil
	}

	// zap reuses its buffers after Write returns.
	data := make([]byte, len(p))
	copy(data, p)

	select {
	case w.queue <- queueItem{data: data}:
	default:
		w.metrics.recordDropped(w.name)
		fmt.Fprintf(w.diag, "widelog: sink %s queue full, dropping record\n", w.name)
	}
	return len(p), nil
}

// worker serializes all file I/O for this sink.
func (w *AsyncWriter) worker() {
	defer close(w.done)

	for {
		select {
		case it := <-w.queue:
			if it.sentinel {
				w.closeFile()
				return
			}
			w.writeRecord(it.data)
		case <-w.stopc:
			// Stop requested: drain what is already queued, then exit.
			for {
				select {
				case it := <-w.queue:
					if it.sentinel {
						w.closeFile()
						return
					}
					w.writeRecord(it.data)
				default:
					w.closeFile()
					return
				}
			}
		}
	}
}

// writeRecord appends one record and flushes immediately. Durability
// wins over batching here: a crash must not lose acknowledged events.
func (w *AsyncWriter) writeRecord(data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		f, err := w.openFile()
		if err != nil {
			w.metrics.recordError(w.name)
			fmt.Fprintf(w.diag, "widelog: sink %s open failed: %v\n", w.name, err)
			return
		}
		w.file = f
	}

	if len(data) == 0 || data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	if _, err := w.file.Write(data); err != nil {
		w.metrics.recordError(w.name)
		fmt.Fprintf(w.diag, "widelog: sink %s write failed: %v\n", w.name, err)
		return
	}
	if err := w.file.Sync(); err != nil {
		w.metrics.recordError(w.name)
		fmt.Fprintf(w.diag, "widelog: sink %s sync failed: %v\n", w.name, err)
		return
	}
	w.metrics.recordWritten(w.name)
}

func (w *AsyncWriter) closeFile() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		_ = w.file.Sync()
		_ = w.file.Close()
		w.file = nil
	}
	w.state.Store(stateStopped)
}

// Sync forces the open file to disk.
func (w *AsyncWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// Close shuts the writer down in order: refuse new records, wait for
// the queue to drain (bounded), signal the worker, and join it with a
// timeout so a stuck file cannot hang process exit. Idempotent.
func (w *AsyncWriter) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	w.state.Store(stateDraining)

	deadline := time.Now().Add(w.drainTimeout)
	for len(w.queue) > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	close(w.stopc)
	select {
	case w.queue <- queueItem{sentinel: true}:
	default:
	}

	select {
	case <-w.done:
	case <-time.After(w.joinTimeout):
		fmt.Fprintf(w.diag, "widelog: sink %s worker did not stop within %s\n", w.name, w.joinTimeout)
	}
	return nil
}

// State reports the lifecycle state, for tests and troubleshooting.
func (w *AsyncWriter) State() int32 {
	return w.state.Load()
}
