package sink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// sweepInterval throttles retention scans so rotation-heavy workloads
// do not pay a directory walk per record.
const sweepInterval = time.Hour

// RotateOptions configures a RotatingWriter.
type RotateOptions struct {
	// MaxBytes triggers rotation once the current file exceeds it.
	// Rounded up to lumberjack's megabyte granularity.
	MaxBytes int64

	// BackupCount bounds how many rotated files are kept.
	BackupCount int

	// RetentionDays deletes rotated files older than this window after
	// each sweep. Zero keeps files forever.
	RetentionDays int

	// Diagnostics receives sweep errors. Defaults to os.Stderr.
	Diagnostics io.Writer
}

// RotatingWriter is the synchronous fallback sink: size-based rotation
// via lumberjack plus a time-based retention sweep over files sharing
// the target's base name. Sweeps run at construction and then at most
// once per sweepInterval.
type RotatingWriter struct {
	path          string
	retentionDays int
	diag          io.Writer

	mu        sync.Mutex
	out       *lumberjack.Logger
	lastSweep time.Time
}

// NewRotatingWriter creates the writer and runs an initial retention
// sweep.
func NewRotatingWriter(path string, opts RotateOptions) (*RotatingWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if opts.Diagnostics == nil {
		opts.Diagnostics = os.Stderr
	}

	maxMB := int(opts.MaxBytes / (1024 * 1024))
	if opts.MaxBytes > 0 && maxMB == 0 {
		maxMB = 1
	}

	w := &RotatingWriter{
		path:          path,
		retentionDays: opts.RetentionDays,
		diag:          opts.Diagnostics,
		out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxMB,
			MaxBackups: opts.BackupCount,
			MaxAge:     opts.RetentionDays,
		},
	}

	w.sweep(time.Now())
	return w, nil
}

// Write appends one record, rotating when the size threshold is hit,
// and opportunistically runs the throttled retention sweep.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.out.Write(p)
	if err != nil {
		return n, err
	}
	if now := time.Now(); now.Sub(w.lastSweep) >= sweepInterval {
		w.sweepLocked(now)
	}
	return n, nil
}

// Sync is a no-op: lumberjack writes through to the OS on every call.
func (w *RotatingWriter) Sync() error {
	return nil
}

// Close closes the current file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.Close()
}

// sweep deletes base-name siblings whose modification time fell out of
// the retention window.
func (w *RotatingWriter) sweep(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sweepLocked(now)
}

func (w *RotatingWriter) sweepLocked(now time.Time) {
	w.lastSweep = now
	if w.retentionDays <= 0 {
		return
	}

	dir := filepath.Dir(w.path)
	base := filepath.Base(w.path)
	ext := filepath.Ext(base)
	prefix := strings.TrimSuffix(base, ext)

	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(w.diag, "widelog: retention scan of %s failed: %v\n", dir, err)
		return
	}

	cutoff := now.AddDate(0, 0, -w.retentionDays)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == base || !strings.HasPrefix(name, prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, name)); err != nil {
				fmt.Fprintf(w.diag, "widelog: retention delete of %s failed: %v\n", name, err)
			}
		}
	}
}
