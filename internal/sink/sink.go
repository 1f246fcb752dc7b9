// Package sink delivers encoded log records to their destinations.
//
// Two writers are provided: AsyncWriter, a bounded-queue writer whose
// single worker goroutine owns all file I/O, and RotatingWriter, a
// size-rotating file writer with time-based retention. Both satisfy
// zapcore.WriteSyncer so they plug directly into log cores, plus
// io.Closer for orderly shutdown.
package sink

import "io"

// Writer is the contract shared by all file sinks.
type Writer interface {
	io.WriteCloser

	// Sync forces buffered data to disk.
	Sync() error
}
