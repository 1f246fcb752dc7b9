package logging

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/caselight/widelog/internal/tracing"
)

// Logger wraps zap with context-aware methods that inject trace
// correlation automatically.
type Logger struct {
	zap    *zap.Logger
	tracer *tracing.Tracer
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	l.zap.Debug(msg, append(contextFields(ctx, l.tracer), fields...)...)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	l.zap.Info(msg, append(contextFields(ctx, l.tracer), fields...)...)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	l.zap.Warn(msg, append(contextFields(ctx, l.tracer), fields...)...)
}

func (l *Logger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	l.zap.Error(msg, append(contextFields(ctx, l.tracer), fields...)...)
}

// With returns a child logger carrying extra constant fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{zap: l.zap.With(fields...), tracer: l.tracer}
}

// Named returns a child logger with name appended to the logger key.
func (l *Logger) Named(name string) *Logger {
	return &Logger{zap: l.zap.Named(name), tracer: l.tracer}
}

// Enabled reports whether level would be written.
func (l *Logger) Enabled(level zapcore.Level) bool {
	return l.zap.Core().Enabled(level)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	err := l.zap.Sync()
	if err != nil && isStdoutSyncError(err) {
		return nil
	}
	return err
}

// Underlying exposes the wrapped zap.Logger for libraries that need
// one directly.
func (l *Logger) Underlying() *zap.Logger {
	return l.zap
}

// isStdoutSyncError reports the harmless EINVAL/ENOTTY that syncing
// stdout or stderr returns on Linux.
func isStdoutSyncError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EINVAL || errno == syscall.ENOTTY
	}
	return false
}

// Exception renders an error as the persisted exception object:
// type, message, and traceback.
func Exception(err error, traceback string) zap.Field {
	return zap.Object("exception", exceptionMarshaler{err: err, traceback: traceback})
}

type exceptionMarshaler struct {
	err       error
	traceback string
}

func (m exceptionMarshaler) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if m.err != nil {
		enc.AddString("type", errorTypeName(m.err))
		enc.AddString("message", m.err.Error())
	}
	if m.traceback != "" {
		enc.AddString("traceback", m.traceback)
	}
	return nil
}

func errorTypeName(err error) string {
	return fmt.Sprintf("%T", err)
}
