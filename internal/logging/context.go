package logging

import (
	"context"

	"go.uber.org/zap"

	"github.com/caselight/widelog/internal/tracing"
)

// contextFields extracts correlation data from the context: currently
// the ambient trace id, resolved through the pipeline's tracer.
func contextFields(ctx context.Context, tracer *tracing.Tracer) []zap.Field {
	if tracer == nil {
		if id, ok := tracing.FromContext(ctx); ok {
			return []zap.Field{zap.String("trace_id", id)}
		}
		return nil
	}
	if id, ok := tracer.Current(ctx); ok {
		return []zap.Field{zap.String("trace_id", id)}
	}
	return nil
}

type loggerCtxKey struct{}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves the logger from the context, falling back to a
// nop logger so call sites never nil-check.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{zap: zap.NewNop()}
}
