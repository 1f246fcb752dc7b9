package logging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/caselight/widelog/internal/tracing"
)

func newObservedLogger() (*Logger, *observer.ObservedLogs) {
	core, observed := observer.New(zapcore.DebugLevel)
	return &Logger{zap: zap.New(core), tracer: tracing.NewTracer()}, observed
}

func TestLogger_LevelsAndFields(t *testing.T) {
	log, observed := newObservedLogger()
	ctx := context.Background()

	log.Debug(ctx, "d")
	log.Info(ctx, "i", zap.String("k", "v"))
	log.Warn(ctx, "w")
	log.Error(ctx, "e")

	entries := observed.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "v", entries[1].ContextMap()["k"])
}

func TestLogger_TraceFieldInjection(t *testing.T) {
	log, observed := newObservedLogger()
	ctx := tracing.WithTraceID(context.Background(), "trace_abcdefabcdef")

	log.Info(ctx, "with trace")
	log.Info(context.Background(), "without trace")

	entries := observed.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "trace_abcdefabcdef", entries[0].ContextMap()["trace_id"])
	assert.NotContains(t, entries[1].ContextMap(), "trace_id")
}

func TestLogger_NamedAndWith(t *testing.T) {
	log, observed := newObservedLogger()

	log.Named("orders").With(zap.String("region", "eu")).Info(context.Background(), "hi")

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "orders", entries[0].LoggerName)
	assert.Equal(t, "eu", entries[0].ContextMap()["region"])
}

func TestException(t *testing.T) {
	log, observed := newObservedLogger()

	log.Error(context.Background(), "failed", Exception(errors.New("boom"), "stack trace here"))

	entries := observed.All()
	require.Len(t, entries, 1)

	exc, ok := entries[0].ContextMap()["exception"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "*errors.errorString", exc["type"])
	assert.Equal(t, "boom", exc["message"])
	assert.Equal(t, "stack trace here", exc["traceback"])
}

func TestFromContext_Fallback(t *testing.T) {
	log := FromContext(context.Background())
	require.NotNil(t, log)
	// Nop logger: must not panic.
	log.Info(context.Background(), "into the void")

	stored, _ := newObservedLogger()
	ctx := WithLogger(context.Background(), stored)
	assert.Same(t, stored, FromContext(ctx))
}
