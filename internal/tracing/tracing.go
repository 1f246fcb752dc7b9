// Package tracing manages the trace identifier shared by every wide
// event in one logical operation chain.
//
// The current trace id lives in two tiers: a context.Context value for
// concurrent code (isolated per logical task) and an instance fallback
// for purely sequential call paths that do not thread a context. Reads
// prefer the context tier.
package tracing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"

	"go.opentelemetry.io/otel/trace"
)

// Prefix marks identifiers generated by this package.
const Prefix = "trace_"

type traceIDCtxKey struct{}

// WithTraceID stores a trace id in the context.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDCtxKey{}, id)
}

// FromContext extracts the trace id stored in ctx, if any.
func FromContext(ctx context.Context) (string, bool) {
	if id, ok := ctx.Value(traceIDCtxKey{}).(string); ok && id != "" {
		return id, true
	}
	return "", false
}

// Tracer tracks the current trace id for one pipeline instance. Safe
// for concurrent use.
type Tracer struct {
	mu       sync.RWMutex
	fallback string
}

// NewTracer creates a Tracer with no current id.
func NewTracer() *Tracer {
	return &Tracer{}
}

// Current returns the active trace id. Preference order: explicit
// context value, active OpenTelemetry span, instance fallback.
func (t *Tracer) Current(ctx context.Context) (string, bool) {
	if ctx != nil {
		if id, ok := FromContext(ctx); ok {
			return id, true
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			return sc.TraceID().String(), true
		}
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.fallback != "" {
		return t.fallback, true
	}
	return "", false
}

// Set stores id in both tiers and returns a context carrying it.
func (t *Tracer) Set(ctx context.Context, id string) context.Context {
	t.mu.Lock()
	t.fallback = id
	t.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	return WithTraceID(ctx, id)
}

// Clear removes the instance fallback. Context values are immutable;
// callers drop the returned context from Set to clear that tier.
func (t *Tracer) Clear() {
	t.mu.Lock()
	t.fallback = ""
	t.mu.Unlock()
}

// Generate creates a fresh trace id, stores it as current, and returns
// it with a context carrying it.
func (t *Tracer) Generate(ctx context.Context) (string, context.Context) {
	id := NewTraceID()
	return id, t.Set(ctx, id)
}

// NewTraceID returns Prefix followed by 12 lowercase hex characters.
func NewTraceID() string {
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand read failures are not recoverable at this layer;
		// fall back to a fixed id rather than failing the operation.
		return Prefix + "000000000000"
	}
	return Prefix + hex.EncodeToString(buf[:])
}
