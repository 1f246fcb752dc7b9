package event

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/caselight/widelog/internal/sanitize"
	"github.com/caselight/widelog/internal/tracing"
)

// Sampler decides whether a finalized event is kept.
type Sampler interface {
	ShouldSample(e *Event) bool
}

// Emitter receives kept events for persistence.
type Emitter interface {
	EmitEvent(e *Event)
}

// Builder accumulates one wide event. All setters sanitize their
// payload on the way in and return the builder for chaining. Exactly
// one terminal call (Success or Error) finalizes the event; later
// terminal calls return the already-finalized record.
//
// A Builder is intended for use by the single goroutine running the
// operation it describes.
type Builder struct {
	ev        Event
	start     time.Time
	sanitizer *sanitize.Sanitizer
	sampler   Sampler
	emitter   Emitter
	finalized atomic.Bool
}

// Open starts a wide event for service. The trace id is taken from
// traceID when non-empty, else from the ambient tracer, else freshly
// generated.
func Open(ctx context.Context, service, traceID string, s *sanitize.Sanitizer, sampler Sampler, emitter Emitter, tracer *tracing.Tracer) *Builder {
	if traceID == "" && tracer != nil {
		if id, ok := tracer.Current(ctx); ok {
			traceID = id
		}
	}
	if traceID == "" {
		traceID = tracing.NewTraceID()
	}
	if s == nil {
		s = sanitize.NewSanitizer(sanitize.Options{})
	}

	now := time.Now().UTC()
	return &Builder{
		ev: Event{
			OperationID: "op_" + uuid.NewString(),
			TraceID:     traceID,
			Timestamp:   now,
			Service:     service,
		},
		start:     now,
		sanitizer: s,
		sampler:   sampler,
		emitter:   emitter,
	}
}

// User attaches sanitized context about the acting user.
func (b *Builder) User(fields map[string]any) *Builder {
	if b.finalized.Load() {
		return b
	}
	b.ev.User = merge(b.ev.User, b.sanitizer.SanitizeMap(fields))
	return b
}

// Input attaches a sanitized summary of the operation's inputs.
func (b *Builder) Input(fields map[string]any) *Builder {
	if b.finalized.Load() {
		return b
	}
	b.ev.Input = merge(b.ev.Input, b.sanitizer.SanitizeMap(fields))
	return b
}

// Output attaches a sanitized summary of the operation's outputs.
func (b *Builder) Output(fields map[string]any) *Builder {
	if b.finalized.Load() {
		return b
	}
	b.ev.Output = merge(b.ev.Output, b.sanitizer.SanitizeMap(fields))
	return b
}

// Dependency records a named sub-call with its duration and metadata.
func (b *Builder) Dependency(name string, duration time.Duration, meta map[string]any) *Builder {
	if b.finalized.Load() {
		return b
	}
	if b.ev.Dependencies == nil {
		b.ev.Dependencies = make(map[string]Dependency)
	}
	b.ev.Dependencies[name] = Dependency{
		DurationMS: duration.Milliseconds(),
		Meta:       b.sanitizer.SanitizeMap(meta),
	}
	return b
}

// Context attaches one free-form sanitized key/value pair.
func (b *Builder) Context(key string, value any) *Builder {
	if b.finalized.Load() {
		return b
	}
	if b.ev.Extra == nil {
		b.ev.Extra = make(map[string]any)
	}
	b.ev.Extra[key] = b.sanitizer.Sanitize(value)
	return b
}

// StatusCode records a protocol-level status code.
func (b *Builder) StatusCode(code int) *Builder {
	if b.finalized.Load() {
		return b
	}
	b.ev.StatusCode = code
	return b
}

// TraceID returns the trace id captured at open.
func (b *Builder) TraceID() string {
	return b.ev.TraceID
}

// Success finalizes the event with a success outcome.
func (b *Builder) Success() *Event {
	return b.finish(nil)
}

// Error finalizes the event with an error outcome. err contributes the
// type name and, when stack is empty, a captured stack trace.
func (b *Builder) Error(code, message string, err error, stack string) *Event {
	info := &ErrorInfo{
		Code:    code,
		Message: b.sanitizer.SanitizeString(message),
	}
	if err != nil {
		info.Type = fmt.Sprintf("%T", err)
	}
	if stack == "" && err != nil {
		stack = string(debug.Stack())
	}
	info.Traceback = b.sanitizer.SanitizeString(stack)
	return b.finish(info)
}

// finish computes the duration, freezes the event, and routes it
// through sampling and emission. Subsequent calls return the frozen
// event without re-emitting.
func (b *Builder) finish(errInfo *ErrorInfo) *Event {
	if !b.finalized.CompareAndSwap(false, true) {
		return &b.ev
	}

	b.ev.Err = errInfo
	b.ev.DurationMS = time.Since(b.start).Milliseconds()
	if b.ev.DurationMS < 0 {
		b.ev.DurationMS = 0
	}

	if b.sampler == nil || b.sampler.ShouldSample(&b.ev) {
		if b.emitter != nil {
			b.emitter.EmitEvent(&b.ev)
		}
	}
	return &b.ev
}

// merge overlays src onto dst, allocating dst when needed.
func merge(dst, src map[string]any) map[string]any {
	if src == nil {
		return dst
	}
	if dst == nil {
		return src
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
