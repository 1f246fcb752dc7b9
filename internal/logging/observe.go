package logging

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/caselight/widelog/internal/event"
	"github.com/caselight/widelog/internal/tracing"
)

// Observe runs fn as one scoped, logged operation: it opens a wide
// event for service, attaches the sanitized input, threads the event's
// trace id through the child context, and finalizes on exit. Errors
// and panics are recorded and then re-raised untouched: logging is
// observational and never swallows the operation's own failure.
func (m *Manager) Observe(ctx context.Context, service string, input map[string]any, fn func(ctx context.Context, b *event.Builder) error) error {
	b := m.CreateEvent(ctx, service)
	if input != nil {
		b.Input(input)
	}
	ctx = tracing.WithTraceID(ctx, b.TraceID())

	defer func() {
		if r := recover(); r != nil {
			b.Error("panic", fmt.Sprint(r), nil, string(debug.Stack()))
			panic(r)
		}
	}()

	if err := fn(ctx, b); err != nil {
		b.Error("operation_error", err.Error(), err, "")
		return err
	}
	b.Success()
	return nil
}
