package tracing

import (
	"context"
	"net/http"
	"strings"
)

// Header names recognized for trace propagation.
const (
	// TraceHeader is the service-to-service custom header, in the
	// canonical MIME form http.Header keys use. Matching is
	// case-insensitive on the wire.
	TraceHeader = "X-Trace-Id"

	// TraceparentHeader is the W3C Trace Context composite header:
	// version-traceid-parentid-flags.
	TraceparentHeader = "Traceparent"
)

// ExtractFromHeaders pulls a trace id from incoming headers. The custom
// header wins; otherwise the second dash-delimited field of a W3C
// traceparent is used.
func ExtractFromHeaders(h http.Header) (string, bool) {
	if h == nil {
		return "", false
	}
	if id := h.Get(TraceHeader); id != "" {
		return id, true
	}
	if tp := h.Get(TraceparentHeader); tp != "" {
		parts := strings.Split(tp, "-")
		if len(parts) >= 2 && parts[1] != "" {
			return parts[1], true
		}
	}
	return "", false
}

// PropagateToHeaders writes the current trace id into h under both the
// custom header and a synthesized traceparent, so downstream services
// can extract it either way. The trace id stands in for the parent id
// since this pipeline does not track spans. Returns h for chaining;
// allocates a header map when h is nil. No-op when no id is current.
func (t *Tracer) PropagateToHeaders(ctx context.Context, h http.Header) http.Header {
	if h == nil {
		h = http.Header{}
	}
	id, ok := t.Current(ctx)
	if !ok {
		return h
	}
	h.Set(TraceHeader, id)
	h.Set(TraceparentHeader, "00-"+id+"-"+id+"-01")
	return h
}
