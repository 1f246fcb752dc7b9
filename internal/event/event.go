// Package event defines the wide event record and its builder.
//
// A wide event is one structured record per completed operation: its
// inputs, outputs, timing, dependencies, and outcome, instead of many
// narrow log lines. Records are assembled by a Builder and become
// immutable once finalized.
package event

import "time"

// Outcome classifies how an operation ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// ErrorInfo describes a failed operation. Present on an Event exactly
// when the error finalizer produced it, so outcome and error details
// cannot disagree.
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Type      string `json:"type,omitempty"`
	Traceback string `json:"traceback,omitempty"`
}

// Dependency records one named sub-call made during the operation.
type Dependency struct {
	DurationMS int64          `json:"duration_ms"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// Event is one immutable wide-event record. Built only through a
// Builder; never modified after finalization.
type Event struct {
	OperationID  string                `json:"operation_id"`
	TraceID      string                `json:"trace_id"`
	Timestamp    time.Time             `json:"timestamp"`
	DurationMS   int64                 `json:"duration_ms"`
	Service      string                `json:"service"`
	StatusCode   int                   `json:"status_code,omitempty"`
	User         map[string]any        `json:"user,omitempty"`
	Input        map[string]any        `json:"input,omitempty"`
	Output       map[string]any        `json:"output,omitempty"`
	Dependencies map[string]Dependency `json:"dependencies,omitempty"`
	Extra        map[string]any        `json:"extra,omitempty"`

	// Err is non-nil exactly when the operation failed.
	Err *ErrorInfo `json:"error,omitempty"`
}

// Outcome derives the event classification from the error field.
func (e *Event) Outcome() Outcome {
	if e.Err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}

// UserID returns the actor id under either conventional field name.
func (e *Event) UserID() (string, bool) {
	for _, key := range []string{"id", "user_id"} {
		if v, ok := e.User[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// ProjectID returns the project identifier, preferring the dedicated
// extra field over the free-form context map keys.
func (e *Event) ProjectID() (string, bool) {
	for _, key := range []string{"project_id", "project"} {
		if v, ok := e.Extra[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}
