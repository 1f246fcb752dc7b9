// Package sanitize provides deep redaction of sensitive data before it
// reaches any log sink.
//
// A Sanitizer walks arbitrarily nested values (maps, slices, structs via
// their string form) and replaces sensitive content with a fixed token.
// Sensitivity is decided two ways:
//   - by key: map keys matching a case-insensitive vocabulary have their
//     values replaced wholesale
//   - by value: strings are scanned against built-in patterns (email,
//     card numbers, SSN, phone, optionally IPv4) plus caller patterns
//
// Sanitize never mutates its input and never panics; opaque types are
// coerced to their string form and scanned as text.
package sanitize

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// DefaultToken replaces redacted content in sanitized output.
const DefaultToken = "[REDACTED]"

// maxDepth bounds recursion on deeply nested acyclic structures. Cyclic
// structures are handled separately by the visited set.
const maxDepth = 50

// defaultSensitiveKeys is the built-in key vocabulary. A map key matches
// when it equals or contains one of these, case-insensitively.
var defaultSensitiveKeys = []string{
	"password", "passwd", "secret", "token", "api_key", "apikey",
	"authorization", "bearer", "credential", "private_key", "ssn",
	"social_security", "credit_card", "card_number", "cvv", "pin",
	"session_id", "cookie", "auth",
}

// Built-in value patterns, applied in a fixed order.
var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ \-]?){15}\d\b`)
	ssnPattern   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	phonePattern = regexp.MustCompile(`\b\+?\d{1,3}[ \-.]?\(?\d{3}\)?[ \-.]?\d{3}[ \-.]?\d{4}\b`)
	ipv4Pattern  = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
)

// Options configures a Sanitizer. The zero value plus NewSanitizer's
// defaulting yields the built-in vocabulary and token.
type Options struct {
	// Token replaces redacted content. Defaults to DefaultToken.
	Token string

	// SensitiveKeys extends the built-in key vocabulary.
	SensitiveKeys []string

	// Whitelist lists keys that bypass key-based redaction even when
	// they match the vocabulary. Matching is case-insensitive and exact.
	Whitelist []string

	// Patterns are caller-supplied regexes applied after the built-ins.
	Patterns []*regexp.Regexp

	// RedactIPs enables the IPv4 pattern, off by default because IP
	// addresses are often operationally useful.
	RedactIPs bool
}

// Sanitizer performs deep redaction. It is stateless after construction
// and safe for concurrent use.
type Sanitizer struct {
	token         string
	sensitiveKeys []string
	whitelist     map[string]bool
	patterns      []*regexp.Regexp
}

// NewSanitizer builds a Sanitizer from opts.
func NewSanitizer(opts Options) *Sanitizer {
	token := opts.Token
	if token == "" {
		token = DefaultToken
	}

	keys := make([]string, 0, len(defaultSensitiveKeys)+len(opts.SensitiveKeys))
	for _, k := range defaultSensitiveKeys {
		keys = append(keys, strings.ToLower(k))
	}
	for _, k := range opts.SensitiveKeys {
		keys = append(keys, strings.ToLower(k))
	}

	whitelist := make(map[string]bool, len(opts.Whitelist))
	for _, k := range opts.Whitelist {
		whitelist[strings.ToLower(k)] = true
	}

	patterns := []*regexp.Regexp{emailPattern, cardPattern, ssnPattern, phonePattern}
	if opts.RedactIPs {
		patterns = append(patterns, ipv4Pattern)
	}
	patterns = append(patterns, opts.Patterns...)

	return &Sanitizer{
		token:         token,
		sensitiveKeys: keys,
		whitelist:     whitelist,
		patterns:      patterns,
	}
}

// Token returns the configured redaction token.
func (s *Sanitizer) Token() string {
	return s.token
}

// Sanitize returns a deep copy of v with sensitive content replaced by
// the redaction token. The input is never mutated.
func (s *Sanitizer) Sanitize(v any) any {
	return s.sanitize(v, 0, make(map[uintptr]bool))
}

// SanitizeMap sanitizes each entry of m, preserving keys. Nil maps
// return nil.
func (s *Sanitizer) SanitizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out, _ := s.sanitize(m, 0, make(map[uintptr]bool)).(map[string]any)
	return out
}

// SanitizeString applies the value patterns to text.
func (s *Sanitizer) SanitizeString(text string) string {
	for _, re := range s.patterns {
		text = re.ReplaceAllString(text, s.token)
	}
	return text
}

// sensitiveKey reports whether key should have its value redacted
// wholesale. Whitelisted keys never match.
func (s *Sanitizer) sensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if s.whitelist[lower] {
		return false
	}
	for _, sk := range s.sensitiveKeys {
		if lower == sk || strings.Contains(lower, sk) {
			return true
		}
	}
	return false
}

func (s *Sanitizer) sanitize(v any, depth int, visited map[uintptr]bool) any {
	if depth > maxDepth {
		return s.token
	}
	if v == nil {
		return nil
	}

	switch val := v.(type) {
	case string:
		return s.SanitizeString(val)
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val
	case map[string]any:
		if ptr, cyclic := s.enter(val, visited); cyclic {
			return s.token
		} else if ptr != 0 {
			defer delete(visited, ptr)
		}
		out := make(map[string]any, len(val))
		for k, elem := range val {
			if s.sensitiveKey(k) {
				out[k] = s.token
				continue
			}
			out[k] = s.sanitize(elem, depth+1, visited)
		}
		return out
	case []any:
		if ptr, cyclic := s.enter(val, visited); cyclic {
			return s.token
		} else if ptr != 0 {
			defer delete(visited, ptr)
		}
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = s.sanitize(elem, depth+1, visited)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(val))
		for k, elem := range val {
			if s.sensitiveKey(k) {
				out[k] = s.token
				continue
			}
			out[k] = s.SanitizeString(elem)
		}
		return out
	case []string:
		out := make([]string, len(val))
		for i, elem := range val {
			out[i] = s.SanitizeString(elem)
		}
		return out
	case error:
		return s.SanitizeString(val.Error())
	default:
		return s.sanitizeReflected(v, depth, visited)
	}
}

// sanitizeReflected handles types outside the fast paths: other map and
// slice kinds recurse, everything else is coerced to text and scanned.
func (s *Sanitizer) sanitizeReflected(v any, depth int, visited map[uintptr]bool) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		ptr := rv.Pointer()
		if visited[ptr] {
			return s.token
		}
		visited[ptr] = true
		defer delete(visited, ptr)
		return s.sanitize(rv.Elem().Interface(), depth+1, visited)
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		ptr := rv.Pointer()
		if visited[ptr] {
			return s.token
		}
		visited[ptr] = true
		defer delete(visited, ptr)
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := fmt.Sprintf("%v", iter.Key().Interface())
			if s.sensitiveKey(key) {
				out[key] = s.token
				continue
			}
			out[key] = s.sanitize(iter.Value().Interface(), depth+1, visited)
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		ptr := rv.Pointer()
		if visited[ptr] {
			return s.token
		}
		visited[ptr] = true
		defer delete(visited, ptr)
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = s.sanitize(rv.Index(i).Interface(), depth+1, visited)
		}
		return out
	case reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = s.sanitize(rv.Index(i).Interface(), depth+1, visited)
		}
		return out
	default:
		// Opaque value: string form, then text rules.
		return s.SanitizeString(fmt.Sprintf("%v", v))
	}
}

// enter records a container in the visited set, reporting a cycle when
// it is already present. Returns the pointer key so the caller can
// remove it after descending.
func (s *Sanitizer) enter(v any, visited map[uintptr]bool) (uintptr, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map && rv.Kind() != reflect.Slice {
		return 0, false
	}
	if rv.IsNil() {
		return 0, false
	}
	ptr := rv.Pointer()
	if visited[ptr] {
		return 0, true
	}
	visited[ptr] = true
	return ptr, false
}
