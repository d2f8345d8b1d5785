// Package span holds the externally-owned span record consumed by the
// analysis engine and the optional stores that persist imported spans.
package span

import "time"

// Span is one timed operation record of a distributed trace. Spans are
// immutable once received: the engine never mutates them, and
// ParentSpanKey is a back-reference only.
type Span struct {
	SpanKey       string            `json:"span_key"`
	TraceID       string            `json:"trace_id"`
	OperationName string            `json:"operation_name"`
	ServiceName   string            `json:"service_name,omitempty"`
	StartTime     time.Time         `json:"start_time"`
	Duration      time.Duration     `json:"duration"`
	ParentSpanKey string            `json:"parent_span_key,omitempty"`
	Tags          map[string]string `json:"tags,omitempty"`
	IsError       bool              `json:"is_error,omitempty"`
}

// Tag returns the value of one tag key, or "" when absent.
func (s Span) Tag(key string) string {
	return s.Tags[key]
}

// EndTime is the span's start plus its duration.
func (s Span) EndTime() time.Time {
	return s.StartTime.Add(s.Duration)
}
