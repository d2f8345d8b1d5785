package span

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// spanFile is the import wire shape: either a bare span array or an
// object wrapping one. Tag values arrive loosely typed and are coerced
// to strings so exporters that emit numbers or booleans still import.
type spanFile struct {
	Spans []rawSpan `json:"spans"`
}

type rawSpan struct {
	SpanKey       string         `json:"span_key"`
	SpanID        string         `json:"span_id"`
	TraceID       string         `json:"trace_id"`
	OperationName string         `json:"operation_name"`
	ServiceName   string         `json:"service_name"`
	StartTime     time.Time      `json:"start_time"`
	DurationUS    *int64         `json:"duration_us"`
	DurationMS    *int64         `json:"duration_ms"`
	ParentSpanKey string         `json:"parent_span_key"`
	ParentSpanID  string         `json:"parent_span_id"`
	Tags          map[string]any `json:"tags"`
	IsError       bool           `json:"is_error"`
}

// DecodeSpans reads a span JSON document from r. Both a bare array and a
// {"spans": [...]} wrapper are accepted.
func DecodeSpans(r io.Reader) ([]Span, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read span document: %w", err)
	}

	var raws []rawSpan
	if err := json.Unmarshal(data, &raws); err != nil {
		var file spanFile
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("decode span document: %w", err)
		}
		raws = file.Spans
	}

	spans := make([]Span, 0, len(raws))
	for _, raw := range raws {
		spans = append(spans, raw.toSpan())
	}
	return spans, nil
}

func (r rawSpan) toSpan() Span {
	sp := Span{
		SpanKey:       firstNonEmpty(r.SpanKey, r.SpanID),
		TraceID:       r.TraceID,
		OperationName: r.OperationName,
		ServiceName:   r.ServiceName,
		StartTime:     r.StartTime,
		ParentSpanKey: firstNonEmpty(r.ParentSpanKey, r.ParentSpanID),
		IsError:       r.IsError,
	}

	switch {
	case r.DurationUS != nil:
		sp.Duration = time.Duration(*r.DurationUS) * time.Microsecond
	case r.DurationMS != nil:
		sp.Duration = time.Duration(*r.DurationMS) * time.Millisecond
	}

	if len(r.Tags) > 0 {
		sp.Tags = make(map[string]string, len(r.Tags))
		for k, v := range r.Tags {
			sp.Tags[k] = coerceTagString(v)
		}
	}

	return sp
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// coerceTagString renders a loosely-typed tag value as a string. Nested
// structures are re-serialized so message lists survive the round trip.
func coerceTagString(v any) string {
	switch typed := v.(type) {
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case float64:
		if typed == float64(int64(typed)) {
			return strconv.FormatInt(int64(typed), 10)
		}
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case json.Number:
		return typed.String()
	case nil:
		return ""
	default:
		data, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprintf("%v", typed)
		}
		return string(data)
	}
}
