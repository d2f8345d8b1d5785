package span

import (
	"strings"
	"testing"
	"time"
)

func TestDecodeSpansBareArray(t *testing.T) {
	t.Parallel()

	doc := `[
		{
			"span_key": "s1",
			"trace_id": "t1",
			"operation_name": "chat",
			"service_name": "agent",
			"start_time": "2026-03-10T12:00:00Z",
			"duration_us": 250000,
			"parent_span_key": "root",
			"tags": {"gen_ai.request.model": "gpt-4o"},
			"is_error": true
		}
	]`

	spans, err := DecodeSpans(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("DecodeSpans: %v", err)
	}
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}

	sp := spans[0]
	if sp.SpanKey != "s1" || sp.TraceID != "t1" || sp.OperationName != "chat" {
		t.Fatalf("span = %+v", sp)
	}
	if sp.ServiceName != "agent" || sp.ParentSpanKey != "root" || !sp.IsError {
		t.Fatalf("span = %+v", sp)
	}
	if sp.Duration != 250*time.Millisecond {
		t.Fatalf("Duration = %v, want 250ms", sp.Duration)
	}
	if sp.Tags["gen_ai.request.model"] != "gpt-4o" {
		t.Fatalf("Tags = %v", sp.Tags)
	}
	want := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	if !sp.StartTime.Equal(want) {
		t.Fatalf("StartTime = %v, want %v", sp.StartTime, want)
	}
}

func TestDecodeSpansWrappedObject(t *testing.T) {
	t.Parallel()

	doc := `{"spans": [{"span_key": "s1", "trace_id": "t1", "operation_name": "chat"}]}`
	spans, err := DecodeSpans(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("DecodeSpans: %v", err)
	}
	if len(spans) != 1 || spans[0].SpanKey != "s1" {
		t.Fatalf("spans = %+v", spans)
	}
}

func TestDecodeSpansSpanIDFallbacks(t *testing.T) {
	t.Parallel()

	doc := `[{"span_id": "abc", "parent_span_id": "def", "trace_id": "t1"}]`
	spans, err := DecodeSpans(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("DecodeSpans: %v", err)
	}
	if spans[0].SpanKey != "abc" {
		t.Fatalf("SpanKey = %q, want abc", spans[0].SpanKey)
	}
	if spans[0].ParentSpanKey != "def" {
		t.Fatalf("ParentSpanKey = %q, want def", spans[0].ParentSpanKey)
	}
}

func TestDecodeSpansDurationMillisFallback(t *testing.T) {
	t.Parallel()

	doc := `[{"span_key": "s1", "duration_ms": 120}]`
	spans, err := DecodeSpans(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("DecodeSpans: %v", err)
	}
	if spans[0].Duration != 120*time.Millisecond {
		t.Fatalf("Duration = %v, want 120ms", spans[0].Duration)
	}

	// duration_us wins when both are present.
	doc = `[{"span_key": "s1", "duration_us": 500, "duration_ms": 120}]`
	spans, err = DecodeSpans(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("DecodeSpans: %v", err)
	}
	if spans[0].Duration != 500*time.Microsecond {
		t.Fatalf("Duration = %v, want 500us", spans[0].Duration)
	}
}

func TestDecodeSpansCoercesTagValues(t *testing.T) {
	t.Parallel()

	doc := `[{
		"span_key": "s1",
		"tags": {
			"int": 1500,
			"int_float_spelling": 1000.0,
			"float": 0.7,
			"bool": true,
			"null": null,
			"nested": [{"role": "user", "content": "hi"}],
			"string": "plain"
		}
	}]`

	spans, err := DecodeSpans(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("DecodeSpans: %v", err)
	}

	tags := spans[0].Tags
	want := map[string]string{
		"int":                "1500",
		"int_float_spelling": "1000",
		"float":              "0.7",
		"bool":               "true",
		"null":               "",
		"nested":             `[{"content":"hi","role":"user"}]`,
		"string":             "plain",
	}
	for k, v := range want {
		if tags[k] != v {
			t.Errorf("tag %q = %q, want %q", k, tags[k], v)
		}
	}
}

func TestDecodeSpansMalformedDocument(t *testing.T) {
	t.Parallel()

	if _, err := DecodeSpans(strings.NewReader("not json")); err == nil {
		t.Fatal("expected error for malformed document")
	}
	if _, err := DecodeSpans(strings.NewReader(`{"spans": "nope"}`)); err == nil {
		t.Fatal("expected error for wrong spans field type")
	}
}

func TestDecodeSpansEmptyInputs(t *testing.T) {
	t.Parallel()

	spans, err := DecodeSpans(strings.NewReader("[]"))
	if err != nil {
		t.Fatalf("DecodeSpans: %v", err)
	}
	if len(spans) != 0 {
		t.Fatalf("got %d spans, want 0", len(spans))
	}

	spans, err = DecodeSpans(strings.NewReader(`{"spans": []}`))
	if err != nil {
		t.Fatalf("DecodeSpans: %v", err)
	}
	if len(spans) != 0 {
		t.Fatalf("got %d spans, want 0", len(spans))
	}
}
