package observability

import (
	"context"
	"log/slog"

	oteltrace "go.opentelemetry.io/otel/trace"
)

// NewTraceContextHandler wraps inner so every log record emitted with a
// context carrying an active span also carries trace_id and span_id.
// A nil inner falls back to the default handler.
func NewTraceContextHandler(inner slog.Handler) slog.Handler {
	if inner == nil {
		inner = slog.Default().Handler()
	}
	return traceContextHandler{inner: inner}
}

type traceContextHandler struct {
	inner slog.Handler
}

func (h traceContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h traceContextHandler) Handle(ctx context.Context, record slog.Record) error {
	if sc := recordingSpanContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.inner.Handle(ctx, record)
}

func (h traceContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceContextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h traceContextHandler) WithGroup(name string) slog.Handler {
	return traceContextHandler{inner: h.inner.WithGroup(name)}
}

func recordingSpanContext(ctx context.Context) oteltrace.SpanContext {
	span := oteltrace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return oteltrace.SpanContext{}
	}
	return span.SpanContext()
}
