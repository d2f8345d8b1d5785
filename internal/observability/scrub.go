package observability

import (
	"context"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const secretRedacted = "[CREDENTIAL_REDACTED]"

// secretPatterns cover credential shapes that must never leave the
// process inside self-telemetry. They overlap internal/security's
// catalog but stay independent: what gets scrubbed from exports must
// not change when detector configuration changes.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:sk|pk|rk|xox[baprs]|gh[pousr]|pat)_[a-z0-9_-]{8,}\b`),
	regexp.MustCompile(`(?i)eyj[a-z0-9_-]{8,}\.[a-z0-9_-]{8,}\.[a-z0-9_-]{8,}`),
	regexp.MustCompile(`(?i)\bBearer\s+[a-z0-9_.\-/+=]{8,}\b`),
	regexp.MustCompile(`(?i)\b(?:password|secret|token)\s*=\s*\S{4,}`),
}

// No credential pattern matches under eight characters.
const minSecretLen = 8

func containsSecret(s string) bool {
	if len(s) < minSecretLen {
		return false
	}
	for _, p := range secretPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// scrubSecrets replaces every matched credential with a redaction token.
// Clean input comes back unchanged without allocating.
func scrubSecrets(s string) string {
	if !containsSecret(s) {
		return s
	}
	out := s
	for _, p := range secretPatterns {
		out = p.ReplaceAllString(out, secretRedacted)
	}
	return strings.TrimSpace(out)
}

// scrubExporter sanitizes span attributes, event attributes, and status
// descriptions before handing spans to the wrapped exporter. It runs on
// the batch export goroutine, off the analysis path.
type scrubExporter struct {
	next sdktrace.SpanExporter
}

func newScrubExporter(next sdktrace.SpanExporter) sdktrace.SpanExporter {
	return &scrubExporter{next: next}
}

func (e *scrubExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	out := make([]sdktrace.ReadOnlySpan, len(spans))
	for i, s := range spans {
		out[i] = sanitizeSpan(s)
	}
	return e.next.ExportSpans(ctx, out)
}

func (e *scrubExporter) Shutdown(ctx context.Context) error {
	return e.next.Shutdown(ctx)
}

// sanitizeSpan returns s untouched when it is clean; dirty spans are
// copied through a stub so the original ReadOnlySpan is never mutated.
func sanitizeSpan(s sdktrace.ReadOnlySpan) sdktrace.ReadOnlySpan {
	if !spanHasSecret(s) {
		return s
	}

	stub := tracetest.SpanStubFromReadOnlySpan(s)
	stub.Attributes = sanitizeAttrs(stub.Attributes)
	for i := range stub.Events {
		stub.Events[i].Attributes = sanitizeAttrs(stub.Events[i].Attributes)
	}
	stub.Status.Description = scrubSecrets(stub.Status.Description)
	return stub.Snapshot()
}

func spanHasSecret(s sdktrace.ReadOnlySpan) bool {
	if attrsHaveSecret(s.Attributes()) {
		return true
	}
	for _, event := range s.Events() {
		if attrsHaveSecret(event.Attributes) {
			return true
		}
	}
	return containsSecret(s.Status().Description)
}

func attrsHaveSecret(attrs []attribute.KeyValue) bool {
	for _, a := range attrs {
		if a.Value.Type() == attribute.STRING && containsSecret(a.Value.AsString()) {
			return true
		}
	}
	return false
}

func sanitizeAttrs(attrs []attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, len(attrs))
	for i, a := range attrs {
		out[i] = a
		if a.Value.Type() != attribute.STRING {
			continue
		}
		if v := a.Value.AsString(); containsSecret(v) {
			out[i] = attribute.String(string(a.Key), scrubSecrets(v))
		}
	}
	return out
}
