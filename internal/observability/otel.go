package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/agentlens/agentlens/internal/config"
)

const (
	instrumentationName = "agentlens"
)

// Runtime exposes the analyzer's OpenTelemetry self-telemetry hooks.
type Runtime struct {
	enabled bool

	spansAnalyzedCounter    metric.Int64Counter
	findingsCounter         metric.Int64Counter
	spanQueueDroppedCounter metric.Int64Counter
	spanWriteFailedCounter  metric.Int64Counter

	shutdownFns []func(context.Context) error
}

// Setup initializes OpenTelemetry providers and runtime hooks.
func Setup(ctx context.Context, cfg config.OTelConfig, serviceVersion string, logger *slog.Logger) (*Runtime, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	runtime := &Runtime{}
	if !cfg.Enabled {
		return runtime, nil
	}

	exportTimeout := time.Duration(cfg.ExportTimeoutMS) * time.Millisecond
	metricInterval := time.Duration(cfg.MetricExportIntervalMS) * time.Millisecond
	otlpEndpoint, inferredInsecure, err := normalizeOTLPEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	insecure := cfg.Insecure
	if strings.Contains(strings.TrimSpace(cfg.Endpoint), "://") {
		// Endpoint URLs carry explicit transport intent and win over the
		// insecure toggle to avoid mismatches like https endpoints + insecure=true.
		insecure = inferredInsecure
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", strings.TrimSpace(cfg.ServiceName)),
		attribute.String("service.version", strings.TrimSpace(serviceVersion)),
	)

	if cfg.TracesEnabled {
		traceExporterOptions := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(otlpEndpoint),
			otlptracehttp.WithTimeout(exportTimeout),
		}
		if insecure {
			traceExporterOptions = append(traceExporterOptions, otlptracehttp.WithInsecure())
		}
		traceExporter, err := otlptracehttp.New(ctx, traceExporterOptions...)
		if err != nil {
			return nil, fmt.Errorf("initialize otel trace exporter: %w", err)
		}

		tracerProvider := sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRatio))),
			sdktrace.WithBatcher(newScrubExporter(traceExporter)),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tracerProvider)
		runtime.shutdownFns = append(runtime.shutdownFns, tracerProvider.Shutdown)
	}

	if cfg.MetricsEnabled {
		metricExporterOptions := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(otlpEndpoint),
			otlpmetrichttp.WithTimeout(exportTimeout),
		}
		if insecure {
			metricExporterOptions = append(metricExporterOptions, otlpmetrichttp.WithInsecure())
		}
		metricExporter, err := otlpmetrichttp.New(ctx, metricExporterOptions...)
		if err != nil {
			_ = runtime.Shutdown(context.Background())
			return nil, fmt.Errorf("initialize otel metric exporter: %w", err)
		}

		reader := sdkmetric.NewPeriodicReader(
			metricExporter,
			sdkmetric.WithInterval(metricInterval),
			sdkmetric.WithTimeout(exportTimeout),
		)
		meterProvider := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(reader),
		)
		otel.SetMeterProvider(meterProvider)
		runtime.shutdownFns = append(runtime.shutdownFns, meterProvider.Shutdown)
	}

	otel.SetTextMapPropagator(propagation.TraceContext{})

	meter := otel.Meter(instrumentationName)
	spansAnalyzedCounter, metricErr := meter.Int64Counter(
		"agentlens.spans.analyzed_total",
		metric.WithDescription("Count of spans run through LLM extraction and analysis."),
	)
	if metricErr != nil && logger != nil {
		logger.Warn("failed to create opentelemetry counter", "metric", "agentlens.spans.analyzed_total", "error", metricErr)
	}
	runtime.spansAnalyzedCounter = spansAnalyzedCounter

	findingsCounter, metricErr := meter.Int64Counter(
		"agentlens.findings_total",
		metric.WithDescription("Count of quality and security findings by kind and severity."),
	)
	if metricErr != nil && logger != nil {
		logger.Warn("failed to create opentelemetry counter", "metric", "agentlens.findings_total", "error", metricErr)
	}
	runtime.findingsCounter = findingsCounter

	spanQueueDroppedCounter, metricErr := meter.Int64Counter(
		"agentlens.spans.queue_dropped_total",
		metric.WithDescription("Count of spans dropped because the async write queue was full."),
	)
	if metricErr != nil && logger != nil {
		logger.Warn("failed to create opentelemetry counter", "metric", "agentlens.spans.queue_dropped_total", "error", metricErr)
	}
	runtime.spanQueueDroppedCounter = spanQueueDroppedCounter

	spanWriteFailedCounter, metricErr := meter.Int64Counter(
		"agentlens.spans.write_failed_total",
		metric.WithDescription("Count of span records dropped after storage write failures."),
	)
	if metricErr != nil && logger != nil {
		logger.Warn("failed to create opentelemetry counter", "metric", "agentlens.spans.write_failed_total", "error", metricErr)
	}
	runtime.spanWriteFailedCounter = spanWriteFailedCounter

	runtime.enabled = true
	if logger != nil {
		logger.Info(
			"opentelemetry enabled",
			"otel_endpoint", otlpEndpoint,
			"otel_traces_enabled", cfg.TracesEnabled,
			"otel_metrics_enabled", cfg.MetricsEnabled,
			"otel_sampling_ratio", cfg.SamplingRatio,
		)
	}

	return runtime, nil
}

// Enabled reports whether OpenTelemetry instrumentation is active.
func (r *Runtime) Enabled() bool {
	return r != nil && r.enabled
}

// Tracer returns the analyzer's tracer for wrapping analysis operations.
func (r *Runtime) Tracer() oteltrace.Tracer {
	return otel.Tracer(instrumentationName)
}

// RecordSpansAnalyzed increments the analyzed-span counter.
func (r *Runtime) RecordSpansAnalyzed(count int) {
	if !r.Enabled() || count <= 0 || r.spansAnalyzedCounter == nil {
		return
	}
	r.spansAnalyzedCounter.Add(context.Background(), int64(count))
}

// RecordFinding increments the finding counter for one check result.
func (r *Runtime) RecordFinding(kind, severity string) {
	if !r.Enabled() || r.findingsCounter == nil {
		return
	}
	r.findingsCounter.Add(
		context.Background(),
		1,
		metric.WithAttributes(
			attribute.String("kind", strings.TrimSpace(kind)),
			attribute.String("severity", strings.TrimSpace(severity)),
		),
	)
}

// RecordSpanQueueDrop increments a counter when the async span queue is full.
func (r *Runtime) RecordSpanQueueDrop(traceID string) {
	if !r.Enabled() || r.spanQueueDroppedCounter == nil {
		return
	}
	r.spanQueueDroppedCounter.Add(
		context.Background(),
		1,
		metric.WithAttributes(attribute.String("trace_id", strings.TrimSpace(traceID))),
	)
}

// RecordSpanWriteFailure increments a counter for dropped span records.
func (r *Runtime) RecordSpanWriteFailure(operation string, failedCount int) {
	if !r.Enabled() || failedCount <= 0 || r.spanWriteFailedCounter == nil {
		return
	}
	r.spanWriteFailedCounter.Add(
		context.Background(),
		int64(failedCount),
		metric.WithAttributes(attribute.String("operation", strings.TrimSpace(operation))),
	)
}

// Shutdown flushes and stops OpenTelemetry providers.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r == nil || len(r.shutdownFns) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for i := len(r.shutdownFns) - 1; i >= 0; i-- {
		if err := r.shutdownFns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

func normalizeOTLPEndpoint(raw string) (string, bool, error) {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return "", false, errors.New("observability.otel.endpoint must not be empty")
	}

	if !strings.Contains(endpoint, "://") {
		return endpoint, false, nil
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("parse observability.otel.endpoint: %w", err)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", false, fmt.Errorf("observability.otel.endpoint must include host (got %q)", raw)
	}

	switch strings.ToLower(strings.TrimSpace(parsed.Scheme)) {
	case "http":
		return parsed.Host, true, nil
	case "https":
		return parsed.Host, false, nil
	default:
		return "", false, fmt.Errorf("observability.otel.endpoint scheme must be http or https when provided (got %q)", parsed.Scheme)
	}
}
