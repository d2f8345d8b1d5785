package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/agentlens/agentlens/internal/observability"
	"github.com/agentlens/agentlens/internal/span"
	"github.com/agentlens/agentlens/internal/version"
)

func runImport(args []string, out io.Writer, errOut io.Writer) int {
	flagSet := flag.NewFlagSet("import", flag.ContinueOnError)
	flagSet.SetOutput(errOut)
	configPath := flagSet.String("config", defaultConfigPath, "Path to config file")
	filePath := flagSet.String("file", "", "Span JSON document to import (default stdin)")
	if err := flagSet.Parse(args); err != nil {
		return 2
	}
	if flagSet.NArg() != 0 {
		fmt.Fprintln(errOut, "import does not accept positional arguments")
		return 2
	}

	cfg, stage, err := loadAndValidateConfig(*configPath)
	if err != nil {
		if stage == configStageLoad {
			fmt.Fprintf(errOut, "failed to load config: %v\n", err)
		} else {
			fmt.Fprintf(errOut, "config is invalid: %v\n", err)
		}
		return 1
	}

	logger := newLogger()
	otelRuntime, otelErr := observability.Setup(context.Background(), cfg.Observability.OTel, version.String(), logger)
	if otelErr != nil {
		logger.Error("failed to initialize opentelemetry; continuing with instrumentation disabled", "error", otelErr)
	}
	if otelRuntime != nil {
		defer shutdownOpenTelemetry(logger, otelRuntime, otelShutdownTimeout)
	}

	input := io.Reader(os.Stdin)
	if *filePath != "" {
		f, err := os.Open(*filePath)
		if err != nil {
			fmt.Fprintf(errOut, "failed to open span file: %v\n", err)
			return 1
		}
		defer f.Close()
		input = f
	}

	spans, err := span.DecodeSpans(input)
	if err != nil {
		fmt.Fprintf(errOut, "failed to decode spans: %v\n", err)
		return 1
	}
	if len(spans) == 0 {
		fmt.Fprintln(out, "no spans to import")
		return 0
	}

	store, err := openSpanStore(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "failed to open span store: %v\n", err)
		return 1
	}
	defer store.Close()

	writer := span.NewWriter(store, 0)
	writer.SetWriteFailureHandler(func(failure span.WriteFailure) {
		logger.Error("span write failed", "batch_size", failure.BatchSize, "failed_count", failure.FailedCount, "error", failure.Err)
		otelRuntime.RecordSpanWriteFailure("write_batch", failure.FailedCount)
	})
	writer.SetMetrics(&span.WriterMetrics{
		OnDrop: func() {
			otelRuntime.RecordSpanQueueDrop("")
		},
	})
	writer.Start(context.Background())

	for i := range spans {
		if !writer.Enqueue(&spans[i]) {
			logger.Warn("span dropped: write queue full", "span_key", spans[i].SpanKey)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), spanWriterShutdownTimeout)
	defer cancel()
	if err := writer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(errOut, "span writer shutdown failed: %v\n", err)
		return 1
	}

	dropped := writer.Dropped()
	fmt.Fprintf(out, "imported %d of %d spans (%d dropped)\n", int64(len(spans))-dropped, len(spans), dropped)
	if dropped > 0 {
		return 1
	}
	return 0
}
