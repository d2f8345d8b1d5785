package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/agentlens/agentlens/internal/config"
	"github.com/agentlens/agentlens/internal/observability"
	"github.com/agentlens/agentlens/internal/pricing"
	"github.com/agentlens/agentlens/internal/quality"
	"github.com/agentlens/agentlens/internal/report"
	"github.com/agentlens/agentlens/internal/span"
	"github.com/agentlens/agentlens/internal/tokens"
	"github.com/agentlens/agentlens/internal/version"
	"github.com/agentlens/agentlens/internal/workflow"
)

func runAnalyze(args []string, out io.Writer, errOut io.Writer) int {
	flagSet := flag.NewFlagSet("analyze", flag.ContinueOnError)
	flagSet.SetOutput(errOut)
	configPath := flagSet.String("config", defaultConfigPath, "Path to config file")
	traceID := flagSet.String("trace-id", "", "Analyze a single trace from the span store")
	filePath := flagSet.String("file", "", "Analyze spans from a JSON document instead of the store")
	format := flagSet.String("format", "text", "Output format: text or json")
	if err := flagSet.Parse(args); err != nil {
		return 2
	}
	if flagSet.NArg() != 0 {
		fmt.Fprintln(errOut, "analyze does not accept positional arguments")
		return 2
	}

	outputFormat, err := normalizeTextJSONFormat("analyze", *format, "text")
	if err != nil {
		fmt.Fprintln(errOut, err)
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

	traces, err := collectTraces(cfg, *traceID, *filePath)
	if err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
		return 1
	}
	if len(traces) == 0 {
		fmt.Fprintln(out, "no traces to analyze")
		return 0
	}

	builder := newReportBuilder(cfg)
	reports := make([]report.Report, 0, len(traces))
	for _, tr := range traces {
		rpt := builder.Build(tr.id, tr.spans)
		recordReportMetrics(otelRuntime, rpt)
		reports = append(reports, rpt)
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(reports); err != nil {
			fmt.Fprintf(errOut, "failed to encode reports: %v\n", err)
			return 1
		}
		return 0
	}

	for _, rpt := range reports {
		writeReportText(out, rpt)
	}
	return 0
}

func newReportBuilder(cfg config.Config) *report.Builder {
	return report.NewBuilder(
		pricing.NewCalculator(cfg.PricingOverrides()...),
		tokens.NewEstimator(),
		cfg.Quality,
		cfg.SecurityRunConfig(),
		workflow.WithAdjacencyWindow(cfg.Workflow.AdjacencyWindow()),
	)
}

type traceSpans struct {
	id    string
	spans []span.Span
}

// collectTraces resolves the analysis input: a span document when --file
// is set, otherwise the configured store.
func collectTraces(cfg config.Config, traceID, filePath string) ([]traceSpans, error) {
	if filePath != "" {
		f, err := os.Open(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open span file: %w", err)
		}
		defer f.Close()
		spans, err := span.DecodeSpans(f)
		if err != nil {
			return nil, fmt.Errorf("failed to decode spans: %w", err)
		}
		return groupByTrace(spans, traceID), nil
	}

	store, err := openSpanStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open span store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	if traceID != "" {
		spans, err := store.ListTraceSpans(ctx, traceID)
		if err != nil {
			return nil, fmt.Errorf("failed to list trace spans: %w", err)
		}
		return []traceSpans{{id: traceID, spans: spans}}, nil
	}

	ids, err := store.ListTraceIDs(ctx, span.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list trace ids: %w", err)
	}
	traces := make([]traceSpans, 0, len(ids))
	for _, id := range ids {
		spans, err := store.ListTraceSpans(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to list trace spans: %w", err)
		}
		traces = append(traces, traceSpans{id: id, spans: spans})
	}
	return traces, nil
}

func groupByTrace(spans []span.Span, traceID string) []traceSpans {
	grouped := make(map[string][]span.Span)
	for _, sp := range spans {
		if traceID != "" && sp.TraceID != traceID {
			continue
		}
		grouped[sp.TraceID] = append(grouped[sp.TraceID], sp)
	}

	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	traces := make([]traceSpans, 0, len(ids))
	for _, id := range ids {
		traces = append(traces, traceSpans{id: id, spans: grouped[id]})
	}
	return traces
}

func recordReportMetrics(runtime *observability.Runtime, rpt report.Report) {
	runtime.RecordSpansAnalyzed(len(rpt.Spans))
	for _, sa := range rpt.Spans {
		for _, check := range sa.QualityChecks {
			if check.Severity != quality.SeverityPass {
				runtime.RecordFinding(string(check.Type), string(check.Severity))
			}
		}
		for _, check := range sa.SecurityChecks {
			if check.Detected {
				runtime.RecordFinding(string(check.Type), string(check.Severity))
			}
		}
	}
}

func writeReportText(out io.Writer, rpt report.Report) {
	fmt.Fprintf(out, "trace %s\n", rpt.TraceID)
	fmt.Fprintf(out, "  llm spans: %d (tool calls %d, agent handoffs %d)\n",
		rpt.Summary.LLMSpanCount, rpt.Summary.ToolCallCount, rpt.Summary.AgentHandoffCount)
	fmt.Fprintf(out, "  tokens: %d input, %d output, %d total\n",
		rpt.Summary.TotalInputTokens, rpt.Summary.TotalOutputTokens, rpt.Summary.TotalTokens)
	if len(rpt.Summary.UniqueModels) > 0 {
		fmt.Fprintf(out, "  models: %s\n", strings.Join(rpt.Summary.UniqueModels, ", "))
	}
	cost := pricing.FormatCost(rpt.Cost.TotalCost)
	if rpt.Cost.Estimated && cost != "N/A" {
		cost += " (estimated)"
	}
	fmt.Fprintf(out, "  cost: %s\n", cost)
	fmt.Fprintf(out, "  workflow: %d nodes, %d edges\n", len(rpt.Workflow.Nodes), len(rpt.Workflow.Edges))

	for _, sa := range rpt.Spans {
		for _, check := range sa.QualityChecks {
			if check.Severity == quality.SeverityPass {
				continue
			}
			fmt.Fprintf(out, "  quality %s: %s (%s) span=%s\n", check.Severity, check.Name, check.Details, sa.SpanKey)
		}
		for _, check := range sa.SecurityChecks {
			if !check.Detected {
				continue
			}
			fmt.Fprintf(out, "  security %s: %s (%s) span=%s\n", check.Severity, check.Name, check.Details, sa.SpanKey)
		}
	}
}
