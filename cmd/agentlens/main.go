package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/agentlens/agentlens/internal/observability"
	"github.com/agentlens/agentlens/internal/version"
)

const defaultConfigPath = "agentlens.yaml"

const spanWriterShutdownTimeout = 5 * time.Second
const otelShutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return 2
	}

	switch args[0] {
	case "version", "--version", "-v":
		fmt.Println(version.String())
		return 0
	case "import":
		return runImport(args[1:], os.Stdout, os.Stderr)
	case "analyze":
		return runAnalyze(args[1:], os.Stdout, os.Stderr)
	case "check":
		return runCheck(args[1:], os.Stdout, os.Stderr)
	case "redact":
		return runRedact(args[1:], os.Stdout, os.Stderr)
	case "config":
		return runConfig(args[1:], os.Stdout, os.Stderr)
	default:
		printUsage(os.Stderr)
		return 2
	}
}

func printUsage(out *os.File) {
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  agentlens import [--config path/to/agentlens.yaml] [--file spans.json]")
	fmt.Fprintln(out, "  agentlens analyze [--config path/to/agentlens.yaml] [--trace-id ID] [--file spans.json] [--format text|json]")
	fmt.Fprintln(out, "  agentlens check [--config path/to/agentlens.yaml] [--input TEXT] [--output TEXT] [--format text|json]")
	fmt.Fprintln(out, "  agentlens redact [--config path/to/agentlens.yaml] [--file input.txt]")
	fmt.Fprintln(out, "  agentlens config validate [--config path/to/agentlens.yaml]")
	fmt.Fprintln(out, "  agentlens version")
}

func newLogger() *slog.Logger {
	return slog.New(observability.NewTraceContextHandler(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

func shutdownOpenTelemetry(logger *slog.Logger, runtime *observability.Runtime, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := runtime.Shutdown(ctx); err != nil && logger != nil {
		logger.Warn("opentelemetry shutdown failed", "error", err)
	}
}
