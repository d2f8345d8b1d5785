package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/agentlens/agentlens/internal/quality"
	"github.com/agentlens/agentlens/internal/security"
)

// checkResult is the combined quality and security outcome for one
// exchange, used by both text and json output.
type checkResult struct {
	QualityChecks  []quality.Check  `json:"quality_checks"`
	SecurityChecks []security.Check `json:"security_checks"`
}

func runCheck(args []string, out io.Writer, errOut io.Writer) int {
	flagSet := flag.NewFlagSet("check", flag.ContinueOnError)
	flagSet.SetOutput(errOut)
	configPath := flagSet.String("config", defaultConfigPath, "Path to config file")
	userInput := flagSet.String("input", "", "User input text to check")
	llmOutput := flagSet.String("output", "", "LLM output text to check")
	format := flagSet.String("format", "text", "Output format: text or json")
	if err := flagSet.Parse(args); err != nil {
		return 2
	}
	if flagSet.NArg() != 0 {
		fmt.Fprintln(errOut, "check does not accept positional arguments")
		return 2
	}
	if *userInput == "" && *llmOutput == "" {
		fmt.Fprintln(errOut, "check requires --input and/or --output")
		return 2
	}

	outputFormat, err := normalizeTextJSONFormat("check", *format, "text")
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

	result := checkResult{
		QualityChecks: quality.RunChecks(quality.Context{
			UserInput: *userInput,
			LLMOutput: *llmOutput,
		}, cfg.Quality),
		SecurityChecks: security.RunChecks(security.Context{
			UserInput: *userInput,
			LLMOutput: *llmOutput,
		}, cfg.SecurityRunConfig()),
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			fmt.Fprintf(errOut, "failed to encode check result: %v\n", err)
			return 1
		}
	} else {
		writeCheckText(out, result)
	}

	if checkFailed(result) {
		return 1
	}
	return 0
}

func writeCheckText(out io.Writer, result checkResult) {
	for _, check := range result.QualityChecks {
		line := fmt.Sprintf("quality %s: %s", check.Severity, check.Name)
		if check.Score != nil {
			line += fmt.Sprintf(" score=%.2f", *check.Score)
		}
		if check.Details != "" {
			line += " (" + check.Details + ")"
		}
		fmt.Fprintln(out, line)
	}
	for _, check := range result.SecurityChecks {
		if !check.Detected {
			continue
		}
		line := fmt.Sprintf("security %s: %s", check.Severity, check.Name)
		if check.Details != "" {
			line += " (" + check.Details + ")"
		}
		fmt.Fprintln(out, line)
	}
}

// checkFailed reports whether the exchange should fail a CI-style gate:
// any quality failure or any detected high/critical security finding.
func checkFailed(result checkResult) bool {
	for _, check := range result.QualityChecks {
		if check.Severity == quality.SeverityFail {
			return true
		}
	}
	for _, check := range result.SecurityChecks {
		if check.Detected && (check.Severity == security.SeverityHigh || check.Severity == security.SeverityCritical) {
			return true
		}
	}
	return false
}
