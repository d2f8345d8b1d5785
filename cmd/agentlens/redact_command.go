package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/agentlens/agentlens/internal/security"
)

func runRedact(args []string, out io.Writer, errOut io.Writer) int {
	flagSet := flag.NewFlagSet("redact", flag.ContinueOnError)
	flagSet.SetOutput(errOut)
	configPath := flagSet.String("config", defaultConfigPath, "Path to config file")
	filePath := flagSet.String("file", "", "Text file to redact (default stdin)")
	if err := flagSet.Parse(args); err != nil {
		return 2
	}
	if flagSet.NArg() != 0 {
		fmt.Fprintln(errOut, "redact does not accept positional arguments")
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

	input := io.Reader(os.Stdin)
	if *filePath != "" {
		f, err := os.Open(*filePath)
		if err != nil {
			fmt.Fprintf(errOut, "failed to open input file: %v\n", err)
			return 1
		}
		defer f.Close()
		input = f
	}

	data, err := io.ReadAll(input)
	if err != nil {
		fmt.Fprintf(errOut, "failed to read input: %v\n", err)
		return 1
	}

	runCfg := cfg.SecurityRunConfig()
	text := string(data)
	text = security.RedactPII(text, runCfg.CustomPIIPatterns...)
	text = security.RedactSensitiveData(text, runCfg.CustomSensitivePatterns...)

	if _, err := io.WriteString(out, text); err != nil {
		fmt.Fprintf(errOut, "failed to write output: %v\n", err)
		return 1
	}
	return 0
}
