package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agentlens/agentlens/internal/pricing"
	"github.com/agentlens/agentlens/internal/quality"
	"github.com/agentlens/agentlens/internal/security"
)

type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
	Quality       quality.Config      `yaml:"quality"`
	Security      SecurityConfig      `yaml:"security"`
	Pricing       PricingConfig       `yaml:"pricing"`
	Workflow      WorkflowConfig      `yaml:"workflow"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

type ObservabilityConfig struct {
	OTel OTelConfig `yaml:"otel"`
}

type OTelConfig struct {
	Enabled                bool    `yaml:"enabled"`
	Endpoint               string  `yaml:"endpoint"`
	Insecure               bool    `yaml:"insecure"`
	ServiceName            string  `yaml:"service_name"`
	TracesEnabled          bool    `yaml:"traces_enabled"`
	MetricsEnabled         bool    `yaml:"metrics_enabled"`
	SamplingRatio          float64 `yaml:"sampling_ratio"`
	ExportTimeoutMS        int     `yaml:"export_timeout_ms"`
	MetricExportIntervalMS int     `yaml:"metric_export_interval_ms"`
}

type SecurityConfig struct {
	PromptInjectionEnabled bool                  `yaml:"prompt_injection_enabled"`
	JailbreakEnabled       bool                  `yaml:"jailbreak_enabled"`
	PIIEnabled             bool                  `yaml:"pii_enabled"`
	SensitiveDataEnabled   bool                  `yaml:"sensitive_data_enabled"`
	CustomPIIPatterns      []CustomPatternConfig `yaml:"custom_pii_patterns"`
	CustomSensitive        []CustomPatternConfig `yaml:"custom_sensitive_patterns"`
}

type CustomPatternConfig struct {
	Name     string `yaml:"name"`
	Pattern  string `yaml:"pattern"`
	Severity string `yaml:"severity"`
}

type PricingConfig struct {
	Overrides []ModelPricingConfig `yaml:"overrides"`
}

type ModelPricingConfig struct {
	Model      string  `yaml:"model"`
	Provider   string  `yaml:"provider"`
	InputPerM  float64 `yaml:"input_per_million"`
	OutputPerM float64 `yaml:"output_per_million"`
}

type WorkflowConfig struct {
	AdjacencyWindowMS int `yaml:"adjacency_window_ms"`
}

func (c WorkflowConfig) AdjacencyWindow() time.Duration {
	return time.Duration(c.AdjacencyWindowMS) * time.Millisecond
}

const (
	defaultOTELEndpoint               = "localhost:4318"
	defaultOTELServiceName            = "agentlens"
	defaultOTELSamplingRatio          = 1.0
	defaultOTELExportTimeoutMS        = 3000
	defaultOTELMetricExportIntervalMS = 10000

	defaultAdjacencyWindowMS = 100
)

func Default() Config {
	return Config{
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "./data/agentlens.db",
		},
		Observability: ObservabilityConfig{
			OTel: OTelConfig{
				Enabled:                false,
				Endpoint:               defaultOTELEndpoint,
				Insecure:               true,
				ServiceName:            defaultOTELServiceName,
				TracesEnabled:          true,
				MetricsEnabled:         true,
				SamplingRatio:          defaultOTELSamplingRatio,
				ExportTimeoutMS:        defaultOTELExportTimeoutMS,
				MetricExportIntervalMS: defaultOTELMetricExportIntervalMS,
			},
		},
		Quality: quality.DefaultConfig(),
		Security: SecurityConfig{
			PromptInjectionEnabled: true,
			JailbreakEnabled:       true,
			PIIEnabled:             true,
			SensitiveDataEnabled:   true,
		},
		Workflow: WorkflowConfig{
			AdjacencyWindowMS: defaultAdjacencyWindowMS,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			decoder := yaml.NewDecoder(bytes.NewReader(data))
			decoder.KnownFields(true)
			decodeErr := decoder.Decode(&cfg)
			if errors.Is(decodeErr, io.EOF) {
				decodeErr = nil
			}
			if decodeErr != nil {
				return Config{}, fmt.Errorf("parse yaml %q: %w", path, decodeErr)
			}
			// Reject multi-document configs to keep runtime configuration
			// unambiguous and avoid hidden trailing documents.
			var trailing any
			trailingErr := decoder.Decode(&trailing)
			if trailingErr != nil && !errors.Is(trailingErr, io.EOF) {
				return Config{}, fmt.Errorf("parse yaml %q: %w", path, trailingErr)
			}
			if trailing != nil {
				return Config{}, fmt.Errorf("parse yaml %q: multiple yaml documents are not supported", path)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks configuration invariants required at runtime.
func Validate(cfg Config) error {
	driver := strings.TrimSpace(cfg.Storage.Driver)
	switch driver {
	case "sqlite":
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			return errors.New("storage.path is required when storage.driver=sqlite")
		}
	case "postgres":
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return errors.New("storage.dsn is required when storage.driver=postgres")
		}
	default:
		return fmt.Errorf("storage.driver must be one of sqlite, postgres (got %q)", cfg.Storage.Driver)
	}

	if err := validateThresholds("quality.hallucination", cfg.Quality.Hallucination); err != nil {
		return err
	}
	if err := validateThresholds("quality.relevance", cfg.Quality.Relevance); err != nil {
		return err
	}
	if err := validateThresholds("quality.toxicity", cfg.Quality.Toxicity); err != nil {
		return err
	}
	if err := validateThresholds("quality.coherence", cfg.Quality.Coherence); err != nil {
		return err
	}

	if err := validateCustomPatterns("security.custom_pii_patterns", cfg.Security.CustomPIIPatterns); err != nil {
		return err
	}
	if err := validateCustomPatterns("security.custom_sensitive_patterns", cfg.Security.CustomSensitive); err != nil {
		return err
	}

	for idx, override := range cfg.Pricing.Overrides {
		name := fmt.Sprintf("pricing.overrides[%d]", idx)
		if strings.TrimSpace(override.Model) == "" {
			return fmt.Errorf("%s.model is required", name)
		}
		if override.InputPerM < 0 || override.OutputPerM < 0 {
			return fmt.Errorf("%s rates must not be negative", name)
		}
	}

	if cfg.Workflow.AdjacencyWindowMS <= 0 {
		return fmt.Errorf("workflow.adjacency_window_ms must be > 0 (got %d)", cfg.Workflow.AdjacencyWindowMS)
	}

	if err := validateOTelConfig(cfg.Observability.OTel); err != nil {
		return err
	}

	return nil
}

func validateThresholds(name string, t quality.Thresholds) error {
	if t.Warning < 0 || t.Warning > 1 {
		return fmt.Errorf("%s.warning must be between 0 and 1 (got %f)", name, t.Warning)
	}
	if t.Fail < 0 || t.Fail > 1 {
		return fmt.Errorf("%s.fail must be between 0 and 1 (got %f)", name, t.Fail)
	}
	return nil
}

func validateCustomPatterns(name string, patterns []CustomPatternConfig) error {
	for idx, p := range patterns {
		entry := fmt.Sprintf("%s[%d]", name, idx)
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%s.name is required", entry)
		}
		if strings.TrimSpace(p.Pattern) == "" {
			return fmt.Errorf("%s.pattern is required", entry)
		}
		if _, err := regexp.Compile(p.Pattern); err != nil {
			return fmt.Errorf("compile %s.pattern: %w", entry, err)
		}
		switch strings.ToLower(strings.TrimSpace(p.Severity)) {
		case "", string(security.SeverityLow), string(security.SeverityMedium), string(security.SeverityHigh), string(security.SeverityCritical):
		default:
			return fmt.Errorf("%s.severity must be one of low, medium, high, critical (got %q)", entry, p.Severity)
		}
	}
	return nil
}

func validateOTelConfig(cfg OTelConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return errors.New("observability.otel.endpoint is required when observability.otel.enabled=true")
	}
	if strings.TrimSpace(cfg.ServiceName) == "" {
		return errors.New("observability.otel.service_name is required when observability.otel.enabled=true")
	}
	if !cfg.TracesEnabled && !cfg.MetricsEnabled {
		return errors.New("observability.otel requires traces_enabled and/or metrics_enabled when enabled")
	}
	if cfg.SamplingRatio < 0 || cfg.SamplingRatio > 1 {
		return fmt.Errorf("observability.otel.sampling_ratio must be between 0 and 1 (got %f)", cfg.SamplingRatio)
	}
	if cfg.ExportTimeoutMS <= 0 {
		return fmt.Errorf("observability.otel.export_timeout_ms must be > 0 (got %d)", cfg.ExportTimeoutMS)
	}
	if cfg.MetricExportIntervalMS <= 0 {
		return fmt.Errorf("observability.otel.metric_export_interval_ms must be > 0 (got %d)", cfg.MetricExportIntervalMS)
	}
	return nil
}

// SecurityRunConfig converts the yaml security section into the
// detector configuration, compiling any custom patterns. Call Validate
// first; invalid patterns are skipped here rather than reported.
func (cfg Config) SecurityRunConfig() security.Config {
	out := security.Config{
		PromptInjectionEnabled: cfg.Security.PromptInjectionEnabled,
		JailbreakEnabled:       cfg.Security.JailbreakEnabled,
		PIIEnabled:             cfg.Security.PIIEnabled,
		SensitiveDataEnabled:   cfg.Security.SensitiveDataEnabled,
	}
	out.CustomPIIPatterns = compileCustomPatterns(cfg.Security.CustomPIIPatterns)
	out.CustomSensitivePatterns = compileCustomPatterns(cfg.Security.CustomSensitive)
	return out
}

func compileCustomPatterns(patterns []CustomPatternConfig) []security.Pattern {
	var out []security.Pattern
	for _, p := range patterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		severity := security.Severity(strings.ToLower(strings.TrimSpace(p.Severity)))
		if severity == "" {
			severity = security.SeverityMedium
		}
		out = append(out, security.Pattern{
			Name:     p.Name,
			Severity: severity,
			Regexp:   re,
		})
	}
	return out
}

// PricingOverrides converts the yaml pricing section into calculator
// override entries.
func (cfg Config) PricingOverrides() []pricing.ModelPricing {
	var out []pricing.ModelPricing
	for _, o := range cfg.Pricing.Overrides {
		out = append(out, pricing.ModelPricing{
			Model:      o.Model,
			Provider:   o.Provider,
			InputPerM:  o.InputPerM,
			OutputPerM: o.OutputPerM,
		})
	}
	return out
}

func applyEnv(cfg *Config) error {
	if storageDriver := os.Getenv("AGENTLENS_STORAGE_DRIVER"); storageDriver != "" {
		cfg.Storage.Driver = storageDriver
	}
	if storagePath := os.Getenv("AGENTLENS_STORAGE_PATH"); storagePath != "" {
		cfg.Storage.Path = storagePath
	}
	if storageDSN := os.Getenv("AGENTLENS_STORAGE_DSN"); storageDSN != "" {
		cfg.Storage.DSN = storageDSN
	}

	if window := os.Getenv("AGENTLENS_ADJACENCY_WINDOW_MS"); window != "" {
		v, err := strconv.Atoi(window)
		if err != nil {
			return fmt.Errorf("invalid AGENTLENS_ADJACENCY_WINDOW_MS: %w", err)
		}
		cfg.Workflow.AdjacencyWindowMS = v
	}

	otelConfigured := false
	otelSDKDisabledSet := false
	if sdkDisabled := strings.TrimSpace(os.Getenv("OTEL_SDK_DISABLED")); sdkDisabled != "" {
		v, err := strconv.ParseBool(sdkDisabled)
		if err != nil {
			return fmt.Errorf("invalid OTEL_SDK_DISABLED: %w", err)
		}
		cfg.Observability.OTel.Enabled = !v
		otelSDKDisabledSet = true
		otelConfigured = true
	}
	if endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); endpoint != "" {
		cfg.Observability.OTel.Endpoint = endpoint
		otelConfigured = true
	}
	if insecure := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); insecure != "" {
		v, err := strconv.ParseBool(insecure)
		if err != nil {
			return fmt.Errorf("invalid OTEL_EXPORTER_OTLP_INSECURE: %w", err)
		}
		cfg.Observability.OTel.Insecure = v
		otelConfigured = true
	}
	if serviceName := strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME")); serviceName != "" {
		cfg.Observability.OTel.ServiceName = serviceName
		otelConfigured = true
	}
	if tracesExporter := strings.TrimSpace(os.Getenv("OTEL_TRACES_EXPORTER")); tracesExporter != "" {
		enabled, err := otelExporterEnabled(tracesExporter)
		if err != nil {
			return fmt.Errorf("invalid OTEL_TRACES_EXPORTER: %w", err)
		}
		cfg.Observability.OTel.TracesEnabled = enabled
		otelConfigured = true
	}
	if metricsExporter := strings.TrimSpace(os.Getenv("OTEL_METRICS_EXPORTER")); metricsExporter != "" {
		enabled, err := otelExporterEnabled(metricsExporter)
		if err != nil {
			return fmt.Errorf("invalid OTEL_METRICS_EXPORTER: %w", err)
		}
		cfg.Observability.OTel.MetricsEnabled = enabled
		otelConfigured = true
	}
	if samplingRatio := strings.TrimSpace(os.Getenv("OTEL_TRACES_SAMPLER_ARG")); samplingRatio != "" {
		v, err := strconv.ParseFloat(samplingRatio, 64)
		if err != nil {
			return fmt.Errorf("invalid OTEL_TRACES_SAMPLER_ARG: %w", err)
		}
		cfg.Observability.OTel.SamplingRatio = v
		otelConfigured = true
	}
	if exportTimeout := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_TIMEOUT")); exportTimeout != "" {
		v, err := strconv.Atoi(exportTimeout)
		if err != nil {
			return fmt.Errorf("invalid OTEL_EXPORTER_OTLP_TIMEOUT: %w", err)
		}
		cfg.Observability.OTel.ExportTimeoutMS = v
		otelConfigured = true
	}
	if metricExportInterval := strings.TrimSpace(os.Getenv("OTEL_METRIC_EXPORT_INTERVAL")); metricExportInterval != "" {
		v, err := strconv.Atoi(metricExportInterval)
		if err != nil {
			return fmt.Errorf("invalid OTEL_METRIC_EXPORT_INTERVAL: %w", err)
		}
		cfg.Observability.OTel.MetricExportIntervalMS = v
		otelConfigured = true
	}
	if otelConfigured && !otelSDKDisabledSet {
		cfg.Observability.OTel.Enabled = true
	}

	return nil
}

func otelExporterEnabled(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "otlp":
		return true, nil
	case "none":
		return false, nil
	default:
		return false, fmt.Errorf("must be one of otlp, none (got %q)", value)
	}
}
