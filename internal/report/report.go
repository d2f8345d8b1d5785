// Package report assembles the full analysis of one trace: the LLM
// summary, the reconstructed workflow graph, per-span quality and
// security findings, and the cost breakdown.
package report

import (
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/agentlens/agentlens/internal/analysis"
	"github.com/agentlens/agentlens/internal/genai"
	"github.com/agentlens/agentlens/internal/pricing"
	"github.com/agentlens/agentlens/internal/quality"
	"github.com/agentlens/agentlens/internal/security"
	"github.com/agentlens/agentlens/internal/span"
	"github.com/agentlens/agentlens/internal/tokens"
	"github.com/agentlens/agentlens/internal/workflow"
)

// SpanAnalysis is the per-span slice of a trace report. Checks combine
// findings embedded in the span's tags with checks run here over the
// span's message content.
type SpanAnalysis struct {
	SpanKey         string             `json:"span_key"`
	OperationName   string             `json:"operation_name,omitempty"`
	Info            genai.LLMSpanInfo  `json:"info"`
	QualityChecks   []quality.Check    `json:"quality_checks,omitempty"`
	SecurityChecks  []security.Check   `json:"security_checks,omitempty"`
	Cost            pricing.CostResult `json:"cost"`
	EstimatedTokens bool               `json:"estimated_tokens,omitempty"`
}

// CostBreakdown totals span costs per trace. Estimated is set when any
// span cost used fallback rates or estimated token counts.
type CostBreakdown struct {
	TotalCost float64            `json:"total_cost"`
	Currency  string             `json:"currency"`
	Estimated bool               `json:"estimated,omitempty"`
	ByModel   map[string]float64 `json:"by_model,omitempty"`
}

// Report is the complete analysis result for one trace.
type Report struct {
	ID          string                   `json:"id"`
	TraceID     string                   `json:"trace_id"`
	GeneratedAt time.Time                `json:"generated_at"`
	Summary     analysis.TraceLLMSummary `json:"summary"`
	Workflow    workflow.AgentWorkflow   `json:"workflow"`
	Spans       []SpanAnalysis           `json:"spans,omitempty"`
	Cost        CostBreakdown            `json:"cost"`
}

// Builder produces trace reports with a fixed configuration. The zero
// value is not usable; construct with NewBuilder.
type Builder struct {
	calculator  *pricing.Calculator
	estimator   *tokens.Estimator
	qualityCfg  quality.Config
	securityCfg security.Config
	options     []workflow.Option
	now         func() time.Time
}

// NewBuilder wires a report builder from its collaborators. A nil
// calculator or estimator falls back to defaults.
func NewBuilder(calc *pricing.Calculator, est *tokens.Estimator, qcfg quality.Config, scfg security.Config, opts ...workflow.Option) *Builder {
	if calc == nil {
		calc = pricing.NewCalculator()
	}
	if est == nil {
		est = tokens.NewEstimator()
	}
	return &Builder{
		calculator:  calc,
		estimator:   est,
		qualityCfg:  qcfg,
		securityCfg: scfg,
		options:     opts,
		now:         time.Now,
	}
}

// Build analyzes one trace's spans into a report. Span order does not
// matter; the workflow builder sorts by start time internally.
func (b *Builder) Build(traceID string, spans []span.Span) Report {
	rpt := Report{
		ID:          uuid.NewString(),
		TraceID:     traceID,
		GeneratedAt: b.now().UTC(),
		Summary:     analysis.CalculateTraceSummary(spans),
		Workflow:    workflow.BuildAgentWorkflow(spans, b.options...),
		Cost:        CostBreakdown{Currency: "USD"},
	}

	byModel := make(map[string]float64)
	for _, sp := range spans {
		info := genai.ExtractLLMSpanInfo(sp.Tags)
		if !info.IsLLMSpan {
			continue
		}
		sa := b.analyzeSpan(sp, info)

		rpt.Cost.TotalCost += sa.Cost.Cost
		if sa.Cost.Estimated || sa.EstimatedTokens {
			rpt.Cost.Estimated = true
		}
		if model := costModel(info); model != "" && sa.Cost.Cost > 0 {
			byModel[model] += sa.Cost.Cost
		}

		rpt.Spans = append(rpt.Spans, sa)
	}
	if len(byModel) > 0 {
		rpt.Cost.ByModel = byModel
	}
	return rpt
}

func (b *Builder) analyzeSpan(sp span.Span, info genai.LLMSpanInfo) SpanAnalysis {
	sa := SpanAnalysis{
		SpanKey:        sp.SpanKey,
		OperationName:  sp.OperationName,
		Info:           info,
		QualityChecks:  info.QualityChecks,
		SecurityChecks: info.SecurityChecks,
	}

	userInput := genai.MessageText(info.InputMessages, openai.ChatMessageRoleUser)
	systemText := genai.MessageText(info.InputMessages, openai.ChatMessageRoleSystem)
	output := genai.MessageText(info.OutputMessages, "")

	if userInput != "" || output != "" {
		sa.QualityChecks = append(sa.QualityChecks, quality.RunChecks(quality.Context{
			UserInput:          userInput,
			LLMOutput:          output,
			SystemInstructions: systemText,
		}, b.qualityCfg)...)
		sa.SecurityChecks = append(sa.SecurityChecks, security.RunChecks(security.Context{
			UserInput: userInput,
			LLMOutput: output,
		}, b.securityCfg)...)
	}

	inputTokens, outputTokens := b.resolveTokens(info, userInput, systemText, output, &sa)
	model := costModel(info)
	sa.Cost = b.calculator.EstimatedCost(inputTokens, outputTokens, model, info.Provider)
	return sa
}

// resolveTokens prefers reported usage and estimates from message text
// only when a side is missing entirely.
func (b *Builder) resolveTokens(info genai.LLMSpanInfo, userInput, systemText, output string, sa *SpanAnalysis) (int, int) {
	model := costModel(info)

	inputTokens := 0
	if info.InputTokens != nil {
		inputTokens = *info.InputTokens
	} else if userInput != "" || systemText != "" {
		inputTokens = b.estimator.Count(model, userInput) + b.estimator.Count(model, systemText)
		sa.EstimatedTokens = true
	}

	outputTokens := 0
	if info.OutputTokens != nil {
		outputTokens = *info.OutputTokens
	} else if output != "" {
		outputTokens = b.estimator.Count(model, output)
		sa.EstimatedTokens = true
	}

	return inputTokens, outputTokens
}

func costModel(info genai.LLMSpanInfo) string {
	if info.ResponseModel != "" {
		return info.ResponseModel
	}
	return info.RequestModel
}
