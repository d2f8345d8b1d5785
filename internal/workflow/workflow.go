// Package workflow reconstructs a directed graph of agent-relevant spans
// from parent/child linkage augmented by temporal-adjacency inference.
package workflow

import (
	"sort"
	"strings"
	"time"

	"github.com/agentlens/agentlens/internal/genai"
	"github.com/agentlens/agentlens/internal/span"
)

// NodeType classifies an agent workflow node.
type NodeType string

const (
	NodeLLMCall        NodeType = "llm_call"
	NodeToolInvocation NodeType = "tool_invocation"
	NodeAgentHandoff   NodeType = "agent_handoff"
	NodeMemoryRead     NodeType = "memory_read"
	NodeMemoryWrite    NodeType = "memory_write"
	NodeDecision       NodeType = "decision"
	NodeInput          NodeType = "input"
	NodeOutput         NodeType = "output"
)

// EdgeKind distinguishes true span nesting from inferred sequencing.
type EdgeKind string

const (
	EdgeParent   EdgeKind = "parent"
	EdgeSequence EdgeKind = "sequence"
)

type Node struct {
	ID        string        `json:"id"`
	Type      NodeType      `json:"type"`
	Label     string        `json:"label"`
	SpanKey   string        `json:"span_key"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
}

type Edge struct {
	ID     string   `json:"id"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   EdgeKind `json:"kind"`
}

// AgentWorkflow is the reconstructed execution graph of one trace.
type AgentWorkflow struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// DefaultAdjacencyWindow is the maximum gap between two sibling spans for
// a sequential edge to be inferred between them. The value is a tuning
// default, not a protocol constant.
const DefaultAdjacencyWindow = 100 * time.Millisecond

// Option adjusts graph construction.
type Option func(*builder)

// WithAdjacencyWindow overrides the sequential-edge gap threshold.
func WithAdjacencyWindow(window time.Duration) Option {
	return func(b *builder) {
		if window > 0 {
			b.adjacencyWindow = window
		}
	}
}

type builder struct {
	adjacencyWindow time.Duration
}

// BuildAgentWorkflow selects the agent-relevant spans of one trace and
// connects them: structural parent edges first, then inferred sequence
// edges between temporally-adjacent nodes that are not already linked.
// Edge IDs are derived from (source, target) so repeated builds on the
// same input produce an identical graph.
func BuildAgentWorkflow(spans []span.Span, opts ...Option) AgentWorkflow {
	b := builder{adjacencyWindow: DefaultAdjacencyWindow}
	for _, opt := range opts {
		opt(&b)
	}

	type candidate struct {
		span span.Span
		info genai.LLMSpanInfo
	}

	var selected []candidate
	for _, sp := range spans {
		info := genai.ExtractLLMSpanInfo(sp.Tags)
		if !info.IsLLMSpan && info.ToolName == "" {
			// Tool spans from non-GenAI instrumentation still carry a tool
			// name tag without any LLM indicator.
			if name, ok := toolNameFromTags(sp.Tags); ok {
				info.ToolName = name
			} else {
				continue
			}
		}
		selected = append(selected, candidate{span: sp, info: info})
	}

	workflow := AgentWorkflow{}
	if len(selected) == 0 {
		return workflow
	}

	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].span.StartTime.Equal(selected[j].span.StartTime) {
			return selected[i].span.SpanKey < selected[j].span.SpanKey
		}
		return selected[i].span.StartTime.Before(selected[j].span.StartTime)
	})

	nodeKeys := make(map[string]struct{}, len(selected))
	for _, c := range selected {
		node := Node{
			ID:        c.span.SpanKey,
			Type:      classifyNode(c.span, c.info),
			Label:     nodeLabel(c.span, c.info),
			SpanKey:   c.span.SpanKey,
			StartTime: c.span.StartTime,
			Duration:  c.span.Duration,
		}
		nodeKeys[c.span.SpanKey] = struct{}{}
		workflow.Nodes = append(workflow.Nodes, node)
	}

	linked := make(map[string]bool)
	link := func(source, target string) {
		linked[source+"->"+target] = true
	}
	isLinked := func(a, b string) bool {
		return linked[a+"->"+b] || linked[b+"->"+a]
	}

	// Structural edges preserve true causal span nesting.
	for _, c := range selected {
		parent := c.span.ParentSpanKey
		if parent == "" || parent == c.span.SpanKey {
			continue
		}
		if _, ok := nodeKeys[parent]; !ok {
			continue
		}
		workflow.Edges = append(workflow.Edges, Edge{
			ID:     edgeID(parent, c.span.SpanKey),
			Source: parent,
			Target: c.span.SpanKey,
			Kind:   EdgeParent,
		})
		link(parent, c.span.SpanKey)
	}

	// Sequence edges recover workflow continuity across spans that are
	// siblings rather than parent/child in the raw trace tree.
	for i := 0; i+1 < len(selected); i++ {
		current, next := selected[i].span, selected[i+1].span
		if isLinked(current.SpanKey, next.SpanKey) {
			continue
		}
		gap := next.StartTime.Sub(current.EndTime())
		if gap >= b.adjacencyWindow {
			continue
		}
		workflow.Edges = append(workflow.Edges, Edge{
			ID:     edgeID(current.SpanKey, next.SpanKey),
			Source: current.SpanKey,
			Target: next.SpanKey,
			Kind:   EdgeSequence,
		})
		link(current.SpanKey, next.SpanKey)
	}

	return workflow
}

// classifyNode picks the node type by priority: tool identity first, then
// agent identity, then LLM call, then operation-name keywords.
func classifyNode(sp span.Span, info genai.LLMSpanInfo) NodeType {
	op := strings.ToLower(sp.OperationName)

	if info.ToolName != "" || strings.Contains(op, "tool") {
		return NodeToolInvocation
	}
	if info.AgentName != "" || strings.Contains(op, "agent") {
		return NodeAgentHandoff
	}
	if info.IsLLMSpan && (info.RequestModel != "" || info.ResponseModel != "" || info.Provider != "") {
		return NodeLLMCall
	}

	switch {
	case strings.Contains(op, "memory") && strings.Contains(op, "write"):
		return NodeMemoryWrite
	case strings.Contains(op, "memory"):
		return NodeMemoryRead
	case strings.Contains(op, "decision") || strings.Contains(op, "route"):
		return NodeDecision
	case strings.Contains(op, "input"):
		return NodeInput
	case strings.Contains(op, "output"):
		return NodeOutput
	}

	return NodeLLMCall
}

func nodeLabel(sp span.Span, info genai.LLMSpanInfo) string {
	switch {
	case info.ToolName != "":
		return info.ToolName
	case info.AgentName != "":
		return info.AgentName
	case info.RequestModel != "":
		return info.RequestModel
	case sp.OperationName != "":
		return sp.OperationName
	default:
		return sp.SpanKey
	}
}

func edgeID(source, target string) string {
	return "edge-" + source + "-" + target
}

func toolNameFromTags(tags map[string]string) (string, bool) {
	for _, key := range []string{genai.KeyToolName, "tool.name", "llm.tool.name"} {
		if v := tags[key]; v != "" {
			return v, true
		}
	}
	return "", false
}
