package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("researchd.planner")

const systemPrompt = "You are a senior research planner. " +
	"Produce a concise numbered research plan as a single paragraph, with steps numbered (1)...(N). " +
	"Then also produce a compact machine-readable JSON section: " +
	"steps (array of 3-6 steps with {agent: 'internal'|'external', query, needs: []}), " +
	"internal_sources (array of {title, type}), " +
	"external_sources (array of {name, type, note}). " +
	"Do not include any prose outside the specified sections."

const userPromptTemplate = `Topic: %q

Output STRICTLY in this template:

PLAN_TEXT:
(1) <first step>. (2) <second step>. (3) <third step>. (4) <...>. (5) <...>. (6) <...>. (7) <...>. (8) <...>

JSON:
{
  "steps": [
    {"agent": "internal", "query": "<what to retrieve from the internal index>", "needs": []},
    {"agent": "external", "query": "<what to research on the public web>", "needs": []}
  ],
  "internal_sources": [
    {"title": "FAQ PDF", "type": "pdf"}
  ],
  "external_sources": [
    {"name": "Standards bodies", "type": "org", "note": "e.g., ISO, NIST"},
    {"name": "Peer-reviewed research", "type": "papers", "note": "e.g., arXiv, ACM"},
    {"name": "Industry blogs", "type": "web", "note": "e.g., major vendors, cloud providers"},
    {"name": "Policy repositories", "type": "web", "note": "e.g., OECD, EU AI Act portals"}
  ]
}`

// Planner generates research plans with an LLM, degrading to a
// deterministic fallback plan when the model output cannot be parsed.
type Planner struct {
	llm    llms.Model
	logger *zap.Logger
}

// New creates a planner backed by the given chat model.
func New(llm llms.Model, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{llm: llm, logger: logger}
}

// Generate builds a plan for the topic. LLM failures and unparseable
// output fall back to a deterministic plan rather than erroring: planning
// must always produce something executable.
func (p *Planner) Generate(ctx context.Context, topic string) (*Plan, error) {
	ctx, span := tracer.Start(ctx, "Planner.Generate")
	defer span.End()

	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: missing topic", ErrMalformedPlan)
	}
	span.SetAttributes(attribute.String("topic", topic))

	resp, err := p.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(userPromptTemplate, topic)),
	}, llms.WithTemperature(0))
	if err != nil {
		p.logger.Warn("plan generation failed, using fallback plan",
			zap.String("topic", topic), zap.Error(err))
		plansTotal.WithLabelValues("fallback").Inc()
		return fallbackPlan(topic), nil
	}
	if len(resp.Choices) == 0 {
		p.logger.Warn("model returned no choices, using fallback plan", zap.String("topic", topic))
		plansTotal.WithLabelValues("fallback").Inc()
		return fallbackPlan(topic), nil
	}

	plan, err := parsePlan(topic, resp.Choices[0].Content)
	if err != nil {
		p.logger.Warn("unparseable plan output, using fallback plan",
			zap.String("topic", topic), zap.Error(err))
		plansTotal.WithLabelValues("fallback").Inc()
		return fallbackPlan(topic), nil
	}

	plansTotal.WithLabelValues("ok").Inc()
	return plan, nil
}

// planPayload is the machine-readable half of the model output.
type planPayload struct {
	Steps           []Step           `json:"steps"`
	InternalSources []InternalSource `json:"internal_sources"`
	ExternalSources []ExternalSource `json:"external_sources"`
}

// parsePlan splits the model output into the PLAN_TEXT narrative and the
// JSON block, and validates the result.
func parsePlan(topic, raw string) (*Plan, error) {
	left, right, found := strings.Cut(raw, "JSON:")
	if !found {
		return nil, fmt.Errorf("missing JSON section")
	}

	planText := left
	if _, body, ok := strings.Cut(left, "PLAN_TEXT:"); ok {
		planText = body
	}
	planText = strings.TrimSpace(planText)

	jsonBlock := strings.TrimSpace(right)
	jsonBlock = strings.TrimPrefix(jsonBlock, "```json")
	jsonBlock = strings.TrimPrefix(jsonBlock, "```")
	jsonBlock = strings.TrimSuffix(jsonBlock, "```")

	var payload planPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(jsonBlock)), &payload); err != nil {
		return nil, fmt.Errorf("decoding JSON section: %w", err)
	}

	plan := &Plan{
		Topic:           topic,
		PlanText:        planText,
		Steps:           payload.Steps,
		InternalSources: payload.InternalSources,
		ExternalSources: payload.ExternalSources,
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

// fallbackPlan is the deterministic plan used when the model cannot be
// reached or its output cannot be parsed.
func fallbackPlan(topic string) *Plan {
	return &Plan{
		Topic: topic,
		PlanText: fmt.Sprintf(
			"(1) Define core concepts and scope for %s. "+
				"(2) Identify key challenges and risks. "+
				"(3) Review best practices and frameworks. "+
				"(4) Gather case studies. "+
				"(5) Note regulations and standards. "+
				"(6) Compare approaches across sectors. "+
				"(7) Highlight oversight and transparency methods. "+
				"(8) Outline future research directions.", topic),
		Steps: []Step{
			{Agent: AgentInternal, Query: fmt.Sprintf("Overview and definitions related to %s", topic), Needs: []string{}},
			{Agent: AgentExternal, Query: fmt.Sprintf("Recent developments and risks in %s", topic), Needs: []string{}},
			{Agent: AgentExternal, Query: fmt.Sprintf("Best practices, frameworks, and governance for %s", topic), Needs: []string{}},
		},
		InternalSources: []InternalSource{
			{Title: "FAQ PDF", Type: "pdf"},
		},
		ExternalSources: []ExternalSource{
			{Name: "Standards bodies", Type: "org", Note: "e.g., ISO, NIST"},
			{Name: "Peer-reviewed research", Type: "papers", Note: "e.g., arXiv, ACM"},
			{Name: "Industry blogs", Type: "web", Note: "e.g., major vendors, cloud providers"},
			{Name: "Policy repositories", Type: "web", Note: "e.g., OECD, EU AI Act portals"},
		},
	}
}
