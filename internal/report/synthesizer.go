package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("researchd.report")

var ErrNoSources = errors.New("no sources to synthesize from")

// sourceExcerptLimit bounds how much of each source goes into the prompt.
const sourceExcerptLimit = 800

// Synthesizer turns a topic and its gathered sources into a report body.
type Synthesizer interface {
	Synthesize(ctx context.Context, topic string, sources []Source) (string, error)
}

const synthesisSystemPrompt = `You are an expert research report writer.

CRITICAL FORMATTING RULES:
- DO NOT use any markdown (#, ##, ###, *, -, etc.)
- Use PLAIN TEXT ONLY with proper spacing
- Section headers should be in ALL CAPS
- Use numbered citations [1], [2], etc. throughout the text
- Use proper paragraph breaks with double line breaks

Report structure: EXECUTIVE SUMMARY, INTRODUCTION, KEY FINDINGS,
ANALYSIS AND IMPLICATIONS, CONCLUSION.

Citation rules: place citations immediately after relevant statements and
ensure every major claim has one. Never copy sentences from the sources;
always rephrase and synthesize.`

// LLMSynthesizer produces the report body with a chat model and appends
// the formatted references itself, so citation numbering always matches
// the source order handed in.
type LLMSynthesizer struct {
	llm    llms.Model
	logger *zap.Logger
}

// NewLLMSynthesizer creates a synthesizer backed by the given model.
func NewLLMSynthesizer(llm llms.Model, logger *zap.Logger) *LLMSynthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMSynthesizer{llm: llm, logger: logger}
}

var _ Synthesizer = (*LLMSynthesizer)(nil)

// Synthesize generates a cited plain-text report on the topic.
func (s *LLMSynthesizer) Synthesize(ctx context.Context, topic string, sources []Source) (string, error) {
	ctx, span := tracer.Start(ctx, "LLMSynthesizer.Synthesize")
	defer span.End()
	span.SetAttributes(
		attribute.String("topic", topic),
		attribute.Int("sources", len(sources)),
	)

	if len(sources) == 0 {
		return "", ErrNoSources
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Create a comprehensive research report on %q.\n\n", topic)
	fmt.Fprintf(&prompt, "Available sources (%d total):\n", len(sources))
	for i, src := range sources {
		fmt.Fprintf(&prompt, "\nSOURCE %d [Citation %d]:\n%s\n", i+1, i+1, excerpt(src.Content))
	}
	prompt.WriteString("\nUse numbered citations [1], [2], etc. matching the source numbers above. Plain text only.")

	resp, err := s.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, synthesisSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt.String()),
	}, llms.WithTemperature(0.3))
	if err != nil {
		return "", fmt.Errorf("generating report: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no report content")
	}

	body := strings.TrimSpace(resp.Choices[0].Content)
	s.logger.Debug("report synthesized",
		zap.String("topic", topic),
		zap.Int("sources", len(sources)),
		zap.Int("length", len(body)),
	)
	return AppendReferences(body, sources), nil
}

func excerpt(content string) string {
	runes := []rune(content)
	if len(runes) > sourceExcerptLimit {
		return string(runes[:sourceExcerptLimit]) + "..."
	}
	return content
}
