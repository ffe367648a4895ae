// Package orchestrator drives the plan, retrieve, synthesize flow: a
// topic becomes a structured plan, plan steps gather internal and
// external sources, and the sources become a cited report.
package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/planner"
	"github.com/fyrsmithlabs/researchd/internal/report"
	"github.com/fyrsmithlabs/researchd/internal/retrieval"
	"github.com/fyrsmithlabs/researchd/internal/websearch"
)

var tracer = otel.Tracer("researchd.orchestrator")

// maxExecuteSteps bounds how many plan steps one execution runs.
const maxExecuteSteps = 6

// PlanGenerator produces a research plan for a topic.
type PlanGenerator interface {
	Generate(ctx context.Context, topic string) (*planner.Plan, error)
}

// Retriever serves similarity queries against the internal index.
type Retriever interface {
	Retrieve(ctx context.Context, query string, opts retrieval.Options) ([]retrieval.Result, error)
}

// Searcher queries the public web, degrading to no results on failure.
type Searcher interface {
	Search(ctx context.Context, query string) []websearch.Result
}

// Orchestrator wires planning, retrieval, web search, and synthesis.
type Orchestrator struct {
	planner     PlanGenerator
	retriever   Retriever
	searcher    Searcher
	synthesizer report.Synthesizer
	logger      *zap.Logger
}

// New creates an orchestrator.
func New(p PlanGenerator, r Retriever, s Searcher, synth report.Synthesizer, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		planner:     p,
		retriever:   r,
		searcher:    s,
		synthesizer: synth,
		logger:      logger,
	}
}

// Plan generates a research plan for the topic.
func (o *Orchestrator) Plan(ctx context.Context, topic string) (*planner.Plan, error) {
	return o.planner.Generate(ctx, topic)
}

// Execute runs the plan's steps, gathers sources, and synthesizes the
// report. Malformed plans are rejected before any step runs. A failing
// step is logged and skipped; execution continues on the remaining steps.
func (o *Orchestrator) Execute(ctx context.Context, plan *planner.Plan) (string, []report.Source, error) {
	ctx, span := tracer.Start(ctx, "Orchestrator.Execute")
	defer span.End()

	if err := plan.Validate(); err != nil {
		return "", nil, err
	}
	span.SetAttributes(
		attribute.String("topic", plan.Topic),
		attribute.Int("steps", len(plan.Steps)),
	)

	steps := plan.Steps
	if len(steps) > maxExecuteSteps {
		steps = steps[:maxExecuteSteps]
	}

	var raw []report.Source
	for _, step := range steps {
		query := strings.TrimSpace(step.Query)
		if query == "" {
			continue
		}
		switch step.Agent {
		case planner.AgentInternal:
			raw = append(raw, o.gatherInternal(ctx, query)...)
		case planner.AgentExternal:
			raw = append(raw, o.gatherExternal(ctx, query)...)
		}
	}

	sources := report.EnsureDiversity(raw, o.logger)
	o.logger.Info("sources gathered",
		zap.String("topic", plan.Topic),
		zap.Int("raw", len(raw)),
		zap.Int("diverse", len(sources)),
	)

	body, err := o.synthesizer.Synthesize(ctx, plan.Topic, sources)
	if err != nil {
		return "", nil, fmt.Errorf("synthesizing report: %w", err)
	}
	return body, sources, nil
}

func (o *Orchestrator) gatherInternal(ctx context.Context, query string) []report.Source {
	results, err := o.retriever.Retrieve(ctx, query, retrieval.Options{})
	if err != nil {
		o.logger.Warn("internal retrieval failed for step",
			zap.String("query", query), zap.Error(err))
		return nil
	}

	sources := make([]report.Source, 0, len(results))
	for _, r := range results {
		title := r.FileName
		if title == "" {
			title = "Internal Document"
		}
		sources = append(sources, report.Source{
			Content:    r.Content,
			Citation:   fmt.Sprintf("(%s p.%d)", title, r.Page),
			SourceType: report.SourceInternal,
			Title:      title,
		})
	}
	return sources
}

func (o *Orchestrator) gatherExternal(ctx context.Context, query string) []report.Source {
	var sources []report.Source
	for _, r := range o.searcher.Search(ctx, query) {
		if r.Snippet == "" {
			continue
		}
		title := r.Title
		if title == "" {
			title = "External Source"
		}
		sources = append(sources, report.Source{
			Content:    r.Snippet,
			Citation:   fmt.Sprintf("(%s)", title),
			SourceType: report.SourceExternal,
			Title:      title,
			URL:        r.URL,
		})
	}
	return sources
}
