package planner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/planner"
)

// fakeModel returns a canned completion or error.
type fakeModel struct {
	output string
	err    error
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.output}},
	}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.output, nil
}

const wellFormedOutput = `PLAN_TEXT:
(1) Define scope. (2) Survey internal docs. (3) Check the public web.

JSON:
{
  "steps": [
    {"agent": "internal", "query": "Remote work policy basics", "needs": []},
    {"agent": "external", "query": "Remote work trends 2026", "needs": []}
  ],
  "internal_sources": [{"title": "FAQ PDF", "type": "pdf"}],
  "external_sources": [{"name": "Industry blogs", "type": "web", "note": "major vendors"}]
}`

func TestGenerate_ParsesWellFormedOutput(t *testing.T) {
	p := planner.New(&fakeModel{output: wellFormedOutput}, zap.NewNop())

	plan, err := p.Generate(context.Background(), "remote work")
	require.NoError(t, err)

	assert.Equal(t, "remote work", plan.Topic)
	assert.Equal(t, "(1) Define scope. (2) Survey internal docs. (3) Check the public web.", plan.PlanText)
	require.Len(t, plan.Steps, 2)
	assert.Equal(t, planner.AgentInternal, plan.Steps[0].Agent)
	assert.Equal(t, "Remote work policy basics", plan.Steps[0].Query)
	assert.Equal(t, planner.AgentExternal, plan.Steps[1].Agent)
	require.Len(t, plan.InternalSources, 1)
	assert.Equal(t, "FAQ PDF", plan.InternalSources[0].Title)
	require.NoError(t, plan.Validate())
}

func TestGenerate_CodeFencedJSON(t *testing.T) {
	output := "PLAN_TEXT:\n(1) One step.\n\nJSON:\n```json\n" +
		`{"steps": [{"agent": "internal", "query": "basics", "needs": []}]}` + "\n```"
	p := planner.New(&fakeModel{output: output}, zap.NewNop())

	plan, err := p.Generate(context.Background(), "topic")
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "basics", plan.Steps[0].Query)
}

func TestGenerate_FallbackOnModelError(t *testing.T) {
	p := planner.New(&fakeModel{err: errors.New("rate limited")}, zap.NewNop())

	plan, err := p.Generate(context.Background(), "ai governance")
	require.NoError(t, err)

	require.NoError(t, plan.Validate())
	assert.Equal(t, "ai governance", plan.Topic)
	assert.Contains(t, plan.PlanText, "(8) Outline future research directions.")
	require.Len(t, plan.Steps, 3)
	assert.Equal(t, planner.AgentInternal, plan.Steps[0].Agent)
	assert.Contains(t, plan.Steps[0].Query, "ai governance")
}

func TestGenerate_FallbackOnGarbageOutput(t *testing.T) {
	p := planner.New(&fakeModel{output: "I am unable to follow templates today."}, zap.NewNop())

	plan, err := p.Generate(context.Background(), "topic")
	require.NoError(t, err)
	require.NoError(t, plan.Validate())
	assert.Len(t, plan.Steps, 3)
}

func TestGenerate_FallbackOnInvalidSteps(t *testing.T) {
	// Parseable JSON with a bogus agent must not pass through.
	output := "PLAN_TEXT:\n(1) Step.\n\nJSON:\n" +
		`{"steps": [{"agent": "psychic", "query": "guess", "needs": []}]}`
	p := planner.New(&fakeModel{output: output}, zap.NewNop())

	plan, err := p.Generate(context.Background(), "topic")
	require.NoError(t, err)
	require.NoError(t, plan.Validate())
	assert.Len(t, plan.Steps, 3)
}

func TestGenerate_EmptyTopic(t *testing.T) {
	p := planner.New(&fakeModel{output: wellFormedOutput}, zap.NewNop())

	_, err := p.Generate(context.Background(), "   ")
	assert.ErrorIs(t, err, planner.ErrMalformedPlan)
}

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    *planner.Plan
		wantErr bool
	}{
		{
			name: "valid",
			plan: &planner.Plan{
				Topic: "t",
				Steps: []planner.Step{{Agent: planner.AgentInternal, Query: "q"}},
			},
		},
		{
			name:    "missing topic",
			plan:    &planner.Plan{Steps: []planner.Step{{Agent: planner.AgentInternal, Query: "q"}}},
			wantErr: true,
		},
		{
			name:    "no steps",
			plan:    &planner.Plan{Topic: "t"},
			wantErr: true,
		},
		{
			name: "unknown agent",
			plan: &planner.Plan{
				Topic: "t",
				Steps: []planner.Step{{Agent: "oracle", Query: "q"}},
			},
			wantErr: true,
		},
		{
			name: "empty query",
			plan: &planner.Plan{
				Topic: "t",
				Steps: []planner.Step{{Agent: planner.AgentExternal, Query: "  "}},
			},
			wantErr: true,
		},
		{
			name:    "nil plan",
			plan:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, planner.ErrMalformedPlan)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
