package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/orchestrator"
	"github.com/fyrsmithlabs/researchd/internal/planner"
	"github.com/fyrsmithlabs/researchd/internal/report"
	"github.com/fyrsmithlabs/researchd/internal/retrieval"
	"github.com/fyrsmithlabs/researchd/internal/websearch"
)

type fakePlanner struct {
	plan *planner.Plan
	err  error
}

func (f *fakePlanner) Generate(ctx context.Context, topic string) (*planner.Plan, error) {
	return f.plan, f.err
}

type fakeRetriever struct {
	results map[string][]retrieval.Result
	err     error
	queries []string
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, opts retrieval.Options) ([]retrieval.Result, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

type fakeSearcher struct {
	results map[string][]websearch.Result
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string) []websearch.Result {
	f.queries = append(f.queries, query)
	return f.results[query]
}

type fakeSynthesizer struct {
	err     error
	topic   string
	sources []report.Source
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, topic string, sources []report.Source) (string, error) {
	f.topic = topic
	f.sources = sources
	if f.err != nil {
		return "", f.err
	}
	return "REPORT on " + topic, nil
}

func testPlan() *planner.Plan {
	return &planner.Plan{
		Topic: "remote work",
		Steps: []planner.Step{
			{Agent: planner.AgentInternal, Query: "internal policy"},
			{Agent: planner.AgentExternal, Query: "industry trends"},
		},
	}
}

func TestExecute_RoutesStepsByAgent(t *testing.T) {
	retr := &fakeRetriever{results: map[string][]retrieval.Result{
		"internal policy": {{Content: "Policy passage.", FileName: "faq.pdf", Page: 2, Score: 0.9}},
	}}
	search := &fakeSearcher{results: map[string][]websearch.Result{
		"industry trends": {{Title: "Trends 2026", Snippet: "A snippet.", URL: "https://example.com/t"}},
	}}
	synth := &fakeSynthesizer{}

	o := orchestrator.New(&fakePlanner{}, retr, search, synth, zap.NewNop())

	body, sources, err := o.Execute(context.Background(), testPlan())
	require.NoError(t, err)

	assert.Equal(t, "REPORT on remote work", body)
	assert.Equal(t, []string{"internal policy"}, retr.queries)
	assert.Equal(t, []string{"industry trends"}, search.queries)

	require.Len(t, sources, 2)
	assert.Equal(t, report.SourceInternal, sources[0].SourceType)
	assert.Equal(t, "(faq.pdf p.2)", sources[0].Citation)
	assert.Equal(t, report.SourceExternal, sources[1].SourceType)
	assert.Equal(t, "https://example.com/t", sources[1].URL)
}

func TestExecute_RejectsMalformedPlan(t *testing.T) {
	o := orchestrator.New(&fakePlanner{}, &fakeRetriever{}, &fakeSearcher{}, &fakeSynthesizer{}, zap.NewNop())

	_, _, err := o.Execute(context.Background(), &planner.Plan{Topic: "t"})
	assert.ErrorIs(t, err, planner.ErrMalformedPlan)

	_, _, err = o.Execute(context.Background(), nil)
	assert.ErrorIs(t, err, planner.ErrMalformedPlan)
}

func TestExecute_CapsSteps(t *testing.T) {
	plan := &planner.Plan{Topic: "t"}
	for i := 0; i < 10; i++ {
		plan.Steps = append(plan.Steps, planner.Step{
			Agent: planner.AgentExternal,
			Query: fmt.Sprintf("query %d", i),
		})
	}
	search := &fakeSearcher{}
	o := orchestrator.New(&fakePlanner{}, &fakeRetriever{}, search, &fakeSynthesizer{}, zap.NewNop())

	_, _, err := o.Execute(context.Background(), plan)
	require.NoError(t, err)
	assert.Len(t, search.queries, 6)
}

func TestExecute_StepFailureDoesNotAbort(t *testing.T) {
	retr := &fakeRetriever{err: errors.New("store down")}
	search := &fakeSearcher{results: map[string][]websearch.Result{
		"industry trends": {{Title: "Trends", Snippet: "snippet"}},
	}}
	synth := &fakeSynthesizer{}

	o := orchestrator.New(&fakePlanner{}, retr, search, synth, zap.NewNop())

	_, sources, err := o.Execute(context.Background(), testPlan())
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, report.SourceExternal, sources[0].SourceType)
}

func TestExecute_SkipsEmptySnippets(t *testing.T) {
	search := &fakeSearcher{results: map[string][]websearch.Result{
		"industry trends": {
			{Title: "No Snippet", URL: "https://example.com/a"},
			{Title: "Has Snippet", Snippet: "content", URL: "https://example.com/b"},
		},
	}}
	synth := &fakeSynthesizer{}
	o := orchestrator.New(&fakePlanner{}, &fakeRetriever{}, search, synth, zap.NewNop())

	_, sources, err := o.Execute(context.Background(), testPlan())
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "Has Snippet", sources[0].Title)
}

func TestExecute_SynthesisErrorPropagates(t *testing.T) {
	o := orchestrator.New(&fakePlanner{}, &fakeRetriever{}, &fakeSearcher{},
		&fakeSynthesizer{err: errors.New("model down")}, zap.NewNop())

	_, _, err := o.Execute(context.Background(), testPlan())
	assert.Error(t, err)
}

func TestMemoryStore_CreateGetPut(t *testing.T) {
	store := orchestrator.NewMemoryStore(time.Hour, zap.NewNop())
	defer store.Close()
	ctx := context.Background()

	session, err := store.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)

	session.Topic = "remote work"
	session.Plan = testPlan()
	require.NoError(t, store.Put(ctx, session))

	got, err := store.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "remote work", got.Topic)
	require.NotNil(t, got.Plan)
	assert.Equal(t, "remote work", got.Plan.Topic)
}

func TestMemoryStore_UnknownID(t *testing.T) {
	store := orchestrator.NewMemoryStore(time.Hour, zap.NewNop())
	defer store.Close()

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, orchestrator.ErrSessionNotFound)
}

func TestMemoryStore_ExpiresIdleSessions(t *testing.T) {
	store := orchestrator.NewMemoryStore(50*time.Millisecond, zap.NewNop())
	defer store.Close()
	ctx := context.Background()

	session, err := store.Create(ctx)
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)

	_, err = store.Get(ctx, session.ID)
	assert.ErrorIs(t, err, orchestrator.ErrSessionNotFound)
}

func TestMemoryStore_GetRefreshesIdleClock(t *testing.T) {
	store := orchestrator.NewMemoryStore(100*time.Millisecond, zap.NewNop())
	defer store.Close()
	ctx := context.Background()

	session, err := store.Create(ctx)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		time.Sleep(60 * time.Millisecond)
		_, err = store.Get(ctx, session.ID)
		require.NoError(t, err, "active sessions must not expire")
	}
}
