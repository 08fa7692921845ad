package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/research-brief-generator/internal/models"
	"github.com/ayush/research-brief-generator/internal/store"
)

const (
	planJSON = `{"topic":"quantum computing","depth":3,"steps":[` +
		`{"step_id":1,"title":"Overview","description":"Survey the field","priority":4,"estimated_time":20,"keywords":["quantum"]},` +
		`{"step_id":2,"title":"Hardware","description":"Qubit platforms","priority":3,"estimated_time":25,"keywords":["qubits"]}],` +
		`"focus_areas":["basics","hardware"]}`

	sourceJSON = `{"summary":"A solid source on the topic.","key_points":["point one"],"relevance_score":0.8,"credibility_score":0.7}`

	briefJSON = `{"summary":"Executive summary.","key_findings":["finding one","finding two"],` +
		`"methodology":"Web research and synthesis","recommendations":["do more"],"limitations":["small sample"]}`

	contextJSON = `{"previous_topics":["superconductors"],"key_themes":["physics"],"preferred_depth":4,"relevance_score":0.9}`
)

type stubCompleter struct {
	fn func(prompt string) (string, error)
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	return s.fn(prompt)
}

// routeCompletion answers each pipeline call site with well-formed JSON.
func routeCompletion(prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "research planner"):
		return "```json\n" + planJSON + "\n```", nil
	case strings.Contains(prompt, "Summarize the following source"):
		return sourceJSON, nil
	case strings.Contains(prompt, "synthesizing a research brief"):
		return briefJSON, nil
	case strings.Contains(prompt, "research history"):
		return contextJSON, nil
	}
	return "", fmt.Errorf("unexpected prompt: %.40s", prompt)
}

type stubSearcher struct {
	results []models.FetchedResult
	err     error
}

func (s *stubSearcher) Search(context.Context, string, int) ([]models.FetchedResult, error) {
	return s.results, s.err
}

type memStore struct {
	briefs    map[string][]models.FinalBrief
	contexts  map[string]*models.ContextSummary
	saveErr   error
	updateErr error
	recentErr error
}

func newMemStore() *memStore {
	return &memStore{
		briefs:   make(map[string][]models.FinalBrief),
		contexts: make(map[string]*models.ContextSummary),
	}
}

func (m *memStore) SaveBrief(_ context.Context, brief *models.FinalBrief, userID string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.briefs[userID] = append(m.briefs[userID], *brief)
	return nil
}

func (m *memStore) GetRecentBriefs(_ context.Context, userID string, limit int) ([]models.FinalBrief, error) {
	if m.recentErr != nil {
		return nil, m.recentErr
	}
	briefs := m.briefs[userID]
	if len(briefs) > limit {
		briefs = briefs[len(briefs)-limit:]
	}
	return briefs, nil
}

func (m *memStore) GetUserContext(_ context.Context, userID string) (*models.ContextSummary, error) {
	return m.contexts[userID], nil
}

func (m *memStore) UpdateUserContext(_ context.Context, userID, topic string, depth int) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	ctx := m.contexts[userID]
	if ctx == nil {
		ctx = &models.ContextSummary{UserID: userID}
		m.contexts[userID] = ctx
	}
	ctx.PreviousTopics = store.AppendTopic(ctx.PreviousTopics, topic)
	ctx.PreferredDepth = depth
	return nil
}

func fetched(url, title, snippet, content string, ok bool) models.FetchedResult {
	return models.FetchedResult{
		SearchResult: models.SearchResult{Title: title, URL: url, Snippet: snippet, Domain: "example.org"},
		Fetch:        models.FetchResult{URL: url, Content: content, ContentLength: len(content), Success: ok},
	}
}

func TestRunProducesBrief(t *testing.T) {
	searcher := &stubSearcher{results: []models.FetchedResult{
		fetched("https://a.com/1", "Source A", "snippet a", "full content a", true),
		fetched("https://b.com/2", "Source B", "snippet b", "", false),
	}}
	st := newMemStore()
	p := New(&stubCompleter{fn: routeCompletion}, searcher, st)

	brief, err := p.Run(context.Background(), "quantum computing", 3, "u1", false)
	require.NoError(t, err)
	require.NotNil(t, brief)

	assert.Equal(t, "quantum computing", brief.Topic)
	assert.True(t, strings.HasPrefix(brief.BriefID, "brief_"))
	assert.Len(t, brief.Sources, 2)
	assert.Equal(t, []string{"finding one", "finding two"}, brief.KeyFindings)
	assert.NotEmpty(t, brief.TokenUsage)
	assert.Greater(t, brief.CostEstimate, 0.0)
	assert.GreaterOrEqual(t, brief.ExecutionTime, 0.0)

	// The brief was persisted and the user context updated.
	require.Len(t, st.briefs["u1"], 1)
	require.NotNil(t, st.contexts["u1"])
	assert.Equal(t, []string{"quantum computing"}, st.contexts["u1"].PreviousTopics)
	assert.Equal(t, 3, st.contexts["u1"].PreferredDepth)
}

func TestRunDeterministicRerun(t *testing.T) {
	searcher := &stubSearcher{results: []models.FetchedResult{
		fetched("https://a.com/1", "Source A", "snippet a", "content", true),
	}}
	p := New(&stubCompleter{fn: routeCompletion}, searcher, newMemStore())

	first, err := p.Run(context.Background(), "go generics", 2, "u1", false)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), "go generics", 2, "u1", false)
	require.NoError(t, err)

	assert.Equal(t, first.Topic, second.Topic)
	assert.Equal(t, first.KeyFindings, second.KeyFindings)
	assert.Equal(t, len(first.Sources), len(second.Sources))
	assert.NotEqual(t, first.BriefID, second.BriefID)
}

func TestContextSummarizationWithoutFollowUp(t *testing.T) {
	p := New(&stubCompleter{fn: routeCompletion}, &stubSearcher{}, newMemStore())
	state := NewRunState("topic", 4, "u1", false)

	p.contextSummarization(context.Background(), state)

	require.NotNil(t, state.ContextSummary)
	assert.Equal(t, 0.0, state.ContextSummary.RelevanceScore)
	assert.Equal(t, 4, state.ContextSummary.PreferredDepth)
	assert.Empty(t, state.ContextSummary.PreviousTopics)
	assert.Empty(t, state.Errors)
}

func TestContextSummarizationFollowUp(t *testing.T) {
	st := newMemStore()
	st.briefs["u1"] = []models.FinalBrief{{Topic: "superconductors", Summary: "prior work"}}
	p := New(&stubCompleter{fn: routeCompletion}, &stubSearcher{}, st)
	state := NewRunState("quantum computing", 3, "u1", true)

	p.contextSummarization(context.Background(), state)

	require.NotNil(t, state.ContextSummary)
	assert.Equal(t, "u1", state.ContextSummary.UserID)
	assert.Equal(t, []string{"superconductors"}, state.ContextSummary.PreviousTopics)
	assert.Equal(t, 4, state.ContextSummary.PreferredDepth)
	assert.Positive(t, state.TokenUsage["context_summarization"])
}

func TestPlanningFallbackOnCompletionFailure(t *testing.T) {
	p := New(&stubCompleter{fn: func(string) (string, error) {
		return "", errors.New("completion service down")
	}}, &stubSearcher{}, newMemStore())
	state := NewRunState("X", 2, "u1", false)

	p.planning(context.Background(), state)

	require.NotNil(t, state.Plan)
	require.Len(t, state.Plan.Steps, 1)
	assert.Equal(t, "X", state.Plan.Topic)
	assert.Equal(t, "Research X basics", state.Plan.Steps[0].Title)
	assert.Equal(t, 5, state.Plan.Steps[0].Priority)
	assert.Equal(t, 30, state.Plan.Steps[0].EstimatedTime)
	require.Len(t, state.Errors, 1)
	assert.Contains(t, state.Errors[0], "planning error")
}

func TestPlanningFallbackOnUnparseableOutput(t *testing.T) {
	p := New(&stubCompleter{fn: func(string) (string, error) {
		return "I cannot produce a plan right now.", nil
	}}, &stubSearcher{}, newMemStore())
	state := NewRunState("X", 3, "u1", false)

	p.planning(context.Background(), state)

	require.NotNil(t, state.Plan)
	assert.Len(t, state.Plan.Steps, 1)
	assert.Len(t, state.Errors, 1)
}

func TestPerSourceSummarizationFallback(t *testing.T) {
	// The call for b.com fails; the other two succeed.
	completer := &stubCompleter{fn: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Summarize the following source") {
			if strings.Contains(prompt, "b.com") {
				return "", errors.New("rate limited")
			}
			return sourceJSON, nil
		}
		return routeCompletion(prompt)
	}}
	p := New(completer, &stubSearcher{}, newMemStore())
	state := NewRunState("topic", 3, "u1", false)
	state.SearchResults = []models.FetchedResult{
		fetched("https://a.com/1", "A", "snip a", "content a", true),
		fetched("https://b.com/2", "B", "snip b", "content b", true),
		fetched("https://c.com/3", "C", "snip c", "content c", true),
	}

	p.perSourceSummarization(context.Background(), state)

	require.Len(t, state.SourceSummaries, 3)
	fallbacks := 0
	ids := make(map[string]bool)
	for _, s := range state.SourceSummaries {
		ids[s.SourceID] = true
		if s.RelevanceScore == 0.6 && s.CredibilityScore == 0.5 {
			fallbacks++
			assert.Equal(t, "B", s.Metadata.Title)
		}
	}
	assert.Equal(t, 1, fallbacks)
	assert.Len(t, ids, 3, "source ids must be unique")
	// Per-source failures are absorbed, not recorded globally.
	assert.Empty(t, state.Errors)
}

func TestPerSourceSummarizationUsesSnippetOnFailedFetch(t *testing.T) {
	var prompts []string
	completer := &stubCompleter{fn: func(prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return sourceJSON, nil
	}}
	p := New(completer, &stubSearcher{}, newMemStore())
	state := NewRunState("topic", 3, "u1", false)
	state.SearchResults = []models.FetchedResult{
		fetched("https://a.com/1", "A", "the snippet text", "", false),
	}

	p.perSourceSummarization(context.Background(), state)

	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "the snippet text")
}

func TestPerSourceSummarizationSkipsEmptyPayload(t *testing.T) {
	p := New(&stubCompleter{fn: routeCompletion}, &stubSearcher{}, newMemStore())
	state := NewRunState("topic", 3, "u1", false)
	state.SearchResults = []models.FetchedResult{
		{}, // no result payload at all
		fetched("https://a.com/1", "A", "snip", "content", true),
	}

	p.perSourceSummarization(context.Background(), state)

	require.Len(t, state.SourceSummaries, 1)
	assert.Equal(t, "A", state.SourceSummaries[0].Metadata.Title)
}

func TestSynthesisFallbackPlanWhenMissing(t *testing.T) {
	p := New(&stubCompleter{fn: routeCompletion}, &stubSearcher{}, newMemStore())
	state := NewRunState("topic", 2, "u1", false)

	p.synthesis(context.Background(), state)

	require.NotNil(t, state.Plan, "missing plan is re-created before synthesis")
	require.NotNil(t, state.FinalBrief)
	assert.Equal(t, "topic", state.FinalBrief.Topic)
}

func TestRunFailsOnAnyRecordedError(t *testing.T) {
	// Search fails but every later stage still runs: a brief is produced
	// and persisted, yet the run is reported failed.
	searcher := &stubSearcher{err: errors.New("provider exploded")}
	st := newMemStore()
	p := New(&stubCompleter{fn: routeCompletion}, searcher, st)

	brief, err := p.Run(context.Background(), "topic", 2, "u1", false)
	assert.Nil(t, brief)
	require.Error(t, err)

	var wErr *WorkflowError
	require.ErrorAs(t, err, &wErr)
	assert.Contains(t, err.Error(), "search error")
	assert.Contains(t, err.Error(), "provider exploded")

	require.Len(t, st.briefs["u1"], 1, "brief is persisted despite the failed run")
}

func TestRunAggregatesAllStageErrors(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("provider exploded")}
	st := newMemStore()
	st.saveErr = errors.New("mongo unavailable")
	p := New(&stubCompleter{fn: routeCompletion}, searcher, st)

	_, err := p.Run(context.Background(), "topic", 2, "u1", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider exploded")
	assert.Contains(t, err.Error(), "mongo unavailable")
}

func TestRunFailsWithoutFinalBrief(t *testing.T) {
	completer := &stubCompleter{fn: func(prompt string) (string, error) {
		if strings.Contains(prompt, "synthesizing a research brief") {
			return "", errors.New("synthesis model offline")
		}
		return routeCompletion(prompt)
	}}
	p := New(completer, &stubSearcher{}, newMemStore())

	brief, err := p.Run(context.Background(), "topic", 2, "u1", false)
	assert.Nil(t, brief)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "synthesis error")
}

func TestRunStateTokenAccounting(t *testing.T) {
	state := NewRunState("t", 1, "u", false)
	state.AddTokens("planning", 10)
	state.AddTokens("planning", 5)
	state.AddTokens("synthesis", 7)

	assert.Equal(t, 15, state.TokenUsage["planning"])
	assert.Equal(t, 22, state.TotalTokens())
}
