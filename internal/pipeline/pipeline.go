package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayush/research-brief-generator/internal/llm"
	"github.com/ayush/research-brief-generator/internal/models"
)

const (
	// costPerToken is the flat USD rate used for the cost estimate.
	costPerToken = 0.00003

	// recentBriefLimit bounds how much history feeds context summarization.
	recentBriefLimit = 5
)

// Searcher runs the depth-keyed research search for a topic.
type Searcher interface {
	Search(ctx context.Context, topic string, depth int) ([]models.FetchedResult, error)
}

// Store is the persistence collaborator consumed by the pipeline.
// GetUserContext returns (nil, nil) for an unknown user. UpdateUserContext
// must serialize concurrent updates for the same user id.
type Store interface {
	SaveBrief(ctx context.Context, brief *models.FinalBrief, userID string) error
	GetRecentBriefs(ctx context.Context, userID string, limit int) ([]models.FinalBrief, error)
	GetUserContext(ctx context.Context, userID string) (*models.ContextSummary, error)
	UpdateUserContext(ctx context.Context, userID, topic string, depth int) error
}

// WorkflowError is the terminal failure of a run: the aggregate of all
// stage errors, or the absence of a final brief.
type WorkflowError struct {
	Errors []string
}

func (e *WorkflowError) Error() string {
	return "workflow errors: " + strings.Join(e.Errors, "; ")
}

// Pipeline drives one end-to-end brief generation run through seven stages:
// context summarization, planning, search, content fetching, per-source
// summarization, synthesis, and post-processing. Stages run strictly in
// sequence and every stage runs even when an earlier one recorded an error;
// each stage recovers its own failures with a fallback value or an
// error-list entry.
type Pipeline struct {
	llm      llm.Completer
	searcher Searcher
	store    Store
}

func New(completer llm.Completer, searcher Searcher, store Store) *Pipeline {
	return &Pipeline{llm: completer, searcher: searcher, store: store}
}

// Run executes the full workflow and returns the final brief. It fails with
// a *WorkflowError when the terminal state carries any recorded error —
// even if a brief was produced — or when no brief exists.
func (p *Pipeline) Run(ctx context.Context, topic string, depth int, userID string, followUp bool) (*models.FinalBrief, error) {
	state := NewRunState(topic, depth, userID, followUp)

	stages := []struct {
		name string
		fn   func(context.Context, *RunState)
	}{
		{"context_summarization", p.contextSummarization},
		{"planning", p.planning},
		{"search", p.search},
		{"content_fetching", p.contentFetching},
		{"per_source_summarization", p.perSourceSummarization},
		{"synthesis", p.synthesis},
		{"post_processing", p.postProcessing},
	}
	for _, stage := range stages {
		state.CurrentStage = stage.name
		stage.fn(ctx, state)
	}

	if len(state.Errors) > 0 {
		return nil, &WorkflowError{Errors: append([]string(nil), state.Errors...)}
	}
	if state.FinalBrief == nil {
		return nil, &WorkflowError{Errors: []string{"no final brief produced"}}
	}
	return state.FinalBrief, nil
}

// complete calls the completion service and charges estimated token usage
// to the given category, including on failed calls where a prompt was sent.
func (p *Pipeline) complete(ctx context.Context, state *RunState, category, prompt string) (string, error) {
	text, err := p.llm.Complete(ctx, prompt)
	state.AddTokens(category, llm.EstimateTokens(prompt)+llm.EstimateTokens(text))
	if err != nil {
		return "", err
	}
	return text, nil
}

func (p *Pipeline) contextSummarization(ctx context.Context, state *RunState) {
	if !state.FollowUp {
		state.ContextSummary = &models.ContextSummary{
			UserID:         state.UserID,
			PreviousTopics: []string{},
			KeyThemes:      []string{},
			PreferredDepth: state.Depth,
			RelevanceScore: 0.0,
		}
		return
	}

	briefs, err := p.store.GetRecentBriefs(ctx, state.UserID, recentBriefLimit)
	if err != nil {
		state.RecordError("context summarization error: %v", err)
		return
	}

	text, err := p.complete(ctx, state, "context_summarization", contextPrompt(state.UserID, state.Topic, briefs))
	if err != nil {
		state.RecordError("context summarization error: %v", err)
		return
	}
	summary, err := llm.ParseContextSummary(text)
	if err != nil {
		state.RecordError("context summarization error: %v", err)
		return
	}
	summary.UserID = state.UserID
	state.ContextSummary = summary
}

func (p *Pipeline) planning(ctx context.Context, state *RunState) {
	text, err := p.complete(ctx, state, "planning", planPrompt(state.Topic, state.Depth, state.ContextSummary))

	var plan *models.ResearchPlan
	if err == nil {
		plan, err = llm.ParsePlan(text)
	}
	if err != nil {
		// Planning must never leave the plan slot empty.
		state.RecordError("planning error: %v", err)
		plan = fallbackPlan(state.Topic, state.Depth)
	}
	if plan.Topic == "" {
		plan.Topic = state.Topic
	}
	if plan.Depth == 0 {
		plan.Depth = state.Depth
	}
	state.Plan = plan
}

func (p *Pipeline) search(ctx context.Context, state *RunState) {
	results, err := p.searcher.Search(ctx, state.Topic, state.Depth)
	if err != nil {
		state.RecordError("search error: %v", err)
		return
	}
	state.SearchResults = results
}

// contentFetching is a pass-through: documents are fetched during the
// search stage. Kept as an extension point for later enrichment.
func (p *Pipeline) contentFetching(ctx context.Context, state *RunState) {
}

func (p *Pipeline) perSourceSummarization(ctx context.Context, state *RunState) {
	summaries := make([]models.SourceSummary, 0, len(state.SearchResults))

	for i, result := range state.SearchResults {
		hit := result.SearchResult
		if hit.URL == "" && hit.Title == "" {
			// No result payload at all; nothing to summarize.
			continue
		}

		title := hit.Title
		if title == "" {
			title = "Search Result"
		}
		metadata := models.SourceMetadata{
			Title:      title,
			URL:        hit.URL,
			Domain:     hit.Domain,
			SourceType: "web_article",
		}

		// Summarize fetched content when it exists; fall back to the snippet.
		content := hit.Snippet
		if result.Fetch.Success && result.Fetch.Content != "" {
			content = result.Fetch.Content
		}

		text, err := p.complete(ctx, state, "per_source_summarization", sourcePrompt(state.Topic, hit.URL, content))

		var summary *models.SourceSummary
		if err == nil {
			summary, err = llm.ParseSourceSummary(text)
		}
		if err != nil {
			summary = fallbackSourceSummary(state.Topic, title)
		}

		summary.SourceID = fmt.Sprintf("source_%d_%s", i, shortID())
		summary.Metadata = metadata
		if summary.ExtractedAt.IsZero() {
			summary.ExtractedAt = time.Now().UTC()
		}
		summaries = append(summaries, *summary)
	}

	state.SourceSummaries = summaries
}

func (p *Pipeline) synthesis(ctx context.Context, state *RunState) {
	if state.Plan == nil {
		state.Plan = fallbackPlan(state.Topic, state.Depth)
	}

	text, err := p.complete(ctx, state, "synthesis", briefPrompt(state.Topic, state.SourceSummaries, state.Plan, state.ContextSummary))

	var brief *models.FinalBrief
	if err == nil {
		brief, err = llm.ParseBrief(text)
	}
	if err != nil {
		state.RecordError("synthesis error: %v", err)
		return
	}

	now := time.Now().UTC()
	brief.BriefID = "brief_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	brief.Topic = state.Topic
	brief.Sources = append([]models.SourceSummary(nil), state.SourceSummaries...)
	brief.GeneratedAt = now
	brief.ExecutionTime = now.Sub(state.StartTime).Seconds()

	usage := make(map[string]int, len(state.TokenUsage))
	for k, v := range state.TokenUsage {
		usage[k] = v
	}
	brief.TokenUsage = usage
	brief.CostEstimate = float64(state.TotalTokens()) * costPerToken

	state.FinalBrief = brief
}

func (p *Pipeline) postProcessing(ctx context.Context, state *RunState) {
	if state.FinalBrief == nil {
		return
	}

	// Persistence failures are recorded but do not revoke the brief.
	if err := p.store.SaveBrief(ctx, state.FinalBrief, state.UserID); err != nil {
		state.RecordError("post-processing error: save brief: %v", err)
	}
	if err := p.store.UpdateUserContext(ctx, state.UserID, state.Topic, state.Depth); err != nil {
		state.RecordError("post-processing error: update context: %v", err)
	}
}

// fallbackPlan is the single-step plan substituted whenever plan generation
// fails, so downstream stages always have a well-typed plan.
func fallbackPlan(topic string, depth int) *models.ResearchPlan {
	return &models.ResearchPlan{
		Topic: topic,
		Depth: depth,
		Steps: []models.ResearchStep{{
			StepID:        1,
			Title:         fmt.Sprintf("Research %s basics", topic),
			Description:   fmt.Sprintf("Find basic information about %s", topic),
			Priority:      5,
			EstimatedTime: 30,
			Keywords:      []string{topic, "basics", "introduction"},
		}},
		FocusAreas: []string{topic, "fundamentals"},
	}
}

// fallbackSourceSummary substitutes for a failed per-source summarization
// call so the source is kept instead of dropped.
func fallbackSourceSummary(topic, sourceTitle string) *models.SourceSummary {
	return &models.SourceSummary{
		Summary:          fmt.Sprintf("Information about %s from %s", topic, sourceTitle),
		KeyPoints:        []string{fmt.Sprintf("Key information about %s", topic)},
		RelevanceScore:   0.6,
		CredibilityScore: 0.5,
		ExtractedAt:      time.Now().UTC(),
	}
}

func shortID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}
