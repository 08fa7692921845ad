package models

import "time"

// SearchResult is a single ranked hit returned by the search provider.
type SearchResult struct {
	Title   string `json:"title"   bson:"title"`
	URL     string `json:"url"     bson:"url"`
	Snippet string `json:"snippet" bson:"snippet"`
	Domain  string `json:"domain"  bson:"domain"`
}

// FetchResult is the outcome of fetching one search hit's document.
// Success=false still carries a short diagnostic Content so callers can
// tell "no real content" from "content is literally short".
type FetchResult struct {
	URL           string `json:"url"            bson:"url"`
	Title         string `json:"title"          bson:"title"`
	Content       string `json:"content"        bson:"content"`
	ContentLength int    `json:"content_length" bson:"content_length"`
	Success       bool   `json:"success"        bson:"success"`
}

// FetchedResult pairs one search hit with its document-fetch outcome.
// Every hit produces exactly one FetchedResult, even when the fetch failed.
type FetchedResult struct {
	SearchResult SearchResult `json:"search_result" bson:"search_result"`
	Fetch        FetchResult  `json:"content"       bson:"content"`
}

// ResearchStep is one step of a research plan.
type ResearchStep struct {
	StepID        int      `json:"step_id"        bson:"step_id"`
	Title         string   `json:"title"          bson:"title"`
	Description   string   `json:"description"    bson:"description"`
	Priority      int      `json:"priority"       bson:"priority"`       // 1-5, 5 highest
	EstimatedTime int      `json:"estimated_time" bson:"estimated_time"` // minutes, >= 1
	Keywords      []string `json:"keywords"       bson:"keywords"`
}

// ResearchPlan is the structured plan produced by the Planning stage.
type ResearchPlan struct {
	Topic      string         `json:"topic"       bson:"topic"`
	Depth      int            `json:"depth"       bson:"depth"`
	Steps      []ResearchStep `json:"steps"       bson:"steps"`
	FocusAreas []string       `json:"focus_areas" bson:"focus_areas"`
}

// TotalEstimatedTime sums the step estimates in minutes. It is always
// recomputed, never stored.
func (p *ResearchPlan) TotalEstimatedTime() int {
	total := 0
	for _, s := range p.Steps {
		total += s.EstimatedTime
	}
	return total
}

// SourceMetadata describes where a source summary came from.
type SourceMetadata struct {
	Title           string     `json:"title"                      bson:"title"`
	URL             string     `json:"url"                        bson:"url"`
	Domain          string     `json:"domain"                     bson:"domain"`
	PublicationDate *time.Time `json:"publication_date,omitempty" bson:"publication_date,omitempty"`
	Author          string     `json:"author,omitempty"           bson:"author,omitempty"`
	SourceType      string     `json:"source_type"                bson:"source_type"`
}

// SourceSummary is the per-source output of the summarization stage.
// RelevanceScore and CredibilityScore are constrained to [0,1].
type SourceSummary struct {
	SourceID         string         `json:"source_id"         bson:"source_id"`
	Metadata         SourceMetadata `json:"metadata"          bson:"metadata"`
	Summary          string         `json:"summary"           bson:"summary"`
	KeyPoints        []string       `json:"key_points"        bson:"key_points"`
	RelevanceScore   float64        `json:"relevance_score"   bson:"relevance_score"`
	CredibilityScore float64        `json:"credibility_score" bson:"credibility_score"`
	ExtractedAt      time.Time      `json:"extracted_at"      bson:"extracted_at"`
}

// ContextSummary captures a user's prior research history. PreviousTopics
// is bounded to the 10 most recent topics on update.
type ContextSummary struct {
	UserID          string     `json:"user_id"                    bson:"user_id"`
	PreviousTopics  []string   `json:"previous_topics"            bson:"previous_topics"`
	KeyThemes       []string   `json:"key_themes"                 bson:"key_themes"`
	PreferredDepth  int        `json:"preferred_depth"            bson:"preferred_depth"`
	LastInteraction *time.Time `json:"last_interaction,omitempty" bson:"last_interaction,omitempty"`
	RelevanceScore  float64    `json:"relevance_score"            bson:"relevance_score"`
}

// FinalBrief is the complete research brief. It owns its Sources by value.
// The content fields are fixed at synthesis; BriefID, GeneratedAt,
// ExecutionTime, TokenUsage, and CostEstimate are filled in by the
// orchestrator afterwards.
type FinalBrief struct {
	BriefID         string          `json:"brief_id"        bson:"brief_id"`
	Topic           string          `json:"topic"           bson:"topic"`
	Summary         string          `json:"summary"         bson:"summary"`
	KeyFindings     []string        `json:"key_findings"    bson:"key_findings"`
	Methodology     string          `json:"methodology"     bson:"methodology"`
	Sources         []SourceSummary `json:"sources"         bson:"sources"`
	Recommendations []string        `json:"recommendations" bson:"recommendations"`
	Limitations     []string        `json:"limitations"     bson:"limitations"`
	GeneratedAt     time.Time       `json:"generated_at"    bson:"generated_at"`
	ExecutionTime   float64         `json:"execution_time"  bson:"execution_time"` // seconds
	TokenUsage      map[string]int  `json:"token_usage"     bson:"token_usage"`
	CostEstimate    float64         `json:"cost_estimate"   bson:"cost_estimate"` // USD
}

// BriefRequest is the JSON body for POST /api/briefs.
type BriefRequest struct {
	Topic    string `json:"topic"`
	Depth    int    `json:"depth"`
	FollowUp bool   `json:"follow_up"`
}
