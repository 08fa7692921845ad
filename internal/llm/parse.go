package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ayush/research-brief-generator/internal/models"
)

// The completion service sometimes returns clean JSON, sometimes JSON inside
// a markdown code fence, sometimes prose around a JSON object. Each parser
// here is a fallible operation: callers must supply a typed fallback value
// for the failure case.

// extractJSON pulls the first JSON object out of model output, tolerating
// code fences and surrounding prose.
func extractJSON(text string) (string, error) {
	s := strings.TrimSpace(text)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in completion output")
	}
	return s[start : end+1], nil
}

// ParsePlan decodes a ResearchPlan from completion output.
func ParsePlan(text string) (*models.ResearchPlan, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	var plan models.ResearchPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return nil, fmt.Errorf("decode research plan: %w", err)
	}
	if len(plan.Steps) == 0 {
		return nil, fmt.Errorf("research plan has no steps")
	}
	for i := range plan.Steps {
		if plan.Steps[i].Priority < 1 {
			plan.Steps[i].Priority = 1
		}
		if plan.Steps[i].Priority > 5 {
			plan.Steps[i].Priority = 5
		}
		if plan.Steps[i].EstimatedTime < 1 {
			plan.Steps[i].EstimatedTime = 1
		}
	}
	return &plan, nil
}

// ParseSourceSummary decodes a SourceSummary from completion output.
// Scores outside [0,1] are clamped.
func ParseSourceSummary(text string) (*models.SourceSummary, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	var sum models.SourceSummary
	if err := json.Unmarshal([]byte(raw), &sum); err != nil {
		return nil, fmt.Errorf("decode source summary: %w", err)
	}
	if sum.Summary == "" {
		return nil, fmt.Errorf("source summary has no summary text")
	}
	sum.RelevanceScore = clamp01(sum.RelevanceScore)
	sum.CredibilityScore = clamp01(sum.CredibilityScore)
	return &sum, nil
}

// ParseContextSummary decodes a ContextSummary from completion output.
func ParseContextSummary(text string) (*models.ContextSummary, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	var ctx models.ContextSummary
	if err := json.Unmarshal([]byte(raw), &ctx); err != nil {
		return nil, fmt.Errorf("decode context summary: %w", err)
	}
	if ctx.PreferredDepth < 1 || ctx.PreferredDepth > 5 {
		ctx.PreferredDepth = 3
	}
	ctx.RelevanceScore = clamp01(ctx.RelevanceScore)
	return &ctx, nil
}

// ParseBrief decodes a FinalBrief from completion output. Only the content
// fields are expected; the orchestrator fills in id, timestamps, and cost.
func ParseBrief(text string) (*models.FinalBrief, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	var brief models.FinalBrief
	if err := json.Unmarshal([]byte(raw), &brief); err != nil {
		return nil, fmt.Errorf("decode final brief: %w", err)
	}
	if brief.Summary == "" {
		return nil, fmt.Errorf("final brief has no summary")
	}
	return &brief, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
