package pipeline

import (
	"fmt"
	"strings"

	"github.com/ayush/research-brief-generator/internal/models"
)

// Prompt builders for the four completion call sites. Each asks for a JSON
// object matching the corresponding model so the llm parsers can decode it.

func contextPrompt(userID, topic string, briefs []models.FinalBrief) string {
	var sb strings.Builder
	sb.WriteString("You are summarizing a user's research history to inform a new research run.\n\n")
	fmt.Fprintf(&sb, "Current topic: %s\n\nPrevious briefs (newest first):\n", topic)
	for _, b := range briefs {
		fmt.Fprintf(&sb, "- %s: %s\n", b.Topic, b.Summary)
	}
	sb.WriteString("\nRespond with a JSON object with fields: previous_topics (list of strings), ")
	sb.WriteString("key_themes (list of strings), preferred_depth (1-5), relevance_score (0-1).\n")
	return sb.String()
}

func planPrompt(topic string, depth int, ctxSummary *models.ContextSummary) string {
	var sb strings.Builder
	sb.WriteString("You are an expert research planner. Create a structured research plan.\n\n")
	fmt.Fprintf(&sb, "Topic: %s\nDepth level: %d (1=basic overview, 5=comprehensive analysis)\n", topic, depth)
	if ctxSummary != nil && len(ctxSummary.PreviousTopics) > 0 {
		fmt.Fprintf(&sb, "\nPrevious research context:\n- Previous topics: %s\n- Key themes: %s\n- Preferred depth: %d\n",
			strings.Join(ctxSummary.PreviousTopics, ", "),
			strings.Join(ctxSummary.KeyThemes, ", "),
			ctxSummary.PreferredDepth)
	}
	sb.WriteString("\nRespond with a JSON object with fields: topic, depth, steps (list of objects with ")
	sb.WriteString("step_id, title, description, priority 1-5, estimated_time in minutes, keywords), focus_areas.\n")
	return sb.String()
}

func sourcePrompt(topic, url, content string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Summarize the following source for research on %q.\n\nSource URL: %s\n\nContent:\n%s\n\n", topic, url, content)
	sb.WriteString("Respond with a JSON object with fields: summary, key_points (list of strings), ")
	sb.WriteString("relevance_score (0-1), credibility_score (0-1).\n")
	return sb.String()
}

func briefPrompt(topic string, sources []models.SourceSummary, plan *models.ResearchPlan, ctxSummary *models.ContextSummary) string {
	var sb strings.Builder
	sb.WriteString("You are synthesizing a research brief from summarized sources.\n\n")
	fmt.Fprintf(&sb, "Topic: %s\n", topic)

	if plan != nil {
		sb.WriteString("\nResearch plan steps:\n")
		for _, s := range plan.Steps {
			fmt.Fprintf(&sb, "- %s: %s\n", s.Title, s.Description)
		}
	}
	if ctxSummary != nil && len(ctxSummary.KeyThemes) > 0 {
		fmt.Fprintf(&sb, "\nRecurring user themes: %s\n", strings.Join(ctxSummary.KeyThemes, ", "))
	}

	sb.WriteString("\nSource summaries:\n")
	for _, s := range sources {
		fmt.Fprintf(&sb, "- [%s] %s: %s\n", s.Metadata.Domain, s.Metadata.Title, s.Summary)
	}

	sb.WriteString("\nRespond with a JSON object with fields: summary (executive summary), ")
	sb.WriteString("key_findings (list of strings), methodology, recommendations (list of strings), ")
	sb.WriteString("limitations (list of strings).\n")
	return sb.String()
}
