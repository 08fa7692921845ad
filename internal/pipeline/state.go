package pipeline

import (
	"fmt"
	"time"

	"github.com/ayush/research-brief-generator/internal/models"
)

// RunState is the mutable record threaded through all stages of one brief
// generation run. Stage output slots are optional until produced and are
// never cleared within a run; Errors only grows.
type RunState struct {
	Topic    string
	Depth    int
	UserID   string
	FollowUp bool

	StartTime    time.Time
	CurrentStage string

	ContextSummary  *models.ContextSummary
	Plan            *models.ResearchPlan
	SearchResults   []models.FetchedResult
	SourceSummaries []models.SourceSummary
	FinalBrief      *models.FinalBrief

	Errors     []string
	TokenUsage map[string]int
}

func NewRunState(topic string, depth int, userID string, followUp bool) *RunState {
	return &RunState{
		Topic:      topic,
		Depth:      depth,
		UserID:     userID,
		FollowUp:   followUp,
		StartTime:  time.Now().UTC(),
		TokenUsage: make(map[string]int),
	}
}

// RecordError appends a stage-tagged error message. Stages never raise past
// their own boundary; this list is inspected once at the end of the run.
func (s *RunState) RecordError(format string, args ...interface{}) {
	s.Errors = append(s.Errors, fmt.Sprintf(format, args...))
}

// AddTokens adds count tokens to a usage category.
func (s *RunState) AddTokens(category string, count int) {
	s.TokenUsage[category] += count
}

// TotalTokens sums all per-category counters.
func (s *RunState) TotalTokens() int {
	total := 0
	for _, n := range s.TokenUsage {
		total += n
	}
	return total
}
