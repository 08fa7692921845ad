package search

import (
	"context"
	"fmt"
	"log"

	"github.com/ayush/research-brief-generator/internal/models"
)

// Query template tiers keyed by research depth. The tier is fixed by depth
// and the first `depth` templates of that tier are issued, so depth=1 still
// issues a single overview query.
var (
	overviewQueries = []string{"%s overview", "%s introduction", "what is %s"}

	analysisQueries = []string{
		"%s analysis", "%s research", "%s recent developments", "%s current state",
	}

	deepQueries = []string{
		"%s comprehensive analysis", "%s research paper", "%s detailed study",
		"%s expert analysis", "%s latest research",
	}
)

// QueriesForDepth expands a topic into the ordered list of search queries
// for the given depth (clamped to [1,5]).
func QueriesForDepth(topic string, depth int) []string {
	if depth < 1 {
		depth = 1
	}
	if depth > 5 {
		depth = 5
	}

	var templates []string
	switch {
	case depth <= 2:
		templates = overviewQueries
	case depth <= 4:
		templates = analysisQueries
	default:
		templates = deepQueries
	}
	if depth < len(templates) {
		templates = templates[:depth]
	}

	queries := make([]string, len(templates))
	for i, t := range templates {
		queries[i] = fmt.Sprintf(t, topic)
	}
	return queries
}

// Engine runs research-oriented searches: it fans a topic out into
// depth-keyed queries, pairs every hit with a document fetch, and returns a
// URL-unique candidate pool bounded by maxResults.
type Engine struct {
	provider        Provider
	fetcher         Fetcher
	resultsPerQuery int
	maxResults      int
}

func NewEngine(provider Provider, fetcher Fetcher, resultsPerQuery, maxResults int) *Engine {
	return &Engine{
		provider:        provider,
		fetcher:         fetcher,
		resultsPerQuery: resultsPerQuery,
		maxResults:      maxResults,
	}
}

// SearchAndFetch obtains up to maxResults hits for one query and fetches
// each hit's document. Every hit is retained regardless of fetch outcome.
// A failing search provider is absorbed into one synthetic placeholder hit.
func (e *Engine) SearchAndFetch(ctx context.Context, query string, maxResults int) []models.FetchedResult {
	hits, err := e.provider.Search(ctx, query, maxResults)
	if err != nil {
		log.Printf("search provider error for %q: %v", query, err)
		hits = []models.SearchResult{placeholderHit(query)}
	}

	results := make([]models.FetchedResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, models.FetchedResult{
			SearchResult: hit,
			Fetch:        e.fetcher.Fetch(ctx, hit.URL),
		})
	}
	return results
}

// Search runs the full research search for a topic: one SearchAndFetch per
// depth-selected query, merged, deduplicated by URL (first occurrence wins,
// first-seen order preserved), and truncated to the configured maximum.
func (e *Engine) Search(ctx context.Context, topic string, depth int) ([]models.FetchedResult, error) {
	var all []models.FetchedResult
	for _, query := range QueriesForDepth(topic, depth) {
		all = append(all, e.SearchAndFetch(ctx, query, e.resultsPerQuery)...)
	}

	seen := make(map[string]bool, len(all))
	unique := make([]models.FetchedResult, 0, len(all))
	for _, r := range all {
		url := r.SearchResult.URL
		if seen[url] {
			continue
		}
		seen[url] = true
		unique = append(unique, r)
	}

	if len(unique) > e.maxResults {
		unique = unique[:e.maxResults]
	}
	return unique, nil
}
