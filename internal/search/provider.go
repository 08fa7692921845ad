package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ayush/research-brief-generator/internal/models"
)

// Provider returns ranked web search hits for a query.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error)
}

// checkResp reads the response body and returns an error if the status is not 2xx.
func checkResp(resp *http.Response, service, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("%s %s returned %d: %s", service, path, resp.StatusCode, string(body))
}

// ProviderClient calls the search service over HTTP.
type ProviderClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewProviderClient(baseURL string) *ProviderClient {
	return &ProviderClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: &http.Client{}}
}

// Search calls POST /api/search.
func (c *ProviderClient) Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"query": query, "max_results": maxResults,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("search-service /api/search: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search-service /api/search: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResp(resp, "search-service", "/api/search"); err != nil {
		return nil, err
	}

	var result struct {
		Results []models.SearchResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("search-service /api/search: decode: %w", err)
	}

	hits := result.Results[:0]
	for _, r := range result.Results {
		if r.URL == "" {
			continue
		}
		if r.Domain == "" {
			if u, err := url.Parse(r.URL); err == nil {
				r.Domain = u.Host
			}
		}
		hits = append(hits, r)
	}
	return hits, nil
}

// placeholderHit is the synthetic result substituted when the search provider
// fails, so downstream stages always receive at least one entry.
func placeholderHit(query string) models.SearchResult {
	return models.SearchResult{
		Title:   query + " - Research Information",
		URL:     "https://example.com/research",
		Snippet: "Information about " + query + " including key concepts, applications, and current developments in the field.",
		Domain:  "example.com",
	}
}
