package search

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ppiankov/grantscout/internal/model"
)

// MockProvider returns a fixed result list without touching the network.
// With no canned results it answers every query with one deterministic placeholder.
type MockProvider struct {
	Results []model.SearchResult
}

// NewMockProvider creates a mock returning results for every query
func NewMockProvider(results ...model.SearchResult) *MockProvider {
	return &MockProvider{Results: results}
}

// Name returns "mock"
func (p *MockProvider) Name() string { return "mock" }

// Search returns the canned results
func (p *MockProvider) Search(_ context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	if len(p.Results) == 0 {
		return []model.SearchResult{{
			Title:   fmt.Sprintf("No provider configured for query: %s", query),
			URL:     "https://example.org/mock?q=" + url.QueryEscape(query),
			Snippet: "Set BRAVE_API_KEY, SERPAPI_API_KEY, BING_API_KEY, TAVILY_API_KEY or GEMINI_API_KEY.",
			Source:  "mock",
			Raw:     map[string]any{"query": query},
		}}, nil
	}

	out := make([]model.SearchResult, len(p.Results))
	for i, r := range p.Results {
		if r.Source == "" {
			r.Source = "mock"
		}
		out[i] = r
	}
	return truncate(out, maxResults), nil
}
