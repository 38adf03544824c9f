package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ppiankov/grantscout/internal/model"
	"github.com/ppiankov/grantscout/internal/worker"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// TavilyProvider queries the Tavily search API
type TavilyProvider struct {
	backend
	apiKey   string
	endpoint string
}

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// NewTavilyProvider creates a Tavily provider
func NewTavilyProvider(apiKey string, client *http.Client, limiter *worker.Limiter, logger *zap.Logger) *TavilyProvider {
	return &TavilyProvider{
		backend:  newBackend("tavily", client, limiter, logger),
		apiKey:   apiKey,
		endpoint: tavilyEndpoint,
	}
}

// Name returns "tavily"
func (p *TavilyProvider) Name() string { return "tavily" }

// Search runs one search
func (p *TavilyProvider) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	body, err := json.Marshal(tavilyRequest{APIKey: p.apiKey, Query: query, MaxResults: maxResults})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var data tavilyResponse
	if err := p.do(ctx, req, &data); err != nil {
		return nil, err
	}

	results := make([]model.SearchResult, 0, len(data.Results))
	for _, item := range data.Results {
		results = append(results, model.SearchResult{
			Title:   cleanText(item.Title),
			URL:     item.URL,
			Snippet: cleanText(item.Content),
			Source:  p.Name(),
			Raw:     map[string]any{"score": item.Score},
		})
	}
	return truncate(results, maxResults), nil
}
