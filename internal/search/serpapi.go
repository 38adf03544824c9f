package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/ppiankov/grantscout/internal/model"
	"github.com/ppiankov/grantscout/internal/worker"
)

const serpAPIEndpoint = "https://serpapi.com/search.json"

// SerpAPIProvider queries Google results through SerpAPI
type SerpAPIProvider struct {
	backend
	apiKey   string
	endpoint string
}

type serpAPIResponse struct {
	OrganicResults []struct {
		Position int    `json:"position"`
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
	} `json:"organic_results"`
}

// NewSerpAPIProvider creates a SerpAPI provider
func NewSerpAPIProvider(apiKey string, client *http.Client, limiter *worker.Limiter, logger *zap.Logger) *SerpAPIProvider {
	return &SerpAPIProvider{
		backend:  newBackend("serpapi", client, limiter, logger),
		apiKey:   apiKey,
		endpoint: serpAPIEndpoint,
	}
}

// Name returns "serpapi"
func (p *SerpAPIProvider) Name() string { return "serpapi" }

// Search runs one Google search
func (p *SerpAPIProvider) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("num", strconv.Itoa(maxResults))
	params.Set("api_key", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var data serpAPIResponse
	if err := p.do(ctx, req, &data); err != nil {
		return nil, err
	}

	results := make([]model.SearchResult, 0, len(data.OrganicResults))
	for _, item := range data.OrganicResults {
		results = append(results, model.SearchResult{
			Title:   cleanText(item.Title),
			URL:     item.Link,
			Snippet: cleanText(item.Snippet),
			Source:  p.Name(),
			Raw:     map[string]any{"position": item.Position},
		})
	}
	return truncate(results, maxResults), nil
}
