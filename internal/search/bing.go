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

// DefaultBingEndpoint is the public Bing Web Search v7 endpoint
const DefaultBingEndpoint = "https://api.bing.microsoft.com/v7.0/search"

// BingProvider queries the Bing Web Search API
type BingProvider struct {
	backend
	apiKey   string
	endpoint string
}

type bingResponse struct {
	WebPages struct {
		Value []struct {
			Name    string `json:"name"`
			URL     string `json:"url"`
			Snippet string `json:"snippet"`
		} `json:"value"`
	} `json:"webPages"`
}

// NewBingProvider creates a Bing provider; an empty endpoint uses DefaultBingEndpoint
func NewBingProvider(apiKey, endpoint string, client *http.Client, limiter *worker.Limiter, logger *zap.Logger) *BingProvider {
	if endpoint == "" {
		endpoint = DefaultBingEndpoint
	}
	return &BingProvider{
		backend:  newBackend("bing", client, limiter, logger),
		apiKey:   apiKey,
		endpoint: endpoint,
	}
}

// Name returns "bing"
func (p *BingProvider) Name() string { return "bing" }

// Search runs one web search
func (p *BingProvider) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", p.apiKey)

	var data bingResponse
	if err := p.do(ctx, req, &data); err != nil {
		return nil, err
	}

	results := make([]model.SearchResult, 0, len(data.WebPages.Value))
	for _, item := range data.WebPages.Value {
		results = append(results, model.SearchResult{
			Title:   cleanText(item.Name),
			URL:     item.URL,
			Snippet: cleanText(item.Snippet),
			Source:  p.Name(),
		})
	}
	return truncate(results, maxResults), nil
}
