package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/grantscout/internal/model"
	"github.com/ppiankov/grantscout/internal/worker"
)

const braveEndpoint = "https://api.search.brave.com/res/v1/web/search"

// BraveProvider queries the Brave Search web API.
// The free tier allows one request per second; 429s are retried with exponential backoff.
type BraveProvider struct {
	backend
	apiKey      string
	endpoint    string
	maxRetries  int
	backoffBase time.Duration
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title         string   `json:"title"`
			URL           string   `json:"url"`
			Description   string   `json:"description"`
			ExtraSnippets []string `json:"extra_snippets"`
			Age           string   `json:"age"`
		} `json:"results"`
	} `json:"web"`
}

// NewBraveProvider creates a Brave provider. The limiter is given a 1 req/s slot for "brave".
func NewBraveProvider(apiKey string, client *http.Client, limiter *worker.Limiter, logger *zap.Logger) *BraveProvider {
	if limiter != nil {
		limiter.SetInterval("brave", time.Second)
	}
	return &BraveProvider{
		backend:     newBackend("brave", client, limiter, logger),
		apiKey:      apiKey,
		endpoint:    braveEndpoint,
		maxRetries:  3,
		backoffBase: time.Second,
	}
}

// Name returns "brave"
func (p *BraveProvider) Name() string { return "brave" }

// Search runs one web search
func (p *BraveProvider) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(maxResults))
	params.Set("extra_snippets", "true")
	params.Set("text_decorations", "false")

	var data braveResponse
	var err error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		var req *http.Request
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("X-Subscription-Token", p.apiKey)

		err = p.do(ctx, req, &data)
		if !errors.Is(err, errRateLimited) {
			break
		}

		wait := p.backoffBase << attempt
		p.logger.Debug("Brave rate limited, backing off", zap.Duration("wait", wait), zap.Int("attempt", attempt+1))
		if berr := worker.Backoff(ctx, wait); berr != nil {
			return nil, berr
		}
	}
	if err != nil {
		return nil, err
	}

	results := make([]model.SearchResult, 0, len(data.Web.Results))
	for _, item := range data.Web.Results {
		raw := map[string]any{"age": item.Age}
		if extra := cleanAll(item.ExtraSnippets); len(extra) > 0 {
			raw["extra_snippets"] = extra
		}
		results = append(results, model.SearchResult{
			Title:   cleanText(item.Title),
			URL:     item.URL,
			Snippet: cleanText(item.Description),
			Source:  p.Name(),
			Raw:     raw,
		})
	}
	return truncate(results, maxResults), nil
}
