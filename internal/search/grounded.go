package search

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/ppiankov/grantscout/internal/model"
)

const groundedSource = "gemini_grounded"

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// GroundedProvider asks Gemini to search with the Google Search tool.
// Web sources from grounding metadata come first; the model's own JSON list fills the rest.
type GroundedProvider struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

type groundedItem struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// NewGroundedProvider wraps a GenAI client
func NewGroundedProvider(client *genai.Client, modelName string, timeout time.Duration, logger *zap.Logger) *GroundedProvider {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroundedProvider{client: client, model: modelName, timeout: timeout, logger: logger}
}

// Name returns "gemini_grounded"
func (p *GroundedProvider) Name() string { return groundedSource }

// Search runs one grounded generation and collects its sources
func (p *GroundedProvider) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	prompt := fmt.Sprintf("Search the web for current documentary film funding opportunities.\n"+
		"Query: %s\n"+
		"Return a JSON array of up to %d items with keys: title, url, snippet.", query, maxResults)

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Tools:       []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		Temperature: genai.Ptr[float32](0.2),
	})
	if err != nil {
		return nil, fmt.Errorf("grounded search: %w", err)
	}

	seen := make(map[string]bool)
	var results []model.SearchResult

	for _, cand := range resp.Candidates {
		if cand == nil || cand.GroundingMetadata == nil {
			continue
		}
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" || seen[chunk.Web.URI] {
				continue
			}
			seen[chunk.Web.URI] = true
			results = append(results, model.SearchResult{
				Title:  chunk.Web.Title,
				URL:    chunk.Web.URI,
				Source: groundedSource,
				Raw:    map[string]any{"grounded": true},
			})
		}
	}

	var items []groundedItem
	if match := jsonArrayPattern.FindString(resp.Text()); match != "" {
		if err := json.Unmarshal([]byte(match), &items); err != nil {
			p.logger.Debug("Grounded answer is not a JSON array", zap.String("query", query), zap.Error(err))
		}
	}
	for _, item := range items {
		if item.URL == "" || seen[item.URL] {
			continue
		}
		seen[item.URL] = true
		results = append(results, model.SearchResult{
			Title:   item.Title,
			URL:     item.URL,
			Snippet: cleanText(item.Snippet),
			Source:  groundedSource,
		})
	}

	return truncate(results, maxResults), nil
}
