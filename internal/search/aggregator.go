package search

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/grantscout/internal/metrics"
	"github.com/ppiankov/grantscout/internal/model"
)

// Aggregator fans one query out to several providers and merges the answers.
// Providers are listed in priority order: when two return the same URL the
// earlier provider's hit is kept. A failing provider contributes nothing.
type Aggregator struct {
	providers []Provider
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewAggregator creates an aggregator over providers in priority order
func NewAggregator(providers []Provider, logger *zap.Logger, m *metrics.Metrics) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{providers: providers, logger: logger, metrics: m}
}

// Name joins the provider names
func (a *Aggregator) Name() string {
	if len(a.providers) == 0 {
		return "multi"
	}
	names := make([]string, len(a.providers))
	for i, p := range a.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, ",")
}

// Providers returns the providers in priority order
func (a *Aggregator) Providers() []Provider {
	return a.providers
}

// Search queries every provider concurrently. It never returns an error.
func (a *Aggregator) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	batches := make([][]model.SearchResult, len(a.providers))

	var g errgroup.Group
	for i, p := range a.providers {
		g.Go(func() error {
			results, err := p.Search(ctx, query, maxResults)
			switch {
			case err != nil:
				a.metrics.SearchRequest(p.Name(), "error")
				a.logger.Warn("Search provider failed",
					zap.String("provider", p.Name()),
					zap.String("query", query),
					zap.Error(err))
			case len(results) == 0:
				a.metrics.SearchRequest(p.Name(), "empty")
			default:
				a.metrics.SearchRequest(p.Name(), "ok")
			}
			batches[i] = results
			return nil
		})
	}
	_ = g.Wait()

	return truncate(merge(batches), maxResults), nil
}

// merge concatenates batches in order, keeping the first hit per URL and dropping hits without one
func merge(batches [][]model.SearchResult) []model.SearchResult {
	seen := make(map[string]bool)
	var out []model.SearchResult
	for _, batch := range batches {
		for _, r := range batch {
			key := strings.TrimSpace(r.URL)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, r)
		}
	}
	return out
}
