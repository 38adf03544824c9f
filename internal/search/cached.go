package search

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/grantscout/internal/cache"
	"github.com/ppiankov/grantscout/internal/model"
)

// CachedProvider memoizes a provider's non-empty answers
type CachedProvider struct {
	inner  Provider
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProvider wraps inner with c; ttl 0 uses the cache default
func NewCachedProvider(inner Provider, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{inner: inner, cache: c, ttl: ttl, logger: logger}
}

// Name returns the wrapped provider's name
func (p *CachedProvider) Name() string { return p.inner.Name() }

// Search serves from cache when possible
func (p *CachedProvider) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	key := cache.Key("search", p.inner.Name(), query, strconv.Itoa(maxResults))

	var cached []model.SearchResult
	if cache.GetJSON(p.cache, key, &cached) {
		p.logger.Debug("Search cache hit", zap.String("provider", p.inner.Name()), zap.String("query", query))
		return cached, nil
	}

	results, err := p.inner.Search(ctx, query, maxResults)
	if err != nil || len(results) == 0 {
		return results, err
	}

	if err := cache.SetJSON(p.cache, key, results, p.ttl); err != nil {
		p.logger.Warn("Failed to cache search results", zap.String("provider", p.inner.Name()), zap.Error(err))
	}
	return results, nil
}
