package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/grantscout/internal/cache"
	"github.com/ppiankov/grantscout/internal/model"
)

func TestNewFromConfig_SkipsUnconfigured(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Search.Providers = []string{"brave", "nonsense", "serpapi", "Brave"}
	cfg.Search.SerpAPIKey = "serp"

	agg := NewFromConfig(context.Background(), cfg, Options{})
	require.Len(t, agg.Providers(), 1)
	assert.Equal(t, "serpapi", agg.Providers()[0].Name())
}

func TestNewFromConfig_FallsBackToMock(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Search.Providers = []string{"grounded"}

	agg := NewFromConfig(context.Background(), cfg, Options{})
	require.Len(t, agg.Providers(), 1)
	assert.Equal(t, "mock", agg.Providers()[0].Name())
}

func TestNewFromConfig_WrapsWithCache(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Search.Providers = []string{"tavily"}
	cfg.Search.TavilyAPIKey = "t"

	agg := NewFromConfig(context.Background(), cfg, Options{Cache: cache.NewMemoryCache(time.Minute, time.Minute)})
	require.Len(t, agg.Providers(), 1)
	_, ok := agg.Providers()[0].(*CachedProvider)
	assert.True(t, ok)
}

func TestCachedProvider(t *testing.T) {
	inner := &stubProvider{name: "brave", results: []model.SearchResult{hit("https://a.org", "brave")}}
	p := NewCachedProvider(inner, cache.NewMemoryCache(time.Minute, time.Minute), 0, nil)

	for i := 0; i < 3; i++ {
		results, err := p.Search(context.Background(), "q", 5)
		require.NoError(t, err)
		require.Len(t, results, 1)
	}
	assert.Equal(t, 1, inner.calls)

	_, _ = p.Search(context.Background(), "other", 5)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedProvider_DoesNotCacheEmpty(t *testing.T) {
	inner := &stubProvider{name: "bing"}
	p := NewCachedProvider(inner, cache.NewMemoryCache(time.Minute, time.Minute), 0, nil)

	_, _ = p.Search(context.Background(), "q", 5)
	_, _ = p.Search(context.Background(), "q", 5)
	assert.Equal(t, 2, inner.calls)
}
