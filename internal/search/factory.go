package search

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/grantscout/internal/cache"
	"github.com/ppiankov/grantscout/internal/llm"
	"github.com/ppiankov/grantscout/internal/metrics"
	"github.com/ppiankov/grantscout/internal/model"
	"github.com/ppiankov/grantscout/internal/util"
	"github.com/ppiankov/grantscout/internal/worker"
)

// Options carries the shared collaborators for NewFromConfig
type Options struct {
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Cache    cache.Cache // nil disables response caching
	CacheTTL time.Duration
}

// NewFromConfig builds an Aggregator over cfg.Search.Providers in priority order.
// Unknown names and backends without credentials are skipped with a warning;
// when nothing usable remains the mock provider is used.
func NewFromConfig(ctx context.Context, cfg *model.Config, opts Options) *Aggregator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	client := util.NewHTTPClient(30*time.Second, cfg.HTTP)
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	var providers []Provider
	seen := make(map[string]bool)

	for _, raw := range cfg.Search.Providers {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		p := buildProvider(ctx, name, cfg, client, limiter, logger)
		if p == nil {
			continue
		}
		if opts.Cache != nil && name != "mock" {
			p = NewCachedProvider(p, opts.Cache, opts.CacheTTL, logger)
		}
		providers = append(providers, p)
	}

	if len(providers) == 0 {
		logger.Warn("No search provider configured, using mock results")
		providers = append(providers, NewMockProvider())
	}

	return NewAggregator(providers, logger, opts.Metrics)
}

func buildProvider(ctx context.Context, name string, cfg *model.Config, client *http.Client, limiter *worker.Limiter, logger *zap.Logger) Provider {
	missing := func(key string) Provider {
		logger.Warn("Search provider skipped, missing API key", zap.String("provider", name), zap.String("key", key))
		return nil
	}

	s := cfg.Search
	switch name {
	case "brave":
		if s.BraveAPIKey == "" {
			return missing("brave_api_key")
		}
		return NewBraveProvider(s.BraveAPIKey, client, limiter, logger)

	case "serpapi":
		if s.SerpAPIKey == "" {
			return missing("serpapi_api_key")
		}
		return NewSerpAPIProvider(s.SerpAPIKey, client, limiter, logger)

	case "bing":
		if s.BingAPIKey == "" {
			return missing("bing_api_key")
		}
		return NewBingProvider(s.BingAPIKey, s.BingEndpoint, client, limiter, logger)

	case "tavily":
		if s.TavilyAPIKey == "" {
			return missing("tavily_api_key")
		}
		return NewTavilyProvider(s.TavilyAPIKey, client, limiter, logger)

	case "grounded", "gemini", "gemini_grounded":
		if s.GeminiAPIKey == "" {
			return missing("gemini_api_key")
		}
		gc, err := llm.NewGenAIClient(ctx, s.GeminiAPIKey, "", util.NewHTTPClient(s.Timeout, cfg.HTTP))
		if err != nil {
			logger.Warn("Search provider skipped", zap.String("provider", name), zap.Error(err))
			return nil
		}
		return NewGroundedProvider(gc, s.GeminiModel, s.Timeout, logger)

	case "mock":
		return NewMockProvider()

	default:
		logger.Warn("Unknown search provider", zap.String("provider", name))
		return nil
	}
}
