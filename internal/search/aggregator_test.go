package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/grantscout/internal/model"
)

type stubProvider struct {
	name    string
	results []model.SearchResult
	err     error
	calls   int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Search(_ context.Context, _ string, _ int) ([]model.SearchResult, error) {
	s.calls++
	return s.results, s.err
}

func hit(url, source string) model.SearchResult {
	return model.SearchResult{Title: "t " + url, URL: url, Source: source}
}

func TestAggregator_DedupPrefersHigherPriority(t *testing.T) {
	first := &stubProvider{name: "brave", results: []model.SearchResult{
		hit("https://a.org", "brave"),
		hit("https://b.org", "brave"),
	}}
	second := &stubProvider{name: "serpapi", results: []model.SearchResult{
		hit("https://b.org", "serpapi"),
		hit("https://c.org", "serpapi"),
	}}

	agg := NewAggregator([]Provider{first, second}, nil, nil)
	results, err := agg.Search(context.Background(), "documentary grant", 10)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "https://a.org", results[0].URL)
	assert.Equal(t, "https://b.org", results[1].URL)
	assert.Equal(t, "brave", results[1].Source)
	assert.Equal(t, "https://c.org", results[2].URL)
}

func TestAggregator_FailingProviderSkipped(t *testing.T) {
	broken := &stubProvider{name: "bing", err: errors.New("connection refused")}
	ok := &stubProvider{name: "mock", results: []model.SearchResult{hit("https://ok.org", "mock")}}

	agg := NewAggregator([]Provider{broken, ok}, nil, nil)
	results, err := agg.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://ok.org", results[0].URL)
	assert.Equal(t, 1, broken.calls)
}

func TestAggregator_TruncatesAfterMerge(t *testing.T) {
	a := &stubProvider{name: "a", results: []model.SearchResult{hit("https://1", "a"), hit("https://2", "a")}}
	b := &stubProvider{name: "b", results: []model.SearchResult{hit("https://3", "b"), hit("https://4", "b")}}

	results, _ := NewAggregator([]Provider{a, b}, nil, nil).Search(context.Background(), "q", 3)
	require.Len(t, results, 3)
	assert.Equal(t, "https://3", results[2].URL)
}

func TestAggregator_DropsEmptyURLs(t *testing.T) {
	a := &stubProvider{name: "a", results: []model.SearchResult{{Title: "no url"}, hit("https://x", "a")}}

	results, _ := NewAggregator([]Provider{a}, nil, nil).Search(context.Background(), "q", 5)
	require.Len(t, results, 1)
}

func TestAggregator_Name(t *testing.T) {
	agg := NewAggregator([]Provider{&stubProvider{name: "brave"}, &stubProvider{name: "mock"}}, nil, nil)
	assert.Equal(t, "brave,mock", agg.Name())
	assert.Equal(t, "multi", NewAggregator(nil, nil, nil).Name())
}

func TestMockProvider(t *testing.T) {
	canned := NewMockProvider(model.SearchResult{Title: "Lotus Grant", URL: "https://example.com/g1", Snippet: "..."})
	results, err := canned.Search(context.Background(), "Iron Lotus documentary grant", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "mock", results[0].Source)

	placeholder, _ := NewMockProvider().Search(context.Background(), "a b", 5)
	require.Len(t, placeholder, 1)
	assert.Contains(t, placeholder[0].Title, "a b")
	assert.Equal(t, "https://example.org/mock?q=a+b", placeholder[0].URL)
}
