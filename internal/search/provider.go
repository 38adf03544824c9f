// Package search wraps the external web search backends behind one Provider
// interface and merges their answers.
package search

import (
	"context"

	"github.com/ppiankov/grantscout/internal/model"
)

// Provider runs one web search
type Provider interface {
	// Name identifies the backend in logs, metrics and the Source field
	Name() string

	// Search returns at most maxResults hits in backend rank order.
	// "No results" is an empty slice, not an error.
	Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error)
}

func truncate(results []model.SearchResult, maxResults int) []model.SearchResult {
	if maxResults > 0 && len(results) > maxResults {
		return results[:maxResults]
	}
	return results
}
