// Package planner turns projects into search queries and search results into
// narrower follow-up queries.
package planner

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/grantscout/internal/model"
)

// Strategy names
const (
	StrategyBroad    = "broad"
	StrategyOutreach = "outreach"
	StrategyExpand   = "expand"
)

// MaxDepth caps follow-up expansion whatever the caller asks for
const MaxDepth = 5

// Angle is one facet of a project fed to query expansion
type Angle struct {
	Label     string `json:"label"`
	Type      string `json:"angle_type"`
	SegmentID string `json:"segment_id,omitempty"`
}

// Expander asks a language model to turn angles into queries
type Expander interface {
	ExpandQueries(ctx context.Context, project model.Project, angles []Angle, maxQueries int) ([]string, error)
}

// Config controls planning
type Config struct {
	Strategy      string
	MaxQueries    int
	FollowupLimit int
	Depth         int
}

// ConfigFromModel maps the search section of the app config
func ConfigFromModel(cfg model.SearchConfig) Config {
	return Config{
		Strategy:      cfg.Strategy,
		MaxQueries:    cfg.MaxQueriesOrDefault(),
		FollowupLimit: cfg.FollowupLimit,
		Depth:         cfg.FollowupDepth,
	}
}

// Planner builds queries
type Planner struct {
	config   Config
	sources  model.Sources
	expander Expander // nil: template expansion only
	logger   *zap.Logger
}

// New creates a planner
func New(config Config, sources model.Sources, expander Expander, logger *zap.Logger) *Planner {
	if config.Strategy == "" {
		config.Strategy = StrategyBroad
	}
	if config.MaxQueries <= 0 {
		config.MaxQueries = 30
	}
	if config.FollowupLimit <= 0 {
		config.FollowupLimit = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{config: config, sources: sources, expander: expander, logger: logger}
}

// InitialQueries returns the first batch of queries for a project.
// The result is never empty and always contains one query naming the project.
func (p *Planner) InitialQueries(ctx context.Context, project model.Project) []string {
	var queries []string
	switch strings.ToLower(p.config.Strategy) {
	case StrategyOutreach:
		queries = p.outreachQueries(project)
	case StrategyExpand:
		queries = p.expandQueries(ctx, project)
	default:
		queries = p.broadQueries(project)
	}

	title := titleQuery(project)
	if title == "" {
		return truncate(queries, p.config.MaxQueries)
	}

	for _, q := range queries[:min(len(queries), p.config.MaxQueries)] {
		if q == title {
			return truncate(queries, p.config.MaxQueries)
		}
	}
	queries = truncate(queries, p.config.MaxQueries-1)
	return append(queries, title)
}

// Depth resolves the follow-up depth for a run: requested if positive, else
// the configured depth, clamped to [1, MaxDepth].
func (p *Planner) Depth(requested int) int {
	d := requested
	if d <= 0 {
		d = p.config.Depth
	}
	if d < 1 {
		d = 1
	}
	if d > MaxDepth {
		d = MaxDepth
	}
	return d
}

func titleQuery(project model.Project) string {
	title := strings.TrimSpace(project.Title)
	if title == "" {
		title = model.Label(project.ID)
	}
	if title == "" {
		return ""
	}
	return title + " funding opportunity"
}

func truncate(queries []string, n int) []string {
	if n < 0 {
		n = 0
	}
	if len(queries) > n {
		return queries[:n]
	}
	return queries
}

// dedup trims, drops empties and keeps first occurrences
func dedup(queries []string) []string {
	seen := make(map[string]bool, len(queries))
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}
	return out
}
