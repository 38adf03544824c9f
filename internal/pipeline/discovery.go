// Package pipeline runs discovery for catalog projects and the service flows
// built on it: emailed digests, reports from the store, and reply processing.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/grantscout/internal/metrics"
	"github.com/ppiankov/grantscout/internal/model"
	"github.com/ppiankov/grantscout/internal/planner"
	"github.com/ppiankov/grantscout/internal/score"
	"github.com/ppiankov/grantscout/internal/search"
	"github.com/ppiankov/grantscout/internal/worker"
)

// Scorer analyzes results and proposes pivots
type Scorer interface {
	ScoreBatch(ctx context.Context, project model.Project, results []model.SearchResult) []model.Analysis
	SuggestPivots(ctx context.Context, project model.Project, results []model.SearchResult) ([]string, error)
}

// ResultStore is what discovery writes to
type ResultStore interface {
	InsertResults(ctx context.Context, candidates []model.Candidate) ([]model.StoredResult, error)
	InsertPivotSuggestions(ctx context.Context, projectID string, suggestions []string) error
}

// DiscoveryConfig bounds one discovery run
type DiscoveryConfig struct {
	MaxResultsPerQuery int
	Workers            int // concurrent scoring batches
	BatchSize          int // results per scoring batch
}

// Discovery plans, searches, scores and stores results for one project at a time
type Discovery struct {
	config  DiscoveryConfig
	planner *planner.Planner
	search  search.Provider
	scorer  Scorer
	store   ResultStore
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewDiscovery wires a discovery runner; logger and metrics may be nil
func NewDiscovery(cfg DiscoveryConfig, p *planner.Planner, provider search.Provider, scorer Scorer, st ResultStore, logger *zap.Logger, m *metrics.Metrics) *Discovery {
	if cfg.MaxResultsPerQuery <= 0 {
		cfg.MaxResultsPerQuery = 5
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = score.DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discovery{config: cfg, planner: p, search: provider, scorer: scorer, store: st, logger: logger, metrics: m}
}

// Report summarizes one project's discovery run
type Report struct {
	RunID     string               `json:"run_id"`
	ProjectID string               `json:"project_id"`
	Queries   []string             `json:"queries"`
	Stored    []model.StoredResult `json:"stored"`
	Pivots    []string             `json:"pivots,omitempty"`
	Depth     int                  `json:"depth"`
	Started   time.Time            `json:"started"`
	Duration  time.Duration        `json:"duration"`
}

// hit is a search result tagged with the query that produced it
type hit struct {
	query     string
	angleType string
	segmentID string
	result    model.SearchResult
}

// Run discovers results for project. Level 1 runs the initial queries; each
// further level, up to depth, runs follow-up queries built from the previous
// level's new results.
func (d *Discovery) Run(ctx context.Context, project model.Project, depth int) (*Report, error) {
	depth = d.planner.Depth(depth)
	report := &Report{
		RunID:     uuid.NewString(),
		ProjectID: project.ID,
		Depth:     depth,
		Started:   time.Now().UTC(),
	}
	logger := d.logger.With(zap.String("run_id", report.RunID), zap.String("project", project.ID))

	seenURL := make(map[string]bool)
	ranQuery := make(map[string]bool)

	queries := d.planner.InitialQueries(ctx, project)
	angle := model.AnglePrimary

	for level := 1; len(queries) > 0; level++ {
		logger.Info("Running discovery level", zap.Int("level", level), zap.Int("queries", len(queries)))

		var hits []hit
		for _, q := range queries {
			ranQuery[q] = true
			report.Queries = append(report.Queries, q)
			for _, r := range d.searchQuery(ctx, logger, q) {
				if seenURL[r.URL] {
					continue
				}
				seenURL[r.URL] = true
				hits = append(hits, hit{query: q, angleType: angle, result: r})
			}
			if err := ctx.Err(); err != nil {
				return report, err
			}
		}

		stored, err := d.scoreAndStore(ctx, project, hits)
		if err != nil {
			return report, err
		}
		report.Stored = append(report.Stored, stored...)

		if level >= depth {
			break
		}

		results := make([]model.SearchResult, len(hits))
		for i, h := range hits {
			results[i] = h.result
		}
		var next []string
		for _, q := range d.planner.FollowupQueries(results) {
			if !ranQuery[q] {
				next = append(next, q)
			}
		}
		queries = next
		angle = model.AngleFollowup
	}

	report.Pivots = d.pivots(ctx, logger, project, report.Stored)
	report.Duration = time.Since(report.Started)
	logger.Info("Discovery complete",
		zap.Int("queries", len(report.Queries)),
		zap.Int("stored", len(report.Stored)),
		zap.Int("pivots", len(report.Pivots)),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// Deepen runs follow-up queries for one stored result and stores what they find
func (d *Discovery) Deepen(ctx context.Context, project model.Project, result model.StoredResult) ([]model.StoredResult, error) {
	logger := d.logger.With(zap.String("project", result.ProjectID), zap.Int64("result_id", result.ID))

	var hits []hit
	seen := map[string]bool{result.URL: true}
	for _, q := range d.planner.FollowupQueries([]model.SearchResult{result.AsSearchResult()}) {
		for _, r := range d.searchQuery(ctx, logger, q) {
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			hits = append(hits, hit{query: q, angleType: model.AngleFollowup, segmentID: result.SegmentID, result: r})
		}
	}

	if project.ID == "" {
		project = model.StubProject(result.ProjectID)
	}
	return d.scoreAndStore(ctx, project, hits)
}

// searchQuery never fails; provider errors are logged and yield nothing
func (d *Discovery) searchQuery(ctx context.Context, logger *zap.Logger, query string) []model.SearchResult {
	results, err := d.search.Search(ctx, query, d.config.MaxResultsPerQuery)
	if err != nil {
		logger.Warn("Search failed", zap.String("query", query), zap.Error(err))
		return nil
	}

	var out []model.SearchResult
	for _, r := range results {
		r.URL = strings.TrimSpace(r.URL)
		if r.URL == "" {
			continue
		}
		if strings.TrimSpace(r.Title) == "" {
			r.Title = "Untitled result"
		}
		out = append(out, r)
	}
	logger.Debug("Search done", zap.String("query", query), zap.Int("results", len(out)))
	return out
}

type scoredBatch struct {
	start    int
	analyses []model.Analysis
}

func (scoredBatch) GetError() error { return nil }

// scoreAndStore scores hits in batches on the worker pool, classifies them and upserts them
func (d *Discovery) scoreAndStore(ctx context.Context, project model.Project, hits []hit) ([]model.StoredResult, error) {
	if len(hits) == 0 {
		return nil, nil
	}

	var jobs []worker.Job
	for start := 0; start < len(hits); start += d.config.BatchSize {
		chunk := hits[start:min(start+d.config.BatchSize, len(hits))]
		results := make([]model.SearchResult, len(chunk))
		for i, h := range chunk {
			results[i] = h.result
		}
		jobs = append(jobs, worker.FuncJob(func(ctx context.Context) worker.Result {
			return scoredBatch{start: start, analyses: d.scorer.ScoreBatch(ctx, project, results)}
		}))
	}

	analyses := make([]model.Analysis, len(hits))
	for _, res := range worker.Run(ctx, d.config.Workers, jobs) {
		b := res.(scoredBatch)
		copy(analyses[b.start:], b.analyses)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := make([]model.Candidate, len(hits))
	for i, h := range hits {
		candidates[i] = model.Candidate{
			ProjectID:  project.ID,
			SegmentID:  h.segmentID,
			AngleType:  h.angleType,
			Query:      h.query,
			Result:     h.result,
			Analysis:   analyses[i],
			ResultType: score.Classify(h.result.Title, h.result.URL),
		}
	}

	stored, err := d.store.InsertResults(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("store results for %s: %w", project.ID, err)
	}
	d.metrics.ResultsStored(project.ID, len(stored))
	return stored, nil
}

// pivots asks for and persists pivot suggestions; failures only cost the suggestions
func (d *Discovery) pivots(ctx context.Context, logger *zap.Logger, project model.Project, stored []model.StoredResult) []string {
	if len(stored) == 0 {
		return nil
	}
	results := make([]model.SearchResult, len(stored))
	for i, r := range stored {
		results[i] = r.AsSearchResult()
	}

	pivots, err := d.scorer.SuggestPivots(ctx, project, results)
	if err != nil {
		logger.Warn("Pivot suggestions unavailable", zap.Error(err))
		return nil
	}
	if err := d.store.InsertPivotSuggestions(ctx, project.ID, pivots); err != nil {
		logger.Warn("Failed to store pivot suggestions", zap.Error(err))
	}
	return pivots
}
