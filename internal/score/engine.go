// Package score classifies search results against a project and drafts
// follow-up text, on top of an llm.Provider.
package score

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/grantscout/internal/llm"
	"github.com/ppiankov/grantscout/internal/metrics"
	"github.com/ppiankov/grantscout/internal/model"
	"github.com/ppiankov/grantscout/internal/planner"
)

// ErrEngineUnavailable is returned by the drafting calls when the model cannot be reached
var ErrEngineUnavailable = errors.New("scoring engine unavailable")

// DefaultBatchSize is how many results go into one analysis call
const DefaultBatchSize = 15

// Engine scores results and drafts text. With a nil provider it runs offline:
// keyword scores, template drafts, no pivots.
type Engine struct {
	provider  llm.Provider
	batchSize int
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewEngine creates an engine; provider may be nil
func NewEngine(provider llm.Provider, batchSize int, logger *zap.Logger, m *metrics.Metrics) *Engine {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{provider: provider, batchSize: batchSize, logger: logger, metrics: m}
}

// Available reports whether a model is configured
func (e *Engine) Available() bool {
	return e.provider != nil
}

// Score analyzes one result. It never fails: unusable model output yields an empty Analysis.
func (e *Engine) Score(ctx context.Context, project model.Project, result model.SearchResult) model.Analysis {
	if e.provider == nil {
		return KeywordAnalysis(project, result)
	}

	resp, err := e.provider.Generate(ctx, llm.GenerateRequest{
		Prompt: analysisPrompt(project, result),
		JSON:   true,
	})
	if err != nil {
		e.failed("Result analysis failed", project, err)
		return model.Analysis{}
	}

	v, ok := llm.ExtractJSON(resp.Text)
	if !ok {
		e.failed("Result analysis unparseable", project, nil)
		return model.Analysis{}
	}
	if arr, isArr := v.([]any); isArr && len(arr) == 1 {
		v = arr[0]
	}
	obj, ok := v.(map[string]any)
	if !ok {
		e.failed("Result analysis is not an object", project, nil)
		return model.Analysis{}
	}
	return parseAnalysis(obj)
}

// ScoreBatch analyzes results in chunks of the batch size and returns one
// Analysis per input, in order. A chunk whose answer does not line up with
// its input is retried one result at a time.
func (e *Engine) ScoreBatch(ctx context.Context, project model.Project, results []model.SearchResult) []model.Analysis {
	out := make([]model.Analysis, 0, len(results))
	for start := 0; start < len(results); start += e.batchSize {
		chunk := results[start:min(start+e.batchSize, len(results))]
		out = append(out, e.scoreChunk(ctx, project, chunk)...)
	}
	return out
}

func (e *Engine) scoreChunk(ctx context.Context, project model.Project, chunk []model.SearchResult) []model.Analysis {
	if e.provider == nil {
		out := make([]model.Analysis, len(chunk))
		for i, r := range chunk {
			out[i] = KeywordAnalysis(project, r)
		}
		return out
	}

	resp, err := e.provider.Generate(ctx, llm.GenerateRequest{
		Prompt: batchPrompt(project, chunk),
		JSON:   true,
	})
	if err == nil {
		if v, ok := llm.ExtractJSON(resp.Text); ok {
			if arr, isArr := v.([]any); isArr && len(arr) == len(chunk) {
				out := make([]model.Analysis, len(chunk))
				for i, item := range arr {
					obj, isObj := item.(map[string]any)
					if !isObj {
						e.metrics.ScoringFailure()
						continue
					}
					out[i] = parseAnalysis(obj)
				}
				return out
			}
		}
	}

	e.logger.Warn("Batch analysis unusable, scoring one by one",
		zap.String("project", project.ID), zap.Int("batch", len(chunk)), zap.Error(err))

	out := make([]model.Analysis, len(chunk))
	for i, r := range chunk {
		out[i] = e.Score(ctx, project, r)
	}
	return out
}

// DraftApplication writes a short application note for one opportunity
func (e *Engine) DraftApplication(ctx context.Context, project model.Project, result model.SearchResult) (string, error) {
	if e.provider == nil {
		return FallbackDraft(project, result), nil
	}

	resp, err := e.provider.Generate(ctx, llm.GenerateRequest{Prompt: draftPrompt(project, result)})
	if err != nil {
		e.logger.Warn("Draft generation failed", zap.String("project", project.ID), zap.Error(err))
		return "", fmt.Errorf("draft application: %w: %v", ErrEngineUnavailable, err)
	}
	return resp.Text, nil
}

// SuggestPivots proposes alternative framings given recent results.
// Malformed model output yields no suggestions rather than an error.
func (e *Engine) SuggestPivots(ctx context.Context, project model.Project, results []model.SearchResult) ([]string, error) {
	if e.provider == nil {
		return nil, nil
	}

	resp, err := e.provider.Generate(ctx, llm.GenerateRequest{Prompt: pivotPrompt(project, results), JSON: true})
	if err != nil {
		e.logger.Warn("Pivot generation failed", zap.String("project", project.ID), zap.Error(err))
		return nil, fmt.Errorf("suggest pivots: %w: %v", ErrEngineUnavailable, err)
	}

	v, ok := llm.ExtractJSON(resp.Text)
	if !ok {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, nil
	}
	return NormalizePivots(items), nil
}

// ExpandQueries turns project angles into search queries
func (e *Engine) ExpandQueries(ctx context.Context, project model.Project, angles []planner.Angle, maxQueries int) ([]string, error) {
	if e.provider == nil {
		return nil, ErrEngineUnavailable
	}

	resp, err := e.provider.Generate(ctx, llm.GenerateRequest{Prompt: expandPrompt(project, angles, maxQueries), JSON: true})
	if err != nil {
		return nil, fmt.Errorf("expand queries: %w: %v", ErrEngineUnavailable, err)
	}

	v, ok := llm.ExtractJSON(resp.Text)
	items, isArr := v.([]any)
	if !ok || !isArr {
		return nil, fmt.Errorf("expand queries: unparseable answer")
	}

	var queries []string
	for _, item := range items {
		if s := toString(item); s != "" {
			queries = append(queries, s)
		}
	}
	return queries, nil
}

func (e *Engine) failed(msg string, project model.Project, err error) {
	e.metrics.ScoringFailure()
	e.logger.Warn(msg, zap.String("project", project.ID), zap.Error(err))
}
