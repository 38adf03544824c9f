package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/grantscout/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "results.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func candidate(project, url string, score *float64) model.Candidate {
	return model.Candidate{
		ProjectID: project,
		AngleType: model.AnglePrimary,
		Query:     "Iron Lotus funding opportunity",
		Result:    model.SearchResult{Title: "Lotus Grant", URL: url, Snippet: "...", Source: "mock"},
		Analysis:  model.Analysis{Score: score},
	}
}

func TestInsertResults_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.InsertResults(ctx, []model.Candidate{candidate("p1", "https://example.com/g1", model.Float(0.4))})
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := s.InsertResults(ctx, []model.Candidate{
		candidate("p1", "https://example.com/g1", model.Float(0.8)),
		candidate("p1", "https://example.com/g2", nil),
	})
	require.NoError(t, err)
	require.Len(t, second, 2)

	assert.Equal(t, first[0].ID, second[0].ID, "id is stable across re-discovery")
	assert.Equal(t, 0.8, second[0].ScoreValue(), "score refreshed on re-discovery")
	assert.NotEqual(t, second[0].ID, second[1].ID)

	all, err := s.FetchRecentResults(ctx, "p1", 50)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestInsertResults_KeepsFieldsAbsentFromRediscovery(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := candidate("p1", "https://example.com/g1", model.Float(0.7))
	c.Analysis.IsOpen = model.OpenTrue
	c.Analysis.Summary = "Production grants"
	_, err := s.InsertResults(ctx, []model.Candidate{c})
	require.NoError(t, err)

	out, err := s.InsertResults(ctx, []model.Candidate{candidate("p1", "https://example.com/g1", nil)})
	require.NoError(t, err)
	assert.Equal(t, 0.7, out[0].ScoreValue())
	assert.Equal(t, model.OpenTrue, out[0].IsOpen)
	assert.Equal(t, "Production grants", out[0].Summary)
}

func TestInsertResults_SameURLDifferentProjects(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	out, err := s.InsertResults(ctx, []model.Candidate{
		candidate("p1", "https://example.com/g1", nil),
		candidate("p2", "https://example.com/g1", nil),
	})
	require.NoError(t, err)
	assert.NotEqual(t, out[0].ID, out[1].ID)
}

func TestInsertResults_ConcurrentSameURL(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]int64, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := s.InsertResults(ctx, []model.Candidate{candidate("p1", "https://example.com/g1", nil)})
			if err == nil && len(out) == 1 {
				ids[i] = out[0].ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	all, err := s.FetchRecentResults(ctx, "", 50)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestInsertResults_TopicsAndFunderNovelty(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := candidate("p1", "https://www.fund.org/a", nil)
	c.Analysis.TopicMatch = []string{"labor", "women"}
	c.ResultType = "specific_grant"

	out, err := s.InsertResults(ctx, []model.Candidate{c, candidate("p1", "https://fund.org/b", nil)})
	require.NoError(t, err)

	assert.Equal(t, []string{"labor", "women"}, out[0].TopicMatch)
	assert.Equal(t, "specific_grant", out[0].ResultType)
	assert.True(t, out[0].IsNewFunder)
	assert.False(t, out[1].IsNewFunder, "same domain already seen in this batch")

	n, err := s.FunderSightings(ctx, "fund.org")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDecodeTopics_LegacyString(t *testing.T) {
	assert.Equal(t, []string{"labor", "women"}, decodeTopics("labor, women"))
	assert.Equal(t, []string{"a"}, decodeTopics(`["a"]`))
	assert.Nil(t, decodeTopics(""))
}

func TestFetchRecentResults_OrderAndFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { clock = clock.Add(time.Minute); return clock }

	for _, c := range []model.Candidate{
		candidate("p1", "https://example.com/old", nil),
		candidate("p2", "https://example.com/other", nil),
		candidate("p1", "https://example.com/new", nil),
	} {
		_, err := s.InsertResults(ctx, []model.Candidate{c})
		require.NoError(t, err)
	}

	got, err := s.FetchRecentResults(ctx, "p1", 50)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://example.com/new", got[0].URL)
	assert.Equal(t, "https://example.com/old", got[1].URL)

	limited, err := s.FetchRecentResults(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "https://example.com/new", limited[0].URL)
}

func TestFetchResultByID_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.FetchResultByID(context.Background(), 42)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDigestSelectionAndMarkShown(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	out, err := s.InsertResults(ctx, []model.Candidate{
		candidate("p1", "https://example.com/low", model.Float(0.2)),
		candidate("p1", "https://example.com/mid", model.Float(0.6)),
		candidate("p1", "https://example.com/high", model.Float(0.9)),
		candidate("p1", "https://example.com/none", nil),
	})
	require.NoError(t, err)

	got, err := s.FetchResultsForDigest(ctx, "p1", 0.5, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://example.com/high", got[0].URL)

	require.NoError(t, s.MarkShown(ctx, []int64{out[2].ID}))

	got, err = s.FetchResultsForDigest(ctx, "p1", 0.5, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://example.com/mid", got[0].URL, "unseen results come first")
	assert.True(t, got[1].Shown)
}

func TestDigestSelectionSkipsAggregators(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	grant := candidate("p1", "https://example.com/grant", model.Float(0.7))
	grant.ResultType = model.ResultSpecificGrant
	agg := candidate("p1", "https://filmfreeway.com/festivals", model.Float(0.9))
	agg.ResultType = model.ResultAggregator
	wiki := candidate("p1", "https://en.wikipedia.org/wiki/Documentary", model.Float(0.8))
	wiki.ResultType = model.ResultIrrelevant
	untyped := candidate("p1", "https://example.com/untyped", model.Float(0.6))

	_, err := s.InsertResults(ctx, []model.Candidate{grant, agg, wiki, untyped})
	require.NoError(t, err)

	got, err := s.FetchResultsForDigest(ctx, "p1", 0.5, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://example.com/grant", got[0].URL)
	assert.Equal(t, "https://example.com/untyped", got[1].URL)
}

func TestPivotSuggestions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertPivotSuggestions(ctx, "p1", []string{"first", "", "second"}))
	require.NoError(t, s.InsertPivotSuggestions(ctx, "p2", []string{"other"}))

	got, err := s.FetchPivotSuggestions(ctx, "p1", 20)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Suggestion)

	all, err := s.FetchPivotSuggestions(ctx, "", 20)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRecordAction(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.RecordAction(ctx, model.ActionRecord{Kind: model.ActionDeeper, ResultID: 99, Subject: "Re: digest"})

	got, err := s.FetchActions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.ActionDeeper, got[0].Kind)
	assert.Equal(t, int64(99), got[0].ResultID)
	assert.Equal(t, "Re: digest", got[0].Subject)
}

func TestRecordAction_SwallowsWriteFailure(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Close())

	assert.NotPanics(t, func() {
		s.RecordAction(context.Background(), model.ActionRecord{Kind: model.ActionDetails, ResultID: 1})
	})
}

func TestMigrate_AddsMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE results (
		id INTEGER PRIMARY KEY AUTOINCREMENT, project_id TEXT NOT NULL, segment_id TEXT, angle_type TEXT,
		query TEXT, title TEXT NOT NULL, url TEXT NOT NULL, snippet TEXT, source TEXT, score REAL,
		discovered_at TEXT NOT NULL, summary TEXT, grant_amount TEXT, deadline TEXT, eligibility_notes TEXT,
		topic_match TEXT, contact_info TEXT, is_new_funder INTEGER NOT NULL DEFAULT 0, is_open TEXT,
		funder_type TEXT, UNIQUE(project_id, url))`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	out, err := s.InsertResults(context.Background(), []model.Candidate{candidate("p1", "https://example.com/g1", nil)})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestEndToEnd_StoreAndFetch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.InsertResults(ctx, []model.Candidate{candidate("p1", "https://example.com/g1", model.Float(0.5))})
	require.NoError(t, err)

	got, err := s.FetchRecentResults(ctx, "p1", 50)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://example.com/g1", got[0].URL)
	assert.Equal(t, "mock", got[0].Source)
	assert.False(t, got[0].DiscoveredAt.IsZero())
}
