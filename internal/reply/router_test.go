package reply

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/grantscout/internal/digest"
	"github.com/ppiankov/grantscout/internal/model"
	"github.com/ppiankov/grantscout/internal/score"
	"github.com/ppiankov/grantscout/internal/store"
)

type fakeStore struct {
	results map[int64]model.StoredResult
	pivots  []model.PivotSuggestion
	actions []model.ActionRecord
	err     error
}

func (s *fakeStore) FetchResultByID(_ context.Context, id int64) (model.StoredResult, error) {
	if s.err != nil {
		return model.StoredResult{}, s.err
	}
	r, ok := s.results[id]
	if !ok {
		return model.StoredResult{}, fmt.Errorf("result %d: %w", id, store.ErrNotFound)
	}
	return r, nil
}

func (s *fakeStore) FetchPivotSuggestions(context.Context, string, int) ([]model.PivotSuggestion, error) {
	return s.pivots, nil
}

func (s *fakeStore) RecordAction(_ context.Context, rec model.ActionRecord) {
	s.actions = append(s.actions, rec)
}

type fakeEngine struct {
	draft    string
	pivots   []string
	err      error
	projects []model.Project
}

func (e *fakeEngine) DraftApplication(_ context.Context, p model.Project, _ model.SearchResult) (string, error) {
	e.projects = append(e.projects, p)
	return e.draft, e.err
}

func (e *fakeEngine) SuggestPivots(_ context.Context, p model.Project, _ []model.SearchResult) ([]string, error) {
	e.projects = append(e.projects, p)
	return e.pivots, e.err
}

type fakeDeepener struct {
	stored []model.StoredResult
	err    error
	calls  int
}

func (d *fakeDeepener) Deepen(context.Context, model.Project, model.StoredResult) ([]model.StoredResult, error) {
	d.calls++
	return d.stored, d.err
}

type catalog map[string]model.Project

func (c catalog) Resolve(id string) model.Project {
	if p, ok := c[id]; ok {
		return p
	}
	return model.StubProject(id)
}

type outbox struct {
	sent []Reply
	err  error
}

func (o *outbox) Send(_ context.Context, subject, body string) error {
	o.sent = append(o.sent, Reply{Subject: subject, Body: body})
	return o.err
}

var lotus = model.StoredResult{
	ID: 1, ProjectID: "p1", Title: "Lotus Grant", URL: "https://example.com/g1", Snippet: "Production grants",
}

func newTestRouter(st *fakeStore, eng *fakeEngine, deep *fakeDeepener, out *outbox) *Router {
	return NewRouter(st, eng, deep, catalog{"p1": {ID: "p1", Title: "Iron Lotus"}}, out, nil, nil)
}

func TestDispatch_Details(t *testing.T) {
	st := &fakeStore{results: map[int64]model.StoredResult{1: lotus}}
	r := newTestRouter(st, &fakeEngine{}, &fakeDeepener{}, nil)

	got := r.Dispatch(context.Background(), Details{ResultID: 1}, "Re: digest")
	assert.Equal(t, digest.SubjectDetails, got.Subject)
	assert.Equal(t, "[RID:1] Lotus Grant\nhttps://example.com/g1\n\nProduction grants", got.Body)

	require.Len(t, st.actions, 1)
	assert.Equal(t, model.ActionDetails, st.actions[0].Kind)
	assert.Equal(t, "Re: digest", st.actions[0].Subject)
}

func TestDispatch_NotFoundStillRecorded(t *testing.T) {
	st := &fakeStore{}
	deep := &fakeDeepener{}
	r := newTestRouter(st, &fakeEngine{}, deep, nil)

	got := r.Dispatch(context.Background(), Deeper{ResultID: 404}, "Re: digest")

	assert.Equal(t, digest.SubjectReply, got.Subject)
	assert.Equal(t, "Result 404 not found.", got.Body)
	assert.Zero(t, deep.calls)
	require.Len(t, st.actions, 1)
	assert.Equal(t, model.ActionDeeper, st.actions[0].Kind)
	assert.Equal(t, int64(404), st.actions[0].ResultID)
}

func TestDispatch_LookupFailureIsNotNotFound(t *testing.T) {
	st := &fakeStore{
		results: map[int64]model.StoredResult{1: lotus},
		err:     errors.New("database is locked"),
	}
	eng := &fakeEngine{draft: "Dear funder"}
	r := newTestRouter(st, eng, &fakeDeepener{}, nil)

	got := r.Dispatch(context.Background(), Draft{ResultID: 1}, "Re: digest")

	assert.Equal(t, digest.SubjectReply, got.Subject)
	assert.Equal(t, "Could not look up result 1, please try again later.", got.Body)
	assert.NotContains(t, got.Body, "not found")
	assert.Empty(t, eng.projects)
	require.Len(t, st.actions, 1)
	assert.Equal(t, model.ActionDraft, st.actions[0].Kind)
	assert.Equal(t, int64(1), st.actions[0].ResultID)
}

func TestDispatch_Draft(t *testing.T) {
	st := &fakeStore{results: map[int64]model.StoredResult{1: lotus}}
	eng := &fakeEngine{draft: "Dear funder"}
	r := newTestRouter(st, eng, &fakeDeepener{}, nil)

	got := r.Dispatch(context.Background(), Draft{ResultID: 1}, "")
	assert.Equal(t, Reply{Subject: digest.SubjectDraft, Body: "Dear funder"}, got)
	assert.Equal(t, "Iron Lotus", eng.projects[0].Title)
}

func TestDispatch_DraftUnknownProjectUsesStub(t *testing.T) {
	orphan := lotus
	orphan.ProjectID = "gone"
	st := &fakeStore{results: map[int64]model.StoredResult{1: orphan}}
	eng := &fakeEngine{draft: "x"}
	r := newTestRouter(st, eng, &fakeDeepener{}, nil)

	r.Dispatch(context.Background(), Draft{ResultID: 1}, "")
	assert.Equal(t, model.Project{ID: "gone", Title: "gone"}, eng.projects[0])
}

func TestDispatch_EngineUnavailable(t *testing.T) {
	st := &fakeStore{results: map[int64]model.StoredResult{1: lotus}}
	eng := &fakeEngine{err: fmt.Errorf("draft application: %w: timeout", score.ErrEngineUnavailable)}
	r := newTestRouter(st, eng, &fakeDeepener{}, nil)

	for _, a := range []Action{Draft{ResultID: 1}, Pivot{ResultID: 1}} {
		got := r.Dispatch(context.Background(), a, "")
		assert.Equal(t, digest.SubjectReply, got.Subject)
		assert.Contains(t, got.Body, "scoring engine is unavailable")
	}
	assert.Len(t, st.actions, 2)
}

func TestDispatch_Pivot(t *testing.T) {
	st := &fakeStore{results: map[int64]model.StoredResult{1: lotus}}

	r := newTestRouter(st, &fakeEngine{pivots: []string{"a", "[s1] b"}}, &fakeDeepener{}, nil)
	got := r.Dispatch(context.Background(), Pivot{ResultID: 1}, "")
	assert.Equal(t, Reply{Subject: digest.SubjectPivot, Body: "a\n[s1] b"}, got)

	r = newTestRouter(st, &fakeEngine{}, &fakeDeepener{}, nil)
	got = r.Dispatch(context.Background(), Pivot{ResultID: 1}, "")
	assert.Equal(t, "No pivot suggestions yet.", got.Body)
}

func TestDispatch_Deeper(t *testing.T) {
	st := &fakeStore{
		results: map[int64]model.StoredResult{1: lotus},
		pivots:  []model.PivotSuggestion{{Suggestion: "Try labor funds"}},
	}
	deep := &fakeDeepener{stored: []model.StoredResult{{ID: 2, Title: "Lotus Grant FAQ", URL: "https://example.com/faq"}}}
	r := newTestRouter(st, &fakeEngine{}, deep, nil)

	got := r.Dispatch(context.Background(), Deeper{ResultID: 1}, "")
	assert.Equal(t, digest.SubjectDeeper, got.Subject)
	assert.Contains(t, got.Body, "[RID:2] Lotus Grant FAQ")
	assert.Contains(t, got.Body, "[PIVOT] Try labor funds")
	assert.Equal(t, 1, deep.calls)

	deep.err = errors.New("boom")
	got = r.Dispatch(context.Background(), Deeper{ResultID: 1}, "")
	assert.Equal(t, digest.SubjectReply, got.Subject)
}

func TestHandleMessage(t *testing.T) {
	st := &fakeStore{results: map[int64]model.StoredResult{1: lotus}}
	out := &outbox{}
	r := newTestRouter(st, &fakeEngine{draft: "Dear funder"}, &fakeDeepener{}, out)

	err := r.HandleMessage(context.Background(), model.Message{
		Subject: "Re: Film Funding Digest",
		Body:    "details 1\nthanks!\nDRAFT 1\n> pivot 1",
	})
	require.NoError(t, err)

	require.Len(t, out.sent, 2)
	assert.Equal(t, digest.SubjectDetails, out.sent[0].Subject)
	assert.Equal(t, digest.SubjectDraft, out.sent[1].Subject)
	assert.Len(t, st.actions, 2)
}

func TestHandleMessage_SendFailureContinues(t *testing.T) {
	st := &fakeStore{}
	out := &outbox{err: errors.New("smtp down")}
	r := newTestRouter(st, &fakeEngine{}, &fakeDeepener{}, out)

	err := r.HandleMessage(context.Background(), model.Message{Body: "details 1\ndetails 2"})
	require.Error(t, err)
	assert.Len(t, out.sent, 2)
	assert.Len(t, st.actions, 2)
}
