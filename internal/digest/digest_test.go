package digest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/grantscout/internal/model"
)

func TestBuild_OpenSectionFirst(t *testing.T) {
	results := []model.StoredResult{
		{ID: 1, Title: "Closed Fund", URL: "https://example.com/closed", Analysis: model.Analysis{IsOpen: model.OpenFalse}},
		{ID: 2, Title: "Open Fund", URL: "https://example.com/open", Analysis: model.Analysis{IsOpen: model.OpenTrue}},
	}

	out := Build(results, nil)

	openHeading := strings.Index(out, "CURRENTLY OPEN OPPORTUNITIES")
	otherHeading := strings.Index(out, "OTHER RESULTS")
	openResult := strings.Index(out, "[RID:2] Open Fund")
	closedResult := strings.Index(out, "[RID:1] Closed Fund")

	require.NotEqual(t, -1, openHeading)
	require.NotEqual(t, -1, otherHeading)
	assert.Less(t, openHeading, openResult)
	assert.Less(t, openResult, otherHeading)
	assert.Less(t, otherHeading, closedResult)
}

func TestBuild_Empty(t *testing.T) {
	out := Build(nil, nil)

	assert.NotEmpty(t, out)
	assert.Contains(t, out, "No results found")
	assert.NotContains(t, out, "OTHER RESULTS")
	assert.Contains(t, out, "Commands: deeper <RID> | details <RID> | draft <RID> | pivot <RID>")
}

func TestBuild_Pivots(t *testing.T) {
	out := Build(nil, []model.PivotSuggestion{{Suggestion: "Frame as labor history"}})

	assert.Contains(t, out, "PIVOT SUGGESTIONS")
	assert.Contains(t, out, "[PIVOT] Frame as labor history")
	assert.Less(t, strings.Index(out, "No results found"), strings.Index(out, "PIVOT SUGGESTIONS"))
}

func TestFormatResult_Full(t *testing.T) {
	r := model.StoredResult{
		ID:          7,
		Title:       "Lotus Grant",
		URL:         "https://example.com/g1",
		IsNewFunder: true,
		Analysis: model.Analysis{
			Score:            model.Float(0.857),
			Summary:          "Production grants for documentaries.",
			GrantAmount:      "$25,000",
			Deadline:         "2026-03-01",
			EligibilityNotes: "US residents",
			TopicMatch:       []string{"labor", "women"},
			ContactInfo:      "grants@example.com",
			IsOpen:           model.OpenTrue,
			FunderType:       "foundation",
		},
	}

	want := strings.Join([]string{
		"[RID:7] Lotus Grant (score: 0.86) [NEW, OPEN, FOUNDATION]",
		"  URL: https://example.com/g1",
		"  Production grants for documentaries.",
		"  Amount: $25,000 | Deadline: 2026-03-01",
		"  Eligibility: US residents",
		"  Topics: labor, women",
		"  Contact: grants@example.com",
	}, "\n")
	assert.Equal(t, want, FormatResult(r))
}

func TestFormatResult_Minimal(t *testing.T) {
	r := model.StoredResult{ID: 3, Title: "Bare", URL: "https://example.com/b", Analysis: model.Analysis{Deadline: "rolling"}}

	assert.Equal(t, "[RID:3] Bare (score: n/a)\n  URL: https://example.com/b\n  Deadline: rolling", FormatResult(r))
}

func TestFormatDetails(t *testing.T) {
	r := model.StoredResult{ID: 4, Title: "T", URL: "https://example.com", Snippet: "S"}
	assert.Equal(t, "[RID:4] T\nhttps://example.com\n\nS", FormatDetails(r))
}

func TestIsActive(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		isOpen model.OpenStatus
		dl     string
		want   bool
	}{
		{"no information", model.OpenUnknown, "", true},
		{"explicitly closed", model.OpenFalse, "2027-01-01", false},
		{"closed wording", model.OpenUnknown, "Applications closed", false},
		{"past iso date", model.OpenUnknown, "2026-06-14", false},
		{"today", model.OpenUnknown, "2026-06-15", true},
		{"future long date", model.OpenTrue, "September 1, 2026", true},
		{"past long date", model.OpenUnknown, "March 1, 2026", false},
		{"past year only", model.OpenUnknown, "Spring 2025", false},
		{"rolling", model.OpenUnknown, "rolling", true},
	}

	for _, tt := range tests {
		r := model.StoredResult{Analysis: model.Analysis{IsOpen: tt.isOpen, Deadline: tt.dl}}
		assert.Equal(t, tt.want, IsActive(r, now), tt.name)
	}
}

func TestFilterActive(t *testing.T) {
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	results := []model.StoredResult{
		{ID: 1, Analysis: model.Analysis{IsOpen: model.OpenFalse}},
		{ID: 2},
	}

	got := FilterActive(results, now)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}

func TestFilterListable(t *testing.T) {
	results := []model.StoredResult{
		{ID: 1, ResultType: model.ResultAggregator, URL: "https://filmfreeway.com/festivals"},
		{ID: 2, ResultType: model.ResultSpecificGrant},
		{ID: 3, ResultType: model.ResultIrrelevant},
		{ID: 4},
		{ID: 5, ResultType: model.ResultNews},
	}

	var ids []int64
	for _, r := range FilterListable(results) {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int64{2, 4, 5}, ids)
}
